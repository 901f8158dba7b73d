package website

import (
	"regexp"
	"strings"
)

// Legal-entity suffixes stripped when deriving a domain name.
var legalSuffixes = []string{
	"incorporated", "corporation", "company", "limited",
	"inc", "ltd", "corp", "plc", "oao", "llc", "gmbh", "ag", "sa", "se",
	"group", "holdings", "holding", "co",
}

// Country-preferred TLDs; everything else falls back to the generic set.
var countryTLDs = map[string][]string{
	"US": {"com"},
	"GB": {"co.uk", "com", "org"},
	"RU": {"ru", "com"},
	"DE": {"de", "com"},
	"FR": {"fr", "com"},
	"IT": {"it", "com"},
	"NL": {"nl", "com"},
	"CH": {"ch", "com"},
	"SG": {"sg", "com"},
}

var genericTLDs = []string{"com", "org", "net"}

// Known brand abbreviations that domain stripping alone cannot derive.
var brandAbbreviations = map[string]string{
	"british petroleum": "bp",
	"exxon mobil":       "exxonmobil",
	"total energies":    "totalenergies",
	"gazprom neft":      "gazprom-neft",
}

var parensRe = regexp.MustCompile(`\(([^)]+)\)`)

// candidateURLs derives plausible official-website URLs from the entity
// name and country, preferred TLDs first, duplicates removed in order.
func candidateURLs(name, country string) []string {
	base := domainName(name)
	if base == "" {
		return nil
	}

	forms := dedupe([]string{
		strings.ReplaceAll(base, " ", ""),
		strings.ReplaceAll(base, " ", "-"),
		strings.ReplaceAll(base, " ", "."),
	})

	tlds := append([]string{}, countryTLDs[strings.ToUpper(country)]...)
	for _, tld := range genericTLDs {
		tlds = append(tlds, tld)
	}
	tlds = dedupe(tlds)

	var urls []string
	for _, tld := range tlds {
		for _, form := range forms {
			urls = append(urls,
				"https://www."+form+"."+tld,
				"https://"+form+"."+tld,
			)
		}
	}
	return dedupe(urls)
}

// domainName lower-cases the entity name and strips legal suffixes,
// parentheses and punctuation, leaving space-separated words.
func domainName(name string) string {
	clean := strings.ToLower(name)
	clean = parensRe.ReplaceAllString(clean, " ")
	clean = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-', r == '.':
			return r
		default:
			return ' '
		}
	}, clean)

	words := strings.Fields(clean)
	for len(words) > 0 && isLegalSuffix(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	joined := strings.Join(words, " ")
	if abbrev, ok := brandAbbreviations[joined]; ok {
		return abbrev
	}
	return joined
}

func isLegalSuffix(word string) bool {
	word = strings.Trim(word, ".")
	for _, s := range legalSuffixes {
		if word == s {
			return true
		}
	}
	return false
}

// nameVariations generates alternate entity names: suffix-stripped forms,
// the part before a parenthetical, the parenthetical content itself, and
// known brand abbreviations. The original name is always first.
func nameVariations(name string) []string {
	variations := []string{name}

	words := strings.Fields(name)
	for len(words) > 0 && isLegalSuffix(strings.ToLower(words[len(words)-1])) {
		words = words[:len(words)-1]
	}
	if stripped := strings.Join(words, " "); stripped != "" {
		variations = append(variations, stripped)
	}

	if idx := strings.Index(name, "("); idx > 0 {
		variations = append(variations, strings.TrimSpace(name[:idx]))
		for _, m := range parensRe.FindAllStringSubmatch(name, -1) {
			variations = append(variations, strings.TrimSpace(m[1]))
		}
	}

	for _, v := range variations {
		if abbrev, ok := brandAbbreviations[strings.ToLower(strings.TrimSpace(v))]; ok {
			variations = append(variations, abbrev)
		}
	}

	return dedupeFold(variations)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
