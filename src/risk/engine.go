// Package risk turns a collected evidence bundle and the oracle's narrative
// into a deterministic, explainable risk assessment.
package risk

import (
	"fmt"
	"strings"

	"github.com/tradesafe/tradeverify/src/collector"
	"github.com/tradesafe/tradeverify/src/types"
)

const (
	baseScore       = 0.3
	sanctionsWeight = 0.5

	highKeywordWeight = 0.1
	highKeywordCap    = 0.4

	mediumKeywordWeight = 0.05
	mediumKeywordCap    = 0.2

	flagWeight = 0.1
	flagCap    = 0.3

	highThreshold   = 0.7
	mediumThreshold = 0.4

	// minEvidenceLength is the website-text length below which the
	// data_quality flag fires.
	minEvidenceLength = 100
)

// Risk level bands derived from the score. The band itself is never
// stored on the record.
const (
	levelHigh   = "High"
	levelMedium = "Medium"
	levelLow    = "Low"
)

var highRiskKeywords = []string{
	"sanctions", "prohibited", "illegal", "violation",
	"suspicious", "fraud", "money laundering",
}

var mediumRiskKeywords = []string{
	"concern", "issue", "risk", "warning", "uncertainty", "unverified",
}

// activityTable maps keyword sets to activity levels. Entries are checked
// in order and the first set with a hit wins.
var activityTable = []struct {
	level    string
	keywords []string
}{
	{types.ActivityActive, []string{"active", "operational", "operating", "current"}},
	{types.ActivityDormant, []string{"dormant", "inactive", "no activity"}},
	{types.ActivitySuspended, []string{"suspended", "suspension"}},
	{types.ActivityInactive, []string{"discontinued", "closed", "shut down"}},
}

// Assessment is the engine's verdict. Derived once, never mutated.
type Assessment struct {
	Narrative     *string      `json:"narrative"`
	ActivityLevel string       `json:"activityLevel"`
	RiskScore     float64      `json:"riskScore"`
	Flags         []types.Flag `json:"flags"`
	Confidence    string       `json:"confidence"`
	IsRedFlag     bool         `json:"isRedFlag"`
}

// Assess is a pure function of the frozen bundle and the oracle output.
// A nil narrative (oracle failed or timed out) degrades only the
// narrative field; everything else is computed from evidence alone.
//
// Flag evaluation is two-pass: the score-independent flags are computed
// first and their count folded into the score, then high_risk is derived
// from the finished score. Reordering this changes observable output.
func Assess(bundle *collector.Bundle, narrative *string) Assessment {
	evidence := evidenceText(bundle)

	sanctioned := bundle.Sanctions.Matched
	var pre []types.Flag

	if sanctioned {
		pre = append(pre, types.Flag{
			Category: types.FlagSanctionsMatch,
			Severity: types.SeverityHigh,
			Message: "Entity matched sanctions list(s): " +
				strings.Join(bundle.Sanctions.MatchedLists(), ", "),
		})
	}

	if !sanctioned &&
		bundle.Registry.Status == types.RegistryNotFound &&
		bundle.Registry.Error == "" {
		pre = append(pre, types.Flag{
			Category: types.FlagComplianceIssue,
			Severity: types.SeverityMedium,
			Message:  "No registry record found in " + bundle.Registry.Source,
		})
	}

	textLen := websiteTextLen(bundle)
	switch {
	case textLen == 0:
		pre = append(pre, types.Flag{
			Category: types.FlagDataQuality,
			Severity: types.SeverityMedium,
			Message:  "No website content collected",
		})
	case textLen < minEvidenceLength:
		pre = append(pre, types.Flag{
			Category: types.FlagDataQuality,
			Severity: types.SeverityLow,
			Message:  "Website content below minimum evidence length",
		})
	}

	if len(bundle.SourcesUsed) < 2 {
		pre = append(pre, types.Flag{
			Category: types.FlagSourceReliability,
			Severity: types.SeverityLow,
			Message:  "Fewer than two sources returned usable data",
		})
	}

	score := baseScore
	if sanctioned {
		score += sanctionsWeight
	}
	score += capped(float64(countKeywords(evidence, highRiskKeywords))*highKeywordWeight, highKeywordCap)
	score += capped(float64(countKeywords(evidence, mediumRiskKeywords))*mediumKeywordWeight, mediumKeywordCap)
	score += capped(float64(len(pre))*flagWeight, flagCap)
	score = clamp(score)

	level := riskLevel(score)

	flags := make([]types.Flag, 0, len(pre)+1)
	for _, f := range pre {
		if f.Category == types.FlagSanctionsMatch {
			flags = append(flags, f)
		}
	}
	if level == levelHigh {
		flags = append(flags, types.Flag{
			Category: types.FlagHighRisk,
			Severity: types.SeverityHigh,
			Message:  fmt.Sprintf("Overall risk score %.2f is in the high range", score),
		})
	}
	for _, f := range pre {
		if f.Category != types.FlagSanctionsMatch {
			flags = append(flags, f)
		}
	}

	highFlags := 0
	for _, f := range flags {
		if f.Severity == types.SeverityHigh {
			highFlags++
		}
	}

	redFlag := level == levelHigh || highFlags >= 2 || sanctioned

	confidence := types.ConfidenceLow
	switch {
	case sanctioned || highFlags > 0:
		confidence = types.ConfidenceHigh
	case len(bundle.SourcesUsed) >= 2 && textLen >= minEvidenceLength:
		confidence = types.ConfidenceMedium
	}

	return Assessment{
		Narrative:     narrative,
		ActivityLevel: classifyActivity(evidence, narrative),
		RiskScore:     score,
		Flags:         flags,
		Confidence:    confidence,
		IsRedFlag:     redFlag,
	}
}

// classifyActivity scans evidence text against the keyword table. The
// narrative may override only when the evidence yields no signal.
func classifyActivity(evidence string, narrative *string) string {
	if level := activityFromText(evidence); level != "" {
		return level
	}
	if narrative != nil {
		if level := activityFromText(strings.ToLower(*narrative)); level != "" {
			return level
		}
	}
	return types.ActivityUnknown
}

func activityFromText(text string) string {
	for _, entry := range activityTable {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.level
			}
		}
	}
	return ""
}

// evidenceText assembles the lower-cased text the keyword tables run over:
// website content plus a registry status description.
func evidenceText(bundle *collector.Bundle) string {
	var parts []string
	if p := bundle.Website.Page; p != nil {
		parts = append(parts, p.Title, p.Description, p.Text)
	}
	switch bundle.Registry.Status {
	case types.RegistryFound:
		for _, c := range bundle.Registry.Companies {
			parts = append(parts, c.Name)
		}
		parts = append(parts, "registered in "+bundle.Registry.Source)
	case types.RegistryNotFound:
		if bundle.Registry.Error == "" {
			parts = append(parts, "no registry record found")
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func websiteTextLen(bundle *collector.Bundle) int {
	if p := bundle.Website.Page; p != nil {
		return len(strings.TrimSpace(p.Text))
	}
	return 0
}

// riskLevel maps a score to the High/Medium/Low band. The band is derived
// where needed, never stored.
func riskLevel(score float64) string {
	switch {
	case score >= highThreshold:
		return levelHigh
	case score >= mediumThreshold:
		return levelMedium
	default:
		return levelLow
	}
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
