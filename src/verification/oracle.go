package verification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tradesafe/tradeverify/src/ai/core"
	"github.com/tradesafe/tradeverify/src/collector"
	"github.com/tradesafe/tradeverify/src/types"
)

// maxOracleInput caps the evidence summary sent to the model.
const maxOracleInput = 4000

// DefaultSystemPrompt frames the oracle as a compliance analyst. Override
// via the ai_system_prompt setting.
const DefaultSystemPrompt = "You are a trade compliance analyst. Given the collected " +
	"evidence about a business entity, write a short narrative risk assessment " +
	"covering the entity's apparent business activity, any compliance concerns, " +
	"and the reliability of the evidence. Be factual and grounded only in the " +
	"provided material."

// Oracle wraps the narrative model behind its own timeout. A nil Oracle or
// a nil client degrades every call to "no narrative".
type Oracle struct {
	client  core.Client
	timeout time.Duration
}

func NewOracle(client core.Client, timeout time.Duration) *Oracle {
	return &Oracle{client: client, timeout: timeout}
}

// Narrative generates the free-text assessment for a collected bundle.
// Failure and timeout both return nil; the caller treats them as "no
// narrative", never as a pipeline failure.
func (o *Oracle) Narrative(ctx context.Context, req Request, bundle *collector.Bundle) *string {
	if o == nil || o.client == nil {
		return nil
	}

	octx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.client.GenerateNarrative(octx, evidenceSummary(req, bundle), core.Options{})
	if err != nil {
		log.Printf("verification: oracle: %v", err)
		return nil
	}
	return &text
}

// evidenceSummary renders the bundle as prompt text, bounded to the oracle
// input cap.
func evidenceSummary(req Request, bundle *collector.Bundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Entity: %s\nCountry: %s\nTrade role: %s\n", req.Client, req.Country, req.Role)
	if req.ProductName != "" {
		fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	}

	if bundle.Website.URL != "" {
		fmt.Fprintf(&b, "\nWebsite: %s\n", bundle.Website.URL)
		if p := bundle.Website.Page; p != nil {
			if p.Title != "" {
				fmt.Fprintf(&b, "Title: %s\n", p.Title)
			}
			if p.Text != "" {
				fmt.Fprintf(&b, "Content: %s\n", p.Text)
			}
		}
	} else {
		b.WriteString("\nWebsite: none found\n")
	}

	fmt.Fprintf(&b, "\nRegistry (%s): %s\n", bundle.Registry.Source, bundle.Registry.Status)
	for _, c := range bundle.Registry.Companies {
		fmt.Fprintf(&b, "  %s (CIK %s, ticker %s)\n", c.Name, c.CIK, c.Ticker)
	}

	b.WriteString("\nSanctions screening:\n")
	for _, list := range bundle.Sanctions.Lists {
		fmt.Fprintf(&b, "  %s: %s\n", list.List, list.Status)
		for _, d := range list.Details {
			fmt.Fprintf(&b, "    matched %q", d.Name)
			if len(d.Programs) > 0 {
				fmt.Fprintf(&b, " programs %s", strings.Join(d.Programs, ", "))
			}
			b.WriteString("\n")
		}
	}
	if !bundle.Sanctions.Matched {
		hasUsable := false
		for _, list := range bundle.Sanctions.Lists {
			if list.Status != types.SanctionsError {
				hasUsable = true
			}
		}
		if !hasUsable {
			b.WriteString("  no usable sanctions data\n")
		}
	}

	fmt.Fprintf(&b, "\nSources used: %s\n", strings.Join(bundle.SourcesUsed, ", "))

	summary := b.String()
	if len(summary) > maxOracleInput {
		cut := maxOracleInput
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}
	return summary
}
