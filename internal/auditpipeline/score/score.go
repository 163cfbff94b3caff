// Package score implements the Score Aggregator (C11): it combines the five
// section scores into the final AEOScore using fixed weights (rescaled when
// a section is missing) and multiplies in any global penalties. Arithmetic
// uses shopspring/decimal so the weighted sum is deterministic and free of
// floating-point drift across repeated runs of the same report.
package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/shopspring/decimal"
)

// fixedWeights is the canonical section weight table, summing to 100.
var fixedWeights = map[string]int{
	report.SectionDiscoverability: 20,
	report.SectionStructuredData:  25,
	report.SectionLLMFormatting:   25,
	report.SectionAccessibility:   15,
	report.SectionReadability:     15,
}

// Input is the aggregator's input: whichever sections completed (a missing
// key means that analyzer failed or was cancelled) plus any global
// penalties emitted along the way.
type Input struct {
	Sections  map[string]report.Section
	Penalties []report.GlobalPenalty
}

// Aggregate computes the final AEOScore per SPEC_FULL.md §4.11.
func Aggregate(in Input) report.AEOScore {
	presentWeight := 0
	for id := range in.Sections {
		presentWeight += fixedWeights[id]
	}

	breakdown := map[string]report.SectionContribution{}
	baseSum := decimal.Zero

	if presentWeight > 0 {
		rescale := decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(presentWeight)))

		for _, id := range report.SectionOrder {
			section, ok := in.Sections[id]
			if !ok {
				continue
			}
			weight := decimal.NewFromInt(int64(fixedWeights[id])).Mul(rescale)

			normalized := decimal.Zero
			if section.MaxScore > 0 {
				normalized = decimal.NewFromInt(int64(section.TotalScore)).Div(decimal.NewFromInt(int64(section.MaxScore)))
			}

			contribution := normalized.Mul(weight)
			baseSum = baseSum.Add(contribution)

			breakdown[id] = report.SectionContribution{
				Score:        section.TotalScore,
				Weight:       int(roundDecimal(weight)),
				Contribution: int(roundDecimal(contribution)),
			}
		}
	}

	base := roundDecimal(baseSum)

	penaltyFactor := decimal.NewFromInt(1)
	for _, p := range in.Penalties {
		penaltyFactor = penaltyFactor.Mul(decimal.NewFromFloat(1 - p.PenaltyFactor))
	}

	final := decimal.NewFromInt(base).Mul(penaltyFactor)
	finalScore := int(roundDecimal(final))
	if finalScore < 0 {
		finalScore = 0
	}
	if finalScore > 100 {
		finalScore = 100
	}

	return report.AEOScore{
		TotalScore:   finalScore,
		MaxScore:     100,
		Breakdown:    breakdown,
		Completeness: completeness(in.Sections),
	}
}

func completeness(sections map[string]report.Section) string {
	present := len(sections)
	total := len(report.SectionOrder)
	if present == total {
		return fmt.Sprintf("%d/%d sections", present, total)
	}

	var missing []string
	for _, id := range report.SectionOrder {
		if _, ok := sections[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return fmt.Sprintf("%d/%d sections (missing: %s)", present, total, strings.Join(missing, ", "))
}

// roundDecimal rounds to the nearest integer, half away from zero, matching
// the spec's "round()" usage throughout §4.11.
func roundDecimal(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
