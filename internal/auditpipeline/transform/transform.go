// Package transform implements the Transformer (C10): it assembles each
// analyzer's drawers into a uniform report.Section, and validates the
// invariant that a section's and drawers' totals are always the sum of
// their children — the aggregator (C11) trusts this without recomputing.
package transform

import (
	"fmt"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/accessibility"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/discoverability"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/formatting"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/readability"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/structured"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
)

// Section weights, fixed per SPEC_FULL.md §4.11.
const (
	WeightDiscoverability = 20
	WeightStructuredData  = 25
	WeightLLMFormatting   = 25
	WeightAccessibility   = 15
	WeightReadability     = 15
)

// Discoverability maps the C5 analyzer result into a Section, plus any
// global penalty it emitted.
func Discoverability(res discoverability.Result) (report.Section, *report.GlobalPenalty) {
	section := report.NewSection(report.SectionDiscoverability, "Discoverability", WeightDiscoverability,
		[]report.Drawer{res.TechnicalFoundation, res.AIAccess, res.LLMInstructions})
	mustBalance(section)
	return section, res.Penalty
}

// StructuredData maps the C6 analyzer result into a Section.
func StructuredData(res structured.Result) report.Section {
	section := report.NewSection(report.SectionStructuredData, "Structured Data", WeightStructuredData,
		[]report.Drawer{res.JSONLD, res.MetaTags, res.SocialMeta})
	mustBalance(section)
	return section
}

// LLMFormatting maps the C7 analyzer result into a Section.
func LLMFormatting(res formatting.Result) report.Section {
	section := report.NewSection(report.SectionLLMFormatting, "LLM Formatting", WeightLLMFormatting,
		[]report.Drawer{res.ContentHierarchy, res.LayoutRoles, res.CTAClarity})
	mustBalance(section)
	return section
}

// Accessibility maps the C8 analyzer result into a Section.
func Accessibility(res accessibility.Result) report.Section {
	section := report.NewSection(report.SectionAccessibility, "Accessibility", WeightAccessibility,
		[]report.Drawer{res.ContentAccessibility, res.TechnicalAccessibility, res.NavigationalAccessibility})
	mustBalance(section)
	return section
}

// Readability maps the C9 analyzer result into a Section. The short-content
// guard produces only LinguisticPrecision (a single explanatory card), so
// the other two drawers are included only when non-empty.
func Readability(res readability.Result) report.Section {
	var drawers []report.Drawer
	drawers = append(drawers, res.LinguisticPrecision)
	if len(res.TextComplexity.Cards) > 0 {
		drawers = append(drawers, res.TextComplexity)
	}
	if len(res.ContentOrganization.Cards) > 0 {
		drawers = append(drawers, res.ContentOrganization)
	}
	section := report.NewSection(report.SectionReadability, "Readability", WeightReadability, drawers)
	mustBalance(section)
	return section
}

// mustBalance enforces the transformer contract: Σcards == drawer.total and
// Σdrawers == section.total. NewCard/NewDrawer/NewSection already compute
// sums this way, so a mismatch here means a caller built a Drawer or
// Section by hand instead of through those constructors — a programmer
// error, not a runtime condition to recover from.
func mustBalance(section report.Section) {
	total, max := 0, 0
	for _, d := range section.Drawers {
		cardTotal, cardMax := 0, 0
		for _, c := range d.Cards {
			cardTotal += c.Score
			cardMax += c.MaxScore
		}
		if cardTotal != d.TotalScore || cardMax != d.MaxScore {
			panic(fmt.Sprintf("transform: drawer %q totals (%d/%d) do not match its cards (%d/%d)", d.ID, d.TotalScore, d.MaxScore, cardTotal, cardMax))
		}
		total += d.TotalScore
		max += d.MaxScore
	}
	if total != section.TotalScore || max != section.MaxScore {
		panic(fmt.Sprintf("transform: section %q totals (%d/%d) do not match its drawers (%d/%d)", section.ID, section.TotalScore, section.MaxScore, total, max))
	}
}
