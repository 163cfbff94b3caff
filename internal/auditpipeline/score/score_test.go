package score

import (
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
)

func fullSection(id string, total, max int) report.Section {
	return report.Section{ID: id, TotalScore: total, MaxScore: max}
}

func TestAggregateAllSectionsPerfect(t *testing.T) {
	in := Input{
		Sections: map[string]report.Section{
			report.SectionDiscoverability: fullSection(report.SectionDiscoverability, 100, 100),
			report.SectionStructuredData:  fullSection(report.SectionStructuredData, 170, 170),
			report.SectionLLMFormatting:   fullSection(report.SectionLLMFormatting, 100, 100),
			report.SectionAccessibility:   fullSection(report.SectionAccessibility, 100, 100),
			report.SectionReadability:     fullSection(report.SectionReadability, 100, 100),
		},
	}
	out := Aggregate(in)
	if out.TotalScore != 100 {
		t.Errorf("TotalScore = %d, want 100", out.TotalScore)
	}
	if out.Completeness != "5/5 sections" {
		t.Errorf("Completeness = %q", out.Completeness)
	}
}

func TestAggregateMissingSectionRescales(t *testing.T) {
	in := Input{
		Sections: map[string]report.Section{
			report.SectionDiscoverability: fullSection(report.SectionDiscoverability, 100, 100),
			report.SectionStructuredData:  fullSection(report.SectionStructuredData, 170, 170),
			report.SectionLLMFormatting:   fullSection(report.SectionLLMFormatting, 100, 100),
			report.SectionReadability:     fullSection(report.SectionReadability, 100, 100),
		},
	}
	out := Aggregate(in)
	if out.TotalScore != 100 {
		t.Errorf("TotalScore = %d, want 100 (perfect scores rescale to 100 regardless of missing section)", out.TotalScore)
	}
	if out.Completeness != "4/5 sections (missing: accessibility)" {
		t.Errorf("Completeness = %q", out.Completeness)
	}
}

func TestAggregateAppliesGlobalPenalty(t *testing.T) {
	in := Input{
		Sections: map[string]report.Section{
			report.SectionDiscoverability: fullSection(report.SectionDiscoverability, 100, 100),
			report.SectionStructuredData:  fullSection(report.SectionStructuredData, 170, 170),
			report.SectionLLMFormatting:   fullSection(report.SectionLLMFormatting, 100, 100),
			report.SectionAccessibility:   fullSection(report.SectionAccessibility, 100, 100),
			report.SectionReadability:     fullSection(report.SectionReadability, 100, 100),
		},
		Penalties: []report.GlobalPenalty{{Type: "robots_txt_blocking", PenaltyFactor: 0.7}},
	}
	out := Aggregate(in)
	if out.TotalScore != 30 {
		t.Errorf("TotalScore = %d, want 30 (100 * (1-0.7))", out.TotalScore)
	}
}

func TestAggregateClampsToZero(t *testing.T) {
	in := Input{
		Sections: map[string]report.Section{
			report.SectionDiscoverability: fullSection(report.SectionDiscoverability, 0, 100),
		},
	}
	out := Aggregate(in)
	if out.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0", out.TotalScore)
	}
}
