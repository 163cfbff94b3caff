package transform

import (
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/discoverability"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
)

func TestDiscoverabilityBalances(t *testing.T) {
	in := discoverability.Input{
		CanonicalURL: "https://example.test/",
		Collected: report.CollectedData{
			HTML:      report.FetchResult{Success: true, StatusCode: 200},
			RobotsTxt: report.FetchResult{Success: true, Body: "User-agent: *\nAllow: /\n"},
			Sitemap:   report.FetchResult{Success: false},
			LlmsTxt:   report.FetchResult{Success: false},
		},
		AIBots: []string{"GPTBot", "Google-Extended", "ChatGPT-User", "anthropic-ai", "Claude-Web", "PerplexityBot", "CCBot"},
	}
	res := discoverability.Analyze(in)
	section, penalty := Discoverability(res)

	if section.WeightPercentage != WeightDiscoverability {
		t.Errorf("WeightPercentage = %d, want %d", section.WeightPercentage, WeightDiscoverability)
	}
	if penalty != nil {
		t.Errorf("expected no penalty, got %+v", penalty)
	}
	if section.MaxScore != 100 {
		t.Errorf("MaxScore = %d, want 100", section.MaxScore)
	}
}

func TestMustBalancePanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected mustBalance to panic on a hand-built, unbalanced section")
		}
	}()

	section := report.Section{
		ID:         "bad",
		TotalScore: 999,
		MaxScore:   999,
		Drawers: []report.Drawer{
			{ID: "d1", TotalScore: 5, MaxScore: 10, Cards: []report.MetricCard{{Score: 5, MaxScore: 10}}},
		},
	}
	mustBalance(section)
}
