package accessibility

import (
	"strings"
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/perfprobe"
)

func parse(t *testing.T, raw string) (*htmldoc.ParsedDocument, *htmldoc.SemanticHTML5Index) {
	t.Helper()
	doc, err := htmldoc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return doc, htmldoc.BuildSemanticIndex(doc)
}

func TestStaticContentShortBody(t *testing.T) {
	doc, _ := parse(t, `<!doctype html><html><body><main><p>Too short.</p></main></body></html>`)
	card := staticContentCard(doc)
	if card.Score != 0 {
		t.Errorf("score = %d, want 0 for short body", card.Score)
	}
	if len(card.Recommendations) != 2 {
		t.Errorf("len(Recommendations) = %d, want 2", len(card.Recommendations))
	}
}

func TestImageAccessibilityFullCoverage(t *testing.T) {
	doc, _ := parse(t, `<!doctype html><html><body><img src="a.jpg" alt="A"><img src="b.jpg" alt="B"></body></html>`)
	card := imageAccessibilityCard(doc)
	if card.Score != 20 {
		t.Errorf("score = %d, want 20", card.Score)
	}
}

func TestImageAccessibilityNoImages(t *testing.T) {
	doc, _ := parse(t, `<!doctype html><html><body><p>No images.</p></body></html>`)
	card := imageAccessibilityCard(doc)
	if card.Score != 20 {
		t.Errorf("score = %d, want 20 for zero images", card.Score)
	}
}

func TestPerformanceCardThresholds(t *testing.T) {
	perf := perfprobe.Result{PerformanceScore: 40, CoreWebVitals: perfprobe.CoreWebVitals{LCP: 3.0, INP: 300, CLS: 0.2}, Fallback: true}
	card := performanceCard(perf)
	if card.Score != 10 {
		t.Errorf("score = %d, want 10 (round(40/100*25))", card.Score)
	}
	if len(card.Recommendations) != 5 {
		t.Errorf("len(Recommendations) = %d, want 5 (perf, lcp, inp, cls, fallback)", len(card.Recommendations))
	}
}

func TestNavigationalAccessibilityNoNav(t *testing.T) {
	doc, idx := parse(t, `<!doctype html><html><body><main><p>Hello</p></main></body></html>`)
	res := Analyze(Input{Doc: doc, Index: idx, Perf: perfprobe.FallbackResult(0)})
	card := res.NavigationalAccessibility.Cards[0]
	if card.Score != 10 {
		t.Errorf("score = %d, want 10 (25-15 no nav)", card.Score)
	}
}

func TestNavigationalAccessibilityWithBreadcrumb(t *testing.T) {
	raw := `<!doctype html><html><body>
<nav aria-label="primary"><a href="/a">A</a></nav>
<div class="breadcrumb"><a href="/">Home</a></div>
</body></html>`
	doc, idx := parse(t, raw)
	res := Analyze(Input{Doc: doc, Index: idx, Perf: perfprobe.FallbackResult(0)})
	card := res.NavigationalAccessibility.Cards[0]
	if card.Score != 25 {
		t.Errorf("score = %d, want 25", card.Score)
	}
	if !strings.Contains(card.SuccessMessage, "well-labeled") {
		t.Errorf("SuccessMessage = %q", card.SuccessMessage)
	}
}
