package readability

import (
	"strings"
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
)

const proseHTML = `<!doctype html><html><body><main>
<p>The quick brown fox jumps over the lazy dog near the riverbank every single morning before the sun rises fully above the distant hills.</p>
<p>Clouds drift slowly across the pale sky while birds sing softly in the old oak trees that line the quiet country road.</p>
<p>Children often wander through the meadow collecting wildflowers and watching butterflies dance between the tall green blades of grass.</p>
</main></body></html>`

func TestAnalyzeShortContentGuard(t *testing.T) {
	doc, err := htmldoc.Parse(`<!doctype html><html><body><p>Too short.</p></body></html>`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	res := Analyze(Input{Doc: doc, RawHTML: "", PageURL: "https://example.test/"})
	if res.LinguisticPrecision.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0 for short content", res.LinguisticPrecision.TotalScore)
	}
	if res.LinguisticPrecision.Cards[0].ID != "insufficient-content" {
		t.Errorf("card id = %q, want 'insufficient-content'", res.LinguisticPrecision.Cards[0].ID)
	}
}

func TestAnalyzeProseComputesFlesch(t *testing.T) {
	doc, err := htmldoc.Parse(proseHTML)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	res := Analyze(Input{Doc: doc, RawHTML: proseHTML, PageURL: "https://example.test/"})

	flesch := res.LinguisticPrecision.Cards[0]
	if flesch.Score <= 0 {
		t.Errorf("flesch score = %d, want > 0", flesch.Score)
	}

	sentence := res.TextComplexity.Cards[0]
	if sentence.Score != 20 {
		t.Errorf("sentence complexity score = %d, want 20 for short sentences", sentence.Score)
	}
}

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":   1,
		"table": 1,
		"happy": 2,
	}
	for word, want := range cases {
		if got := countSyllables(word); got != want {
			t.Errorf("countSyllables(%q) = %d, want %d", word, got, want)
		}
	}
}

func TestTokenizeWords(t *testing.T) {
	words := tokenizeWords("Hello, world! It's a test-case.")
	if len(words) != 5 {
		t.Errorf("len(words) = %d, want 5, got %v", len(words), words)
	}
	if !strings.Contains(strings.Join(words, " "), "test-case") {
		t.Errorf("expected hyphenated word preserved, got %v", words)
	}
}
