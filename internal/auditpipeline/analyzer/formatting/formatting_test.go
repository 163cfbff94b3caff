package formatting

import (
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
)

func parse(t *testing.T, raw string) (*htmldoc.ParsedDocument, *htmldoc.SemanticHTML5Index) {
	t.Helper()
	doc, err := htmldoc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return doc, htmldoc.BuildSemanticIndex(doc)
}

const wellFormedHTML = `<!doctype html><html><body>
<main>
<h1>Title</h1>
<h2>Sub</h2>
<ul><li>One</li><li>Two</li></ul>
<a href="/about">About our company</a>
</main>
</body></html>`

func TestContentHierarchyWellFormed(t *testing.T) {
	doc, idx := parse(t, wellFormedHTML)
	res := Analyze(Input{Doc: doc, Index: idx})

	heading := res.ContentHierarchy.Cards[0]
	if heading.Score != 35 {
		t.Errorf("heading score = %d, want 35", heading.Score)
	}
}

func TestHeadingStructureMultipleH1(t *testing.T) {
	_, idx := parse(t, `<!doctype html><html><body><h1>A</h1><h1>B</h1></body></html>`)
	card := headingStructureCard(idx)
	if card.Score != 20 {
		t.Errorf("score = %d, want 20 (sequential full, uniqueness 0)", card.Score)
	}
	if len(card.Recommendations) == 0 {
		t.Error("expected a recommendation for multiple H1s")
	}
}

func TestHeadingSkipLevel(t *testing.T) {
	_, idx := parse(t, `<!doctype html><html><body><h1>A</h1><h3>B</h3></body></html>`)
	card := headingStructureCard(idx)
	if card.Score != 30 {
		t.Errorf("score = %d, want 30 (15 uniqueness + 15 sequential after one skip)", card.Score)
	}
}

func TestSimulatedListDetection(t *testing.T) {
	raw := `<!doctype html><html><body><div>
- First item is long enough
- Second item is long enough
- Third item is long enough
</div></body></html>`
	doc, err := htmldoc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	found := detectSimulatedStructures(doc)
	if len(found) != 1 {
		t.Fatalf("found %d simulated structures, want 1", len(found))
	}
	if found[0].kind != "list" {
		t.Errorf("kind = %q, want 'list'", found[0].kind)
	}
}

func TestMainContentNestedPenalized(t *testing.T) {
	doc, idx := parse(t, `<!doctype html><html><body><article><main><h1>A</h1></main></article></body></html>`)
	card := mainContentCard(Input{Doc: doc, Index: idx})
	if card.Score != 10 {
		t.Errorf("score = %d, want 10 (uniqueness only, nested penalized)", card.Score)
	}
}

func TestMainContentMissingScoresZero(t *testing.T) {
	doc, idx := parse(t, `<!doctype html><html><body><article><h1>A</h1></article></body></html>`)
	card := mainContentCard(Input{Doc: doc, Index: idx})
	if card.Score != 0 {
		t.Errorf("score = %d, want 0 (no <main> at all)", card.Score)
	}
}

func TestMainContentDuplicateFirstNestedPenalized(t *testing.T) {
	doc, idx := parse(t, `<!doctype html><html><body>
<article><main><h1>A</h1></main></article>
<main><h2>B</h2></main>
</body></html>`)
	card := mainContentCard(Input{Doc: doc, Index: idx})
	if card.Score != 0 {
		t.Errorf("score = %d, want 0 (duplicate <main> penalized, first <main> also nested)", card.Score)
	}
}

func TestCTAClarityBlacklisted(t *testing.T) {
	doc, idx := parse(t, `<!doctype html><html><body>
<a href="/a">Click here</a>
<a href="/b">Download the 2026 annual report</a>
</body></html>`)
	res := Analyze(Input{Doc: doc, Index: idx})
	card := res.CTAClarity.Cards[0]
	if card.Score != 10 {
		t.Errorf("score = %d, want 10 (1 of 2 clear)", card.Score)
	}
}
