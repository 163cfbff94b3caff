package structured

import (
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
)

const richHTML = `<!doctype html><html><head>
<title>Example Title That Is Fifty Two Chars Long Ok</title>
<meta name="description" content="An example description that is at least one hundred and forty characters long to exceed the optimal lower bound for description length checks here.">
<meta charset="utf-8">
<meta name="viewport" content="width=device-width">
<meta name="robots" content="index,follow">
<meta property="og:title" content="Example Title That Is Fifty Two Chars Long Ok">
<meta property="og:type" content="article">
<meta property="og:url" content="https://example.test/">
<meta property="og:description" content="An example description that is at least one hundred and forty characters long to exceed the optimal lower bound for description length checks here.">
<meta property="og:image" content="https://example.test/image.png">
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Organization","@id":"https://example.test/#org","name":"Example Co"}
</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Article","headline":"A Headline","author":{"@id":"https://example.test/#org"}}
</script>
</head><body><main><h1>Main</h1></main></body></html>`

func mustParse(t *testing.T, raw string) *htmldoc.ParsedDocument {
	t.Helper()
	doc, err := htmldoc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return doc
}

func TestAnalyzeRichPage(t *testing.T) {
	doc := mustParse(t, richHTML)
	meta := htmldoc.ExtractBasicMetadata(doc)
	res := Analyze(Input{Doc: doc, Metadata: meta})

	identity := res.JSONLD.Cards[0]
	if identity.Score < 10 {
		t.Errorf("identity score = %d, want >= 10 (Organization present)", identity.Score)
	}

	mainEntity := res.JSONLD.Cards[1]
	if mainEntity.Score != 50 {
		t.Errorf("mainEntity score = %d, want 50 (Article with headline+author)", mainEntity.Score)
	}

	graph := res.JSONLD.Cards[3]
	if graph.Score != 10 {
		t.Errorf("graph connectivity score = %d, want 10 (author references org @id)", graph.Score)
	}

	social := res.SocialMeta.Cards[0]
	if social.Score != 25 {
		t.Errorf("social meta score = %d, want 25", social.Score)
	}
}

func TestAnalyzeNoStructuredData(t *testing.T) {
	doc := mustParse(t, `<!doctype html><html><head><title>T</title></head><body></body></html>`)
	meta := htmldoc.ExtractBasicMetadata(doc)
	res := Analyze(Input{Doc: doc, Metadata: meta})

	if res.JSONLD.TotalScore != 0 {
		t.Errorf("JSONLD.TotalScore = %d, want 0 for empty page", res.JSONLD.TotalScore)
	}
	mainEntity := res.JSONLD.Cards[1]
	if len(mainEntity.Recommendations) == 0 {
		t.Error("expected a recommendation when no main entity schema found")
	}
}

func TestMalformedJSONLDCounted(t *testing.T) {
	raw := `<!doctype html><html><head><title>T</title>
<script type="application/ld+json">{not valid json</script>
</head><body></body></html>`
	doc := mustParse(t, raw)
	meta := htmldoc.ExtractBasicMetadata(doc)
	res := Analyze(Input{Doc: doc, Metadata: meta})

	identity := res.JSONLD.Cards[0]
	malformed, _ := identity.RawData.(map[string]any)["malformed"].(int)
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
}

func TestJaccardTokens(t *testing.T) {
	sim := jaccardTokens("Example Title About Dogs", "Example Title About Cats")
	if sim <= 0 || sim >= 1 {
		t.Errorf("jaccardTokens = %v, want in (0,1)", sim)
	}
	if jaccardTokens("", "") != 1 {
		t.Error("jaccardTokens('','') should be 1 (both empty)")
	}
}
