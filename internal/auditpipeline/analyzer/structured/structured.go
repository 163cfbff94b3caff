// Package structured implements Analyzer — Structured Data (C6): JSON-LD
// schema detection/validation, meta tag quality, and Open Graph coverage.
// Weight 25%, maxScore 170.
package structured

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/xrash/smetrics"
)

// Input is everything the analyzer needs.
type Input struct {
	Doc      *htmldoc.ParsedDocument
	Metadata report.BasicMetadata
}

// Result is C6's raw analyzer output.
type Result struct {
	JSONLD      report.Drawer
	MetaTags    report.Drawer
	SocialMeta  report.Drawer
}

// Analyze runs the Structured Data analyzer.
func Analyze(in Input) Result {
	nodes, malformed := extractJSONLD(in.Doc)
	profile := schemaProfile(nodes)

	og := extractOpenGraph(in.Doc)

	return Result{
		JSONLD:     jsonldDrawer(nodes, profile, malformed),
		MetaTags:   metaTagsDrawer(in.Metadata, og),
		SocialMeta: socialMetaDrawer(og),
	}
}

// node is one JSON-LD object, keyed by its raw JSON fields.
type node map[string]any

func (n node) types() []string {
	switch v := n["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (n node) hasType(want string) bool {
	for _, t := range n.types() {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// stringField returns the field as a plain string: a direct string value,
// or the "name"/"@id" of a nested object (schema.org commonly nests author,
// publisher, location as objects).
func (n node) stringField(key string) (string, bool) {
	v, ok := n[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case map[string]any:
		if name, ok := t["name"].(string); ok && name != "" {
			return name, true
		}
		if id, ok := t["@id"].(string); ok && id != "" {
			return id, true
		}
	case []any:
		return "", len(t) > 0
	}
	return "", false
}

func (n node) hasField(key string) bool {
	v, ok := n[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return v != nil
}

// extractJSONLD pulls every <script type="application/ld+json"> block,
// flattening arrays and @graph containers into a single node list. Blocks
// that fail to parse are counted as malformed but never abort the audit.
func extractJSONLD(doc *htmldoc.ParsedDocument) ([]node, int) {
	if doc == nil {
		return nil, 0
	}
	var nodes []node
	malformed := 0

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var generic any
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			malformed++
			return
		}
		nodes = append(nodes, flatten(generic)...)
	})
	return nodes, malformed
}

func flatten(v any) []node {
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"].([]any); ok {
			var out []node
			for _, g := range graph {
				out = append(out, flatten(g)...)
			}
			return out
		}
		return []node{node(t)}
	case []any:
		var out []node
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	}
	return nil
}

// schemaProfile is the set of @type values observed across all parsed
// blocks, deduplicated and case-normalized.
func schemaProfile(nodes []node) map[string]bool {
	profile := map[string]bool{}
	for _, n := range nodes {
		for _, t := range n.types() {
			profile[strings.ToLower(t)] = true
		}
	}
	return profile
}

// requiredFields is the canonical required-field table from SPEC_FULL.md.
var requiredFields = map[string][]string{
	"article":        {"headline", "author"},
	"blogposting":     {"headline", "author"},
	"newsarticle":     {"headline", "author"},
	"product":        {"name", "description"},
	"localbusiness":  {"name", "address"},
	"service":        {"name", "description"},
	"organization":   {"name"},
	"website":        {"name", "url"},
	"recipe":         {"name", "recipeIngredient", "recipeInstructions"},
	"event":          {"name", "startDate", "location"},
	"faqpage":        {"mainEntity"},
	"breadcrumblist": {"itemListElement"},
	"person":         {"name"},
}

// mainEntityTypes are the candidate primary-entity schema types, in
// priority order.
var mainEntityTypes = []string{"Article", "BlogPosting", "NewsArticle", "Product", "LocalBusiness", "Service"}

// enrichmentWeights sums to 20, the Enrichment Schemas cap.
var enrichmentWeights = map[string]int{
	"faqpage":          5,
	"review":           4,
	"aggregaterating":  4,
	"recipe":           4,
	"event":            2,
	"person":           1,
}

func jsonldDrawer(nodes []node, profile map[string]bool, malformed int) report.Drawer {
	identity := identityCard(nodes, profile, malformed)
	mainEntity := mainEntityCard(nodes)
	enrichment := enrichmentCard(nodes)
	graph := graphConnectivityCard(nodes)
	return report.NewDrawer("json-ld", "JSON-LD", "Schema.org structured data detection and validation.",
		[]report.MetricCard{identity, mainEntity, enrichment, graph})
}

func identityCard(nodes []node, profile map[string]bool, malformed int) report.MetricCard {
	score := 0
	var recs []report.Recommendation

	if profile["organization"] {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{Problem: "No Organization schema found.", Solution: "Add an Organization JSON-LD block identifying the site owner.", Impact: 5})
	}
	if profile["website"] {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{Problem: "No WebSite schema found.", Solution: "Add a WebSite JSON-LD block with name and url.", Impact: 5})
	}

	hasBreadcrumb := profile["breadcrumblist"]
	hasPageType := false
	for _, t := range mainEntityTypes {
		if profile[strings.ToLower(t)] {
			hasPageType = true
			break
		}
	}
	if hasBreadcrumb || hasPageType {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{Problem: "No BreadcrumbList schema and no recognized page-type schema found.", Solution: "Add a BreadcrumbList schema or a page-type schema matching the page's content.", Impact: 4})
	}

	if malformed > 0 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("%d JSON-LD block(s) failed to parse.", malformed), Solution: "Validate JSON-LD blocks against the schema.org vocabulary and fix JSON syntax errors.", Impact: 3})
	}

	return report.NewCard("identity-structure", "Identity & Structure", "Checks for foundational Organization, WebSite, and breadcrumb/page-type schemas.",
		score, 30, recs, successMessageIfEmpty(recs, "Foundational schemas are present."),
		map[string]any{"profile": sortedKeys(profile), "malformed": malformed})
}

func mainEntityCard(nodes []node) report.MetricCard {
	var best node
	var bestType string
	for _, t := range mainEntityTypes {
		for _, n := range nodes {
			if n.hasType(t) {
				best = n
				bestType = t
				break
			}
		}
		if best != nil {
			break
		}
	}

	if best == nil {
		return report.NewCard("main-entity", "Main Entity", "Checks for a primary entity schema (Article, Product, LocalBusiness, etc.) with required fields.",
			0, 50, []report.Recommendation{{
				Problem:  "No main entity schema (Article, Product, LocalBusiness, Service, etc.) was found.",
				Solution: "Add a JSON-LD block describing the page's primary entity.",
				Impact:   8,
			}}, "", map[string]any{"type": ""})
	}

	required := requiredFields[strings.ToLower(bestType)]
	if len(required) == 0 {
		required = requiredFields[strings.ToLower(mainEntityTypes[0])]
	}

	present := 0
	var missing []string
	for _, field := range required {
		if best.hasField(field) {
			present++
		} else {
			missing = append(missing, field)
		}
	}
	score := 50
	var recs []report.Recommendation
	if len(required) > 0 && present < len(required) {
		score = int(round(50 * float64(present) / float64(len(required))))
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("%s schema is missing required field(s): %s.", bestType, strings.Join(missing, ", ")),
			Solution: fmt.Sprintf("Add the missing field(s) to the %s JSON-LD block.", bestType),
			Impact:   6,
		})
	}

	return report.NewCard("main-entity", "Main Entity", "Checks for a primary entity schema (Article, Product, LocalBusiness, etc.) with required fields.",
		score, 50, recs, successMessageIfEmpty(recs, fmt.Sprintf("%s schema present with all required fields.", bestType)),
		map[string]any{"type": bestType, "missing": missing})
}

func enrichmentCard(nodes []node) report.MetricCard {
	found := map[string]bool{}
	for key := range enrichmentWeights {
		for _, n := range nodes {
			if n.hasType(key) {
				found[key] = true
				break
			}
		}
	}

	total := 0
	var names []string
	for key, weight := range enrichmentWeights {
		if found[key] {
			total += weight
			names = append(names, key)
		}
	}
	if total > 20 {
		total = 20
	}
	sort.Strings(names)

	var recs []report.Recommendation
	if total < 20 {
		recs = append(recs, report.Recommendation{
			Problem:  "Few or no enrichment schemas (FAQPage, Review, AggregateRating, Recipe, Event, Person) are present.",
			Solution: "Add enrichment schemas relevant to the page's content to improve LLM understanding.",
			Impact:   3,
		})
	}

	return report.NewCard("enrichment-schemas", "Enrichment Schemas", "Checks for supplementary schemas such as FAQPage, Review, and AggregateRating.",
		total, 20, recs, successMessageIfEmpty(recs, "Enrichment schemas present."),
		map[string]any{"found": names})
}

func graphConnectivityCard(nodes []node) report.MetricCard {
	ids := map[string]bool{}
	for _, n := range nodes {
		if id, ok := n["@id"].(string); ok && id != "" {
			ids[id] = true
		}
	}

	connected := false
	for _, n := range nodes {
		for _, ref := range []string{"sameAs", "author", "publisher"} {
			v, ok := n[ref]
			if !ok {
				continue
			}
			if refsID(v, ids) {
				connected = true
			}
		}
		if connected {
			break
		}
	}

	if connected {
		return report.NewCard("graph-connectivity", "Graph Connectivity", "Checks whether schemas reference each other, forming a connected knowledge graph.",
			10, 10, nil, "Schemas reference each other via @id/sameAs/author/publisher.", map[string]any{"connected": true})
	}
	return report.NewCard("graph-connectivity", "Graph Connectivity", "Checks whether schemas reference each other, forming a connected knowledge graph.",
		0, 10, []report.Recommendation{{
			Problem:  "Schemas do not reference each other; each block is an isolated island.",
			Solution: "Link related schemas with shared @id values and sameAs/author/publisher references.",
			Impact:   2,
		}}, "", map[string]any{"connected": false})
}

func refsID(v any, ids map[string]bool) bool {
	switch t := v.(type) {
	case string:
		return ids[t]
	case map[string]any:
		if id, ok := t["@id"].(string); ok {
			return ids[id]
		}
	case []any:
		for _, item := range t {
			if refsID(item, ids) {
				return true
			}
		}
	}
	return false
}

var alnumToken = regexp.MustCompile(`[a-z]{3,}`)

// jaccardTokens computes the Jaccard index over normalized alphabetic
// tokens of length >= 3, per SPEC_FULL.md's committed heuristic.
func jaccardTokens(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range alnumToken.FindAllString(strings.ToLower(s), -1) {
		out[tok] = true
	}
	return out
}

type openGraph struct {
	title       string
	ogType      string
	url         string
	description string
	image       string
}

func extractOpenGraph(doc *htmldoc.ParsedDocument) openGraph {
	og := openGraph{}
	if doc == nil {
		return og
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		switch strings.ToLower(prop) {
		case "og:title":
			og.title = content
		case "og:type":
			og.ogType = content
		case "og:url":
			og.url = content
		case "og:description":
			og.description = content
		case "og:image":
			og.image = content
		}
	})
	return og
}

func metaTagsDrawer(meta report.BasicMetadata, og openGraph) report.Drawer {
	var recs []report.Recommendation
	score := 0

	// Title length.
	titleLen := len(strings.TrimSpace(meta.Title))
	switch {
	case titleLen >= 50 && titleLen <= 60:
		score += 10
	case titleLen >= 30 && titleLen <= 70:
		score += 6
	default:
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Title is %d characters; outside the 30-70 acceptable range.", titleLen), Solution: "Write a title between 50 and 60 characters.", Impact: 4})
	}

	// Description length.
	descLen := len(strings.TrimSpace(meta.MetaDescription))
	switch {
	case descLen >= 140 && descLen <= 160:
		score += 10
	case descLen >= 120 && descLen <= 170:
		score += 6
	default:
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Meta description is %d characters; outside the 120-170 acceptable range.", descLen), Solution: "Write a meta description between 140 and 160 characters.", Impact: 4})
	}

	// Consistency.
	titleSim := jaccardTokens(meta.Title, og.title)
	descSim := jaccardTokens(meta.MetaDescription, og.description)
	if titleSim >= 0.5 && descSim >= 0.5 {
		score += 5
	} else {
		recs = append(recs, report.Recommendation{Problem: "Title/description and their Open Graph equivalents diverge significantly.", Solution: "Keep og:title/og:description consistent with <title>/<meta name=description>.", Impact: 2})
	}

	// Technical.
	technical := 0
	if meta.Viewport != "" {
		technical += 4
	}
	if meta.Charset != "" {
		technical += 3
	}
	if meta.MetaRobots != "" {
		technical += 3
	}
	score += technical
	if technical < 10 {
		recs = append(recs, report.Recommendation{Problem: "Missing one or more of viewport/charset/robots meta tags.", Solution: "Declare <meta charset>, a responsive viewport, and a meta robots directive.", Impact: 2})
	}

	titleJaroWinkler := smetrics.JaroWinkler(strings.ToLower(meta.Title), strings.ToLower(og.title), 0.7, 4)
	descJaroWinkler := smetrics.JaroWinkler(strings.ToLower(meta.MetaDescription), strings.ToLower(og.description), 0.7, 4)

	card := report.NewCard("meta-tags", "Meta Tags", "Checks title/description length, consistency with Open Graph, and technical meta tags.",
		score, 35, recs, successMessageIfEmpty(recs, "Title, description, and technical meta tags meet the optimal ranges."),
		map[string]any{
			"titleLength":        titleLen,
			"descriptionLength":  descLen,
			"titleJaccard":       titleSim,
			"descriptionJaccard": descSim,
			"titleJaroWinkler":   titleJaroWinkler,
			"descJaroWinkler":    descJaroWinkler,
		})

	return report.NewDrawer("meta-tags", "Meta Tags", "Title, description, and technical meta tag quality.", []report.MetricCard{card})
}

func socialMetaDrawer(og openGraph) report.Drawer {
	present := 0
	total := 4
	for _, v := range []string{og.title, og.ogType, og.url, og.description} {
		if strings.TrimSpace(v) != "" {
			present++
		}
	}
	basicScore := int(round(15 * float64(present) / float64(total)))

	imageScore := 0
	var recs []report.Recommendation
	if og.image != "" {
		if u, err := url.Parse(og.image); err == nil && u.IsAbs() {
			imageScore = 10
		} else {
			recs = append(recs, report.Recommendation{Problem: "og:image is present but not an absolute URL.", Solution: "Use a fully-qualified absolute URL for og:image.", Impact: 2})
		}
	} else {
		recs = append(recs, report.Recommendation{Problem: "No og:image tag found.", Solution: "Add an og:image tag pointing at a representative social preview image.", Impact: 3})
	}
	if present < total {
		recs = append(recs, report.Recommendation{Problem: "One or more basic Open Graph tags (og:title, og:type, og:url, og:description) are missing.", Solution: "Add the missing Open Graph tags.", Impact: 3})
	}

	card := report.NewCard("social-meta", "Social Meta / Open Graph", "Checks basic Open Graph tags and og:image.",
		basicScore+imageScore, 25, recs, successMessageIfEmpty(recs, "All basic Open Graph tags and og:image are present."),
		map[string]any{"present": present, "total": total, "hasImage": og.image != ""})

	return report.NewDrawer("social-meta", "Social Meta / Open Graph", "Open Graph tag coverage for social sharing.", []report.MetricCard{card})
}

func successMessageIfEmpty(recs []report.Recommendation, msg string) string {
	if len(recs) == 0 {
		return msg
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func round(f float64) float64 {
	if f < 0 {
		return f - 0.5
	}
	return f + 0.5
}
