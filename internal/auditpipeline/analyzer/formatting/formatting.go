// Package formatting implements Analyzer — LLM Formatting (C7): heading
// structure, data grouping (including simulated list/table detection),
// layout/landmark roles, and CTA clarity. Weight 25%, maxScore 100.
package formatting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
)

// Input is everything the analyzer needs.
type Input struct {
	Doc   *htmldoc.ParsedDocument
	Index *htmldoc.SemanticHTML5Index
}

// Result is C7's raw analyzer output.
type Result struct {
	ContentHierarchy report.Drawer
	LayoutRoles      report.Drawer
	CTAClarity       report.Drawer
}

// Analyze runs the LLM Formatting analyzer.
func Analyze(in Input) Result {
	return Result{
		ContentHierarchy: contentHierarchyDrawer(in),
		LayoutRoles:      layoutRolesDrawer(in),
		CTAClarity:       ctaClarityDrawer(in),
	}
}

func contentHierarchyDrawer(in Input) report.Drawer {
	heading := headingStructureCard(in.Index)
	grouping := dataGroupingCard(in.Doc)
	return report.NewDrawer("content-hierarchy", "Content Hierarchy", "Heading structure and data grouping.",
		[]report.MetricCard{heading, grouping})
}

func headingStructureCard(idx *htmldoc.SemanticHTML5Index) report.MetricCard {
	score := 0
	var recs []report.Recommendation

	h1Count := 0
	for _, h := range idx.Headings {
		if h.Level == 1 {
			h1Count++
		}
	}
	switch h1Count {
	case 1:
		score += 15
	case 0:
		recs = append(recs, report.Recommendation{Problem: "No H1 heading found.", Solution: "Add exactly one H1 heading summarizing the page.", Impact: 5})
	default:
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("%d H1 headings found; exactly one is expected.", h1Count), Solution: "Use only one H1 per page; demote the rest to H2 or lower.", Impact: 5})
	}

	sequential := 20
	var offenders []string
	prev := 0
	for _, h := range idx.Headings {
		if prev != 0 && h.Level > prev+1 {
			sequential -= 5
			offenders = append(offenders, fmt.Sprintf("H%d '%s' follows H%d", h.Level, h.Text, prev))
		}
		prev = h.Level
	}
	if sequential < 0 {
		sequential = 0
	}
	if len(offenders) > 0 {
		recs = append(recs, report.Recommendation{
			Problem:  "Heading levels skip more than one step: " + strings.Join(offenders, "; ") + ".",
			Solution: "Do not skip heading levels; increase by at most one level at a time.",
			Impact:   3,
		})
	}
	score += sequential

	return report.NewCard("heading-structure", "Heading Structure", "Checks H1 uniqueness and sequential heading levels.",
		score, 35, recs, successMessageIfEmpty(recs, "Headings are unique and sequential."),
		map[string]any{"h1Count": h1Count, "headingCount": len(idx.Headings)})
}

var bulletPattern = regexp.MustCompile(`^\s*[•\-*+]\s+\w{2,}`)
var numberedPattern = regexp.MustCompile(`^\s*\d+[.)]\s+\w{2,}`)
var pipeTablePattern = regexp.MustCompile(`\|.*\|.*\|`)

func dataGroupingCard(doc *htmldoc.ParsedDocument) report.MetricCard {
	semanticCount := 0
	if doc != nil {
		semanticCount = doc.Find("ul").Length() + doc.Find("ol").Length() + doc.Find("table").Length()
	}

	simulated := detectSimulatedStructures(doc)

	score := 15 - 3*len(simulated)
	if score < 0 {
		score = 0
	}

	var recs []report.Recommendation
	for _, s := range simulated {
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("Text simulates a %s using plain characters instead of semantic markup: %q", s.kind, s.sample),
			Solution: fmt.Sprintf("Replace the simulated %s with a real <ul>/<ol>/<table> element.", s.kind),
			Impact:   int(round(s.confidence * 6)),
		})
	}

	return report.NewCard("data-grouping", "Data Grouping", "Counts semantic list/table markup and detects text that simulates lists or tables.",
		score, 15, recs, successMessageIfEmpty(recs, "Lists and tables use semantic markup."),
		map[string]any{"semanticCount": semanticCount, "simulatedCount": len(simulated)})
}

type simulatedStructure struct {
	kind       string
	sample     string
	confidence float64
}

// detectSimulatedStructures scans <p>/<div> text blocks for bullet/numbered
// lines or pipe/tab/space-delimited "tables" rendered as plain text instead
// of semantic markup, per SPEC_FULL.md §4.7.
func detectSimulatedStructures(doc *htmldoc.ParsedDocument) []simulatedStructure {
	if doc == nil {
		return nil
	}
	var found []simulatedStructure

	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		lines := splitNonEmptyLines(text)
		if len(lines) < 2 {
			return
		}

		bulletLike := 0
		numberedLike := 0
		tableLike := 0
		var sample string
		for _, line := range lines {
			if len(line) <= 10 {
				continue
			}
			if bulletPattern.MatchString(line) {
				bulletLike++
				if sample == "" {
					sample = line
				}
			}
			if numberedPattern.MatchString(line) {
				numberedLike++
				if sample == "" {
					sample = line
				}
			}
			if isTableLikeLine(line) {
				tableLike++
				if sample == "" {
					sample = line
				}
			}
		}

		total := float64(len(lines))
		if ratio := float64(bulletLike) / total; ratio >= 0.5 {
			found = append(found, simulatedStructure{kind: "list", sample: sample, confidence: ratio})
			return
		}
		if ratio := float64(numberedLike) / total; ratio >= 0.5 {
			found = append(found, simulatedStructure{kind: "list", sample: sample, confidence: ratio})
			return
		}
		if tableLike >= 2 {
			found = append(found, simulatedStructure{kind: "table", sample: sample, confidence: float64(tableLike) / total})
		}
	})

	return found
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func isTableLikeLine(line string) bool {
	if pipeTablePattern.MatchString(line) {
		return true
	}
	if strings.Count(line, "\t") >= 2 {
		return true
	}
	groups := regexp.MustCompile(`\s{4,}`).Split(strings.TrimSpace(line), -1)
	return len(groups) >= 2
}

func layoutRolesDrawer(in Input) report.Drawer {
	main := mainContentCard(in)
	semantic := semanticRegionCard(in)
	return report.NewDrawer("layout-roles", "Layout & Structural Roles", "Main content definition and semantic region tagging.",
		[]report.MetricCard{main, semantic})
}

func mainContentCard(in Input) report.MetricCard {
	score := 0
	var recs []report.Recommendation

	switch in.Index.MainCount {
	case 1:
		score += 10
	case 0:
		recs = append(recs, report.Recommendation{Problem: "No <main> element found.", Solution: "Wrap the primary content in a single <main> element.", Impact: 4})
	default:
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("%d <main> elements found; exactly one is expected.", in.Index.MainCount), Solution: "Use only one <main> element per page.", Impact: 4})
	}

	if in.Index.MainCount > 0 {
		if !mainNestedInLandmark(in.Doc) {
			score += 10
		} else {
			recs = append(recs, report.Recommendation{Problem: "<main> is nested inside an article/aside/footer/header/nav landmark.", Solution: "Move <main> so it is not nested inside another landmark element.", Impact: 3})
		}
	}

	return report.NewCard("main-content-definition", "Main Content Definition", "Checks for exactly one, non-nested <main> element.",
		score, 20, recs, successMessageIfEmpty(recs, "A single, properly placed <main> element defines the primary content."),
		map[string]any{"mainCount": in.Index.MainCount})
}

// mainNestedInLandmark reports whether the first <main> in DOM order sits
// inside an article/aside/footer/header/nav ancestor, regardless of how
// many <main> elements the page has.
func mainNestedInLandmark(doc *htmldoc.ParsedDocument) bool {
	if doc == nil {
		return false
	}
	first := doc.Find("main").First()
	if first.Length() == 0 {
		return false
	}
	return first.Closest("article, aside, footer, header, nav").Length() > 0
}

var navLikePattern = regexp.MustCompile(`(?i)\b(nav|navigation|main-menu|nav-menu|primary-nav)\b`)
var sidebarLikePattern = regexp.MustCompile(`(?i)\b(sidebar|aside|side-content)\b`)

func semanticRegionCard(in Input) report.MetricCard {
	score := 10
	var recs []report.Recommendation

	if in.Doc != nil {
		in.Doc.Find("div").Each(func(_ int, s *goquery.Selection) {
			id, _ := s.Attr("id")
			class, _ := s.Attr("class")
			combined := id + " " + class

			if navLikePattern.MatchString(combined) {
				links := s.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
					return a.Closest("nav").Length() == 0
				})
				if links.Length() >= 2 {
					score -= 3
					recs = append(recs, report.Recommendation{
						Problem:  fmt.Sprintf("<div> with id/class %q looks like navigation but is not a <nav> element.", strings.TrimSpace(combined)),
						Solution: "Use a <nav> element for navigation regions instead of a generically named <div>.",
						Impact:   2,
					})
				}
			}

			if sidebarLikePattern.MatchString(combined) && len(strings.TrimSpace(s.Text())) > 20 {
				if s.Closest("aside").Length() == 0 {
					score -= 2
					recs = append(recs, report.Recommendation{
						Problem:  fmt.Sprintf("<div> with id/class %q looks like a sidebar but is not an <aside> element.", strings.TrimSpace(combined)),
						Solution: "Use an <aside> element for sidebar content instead of a generically named <div>.",
						Impact:   1,
					})
				}
			}
		})
	}

	if in.Index.NavCount > 1 {
		missingLabel := false
		for _, n := range in.Index.Navs {
			if !n.HasAriaLabel {
				missingLabel = true
			}
		}
		if missingLabel {
			score -= 5
			recs = append(recs, report.Recommendation{
				Problem:  "Multiple <nav> elements exist but at least one lacks aria-label/aria-labelledby.",
				Solution: "Add a distinguishing aria-label to every <nav> element when more than one is present.",
				Impact:   3,
			})
		}
	}

	if score < 0 {
		score = 0
	}

	return report.NewCard("semantic-region-tagging", "Semantic Region Tagging", "Checks for generic <div> elements standing in for nav/sidebar landmarks, and unlabeled multiple <nav> elements.",
		score, 10, recs, successMessageIfEmpty(recs, "Semantic regions are properly tagged."), nil)
}

var ctaBlacklist = map[string]bool{
	"click here": true, "here": true, "more": true, "read more": true,
	"link": true, "this": true, "learn more": true,
}

func ctaClarityDrawer(in Input) report.Drawer {
	if in.Doc == nil {
		return report.NewDrawer("cta-clarity", "CTA Context Clarity", "Checks that links and buttons have clear, descriptive accessible names.",
			[]report.MetricCard{report.NewCard("cta-context-clarity", "CTA Context Clarity", "Checks that links and buttons have clear, descriptive accessible names.", 20, 20, nil, "No links or buttons to evaluate.", nil)})
	}

	total := 0
	clear := 0
	var offenders []string

	in.Doc.Find("a[href], button").Each(func(_ int, s *goquery.Selection) {
		total++
		name := accessibleName(s)
		if isClear(name) {
			clear++
		} else if len(offenders) < 5 {
			offenders = append(offenders, fmt.Sprintf("%q", name))
		}
	})

	score := 20
	if total > 0 {
		score = int(round(20 * float64(clear) / float64(total)))
	}

	var recs []report.Recommendation
	if len(offenders) > 0 {
		recs = append(recs, report.Recommendation{
			Problem:  "Links/buttons with unclear accessible names: " + strings.Join(offenders, ", ") + ".",
			Solution: "Give every link and button a descriptive accessible name instead of generic text like 'click here' or 'read more'.",
			Impact:   4,
		})
	}

	card := report.NewCard("cta-context-clarity", "CTA Context Clarity", "Checks that links and buttons have clear, descriptive accessible names.",
		score, 20, recs, successMessageIfEmpty(recs, "Links and buttons have clear accessible names."),
		map[string]any{"clear": clear, "total": total})

	return report.NewDrawer("cta-clarity", "CTA Context Clarity", "Accessible-name clarity for calls to action.", []report.MetricCard{card})
}

func accessibleName(s *goquery.Selection) string {
	if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	text := strings.TrimSpace(s.Text())
	if text != "" {
		return text
	}
	if alt, ok := s.Find("img").First().Attr("alt"); ok {
		return strings.TrimSpace(alt)
	}
	return ""
}

func isClear(name string) bool {
	if len(name) < 4 {
		return false
	}
	return !ctaBlacklist[strings.ToLower(name)]
}

func successMessageIfEmpty(recs []report.Recommendation, msg string) string {
	if len(recs) == 0 {
		return msg
	}
	return ""
}

func round(f float64) float64 {
	if f < 0 {
		return f - 0.5
	}
	return f + 0.5
}
