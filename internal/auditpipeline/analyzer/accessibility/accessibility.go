// Package accessibility implements Analyzer — Accessibility (C8): content
// availability and image alt coverage, the C4 performance probe result and
// image optimization, and navigational accessibility. Weight 15%,
// maxScore 100. Depends on C4 (perfprobe) having already run.
package accessibility

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/perfprobe"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
)

// Input is everything the analyzer needs.
type Input struct {
	Doc     *htmldoc.ParsedDocument
	Index   *htmldoc.SemanticHTML5Index
	Perf    perfprobe.Result
}

// Result is C8's raw analyzer output.
type Result struct {
	ContentAccessibility report.Drawer
	TechnicalAccessibility report.Drawer
	NavigationalAccessibility report.Drawer
}

// Analyze runs the Accessibility analyzer.
func Analyze(in Input) Result {
	return Result{
		ContentAccessibility:       contentAccessibilityDrawer(in),
		TechnicalAccessibility:     technicalAccessibilityDrawer(in),
		NavigationalAccessibility:  navigationalAccessibilityCardDrawer(in),
	}
}

func contentAccessibilityDrawer(in Input) report.Drawer {
	static := staticContentCard(in.Doc)
	images := imageAccessibilityCard(in.Doc)
	return report.NewDrawer("content-accessibility", "Content Accessibility", "Static content availability and image alt text coverage.",
		[]report.MetricCard{static, images})
}

func staticContentCard(doc *htmldoc.ParsedDocument) report.MetricCard {
	score := 0
	var recs []report.Recommendation

	bodyText := ""
	rawLen := 0
	if doc != nil {
		bodyText = doc.BodyText()
		rawLen = doc.RawLength()
	}
	wordCount := len(strings.Fields(bodyText))
	if wordCount >= 300 {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Body word count is %d, below the 300-word floor.", wordCount), Solution: "Add substantive body content; LLMs need enough text to extract meaning from.", Impact: 5})
	}

	ratio := 0.0
	if rawLen > 0 {
		ratio = float64(len(bodyText)) / float64(rawLen) * 100
	}
	if ratio >= 15 {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Text-to-HTML ratio is %.1f%%, below the 15%% floor.", ratio), Solution: "Reduce markup overhead or add more text content relative to markup.", Impact: 4})
	}

	return report.NewCard("static-content-availability", "Static Content Availability", "Checks body word count and text-to-HTML ratio.",
		score, 20, recs, successMessageIfEmpty(recs, "Body content is substantive and text-dense."),
		map[string]any{"wordCount": wordCount, "textToHtmlRatio": ratio})
}

func imageAccessibilityCard(doc *htmldoc.ParsedDocument) report.MetricCard {
	if doc == nil {
		return report.NewCard("image-accessibility", "Image Accessibility", "Checks alt text coverage across <img> elements.", 20, 20, nil, "No images to evaluate.", nil)
	}

	total := 0
	withAlt := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		total++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			withAlt++
		}
	})

	if total == 0 {
		return report.NewCard("image-accessibility", "Image Accessibility", "Checks alt text coverage across <img> elements.", 20, 20, nil, "No images to evaluate.", map[string]any{"total": 0})
	}

	coverage := float64(withAlt) / float64(total)
	score := int(round(20 * coverage))

	var recs []report.Recommendation
	if coverage < 1 {
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("%d of %d images are missing alt text.", total-withAlt, total),
			Solution: "Add descriptive alt text to every meaningful <img>.",
			Impact:   4,
		})
	}

	return report.NewCard("image-accessibility", "Image Accessibility", "Checks alt text coverage across <img> elements.",
		score, 20, recs, successMessageIfEmpty(recs, "All images have alt text."),
		map[string]any{"total": total, "withAlt": withAlt})
}

func technicalAccessibilityDrawer(in Input) report.Drawer {
	perf := performanceCard(in.Perf)
	imgOpt := imageOptimizationCard(in.Doc)
	return report.NewDrawer("technical-accessibility-performance", "Technical Accessibility & Performance", "Core Web Vitals and image optimization.",
		[]report.MetricCard{perf, imgOpt})
}

func performanceCard(perf perfprobe.Result) report.MetricCard {
	score := int(round(float64(perf.PerformanceScore) / 100 * 25))

	var recs []report.Recommendation
	if perf.PerformanceScore < 75 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Performance score is %d, below the 75 floor.", perf.PerformanceScore), Solution: "Improve server response time, reduce render-blocking resources, and optimize asset delivery.", Impact: 5})
	}
	if perf.CoreWebVitals.LCP > 2.5 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("LCP is %.2fs, above the 2.5s threshold.", perf.CoreWebVitals.LCP), Solution: "Optimize the largest contentful paint element: preload it, compress it, or serve it faster.", Impact: 5})
	}
	if perf.CoreWebVitals.INP > 200 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("INP is %.0fms, above the 200ms threshold.", perf.CoreWebVitals.INP), Solution: "Reduce main-thread work in response to user interactions.", Impact: 4})
	}
	if perf.CoreWebVitals.CLS > 0.1 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("CLS is %.2f, above the 0.1 threshold.", perf.CoreWebVitals.CLS), Solution: "Reserve space for images/ads/embeds to prevent layout shift.", Impact: 3})
	}
	if perf.Fallback {
		recs = append(recs, report.Recommendation{
			Problem:  "The external performance probe was unavailable; this score uses a synthetic fallback.",
			Solution: "Run a Core Web Vitals check manually (e.g. PageSpeed Insights) to confirm real performance.",
			Impact:   2,
		})
	}

	return report.NewCard("performance-core-web-vitals", "Performance Score & Core Web Vitals", "Checks overall performance score and Core Web Vitals thresholds from the external performance probe.",
		score, 25, recs, successMessageIfEmpty(recs, "Performance and Core Web Vitals are within healthy thresholds."),
		map[string]any{"performanceScore": perf.PerformanceScore, "lcp": perf.CoreWebVitals.LCP, "inp": perf.CoreWebVitals.INP, "cls": perf.CoreWebVitals.CLS, "fallback": perf.Fallback})
}

var modernFormat = regexp.MustCompile(`(?i)\.(webp|avif)(\?.*)?$`)

func imageOptimizationCard(doc *htmldoc.ParsedDocument) report.MetricCard {
	if doc == nil {
		return report.NewCard("image-optimization", "Image Optimization", "Checks for modern image formats (WebP/AVIF) and lazy loading.", 10, 10, nil, "No images to evaluate.", nil)
	}

	total := 0
	modern := 0
	lazy := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		total++
		if src, ok := s.Attr("src"); ok && modernFormat.MatchString(strings.ToLower(src)) {
			modern++
		}
		if loading, ok := s.Attr("loading"); ok && strings.EqualFold(loading, "lazy") {
			lazy++
		}
	})

	if total == 0 {
		return report.NewCard("image-optimization", "Image Optimization", "Checks for modern image formats (WebP/AVIF) and lazy loading.", 10, 10, nil, "No images to evaluate.", map[string]any{"total": 0})
	}

	modernRatio := float64(modern) / float64(total)
	lazyRatio := float64(lazy) / float64(total)
	score := int(round(5*modernRatio)) + int(round(5*lazyRatio))

	var recs []report.Recommendation
	if modernRatio < 0.3 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Only %.0f%% of images use a modern format (WebP/AVIF).", modernRatio*100), Solution: "Serve images in WebP or AVIF format.", Impact: 3})
	}
	if lazyRatio < 0.5 {
		recs = append(recs, report.Recommendation{Problem: fmt.Sprintf("Only %.0f%% of images use loading=\"lazy\".", lazyRatio*100), Solution: "Add loading=\"lazy\" to below-the-fold images.", Impact: 2})
	}

	return report.NewCard("image-optimization", "Image Optimization", "Checks for modern image formats (WebP/AVIF) and lazy loading.",
		score, 10, recs, successMessageIfEmpty(recs, "Images use modern formats and lazy loading."),
		map[string]any{"total": total, "modern": modern, "lazy": lazy})
}

var breadcrumbAttr = regexp.MustCompile(`(?i)breadcrumb`)

func navigationalAccessibilityCardDrawer(in Input) report.Drawer {
	score := 25
	var recs []report.Recommendation

	if in.Index.NavCount == 0 {
		score -= 15
		recs = append(recs, report.Recommendation{Problem: "No <nav> element found.", Solution: "Add a <nav> element wrapping the site's primary navigation links.", Impact: 8})
	} else if !navHasStaticLinks(in.Doc) {
		score -= 10
		recs = append(recs, report.Recommendation{Problem: "No <nav> element contains any static links.", Solution: "Ensure navigation links render as static <a href> elements, not JS-only controls.", Impact: 5})
	}

	if !hasBreadcrumb(in.Doc) {
		recs = append(recs, report.Recommendation{Problem: "No breadcrumb navigation detected.", Solution: "Add a breadcrumb trail with an aria-label or class/id containing 'breadcrumb'.", Impact: 2})
	}

	if in.Index.NavCount > 1 {
		missingLabel := false
		for _, n := range in.Index.Navs {
			if !n.HasAriaLabel {
				missingLabel = true
			}
		}
		if missingLabel {
			recs = append(recs, report.Recommendation{Problem: "Multiple <nav> elements exist but at least one lacks aria-label/aria-labelledby.", Solution: "Label every <nav> element distinctly when more than one is present.", Impact: 2})
		}
	}

	if score < 0 {
		score = 0
	}

	card := report.NewCard("navigational-accessibility", "Navigational Accessibility", "Checks for navigation presence, static links, and breadcrumb trails.",
		score, 25, recs, successMessageIfEmpty(recs, "Navigation is present, static, and well-labeled."), nil)

	return report.NewDrawer("navigational-accessibility", "Navigational Accessibility", "Navigation presence and labeling.", []report.MetricCard{card})
}

func navHasStaticLinks(doc *htmldoc.ParsedDocument) bool {
	if doc == nil {
		return false
	}
	return doc.Find("nav a[href]").Length() > 0
}

func hasBreadcrumb(doc *htmldoc.ParsedDocument) bool {
	if doc == nil {
		return false
	}
	found := false
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if found {
			return
		}
		if class, ok := s.Attr("class"); ok && breadcrumbAttr.MatchString(class) {
			found = true
			return
		}
		if id, ok := s.Attr("id"); ok && breadcrumbAttr.MatchString(id) {
			found = true
			return
		}
		if label, ok := s.Attr("aria-label"); ok && breadcrumbAttr.MatchString(label) {
			found = true
		}
	})
	return found
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
