// Package discoverability implements Analyzer — Discoverability (C5):
// HTTPS, HTTP status, AI-bot robots access, sitemap quality, and llms.txt
// detection. Weight 20%, maxScore 100.
package discoverability

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/robots"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/sitemap"
)

// Input is everything the analyzer needs; it never reaches into the
// orchestrator or other analyzers' state.
type Input struct {
	CanonicalURL string
	Collected    report.CollectedData
	AIBots       []string
}

// Result is C5's raw analyzer output plus the emitted global penalty, if
// any. The transformer shapes Section/Drawer/Card from Result.
type Result struct {
	TechnicalFoundation report.Drawer
	AIAccess             report.Drawer
	LLMInstructions      report.Drawer
	Penalty              *report.GlobalPenalty
}

// Analyze runs the Discoverability analyzer.
func Analyze(in Input) Result {
	technical := technicalFoundation(in)
	aiAccess, penalty := aiAccessDrawer(in)
	llmInstructions := llmInstructionsDrawer(in)

	return Result{
		TechnicalFoundation: technical,
		AIAccess:             aiAccess,
		LLMInstructions:      llmInstructionsDrawerToDrawer(llmInstructions),
		Penalty:              penalty,
	}
}

func technicalFoundation(in Input) report.Drawer {
	httpsCard := httpsCard(in.CanonicalURL)
	statusCard := httpStatusCard(in.Collected.HTML)
	return report.NewDrawer("technical-foundation", "Technical Foundation", "HTTPS and HTTP status checks", []report.MetricCard{httpsCard, statusCard})
}

func httpsCard(canonicalURL string) report.MetricCard {
	u, err := url.Parse(canonicalURL)
	isHTTPS := err == nil && u.Scheme == "https"

	if isHTTPS {
		return report.NewCard("https-protocol", "HTTPS Protocol", "Checks whether the page is served over HTTPS.",
			25, 25, nil, "The page is served over HTTPS.", map[string]any{"scheme": u.Scheme})
	}
	return report.NewCard("https-protocol", "HTTPS Protocol", "Checks whether the page is served over HTTPS.",
		0, 25, []report.Recommendation{{
			Problem:  "The page is not served over HTTPS.",
			Solution: "Serve the site over HTTPS with a valid TLS certificate.",
			Impact:   9,
		}}, "", map[string]any{"scheme": schemeOf(canonicalURL)})
}

func schemeOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme
}

func httpStatusCard(html report.FetchResult) report.MetricCard {
	switch {
	case html.Success:
		return report.NewCard("http-status", "HTTP Status", "Checks the HTTP status code returned for the page.",
			25, 25, nil, "The page returns a successful HTTP status.", map[string]any{"statusCode": html.StatusCode})
	case html.StatusCode >= 300 && html.StatusCode < 400:
		return report.NewCard("http-status", "HTTP Status", "Checks the HTTP status code returned for the page.",
			15, 25, []report.Recommendation{{
				Problem:  "The page responded with a redirect.",
				Solution: "Serve the canonical URL directly with a 200 status rather than redirecting.",
				Impact:   4,
			}}, "", map[string]any{"statusCode": html.StatusCode})
	default:
		return report.NewCard("http-status", "HTTP Status", "Checks the HTTP status code returned for the page.",
			0, 25, []report.Recommendation{{
				Problem:  fmt.Sprintf("The page could not be fetched successfully (status %d, %s).", html.StatusCode, html.ErrorTag),
				Solution: "Ensure the page returns a 200 status to crawlers.",
				Impact:   10,
			}}, "", map[string]any{"statusCode": html.StatusCode, "errorTag": string(html.ErrorTag)})
	}
}

func aiAccessDrawer(in Input) (report.Drawer, *report.GlobalPenalty) {
	aiBotsCard, penalty := aiBotsAccessCard(in)
	sitemapCard := sitemapQualityCard(in.Collected.Sitemap)
	return report.NewDrawer("ai-access", "AI Access", "Robots.txt access for AI crawlers and sitemap quality.", []report.MetricCard{aiBotsCard, sitemapCard}), penalty
}

func aiBotsAccessCard(in Input) (report.MetricCard, *report.GlobalPenalty) {
	doc := robots.Parse(in.Collected.RobotsTxt.Body)
	if !in.Collected.RobotsTxt.Success {
		doc = robots.Parse("")
	}

	bots := in.AIBots
	allowed := 0
	blockedBots := []string{}
	for _, bot := range bots {
		if doc.Allowed(bot) {
			allowed++
		} else {
			blockedBots = append(blockedBots, bot)
		}
	}
	total := len(bots)
	score := 0
	if total > 0 {
		score = roundInt(25 * float64(allowed) / float64(total))
	}

	var recs []report.Recommendation
	if len(blockedBots) > 0 {
		recs = append(recs, report.Recommendation{
			Problem:  fmt.Sprintf("robots.txt blocks %d of %d AI crawlers: %s.", len(blockedBots), total, strings.Join(blockedBots, ", ")),
			Solution: "Allow AI crawler user agents in robots.txt so LLM systems can access and cite the page.",
			Impact:   8,
		})
	}
	if !doc.HasSitemapDirective() {
		recs = append(recs, report.Recommendation{
			Problem:  "robots.txt does not declare a Sitemap: directive.",
			Solution: "Add a Sitemap: line to robots.txt pointing at sitemap.xml.",
			Impact:   2,
		})
	}

	card := report.NewCard("ai-bots-access", "AI Bots Access", "Checks whether robots.txt allows the canonical set of AI crawlers.",
		score, 25, recs, successMessageIfEmpty(recs, "All AI crawlers are allowed by robots.txt."),
		map[string]any{"blockedBots": blockedBots, "allowed": allowed, "total": total})

	penalty := robotsPenalty(blockedBots, total)
	return card, penalty
}

// robotsPenalty emits the robots_txt_blocking global penalty: 0.7 when all
// bots are blocked, 0.4 when a majority are blocked, else none.
func robotsPenalty(blockedBots []string, total int) *report.GlobalPenalty {
	if total == 0 || len(blockedBots) == 0 {
		return nil
	}
	factor := 0.0
	switch {
	case len(blockedBots) == total:
		factor = 0.7
	case len(blockedBots)*2 > total:
		factor = 0.4
	default:
		return nil
	}
	return &report.GlobalPenalty{
		Type:          "robots_txt_blocking",
		Description:   "robots.txt blocks AI crawler access, reducing the page's LLM discoverability.",
		PenaltyFactor: factor,
		Details:       blockedBots,
		Solutions:     []string{"Remove Disallow rules for AI crawler user agents, or add explicit Allow: / entries for them."},
	}
}

func sitemapQualityCard(sitemapFetch report.FetchResult) report.MetricCard {
	if !sitemapFetch.Success {
		return report.NewCard("sitemap-quality", "Sitemap Quality", "Checks sitemap.xml presence and quality.",
			0, 25, []report.Recommendation{{
				Problem:  "No sitemap.xml could be retrieved.",
				Solution: "Publish a sitemap.xml listing the site's canonical URLs.",
				Impact:   6,
			}}, "", map[string]any{"fetchError": string(sitemapFetch.ErrorTag)})
	}

	result := sitemap.Parse(sitemapFetch.Body)
	score := 15
	var recs []report.Recommendation

	if result.Malformed {
		score = 15
		recs = append(recs, report.Recommendation{
			Problem:  "sitemap.xml could not be fully parsed as XML: " + result.ParseError,
			Solution: "Validate sitemap.xml against the sitemap protocol schema.",
			Impact:   4,
		})
	}
	if result.HasAnyLastMod() {
		score += 10
	} else {
		recs = append(recs, report.Recommendation{
			Problem:  "No <lastmod> dates found in sitemap.xml.",
			Solution: "Add <lastmod> to sitemap entries so crawlers can prioritize fresh content.",
			Impact:   3,
		})
	}

	return report.NewCard("sitemap-quality", "Sitemap Quality", "Checks sitemap.xml presence and quality.",
		score, 25, recs, successMessageIfEmpty(recs, "Sitemap present with last-modified dates."),
		map[string]any{"entryCount": len(result.Entries), "malformed": result.Malformed})
}

type llmInstructions struct {
	found bool
}

func llmInstructionsDrawer(in Input) llmInstructions {
	return llmInstructions{found: in.Collected.LlmsTxt.Success}
}

func llmInstructionsDrawerToDrawer(l llmInstructions) report.Drawer {
	var recs []report.Recommendation
	successMessage := "llms.txt was found."
	if !l.found {
		successMessage = ""
		recs = append(recs, report.Recommendation{
			Problem:  "No llms.txt or llms-full.txt was found.",
			Solution: "Publish an llms.txt file summarizing the site for LLM consumers.",
			Impact:   1,
		})
	}
	card := report.NewCard("llm-instructions", "LLM Instructions", "Informational: records whether llms.txt was found. Never affects the score.",
		0, 0, recs, successMessage, map[string]any{"found": l.found})
	return report.NewDrawer("llm-instructions", "LLM Instructions", "Informational presence check for llms.txt.", []report.MetricCard{card})
}

func successMessageIfEmpty(recs []report.Recommendation, msg string) string {
	if len(recs) == 0 {
		return msg
	}
	return ""
}

func roundInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
