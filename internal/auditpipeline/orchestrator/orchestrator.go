// Package orchestrator implements the Pipeline Orchestrator (C12): it runs
// C1 validation, C2 artifact fetching, C3 HTML parsing, then fans out the
// five analyzers (C8 waits on C4's performance probe), assembles sections
// via the transformer (C10), aggregates the final score (C11), and
// produces the AuditReport envelope.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/accessibility"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/discoverability"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/formatting"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/readability"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/analyzer/structured"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/config"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/fetch"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/htmldoc"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/perfprobe"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/score"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/transform"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/validate"
	"github.com/dtnitsch/geo-audit/internal/logging"
	"github.com/google/uuid"
)

// Pipeline wires every component together behind one Audit call.
type Pipeline struct {
	cfg   *config.Config
	base  *slog.Logger
	fetch *fetch.Fetcher
	probe *perfprobe.Prober
}

// New builds a Pipeline from configuration. base may be nil, in which case
// slog.Default() is used.
func New(cfg *config.Config, base *slog.Logger) *Pipeline {
	if base == nil {
		base = slog.Default()
	}
	return &Pipeline{
		cfg:  cfg,
		base: base,
		fetch: fetch.New(fetch.Options{
			Timeout:      cfg.FetchTimeout(),
			MaxBytes:     int64(cfg.Fetch.MaxBytes),
			UserAgent:    cfg.Fetch.UserAgent,
			MaxRedirects: cfg.Fetch.MaxRedirects,
		}),
		probe: perfprobe.New(perfprobe.Options{
			BaseURL:    cfg.Probe.BaseURL,
			Timeout:    cfg.ProbeTimeout(),
			MaxRetries: cfg.Probe.MaxRetries,
		}),
	}
}

// Audit runs a full audit of rawURL and returns the assembled report.
// It never returns an error for analyzer-level failures — those degrade to
// ErrorSections per SPEC_FULL.md §7; it returns an error only for C1
// validation failures, which abort before any artifact is fetched.
func (p *Pipeline) Audit(ctx context.Context, rawURL string) (*report.AuditReport, error) {
	runID := uuid.NewString()
	log := logging.New(p.base, runID)
	start := time.Now()

	canonical, err := validate.Canonicalize(rawURL)
	if err != nil {
		return nil, err
	}
	origin, err := validate.Origin(canonical)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.GlobalDeadline())
	defer cancel()

	log.Info("audit started", "url", canonical)

	artifacts := p.fetch.FetchAll(ctx, canonical, origin, log)

	var doc *htmldoc.ParsedDocument
	var idx *htmldoc.SemanticHTML5Index
	var basicMeta report.BasicMetadata
	if artifacts.HTML.Success {
		doc, err = htmldoc.Parse(artifacts.HTML.Body)
		if err != nil {
			log.Error("failed to parse HTML", "error", err.Error())
			doc = nil
		}
	}
	if doc != nil {
		idx = htmldoc.BuildSemanticIndex(doc)
		basicMeta = htmldoc.ExtractBasicMetadata(doc)
	} else {
		idx = &htmldoc.SemanticHTML5Index{}
	}

	collected := report.CollectedData{
		URL:       canonical,
		HTML:      artifacts.HTML,
		RobotsTxt: artifacts.RobotsTxt,
		Sitemap:   artifacts.Sitemap,
		LlmsTxt:   artifacts.LlmsTxt,
		Metadata: report.CollectionMetadata{
			Timestamp:      time.Now(),
			UserAgent:      p.cfg.Fetch.UserAgent,
			TimeoutMs:      p.cfg.Fetch.TimeoutMs,
			MaxContentSize: p.cfg.Fetch.MaxBytes,
		},
	}

	perfResult := p.probe.Query(ctx, canonical)
	if perfResult.Fallback {
		log.Warn("performance probe fell back to synthetic result", "retry_count", perfResult.RetryCount)
	}

	// sections is the display map handed back on AuditReport (it records a
	// degraded ErrorSection for a panicked analyzer so the report can show
	// why a section is missing). scoreSections is what actually feeds the
	// aggregator: it omits both skipped and panicked analyzers entirely, so
	// score.Aggregate rescales the surviving sections' weights instead of
	// scoring a missing analyzer at an ErrorSection's floor.
	sections := map[string]report.Section{}
	scoreSections := map[string]report.Section{}
	var penalties []report.GlobalPenalty
	var mu sync.Mutex
	var wg sync.WaitGroup

	runSection := func(id, name string, weight int, fn func() (report.Section, *report.GlobalPenalty)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("analyzer panicked", "section", id, "recover", r)
				mu.Lock()
				sections[id] = report.ErrorSection(id, name, weight, "analyzer panicked")
				mu.Unlock()
			}
		}()
		section, penalty := fn()
		mu.Lock()
		sections[id] = section
		scoreSections[id] = section
		if penalty != nil {
			penalties = append(penalties, *penalty)
		}
		mu.Unlock()
	}

	wg.Add(1)
	go runSection(report.SectionDiscoverability, "Discoverability", transform.WeightDiscoverability, func() (report.Section, *report.GlobalPenalty) {
		res := discoverability.Analyze(discoverability.Input{CanonicalURL: canonical, Collected: collected, AIBots: p.cfg.AIBots})
		return transform.Discoverability(res)
	})

	// The remaining four analyzers all read the parsed HTML document; when
	// the HTML fetch itself failed there is nothing for them to analyze, so
	// they are skipped rather than run against a nil/empty doc and scored
	// near zero.
	htmlAvailable := artifacts.HTML.Success && doc != nil
	if htmlAvailable {
		wg.Add(4)
		go runSection(report.SectionStructuredData, "Structured Data", transform.WeightStructuredData, func() (report.Section, *report.GlobalPenalty) {
			res := structured.Analyze(structured.Input{Doc: doc, Metadata: basicMeta})
			return transform.StructuredData(res), nil
		})
		go runSection(report.SectionLLMFormatting, "LLM Formatting", transform.WeightLLMFormatting, func() (report.Section, *report.GlobalPenalty) {
			res := formatting.Analyze(formatting.Input{Doc: doc, Index: idx})
			return transform.LLMFormatting(res), nil
		})
		go runSection(report.SectionAccessibility, "Accessibility", transform.WeightAccessibility, func() (report.Section, *report.GlobalPenalty) {
			res := accessibility.Analyze(accessibility.Input{Doc: doc, Index: idx, Perf: perfResult})
			return transform.Accessibility(res), nil
		})
		go runSection(report.SectionReadability, "Readability", transform.WeightReadability, func() (report.Section, *report.GlobalPenalty) {
			res := readability.Analyze(readability.Input{Doc: doc, RawHTML: artifacts.HTML.Body, PageURL: canonical})
			return transform.Readability(res), nil
		})
	} else {
		log.Warn("skipping HTML-dependent analyzers: HTML fetch failed")
	}
	wg.Wait()

	aeoScore := score.Aggregate(score.Input{Sections: scoreSections, Penalties: penalties})

	elapsed := time.Since(start)
	successCount, failureCount := countArtifacts(artifacts)

	auditReport := &report.AuditReport{
		RunID:         runID,
		URL:           canonical,
		Collected:     collected,
		BasicMetadata: basicMeta,
		Sections:      sections,
		AEOScore:      aeoScore,
		GlobalPenalties: penalties,
		Summary: report.Summary{
			TotalTimeMs:       elapsed.Milliseconds(),
			SuccessCount:      successCount,
			FailureCount:      failureCount,
			PartialSuccess:    failureCount > 0 && successCount > 0,
			AnalysisCompleted: len(sections) == len(report.SectionOrder),
		},
		Logs: log.Lines(),
	}

	log.Info("audit completed", "total_score", aeoScore.TotalScore, "elapsed_ms", elapsed.Milliseconds())
	return auditReport, nil
}

func countArtifacts(a fetch.Artifacts) (success, failure int) {
	for _, r := range []report.FetchResult{a.HTML, a.RobotsTxt, a.Sitemap, a.LlmsTxt} {
		if r.Success {
			success++
		} else {
			failure++
		}
	}
	return success, failure
}
