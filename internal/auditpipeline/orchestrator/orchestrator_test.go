package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/config"
)

const minimalHTML = `<!doctype html><html><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width">
<title>Example Title That Is Fifty Two Chars Long For Test</title>
<meta name="description" content="An example description that is at least one hundred and forty characters long to exceed the optimal lower bound for description length checks.">
<link rel="canonical" href="PLACEHOLDER">
</head><body><main><h1>Main</h1><h2>Sub</h2><p>Plenty of prose about interesting subjects that a reader might care about here today and tomorrow.</p></main><nav><a href="/a">About us</a></nav></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minimalHTML))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\nSitemap: " + srv.URL + "/sitemap.xml\n"))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><urlset><url><loc>` + srv.URL + `/</loc><lastmod>2026-01-01</lastmod></url></urlset>`))
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv = httptest.NewServer(mux)
	return srv
}

func TestAuditEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	cfg := config.Default()
	p := New(cfg, nil)

	report, err := p.Audit(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Audit() error: %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a non-empty RunID")
	}
	if len(report.Sections) != 5 {
		t.Errorf("len(Sections) = %d, want 5", len(report.Sections))
	}
	if report.AEOScore.TotalScore < 0 || report.AEOScore.TotalScore > 100 {
		t.Errorf("TotalScore = %d, out of [0,100]", report.AEOScore.TotalScore)
	}
	if !report.Summary.AnalysisCompleted {
		t.Error("expected AnalysisCompleted = true with all five sections present")
	}
	if len(report.Logs) == 0 {
		t.Error("expected at least one log line")
	}
}

func TestAuditSkipsHTMLDependentSectionsOnFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Default()
	p := New(cfg, nil)

	report, err := p.Audit(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Audit() error: %v", err)
	}

	if len(report.Sections) != 1 {
		t.Fatalf("len(Sections) = %d, want 1 (only discoverability, HTML fetch failed)", len(report.Sections))
	}
	if report.Summary.AnalysisCompleted {
		t.Error("expected AnalysisCompleted = false when four sections are absent")
	}

	// A perfect (or zero) lone section must still rescale to a score on
	// [0,100] rather than being dragged down by absent sections' weight.
	if report.AEOScore.TotalScore < 0 || report.AEOScore.TotalScore > 100 {
		t.Errorf("TotalScore = %d, out of [0,100]", report.AEOScore.TotalScore)
	}
	if report.AEOScore.Completeness == "" {
		t.Error("expected a non-empty Completeness string reflecting the rescale")
	}
}

func TestAuditRejectsInvalidURL(t *testing.T) {
	cfg := config.Default()
	p := New(cfg, nil)
	_, err := p.Audit(context.Background(), "not a url at all \x00")
	if err == nil {
		t.Fatal("expected a validation error for a malformed URL")
	}
}
