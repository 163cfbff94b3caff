package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

func TestFetchAllSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hi</body></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\nSitemap: " + sitemapURLPlaceholder + "\n"))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset><url><loc>https://example.test/</loc></url></urlset>`))
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# llms"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	sitemapURLPlaceholder = srv.URL + "/sitemap.xml"

	f := New(Options{Timeout: 2 * time.Second})
	artifacts := f.FetchAll(context.Background(), srv.URL+"/", srv.URL, noopLogger{})

	if !artifacts.HTML.Success {
		t.Fatalf("expected HTML fetch success, got %+v", artifacts.HTML)
	}
	if !artifacts.RobotsTxt.Success {
		t.Fatalf("expected robots.txt fetch success, got %+v", artifacts.RobotsTxt)
	}
	if !artifacts.Sitemap.Success {
		t.Fatalf("expected sitemap fetch success, got %+v", artifacts.Sitemap)
	}
	if !artifacts.LlmsTxt.Success {
		t.Fatalf("expected llms.txt fetch success, got %+v", artifacts.LlmsTxt)
	}
}

// sitemapURLPlaceholder lets the robots.txt handler embed the httptest
// server's own address, which isn't known until after it starts.
var sitemapURLPlaceholder string

func TestFetchOneSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer srv.Close()

	f := New(Options{MaxBytes: 10})
	res := f.fetchOne(context.Background(), srv.URL, "text/html,*/*")
	if res.Success {
		t.Fatal("expected failure for oversized body")
	}
	if res.ErrorTag != "SizeLimit" {
		t.Errorf("ErrorTag = %q, want SizeLimit", res.ErrorTag)
	}
}

func TestFetchOneTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Options{Timeout: 5 * time.Millisecond})
	res := f.fetchOne(context.Background(), srv.URL, "text/html,*/*")
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ErrorTag != "Timeout" {
		t.Errorf("ErrorTag = %q, want Timeout", res.ErrorTag)
	}
}

func TestFetchOneNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(Options{})
	res := f.fetchOne(context.Background(), srv.URL, "text/html,*/*")
	if res.Success {
		t.Fatal("expected failure for 404")
	}
	if res.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", res.StatusCode)
	}
}

func TestGuardAgainstSSRFBlocksLoopback(t *testing.T) {
	f := New(Options{Timeout: 100 * time.Millisecond})
	res := f.fetchOne(context.Background(), "http://127.0.0.1:1/", "text/html,*/*")
	if res.Success {
		t.Fatal("expected SSRF guard to block loopback address")
	}
	if res.ErrorTag != "SSRFBlocked" {
		t.Errorf("ErrorTag = %q, want SSRFBlocked", res.ErrorTag)
	}
}
