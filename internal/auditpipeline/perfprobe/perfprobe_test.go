package perfprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestQueryNoBackendReturnsFallback(t *testing.T) {
	p := New(Options{})
	res := p.Query(context.Background(), "https://example.test/")
	if res.Successful {
		t.Fatal("expected unsuccessful fallback when no backend configured")
	}
	if !res.Fallback {
		t.Error("expected Fallback=true")
	}
}

func TestQuerySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"performanceScore":88,"lcp":1.2,"inp":150,"cls":0.02}`))
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	res := p.Query(context.Background(), "https://example.test/")
	if !res.Successful {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.PerformanceScore != 88 {
		t.Errorf("PerformanceScore = %d, want 88", res.PerformanceScore)
	}
	if res.CoreWebVitals.LCP != 1.2 {
		t.Errorf("LCP = %v, want 1.2", res.CoreWebVitals.LCP)
	}
}

func TestQueryRetriesThenFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxRetries: 1})
	res := p.Query(context.Background(), "https://example.test/")
	if res.Successful {
		t.Fatal("expected fallback after persistent failure")
	}
	if !res.Fallback {
		t.Error("expected Fallback=true")
	}
}
