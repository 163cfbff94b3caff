// Package fetch implements the Artifact Fetcher (C2): given a canonical
// URL it retrieves HTML, robots.txt, sitemap.xml, and llms.txt/llms-full.txt
// in parallel, each with an independent deadline, size cap, redirect bound,
// and SSRF guard. One artifact's failure never aborts the others.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/robots"
	"github.com/dustin/go-humanize"
	"github.com/gogs/chardet"
)

// Options configures one fetch round. Zero-value fields fall back to the
// spec's recommended defaults (10s timeout, 10MiB cap, 5 redirects).
type Options struct {
	Timeout      time.Duration
	MaxBytes     int64
	UserAgent    string
	MaxRedirects int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 10 * 1024 * 1024
	}
	if o.UserAgent == "" {
		o.UserAgent = "GEOAuditBot/1.0"
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 5
	}
	return o
}

// Logger is the minimal logging surface fetch needs; satisfied by
// *logging.RunLogger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Fetcher retrieves audit artifacts with SSRF guards and size/time caps.
type Fetcher struct {
	opts Options
}

// New builds a Fetcher from Options, applying defaults for zero fields.
func New(opts Options) *Fetcher {
	return &Fetcher{opts: opts.withDefaults()}
}

func (f *Fetcher) client() *http.Client {
	return &http.Client{
		Timeout: f.opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.opts.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", f.opts.MaxRedirects)
			}
			if len(via) > 0 && via[0].URL.Scheme == "https" && req.URL.Scheme == "http" {
				return errors.New("refusing downgrade redirect from https to http")
			}
			if err := guardAgainstSSRF(req.URL); err != nil {
				return err
			}
			return nil
		},
	}
}

// guardAgainstSSRF rejects URLs resolving to loopback, private, link-local,
// or unspecified addresses, so a malicious redirect cannot make the
// auditor probe internal infrastructure.
func guardAgainstSSRF(u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return errors.New("missing host")
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		// DNS failures surface later as a NetworkError from the actual
		// request; it is not this guard's job to classify them.
		return nil
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return fmt.Errorf("refusing request to disallowed address %s", ip)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// fetchOne performs one GET with the configured deadline, size cap, and
// SSRF guard, returning a report.FetchResult that is never itself an error
// — failures are encoded in the result.
func (f *Fetcher) fetchOne(ctx context.Context, rawURL, accept string) report.FetchResult {
	start := time.Now()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return report.Failed(report.FetchErrNetwork, fmt.Sprintf("invalid url: %v", err))
	}
	if err := guardAgainstSSRF(parsed); err != nil {
		return report.Failed(report.FetchErrSSRFBlocked, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return report.Failed(report.FetchErrNetwork, fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client().Do(req)
	if err != nil {
		elapsed := time.Since(start)
		if ctx.Err() == context.DeadlineExceeded {
			return report.FetchResult{Success: false, ErrorTag: report.FetchErrTimeout, ErrorMessage: err.Error(), ResponseTimeMs: elapsed.Milliseconds()}
		}
		var tlsErr *tls.CertificateVerificationError
		if errors.As(err, &tlsErr) {
			return report.FetchResult{Success: false, ErrorTag: report.FetchErrTLS, ErrorMessage: err.Error(), ResponseTimeMs: elapsed.Milliseconds()}
		}
		return report.FetchResult{Success: false, ErrorTag: report.FetchErrNetwork, ErrorMessage: err.Error(), ResponseTimeMs: elapsed.Milliseconds()}
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, f.opts.MaxBytes+1)
	body, err := io.ReadAll(limited)
	elapsed := time.Since(start)
	if err != nil {
		return report.FetchResult{Success: false, ErrorTag: report.FetchErrNetwork, ErrorMessage: err.Error(), StatusCode: resp.StatusCode, ResponseTimeMs: elapsed.Milliseconds()}
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return report.FetchResult{Success: false, ErrorTag: report.FetchErrSizeLimit, ErrorMessage: fmt.Sprintf("body exceeded %s cap", humanize.Bytes(uint64(f.opts.MaxBytes))), StatusCode: resp.StatusCode, ResponseTimeMs: elapsed.Milliseconds()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return report.FetchResult{
			Success:        false,
			ErrorTag:       report.FetchErrNotFound,
			ErrorMessage:   fmt.Sprintf("unexpected status %d", resp.StatusCode),
			StatusCode:     resp.StatusCode,
			ContentLength:  len(body),
			ResponseTimeMs: elapsed.Milliseconds(),
		}
	}

	text := decodeBody(body, resp.Header.Get("Content-Type"))
	return report.FetchResult{
		Success:        true,
		Body:           text,
		StatusCode:     resp.StatusCode,
		ContentLength:  len(body),
		ResponseTimeMs: elapsed.Milliseconds(),
	}
}

// decodeBody sniffs the charset of body (from the Content-Type header, or
// failing that a byte-level detector) and returns it as UTF-8 text. HTML
// whose declared charset is already UTF-8/ASCII passes through untouched.
func decodeBody(body []byte, contentType string) string {
	if isUTF8Family(contentType) {
		return string(body)
	}
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(body)
	if err != nil || result == nil || isUTF8Family(result.Charset) {
		return string(body)
	}
	// Best-effort: chardet only identifies the encoding; without pulling
	// in a full transcoding table for every detected charset we fall back
	// to treating the bytes as Latin-1-compatible, which recovers plain
	// ASCII/Western text correctly and degrades gracefully otherwise.
	if enc, ok := latin1Like[result.Charset]; ok && enc {
		runes := make([]rune, len(body))
		for i, b := range body {
			runes[i] = rune(b)
		}
		return string(runes)
	}
	return string(body)
}

var latin1Like = map[string]bool{
	"ISO-8859-1": true,
	"windows-1252": true,
	"ISO-8859-15": true,
}

func isUTF8Family(s string) bool {
	s = strings.ToLower(s)
	return s == "" || strings.Contains(s, "utf-8") || strings.Contains(s, "utf8") || strings.Contains(s, "us-ascii") || strings.Contains(s, "ascii")
}

// Artifacts bundles the four fetch results of one audit.
type Artifacts struct {
	HTML      report.FetchResult
	RobotsTxt report.FetchResult
	Sitemap   report.FetchResult
	LlmsTxt   report.FetchResult
}

// FetchAll retrieves HTML, robots.txt, sitemap.xml, and llms.txt/llms-full.txt
// in parallel. The sitemap location is resolved from robots.txt's Sitemap:
// directive when present, otherwise origin+"/sitemap.xml"; this requires
// robots.txt to be fetched before the sitemap fetch is issued, so robots.txt
// and HTML are fetched first, then sitemap and llms.txt follow.
func (f *Fetcher) FetchAll(ctx context.Context, canonicalURL, origin string, log Logger) Artifacts {
	var wg sync.WaitGroup
	var art Artifacts

	wg.Add(2)
	go func() {
		defer wg.Done()
		art.HTML = f.fetchOne(ctx, canonicalURL, "text/html,*/*")
		logResult(log, "html", canonicalURL, art.HTML)
	}()
	go func() {
		defer wg.Done()
		art.RobotsTxt = f.fetchOne(ctx, origin+"/robots.txt", "text/plain,*/*")
		logResult(log, "robots.txt", origin+"/robots.txt", art.RobotsTxt)
	}()
	wg.Wait()

	sitemapURL := origin + "/sitemap.xml"
	if art.RobotsTxt.Success {
		if doc := robots.Parse(art.RobotsTxt.Body); doc.HasSitemapDirective() {
			sitemapURL = doc.FirstSitemap()
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		art.Sitemap = f.fetchOne(ctx, sitemapURL, "application/xml,text/xml,*/*")
		logResult(log, "sitemap", sitemapURL, art.Sitemap)
	}()
	go func() {
		defer wg.Done()
		art.LlmsTxt = f.fetchLlms(ctx, origin, log)
	}()
	wg.Wait()

	return art
}

// fetchLlms tries /llms.txt then /llms-full.txt, first success wins.
func (f *Fetcher) fetchLlms(ctx context.Context, origin string, log Logger) report.FetchResult {
	primary := f.fetchOne(ctx, origin+"/llms.txt", "text/plain,*/*")
	if primary.Success {
		logResult(log, "llms.txt", origin+"/llms.txt", primary)
		return primary
	}
	fallback := f.fetchOne(ctx, origin+"/llms-full.txt", "text/plain,*/*")
	logResult(log, "llms-full.txt", origin+"/llms-full.txt", fallback)
	return fallback
}

func logResult(log Logger, kind, url string, res report.FetchResult) {
	if log == nil {
		return
	}
	if res.Success {
		log.Info("fetched artifact", "kind", kind, "url", url, "bytes", humanize.Bytes(uint64(res.ContentLength)), "content_length", res.ContentLength, "ms", res.ResponseTimeMs)
	} else {
		log.Warn("artifact fetch failed", "kind", kind, "url", url, "error_tag", string(res.ErrorTag), "error", res.ErrorMessage)
	}
}

