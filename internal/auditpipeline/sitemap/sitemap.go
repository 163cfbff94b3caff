// Package sitemap extracts <loc> and <lastmod> values from a sitemap.xml
// document. Malformed XML never aborts the audit — Parse reports it via
// Result.Malformed and Result.ParseError and still returns whatever URLs
// were recovered before the parse broke.
package sitemap

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/araddon/dateparse"
)

// URLEntry is one <url> (or <sitemap>, for sitemap-index files) entry.
type URLEntry struct {
	Loc     string
	LastMod string
}

// Result is the outcome of parsing a sitemap document.
type Result struct {
	Entries     []URLEntry
	Malformed   bool
	ParseError  string
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []rawEntry `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	Sitemaps []rawEntry `xml:"sitemap"`
}

type rawEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Parse decodes sitemap XML, handling both <urlset> and <sitemapindex>
// roots. On malformed XML it returns whatever entries were parsed before
// the error, with Malformed=true and ParseError populated.
func Parse(raw string) Result {
	var set urlset
	if err := xml.Unmarshal([]byte(raw), &set); err == nil && len(set.URLs) > 0 {
		return Result{Entries: toEntries(set.URLs)}
	}

	var idx sitemapIndex
	if err := xml.Unmarshal([]byte(raw), &idx); err == nil && len(idx.Sitemaps) > 0 {
		return Result{Entries: toEntries(idx.Sitemaps)}
	}

	// Neither root matched cleanly; fall back to a best-effort decoder
	// that keeps whatever <url> elements it can recover.
	entries, err := recoverEntries(raw)
	if err != nil {
		return Result{Entries: entries, Malformed: true, ParseError: err.Error()}
	}
	if len(entries) == 0 {
		return Result{Malformed: true, ParseError: "no <url> or <sitemap> entries found"}
	}
	return Result{Entries: entries}
}

func toEntries(raw []rawEntry) []URLEntry {
	out := make([]URLEntry, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Loc) == "" {
			continue
		}
		out = append(out, URLEntry{Loc: strings.TrimSpace(r.Loc), LastMod: strings.TrimSpace(r.LastMod)})
	}
	return out
}

// recoverEntries tolerantly scans <url>...</url> blocks via the streaming
// decoder, recovering whatever is well-formed before a terminal error.
func recoverEntries(raw string) ([]URLEntry, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var entries []URLEntry
	var cur *URLEntry
	var inLoc, inLastMod bool

	for {
		tok, err := dec.Token()
		if err != nil {
			if cur != nil && cur.Loc != "" {
				entries = append(entries, *cur)
			}
			if err == io.EOF {
				return entries, nil
			}
			return entries, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "url", "sitemap":
				cur = &URLEntry{}
			case "loc":
				inLoc = cur != nil
			case "lastmod":
				inLastMod = cur != nil
			}
		case xml.CharData:
			if inLoc {
				cur.Loc += string(t)
			} else if inLastMod {
				cur.LastMod += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "loc":
				inLoc = false
			case "lastmod":
				inLastMod = false
			case "url", "sitemap":
				if cur != nil && strings.TrimSpace(cur.Loc) != "" {
					cur.Loc = strings.TrimSpace(cur.Loc)
					cur.LastMod = strings.TrimSpace(cur.LastMod)
					entries = append(entries, *cur)
				}
				cur = nil
			}
		}
	}
}

// HasAnyLastMod reports whether at least one entry carries a parseable
// <lastmod> value.
func (r Result) HasAnyLastMod() bool {
	for _, e := range r.Entries {
		if e.LastMod == "" {
			continue
		}
		if _, err := dateparse.ParseAny(e.LastMod); err == nil {
			return true
		}
	}
	return false
}
