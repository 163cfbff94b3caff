// Package htmldoc implements the HTML Parser & Shared Semantic Index (C3):
// HTML is parsed once into an immutable ParsedDocument exposing a
// goquery-based query surface, and a SemanticHTML5Index is computed in a
// single DOM walk so no analyzer needs to re-traverse the tree for heading
// or landmark structure.
package htmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/report"
	"golang.org/x/net/html"
)

// ParsedDocument is the immutable, read-only-after-construction handle
// every analyzer queries instead of reparsing HTML.
type ParsedDocument struct {
	doc     *goquery.Document
	rawHTML string
}

// Parse builds a ParsedDocument from raw HTML text.
func Parse(rawHTML string) (*ParsedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return &ParsedDocument{doc: doc, rawHTML: rawHTML}, nil
}

// Query returns the root goquery.Selection for ad hoc analyzer queries
// (tag/attribute/CSS selector). Analyzers read from it; none may mutate it.
func (p *ParsedDocument) Query() *goquery.Selection {
	return p.doc.Selection
}

// Find is a convenience wrapper around the root selection's Find.
func (p *ParsedDocument) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// RawLength returns the length in bytes of the original HTML document,
// used by the Accessibility analyzer's text-to-HTML ratio.
func (p *ParsedDocument) RawLength() int {
	return len(p.rawHTML)
}

// BodyText returns the concatenated text of <body>, or the whole document
// if there is no <body> element.
func (p *ParsedDocument) BodyText() string {
	if body := p.doc.Find("body"); body.Length() > 0 {
		return body.Text()
	}
	return p.doc.Text()
}

// HeadingPosition records one heading's level, text, and DOM-order index.
type HeadingPosition struct {
	Level int
	Text  string
	Order int
}

// NavInfo records one <nav> element's ARIA labeling and DOM-order index.
type NavInfo struct {
	HasAriaLabel bool
	Order        int
}

// SemanticHTML5Index is the precomputed structural summary shared
// read-only by every analyzer that needs landmark or heading information.
type SemanticHTML5Index struct {
	Headings []HeadingPosition

	MainCount    int
	NavCount     int
	AsideCount   int
	HeaderCount  int
	FooterCount  int
	ArticleCount int
	SectionCount int

	Navs []NavInfo
}

var headingTags = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}
var landmarkTags = map[string]bool{
	"main": true, "nav": true, "aside": true, "header": true,
	"footer": true, "article": true, "section": true,
}

// BuildSemanticIndex walks the parsed document once (via the x/net/html
// tree goquery itself wraps) recording heading and landmark counts and DOM
// order, per SPEC_FULL.md §4.3.
func BuildSemanticIndex(p *ParsedDocument) *SemanticHTML5Index {
	idx := &SemanticHTML5Index{}
	order := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			if level, ok := headingTags[tag]; ok {
				idx.Headings = append(idx.Headings, HeadingPosition{
					Level: level,
					Text:  collectText(n),
					Order: order,
				})
				order++
			} else if landmarkTags[tag] {
				switch tag {
				case "main":
					idx.MainCount++
				case "nav":
					idx.NavCount++
					idx.Navs = append(idx.Navs, NavInfo{
						HasAriaLabel: hasAnyAttr(n, "aria-label", "aria-labelledby"),
						Order:        order,
					})
				case "aside":
					idx.AsideCount++
				case "header":
					idx.HeaderCount++
				case "footer":
					idx.FooterCount++
				case "article":
					idx.ArticleCount++
				case "section":
					idx.SectionCount++
				}
				order++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, node := range p.doc.Nodes {
		walk(node)
	}
	return idx
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func hasAnyAttr(n *html.Node, names ...string) bool {
	for _, a := range n.Attr {
		for _, name := range names {
			if strings.EqualFold(a.Key, name) && strings.TrimSpace(a.Val) != "" {
				return true
			}
		}
	}
	return false
}

// ExtractBasicMetadata reads the handful of <head> facts shared by
// analyzers: title, meta description, charset, viewport, canonical link,
// and the meta robots directive.
func ExtractBasicMetadata(p *ParsedDocument) report.BasicMetadata {
	meta := report.BasicMetadata{}
	meta.Title = strings.TrimSpace(p.doc.Find("title").First().Text())

	p.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		switch strings.ToLower(name) {
		case "description":
			if meta.MetaDescription == "" {
				meta.MetaDescription = content
			}
		case "viewport":
			if meta.Viewport == "" {
				meta.Viewport = content
			}
		case "robots":
			if meta.MetaRobots == "" {
				meta.MetaRobots = content
			}
		}
		if charset, ok := s.Attr("charset"); ok && meta.Charset == "" {
			meta.Charset = charset
		}
	})

	if href, ok := p.doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.Canonical = href
	}
	return meta
}
