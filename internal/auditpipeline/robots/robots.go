// Package robots parses robots.txt per SPEC_FULL.md §6: case-normalized
// keys, '#' comments, User-agent groups accumulating Allow/Disallow paths,
// and a separately extracted Sitemap directive. It is shared by the
// Artifact Fetcher (C2, to resolve the sitemap location) and the
// Discoverability analyzer (C5, to decide AI bot access).
package robots

import (
	"bufio"
	"strings"
)

// Group holds the Allow/Disallow paths declared for one or more
// User-agent names (robots.txt allows several User-agent lines to share one
// rule block).
type Group struct {
	Agents    []string
	Allow     []string
	Disallow  []string
}

// Doc is a parsed robots.txt.
type Doc struct {
	Groups   []Group
	Sitemaps []string
}

// Parse reads raw robots.txt text into a Doc. Malformed or empty input
// yields a Doc with no groups, which callers should treat as "allow all"
// per the wildcard-group-absent rule.
func Parse(raw string) *Doc {
	doc := &Doc{}
	scanner := bufio.NewScanner(strings.NewReader(raw))

	var current *Group
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if current != nil && len(current.Allow) == 0 && len(current.Disallow) == 0 && len(current.Agents) > 0 {
				// Previous group declared no rules yet — a fresh
				// User-agent line here still extends it (multiple
				// consecutive User-agent lines share one block).
				current.Agents = append(current.Agents, value)
				continue
			}
			doc.Groups = append(doc.Groups, Group{Agents: []string{value}})
			current = &doc.Groups[len(doc.Groups)-1]
		case "allow":
			if current != nil {
				current.Allow = append(current.Allow, value)
			}
		case "disallow":
			if current != nil {
				current.Disallow = append(current.Disallow, value)
			}
		case "sitemap":
			if value != "" {
				doc.Sitemaps = append(doc.Sitemaps, value)
			}
		}
	}
	return doc
}

// groupFor returns the rule group matching bot (case-insensitive exact
// agent match), falling back to the "*" wildcard group, or nil if neither
// exists.
func (d *Doc) groupFor(bot string) *Group {
	var wildcard *Group
	for i := range d.Groups {
		g := &d.Groups[i]
		for _, agent := range g.Agents {
			if agent == "*" {
				wildcard = g
			}
			if strings.EqualFold(agent, bot) {
				return g
			}
		}
	}
	return wildcard
}

// Allowed reports whether bot may access path "/", per SPEC_FULL.md §6: a
// bot is blocked if its own group (or, absent one, the "*" group) contains
// `Disallow: /` without a more specific `Allow: /`. An empty robots.txt (no
// groups at all) allows everything.
func (d *Doc) Allowed(bot string) bool {
	if len(d.Groups) == 0 {
		return true
	}
	group := d.groupFor(bot)
	if group == nil {
		return true
	}
	return pathAllowed(group, "/")
}

func pathAllowed(g *Group, path string) bool {
	bestAllow := -1
	for _, a := range g.Allow {
		if a != "" && strings.HasPrefix(path, a) && len(a) > bestAllow {
			bestAllow = len(a)
		}
	}
	bestDisallow := -1
	for _, dPath := range g.Disallow {
		if dPath != "" && strings.HasPrefix(path, dPath) && len(dPath) > bestDisallow {
			bestDisallow = len(dPath)
		}
	}
	if bestDisallow < 0 {
		return true
	}
	return bestAllow >= bestDisallow
}

// HasSitemapDirective reports whether the robots.txt declared any Sitemap:
// line.
func (d *Doc) HasSitemapDirective() bool {
	return len(d.Sitemaps) > 0
}

// FirstSitemap returns the first declared Sitemap: URL, or "" if none.
func (d *Doc) FirstSitemap() string {
	if len(d.Sitemaps) == 0 {
		return ""
	}
	return d.Sitemaps[0]
}
