// Package validate normalizes user-supplied URLs to a canonical absolute
// form and rejects anything unsafe or unparseable (C1 in SPEC_FULL.md).
package validate

import (
	"fmt"
	"net/url"
	"strings"
)

const maxURLLength = 2048

// Error is the ValidationError kind from SPEC_FULL.md §7. It is the only
// error kind that aborts an audit.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid url: %s", e.Reason)
}

// Canonicalize trims the input, defaults a missing scheme to https, and
// returns the canonical absolute URL string. It rejects non-http(s) schemes,
// missing hosts, parse failures, and inputs longer than 2048 characters.
func Canonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &Error{Reason: "empty input"}
	}
	if len(trimmed) > maxURLLength {
		return "", &Error{Reason: fmt.Sprintf("exceeds %d characters", maxURLLength)}
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", &Error{Reason: fmt.Sprintf("parse failure: %v", err)}
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return "", &Error{Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}

	if u.Host == "" {
		return "", &Error{Reason: "missing host"}
	}

	canonical := u.String()
	if len(canonical) > maxURLLength {
		return "", &Error{Reason: fmt.Sprintf("exceeds %d characters", maxURLLength)}
	}
	return canonical, nil
}

// Origin returns scheme://host (no path, query, or fragment) for u, used to
// resolve robots.txt / sitemap.xml / llms.txt locations.
func Origin(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", fmt.Errorf("parsing canonical url: %w", err)
	}
	return u.Scheme + "://" + u.Host, nil
}
