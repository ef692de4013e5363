// Package classify decides whether a URL is trackable and extracts its
// normalized hostname. It never returns an error: a malformed URL
// yields an empty hostname, which callers treat as a no-op rather than
// as a session boundary.
package classify

import (
	"net/url"
	"strings"
)

// ignoredPrefixes covers browser-internal surfaces across the major
// Chromium derivatives plus extension and about: pages.
var ignoredPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"about:",
	"edge://",
	"opera://",
	"vivaldi://",
	"brave://",
}

// Result is the classification of one URL. Ignored means the URL is a
// non-trackable surface and ends attribution; an empty Hostname with
// Ignored=false means the URL was malformed and should be skipped
// without touching any open session. The two states are distinct.
type Result struct {
	Ignored  bool
	Hostname string
}

// Classify reports whether rawURL should be tracked and, if so, the
// lower-cased host component to attribute time to.
func Classify(rawURL string) Result {
	if rawURL == "" {
		return Result{Ignored: true}
	}
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return Result{Ignored: true}
		}
	}
	if rawURL == "about:blank" || rawURL == "about:newtab" {
		return Result{Ignored: true}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}
	}
	return Result{Hostname: strings.ToLower(u.Hostname())}
}
