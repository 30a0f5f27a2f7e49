package scraper

import (
	"net/url"
	"regexp"
)

// Listing URLs embed the numeric listing id as a trailing path segment
// suffix, e.g. /jobs/view/senior-go-engineer-at-acme-4012345678.
var listingIDPattern = regexp.MustCompile(`-(\d{10,12})(?:/|$)`)

// NormalizeJobURL canonicalizes a listing URL to origin + "/jobs/view/" + id.
// Inputs that fail to parse or carry no id segment are returned unchanged,
// which also makes the transform idempotent: a canonical URL has no hyphen
// ahead of the id and passes through untouched.
func NormalizeJobURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	m := listingIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + "/jobs/view/" + m[1]
}
