// Package domain normalizes source URLs to the base registrable
// domain used for corroboration counting: lowercased,
// collapsed to its last two dot-separated labels, so any subdomain of
// an origin (www., news., mirror., etc.) counts as the same source.
package domain

import "strings"

func Of(rawURL string) string {
	host := rawURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.Index(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	return baseDomain(host)
}

// baseDomain collapses a hostname to its last two dot-separated labels
// (the common "base registrable domain" heuristic; it does not
// consult a public-suffix list, so it treats e.g. "news.a.example" and
// "a.example" as the same source but would also collapse a two-label
// public suffix like "co.uk" incorrectly; not a concern for the single-
// label-plus-TLD sources this ledger corroborates against).
func baseDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
