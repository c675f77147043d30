package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	runOnYearPattern   = regexp.MustCompile(`(\d{4}\.)([A-Z])`)
	runOnPeriodPattern = regexp.MustCompile(`([a-z])\.([A-Z])`)
)

// sanitize strips HTML, collapses whitespace, repairs the two run-on
// patterns the source text commonly exhibits (a year or lowercase word
// directly followed by a capitalized sentence with no separating
// space), and normalizes to NFC.
//
// NFC normalization happens here, before hasher.FactID ever sees the
// string: two sources can represent the same sentence with different
// combining-character sequences (e.g. precomposed "é" vs "e" + a
// combining acute accent), and since fact_id is the hash of the
// canonical content, peers that skip normalization would compute
// different ids for the same fact.
func sanitize(raw string) string {
	stripped := htmlTagPattern.ReplaceAllString(raw, " ")
	stripped = runOnYearPattern.ReplaceAllString(stripped, "$1 $2")
	stripped = runOnPeriodPattern.ReplaceAllString(stripped, "$1. $2")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	stripped = norm.NFC.String(stripped)
	return strings.TrimSpace(stripped)
}
