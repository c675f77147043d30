// Package hasher implements Axiom's deterministic content hashing.
// Every node must compute identical ids for identical content, so
// canonicalization here is load-bearing: any deviation in key order,
// whitespace, or sort order makes peers disagree about object
// identity.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// FactID returns the lowercase hex SHA-256 digest of the canonical
// UTF-8 sentence content. Hash over the canonical string, never over
// compressed bytes; hashing compressed bytes would make the id
// depend on the compressor's output.
func FactID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// BlockID computes the SHA-256 of the canonical block payload: sorted
// keys, no whitespace, UTF-8, fact_ids sorted lexicographically. The
// stdlib preserves struct field order when marshaling, so the payload
// is built as a map (encoding/json sorts map keys) instead of
// relying on struct field order.
func BlockID(previousBlockID string, height int, createdAtUTC string, factIDs []string) string {
	sorted := make([]string, len(factIDs))
	copy(sorted, factIDs)
	sort.Strings(sorted)

	payload := canonicalJSON(map[string]interface{}{
		"previous_block_id": previousBlockID,
		"height":            height,
		"created_at_utc":    createdAtUTC,
		"fact_ids":          sorted,
	})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON marshals v with object keys sorted and no insignificant
// whitespace. encoding/json already sorts map[string]interface{} keys
// lexicographically and emits no extraneous whitespace via Marshal, so
// this is a thin, explicit wrapper documenting that guarantee rather
// than a from-scratch canonicalizer.
func canonicalJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// v is always a map[string]interface{} of strings/ints/slices
		// built internally; a marshal failure here means a programming
		// error, not a runtime condition callers can recover from.
		panic("hasher: canonical payload failed to marshal: " + err.Error())
	}
	return b
}
