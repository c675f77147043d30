package models

import "time"

// FactStatus is the lifecycle state of a Fact.
type FactStatus string

const (
	StatusUncorroborated FactStatus = "uncorroborated"
	StatusTrusted        FactStatus = "trusted"
	StatusDisputed       FactStatus = "disputed"
)

// FragmentState tracks metacognitive confidence that a Fact is a
// context-dependent stub rather than a standalone assertion.
type FragmentState string

const (
	FragmentUnknown   FragmentState = "unknown"
	FragmentSuspected FragmentState = "suspected_fragment"
	FragmentConfirmed FragmentState = "confirmed_fragment"
	FragmentRejected  FragmentState = "rejected_fragment"
)

// Fact is the atomic unit of the ledger: a declarative sentence that
// survived the extractor's filters, identified by the SHA-256 of its
// canonical UTF-8 content.
type Fact struct {
	FactID               string
	Content              string // decompressed, canonical UTF-8
	SourceURL            string
	IngestTimestamp      time.Time
	TrustScore           int
	Status               FactStatus
	CorroboratingSources []string
	ContradictsFactID    string
	LexicallyProcessed   bool
	ADLSummary           string
	FragmentState        FragmentState
	FragmentScore        float64
	FragmentReason       string
}

// WireFact is the canonical over-the-wire representation:
// content decompressed, only the fields a peer needs to verify and
// import a fact.
type WireFact struct {
	FactID             string `json:"fact_id"`
	FactContent        string `json:"fact_content"`
	SourceURL          string `json:"source_url"`
	IngestTimestampUTC string `json:"ingest_timestamp_utc"`
	TrustScore         int    `json:"trust_score"`
	Status             string `json:"status"`
}

// ToWire projects a Fact onto its wire representation.
func (f Fact) ToWire() WireFact {
	return WireFact{
		FactID:             f.FactID,
		FactContent:        f.Content,
		SourceURL:          f.SourceURL,
		IngestTimestampUTC: f.IngestTimestamp.UTC().Format(time.RFC3339),
		TrustScore:         f.TrustScore,
		Status:             string(f.Status),
	}
}
