package models

// GenesisBlockID is the deterministic height-0 block id every Axiom
// node seeds identically. A fixed literal rather than a computed hash:
// nodes that disagree about hashing still converge on height 0.
const GenesisBlockID = "31ab96debf7762ad5357bf2aa32cdb9f4958a63dec1a6e7f2a32ab808e50e9cd"

// GenesisCreatedAt is the fixed literal timestamp stamped on the
// genesis block on every node.
const GenesisCreatedAt = "1970-01-01T00:00:00Z"

// Block is one entry in the append-only chain of sealed fact-id
// batches. The json tags are the canonical wire shape served by
// /get_blocks_after and consumed during chain sync.
type Block struct {
	BlockID         string   `json:"block_id"`
	PreviousBlockID string   `json:"previous_block_id"`
	Height          int      `json:"height"`
	CreatedAtUTC    string   `json:"created_at_utc"`
	FactIDs         []string `json:"fact_ids"`
}

// IsGenesis reports whether b is the deterministic height-0 block.
func (b Block) IsGenesis() bool {
	return b.Height == 0
}

// Genesis returns the canonical genesis block every node seeds on
// first startup.
func Genesis() Block {
	return Block{
		BlockID:         GenesisBlockID,
		PreviousBlockID: "",
		Height:          0,
		CreatedAtUTC:    GenesisCreatedAt,
		FactIDs:         []string{},
	}
}
