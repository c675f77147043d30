package p2p

import "github.com/rawblock/axiom-node/pkg/models"

// PeerHeader is the header every outbound sync request carries so the
// callee can register the caller.
const PeerHeader = "X-Axiom-Peer"

type getPeersResponse struct {
	Peers map[string]models.WirePeer `json:"peers"`
}

type getChainHeadResponse struct {
	BlockID string `json:"block_id"`
	Height  int    `json:"height"`
}

type getBlocksAfterResponse struct {
	Blocks []models.Block `json:"blocks"`
}

type getFactIDsResponse struct {
	FactIDs []string `json:"fact_ids"`
}

type getFactsByIDRequest struct {
	FactIDs []string `json:"fact_ids"`
}

type getFactsByIDResponse struct {
	Facts []models.WireFact `json:"facts"`
}

// FragmentOpinion is the wire shape of GET /fragment_opinion: a
// peer's own classification of a fact_id it may or may not know
// about.
type FragmentOpinion struct {
	Seen          bool    `json:"seen"`
	Status        string  `json:"status,omitempty"`
	TrustScore    int     `json:"trust_score,omitempty"`
	FragmentState string  `json:"fragment_state,omitempty"`
	FragmentScore float64 `json:"fragment_score,omitempty"`
}
