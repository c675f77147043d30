package p2p

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/chain"
	"github.com/rawblock/axiom-node/internal/reputation"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

const getFactsByIDBatchSize = 50

// Syncer drives one node's outbound facts-sync and chain-sync passes
// against its known peers.
type Syncer struct {
	client       *Client
	store        *storage.Store
	chain        *chain.Chain
	tCorroborate int
	selfURL      string
	log          *logrus.Entry
	onResult     func(peerURL string, outcome models.SyncOutcome, newFacts int)
}

func NewSyncer(client *Client, store *storage.Store, ch *chain.Chain, tCorroborate int, selfURL string, log *logrus.Logger) *Syncer {
	return &Syncer{
		client:       client,
		store:        store,
		chain:        ch,
		tCorroborate: tCorroborate,
		selfURL:      selfURL,
		log:          log.WithField("component", "p2p"),
	}
}

// OnResult registers a callback fired after every completed peer sync,
// feeding the peer_sync_result stream event. Kept as an injected
// function rather than a dependency on the api package.
func (y *Syncer) OnResult(fn func(peerURL string, outcome models.SyncOutcome, newFacts int)) {
	y.onResult = fn
}

// SyncPeer runs facts sync then chain sync against one peer, and
// returns the facts-sync outcome tag and new-fact count used to adjust
// the peer's reputation.
func (y *Syncer) SyncPeer(ctx context.Context, peerURL string) (models.SyncOutcome, int) {
	outcome, newFacts := y.SyncFacts(ctx, peerURL)
	if outcome == models.SyncConnectionFailed || outcome == models.SyncError {
		return outcome, newFacts
	}

	if err := y.SyncChain(ctx, peerURL); err != nil {
		y.log.WithError(err).WithField("peer", peerURL).Warn("chain sync failed")
	}

	return outcome, newFacts
}

// SyncFacts pulls every fact id the peer has that the local node
// doesn't, verifies content hashes, and imports the survivors as
// uncorroborated.
func (y *Syncer) SyncFacts(ctx context.Context, peerURL string) (models.SyncOutcome, int) {
	peers, err := y.client.GetPeers(ctx, peerURL)
	if err != nil {
		y.log.WithError(err).WithField("peer", peerURL).Warn("get_peers failed")
		return models.SyncConnectionFailed, 0
	}
	for url, wp := range peers {
		if url == y.selfURL {
			continue
		}
		if err := y.store.UpsertPeer(url, wp.Reputation); err != nil {
			y.log.WithError(err).WithField("peer", url).Warn("failed to register discovered peer")
		}
	}

	remoteIDs, err := y.client.GetFactIDs(ctx, peerURL)
	if err != nil {
		y.log.WithError(err).WithField("peer", peerURL).Warn("get_fact_ids failed")
		return models.SyncConnectionFailed, 0
	}

	localIDs, err := y.store.ListFactIDs()
	if err != nil {
		y.log.WithError(err).Error("local ListFactIDs failed")
		return models.SyncError, 0
	}
	local := make(map[string]bool, len(localIDs))
	for _, id := range localIDs {
		local[id] = true
	}

	var missing []string
	for _, id := range remoteIDs {
		if !local[id] {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return models.SyncUpToDate, 0
	}

	newCount := 0
	for start := 0; start < len(missing); start += getFactsByIDBatchSize {
		end := start + getFactsByIDBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		facts, err := y.client.GetFactsByID(ctx, peerURL, batch)
		if err != nil {
			y.log.WithError(err).WithField("peer", peerURL).Warn("get_facts_by_id failed")
			return models.SyncError, newCount
		}

		for _, wf := range facts {
			if !contentHashMatches(wf.FactContent, wf.FactID) {
				y.log.WithFields(logrus.Fields{"peer": peerURL, "fact_id": wf.FactID}).
					Warn("dropped inbound fact: content hash mismatch")
				continue
			}

			// Remote trust_score is never imported verbatim:
			// InsertCandidateFact always seeds trust_score at 1,
			// regardless of what the peer reports, so local
			// corroboration discipline remains the only way a fact's
			// trust grows on this node.
			result, err := y.store.InsertCandidateFact(
				wf.FactID, wf.FactContent, wf.SourceURL,
				"", "", "", false,
				models.FragmentUnknown, 0, "",
			)
			if err != nil {
				y.log.WithError(err).WithField("fact_id", wf.FactID).Warn("failed to insert synced fact")
				continue
			}
			if result == storage.Created {
				newCount++
			}
			// Duplicate (primary-key collision) is silently skipped,
			// not routed through Corroborate: peer-imported facts
			// never went through this node's own extractor probes, so
			// there is no structural fingerprint to corroborate
			// against.
		}
	}

	if newCount == 0 {
		return models.SyncUpToDate, 0
	}
	return models.SyncNewFacts, newCount
}

// SyncChain compares chain heads with the peer and either appends the
// divergence in order or falls back to a full longest-chain
// replacement.
func (y *Syncer) SyncChain(ctx context.Context, peerURL string) error {
	_, peerHeight, err := y.client.GetChainHead(ctx, peerURL)
	if err != nil {
		return err
	}

	localHead, err := y.chain.Head()
	if err != nil {
		return err
	}
	if peerHeight <= localHead.Height {
		return nil
	}

	blocks, err := y.client.GetBlocksAfter(ctx, peerURL, localHead.Height)
	if err != nil {
		return err
	}

	diverged := false
	for _, b := range blocks {
		if err := y.chain.AppendPeerBlock(b); err != nil {
			diverged = true
			break
		}
	}
	if !diverged {
		return nil
	}

	fullChain, err := y.client.GetBlocksAfter(ctx, peerURL, 0)
	if err != nil {
		return err
	}
	return y.chain.ReplaceChain(fullChain)
}

func contentHashMatches(content, factID string) bool {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:]) == factID
}

// AdjustReputation applies the reward/penalty for one sync outcome and
// persists the new value.
func (y *Syncer) AdjustReputation(peerURL string, weights reputation.Weights, outcome models.SyncOutcome, newFacts int) error {
	peer, ok, err := y.store.GetPeer(peerURL)
	if err != nil {
		return err
	}
	current := weights.Initial
	if !ok {
		if err := y.store.UpsertPeer(peerURL, weights.Initial); err != nil {
			return err
		}
	} else {
		current = peer.Reputation
	}
	next := reputation.Adjust(weights, current, outcome, newFacts)
	return y.store.SetPeerReputation(peerURL, next)
}
