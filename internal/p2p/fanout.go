package p2p

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/axiom-node/internal/reputation"
)

// DefaultFanout bounds how many peers are synced concurrently during
// one main cycle's peer pass. The scheduler is a single thread; its
// outbound fan-out is explicitly bounded rather than unbounded.
const DefaultFanout = 4

// SyncAll runs SyncPeer against every url in peerURLs, bounded to at
// most fanout concurrent in-flight syncs, and adjusts each peer's
// reputation from its own outcome. Peers are expected to already be in
// reputation-sorted order (storage.ListPeersByReputation); with a
// limit set, g.Go blocks until a slot is free and launches in slice
// order, so the highest-reputation peers are dialed before lower ones.
func (y *Syncer) SyncAll(ctx context.Context, peerURLs []string, weights reputation.Weights, fanout int) {
	if fanout <= 0 {
		fanout = DefaultFanout
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)

	for _, url := range peerURLs {
		url := url
		g.Go(func() error {
			outcome, newFacts := y.SyncPeer(ctx, url)
			if err := y.AdjustReputation(url, weights, outcome, newFacts); err != nil {
				y.log.WithError(err).WithField("peer", url).Warn("failed to persist reputation adjustment")
			}
			if y.onResult != nil {
				y.onResult(url, outcome, newFacts)
			}
			return nil
		})
	}

	// Every goroutine swallows its own error into a log line and
	// always returns nil, so Wait only blocks until they finish and
	// always returns nil.
	_ = g.Wait()
}
