// Package metacognition implements the node's self-auditing pass:
// stale-and-shallow pruning (delegated to storage) and the fragment
// audit, which cross-checks a sample of suspected fragments against
// peer opinion before promoting or demoting them.
package metacognition

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/p2p"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

const (
	sampleSize   = 40
	peersPerFact = 3
	trustedFloor = 2
)

// Metacognition owns the fragment audit. Pruning lives on
// storage.Store directly (PruneShallowStale) since it needs no
// collaborators; it is invoked from the scheduler's main cycle, not
// from this package.
type Metacognition struct {
	store   *storage.Store
	engine  nlp.Engine
	client  *p2p.Client
	peerURL func() []string
	log     *logrus.Entry
}

func New(store *storage.Store, engine nlp.Engine, client *p2p.Client, peerURLs func() []string, log *logrus.Logger) *Metacognition {
	return &Metacognition{
		store:   store,
		engine:  engine,
		client:  client,
		peerURL: peerURLs,
		log:     log.WithField("component", "metacognition"),
	}
}

// RunFragmentAudit samples up to 40 non-disputed facts, recomputes the
// fragment heuristic, and for every fact it scores as a suspected
// fragment (whatever its stored state), queries
// up to 3 peers to decide whether to promote it to confirmed_fragment
// or demote it to rejected_fragment.
func (m *Metacognition) RunFragmentAudit(ctx context.Context) error {
	facts, err := m.store.SampleNonDisputedFacts(sampleSize)
	if err != nil {
		return err
	}

	// One correlation id per audit run so the per-fact log lines of a
	// single sample can be grouped in aggregated logs.
	log := m.log.WithField("audit_id", uuid.NewString())

	peers := m.peerURL()

	for _, f := range facts {
		sentences := m.engine.Sentences(f.Content)
		if len(sentences) == 0 {
			continue
		}
		state, score, reason := extractor.ScoreFragment(sentences[0])

		if state != models.FragmentSuspected {
			if state != f.FragmentState {
				if err := m.store.UpdateFragmentState(f.FactID, state, score, reason); err != nil {
					log.WithError(err).WithField("fact_id", f.FactID).Warn("failed to update fragment state")
				}
			}
			continue
		}

		positives, negatives := m.pollPeers(ctx, f.FactID, peers)

		final := state
		switch {
		case positives > 0 && negatives == 0:
			final = models.FragmentConfirmed
		case negatives > 0 && positives == 0:
			final = models.FragmentRejected
		}

		if err := m.store.UpdateFragmentState(f.FactID, final, score, reason); err != nil {
			log.WithError(err).WithField("fact_id", f.FactID).Warn("failed to update fragment state")
		}
	}
	return nil
}

// pollPeers queries up to peersPerFact peers for their opinion of
// factID and tallies positives/negatives. A peer that does not know
// the fact, or also classifies it as a fragment, counts positive; a
// peer that rejected it, or holds it as trusted with real
// corroboration, counts negative.
func (m *Metacognition) pollPeers(ctx context.Context, factID string, peers []string) (positives, negatives int) {
	n := len(peers)
	if n > peersPerFact {
		n = peersPerFact
	}

	for _, peerURL := range peers[:n] {
		op, err := m.client.GetFragmentOpinion(ctx, peerURL, factID)
		if err != nil {
			m.log.WithError(err).WithField("peer", peerURL).Debug("fragment_opinion query failed")
			continue
		}

		switch {
		case !op.Seen:
			positives++
		case op.FragmentState == string(models.FragmentRejected):
			negatives++
		case op.Status == string(models.StatusTrusted) && op.TrustScore >= trustedFloor:
			negatives++
		case op.FragmentState == string(models.FragmentSuspected) || op.FragmentState == string(models.FragmentConfirmed):
			positives++
		}
	}
	return positives, negatives
}
