// Package scheduler drives the single background cooperative loop
// every node runs: one goroutine alternating between main_cycle and
// idle_suite, cooperatively cancellable at every sleep.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/chain"
	"github.com/rawblock/axiom-node/internal/config"
	"github.com/rawblock/axiom-node/internal/conversation"
	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/feed"
	"github.com/rawblock/axiom-node/internal/mesh"
	"github.com/rawblock/axiom-node/internal/metacognition"
	"github.com/rawblock/axiom-node/internal/p2p"
	"github.com/rawblock/axiom-node/internal/query"
	"github.com/rawblock/axiom-node/internal/reputation"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/internal/synthesizer"
)

// Scheduler owns the main/idle cooperative loop. It has no exported
// state beyond the collaborators it orchestrates; tests drive
// MainCycle and the idle tasks directly rather than the loop's timing.
type Scheduler struct {
	cfg *config.Config

	store       *storage.Store
	feed        feed.ArticleFetcher
	extractor   *extractor.Extractor
	synthesizer *synthesizer.Synthesizer
	chain       *chain.Chain
	reflector   *mesh.Reflector
	meta        *metacognition.Metacognition
	syncer      *p2p.Syncer
	weights     reputation.Weights
	conv        *conversation.Compiler
	query       *query.Engine

	topicIdx int
	log      *logrus.Entry

	idleState        *idleThrottle
	onBlockCommitted func(blockID string, factIDs []string)
	endpointRegistry func() []string
}

// SetEndpointRegistry registers the closure the idle suite's
// endpoint-registry refresh task calls to enumerate the HTTP routes
// currently exposed. Injected rather than imported directly since the
// router is only built after the Scheduler (mirrors OnBlockCommitted's
// callback-injection pattern).
func (s *Scheduler) SetEndpointRegistry(fn func() []string) {
	s.endpointRegistry = fn
}

// OnBlockCommitted registers a callback fired whenever MainCycle seals
// a new block, feeding the fact_committed stream event. Injected
// rather than importing the api package directly.
func (s *Scheduler) OnBlockCommitted(fn func(blockID string, factIDs []string)) {
	s.onBlockCommitted = fn
}

func New(
	cfg *config.Config,
	store *storage.Store,
	f feed.ArticleFetcher,
	e *extractor.Extractor,
	s *synthesizer.Synthesizer,
	c *chain.Chain,
	r *mesh.Reflector,
	m *metacognition.Metacognition,
	syncer *p2p.Syncer,
	weights reputation.Weights,
	conv *conversation.Compiler,
	q *query.Engine,
	log *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		store:       store,
		feed:        f,
		extractor:   e,
		synthesizer: s,
		chain:       c,
		reflector:   r,
		meta:        m,
		syncer:      syncer,
		weights:     weights,
		conv:        conv,
		query:       q,
		log:         log.WithField("component", "scheduler"),
		idleState:   newIdleThrottle(),
	}
}

// Run blocks, alternating main_cycle and idle_suite on their own
// intervals, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler starting")

	lastMain := time.Now()
	lastIdle := time.Now()

	tick := s.cfg.IdleTickInterval
	if tick <= 0 {
		tick = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		default:
		}

		now := time.Now()
		switch {
		case now.Sub(lastMain) >= s.cfg.MainCycleInterval:
			s.MainCycle(ctx)
			lastMain = time.Now()
		case now.Sub(lastIdle) >= s.cfg.IdleSuiteInterval:
			s.IdleSuite(ctx)
			lastIdle = time.Now()
		default:
			mainRemaining := s.cfg.MainCycleInterval - now.Sub(lastMain)
			idleRemaining := s.cfg.IdleSuiteInterval - now.Sub(lastIdle)
			sleep := mainRemaining
			if idleRemaining < sleep {
				sleep = idleRemaining
			}
			if sleep > tick {
				sleep = tick
			}
			if sleep < 0 {
				sleep = 0
			}
			select {
			case <-ctx.Done():
				s.log.Info("scheduler stopping")
				return
			case <-time.After(sleep):
			}
		}
	}
}

// MainCycle runs one full ingest-to-seal pass: pick a topic, fetch
// articles, extract and synthesize facts, seal them into a block, sync
// every peer, then run reflection and housekeeping.
func (s *Scheduler) MainCycle(ctx context.Context) {
	s.log.Info("main cycle starting")

	// Drain any stale peer-block signal so the pre-seal check below
	// only reacts to blocks arriving during this cycle.
	select {
	case <-s.chain.BlockReceived():
	default:
	}

	topic := s.nextTopic()
	articles, err := s.feed.FetchArticles(ctx, topic, 3)
	if err != nil {
		s.log.WithError(err).WithField("topic", topic).Warn("article fetch failed")
	}

	var created []string
	for _, a := range articles {
		facts, err := s.extractor.Extract(a.URL, a.Text)
		if err != nil {
			s.log.WithError(err).WithField("url", a.URL).Warn("extraction failed")
			continue
		}
		if len(facts) == 0 {
			continue
		}
		if err := s.synthesizer.Run(facts); err != nil {
			s.log.WithError(err).Warn("synthesis failed")
		}
		for _, f := range facts {
			created = append(created, f.FactID)
		}
	}

	if len(created) > 0 {
		s.sealBlock(created)
	}

	s.runPeerPass(ctx)

	if processed, err := s.reflector.Run(); err != nil {
		s.log.WithError(err).Warn("reflection failed")
	} else if processed > 0 {
		s.log.WithField("processed", processed).Info("reflection processed facts")
	}

	if n, err := s.store.PruneShallowStale(s.cfg.MetaPruneTTL); err != nil {
		s.log.WithError(err).Warn("metacognition prune failed")
	} else if n > 0 {
		s.log.WithField("count", n).Info("pruned shallow stale facts")
	}

	if n, err := s.store.DeleteStaleUncorroborated(s.cfg.UncorroboratedTTL); err != nil {
		s.log.WithError(err).Warn("uncorroborated housekeeping failed")
	} else if n > 0 {
		s.log.WithField("count", n).Info("deleted stale uncorroborated facts")
	}

	s.log.Info("main cycle complete")
}

// sealBlock commits factIDs on top of the current head. If a peer
// block arrived while this cycle was extracting, the candidate is
// rebased by simply re-reading the head; a height race with a block
// landing between the read and the insert surfaces as a storage
// error, in which case the seal is retried once on the new head; if
// that also fails the candidate block is discarded and the batch's
// facts stay stored but are not sealed into any block.
func (s *Scheduler) sealBlock(factIDs []string) {
	select {
	case <-s.chain.BlockReceived():
		s.log.Info("peer block arrived during extraction; sealing on the new head")
	default:
	}

	for attempt := 0; attempt < 2; attempt++ {
		block, err := s.chain.CreateBlock(factIDs)
		if err == nil {
			s.log.WithField("count", len(factIDs)).Info("committed new facts to chain")
			if s.onBlockCommitted != nil {
				s.onBlockCommitted(block.BlockID, factIDs)
			}
			return
		}
		s.log.WithError(err).Warn("block creation failed")
	}
}

func (s *Scheduler) runPeerPass(ctx context.Context) {
	peers, err := s.store.ListPeersByReputation()
	if err != nil {
		s.log.WithError(err).Warn("failed to list peers for sync pass")
		return
	}
	if len(peers) == 0 {
		return
	}

	urls := make([]string, len(peers))
	for i, p := range peers {
		urls[i] = p.URL
	}
	s.syncer.SyncAll(ctx, urls, s.weights, p2p.DefaultFanout)
}

func (s *Scheduler) nextTopic() string {
	topics := s.cfg.Topics
	if len(topics) == 0 {
		return ""
	}
	topic := topics[s.topicIdx%len(topics)]
	s.topicIdx++
	return topic
}

// IdleSuite runs the throttled idle task group.
func (s *Scheduler) IdleSuite(ctx context.Context) {
	s.runIfDue("relationship_rediscovery", s.cfg.RelationshipRediscoveryInterval, func() error {
		facts, err := s.store.SampleFactsForSynthesis(30)
		if err != nil {
			return err
		}
		return s.synthesizer.Run(facts)
	})

	s.advanceConversationTraining()

	s.runIfDue("endpoint_registry_refresh", s.cfg.EndpointRegistryRefreshInterval, func() error {
		if s.endpointRegistry == nil {
			return nil
		}
		routes := s.endpointRegistry()
		s.log.WithField("count", len(routes)).Info("refreshed endpoint registry")
		return nil
	})

	s.runIfDue("data_quality_scan", s.cfg.DataQualityScanInterval, func() error {
		conflicts, duplicates, err := s.extractor.RunDataQualityScan()
		if err != nil {
			return err
		}
		if conflicts > 0 || duplicates > 0 {
			s.log.WithField("conflicts", conflicts).WithField("duplicate_candidates", duplicates).
				Info("data quality scan found candidates")
		}
		return nil
	})

	s.runIfDue("fragment_audit", s.cfg.FragmentAuditInterval, func() error {
		return s.meta.RunFragmentAudit(ctx)
	})

	s.runIfDue("health_snapshot", s.cfg.HealthSnapshotInterval, func() error {
		st, err := s.store.Stats()
		if err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"facts":         st.Facts,
			"trusted":       st.TrustedFacts,
			"disputed":      st.DisputedFacts,
			"relationships": st.Relationships,
			"atoms":         st.Atoms,
			"synapses":      st.Synapses,
			"peers":         st.Peers,
			"chain_height":  st.ChainHeight,
		}).Info("health snapshot")
		return nil
	})

	s.runIfDue("self_check", s.cfg.SelfCheckInterval, func() error {
		return s.selfCheckThink()
	})
}

// selfCheckThink drives the query path end to end against the content
// of a random stored fact, proving the decompress-scan-rank pipeline
// still answers. An empty ledger passes vacuously.
func (s *Scheduler) selfCheckThink() error {
	if s.query == nil {
		return nil
	}
	sample, err := s.store.SampleFactsForSynthesis(1)
	if err != nil {
		return err
	}
	if len(sample) == 0 {
		s.log.Info("self-check: ledger empty, nothing to probe")
		return nil
	}

	answer, err := s.query.Ask("self-check", sample[0].Content)
	if err != nil {
		return err
	}
	if len(answer.Hits) == 0 {
		s.log.WithField("fact_id", sample[0].FactID).
			Warn("self-check: query path returned no hits for a stored fact")
		return nil
	}
	s.log.WithField("hits", len(answer.Hits)).Info("self-check: query path healthy")
	return nil
}

// advanceConversationTraining compiles a small batch of conversation
// patterns per idle tick. Unlike the other idle tasks it has no minimum
// re-run interval of its own: it nudges the batch forward every
// idle_suite call until the full set is compiled, then becomes a no-op.
func (s *Scheduler) advanceConversationTraining() {
	if s.conv == nil {
		return
	}
	compiled, done := s.conv.AdvanceCompilation(2)
	if compiled > 0 && done {
		s.log.WithField("count", s.conv.Total()).Info("conversation patterns ready")
	}
}

// runIfDue runs task if its own minimum re-run interval has elapsed,
// throttling "skipped — waiting" logs to once per 60s per task name.
func (s *Scheduler) runIfDue(name string, interval time.Duration, task func() error) {
	if !s.idleState.due(name, interval) {
		s.idleState.logSkipThrottled(s.log, name)
		return
	}
	if err := task(); err != nil {
		s.log.WithError(err).WithField("task", name).Warn("idle task failed")
	}
	s.idleState.markRan(name)
}
