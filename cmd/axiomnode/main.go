package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/api"
	"github.com/rawblock/axiom-node/internal/chain"
	"github.com/rawblock/axiom-node/internal/config"
	"github.com/rawblock/axiom-node/internal/conversation"
	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/feed"
	"github.com/rawblock/axiom-node/internal/mesh"
	"github.com/rawblock/axiom-node/internal/metacognition"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/p2p"
	"github.com/rawblock/axiom-node/internal/query"
	"github.com/rawblock/axiom-node/internal/reputation"
	"github.com/rawblock/axiom-node/internal/scheduler"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/internal/synthesizer"
	"github.com/rawblock/axiom-node/pkg/models"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := storage.Open(cfg.DBPath, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()

	ch := chain.New(store, log)
	if err := ch.EnsureGenesis(); err != nil {
		log.WithError(err).Fatal("failed to seed genesis block")
	}

	nlpEngine := nlp.NewRuleEngine()
	ext := extractor.New(store, nlpEngine, cfg.TCorroborate, log)
	synth := synthesizer.New(store, nlpEngine, log)
	reflector := mesh.New(store, nlpEngine, log)
	qEngine := query.New(store, nlpEngine)
	fetcher := feed.New(cfg.FeedSources, cfg.ArticleTimeout, log)

	client := p2p.NewClient(cfg.AdvertisedURL, cfg.ControlTimeout, cfg.BulkTimeout)
	client.SetMeshToken(cfg.MeshAuthToken)
	syncer := p2p.NewSyncer(client, store, ch, cfg.TCorroborate, cfg.AdvertisedURL, log)

	peerURLs := func() []string {
		peers, err := store.ListPeersByReputation()
		if err != nil {
			log.WithError(err).Warn("failed to list peers for fragment audit")
			return nil
		}
		urls := make([]string, len(peers))
		for i, p := range peers {
			urls[i] = p.URL
		}
		return urls
	}
	meta := metacognition.New(store, nlpEngine, client, peerURLs, log)

	weights := reputation.Weights{
		Initial:      cfg.InitialReputation,
		PenaltyFail:  cfg.PenaltyFail,
		RewardUptime: cfg.RewardUptime,
		RewardData:   cfg.RewardDataFactor,
	}

	hub := api.NewHub(log)
	go hub.Run()

	conv := conversation.NewCompiler()

	sched := scheduler.New(cfg, store, fetcher, ext, synth, ch, reflector, meta, syncer, weights, conv, qEngine, log)
	sched.OnBlockCommitted(func(blockID string, factIDs []string) {
		hub.BroadcastEvent("fact_committed", map[string]interface{}{
			"block_id": blockID,
			"fact_ids": factIDs,
		})
	})
	syncer.OnResult(func(peerURL string, outcome models.SyncOutcome, newFacts int) {
		hub.BroadcastEvent("peer_sync_result", map[string]interface{}{
			"peer":      peerURL,
			"outcome":   string(outcome),
			"new_facts": newFacts,
		})
	})

	if cfg.BootstrapPeer != "" {
		if err := store.UpsertPeer(cfg.BootstrapPeer, cfg.InitialReputation); err != nil {
			log.WithError(err).WithField("peer", cfg.BootstrapPeer).Warn("failed to register bootstrap peer")
		}
	}

	router := api.SetupRouter(store, ch, qEngine, conv, hub, cfg, log)
	sched.SetEndpointRegistry(func() []string { return api.RouteList(router) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	go func() {
		log.WithField("port", cfg.ListenPort).Info("axiom node listening")
		if err := router.Run(":" + cfg.ListenPort); err != nil {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	cancel()
}
