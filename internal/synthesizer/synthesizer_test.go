package synthesizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
)

func TestRun_InsertsRelationshipForSharedEntities(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	store, err := storage.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	defer store.Close()

	engine := nlp.NewRuleEngine()
	ext := extractor.New(store, engine, 100, log)
	syn := New(store, engine, log)

	first, err := ext.Extract("https://a.example/story", "Germany and France approved the Atlantic Climate Accord at the summit.")
	if err != nil || len(first) != 1 {
		t.Fatalf("extract first: created=%d err=%v", len(first), err)
	}

	second, err := ext.Extract("https://b.example/story", "Germany and France also signed the Pacific Trade Agreement at the summit.")
	if err != nil || len(second) != 1 {
		t.Fatalf("extract second: created=%d err=%v", len(second), err)
	}

	if err := syn.Run(second); err != nil {
		t.Fatalf("Run: %v", err)
	}

	synapses, err := store.SynapsesForWord("germany")
	if err != nil {
		t.Fatalf("SynapsesForWord: %v", err)
	}
	if len(synapses) == 0 {
		t.Errorf("expected a conceptual_bridge synapse involving germany, got none")
	}
}
