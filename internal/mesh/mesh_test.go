package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
)

func TestRun_ProcessesUnprocessedFactsAndUpsertsAtoms(t *testing.T) {
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
	reflector := New(store, engine, log)

	created, err := ext.Extract("https://a.example/story", "Germany and France approved the Atlantic Climate Accord at the summit.")
	if err != nil || len(created) != 1 {
		t.Fatalf("extract: created=%d err=%v", len(created), err)
	}

	processed, err := reflector.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 fact processed, got %d", processed)
	}

	count, err := store.AtomOccurrenceCount("germany")
	if err != nil {
		t.Fatalf("AtomOccurrenceCount: %v", err)
	}
	if count == 0 {
		t.Errorf("expected at least one occurrence of 'germany' atom")
	}

	second, err := reflector.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second != 0 {
		t.Errorf("expected no facts left to process, got %d", second)
	}
}
