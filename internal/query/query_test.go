package query

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *extractor.Extractor) {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	store, err := storage.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := nlp.NewRuleEngine()
	ext := extractor.New(store, engine, 100, log)
	q := New(store, engine)
	return q, store, ext
}

func TestAsk_NoGroundingAtomsOnEmptyQuery(t *testing.T) {
	q, _, _ := newTestEngine(t)

	answer, err := q.Ask("client-1", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != "no grounding atoms" {
		t.Errorf("expected no grounding atoms response, got %q", answer.Text)
	}
}

func TestAsk_FindsBestHitByTrustScore(t *testing.T) {
	q, _, ext := newTestEngine(t)

	if _, err := ext.Extract("https://a.example/x", "Germany and France approved the Atlantic Climate Accord at the summit."); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	answer, err := q.Ask("client-1", "What happened in Germany?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(answer.Text, "Verified Record Found") {
		t.Errorf("expected a verified record response, got %q", answer.Text)
	}
	if len(answer.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(answer.Hits))
	}
}

func TestShowMore_PaginatesRemainingHits(t *testing.T) {
	q, _, ext := newTestEngine(t)

	if _, err := ext.Extract("https://a.example/x", "Germany and France approved the Atlantic Climate Accord at the summit."); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := ext.Extract("https://b.example/y", "Germany and Italy signed the Mediterranean Trade Pact in Rome."); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	answer, err := q.Ask("client-1", "Tell me about Germany")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(answer.Hits) < 2 {
		t.Fatalf("expected at least 2 hits sharing 'germany', got %d", len(answer.Hits))
	}

	page, ok := q.ShowMore("client-1", 10)
	if !ok {
		t.Fatal("expected an active cursor for client-1")
	}
	if len(page) != len(answer.Hits)-1 {
		t.Errorf("expected show more to return the remaining %d hits, got %d", len(answer.Hits)-1, len(page))
	}
}

func TestShowMore_UnknownClientHasNoCursor(t *testing.T) {
	q, _, _ := newTestEngine(t)

	_, ok := q.ShowMore("nobody", 10)
	if ok {
		t.Error("expected no cursor for a client that never called Ask")
	}
}
