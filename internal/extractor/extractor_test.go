package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

func newTestExtractor(t *testing.T) (*Extractor, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	store, err := storage.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := New(store, nlp.NewRuleEngine(), 100, log)
	return e, store
}

func TestExtract_AcceptsWellFormedSentence(t *testing.T) {
	e, _ := newTestExtractor(t)

	text := "Germany and France approved the Atlantic Climate Accord at the summit."
	created, err := e.Extract("https://a.example/story", text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created fact, got %d: %+v", len(created), created)
	}
	if created[0].SourceURL != "https://a.example/story" {
		t.Errorf("unexpected source_url: %s", created[0].SourceURL)
	}
}

func TestExtract_RejectsShortSentence(t *testing.T) {
	e, _ := newTestExtractor(t)

	created, err := e.Extract("https://a.example/story", "France won.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected short sentence rejected, got %d facts", len(created))
	}
}

func TestExtract_RejectsFirstPersonAndSubjectiveSentences(t *testing.T) {
	e, _ := newTestExtractor(t)

	text := "We believe Germany and France approved the Atlantic Climate Accord unfortunately."
	created, err := e.Extract("https://a.example/story", text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected subjective/first-person sentence rejected, got %d facts", len(created))
	}
}

func TestExtract_SecondDistinctDomainCorroboratesInsteadOfDuplicating(t *testing.T) {
	e, store := newTestExtractor(t)

	text := "Germany and France approved the Atlantic Climate Accord at the summit."

	first, err := e.Extract("https://a.example/story", text)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 created fact, got %d", len(first))
	}

	second, err := e.Extract("https://b.example/story", text)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected corroboration, not a new fact, got %d", len(second))
	}

	f, found, err := store.GetFactByID(first[0].FactID)
	if err != nil || !found {
		t.Fatalf("GetFactByID: found=%v err=%v", found, err)
	}
	if f.TrustScore != 2 {
		t.Errorf("expected trust_score 2 after corroboration, got %d", f.TrustScore)
	}
	if len(f.CorroboratingSources) != 1 {
		t.Errorf("expected one corroborating source, got %d", len(f.CorroboratingSources))
	}
}

func TestExtract_SameDomainResubmissionDoesNotDuplicateOrCorroborate(t *testing.T) {
	e, store := newTestExtractor(t)

	text := "Germany and France approved the Atlantic Climate Accord at the summit."

	first, err := e.Extract("https://a.example/story", text)
	if err != nil || len(first) != 1 {
		t.Fatalf("first Extract: created=%d err=%v", len(first), err)
	}

	second, err := e.Extract("https://www.a.example/mirror", text)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected no new fact from same-domain resubmission, got %d", len(second))
	}

	f, _, err := store.GetFactByID(first[0].FactID)
	if err != nil {
		t.Fatalf("GetFactByID: %v", err)
	}
	if f.TrustScore != 1 {
		t.Errorf("expected trust_score to stay at 1, got %d", f.TrustScore)
	}
}

func TestFindContradiction_MatchesOnSubjectRootNegationParity(t *testing.T) {
	rows := []storage.FactAnalysisRow{
		{FactID: "f1", SubjectLemma: "treaty", RootVerbLemma: "enter", HasNegation: false},
	}
	id, found := findContradiction(rows, "treaty", "enter", true)
	if !found || id != "f1" {
		t.Errorf("expected contradiction against f1, got found=%v id=%s", found, id)
	}

	_, found = findContradiction(rows, "treaty", "enter", false)
	if found {
		t.Errorf("expected no contradiction when negation parity matches")
	}
}

func TestRunDataQualityScan_FlagsMissedContradictionBetweenPeerSyncedFacts(t *testing.T) {
	e, store := newTestExtractor(t)

	// Simulate two facts that arrived via peer sync,
	// which bypasses Extract's own contradiction probe entirely.
	if _, err := store.InsertCandidateFact("f1", "The treaty entered into force on 2024-06-01.", "https://a.example/story",
		"", "treaty", "enter", false, models.FragmentUnknown, 0, ""); err != nil {
		t.Fatalf("insert f1: %v", err)
	}
	if _, err := store.InsertCandidateFact("f2", "The treaty did not enter into force on 2024-06-01.", "https://b.example/story",
		"", "treaty", "enter", true, models.FragmentUnknown, 0, ""); err != nil {
		t.Fatalf("insert f2: %v", err)
	}

	conflicts, _, err := e.RunDataQualityScan()
	if err != nil {
		t.Fatalf("RunDataQualityScan: %v", err)
	}
	if conflicts != 1 {
		t.Fatalf("expected 1 conflict found, got %d", conflicts)
	}

	f1, _, err := store.GetFactByID("f1")
	if err != nil {
		t.Fatalf("GetFactByID f1: %v", err)
	}
	if f1.Status != models.StatusDisputed || f1.ContradictsFactID != "f2" {
		t.Errorf("expected f1 disputed against f2, got %+v", f1)
	}
}

func TestFindCorroboration_RequiresSharedPrefixAndDistinctDomain(t *testing.T) {
	content := "Germany and France approved the Atlantic Climate Accord at the summit today."
	rows := []storage.FactAnalysisRow{
		{FactID: "f1", Content: content, SourceDomain: "a.example"},
	}

	id, found := findCorroboration(rows, content, "https://b.example/story")
	if !found || id != "f1" {
		t.Errorf("expected corroboration against f1, got found=%v id=%s", found, id)
	}

	_, found = findCorroboration(rows, content, "https://a.example/other")
	if found {
		t.Errorf("expected no corroboration against the same domain")
	}
}
