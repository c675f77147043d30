package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	s, err := Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertCandidateFact_DuplicateIsNotAnError(t *testing.T) {
	s := newTestStore(t)

	res, err := s.InsertCandidateFact("f1", "Company X acquired Company Y in 2023.", "https://a.example/story",
		"company_x|acquire|ORG", "company_x", "acquire", false, models.FragmentUnknown, 0, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res != Created {
		t.Fatalf("expected Created, got %v", res)
	}

	res, err = s.InsertCandidateFact("f1", "Company X acquired Company Y in 2023.", "https://a.example/other",
		"company_x|acquire|ORG", "company_x", "acquire", false, models.FragmentUnknown, 0, "")
	if err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}
	if res != Duplicate {
		t.Fatalf("expected Duplicate, got %v", res)
	}
}

func TestCorroborate_DistinctDomainsReachTrusted(t *testing.T) {
	s := newTestStore(t)

	_, err := s.InsertCandidateFact("f1", "Company X acquired Company Y in 2023.", "https://a.example/story",
		"company_x|acquire|ORG", "company_x", "acquire", false, models.FragmentUnknown, 0, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.Corroborate("f1", "https://b.example/other", 3); err != nil {
		t.Fatalf("corroborate b: %v", err)
	}
	if err := s.Corroborate("f1", "https://c.example/third", 3); err != nil {
		t.Fatalf("corroborate c: %v", err)
	}

	f, found, err := s.GetFactByID("f1")
	if err != nil || !found {
		t.Fatalf("GetFactByID: found=%v err=%v", found, err)
	}
	if f.TrustScore != 3 {
		t.Errorf("expected trust_score 3, got %d", f.TrustScore)
	}
	if f.Status != models.StatusTrusted {
		t.Errorf("expected trusted, got %s", f.Status)
	}
	if len(f.CorroboratingSources) != 2 {
		t.Errorf("expected 2 corroborating sources, got %d", len(f.CorroboratingSources))
	}
}

func TestCorroborate_SameDomainDoesNotCorroborate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.InsertCandidateFact("f1", "Company X acquired Company Y in 2023.", "https://a.example/story",
		"company_x|acquire|ORG", "company_x", "acquire", false, models.FragmentUnknown, 0, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.Corroborate("f1", "https://news.a.example/mirror", 3); err != nil {
		t.Fatalf("corroborate: %v", err)
	}

	f, _, err := s.GetFactByID("f1")
	if err != nil {
		t.Fatalf("GetFactByID: %v", err)
	}
	if f.TrustScore != 1 {
		t.Errorf("expected trust_score to stay at 1, got %d", f.TrustScore)
	}
	if f.Status != models.StatusUncorroborated {
		t.Errorf("expected status to stay uncorroborated, got %s", f.Status)
	}
}

func TestMarkDisputed_BothPartiesDisputed(t *testing.T) {
	s := newTestStore(t)

	_, err := s.InsertCandidateFact("f1", "The treaty entered into force on 2024-06-01.", "https://a.example/story",
		"treaty|enter|", "treaty", "enter", false, models.FragmentUnknown, 0, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.MarkDisputed("f1", "f2", "The treaty did not enter into force on 2024-06-01.", "https://b.example/story"); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}

	a, _, err := s.GetFactByID("f1")
	if err != nil {
		t.Fatalf("get f1: %v", err)
	}
	if a.Status != models.StatusDisputed || a.ContradictsFactID != "f2" {
		t.Errorf("f1 not marked disputed against f2: %+v", a)
	}

	b, _, err := s.GetFactByID("f2")
	if err != nil {
		t.Fatalf("get f2: %v", err)
	}
	if b.Status != models.StatusDisputed || b.ContradictsFactID != "f1" {
		t.Errorf("f2 not marked disputed against f1: %+v", b)
	}
}

func TestChain_GenesisSeededOnce(t *testing.T) {
	s := newTestStore(t)

	if err := s.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis: %v", err)
	}
	if err := s.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis second call: %v", err)
	}

	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.BlockID != models.GenesisBlockID || head.Height != 0 {
		t.Errorf("expected genesis head, got %+v", head)
	}
}

func TestChain_ReplaceChainSwapsNonGenesisBlocks(t *testing.T) {
	s := newTestStore(t)
	if err := s.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis: %v", err)
	}

	local := models.Block{BlockID: "local1", PreviousBlockID: models.GenesisBlockID, Height: 1, CreatedAtUTC: time.Now().UTC().Format(time.RFC3339), FactIDs: []string{}}
	if err := s.AppendBlock(local); err != nil {
		t.Fatalf("AppendBlock local: %v", err)
	}

	replacement := []models.Block{
		{BlockID: "remote1", PreviousBlockID: models.GenesisBlockID, Height: 1, CreatedAtUTC: time.Now().UTC().Format(time.RFC3339), FactIDs: []string{}},
		{BlockID: "remote2", PreviousBlockID: "remote1", Height: 2, CreatedAtUTC: time.Now().UTC().Format(time.RFC3339), FactIDs: []string{}},
	}
	if err := s.ReplaceChain(replacement); err != nil {
		t.Fatalf("ReplaceChain: %v", err)
	}

	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.BlockID != "remote2" || head.Height != 2 {
		t.Errorf("expected remote2 at height 2, got %+v", head)
	}

	genesis, err := s.GetBlockAtHeight(0)
	if err != nil {
		t.Fatalf("GetBlockAtHeight(0): %v", err)
	}
	if genesis.BlockID != models.GenesisBlockID {
		t.Errorf("expected genesis unchanged, got %+v", genesis)
	}
}

func TestRecompressLegacyRows_RewritesRawContent(t *testing.T) {
	s := newTestStore(t)

	// Simulate a database written by an older build: raw UTF-8 content
	// in the blob column instead of a zlib stream.
	raw := "The treaty entered into force on 2024-06-01."
	_, err := s.db.Exec(`
		INSERT INTO facts (fact_id, content, source_url, source_domain, ingest_timestamp, adl_summary)
		VALUES ('legacy1', ?, 'https://a.example/x', 'a.example', ?, '')`,
		[]byte(raw), time.Now().UTC())
	if err != nil {
		t.Fatalf("insert raw row: %v", err)
	}

	if err := s.recompressLegacyRows(); err != nil {
		t.Fatalf("recompressLegacyRows: %v", err)
	}

	f, ok, err := s.GetFactByID("legacy1")
	if err != nil || !ok {
		t.Fatalf("GetFactByID after recompress: ok=%v err=%v", ok, err)
	}
	if f.Content != raw {
		t.Errorf("expected recompressed content to round-trip, got %q", f.Content)
	}

	// A second pass must be a no-op on the now-compressed row.
	if err := s.recompressLegacyRows(); err != nil {
		t.Fatalf("second recompressLegacyRows: %v", err)
	}
	f, _, err = s.GetFactByID("legacy1")
	if err != nil || f.Content != raw {
		t.Errorf("expected second pass to leave the row intact: content=%q err=%v", f.Content, err)
	}
}

func TestStats_CountsTablesAndChainHeight(t *testing.T) {
	s := newTestStore(t)

	if err := s.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis: %v", err)
	}
	if _, err := s.InsertCandidateFact("f1", "Company X acquired Company Y in 2023.", "https://a.example/story",
		"company_x|acquire|ORG", "company_x", "acquire", false, models.FragmentUnknown, 0, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateAtom("paris", "PROPN"); err != nil {
		t.Fatalf("UpdateAtom: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Facts != 1 || st.Atoms != 1 || st.ChainHeight != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestMeshUpserts_IncrementOnConflict(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpdateAtom("paris", "PROPN"); err != nil {
		t.Fatalf("UpdateAtom: %v", err)
	}
	if err := s.UpdateAtom("paris", "PROPN"); err != nil {
		t.Fatalf("UpdateAtom second: %v", err)
	}
	count, err := s.AtomOccurrenceCount("paris")
	if err != nil {
		t.Fatalf("AtomOccurrenceCount: %v", err)
	}
	if count != 2 {
		t.Errorf("expected occurrence count 2, got %d", count)
	}

	if err := s.UpdateSynapse("paris", "treaty", "shared_context"); err != nil {
		t.Fatalf("UpdateSynapse: %v", err)
	}
	if err := s.UpdateSynapse("paris", "treaty", "shared_context"); err != nil {
		t.Fatalf("UpdateSynapse second: %v", err)
	}
	synapses, err := s.SynapsesForWord("paris")
	if err != nil {
		t.Fatalf("SynapsesForWord: %v", err)
	}
	if len(synapses) != 1 || synapses[0].Strength != 2 {
		t.Errorf("expected one synapse with strength 2, got %+v", synapses)
	}
}
