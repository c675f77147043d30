package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/hasher"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

func blockIDFor(prev string, height int, createdAt string, factIDs []string) string {
	return hasher.BlockID(prev, height, createdAt, factIDs)
}

func newTestChain(t *testing.T) (*Chain, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	store, err := storage.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := New(store, log)
	if err := c.EnsureGenesis(); err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}
	return c, store
}

func TestEnsureGenesis_DeterministicAcrossFreshNodes(t *testing.T) {
	c1, _ := newTestChain(t)
	c2, _ := newTestChain(t)

	h1, err := c1.Head()
	if err != nil {
		t.Fatalf("head 1: %v", err)
	}
	h2, err := c2.Head()
	if err != nil {
		t.Fatalf("head 2: %v", err)
	}
	if h1.BlockID != h2.BlockID || h1.Height != 0 || h2.Height != 0 {
		t.Errorf("expected identical genesis: %+v vs %+v", h1, h2)
	}
}

func TestCreateBlock_ExtendsHead(t *testing.T) {
	c, _ := newTestChain(t)

	b, err := c.CreateBlock([]string{"f1", "f2"})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if b.Height != 1 || b.PreviousBlockID != models.GenesisBlockID {
		t.Errorf("unexpected block: %+v", b)
	}

	head, err := c.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.BlockID != b.BlockID {
		t.Errorf("expected head to be newly created block")
	}
}

func TestAppendPeerBlock_RejectsBadLink(t *testing.T) {
	c, _ := newTestChain(t)

	bad := models.Block{
		BlockID:         "whatever",
		PreviousBlockID: "not-the-head",
		Height:          1,
		CreatedAtUTC:    "2024-01-01T00:00:00Z",
		FactIDs:         []string{},
	}
	if err := c.AppendPeerBlock(bad); err == nil {
		t.Error("expected rejection of block with mismatched previous_block_id")
	}
}

func TestReplaceChain_AcceptsLongerValidChain(t *testing.T) {
	c, _ := newTestChain(t)

	if _, err := c.CreateBlock([]string{}); err != nil {
		t.Fatalf("local CreateBlock: %v", err)
	}

	createdAt1 := "2024-01-01T00:00:00Z"
	createdAt2 := "2024-01-02T00:00:00Z"
	b1ID := blockIDFor(models.GenesisBlockID, 1, createdAt1, nil)
	b2ID := blockIDFor(b1ID, 2, createdAt2, nil)

	peerChain := []models.Block{
		{BlockID: b1ID, PreviousBlockID: models.GenesisBlockID, Height: 1, CreatedAtUTC: createdAt1, FactIDs: []string{}},
		{BlockID: b2ID, PreviousBlockID: b1ID, Height: 2, CreatedAtUTC: createdAt2, FactIDs: []string{}},
	}

	if err := c.ReplaceChain(peerChain); err != nil {
		t.Fatalf("ReplaceChain: %v", err)
	}

	head, err := c.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.BlockID != b2ID || head.Height != 2 {
		t.Errorf("expected peer chain head, got %+v", head)
	}
}

func TestReplaceChain_RejectsBrokenChain(t *testing.T) {
	c, _ := newTestChain(t)

	broken := []models.Block{
		{BlockID: "x", PreviousBlockID: "not-genesis", Height: 1, CreatedAtUTC: "2024-01-01T00:00:00Z", FactIDs: []string{}},
	}
	if err := c.ReplaceChain(broken); err == nil {
		t.Error("expected ReplaceChain to reject a chain that doesn't root at genesis")
	}
}
