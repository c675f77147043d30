// Package chain implements the append-only block ledger: genesis
// seeding, local block creation, peer-block validation, and
// longest-chain replacement.
package chain

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/internal/hasher"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

type Chain struct {
	store *storage.Store
	log   *logrus.Entry

	// newBlock is pulsed whenever a peer block lands locally (append or
	// wholesale replacement), so the scheduler can notice mid-cycle that
	// its candidate block is about to race a taller chain. Buffered to
	// one: the signal is level-like, not a counter.
	newBlock chan struct{}
}

func New(store *storage.Store, log *logrus.Logger) *Chain {
	return &Chain{
		store:    store,
		log:      log.WithField("component", "chain"),
		newBlock: make(chan struct{}, 1),
	}
}

// BlockReceived is readable whenever at least one peer block has
// landed since the last drain. Receivers must not block on it; a
// non-blocking select is the intended use.
func (c *Chain) BlockReceived() <-chan struct{} {
	return c.newBlock
}

func (c *Chain) signalNewBlock() {
	select {
	case c.newBlock <- struct{}{}:
	default:
	}
}

// EnsureGenesis seeds the deterministic genesis block if the local
// chain is empty. Call once at startup.
func (c *Chain) EnsureGenesis() error {
	return c.store.SeedGenesis()
}

// Head returns the local chain head.
func (c *Chain) Head() (models.Block, error) {
	return c.store.GetChainHead()
}

// CreateBlock seals factIDs into a new block on top of the current
// head. A race against a concurrent append surfaces as a
// StorageError; the caller discards its candidate.
func (c *Chain) CreateBlock(factIDs []string) (models.Block, error) {
	head, err := c.store.GetChainHead()
	if err != nil {
		return models.Block{}, err
	}

	newHeight := head.Height + 1
	createdAt := time.Now().UTC().Format(time.RFC3339)
	blockID := hasher.BlockID(head.BlockID, newHeight, createdAt, factIDs)

	block := models.Block{
		BlockID:         blockID,
		PreviousBlockID: head.BlockID,
		Height:          newHeight,
		CreatedAtUTC:    createdAt,
		FactIDs:         factIDs,
	}

	if err := c.store.AppendBlock(block); err != nil {
		return models.Block{}, err
	}
	return block, nil
}

// AppendPeerBlock validates and appends a single block received from
// a peer. Rejects unless it links to the current head and
// its hash recomputes correctly from the normalized payload.
func (c *Chain) AppendPeerBlock(b models.Block) error {
	head, err := c.store.GetChainHead()
	if err != nil {
		return err
	}

	if b.PreviousBlockID != head.BlockID || b.Height != head.Height+1 {
		return errs.Validation("block does not link to local head")
	}

	recomputed := hasher.BlockID(b.PreviousBlockID, b.Height, b.CreatedAtUTC, b.FactIDs)
	if recomputed != b.BlockID {
		return errs.Validation("block_id does not match recomputed hash")
	}

	if err := c.store.AppendBlock(b); err != nil {
		return err
	}
	c.signalNewBlock()
	return nil
}

// ValidateChain checks that blocks form a single ascending-height
// chain rooted at the genesis block's id, each link and hash correct.
// It does not touch storage; callers use it before ReplaceChain.
func ValidateChain(blocks []models.Block) error {
	prevID := models.GenesisBlockID
	prevHeight := 0
	for _, b := range blocks {
		if b.PreviousBlockID != prevID || b.Height != prevHeight+1 {
			return errs.Validation("chain link mismatch at height " + strconv.Itoa(b.Height))
		}
		recomputed := hasher.BlockID(b.PreviousBlockID, b.Height, b.CreatedAtUTC, b.FactIDs)
		if recomputed != b.BlockID {
			return errs.Validation("block_id mismatch at height " + strconv.Itoa(b.Height))
		}
		prevID = b.BlockID
		prevHeight = b.Height
	}
	return nil
}

// ReplaceChain validates peerBlocks (height 1..N, ascending) end to
// end and, only if every block links and hashes correctly, swaps them
// in for the local non-genesis chain.
func (c *Chain) ReplaceChain(peerBlocks []models.Block) error {
	if err := ValidateChain(peerBlocks); err != nil {
		return err
	}
	if err := c.store.ReplaceChain(peerBlocks); err != nil {
		return err
	}
	c.signalNewBlock()
	return nil
}
