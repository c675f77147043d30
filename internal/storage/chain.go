package storage

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

// SeedGenesis inserts the deterministic genesis block if the blocks
// table is empty.
func (s *Store) SeedGenesis() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM blocks`).Scan(&count); err != nil {
		return errs.Storage("SeedGenesis: count", err)
	}
	if count > 0 {
		return nil
	}

	g := models.Genesis()
	factIDs, _ := json.Marshal(g.FactIDs)
	_, err := s.db.Exec(`INSERT INTO blocks (block_id, previous_block_id, height, created_at_utc, fact_ids) VALUES (?, ?, ?, ?, ?)`,
		g.BlockID, g.PreviousBlockID, g.Height, g.CreatedAtUTC, factIDs)
	if err != nil {
		return errs.Storage("SeedGenesis: insert", err)
	}
	return nil
}

// AppendBlock inserts a single validated block. A duplicate block_id
// or height is a StorageError signaling a race; the caller discards
// its candidate rather than treating this as fatal.
func (s *Store) AppendBlock(b models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	factIDs, err := json.Marshal(b.FactIDs)
	if err != nil {
		return errs.Storage("AppendBlock: marshal fact_ids", err)
	}

	_, err = s.db.Exec(`INSERT INTO blocks (block_id, previous_block_id, height, created_at_utc, fact_ids) VALUES (?, ?, ?, ?, ?)`,
		b.BlockID, b.PreviousBlockID, b.Height, b.CreatedAtUTC, factIDs)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Storage("AppendBlock: race", err)
		}
		return errs.Storage("AppendBlock", err)
	}
	return nil
}

// GetChainHead returns the highest block on the local chain.
func (s *Store) GetChainHead() (models.Block, error) {
	return s.blockAtHeightQuery(`SELECT block_id, previous_block_id, height, created_at_utc, fact_ids FROM blocks ORDER BY height DESC LIMIT 1`)
}

// GetBlockAtHeight returns the block at the given height.
func (s *Store) GetBlockAtHeight(height int) (models.Block, error) {
	return s.blockAtHeightQuery(`SELECT block_id, previous_block_id, height, created_at_utc, fact_ids FROM blocks WHERE height = ?`, height)
}

func (s *Store) blockAtHeightQuery(query string, args ...interface{}) (models.Block, error) {
	var b models.Block
	var factIDsJSON string
	row := s.db.QueryRow(query, args...)
	if err := row.Scan(&b.BlockID, &b.PreviousBlockID, &b.Height, &b.CreatedAtUTC, &factIDsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Block{}, errs.Storage("blockAtHeightQuery: not found", err)
		}
		return models.Block{}, errs.Storage("blockAtHeightQuery", err)
	}
	if err := json.Unmarshal([]byte(factIDsJSON), &b.FactIDs); err != nil {
		return models.Block{}, errs.Decode("blockAtHeightQuery: unmarshal fact_ids", err)
	}
	return b, nil
}

// GetBlocksAfter returns every block with height strictly greater than
// height, ascending.
func (s *Store) GetBlocksAfter(height int) ([]models.Block, error) {
	rows, err := s.db.Query(`SELECT block_id, previous_block_id, height, created_at_utc, fact_ids FROM blocks WHERE height > ? ORDER BY height ASC`, height)
	if err != nil {
		return nil, errs.Storage("GetBlocksAfter", err)
	}
	defer rows.Close()

	var out []models.Block
	for rows.Next() {
		var b models.Block
		var factIDsJSON string
		if err := rows.Scan(&b.BlockID, &b.PreviousBlockID, &b.Height, &b.CreatedAtUTC, &factIDsJSON); err != nil {
			return nil, errs.Storage("GetBlocksAfter: scan", err)
		}
		if err := json.Unmarshal([]byte(factIDsJSON), &b.FactIDs); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReplaceChain atomically discards every non-genesis block and
// installs blocks in its place. Validation of links and hashes is the
// chain package's job (it calls this only once every block has been
// verified); this method's only job is the all-or-nothing swap.
func (s *Store) ReplaceChain(blocks []models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errs.Storage("ReplaceChain: begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM blocks WHERE height > 0`); err != nil {
		return errs.Storage("ReplaceChain: delete", err)
	}

	for _, b := range blocks {
		factIDs, err := json.Marshal(b.FactIDs)
		if err != nil {
			return errs.Storage("ReplaceChain: marshal fact_ids", err)
		}
		_, err = tx.Exec(`INSERT INTO blocks (block_id, previous_block_id, height, created_at_utc, fact_ids) VALUES (?, ?, ?, ?, ?)`,
			b.BlockID, b.PreviousBlockID, b.Height, b.CreatedAtUTC, factIDs)
		if err != nil {
			return errs.Storage("ReplaceChain: insert", err)
		}
	}

	return tx.Commit()
}
