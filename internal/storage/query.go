package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

func scanFact(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Fact, error) {
	var f models.Fact
	var blob []byte
	var status, fragmentState string
	var corroboratingJSON string
	var contradicts sql.NullString
	if err := scanner.Scan(
		&f.FactID, &blob, &f.SourceURL, &f.IngestTimestamp, &f.TrustScore, &status,
		&corroboratingJSON, &contradicts, &f.LexicallyProcessed, &f.ADLSummary,
		&fragmentState, &f.FragmentScore, &f.FragmentReason,
	); err != nil {
		return models.Fact{}, err
	}
	content, err := decompress(blob)
	if err != nil {
		return models.Fact{}, err
	}
	f.Content = content
	f.Status = models.FactStatus(status)
	f.FragmentState = models.FragmentState(fragmentState)
	f.ContradictsFactID = contradicts.String
	_ = decodeStringSlice(corroboratingJSON, &f.CorroboratingSources)
	return f, nil
}

const factColumns = `fact_id, content, source_url, ingest_timestamp, trust_score, status,
	corroborating_sources, contradicts_fact_id, lexically_processed, adl_summary,
	fragment_state, fragment_score, fragment_reason`

// GetFactByID returns one fact by id, found=false if absent.
func (s *Store) GetFactByID(factID string) (models.Fact, bool, error) {
	row := s.db.QueryRow(`SELECT `+factColumns+` FROM facts WHERE fact_id = ?`, factID)
	f, err := scanFact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Fact{}, false, nil
		}
		return models.Fact{}, false, errs.Storage("GetFactByID", err)
	}
	return f, true, nil
}

// GetFactsByIDs returns every fact matching the given ids that exists
// locally. Missing ids are silently omitted.
func (s *Store) GetFactsByIDs(ids []string) ([]models.Fact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	rows, err := s.db.Query(`SELECT `+factColumns+` FROM facts WHERE fact_id IN (`+string(placeholders)+`)`, args...)
	if err != nil {
		return nil, errs.Storage("GetFactsByIDs", err)
	}
	defer rows.Close()

	var out []models.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListFactIDs returns every fact_id currently stored, used by a peer
// to compute its missing set.
func (s *Store) ListFactIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT fact_id FROM facts`)
	if err != nil {
		return nil, errs.Storage("ListFactIDs", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Storage("ListFactIDs: scan", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SearchFacts returns every fact whose decompressed content contains
// term (case-insensitive), optionally excluding uncorroborated facts,
// for GET /local_query. Content is stored compressed, so the term
// match happens in Go after decompression rather than in SQL.
func (s *Store) SearchFacts(term string, includeUncorroborated bool) ([]models.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts WHERE status != 'disputed'`
	if !includeUncorroborated {
		query += ` AND status != 'uncorroborated'`
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errs.Storage("SearchFacts", err)
	}
	defer rows.Close()

	needle := strings.ToLower(strings.TrimSpace(term))

	var out []models.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(f.Content), needle) {
			continue
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AllNonDisputedFacts returns every fact not in the disputed state,
// the universe /think searches over.
func (s *Store) AllNonDisputedFacts() ([]models.Fact, error) {
	rows, err := s.db.Query(`SELECT ` + factColumns + ` FROM facts WHERE status != 'disputed'`)
	if err != nil {
		return nil, errs.Storage("AllNonDisputedFacts", err)
	}
	defer rows.Close()

	var out []models.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SampleNonDisputedFacts returns up to limit random non-disputed
// facts, used by the fragment audit.
func (s *Store) SampleNonDisputedFacts(limit int) ([]models.Fact, error) {
	rows, err := s.db.Query(`SELECT `+factColumns+` FROM facts WHERE status != 'disputed' ORDER BY RANDOM() LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Storage("SampleNonDisputedFacts", err)
	}
	defer rows.Close()

	var out []models.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateFragmentState persists a new fragment classification.
func (s *Store) UpdateFragmentState(factID string, state models.FragmentState, score float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE facts SET fragment_state = ?, fragment_score = ?, fragment_reason = ? WHERE fact_id = ?`,
		string(state), score, reason, factID)
	if err != nil {
		return errs.Storage("UpdateFragmentState", err)
	}
	return nil
}

// DeleteStaleUncorroborated removes uncorroborated facts older than
// olderThan, the main-cycle housekeeping step.
func (s *Store) DeleteStaleUncorroborated(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(`DELETE FROM facts WHERE status = 'uncorroborated' AND ingest_timestamp < ?`, cutoff)
	if err != nil {
		return 0, errs.Storage("DeleteStaleUncorroborated", err)
	}
	return res.RowsAffected()
}

// PruneShallowStale deletes facts older than olderThan whose
// trust_score <= 1 and whose adl_summary is shorter than 10
// characters: data that is both stale and structurally shallow.
func (s *Store) PruneShallowStale(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(`DELETE FROM facts WHERE ingest_timestamp < ? AND trust_score <= 1 AND LENGTH(adl_summary) < 10`, cutoff)
	if err != nil {
		return 0, errs.Storage("PruneShallowStale", err)
	}
	return res.RowsAffected()
}

func decodeStringSlice(js string, out *[]string) error {
	if js == "" || js == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(js), out)
}
