package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

// InsertResult tags the outcome of InsertCandidateFact.
type InsertResult string

const (
	Created   InsertResult = "created"
	Duplicate InsertResult = "duplicate"
)

// FactAnalysisRow is the projection the extractor's contradiction and
// corroboration probes need: just enough to compare structural
// fingerprints and source domains without decompressing every fact
// twice over.
type FactAnalysisRow struct {
	FactID        string
	Content       string
	SourceDomain  string
	SubjectLemma  string
	RootVerbLemma string
	HasNegation   bool
	Status        models.FactStatus
}

// InsertCandidateFact persists a new Fact as uncorroborated. If
// fact_id already exists this is not an error: it returns Duplicate
// and leaves the existing row unchanged; corroboration is a separate
// Corroborate call.
func (s *Store) InsertCandidateFact(
	factID, content, sourceURL, adl, subjectLemma, rootVerbLemma string,
	hasNegation bool,
	fragmentState models.FragmentState, fragmentScore float64, fragmentReason string,
) (InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed, err := compress(content)
	if err != nil {
		return "", errs.Storage("InsertCandidateFact: compress", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO facts (
			fact_id, content, source_url, source_domain, ingest_timestamp,
			trust_score, status, corroborating_sources, adl_summary,
			subject_lemma, root_verb_lemma, has_negation,
			fragment_state, fragment_score, fragment_reason
		) VALUES (?, ?, ?, ?, ?, 1, 'uncorroborated', '[]', ?, ?, ?, ?, ?, ?, ?)`,
		factID, compressed, sourceURL, sourceDomain(sourceURL), time.Now().UTC(),
		adl, subjectLemma, rootVerbLemma, boolToInt(hasNegation),
		string(fragmentState), fragmentScore, fragmentReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Duplicate, nil
		}
		return "", errs.Storage("InsertCandidateFact", err)
	}
	return Created, nil
}

// Corroborate adds newSourceURL as a corroborating source if its
// domain is distinct from the origin domain and from every domain
// already recorded, incrementing trust_score and promoting status to
// trusted once it reaches tCorroborate.
func (s *Store) Corroborate(factID, newSourceURL string, tCorroborate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sourceDomainCol, corroboratingJSON, status string
	var trustScore int
	row := s.db.QueryRow(`SELECT source_domain, corroborating_sources, trust_score, status FROM facts WHERE fact_id = ?`, factID)
	if err := row.Scan(&sourceDomainCol, &corroboratingJSON, &trustScore, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.Storage("Corroborate: no such fact", err)
		}
		return errs.Storage("Corroborate: select", err)
	}

	if status == string(models.StatusDisputed) {
		return nil
	}

	var sources []string
	if err := json.Unmarshal([]byte(corroboratingJSON), &sources); err != nil {
		return errs.Decode("Corroborate: unmarshal corroborating_sources", err)
	}

	seenDomains := map[string]bool{sourceDomainCol: true}
	for _, src := range sources {
		seenDomains[sourceDomain(src)] = true
	}

	newDomain := sourceDomain(newSourceURL)
	if seenDomains[newDomain] {
		return nil // same-domain source does not corroborate
	}

	sources = append(sources, newSourceURL)
	trustScore++

	newStatus := status
	if trustScore >= tCorroborate {
		newStatus = string(models.StatusTrusted)
	}

	encoded, err := json.Marshal(sources)
	if err != nil {
		return errs.Storage("Corroborate: marshal corroborating_sources", err)
	}

	_, err = s.db.Exec(`UPDATE facts SET corroborating_sources = ?, trust_score = ?, status = ? WHERE fact_id = ?`,
		encoded, trustScore, newStatus, factID)
	if err != nil {
		return errs.Storage("Corroborate: update", err)
	}
	return nil
}

// MarkDisputed marks two facts as mutually contradicting. aID must
// already exist. bID is the newly-probed sentence:
// if it has not been inserted yet, bContent/bSource seed its row
// directly in the disputed state so the contradiction is never lost
// to a discarded candidate.
func (s *Store) MarkDisputed(aID, bID, bContent, bSourceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errs.Storage("MarkDisputed: begin", err)
	}
	defer tx.Rollback()

	// A fact already disputed against someone else keeps its existing
	// contradiction rather than having it overwritten.
	_, err = tx.Exec(`UPDATE facts SET status = 'disputed', contradicts_fact_id = ? WHERE fact_id = ? AND status != 'disputed'`, bID, aID)
	if err != nil {
		return errs.Storage("MarkDisputed: update a", err)
	}

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM facts WHERE fact_id = ?`, bID).Scan(&exists); err != nil {
		return errs.Storage("MarkDisputed: check b", err)
	}

	if exists == 0 {
		compressed, err := compress(bContent)
		if err != nil {
			return errs.Storage("MarkDisputed: compress b", err)
		}
		_, err = tx.Exec(`
			INSERT INTO facts (
				fact_id, content, source_url, source_domain, ingest_timestamp,
				trust_score, status, corroborating_sources, contradicts_fact_id, adl_summary
			) VALUES (?, ?, ?, ?, ?, 1, 'disputed', '[]', ?, '')`,
			bID, compressed, bSourceURL, sourceDomain(bSourceURL), time.Now().UTC(), aID,
		)
		if err != nil {
			return errs.Storage("MarkDisputed: insert b", err)
		}
	} else {
		_, err = tx.Exec(`UPDATE facts SET status = 'disputed', contradicts_fact_id = ? WHERE fact_id = ? AND status != 'disputed'`, aID, bID)
		if err != nil {
			return errs.Storage("MarkDisputed: update b", err)
		}
	}

	return tx.Commit()
}

// GetFactsForAnalysis returns every non-disputed fact's structural
// fingerprint for the extractor's contradiction and corroboration
// probes.
func (s *Store) GetFactsForAnalysis() ([]FactAnalysisRow, error) {
	rows, err := s.db.Query(`
		SELECT fact_id, content, source_domain, subject_lemma, root_verb_lemma, has_negation, status
		FROM facts WHERE status != 'disputed'`)
	if err != nil {
		return nil, errs.Storage("GetFactsForAnalysis", err)
	}
	defer rows.Close()

	var out []FactAnalysisRow
	for rows.Next() {
		var r FactAnalysisRow
		var blob []byte
		var hasNeg int
		var status string
		if err := rows.Scan(&r.FactID, &blob, &r.SourceDomain, &r.SubjectLemma, &r.RootVerbLemma, &hasNeg, &status); err != nil {
			return nil, errs.Storage("GetFactsForAnalysis: scan", err)
		}
		content, err := decompress(blob)
		if err != nil {
			continue // corrupt row: skip, per DecodeError policy
		}
		r.Content = content
		r.HasNegation = hasNeg != 0
		r.Status = models.FactStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetUnprocessedForMesh returns every non-disputed fact the Reflection
// pass has not yet visited.
func (s *Store) GetUnprocessedForMesh() ([]models.Fact, error) {
	rows, err := s.db.Query(`
		SELECT fact_id, content, source_url, ingest_timestamp, trust_score, status
		FROM facts WHERE lexically_processed = 0 AND status != 'disputed'`)
	if err != nil {
		return nil, errs.Storage("GetUnprocessedForMesh", err)
	}
	defer rows.Close()

	var out []models.Fact
	for rows.Next() {
		var f models.Fact
		var blob []byte
		var status string
		if err := rows.Scan(&f.FactID, &blob, &f.SourceURL, &f.IngestTimestamp, &f.TrustScore, &status); err != nil {
			return nil, errs.Storage("GetUnprocessedForMesh: scan", err)
		}
		content, err := decompress(blob)
		if err != nil {
			continue
		}
		f.Content = content
		f.Status = models.FactStatus(status)
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkProcessed flips lexically_processed so Reflection does not
// revisit this fact.
func (s *Store) MarkProcessed(factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE facts SET lexically_processed = 1 WHERE fact_id = ?`, factID)
	if err != nil {
		return errs.Storage("MarkProcessed", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
