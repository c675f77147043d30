package storage

import (
	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

// InsertRelationship records an undirected edge between two facts,
// ignoring a duplicate pair outright rather than accumulating weight.
// Caller is responsible for ordering a < b.
func (s *Store) InsertRelationship(a, b string, weight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR IGNORE INTO relationships (fact_id_a, fact_id_b, weight) VALUES (?, ?, ?)`, a, b, weight)
	if err != nil {
		return errs.Storage("InsertRelationship", err)
	}
	return nil
}

// UpdateAtom upserts a LexicalAtom, incrementing its occurrence count
// on conflict.
func (s *Store) UpdateAtom(word, posTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO lexical_atoms (word, pos_tag, occurrence_count) VALUES (?, ?, 1)
		ON CONFLICT (word, pos_tag) DO UPDATE SET occurrence_count = occurrence_count + 1`,
		word, posTag)
	if err != nil {
		return errs.Storage("UpdateAtom", err)
	}
	return nil
}

// UpdateSynapse upserts a Synapse, incrementing its strength on
// conflict. Caller normalizes wordA <= wordB.
func (s *Store) UpdateSynapse(wordA, wordB, relationType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO synapses (word_a, word_b, relation_type, strength) VALUES (?, ?, ?, 1)
		ON CONFLICT (word_a, word_b, relation_type) DO UPDATE SET strength = strength + 1`,
		wordA, wordB, relationType)
	if err != nil {
		return errs.Storage("UpdateSynapse", err)
	}
	return nil
}

// SynapsesForWord returns every Synapse touching word, used by
// mesh_query to build the associations list.
func (s *Store) SynapsesForWord(word string) ([]models.Synapse, error) {
	rows, err := s.db.Query(`SELECT word_a, word_b, relation_type, strength FROM synapses WHERE word_a = ? OR word_b = ? ORDER BY strength DESC`, word, word)
	if err != nil {
		return nil, errs.Storage("SynapsesForWord", err)
	}
	defer rows.Close()

	var out []models.Synapse
	for rows.Next() {
		var syn models.Synapse
		if err := rows.Scan(&syn.WordA, &syn.WordB, &syn.RelationType, &syn.Strength); err != nil {
			return nil, errs.Storage("SynapsesForWord: scan", err)
		}
		out = append(out, syn)
	}
	return out, rows.Err()
}

// AtomOccurrenceCount returns how many times word has been seen,
// summed across every POS tag it was recorded under,
// used as the "properties" of a mesh_query concept.
func (s *Store) AtomOccurrenceCount(word string) (int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COALESCE(SUM(occurrence_count), 0) FROM lexical_atoms WHERE word = ?`, word).Scan(&total)
	if err != nil {
		return 0, errs.Storage("AtomOccurrenceCount", err)
	}
	return total, nil
}

// SampleFactsForSynthesis returns up to limit random non-disputed
// facts, used by the idle relationship-rediscovery task.
func (s *Store) SampleFactsForSynthesis(limit int) ([]models.Fact, error) {
	rows, err := s.db.Query(`
		SELECT fact_id, content, source_url, ingest_timestamp, trust_score, status
		FROM facts WHERE status != 'disputed' ORDER BY RANDOM() LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Storage("SampleFactsForSynthesis", err)
	}
	defer rows.Close()

	var out []models.Fact
	for rows.Next() {
		var f models.Fact
		var blob []byte
		var status string
		if err := rows.Scan(&f.FactID, &blob, &f.SourceURL, &f.IngestTimestamp, &f.TrustScore, &status); err != nil {
			return nil, errs.Storage("SampleFactsForSynthesis: scan", err)
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
