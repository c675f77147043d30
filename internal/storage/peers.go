package storage

import (
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

// UpsertPeer registers url if unseen (at initialReputation) or touches
// last_seen if already known. Used both on gossip discovery and on
// X-Axiom-Peer header registration.
func (s *Store) UpsertPeer(url string, initialReputation float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO peers (url, reputation, first_seen, last_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET last_seen = excluded.last_seen`,
		url, initialReputation, now, now)
	if err != nil {
		return errs.Storage("UpsertPeer", err)
	}
	return nil
}

// SetPeerReputation overwrites a peer's reputation, clamped to [0,1]
// by the caller.
func (s *Store) SetPeerReputation(url string, reputation float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE peers SET reputation = ?, last_seen = ? WHERE url = ?`, reputation, now, url)
	if err != nil {
		return errs.Storage("SetPeerReputation", err)
	}
	return nil
}

// GetPeer returns one peer by url.
func (s *Store) GetPeer(url string) (models.Peer, bool, error) {
	var p models.Peer
	p.URL = url
	row := s.db.QueryRow(`SELECT reputation, first_seen, last_seen FROM peers WHERE url = ?`, url)
	if err := row.Scan(&p.Reputation, &p.FirstSeen, &p.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Peer{}, false, nil
		}
		return models.Peer{}, false, errs.Storage("GetPeer", err)
	}
	return p, true, nil
}

// ListPeers returns every known peer.
func (s *Store) ListPeers() ([]models.Peer, error) {
	rows, err := s.db.Query(`SELECT url, reputation, first_seen, last_seen FROM peers`)
	if err != nil {
		return nil, errs.Storage("ListPeers", err)
	}
	defer rows.Close()

	var out []models.Peer
	for rows.Next() {
		var p models.Peer
		if err := rows.Scan(&p.URL, &p.Reputation, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, errs.Storage("ListPeers: scan", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPeersByReputation returns every known peer sorted by reputation
// descending, tie-broken by url for a deterministic order within one
// cycle.
func (s *Store) ListPeersByReputation() ([]models.Peer, error) {
	peers, err := s.ListPeers()
	if err != nil {
		return nil, err
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Reputation != peers[j].Reputation {
			return peers[i].Reputation > peers[j].Reputation
		}
		return peers[i].URL < peers[j].URL
	})
	return peers, nil
}
