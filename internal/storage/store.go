// Package storage is the single owner of every persisted Axiom
// entity. It wraps a per-node SQLite database opened from an embed.FS
// migration set (modernc.org/sqlite, no cgo). All writes serialize
// through one mutex; readers run uncoordinated against the database's
// own snapshot isolation.
package storage

import (
	"bytes"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rawblock/axiom-node/internal/domain"
	"github.com/rawblock/axiom-node/internal/errs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the node's only handle onto its relational database. Every
// multi-statement write acquires mu before the transaction begins and
// releases it before any outbound I/O; no network call ever runs
// under the lock.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// Open creates or attaches to the SQLite file at dsn, enables WAL mode
// and foreign keys, and applies any unapplied migration in lexical
// filename order.
func Open(dsn string, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Config("storage.Open", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errs.Config("storage.Open: set WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errs.Config("storage.Open: enable foreign keys", err)
	}

	s := &Store{db: db, log: log.WithField("component", "storage")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errs.Config("storage.Open: migrate", err)
	}
	if err := s.recompressLegacyRows(); err != nil {
		db.Close()
		return nil, errs.Config("storage.Open: recompress legacy rows", err)
	}
	return s, nil
}

// recompressLegacyRows rewrites any fact whose content column still
// holds raw UTF-8 text instead of a zlib stream. Databases written by
// older builds stored content uncompressed; every row must be in
// compressed form before the first decompress call sees it.
func (s *Store) recompressLegacyRows() error {
	rows, err := s.db.Query(`SELECT fact_id, content FROM facts`)
	if err != nil {
		return err
	}

	type legacyRow struct {
		factID  string
		content []byte
	}
	var legacy []legacyRow
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			rows.Close()
			return err
		}
		// A zlib stream always opens with 0x78; anything else is a raw
		// legacy row.
		if len(blob) > 0 && blob[0] != 0x78 {
			legacy = append(legacy, legacyRow{factID: id, content: blob})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range legacy {
		compressed, err := compress(string(r.content))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(`UPDATE facts SET content = ? WHERE fact_id = ?`, compressed, r.factID); err != nil {
			return err
		}
	}
	if len(legacy) > 0 {
		s.log.WithField("count", len(legacy)).Info("recompressed legacy uncompressed fact rows")
	}
	return nil
}

// Stats is a point-in-time snapshot of ledger size, used by the idle
// health task and exposed for operator tooling.
type Stats struct {
	Facts         int
	TrustedFacts  int
	DisputedFacts int
	Relationships int
	Atoms         int
	Synapses      int
	Peers         int
	ChainHeight   int
}

// Stats counts every major table in one pass of scalar queries.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Facts, `SELECT COUNT(*) FROM facts`},
		{&st.TrustedFacts, `SELECT COUNT(*) FROM facts WHERE status = 'trusted'`},
		{&st.DisputedFacts, `SELECT COUNT(*) FROM facts WHERE status = 'disputed'`},
		{&st.Relationships, `SELECT COUNT(*) FROM relationships`},
		{&st.Atoms, `SELECT COUNT(*) FROM lexical_atoms`},
		{&st.Synapses, `SELECT COUNT(*) FROM synapses`},
		{&st.Peers, `SELECT COUNT(*) FROM peers`},
		{&st.ChainHeight, `SELECT COALESCE(MAX(height), 0) FROM blocks`},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return Stats{}, errs.Storage("Stats", err)
		}
	}
	return st, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
		s.log.WithField("migration", f).Info("applied migration")
	}
	return nil
}

// compress deflates content with zlib. Hashing always happens on the
// canonical UTF-8 string before this is called; compress is purely
// an at-rest storage format, never part of fact_id.
func compress(content string) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(content)); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress inflates content previously written by compress. A
// corrupt blob surfaces as errs.DecodeError so callers can skip the
// row instead of aborting.
func decompress(blob []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return "", errs.Decode("storage.decompress", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", errs.Decode("storage.decompress", err)
	}
	return string(out), nil
}

// isUniqueViolation reports whether err is a primary-key or unique
// index conflict. modernc.org/sqlite surfaces these as plain errors
// carrying SQLite's own message text rather than a typed code, so this
// matches on that text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed: UNIQUE")
}

// sourceDomain normalizes a URL's host for storage and comparison.
func sourceDomain(rawURL string) string {
	return domain.Of(rawURL)
}
