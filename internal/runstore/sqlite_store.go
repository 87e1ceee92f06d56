// Package runstore keeps a history of generated point lists in SQLite. The
// serialized documents are stored zstd-compressed.
package runstore

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// Kind is the generator that produced a run.
type Kind string

const (
	KindTiling Kind = "tiling"
	KindPlate  Kind = "plate"
	KindMerge  Kind = "merge"
)

// Fixed-width UTC timestamps so that string comparison orders them.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Run is one saved point list.
type Run struct {
	ID           string          `json:"run_id"`
	Kind         Kind            `json:"kind"`
	Label        string          `json:"label"`
	Params       json.RawMessage `json:"params,omitempty"`
	Points       int             `json:"points"`
	DocumentSize int             `json:"document_size"`
	StoredSize   int             `json:"stored_size"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store provides persistent storage for runs using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore opens or creates the run database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &Store{db: db, encoder: encoder, decoder: decoder}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.decoder.Close()
	s.encoder.Close()
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		params_json TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL,
		document_size INTEGER NOT NULL,
		document_zst BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores a run and its document. ID and CreatedAt are assigned when
// empty.
func (s *Store) Create(run *Run, document []byte) error {
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	compressed := s.encoder.EncodeAll(document, nil)
	run.DocumentSize = len(document)
	run.StoredSize = len(compressed)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, kind, label, params_json, points, document_size, document_zst, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Kind),
		run.Label,
		string(run.Params),
		run.Points,
		run.DocumentSize,
		compressed,
		run.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `run_id, kind, label, params_json, points, document_size, LENGTH(document_zst), created_at`

// Get retrieves a run by ID. It returns nil, nil when the run does not exist.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first. An empty kind lists every kind; limit <= 0
// means no limit.
func (s *Store) List(kind Kind, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT `+runColumns+` FROM runs
		WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, string(kind), string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Document returns the decompressed document of a run, or nil, nil when the
// run does not exist.
func (s *Store) Document(id string) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT document_zst FROM runs WHERE run_id = ?`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed for run %s: %w", id, err)
	}
	return doc, nil
}

// Delete removes a run and reports whether it existed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteExpired deletes runs older than retentionDays.
func (s *Store) DeleteExpired(retentionDays int) (int64, error) {
	return s.deleteBefore(time.Now().AddDate(0, 0, -retentionDays))
}

func (s *Store) deleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored runs.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var kind, params, created string
	err := sc.Scan(
		&run.ID,
		&kind,
		&run.Label,
		&params,
		&run.Points,
		&run.DocumentSize,
		&run.StoredSize,
		&created,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	if params != "" {
		run.Params = json.RawMessage(params)
	}
	run.CreatedAt, _ = time.Parse(timeLayout, created)
	return &run, nil
}

// NewID returns a random 16-character hex run ID.
func NewID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
