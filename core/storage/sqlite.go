package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/zdb/zschema/adapters/clock"
	"github.com/zdb/zschema/adapters/idgen"
	"github.com/zdb/zschema/ports"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	schema_name TEXT NOT NULL,
	target      TEXT NOT NULL,
	digest      TEXT NOT NULL,
	body        BLOB NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_schema_target ON snapshots(schema_name, target);
`

// SQLiteStore implements Store with SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	ids    ports.IDGenerator
	clock  ports.Clock
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithIDGenerator sets the snapshot id source (default: random UUIDs).
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *SQLiteStore) { s.ids = g }
}

// WithClock sets the clock used for CreatedAt.
func WithClock(c ports.Clock) Option {
	return func(s *SQLiteStore) { s.clock = c }
}

// NewSQLiteStore opens (or creates) a snapshot database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, logger zerolog.Logger, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "snapshots").Logger(),
		ids:    idgen.UUID{},
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Digest is the content hash used to detect unchanged exports.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, schemaName, target string, body []byte) (Snapshot, bool, error) {
	digest := Digest(body)

	latest, err := s.Latest(ctx, schemaName, target)
	switch {
	case err == nil && latest.Digest == digest:
		s.logger.Debug().Str("schema", schemaName).Str("target", target).Str("id", latest.ID).Msg("snapshot unchanged")
		return latest, false, nil
	case err != nil && !errors.Is(err, ErrNoSnapshot):
		return Snapshot{}, false, err
	}

	snap := Snapshot{
		ID:        s.ids.New(),
		Schema:    schemaName,
		Target:    target,
		Digest:    digest,
		Body:      body,
		CreatedAt: s.clock.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, schema_name, target, digest, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Schema, snap.Target, snap.Digest, snap.Body, snap.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("insert snapshot: %w", err)
	}

	s.logger.Info().Str("schema", schemaName).Str("target", target).Str("id", snap.ID).Msg("snapshot saved")
	return snap, true, nil
}

const selectSnapshot = `SELECT id, schema_name, target, digest, body, created_at FROM snapshots`

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, schemaName, target string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		selectSnapshot+` WHERE schema_name = ? AND target = ? ORDER BY rowid DESC LIMIT 1`, schemaName, target)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w for %s/%s", ErrNoSnapshot, schemaName, target)
	}
	return snap, err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, selectSnapshot+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w with id %s", ErrNoSnapshot, id)
	}
	return snap, err
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, schemaName, target string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		selectSnapshot+` WHERE schema_name = ? AND target = ? ORDER BY rowid DESC LIMIT ?`, schemaName, target, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (Snapshot, error) {
	var snap Snapshot
	var created string
	if err := sc.Scan(&snap.ID, &snap.Schema, &snap.Target, &snap.Digest, &snap.Body, &created); err != nil {
		return Snapshot{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: bad created_at %q: %w", snap.ID, created, err)
	}
	snap.CreatedAt = t
	return snap, nil
}
