package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trainsync/trainsync/pkg/sdk"
)

const (
	sqliteFile = "storage.db"

	// Each operation is a single statement on a local file.
	sqliteOpTimeout = 5 * time.Second
)

const createStorageTable = `CREATE TABLE IF NOT EXISTS storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore implements sdk.CredentialStore on a key/value table, for hosts
// where several trainsync processes share one session.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ sdk.CredentialStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) dir/storage.db.
func OpenSQLiteStore(ctx context.Context, dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", sdk.ErrStorageUnavailable, dir, err)
	}
	path := filepath.Join(dir, sqliteFile)

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", sdk.ErrStorageUnavailable, path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createStorageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %v", sdk.ErrStorageUnavailable, path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: chmod %s: %v", sdk.ErrStorageUnavailable, path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Save(raw string) error {
	cred := sdk.NormalizeCredential(raw)
	if cred == "" {
		return sdk.ErrEmptyCredential
	}
	return s.put(sdk.CredentialKey, cred.String())
}

func (s *SQLiteStore) Read() (sdk.Credential, bool) {
	value, ok := s.get(sdk.CredentialKey)
	if !ok || value == "" {
		return "", false
	}
	return sdk.NormalizeCredential(value), true
}

func (s *SQLiteStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `DELETE FROM storage WHERE key IN (?, ?)`, sdk.CredentialKey, sdk.SnapshotKey)
	if err != nil {
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(identity sdk.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal user snapshot: %w", err)
	}
	return s.put(sdk.SnapshotKey, string(data))
}

func (s *SQLiteStore) Snapshot() (sdk.Identity, bool) {
	value, ok := s.get(sdk.SnapshotKey)
	if !ok {
		return sdk.Identity{}, false
	}
	var identity sdk.Identity
	if err := json.Unmarshal([]byte(value), &identity); err != nil {
		return sdk.Identity{}, false
	}
	return identity, true
}

func (s *SQLiteStore) put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	return nil
}

// get reads key; storage errors read as absent.
func (s *SQLiteStore) get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
