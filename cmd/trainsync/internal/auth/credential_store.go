package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/trainsync/trainsync/pkg/sdk"
)

const storageFile = "storage.json"

// FileStore implements sdk.CredentialStore on a JSON object file holding the
// "token" and "user" keys. Unknown keys are preserved across writes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// Ensure FileStore implements sdk.CredentialStore at compile time.
var _ sdk.CredentialStore = (*FileStore)(nil)

// NewFileStore creates dir (mode 0700) and returns a store backed by
// dir/storage.json. An unusable dir fails with sdk.ErrStorageUnavailable.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", sdk.ErrStorageUnavailable, dir, err)
	}
	return &FileStore{path: filepath.Join(dir, storageFile)}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Save normalizes raw and writes it under the "token" key.
func (s *FileStore) Save(raw string) error {
	cred := sdk.NormalizeCredential(raw)
	if cred == "" {
		return sdk.ErrEmptyCredential
	}
	value, err := json.Marshal(cred.String())
	if err != nil {
		return err
	}
	return s.update(func(entries map[string]json.RawMessage) {
		entries[sdk.CredentialKey] = value
	})
}

// Read returns the stored credential. An unreadable file reads as absent.
func (s *FileStore) Read() (sdk.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", false
	}
	var raw string
	if err := json.Unmarshal(entries[sdk.CredentialKey], &raw); err != nil || raw == "" {
		return "", false
	}
	return sdk.NormalizeCredential(raw), true
}

// Clear removes the "token" and "user" keys, keeping any others.
func (s *FileStore) Clear() error {
	return s.update(func(entries map[string]json.RawMessage) {
		delete(entries, sdk.CredentialKey)
		delete(entries, sdk.SnapshotKey)
	})
}

// SaveSnapshot writes identity under the "user" key.
func (s *FileStore) SaveSnapshot(identity sdk.Identity) error {
	value, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal user snapshot: %w", err)
	}
	return s.update(func(entries map[string]json.RawMessage) {
		entries[sdk.SnapshotKey] = value
	})
}

// Snapshot returns the "user" entry, if present and decodable.
func (s *FileStore) Snapshot() (sdk.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return sdk.Identity{}, false
	}
	data, ok := entries[sdk.SnapshotKey]
	if !ok {
		return sdk.Identity{}, false
	}
	var identity sdk.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return sdk.Identity{}, false
	}
	return identity, true
}

// load reads the file. A missing file is an empty store; a corrupt one is
// an error, which readers treat as absent.
func (s *FileStore) load() (map[string]json.RawMessage, error) {
	entries := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage file: %w", err)
	}
	return entries, nil
}

// update applies fn and writes the result atomically (temp file + rename).
func (s *FileStore) update(fn func(map[string]json.RawMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		// A corrupt file is overwritten.
		entries = make(map[string]json.RawMessage)
	}
	fn(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", sdk.ErrStorageUnavailable, err)
	}
	return nil
}
