package sdk

import (
	"fmt"
	"strings"
	"sync"
)

// Storage keys, shared by every persistent CredentialStore implementation.
const (
	CredentialKey = "token"
	SnapshotKey   = "user"
)

// CredentialStore persists the session credential and a display snapshot of
// the signed-in user. Save and Clear are synchronous: once they return, every
// component reading the same store observes the change.
type CredentialStore interface {
	// Save normalizes raw and overwrites any stored credential.
	// It fails with ErrStorageUnavailable when the backing area cannot be written.
	Save(raw string) error
	// Read returns the stored credential. Storage failures read as absent.
	Read() (Credential, bool)
	// Clear removes the credential and the identity snapshot. Idempotent.
	Clear() error
	// SaveSnapshot caches the display identity returned by a credential exchange.
	SaveSnapshot(identity Identity) error
	// Snapshot returns the cached display identity. Never authoritative.
	Snapshot() (Identity, bool)
}

// MemoryStore is a process-local CredentialStore.
type MemoryStore struct {
	mu       sync.RWMutex
	cred     Credential
	snapshot *Identity
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save normalizes and stores raw, replacing any previous credential.
func (s *MemoryStore) Save(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = NormalizeCredential(raw)
	return nil
}

// Read returns the stored credential, if any.
func (s *MemoryStore) Read() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.cred != ""
}

// Clear drops the credential and the snapshot.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = ""
	s.snapshot = nil
	return nil
}

// SaveSnapshot caches identity for display.
func (s *MemoryStore) SaveSnapshot(identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &identity
	return nil
}

// Snapshot returns the cached identity, if any.
func (s *MemoryStore) Snapshot() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Identity{}, false
	}
	return *s.snapshot, true
}

// UnavailableStore stands in for a store whose backing area could not be
// opened. It reads as empty and refuses writes with Err.
type UnavailableStore struct {
	Err error
}

var _ CredentialStore = UnavailableStore{}

func (s UnavailableStore) err() error {
	if s.Err == nil {
		return ErrStorageUnavailable
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, s.Err)
}

func (s UnavailableStore) Save(string) error { return s.err() }
func (UnavailableStore) Read() (Credential, bool) { return "", false }
func (UnavailableStore) Clear() error { return nil }
func (s UnavailableStore) SaveSnapshot(Identity) error { return s.err() }
func (UnavailableStore) Snapshot() (Identity, bool) { return Identity{}, false }

// HasCredential reports credential presence only; it says nothing about validity.
func HasCredential(store CredentialStore) bool {
	if store == nil {
		return false
	}
	_, ok := store.Read()
	return ok
}
