package sdk_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainsync/trainsync/pkg/sdk"
)

func TestMemoryStore(t *testing.T) {
	store := sdk.NewMemoryStore()

	_, ok := store.Read()
	assert.False(t, ok, "new store is empty")
	assert.False(t, sdk.HasCredential(store))

	require.NoError(t, store.Save("abc"))
	cred, ok := store.Read()
	require.True(t, ok)
	assert.Equal(t, sdk.Credential("Bearer abc"), cred)

	require.NoError(t, store.Save("Bearer def"), "save overwrites")
	cred, _ = store.Read()
	assert.Equal(t, sdk.Credential("Bearer def"), cred)

	require.NoError(t, store.SaveSnapshot(sdk.Identity{UserID: "7", Email: "c@example.com", Role: sdk.RoleCoach}))
	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, sdk.RoleCoach, snap.Role)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clear is idempotent")
	_, ok = store.Read()
	assert.False(t, ok)
	_, ok = store.Snapshot()
	assert.False(t, ok, "clear drops the snapshot")
}

func TestMemoryStore_SaveEmpty(t *testing.T) {
	store := sdk.NewMemoryStore()
	require.NoError(t, store.Save("abc"))

	err := store.Save("  ")
	assert.ErrorIs(t, err, sdk.ErrEmptyCredential)

	cred, ok := store.Read()
	require.True(t, ok, "failed save leaves the previous credential")
	assert.Equal(t, sdk.Credential("Bearer abc"), cred)
}

func TestUnavailableStore(t *testing.T) {
	store := sdk.UnavailableStore{Err: errors.New("read-only file system")}

	err := store.Save("abc")
	assert.ErrorIs(t, err, sdk.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.ErrorIs(t, store.SaveSnapshot(sdk.Identity{}), sdk.ErrStorageUnavailable)
	assert.NoError(t, store.Clear())
	assert.False(t, sdk.HasCredential(store))

	assert.ErrorIs(t, sdk.UnavailableStore{}.Save("abc"), sdk.ErrStorageUnavailable)
}

func TestHasCredential_NilStore(t *testing.T) {
	assert.False(t, sdk.HasCredential(nil))
}
