package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadrohq/kadro-go/credentials"
	"github.com/kadrohq/kadro-go/credentials/storagefake"
)

func TestStoreSetGetClear(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	store, err := credentials.NewStore(storage)
	require.NoError(t, err)

	_, ok := store.Get()
	require.False(t, ok)

	require.NoError(t, store.Set("token-1"))
	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "token-1", got)

	persisted, ok := storage.Value(credentials.TokenKey)
	require.True(t, ok)
	require.Equal(t, "token-1", persisted)

	require.NoError(t, store.Clear())
	_, ok = store.Get()
	require.False(t, ok)
	_, ok = storage.Value(credentials.TokenKey)
	require.False(t, ok)
}

func TestStoreLoadsPersistedToken(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	require.NoError(t, storage.Write(credentials.TokenKey, "survived-restart"))

	store, err := credentials.NewStore(storage)
	require.NoError(t, err)

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "survived-restart", got)
}

func TestStoreLastWriteWins(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	store, err := credentials.NewStore(storage)
	require.NoError(t, err)

	// Two writers (bridge and silent refresh) race to the same slot; the
	// later write is the one everyone reads.
	require.NoError(t, store.Set("from-bridge"))
	require.NoError(t, store.Set("from-refresh"))

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "from-refresh", got)
}

func TestStoreKeepsTokenInMemoryWhenMirrorFails(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	store, err := credentials.NewStore(storage)
	require.NoError(t, err)

	storage.WriteErr = assert.AnError

	err = store.Set("token-2")
	require.Error(t, err)

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "token-2", got)
}

func TestStoreRequiresStorage(t *testing.T) {
	_, err := credentials.NewStore(nil)
	require.Error(t, err)
}
