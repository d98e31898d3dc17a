package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/ports"
)

func exerciseStore(t *testing.T, s ports.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, core.KeyWalletName)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Set(ctx, core.KeyWalletName, "Phantom"))
	require.NoError(t, s.Set(ctx, core.KeyWalletAddress, "addr"))

	v, err := s.Get(ctx, core.KeyWalletName)
	require.NoError(t, err)
	assert.Equal(t, "Phantom", v)

	require.NoError(t, s.Set(ctx, core.KeyWalletName, "Backpack"))
	v, err = s.Get(ctx, core.KeyWalletName)
	require.NoError(t, err)
	assert.Equal(t, "Backpack", v)

	require.NoError(t, s.Delete(ctx, core.KeyWalletName, core.KeyWalletAddress, "never-set"))
	_, err = s.Get(ctx, core.KeyWalletAddress)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "k", "v"))
	assert.Equal(t, []string{"k"}, s.Keys())
	s.Clear()
	assert.Empty(t, s.Keys())
}

func TestLevelDBStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")
	s, err := OpenLevelDBStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), core.KeyDappPublicKey, "pub"))
	require.NoError(t, s.Close())

	reopened, err := OpenLevelDBStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(context.Background(), core.KeyDappPublicKey)
	require.NoError(t, err)
	assert.Equal(t, "pub", v)
}

func TestNamespaceIsolatesClients(t *testing.T) {
	shared := NewMemoryStore()
	a := Namespace(shared, "a")
	b := Namespace(shared, "b")
	exerciseStore(t, a)

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, core.KeyAuthToken, "token-a"))
	_, err := b.Get(ctx, core.KeyAuthToken)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, []string{"walletlink:a:" + core.KeyAuthToken}, shared.Keys())

	require.NoError(t, b.Delete(ctx, core.KeyAuthToken))
	v, err := a.Get(ctx, core.KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "token-a", v)
}
