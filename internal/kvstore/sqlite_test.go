package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteKVSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	kv, err := OpenSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()

	_, found, err := kv.Get(ctx, "domains/missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, kv.Set(ctx, "domains/block", "ads.example.com\n"))

	value, found, err := kv.Get(ctx, "domains/block")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ads.example.com\n", value)
}

func TestSQLiteKVSetOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	kv, err := OpenSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "ips/allow", "1.1.1.1\n"))
	require.NoError(t, kv.Set(ctx, "ips/allow", "2.2.2.2\n"))

	value, found, err := kv.Get(ctx, "ips/allow")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2.2.2.2\n", value)
}

func TestSQLiteKVHealth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	kv, err := OpenSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Health())
}
