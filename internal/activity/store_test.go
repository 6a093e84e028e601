package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/testutil"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func TestStore_CreateAndClose(t *testing.T) {
	dataDir := testutil.DataDir(t)
	store, err := Open(dataDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(dataDir, "activity.db"))
	assert.NoError(t, err)
}

func TestStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	store, err := OpenDSN(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.UnixMilli(1_700_000_000_000)
	entries := []Entry{
		{WalletKey: "METAMASK", Family: wallet.FamilyEVM, ChainID: 1, Account: "0xaa", TxID: "0x01", To: "0xbb", Amount: "1", CreatedAt: base},
		{WalletKey: "SOLFLARE", Family: wallet.FamilySolana, Account: "Sol1", TxID: "sig1", To: "Sol2", Amount: "0.5", CreatedAt: base.Add(time.Second)},
		{WalletKey: "METAMASK", Family: wallet.FamilyEVM, ChainID: 137, Account: "0xaa", TxID: "0x02", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.List(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "0x02", got[0].TxID)
		assert.Equal(t, "sig1", got[1].TxID)
		assert.Equal(t, wallet.FamilySolana, got[1].Family)
		assert.Equal(t, entries[0], got[2])
	})

	t.Run("filter and limit", func(t *testing.T) {
		got, err := store.List(ctx, "0xaa", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(137), got[0].ChainID)
	})

	t.Run("duplicates are ignored", func(t *testing.T) {
		dup := entries[0]
		dup.Amount = "999"
		require.NoError(t, store.Record(ctx, dup))
		got, err := store.List(ctx, "0xaa", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[1].Amount)
	})

	t.Run("required fields", func(t *testing.T) {
		assert.Error(t, store.Record(ctx, Entry{WalletKey: "METAMASK", Family: wallet.FamilyEVM}))
	})

	t.Run("nil store", func(t *testing.T) {
		var s *Store
		assert.ErrorIs(t, s.Record(ctx, entries[0]), ErrNotInitialized)
		assert.NoError(t, s.Close())
	})
}
