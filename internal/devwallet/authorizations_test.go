package devwallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/testutil"
)

func TestAuthorizationStore(t *testing.T) {
	t.Run("grant survives reopen", func(t *testing.T) {
		dir := testutil.DataDir(t)
		s, err := OpenAuthorizationStore(dir)
		require.NoError(t, err)

		_, ok := s.Get("METAMASK")
		assert.False(t, ok)

		require.NoError(t, s.Grant("METAMASK", Authorization{Account: "0xabc", ChainID: 1}))
		require.NoError(t, s.SetChain("METAMASK", 137))

		reopened, err := OpenAuthorizationStore(dir)
		require.NoError(t, err)
		a, ok := reopened.Get("METAMASK")
		require.True(t, ok)
		assert.Equal(t, "0xabc", a.Account)
		assert.Equal(t, uint64(137), a.ChainID)
		assert.False(t, a.GrantedAt.IsZero())

		info, err := os.Stat(filepath.Join(dir, authFileName))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())
	})

	t.Run("revoke", func(t *testing.T) {
		s, err := OpenAuthorizationStore(testutil.DataDir(t))
		require.NoError(t, err)
		require.NoError(t, s.Grant("SOLFLARE", Authorization{Account: "key"}))
		require.NoError(t, s.Grant("BACKPACK", Authorization{Account: "key"}))
		assert.Equal(t, []string{"BACKPACK", "SOLFLARE"}, s.Wallets())

		require.NoError(t, s.Revoke("SOLFLARE"))
		require.NoError(t, s.Revoke("SOLFLARE"))
		assert.Equal(t, []string{"BACKPACK"}, s.Wallets())
	})

	t.Run("set chain on unknown wallet is a no-op", func(t *testing.T) {
		s, err := OpenAuthorizationStore(testutil.DataDir(t))
		require.NoError(t, err)
		require.NoError(t, s.SetChain("METAMASK", 56))
		_, ok := s.Get("METAMASK")
		assert.False(t, ok)
	})

	t.Run("tolerates a file without wallets", func(t *testing.T) {
		dir := testutil.DataDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, authFileName), []byte(`{"version":1}`), filePerms))

		s, err := OpenAuthorizationStore(dir)
		require.NoError(t, err)
		require.NoError(t, s.Grant("PHANTOM", Authorization{Account: "0x1"}))
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		dir := testutil.DataDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, authFileName), []byte(`{`), filePerms))
		_, err := OpenAuthorizationStore(dir)
		assert.Error(t, err)
	})
}
