package devwallet

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/testutil"
)

// Well-known development key; never use it for real funds.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestKeystore(t *testing.T) {
	t.Run("creates the keystore directory", func(t *testing.T) {
		dir := testutil.DataDir(t)
		ks, err := OpenKeystore(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "keystore"), ks.Dir())
		_, err = os.Stat(ks.Dir())
		require.NoError(t, err)
	})

	t.Run("import with and without prefix", func(t *testing.T) {
		ks, err := openLightKeystore(testutil.DataDir(t))
		require.NoError(t, err)

		acc, err := ks.Import("0x"+testPrivateKey, "password")
		require.NoError(t, err)
		assert.Equal(t, testAddress, acc.Address)
		assert.Len(t, ks.Accounts(), 1)

		ks2, err := openLightKeystore(testutil.DataDir(t))
		require.NoError(t, err)
		acc, err = ks2.Import(testPrivateKey, "password")
		require.NoError(t, err)
		assert.Equal(t, testAddress, acc.Address)
	})

	t.Run("rejects an invalid key", func(t *testing.T) {
		ks, err := openLightKeystore(testutil.DataDir(t))
		require.NoError(t, err)
		_, err = ks.Import("not-a-key", "password")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("unlock", func(t *testing.T) {
		ks, err := openLightKeystore(testutil.DataDir(t))
		require.NoError(t, err)
		acc, err := ks.Create("password")
		require.NoError(t, err)

		key, err := ks.Unlock(acc.Address, "password")
		require.NoError(t, err)
		assert.Equal(t, acc.Address, key.Address())

		_, err = ks.Unlock(acc.Address, "wrong")
		assert.Error(t, err)

		_, err = ks.Unlock(common.HexToAddress("0x1"), "password")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("open asks for the password on first signature", func(t *testing.T) {
		ks, err := openLightKeystore(testutil.DataDir(t))
		require.NoError(t, err)
		acc, err := ks.Import(testPrivateKey, "password")
		require.NoError(t, err)

		passwords := []string{"wrong", "password"}
		asked := 0
		key, err := ks.Open(acc.Address, func() (string, error) {
			pw := passwords[asked]
			asked++
			return pw, nil
		})
		require.NoError(t, err)
		assert.Equal(t, testAddress, key.Address())
		assert.Equal(t, 0, asked)

		_, err = key.SignPersonal([]byte("x"))
		assert.Error(t, err)
		_, err = key.SignPersonal([]byte("x"))
		require.NoError(t, err)
		_, err = key.SignPersonal([]byte("x"))
		require.NoError(t, err)
		assert.Equal(t, 2, asked)

		key.Lock()
		_, err = key.SignPersonal([]byte("x"))
		assert.ErrorIs(t, err, ErrAccountLocked)

		_, err = ks.Open(common.HexToAddress("0x1"), nil)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestKey(t *testing.T) {
	pk, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)

	t.Run("signs transactions for the chain", func(t *testing.T) {
		key := NewKey(pk)
		unsigned := types.NewTx(&types.DynamicFeeTx{
			ChainID:   big.NewInt(137),
			Nonce:     0,
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(2),
			Gas:       21000,
			To:        &testAddress,
			Value:     big.NewInt(1000),
		})
		signed, err := key.SignTx(unsigned, big.NewInt(137))
		require.NoError(t, err)

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(137)), signed)
		require.NoError(t, err)
		assert.Equal(t, testAddress, sender)
	})

	t.Run("personal sign recovers to the account", func(t *testing.T) {
		key := NewKey(pk)
		msg := []byte("hello")
		sig, err := key.SignPersonal(msg)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.Contains(t, []byte{27, 28}, sig[64])

		recoverable := append([]byte(nil), sig...)
		recoverable[64] -= 27
		pub, err := crypto.SigToPub(accounts.TextHash(msg), recoverable)
		require.NoError(t, err)
		assert.Equal(t, testAddress, crypto.PubkeyToAddress(*pub))
	})

	t.Run("locked key refuses to sign", func(t *testing.T) {
		fresh, err := crypto.HexToECDSA(testPrivateKey)
		require.NoError(t, err)
		key := NewKey(fresh)
		key.Lock()
		key.Lock()

		_, err = key.SignPersonal([]byte("x"))
		assert.ErrorIs(t, err, ErrAccountLocked)
		_, err = key.SignTx(types.NewTx(&types.DynamicFeeTx{}), big.NewInt(1))
		assert.ErrorIs(t, err, ErrAccountLocked)
	})
}

func TestSolanaKeyFile(t *testing.T) {
	path := filepath.Join(testutil.DataDir(t), "solana", "id.json")

	pub, err := NewSolanaKeyFile(path)
	require.NoError(t, err)

	key, err := LoadSolanaKey(path)
	require.NoError(t, err)
	assert.Equal(t, pub, key.PublicKey())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())

	_, err = NewSolanaKeyFile(path)
	assert.Error(t, err, "existing keypair must not be overwritten")

	_, err = LoadSolanaKey(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
