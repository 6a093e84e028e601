package devwallet

import (
	"context"
	"errors"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/testutil"
)

func newTestSolana(t *testing.T, approve Approver) (*Solana, *AuthorizationStore) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	auths, err := OpenAuthorizationStore(testutil.DataDir(t))
	require.NoError(t, err)
	w, err := NewSolana(SolanaConfig{WalletKey: "PHANTOM_SOL", Key: key, Auths: auths, Approve: approve})
	require.NoError(t, err)
	return w, auths
}

func TestSolana_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("trusted connect fails before approval", func(t *testing.T) {
		w, _ := newTestSolana(t, nil)
		_, err := w.Connect(ctx, provider.SolanaConnectOptions{OnlyIfTrusted: true})
		assert.True(t, provider.IsUserRejection(err))
		assert.False(t, w.IsConnected())
		_, ok := w.PublicKey()
		assert.False(t, ok)
	})

	t.Run("approval is remembered", func(t *testing.T) {
		w, auths := newTestSolana(t, nil)
		pub, err := w.Connect(ctx, provider.SolanaConnectOptions{})
		require.NoError(t, err)
		assert.True(t, w.IsConnected())

		again, err := NewSolana(SolanaConfig{WalletKey: "PHANTOM_SOL", Key: w.key, Auths: auths})
		require.NoError(t, err)
		assert.True(t, again.IsConnected())
		got, ok := again.PublicKey()
		require.True(t, ok)
		assert.Equal(t, pub, got)

		trusted, err := again.Connect(ctx, provider.SolanaConnectOptions{OnlyIfTrusted: true})
		require.NoError(t, err)
		assert.Equal(t, pub, trusted)
	})

	t.Run("user rejection", func(t *testing.T) {
		w, _ := newTestSolana(t, func(context.Context, Approval) error { return errors.New("closed popup") })
		_, err := w.Connect(ctx, provider.SolanaConnectOptions{})
		assert.True(t, provider.IsUserRejection(err))
	})

	t.Run("disconnect revokes and emits", func(t *testing.T) {
		w, auths := newTestSolana(t, nil)
		_, err := w.Connect(ctx, provider.SolanaConnectOptions{})
		require.NoError(t, err)

		fired := 0
		w.On(provider.EventDisconnect, provider.NewListener(func(...any) { fired++ }))
		require.NoError(t, w.Disconnect(ctx))
		assert.Equal(t, 1, fired)
		assert.False(t, w.IsConnected())
		assert.Empty(t, auths.Wallets())
	})
}

func TestSolana_Signing(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestSolana(t, nil)

	payer := w.key.PublicKey()
	newTx := func() *solana.Transaction {
		tx, err := solana.NewTransaction(
			[]solana.Instruction{system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build()},
			solana.Hash{},
			solana.TransactionPayer(payer),
		)
		require.NoError(t, err)
		return tx
	}

	_, err := w.SignTransaction(ctx, newTx())
	code, _ := provider.ErrorCode(err)
	assert.Equal(t, provider.CodeUnauthorized, code, "signing requires a connection")

	_, err = w.Connect(ctx, provider.SolanaConnectOptions{})
	require.NoError(t, err)

	signed, err := w.SignTransaction(ctx, newTx())
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	assert.NoError(t, signed.VerifySignatures())

	batch, err := w.SignAllTransactions(ctx, []*solana.Transaction{newTx(), newTx()})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	msg := []byte("hello")
	sig, err := w.SignMessage(ctx, msg)
	require.NoError(t, err)
	assert.True(t, solana.SignatureFromBytes(sig).Verify(payer, msg))
}
