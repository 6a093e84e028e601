package devwallet

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/testutil"
	"github.com/yolodolo42/walletconnector/internal/tx"
)

type fakeBackend struct {
	mu       sync.Mutex
	sent     []*types.Transaction
	sentOn   []uint64
	rawCalls []string
}

func (b *fakeBackend) GetNonce(context.Context, uint64, common.Address) (uint64, error) {
	return 3, nil
}

func (b *fakeBackend) EstimateGas(context.Context, uint64, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context, uint64) (*big.Int, error) {
	return big.NewInt(20), nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context, uint64) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *fakeBackend) CallContract(context.Context, uint64, ethereum.CallMsg) ([]byte, error) {
	return nil, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, chainID uint64, signed *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, signed)
	b.sentOn = append(b.sentOn, chainID)
	return nil
}

func (b *fakeBackend) RawCall(_ context.Context, _ uint64, result any, method string, _ ...any) error {
	b.mu.Lock()
	b.rawCalls = append(b.rawCalls, method)
	b.mu.Unlock()
	if method == "eth_blockNumber" {
		*(result.(*json.RawMessage)) = json.RawMessage(`"0x2a"`)
		return nil
	}
	return provider.NewProviderError(-32601, "method not found")
}

func newTestEVM(t *testing.T, approve Approver, policy tx.Policy) (*EVM, *fakeBackend, *AuthorizationStore) {
	t.Helper()
	pk, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)
	auths, err := OpenAuthorizationStore(testutil.DataDir(t))
	require.NoError(t, err)
	networks, err := chain.NewDefaultRegistry()
	require.NoError(t, err)
	backend := &fakeBackend{}
	w, err := NewEVM(EVMConfig{
		WalletKey: "METAMASK",
		Key:       NewKey(pk),
		ChainID:   1,
		Networks:  networks,
		Backend:   backend,
		Auths:     auths,
		Policy:    policy,
		Approve:   approve,
		Logger:    logger.Test(t),
	})
	require.NoError(t, err)
	return w, backend, auths
}

func request[T any](t *testing.T, w *EVM, method string, params ...any) T {
	t.Helper()
	raw, err := w.Request(context.Background(), method, params...)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEVM_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("accounts are hidden until approved", func(t *testing.T) {
		w, _, auths := newTestEVM(t, nil, tx.Policy{})

		assert.Empty(t, request[[]string](t, w, "eth_accounts"))
		assert.Equal(t, []string{testAddress.Hex()}, request[[]string](t, w, "eth_requestAccounts"))
		assert.Equal(t, []string{testAddress.Hex()}, request[[]string](t, w, "eth_accounts"))

		a, ok := auths.Get("METAMASK")
		require.True(t, ok)
		assert.Equal(t, testAddress.Hex(), a.Account)
	})

	t.Run("rejected approval is a 4001", func(t *testing.T) {
		w, _, _ := newTestEVM(t, func(context.Context, Approval) error { return errors.New("no") }, tx.Policy{})
		_, err := w.Request(ctx, "eth_requestAccounts")
		assert.True(t, provider.IsUserRejection(err))
		assert.Empty(t, request[[]string](t, w, "eth_accounts"))
	})

	t.Run("revoke emits an empty account list", func(t *testing.T) {
		w, _, _ := newTestEVM(t, nil, tx.Policy{})
		request[[]string](t, w, "eth_requestAccounts")

		var got []any
		w.On(provider.EventAccountsChanged, provider.NewListener(func(args ...any) { got = args }))
		require.NoError(t, w.Revoke())
		require.Len(t, got, 1)
		assert.Equal(t, []string{}, got[0])
		assert.Empty(t, request[[]string](t, w, "eth_accounts"))
	})
}

func TestEVM_Chains(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown chain must be added first", func(t *testing.T) {
		w, _, auths := newTestEVM(t, nil, tx.Policy{})
		request[[]string](t, w, "eth_requestAccounts")
		assert.Equal(t, "0x1", request[string](t, w, "eth_chainId"))

		var changed []any
		w.On(provider.EventChainChanged, provider.NewListener(func(args ...any) { changed = args }))

		_, err := w.Request(ctx, "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: "0x89"})
		code, ok := provider.ErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, provider.CodeUnrecognizedChain, code)

		_, err = w.Request(ctx, "wallet_addEthereumChain", provider.AddChainParams{
			ChainID:   "0x89",
			ChainName: "Polygon",
			RPCURLs:   []string{"https://polygon-rpc.com"},
		})
		require.NoError(t, err)
		_, err = w.Request(ctx, "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: "0x89"})
		require.NoError(t, err)

		assert.Equal(t, []any{"0x89"}, changed)
		assert.Equal(t, uint64(137), w.ChainID())
		a, _ := auths.Get("METAMASK")
		assert.Equal(t, uint64(137), a.ChainID)
	})

	t.Run("add chain requires rpc urls and a configured network", func(t *testing.T) {
		w, _, _ := newTestEVM(t, nil, tx.Policy{})
		_, err := w.Request(ctx, "wallet_addEthereumChain", provider.AddChainParams{ChainID: "0x89"})
		assert.Error(t, err)
		_, err = w.Request(ctx, "wallet_addEthereumChain", provider.AddChainParams{ChainID: "0x67932", RPCURLs: []string{"http://x"}})
		assert.Error(t, err)
	})

	t.Run("remembered chain is restored", func(t *testing.T) {
		pk, err := crypto.HexToECDSA(testPrivateKey)
		require.NoError(t, err)
		auths, err := OpenAuthorizationStore(testutil.DataDir(t))
		require.NoError(t, err)
		require.NoError(t, auths.Grant("COINBASE", Authorization{Account: testAddress.Hex(), ChainID: 8453}))

		w, err := NewEVM(EVMConfig{WalletKey: "COINBASE", Key: NewKey(pk), ChainID: 1, Auths: auths})
		require.NoError(t, err)
		assert.Equal(t, uint64(8453), w.ChainID())
	})
}

func TestEVM_SendTransaction(t *testing.T) {
	ctx := context.Background()
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	t.Run("signs and broadcasts", func(t *testing.T) {
		var approvals []Approval
		w, backend, _ := newTestEVM(t, func(_ context.Context, a Approval) error {
			approvals = append(approvals, a)
			return nil
		}, tx.Policy{})
		request[[]string](t, w, "eth_requestAccounts")

		client, err := evmrpc.New(w, 1)
		require.NoError(t, err)
		hash, err := client.SendTransaction(ctx, evmrpc.TransactionArgs{
			From:  testAddress,
			To:    &to,
			Value: (*hexutil.Big)(big.NewInt(500)),
		})
		require.NoError(t, err)

		require.Len(t, backend.sent, 1)
		signed := backend.sent[0]
		assert.Equal(t, signed.Hash(), hash)
		assert.Equal(t, uint64(3), signed.Nonce())
		assert.Equal(t, big.NewInt(500), signed.Value())
		assert.Equal(t, []uint64{1}, backend.sentOn)
		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), signed)
		require.NoError(t, err)
		assert.Equal(t, testAddress, sender)

		require.Len(t, approvals, 2)
		assert.Equal(t, ApproveSendTransaction, approvals[1].Kind)
		assert.Contains(t, approvals[1].Detail, "send 0.0000000000000005 ETH to "+to.Hex())
	})

	t.Run("unauthorized", func(t *testing.T) {
		w, backend, _ := newTestEVM(t, nil, tx.Policy{})
		_, err := w.Request(ctx, "eth_sendTransaction", evmrpc.TransactionArgs{From: testAddress, To: &to})
		code, _ := provider.ErrorCode(err)
		assert.Equal(t, provider.CodeUnauthorized, code)
		assert.Empty(t, backend.sent)
	})

	t.Run("policy limit rejects", func(t *testing.T) {
		w, backend, _ := newTestEVM(t, nil, tx.Policy{MaxPerTxWei: big.NewInt(100)})
		request[[]string](t, w, "eth_requestAccounts")
		_, err := w.Request(ctx, "eth_sendTransaction", evmrpc.TransactionArgs{
			From:  testAddress,
			To:    &to,
			Value: (*hexutil.Big)(big.NewInt(101)),
		})
		assert.True(t, provider.IsUserRejection(err))
		assert.Empty(t, backend.sent)
	})

	t.Run("wrong chain id", func(t *testing.T) {
		w, _, _ := newTestEVM(t, nil, tx.Policy{})
		request[[]string](t, w, "eth_requestAccounts")
		_, err := w.Request(ctx, "eth_sendTransaction", evmrpc.TransactionArgs{
			From:    testAddress,
			To:      &to,
			ChainID: (*hexutil.Big)(big.NewInt(56)),
		})
		assert.Error(t, err)
	})
}

func TestEVM_SignAndProxy(t *testing.T) {
	ctx := context.Background()
	w, backend, _ := newTestEVM(t, nil, tx.Policy{})
	request[[]string](t, w, "eth_requestAccounts")

	client, err := evmrpc.New(w, 1)
	require.NoError(t, err)

	sig, err := client.PersonalSign(ctx, testAddress, []byte("hello"))
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	n, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
	assert.Equal(t, []string{"eth_blockNumber"}, backend.rawCalls)
}
