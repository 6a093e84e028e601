package devwallet_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/connector"
	"github.com/yolodolo42/walletconnector/internal/devwallet"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/testutil"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func newEnvironment(t *testing.T, dir string, cfg devwallet.EnvironmentConfig) *devwallet.Environment {
	t.Helper()
	pk, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	solKey, err := devwallet.LoadSolanaKey(solanaKeyPath(t, dir))
	require.NoError(t, err)
	auths, err := devwallet.OpenAuthorizationStore(dir)
	require.NoError(t, err)
	networks, err := chain.NewDefaultRegistry()
	require.NoError(t, err)

	env, err := devwallet.NewEnvironment(cfg, devwallet.Deps{
		EVMKey:    devwallet.NewKey(pk),
		SolanaKey: solKey,
		ChainID:   1,
		Networks:  networks,
		Auths:     auths,
		Logger:    logger.Test(t),
	})
	require.NoError(t, err)
	return env
}

func solanaKeyPath(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "id.json")
	if _, err := devwallet.LoadSolanaKey(path); err == nil {
		return path
	}
	_, err := devwallet.NewSolanaKeyFile(path)
	require.NoError(t, err)
	return path
}

func newManager(t *testing.T, env wallet.EnvironmentProbe) *connector.Manager {
	t.Helper()
	networks, err := chain.NewDefaultRegistry()
	require.NoError(t, err)
	m, err := connector.New(wallet.NewDefaultRegistry(env), networks, connector.WithLogger(logger.Test(t)))
	require.NoError(t, err)
	return m
}

func TestEnvironment_Detection(t *testing.T) {
	t.Run("vendor flag picks one of the shared ethereum wallets", func(t *testing.T) {
		env := newEnvironment(t, testutil.DataDir(t), devwallet.EnvironmentConfig{Ethereum: "trust"})
		reg := wallet.NewDefaultRegistry(env)

		var installed []string
		for _, d := range reg.Installed() {
			installed = append(installed, d.Key)
		}
		assert.Equal(t, []string{wallet.KeyTrustWallet}, installed)
		assert.Nil(t, env.PhantomSolana())
		assert.NotNil(t, env.Ethereum())
	})

	t.Run("phantom injects both families", func(t *testing.T) {
		env := newEnvironment(t, testutil.DataDir(t), devwallet.EnvironmentConfig{Phantom: true, Backpack: true})
		reg := wallet.NewDefaultRegistry(env)

		var installed []string
		for _, d := range reg.Installed() {
			installed = append(installed, d.Key)
		}
		assert.Equal(t, []string{wallet.KeyPhantom, wallet.KeyPhantomSol, wallet.KeyBackpack}, installed)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		_, err := devwallet.NewEnvironment(devwallet.EnvironmentConfig{Ethereum: "rabby"}, devwallet.Deps{})
		assert.Error(t, err)
	})

	t.Run("no keys means nothing installed", func(t *testing.T) {
		env, err := devwallet.NewEnvironment(devwallet.EnvironmentConfig{Ethereum: "metamask", Phantom: true}, devwallet.Deps{})
		require.NoError(t, err)
		assert.Empty(t, wallet.NewDefaultRegistry(env).Installed())
	})
}

// A CLI run connects; the next run reattaches silently from the stored
// authorization; disconnecting revokes it.
func TestEnvironment_ReattachAcrossRuns(t *testing.T) {
	ctx := context.Background()
	dir := testutil.DataDir(t)
	cfg := devwallet.EnvironmentConfig{Ethereum: "metamask", Solflare: true}

	first := newManager(t, newEnvironment(t, dir, cfg))
	_, ok, err := first.CheckExistingConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := first.Connect(ctx, wallet.KeySolflare)
	require.NoError(t, err)
	assert.Equal(t, wallet.FamilySolana, s.Family)
	pub := solana.MustPublicKeyFromBase58(s.Address)

	second := newManager(t, newEnvironment(t, dir, cfg))
	again, ok, err := second.CheckExistingConnection(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wallet.KeySolflare, again.WalletKey)
	assert.Equal(t, pub.String(), again.Address)

	require.NoError(t, second.Disconnect(ctx))

	third := newManager(t, newEnvironment(t, dir, cfg))
	_, ok, err = third.CheckExistingConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnvironment_EVMSwitchThroughManager(t *testing.T) {
	ctx := context.Background()
	env := newEnvironment(t, testutil.DataDir(t), devwallet.EnvironmentConfig{Ethereum: "coinbase"})
	m := newManager(t, env)

	s, err := m.Connect(ctx, wallet.KeyCoinbase)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.ChainID)

	require.NoError(t, m.SwitchNetwork(ctx, 56))
	s, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, uint64(56), s.ChainID)
	assert.Equal(t, uint64(56), s.RPCClient.ChainID())

	evm, ok := s.RawProvider.(*devwallet.EVM)
	require.True(t, ok)
	require.NoError(t, evm.Revoke())
	assert.Equal(t, connector.Idle, m.State())
}
