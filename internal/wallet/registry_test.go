package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnv struct {
	metaMask, trust, coinbase, phantomEVM bool
	phantomSol, solflare, backpack        bool
	panicOn                               string

	ethereum any
}

func (e *stubEnv) check(name string, v bool) bool {
	if e.panicOn == name {
		panic("malformed " + name)
	}
	return v
}

func (e *stubEnv) IsMetaMask() bool        { return e.check("metamask", e.metaMask) }
func (e *stubEnv) IsTrustWallet() bool     { return e.check("trust", e.trust) }
func (e *stubEnv) IsCoinbaseWallet() bool  { return e.check("coinbase", e.coinbase) }
func (e *stubEnv) IsPhantomEthereum() bool { return e.check("phantom", e.phantomEVM) }
func (e *stubEnv) IsPhantomSolana() bool   { return e.check("phantom_sol", e.phantomSol) }
func (e *stubEnv) IsSolflare() bool        { return e.check("solflare", e.solflare) }
func (e *stubEnv) IsBackpack() bool        { return e.check("backpack", e.backpack) }
func (e *stubEnv) Ethereum() any           { return e.ethereum }
func (e *stubEnv) PhantomEthereum() any    { return nil }
func (e *stubEnv) PhantomSolana() any      { return nil }
func (e *stubEnv) Solflare() any           { return nil }
func (e *stubEnv) Backpack() any           { return nil }

func TestDefaultRegistry(t *testing.T) {
	reg := NewDefaultRegistry(&stubEnv{})

	t.Run("every wallet is found by its own key", func(t *testing.T) {
		for _, d := range reg.List() {
			found, ok := reg.Find(d.Key)
			require.True(t, ok, "missing wallet: %s", d.Key)
			assert.Equal(t, d.Key, found.Key)
		}
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		var keys []string
		for _, d := range reg.List() {
			keys = append(keys, d.Key)
		}
		assert.Equal(t, []string{
			KeyMetaMask, KeyTrustWallet, KeyCoinbase, KeyPhantom,
			KeyPhantomSol, KeySolflare, KeyBackpack,
		}, keys)
	})

	t.Run("filters by family", func(t *testing.T) {
		evm := reg.List(FamilyEVM)
		sol := reg.List(FamilySolana)
		assert.Len(t, evm, 4)
		assert.Len(t, sol, 3)
		for _, d := range sol {
			assert.Equal(t, FamilySolana, d.Family)
		}
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		_, ok := reg.Find("LEDGER")
		assert.False(t, ok)
	})
}

func TestDescriptorDetection(t *testing.T) {
	t.Run("vendor flag selects the wallet", func(t *testing.T) {
		ethereum := struct{}{}
		reg := NewDefaultRegistry(&stubEnv{trust: true, ethereum: ethereum})

		installed := reg.Installed()
		require.Len(t, installed, 1)
		assert.Equal(t, KeyTrustWallet, installed[0].Key)
		assert.Equal(t, ethereum, installed[0].AcquireProvider())
	})

	t.Run("panicking probe reports not installed", func(t *testing.T) {
		reg := NewDefaultRegistry(&stubEnv{metaMask: true, panicOn: "metamask"})
		d, ok := reg.Find(KeyMetaMask)
		require.True(t, ok)

		assert.False(t, d.IsInstalled())

		installed, err := d.Detect()
		assert.False(t, installed)
		assert.Error(t, err)
	})

	t.Run("nil predicate is not installed", func(t *testing.T) {
		d := NewDescriptor("X", "X", FamilyEVM, "", nil, nil)
		assert.False(t, d.IsInstalled())
		assert.Nil(t, d.AcquireProvider())
	})
}

func TestNewRegistry(t *testing.T) {
	t.Run("rejects duplicate keys", func(t *testing.T) {
		d := NewDescriptor("A", "A", FamilyEVM, "", nil, nil)
		_, err := NewRegistry(d, d)
		assert.ErrorIs(t, err, ErrDuplicateWallet)
	})

	t.Run("rejects empty keys", func(t *testing.T) {
		_, err := NewRegistry(NewDescriptor("", "A", FamilyEVM, "", nil, nil))
		assert.Error(t, err)
	})
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("EVM")
	require.NoError(t, err)
	assert.Equal(t, FamilyEVM, f)

	f, err = ParseFamily("solana")
	require.NoError(t, err)
	assert.Equal(t, FamilySolana, f)

	_, err = ParseFamily("cosmos")
	assert.Error(t, err)
}
