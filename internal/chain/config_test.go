package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNetworks(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	t.Run("returns all expected networks in order", func(t *testing.T) {
		var ids []uint64
		for _, n := range reg.List() {
			ids = append(ids, n.ChainID)
		}
		assert.Equal(t, []uint64{1, 137, 56, 97, 8453, 11155111}, ids)
	})

	t.Run("polygon config is correct", func(t *testing.T) {
		poly, ok := reg.Find(137)
		require.True(t, ok)

		assert.Equal(t, "Polygon", poly.Name)
		assert.Equal(t, "0x89", poly.HexChainID)
		assert.Equal(t, "https://polygon-rpc.com", poly.RPCEndpoint)
		assert.Equal(t, "MATIC", poly.CurrencySymbol)
		assert.Equal(t, uint8(18), poly.CurrencyDecimals)
		assert.False(t, poly.IsTestnet)
	})

	t.Run("bsc testnet config is correct", func(t *testing.T) {
		bsc, ok := reg.Find(97)
		require.True(t, ok)

		assert.Equal(t, "BNB Smart Chain Testnet", bsc.Name)
		assert.Equal(t, "0x61", bsc.HexChainID)
		assert.Equal(t, "tBNB", bsc.CurrencySymbol)
		assert.True(t, bsc.IsTestnet)
	})

	t.Run("all networks have RPC endpoints", func(t *testing.T) {
		for _, n := range reg.List() {
			assert.NotEmpty(t, n.RPCEndpoint, "network %d has no RPC endpoint", n.ChainID)
		}
	})

	t.Run("hex chain id matches chain id", func(t *testing.T) {
		for _, n := range reg.List() {
			assert.Equal(t, n.ChainID, n.BigChainID().Uint64())
			norm, err := n.normalize()
			require.NoError(t, err, "network %d", n.ChainID)
			assert.Equal(t, n.HexChainID, norm.HexChainID)
		}
	})

	t.Run("unknown chain is absent", func(t *testing.T) {
		_, ok := reg.Find(424242)
		assert.False(t, ok)
	})
}

func TestNewRegistry(t *testing.T) {
	t.Run("derives hex id and decimals", func(t *testing.T) {
		reg, err := NewRegistry(Network{ChainID: 31337, Name: "Anvil", RPCEndpoint: "http://127.0.0.1:8545", CurrencySymbol: "ETH"})
		require.NoError(t, err)

		n, ok := reg.Find(31337)
		require.True(t, ok)
		assert.Equal(t, "0x7a69", n.HexChainID)
		assert.Equal(t, uint8(18), n.CurrencyDecimals)
	})

	t.Run("rejects mismatched hex id", func(t *testing.T) {
		_, err := NewRegistry(Network{ChainID: 1, HexChainID: "0x2"})
		assert.Error(t, err)
	})

	t.Run("rejects zero chain id", func(t *testing.T) {
		_, err := NewRegistry(Network{Name: "broken"})
		assert.Error(t, err)
	})

	t.Run("override keeps position", func(t *testing.T) {
		reg, err := NewDefaultRegistry(Network{ChainID: 137, Name: "Polygon PoS", RPCEndpoint: "https://polygon.llamarpc.com", CurrencySymbol: "POL"})
		require.NoError(t, err)

		assert.Equal(t, uint64(137), reg.List()[1].ChainID)
		poly, _ := reg.Find(137)
		assert.Equal(t, "POL", poly.CurrencySymbol)
		assert.Equal(t, "https://polygon.llamarpc.com", poly.RPCEndpoint)
	})

	t.Run("partial override keeps built-in fields", func(t *testing.T) {
		reg, err := NewDefaultRegistry(Network{ChainID: 137, RPCEndpoint: "https://my-polygon"})
		require.NoError(t, err)

		poly, ok := reg.Find(137)
		require.True(t, ok)
		assert.Equal(t, "https://my-polygon", poly.RPCEndpoint)
		assert.Equal(t, "Polygon", poly.Name)
		assert.Equal(t, "MATIC", poly.CurrencySymbol)
		assert.Equal(t, uint8(18), poly.CurrencyDecimals)
		assert.Equal(t, "https://polygonscan.com", poly.ExplorerURL)
		assert.Equal(t, "0x89", poly.HexChainID)
		assert.Len(t, reg.List(), len(DefaultNetworks()))
	})

	t.Run("override with a conflicting hex id is rejected", func(t *testing.T) {
		_, err := NewDefaultRegistry(Network{ChainID: 137, HexChainID: "0x1"})
		assert.Error(t, err)
	})
}
