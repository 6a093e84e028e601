package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Network holds the descriptor of an EVM network.
// Invariant: HexChainID and ChainID always represent the same value.
// HexChainID is what wallet providers speak (EIP-695 / EIP-3085).
type Network struct {
	ChainID          uint64 `mapstructure:"chain_id" yaml:"chain_id"`
	Name             string `mapstructure:"name" yaml:"name"`
	RPCEndpoint      string `mapstructure:"rpc_url" yaml:"rpc_url"`
	HexChainID       string `mapstructure:"hex_chain_id" yaml:"hex_chain_id"`
	CurrencySymbol   string `mapstructure:"currency" yaml:"currency"`
	CurrencyDecimals uint8  `mapstructure:"decimals" yaml:"decimals"`
	ExplorerURL      string `mapstructure:"explorer_url" yaml:"explorer_url"`
	IsTestnet        bool   `mapstructure:"is_testnet" yaml:"is_testnet"`
}

// BigChainID returns the chain id for go-ethereum signer APIs.
func (n Network) BigChainID() *big.Int {
	return new(big.Int).SetUint64(n.ChainID)
}

// patch overlays the non-zero fields of o onto n. IsTestnet can only be
// switched on.
func (n Network) patch(o Network) Network {
	if o.Name != "" {
		n.Name = o.Name
	}
	if o.RPCEndpoint != "" {
		n.RPCEndpoint = o.RPCEndpoint
	}
	if o.HexChainID != "" {
		n.HexChainID = o.HexChainID
	}
	if o.CurrencySymbol != "" {
		n.CurrencySymbol = o.CurrencySymbol
	}
	if o.CurrencyDecimals != 0 {
		n.CurrencyDecimals = o.CurrencyDecimals
	}
	if o.ExplorerURL != "" {
		n.ExplorerURL = o.ExplorerURL
	}
	n.IsTestnet = n.IsTestnet || o.IsTestnet
	return n
}

// normalize fills derived fields and checks the hex/numeric invariant.
func (n Network) normalize() (Network, error) {
	if n.ChainID == 0 {
		return n, fmt.Errorf("network %q: chain id is required", n.Name)
	}
	want := hexutil.EncodeUint64(n.ChainID)
	if n.HexChainID == "" {
		n.HexChainID = want
	}
	got, err := hexutil.DecodeUint64(n.HexChainID)
	if err != nil {
		return n, fmt.Errorf("network %q: invalid hex chain id %q: %w", n.Name, n.HexChainID, err)
	}
	if got != n.ChainID {
		return n, fmt.Errorf("network %q: hex chain id %s does not match %d", n.Name, n.HexChainID, n.ChainID)
	}
	// Providers compare hex ids textually; keep the canonical form.
	n.HexChainID = want
	if n.CurrencyDecimals == 0 {
		n.CurrencyDecimals = 18
	}
	if n.Name == "" {
		n.Name = fmt.Sprintf("Chain %d", n.ChainID)
	}
	return n, nil
}

// DefaultNetworks returns the built-in network table.
func DefaultNetworks() []Network {
	return []Network{
		{
			ChainID:          1,
			Name:             "Ethereum Mainnet",
			RPCEndpoint:      "https://eth.llamarpc.com",
			HexChainID:       "0x1",
			CurrencySymbol:   "ETH",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://etherscan.io",
		},
		{
			ChainID:          137,
			Name:             "Polygon",
			RPCEndpoint:      "https://polygon-rpc.com",
			HexChainID:       "0x89",
			CurrencySymbol:   "MATIC",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://polygonscan.com",
		},
		{
			ChainID:          56,
			Name:             "BNB Smart Chain",
			RPCEndpoint:      "https://bsc-dataseed.binance.org",
			HexChainID:       "0x38",
			CurrencySymbol:   "BNB",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://bscscan.com",
		},
		{
			ChainID:          97,
			Name:             "BNB Smart Chain Testnet",
			RPCEndpoint:      "https://data-seed-prebsc-1-s1.binance.org:8545",
			HexChainID:       "0x61",
			CurrencySymbol:   "tBNB",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://testnet.bscscan.com",
			IsTestnet:        true,
		},
		{
			ChainID:          8453,
			Name:             "Base",
			RPCEndpoint:      "https://mainnet.base.org",
			HexChainID:       "0x2105",
			CurrencySymbol:   "ETH",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://basescan.org",
		},
		{
			ChainID:          11155111,
			Name:             "Sepolia Testnet",
			RPCEndpoint:      "https://rpc.sepolia.org",
			HexChainID:       "0xaa36a7",
			CurrencySymbol:   "ETH",
			CurrencyDecimals: 18,
			ExplorerURL:      "https://sepolia.etherscan.io",
			IsTestnet:        true,
		},
	}
}
