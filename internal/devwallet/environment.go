package devwallet

import (
	"fmt"
	"strings"

	solana "github.com/gagliardetto/solana-go"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/tx"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

// EthereumVendor is the vendor flag carried by the shared injected ethereum object.
type EthereumVendor string

const (
	VendorNone     EthereumVendor = ""
	VendorMetaMask EthereumVendor = "metamask"
	VendorTrust    EthereumVendor = "trust"
	VendorCoinbase EthereumVendor = "coinbase"
)

func ParseVendor(s string) (EthereumVendor, error) {
	switch v := EthereumVendor(strings.ToLower(strings.TrimSpace(s))); v {
	case VendorNone, VendorMetaMask, VendorTrust, VendorCoinbase:
		return v, nil
	default:
		return "", fmt.Errorf("unknown ethereum vendor %q (want metamask, trust or coinbase)", s)
	}
}

func (v EthereumVendor) walletKey() string {
	switch v {
	case VendorMetaMask:
		return wallet.KeyMetaMask
	case VendorTrust:
		return wallet.KeyTrustWallet
	case VendorCoinbase:
		return wallet.KeyCoinbase
	}
	return ""
}

// EnvironmentConfig selects which wallets are "installed". It is read from
// the environment.* config keys.
type EnvironmentConfig struct {
	Ethereum string `mapstructure:"ethereum"`
	Phantom  bool   `mapstructure:"phantom"`
	Solflare bool   `mapstructure:"solflare"`
	Backpack bool   `mapstructure:"backpack"`
}

// Deps are the shared collaborators of the injected wallets. EVM wallets are
// injected only when EVMKey is set, Solana wallets only when SolanaKey is.
type Deps struct {
	EVMKey    *Key
	SolanaKey solana.PrivateKey
	ChainID   uint64
	Networks  *chain.Registry
	Backend   Backend
	Auths     *AuthorizationStore
	Policy    tx.Policy
	Approve   Approver
	Logger    logger.Logger
}

// Environment is a wallet.EnvironmentProbe over dev wallets.
type Environment struct {
	vendor     EthereumVendor
	ethereum   *EVM
	phantomEVM *EVM
	phantomSol *Solana
	solflare   *Solana
	backpack   *Solana
}

var _ wallet.EnvironmentProbe = (*Environment)(nil)

func NewEnvironment(cfg EnvironmentConfig, deps Deps) (*Environment, error) {
	vendor, err := ParseVendor(cfg.Ethereum)
	if err != nil {
		return nil, err
	}
	env := &Environment{vendor: vendor}

	newEVM := func(key string) (*EVM, error) {
		return NewEVM(EVMConfig{
			WalletKey: key,
			Key:       deps.EVMKey,
			ChainID:   deps.ChainID,
			Networks:  deps.Networks,
			Backend:   deps.Backend,
			Auths:     deps.Auths,
			Policy:    deps.Policy,
			Approve:   deps.Approve,
			Logger:    deps.Logger,
		})
	}
	newSolana := func(key string) (*Solana, error) {
		return NewSolana(SolanaConfig{
			WalletKey: key,
			Key:       deps.SolanaKey,
			Auths:     deps.Auths,
			Approve:   deps.Approve,
			Logger:    deps.Logger,
		})
	}

	if deps.EVMKey != nil {
		if vendor != VendorNone {
			if env.ethereum, err = newEVM(vendor.walletKey()); err != nil {
				return nil, err
			}
		}
		if cfg.Phantom {
			if env.phantomEVM, err = newEVM(wallet.KeyPhantom); err != nil {
				return nil, err
			}
		}
	}
	if len(deps.SolanaKey) > 0 {
		if cfg.Phantom {
			if env.phantomSol, err = newSolana(wallet.KeyPhantomSol); err != nil {
				return nil, err
			}
		}
		if cfg.Solflare {
			if env.solflare, err = newSolana(wallet.KeySolflare); err != nil {
				return nil, err
			}
		}
		if cfg.Backpack {
			if env.backpack, err = newSolana(wallet.KeyBackpack); err != nil {
				return nil, err
			}
		}
	}
	return env, nil
}

func (e *Environment) IsMetaMask() bool        { return e.ethereum != nil && e.vendor == VendorMetaMask }
func (e *Environment) IsTrustWallet() bool     { return e.ethereum != nil && e.vendor == VendorTrust }
func (e *Environment) IsCoinbaseWallet() bool  { return e.ethereum != nil && e.vendor == VendorCoinbase }
func (e *Environment) IsPhantomEthereum() bool { return e.phantomEVM != nil }
func (e *Environment) IsPhantomSolana() bool   { return e.phantomSol != nil }
func (e *Environment) IsSolflare() bool        { return e.solflare != nil }
func (e *Environment) IsBackpack() bool        { return e.backpack != nil }

// The accessors return an untyped nil for absent wallets.

func (e *Environment) Ethereum() any        { return evmOrNil(e.ethereum) }
func (e *Environment) PhantomEthereum() any { return evmOrNil(e.phantomEVM) }
func (e *Environment) PhantomSolana() any   { return solanaOrNil(e.phantomSol) }
func (e *Environment) Solflare() any        { return solanaOrNil(e.solflare) }
func (e *Environment) Backpack() any        { return solanaOrNil(e.backpack) }

func evmOrNil(w *EVM) any {
	if w == nil {
		return nil
	}
	return w
}

func solanaOrNil(w *Solana) any {
	if w == nil {
		return nil
	}
	return w
}
