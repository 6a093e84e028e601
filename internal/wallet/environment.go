package wallet

// EnvironmentProbe exposes the injected wallet globals of the host
// environment. Each Is* method is a vendor check against the flags of the
// corresponding injected object; implementations must be side-effect free.
//
// MetaMask, Trust Wallet and Coinbase Wallet share the same injected
// ethereum object and are told apart only by their vendor flag.
type EnvironmentProbe interface {
	IsMetaMask() bool
	IsTrustWallet() bool
	IsCoinbaseWallet() bool
	IsPhantomEthereum() bool
	IsPhantomSolana() bool
	IsSolflare() bool
	IsBackpack() bool

	// Accessors for the injected objects. They return nil when absent.
	Ethereum() any
	PhantomEthereum() any
	PhantomSolana() any
	Solflare() any
	Backpack() any
}

// Wallet keys, in registry order.
const (
	KeyMetaMask    = "METAMASK"
	KeyTrustWallet = "TRUSTWALLET"
	KeyCoinbase    = "COINBASE"
	KeyPhantom     = "PHANTOM"
	KeyPhantomSol  = "PHANTOM_SOL"
	KeySolflare    = "SOLFLARE"
	KeyBackpack    = "BACKPACK"
)

// DefaultWallets returns the supported wallets bound to env.
func DefaultWallets(env EnvironmentProbe) []Descriptor {
	return []Descriptor{
		// EVM
		NewDescriptor(KeyMetaMask, "MetaMask", FamilyEVM, "metamask.png",
			env.IsMetaMask, env.Ethereum),
		NewDescriptor(KeyTrustWallet, "Trust Wallet", FamilyEVM, "trust-wallet.png",
			env.IsTrustWallet, env.Ethereum),
		NewDescriptor(KeyCoinbase, "Coinbase Wallet", FamilyEVM, "coinbase.png",
			env.IsCoinbaseWallet, env.Ethereum),
		NewDescriptor(KeyPhantom, "Phantom", FamilyEVM, "phantom.png",
			env.IsPhantomEthereum, env.PhantomEthereum),

		// Solana
		NewDescriptor(KeyPhantomSol, "Phantom", FamilySolana, "phantom.png",
			env.IsPhantomSolana, env.PhantomSolana),
		NewDescriptor(KeySolflare, "Solflare", FamilySolana, "https://solflare.com/assets/logo.svg",
			env.IsSolflare, env.Solflare),
		NewDescriptor(KeyBackpack, "Backpack", FamilySolana, "https://backpack.app/icon.png",
			env.IsBackpack, env.Backpack),
	}
}

// NewDefaultRegistry builds the registry of supported wallets for env.
func NewDefaultRegistry(env EnvironmentProbe) *Registry {
	r, err := NewRegistry(DefaultWallets(env)...)
	if err != nil {
		// The default table has unique, non-empty keys.
		panic(err)
	}
	return r
}
