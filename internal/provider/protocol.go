package provider

import (
	"context"
	"encoding/json"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Raw event names emitted by injected providers.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventAccountChanged  = "accountChanged"
	EventDisconnect      = "disconnect"
)

// Listener is a callback registered on a raw provider. Listeners are compared
// by pointer, so the value passed to RemoveListener must be the one passed
// to On.
type Listener struct {
	fn func(args ...any)
}

// NewListener wraps fn.
func NewListener(fn func(args ...any)) *Listener {
	return &Listener{fn: fn}
}

// Emit invokes the listener.
func (l *Listener) Emit(args ...any) {
	if l != nil && l.fn != nil {
		l.fn(args...)
	}
}

// Emitter is the event half shared by both provider protocols.
// Implementations must not invoke listeners synchronously from On or
// RemoveListener.
type Emitter interface {
	On(event string, l *Listener)
	RemoveListener(event string, l *Listener)
}

// EVMProvider is the EIP-1193 surface of an injected EVM wallet.
type EVMProvider interface {
	Emitter
	// Request performs a JSON-RPC style call. Errors carrying an EIP-1193
	// code should implement go-ethereum's rpc.Error.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// SolanaConnectOptions mirrors the options object of the injected connect call.
type SolanaConnectOptions struct {
	// OnlyIfTrusted asks the wallet to connect without prompting, failing
	// if the site has not been approved before.
	OnlyIfTrusted bool
}

// SolanaProvider is the surface shared by injected Solana wallets.
type SolanaProvider interface {
	Emitter
	Connect(ctx context.Context, opts SolanaConnectOptions) (solana.PublicKey, error)
	IsConnected() bool
	// PublicKey returns the connected account, if any.
	PublicKey() (solana.PublicKey, bool)
}

// Optional Solana capabilities. Vendors differ in which of these they offer.
type (
	SolanaDisconnecter interface {
		Disconnect(ctx context.Context) error
	}
	SolanaTransactionSigner interface {
		SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
	}
	SolanaBatchSigner interface {
		SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error)
	}
	SolanaSignAndSender interface {
		SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	}
	SolanaMessageSigner interface {
		SignMessage(ctx context.Context, message []byte) ([]byte, error)
	}
)

// RawTransactionSender submits signed, serialized Solana transactions.
// *rpc.Client from solana-go satisfies it.
type RawTransactionSender interface {
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
}

var _ RawTransactionSender = (*rpc.Client)(nil)
