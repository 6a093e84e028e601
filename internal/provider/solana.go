package provider

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yolodolo42/walletconnector/internal/wallet"
)

type (
	// SendTransactionFunc signs and submits tx, returning its signature.
	SendTransactionFunc func(ctx context.Context, tx *solana.Transaction, transport RawTransactionSender, opts rpc.TransactionOpts) (solana.Signature, error)
	// SignTransactionFunc signs tx without submitting it.
	SignTransactionFunc func(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
	// SignAllTransactionsFunc signs a batch without submitting it.
	SignAllTransactionsFunc func(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error)
)

// SolanaCapabilities are the signing functions bound to a Solana session.
// SendTransaction is always set; the sign functions are nil when the wallet
// does not offer them.
type SolanaCapabilities struct {
	SendTransaction     SendTransactionFunc
	SignTransaction     SignTransactionFunc
	SignAllTransactions SignAllTransactionsFunc
}

// SolanaAdapter normalizes the injected Solana wallets (Phantom, Solflare,
// Backpack), which share connect/on but differ in optional capabilities.
type SolanaAdapter struct {
	p    SolanaProvider
	subs listenerSet
}

var _ Adapter = (*SolanaAdapter)(nil)

// NewSolanaAdapter wraps p.
func NewSolanaAdapter(p SolanaProvider) *SolanaAdapter {
	return &SolanaAdapter{p: p}
}

func (a *SolanaAdapter) Family() wallet.ChainFamily { return wallet.FamilySolana }

func (a *SolanaAdapter) Raw() any { return a.p }

func (a *SolanaAdapter) RequestAccounts(ctx context.Context, opts RequestOptions) ([]string, error) {
	pk, err := a.p.Connect(ctx, SolanaConnectOptions{OnlyIfTrusted: opts.Trusted})
	if err != nil {
		return nil, err
	}
	if pk.IsZero() {
		return nil, nil
	}
	return []string{pk.String()}, nil
}

func (a *SolanaAdapter) AuthorizedAccounts(context.Context) ([]string, error) {
	if !a.p.IsConnected() {
		return nil, nil
	}
	pk, ok := a.p.PublicKey()
	if !ok || pk.IsZero() {
		return nil, nil
	}
	return []string{pk.String()}, nil
}

// CurrentChain always returns 0: Solana has no EIP-155 chain id.
func (a *SolanaAdapter) CurrentChain(context.Context) (uint64, error) {
	return 0, nil
}

// Disconnect runs the wallet's disconnect handshake when it has one.
func (a *SolanaAdapter) Disconnect(ctx context.Context) error {
	d, ok := a.p.(SolanaDisconnecter)
	if !ok {
		return nil
	}
	return d.Disconnect(ctx)
}

// SendTransaction uses the wallet's signAndSendTransaction when available.
// Otherwise it signs through the wallet and submits the serialized
// transaction through transport.
func (a *SolanaAdapter) SendTransaction(ctx context.Context, tx *solana.Transaction, transport RawTransactionSender, opts rpc.TransactionOpts) (solana.Signature, error) {
	if sender, ok := a.p.(SolanaSignAndSender); ok {
		return sender.SignAndSendTransaction(ctx, tx)
	}
	if transport == nil {
		return solana.Signature{}, ErrNoTransport
	}
	signed, err := a.SignTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize signed transaction: %w", err)
	}
	return transport.SendRawTransactionWithOpts(ctx, raw, opts)
}

func (a *SolanaAdapter) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	signer, ok := a.p.(SolanaTransactionSigner)
	if !ok {
		return nil, fmt.Errorf("%w: signTransaction", ErrCapabilityUnsupported)
	}
	return signer.SignTransaction(ctx, tx)
}

func (a *SolanaAdapter) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	signer, ok := a.p.(SolanaBatchSigner)
	if !ok {
		return nil, fmt.Errorf("%w: signAllTransactions", ErrCapabilityUnsupported)
	}
	return signer.SignAllTransactions(ctx, txs)
}

func (a *SolanaAdapter) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	signer, ok := a.p.(SolanaMessageSigner)
	if !ok {
		return nil, fmt.Errorf("%w: signMessage", ErrCapabilityUnsupported)
	}
	return signer.SignMessage(ctx, message)
}

// Capabilities binds the signing functions for a session.
func (a *SolanaAdapter) Capabilities() *SolanaCapabilities {
	caps := &SolanaCapabilities{SendTransaction: a.SendTransaction}
	if _, ok := a.p.(SolanaTransactionSigner); ok {
		caps.SignTransaction = a.SignTransaction
	}
	if _, ok := a.p.(SolanaBatchSigner); ok {
		caps.SignAllTransactions = a.SignAllTransactions
	}
	return caps
}

func (a *SolanaAdapter) Events() []EventKind {
	return []EventKind{AccountsChanged, Disconnected}
}

func (a *SolanaAdapter) Subscribe(kind EventKind, h *Handler) error {
	event, err := solanaEventName(kind)
	if err != nil {
		return err
	}
	l := NewListener(func(args ...any) {
		h.handle(a.normalize(kind, args))
	})
	a.subs.add(a.p, kind, h, event, l)
	return nil
}

func (a *SolanaAdapter) Unsubscribe(kind EventKind, h *Handler) {
	event, err := solanaEventName(kind)
	if err != nil {
		return
	}
	a.subs.remove(a.p, kind, h, event)
}

func (a *SolanaAdapter) ListenerCount() int { return a.subs.count() }

func solanaEventName(kind EventKind) (string, error) {
	switch kind {
	case AccountsChanged:
		return EventAccountChanged, nil
	case Disconnected:
		return EventDisconnect, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEvent, kind)
	}
}

// normalize maps accountChanged to AccountsChanged with zero or one entry.
// Wallets that emit the event without a payload are read back through
// PublicKey.
func (a *SolanaAdapter) normalize(kind EventKind, args []any) Event {
	ev := Event{Kind: kind}
	if kind != AccountsChanged {
		return ev
	}
	if len(args) == 0 {
		if pk, ok := a.p.PublicKey(); ok && !pk.IsZero() {
			ev.Accounts = []string{pk.String()}
		}
		return ev
	}
	switch pk := args[0].(type) {
	case nil:
	case solana.PublicKey:
		if !pk.IsZero() {
			ev.Accounts = []string{pk.String()}
		}
	case *solana.PublicKey:
		if pk != nil && !pk.IsZero() {
			ev.Accounts = []string{pk.String()}
		}
	case string:
		key, err := solana.PublicKeyFromBase58(pk)
		if err != nil {
			ev.Err = fmt.Errorf("invalid public key %q: %w", pk, err)
			return ev
		}
		ev.Accounts = []string{key.String()}
	default:
		ev.Err = fmt.Errorf("invalid accountChanged payload of type %T", args[0])
	}
	return ev
}
