package providertest

import (
	"context"
	"sync"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

// Solana is an in-memory injected Solana wallet without signAndSendTransaction.
type Solana struct {
	Emitter

	mu            sync.Mutex
	key           solana.PrivateKey
	connected     bool
	trusted       bool
	connectErr    error
	disconnectErr error
	connectOpts   []provider.SolanaConnectOptions
	disconnects   int
	log           []string
}

var (
	_ provider.SolanaProvider          = (*Solana)(nil)
	_ provider.SolanaDisconnecter      = (*Solana)(nil)
	_ provider.SolanaTransactionSigner = (*Solana)(nil)
	_ provider.SolanaBatchSigner       = (*Solana)(nil)
)

// NewSolana returns a wallet holding key.
func NewSolana(key solana.PrivateKey) *Solana {
	return &Solana{key: key}
}

// NewRandomSolana returns a wallet with a fresh key.
func NewRandomSolana() *Solana {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return NewSolana(key)
}

// Trust marks the site as previously approved and already connected.
func (p *Solana) Trust() *Solana {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trusted = true
	p.connected = true
	return p
}

// FailConnect makes Connect return err.
func (p *Solana) FailConnect(err error) *Solana {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectErr = err
	return p
}

// FailDisconnect makes Disconnect return err.
func (p *Solana) FailDisconnect(err error) *Solana {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectErr = err
	return p
}

// Key returns the wallet's public key.
func (p *Solana) Key() solana.PublicKey {
	return p.key.PublicKey()
}

// ConnectOptions returns the options of every Connect call.
func (p *Solana) ConnectOptions() []provider.SolanaConnectOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.SolanaConnectOptions(nil), p.connectOpts...)
}

// Disconnects counts Disconnect calls.
func (p *Solana) Disconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

// Log returns the ordered capability calls.
func (p *Solana) Log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

func (p *Solana) record(entry string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, entry)
}

func (p *Solana) Connect(_ context.Context, opts provider.SolanaConnectOptions) (solana.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectOpts = append(p.connectOpts, opts)
	if p.connectErr != nil {
		return solana.PublicKey{}, p.connectErr
	}
	if opts.OnlyIfTrusted && !p.trusted {
		return solana.PublicKey{}, provider.NewProviderError(provider.CodeUserRejected, "User rejected the request.")
	}
	p.connected = true
	p.trusted = true
	return p.key.PublicKey(), nil
}

func (p *Solana) Disconnect(context.Context) error {
	p.mu.Lock()
	p.disconnects++
	err := p.disconnectErr
	if err == nil {
		p.connected = false
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.Emit(provider.EventDisconnect)
	return nil
}

func (p *Solana) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Solana) PublicKey() (solana.PublicKey, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return solana.PublicKey{}, false
	}
	return p.key.PublicKey(), true
}

func (p *Solana) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	p.record("signTransaction")
	pub := p.key.PublicKey()
	_, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &p.key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (p *Solana) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	p.record("signAllTransactions")
	out := make([]*solana.Transaction, 0, len(txs))
	for _, tx := range txs {
		signed, err := p.SignTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, signed)
	}
	return out, nil
}

// SolanaSignAndSend is a wallet that submits transactions itself.
type SolanaSignAndSend struct {
	*Solana
	Signature solana.Signature
}

var _ provider.SolanaSignAndSender = (*SolanaSignAndSend)(nil)

func (p *SolanaSignAndSend) SignAndSendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	p.record("signAndSendTransaction")
	return p.Signature, nil
}

// Transport records raw transactions and answers with a fixed signature.
type Transport struct {
	mu        sync.Mutex
	Signature solana.Signature
	Err       error
	raw       [][]byte
	opts      []rpc.TransactionOpts
}

var _ provider.RawTransactionSender = (*Transport)(nil)

func (t *Transport) SendRawTransactionWithOpts(_ context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = append(t.raw, rawTx)
	t.opts = append(t.opts, opts)
	if t.Err != nil {
		return solana.Signature{}, t.Err
	}
	return t.Signature, nil
}

// Sent returns the submitted raw transactions.
func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.raw...)
}

// NewTransferTx builds an unsigned single-instruction transaction paid by from.
func NewTransferTx(from, to solana.PublicKey, lamports uint64) (*solana.Transaction, error) {
	return solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		solana.Hash{},
		solana.TransactionPayer(from),
	)
}
