package devwallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	solana "github.com/gagliardetto/solana-go"

	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/provider"
)

type SolanaConfig struct {
	WalletKey string
	Key       solana.PrivateKey
	Auths     *AuthorizationStore
	Approve   Approver
	Logger    logger.Logger
}

// Solana is an injected-style Solana wallet backed by a local keypair. It
// signs but does not submit, so callers supply a transport for sending.
type Solana struct {
	emitter

	walletKey string
	key       solana.PrivateKey
	auths     *AuthorizationStore
	approve   Approver
	lggr      logger.Logger

	mu        sync.Mutex
	connected bool
}

var (
	_ provider.SolanaProvider          = (*Solana)(nil)
	_ provider.SolanaDisconnecter      = (*Solana)(nil)
	_ provider.SolanaTransactionSigner = (*Solana)(nil)
	_ provider.SolanaBatchSigner       = (*Solana)(nil)
	_ provider.SolanaMessageSigner     = (*Solana)(nil)
)

func NewSolana(cfg SolanaConfig) (*Solana, error) {
	if len(cfg.Key) == 0 {
		return nil, errors.New("devwallet: solana keypair is required")
	}
	if cfg.WalletKey == "" {
		return nil, errors.New("devwallet: wallet key is required")
	}
	if cfg.Auths == nil {
		return nil, errors.New("devwallet: authorization store is required")
	}
	if cfg.Approve == nil {
		cfg.Approve = AutoApprove
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	w := &Solana{
		walletKey: cfg.WalletKey,
		key:       cfg.Key,
		auths:     cfg.Auths,
		approve:   cfg.Approve,
		lggr:      cfg.Logger.Named(cfg.WalletKey),
	}
	// A remembered approval is an already established connection.
	w.connected = w.trusted()
	return w, nil
}

func (w *Solana) trusted() bool {
	a, ok := w.auths.Get(w.walletKey)
	return ok && a.Account == w.key.PublicKey().String()
}

func (w *Solana) Connect(ctx context.Context, opts provider.SolanaConnectOptions) (solana.PublicKey, error) {
	pub := w.key.PublicKey()
	if !w.trusted() {
		if opts.OnlyIfTrusted {
			return solana.PublicKey{}, rejected(errors.New("application is not trusted"))
		}
		if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveConnect, Detail: pub.String()}); err != nil {
			return solana.PublicKey{}, rejected(err)
		}
		if err := w.auths.Grant(w.walletKey, Authorization{Account: pub.String()}); err != nil {
			return solana.PublicKey{}, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
		}
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	w.lggr.Debugw("Connected", "publicKey", pub)
	return pub, nil
}

// Disconnect drops the connection and forgets the approval.
func (w *Solana) Disconnect(context.Context) error {
	w.mu.Lock()
	was := w.connected
	w.connected = false
	w.mu.Unlock()
	if err := w.auths.Revoke(w.walletKey); err != nil {
		return err
	}
	if was {
		w.emit(provider.EventDisconnect)
	}
	return nil
}

func (w *Solana) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *Solana) PublicKey() (solana.PublicKey, bool) {
	if !w.IsConnected() {
		return solana.PublicKey{}, false
	}
	return w.key.PublicKey(), true
}

func (w *Solana) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if !w.IsConnected() {
		return nil, provider.NewProviderError(provider.CodeUnauthorized, "wallet is not connected")
	}
	if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveSignTransaction, Detail: describeTx(tx)}); err != nil {
		return nil, rejected(err)
	}
	return w.sign(tx)
}

func (w *Solana) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	if !w.IsConnected() {
		return nil, provider.NewProviderError(provider.CodeUnauthorized, "wallet is not connected")
	}
	detail := fmt.Sprintf("%d transactions", len(txs))
	if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveSignTransaction, Detail: detail}); err != nil {
		return nil, rejected(err)
	}
	out := make([]*solana.Transaction, 0, len(txs))
	for _, tx := range txs {
		signed, err := w.sign(tx)
		if err != nil {
			return nil, err
		}
		out = append(out, signed)
	}
	return out, nil
}

func (w *Solana) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !w.IsConnected() {
		return nil, provider.NewProviderError(provider.CodeUnauthorized, "wallet is not connected")
	}
	if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveSignMessage, Detail: string(message)}); err != nil {
		return nil, rejected(err)
	}
	sig, err := w.key.Sign(message)
	if err != nil {
		return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
	}
	return sig[:], nil
}

func (w *Solana) sign(tx *solana.Transaction) (*solana.Transaction, error) {
	pub := w.key.PublicKey()
	if _, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &w.key
		}
		return nil
	}); err != nil {
		return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
	}
	return tx, nil
}

func describeTx(tx *solana.Transaction) string {
	if tx == nil || len(tx.Message.AccountKeys) == 0 {
		return "empty transaction"
	}
	return fmt.Sprintf("%d instruction(s), fee payer %s", len(tx.Message.Instructions), tx.Message.AccountKeys[0])
}
