package devwallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/tx"
)

// ApprovalKind names the wallet prompt being shown.
type ApprovalKind string

const (
	ApproveConnect         ApprovalKind = "connect"
	ApproveSendTransaction ApprovalKind = "sendTransaction"
	ApproveSignTransaction ApprovalKind = "signTransaction"
	ApproveSignMessage     ApprovalKind = "signMessage"
	ApproveAddChain        ApprovalKind = "addChain"
)

// Approval is what the wallet asks the user to confirm.
type Approval struct {
	Wallet string
	Kind   ApprovalKind
	Detail string
}

// Approver confirms an approval; any error is a rejection.
type Approver func(ctx context.Context, a Approval) error

// AutoApprove approves everything.
func AutoApprove(context.Context, Approval) error { return nil }

func rejected(err error) error {
	perr := provider.NewProviderError(provider.CodeUserRejected, "User rejected the request.")
	if err != nil {
		perr.Data = map[string]any{"reason": err.Error()}
	}
	return perr
}

// Backend is the node access of the dev EVM wallet. *chain.Client satisfies it.
type Backend interface {
	tx.Backend
	SendTransaction(ctx context.Context, chainID uint64, signed *types.Transaction) error
	RawCall(ctx context.Context, chainID uint64, result any, method string, params ...any) error
}

var _ Backend = (*chain.Client)(nil)

type EVMConfig struct {
	// WalletKey names the wallet in the authorization store.
	WalletKey string
	Key       *Key
	ChainID   uint64
	Networks  *chain.Registry
	Backend   Backend
	Auths     *AuthorizationStore
	Policy    tx.Policy
	Approve   Approver
	Logger    logger.Logger
}

// EVM is an EIP-1193 wallet backed by a local key.
type EVM struct {
	emitter

	walletKey string
	key       *Key
	networks  *chain.Registry
	backend   Backend
	auths     *AuthorizationStore
	policy    tx.Policy
	approve   Approver
	lggr      logger.Logger

	mu      sync.Mutex
	chainID uint64
	// known are the chains the wallet can switch to without adding them.
	known map[uint64]bool
}

var _ provider.EVMProvider = (*EVM)(nil)

func NewEVM(cfg EVMConfig) (*EVM, error) {
	if cfg.Key == nil {
		return nil, errors.New("devwallet: signing key is required")
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
	chainID := cfg.ChainID
	if a, ok := cfg.Auths.Get(cfg.WalletKey); ok && a.ChainID != 0 {
		chainID = a.ChainID
	}
	if chainID == 0 {
		chainID = 1
	}
	return &EVM{
		walletKey: cfg.WalletKey,
		key:       cfg.Key,
		networks:  cfg.Networks,
		backend:   cfg.Backend,
		auths:     cfg.Auths,
		policy:    cfg.Policy,
		approve:   cfg.Approve,
		lggr:      cfg.Logger.Named(cfg.WalletKey),
		chainID:   chainID,
		known:     map[uint64]bool{chainID: true},
	}, nil
}

func (w *EVM) ChainID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

func (w *EVM) authorized() bool {
	a, ok := w.auths.Get(w.walletKey)
	return ok && strings.EqualFold(a.Account, w.key.Address().Hex())
}

// Revoke forgets the application's authorization, like removing the site
// from the wallet's connected sites list.
func (w *EVM) Revoke() error {
	if !w.authorized() {
		return nil
	}
	if err := w.auths.Revoke(w.walletKey); err != nil {
		return err
	}
	w.emit(provider.EventAccountsChanged, []string{})
	return nil
}

func (w *EVM) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	w.lggr.Debugw("Request", "method", method)
	result, err := w.handle(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if raw, ok := result.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(result)
}

func (w *EVM) handle(ctx context.Context, method string, params []any) (any, error) {
	switch method {
	case "eth_accounts":
		if !w.authorized() {
			return []string{}, nil
		}
		return []string{w.key.Address().Hex()}, nil

	case "eth_requestAccounts":
		if w.authorized() {
			return []string{w.key.Address().Hex()}, nil
		}
		if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveConnect, Detail: w.key.Address().Hex()}); err != nil {
			return nil, rejected(err)
		}
		if err := w.auths.Grant(w.walletKey, Authorization{Account: w.key.Address().Hex(), ChainID: w.ChainID()}); err != nil {
			return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
		}
		return []string{w.key.Address().Hex()}, nil

	case "eth_chainId":
		return hexutil.EncodeUint64(w.ChainID()), nil

	case "wallet_switchEthereumChain":
		var p provider.SwitchChainParams
		if err := decodeParam(params, &p); err != nil {
			return nil, err
		}
		return nil, w.switchChain(p.ChainID)

	case "wallet_addEthereumChain":
		var p provider.AddChainParams
		if err := decodeParam(params, &p); err != nil {
			return nil, err
		}
		return nil, w.addChain(ctx, p)

	case "eth_sendTransaction":
		if !w.authorized() {
			return nil, provider.NewProviderError(provider.CodeUnauthorized, "The requested account has not been authorized.")
		}
		var args evmrpc.TransactionArgs
		if err := decodeParam(params, &args); err != nil {
			return nil, err
		}
		return w.sendTransaction(ctx, args)

	case "personal_sign":
		if !w.authorized() {
			return nil, provider.NewProviderError(provider.CodeUnauthorized, "The requested account has not been authorized.")
		}
		var msg hexutil.Bytes
		if err := decodeParam(params, &msg); err != nil {
			return nil, err
		}
		if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveSignMessage, Detail: string(msg)}); err != nil {
			return nil, rejected(err)
		}
		sig, err := w.key.SignPersonal(msg)
		if err != nil {
			return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
		}
		return hexutil.Bytes(sig), nil
	}

	if w.backend == nil {
		return nil, provider.NewProviderError(provider.CodeUnsupportedMethod, "unsupported method "+method)
	}
	var raw json.RawMessage
	if err := w.backend.RawCall(ctx, w.ChainID(), &raw, method, params...); err != nil {
		return nil, err
	}
	return raw, nil
}

func (w *EVM) switchChain(hexID string) error {
	id, err := provider.ParseChainID(hexID)
	if err != nil {
		return provider.NewProviderError(-32602, err.Error())
	}
	w.mu.Lock()
	if !w.known[id] {
		w.mu.Unlock()
		return provider.NewProviderError(provider.CodeUnrecognizedChain,
			fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", hexID))
	}
	changed := w.chainID != id
	w.chainID = id
	w.mu.Unlock()

	if !changed {
		return nil
	}
	if err := w.auths.SetChain(w.walletKey, id); err != nil {
		w.lggr.Warnw("Failed to persist chain", "chainID", id, "err", err)
	}
	w.emit(provider.EventChainChanged, hexutil.EncodeUint64(id))
	return nil
}

func (w *EVM) addChain(ctx context.Context, p provider.AddChainParams) error {
	id, err := provider.ParseChainID(p.ChainID)
	if err != nil {
		return provider.NewProviderError(-32602, err.Error())
	}
	if len(p.RPCURLs) == 0 {
		return provider.NewProviderError(-32602, "rpcUrls is required")
	}
	if w.networks != nil {
		if _, ok := w.networks.Find(id); !ok {
			return provider.NewProviderError(-32602, fmt.Sprintf("chain %d is not configured", id))
		}
	}
	detail := fmt.Sprintf("%s (%d) via %s", p.ChainName, id, p.RPCURLs[0])
	if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveAddChain, Detail: detail}); err != nil {
		return rejected(err)
	}
	w.mu.Lock()
	w.known[id] = true
	w.mu.Unlock()
	return nil
}

func (w *EVM) sendTransaction(ctx context.Context, args evmrpc.TransactionArgs) (any, error) {
	if args.From != w.key.Address() {
		return nil, provider.NewProviderError(provider.CodeUnauthorized, "from address does not match the wallet account")
	}
	if w.backend == nil {
		return nil, provider.NewProviderError(provider.CodeUnsupportedMethod, "wallet has no chain backend")
	}
	chainID := w.ChainID()
	if args.ChainID != nil && args.ChainID.ToInt().Uint64() != chainID {
		return nil, provider.NewProviderError(-32602,
			fmt.Sprintf("chainId %s does not match the active chain %d", args.ChainID.ToInt(), chainID))
	}

	intent := tx.FromArgs(chainID, args)
	if err := tx.Validate(intent, w.policy); err != nil {
		return nil, rejected(err)
	}
	unsigned, fees, err := tx.BuildUnsignedTx(ctx, w.backend, intent)
	if err != nil {
		return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
	}
	to := "contract creation"
	if args.To != nil {
		to = args.To.Hex()
	}
	symbol, decimals := "ETH", uint8(18)
	if w.networks != nil {
		if net, ok := w.networks.Find(chainID); ok {
			symbol, decimals = net.CurrencySymbol, net.CurrencyDecimals
		}
	}
	detail := fmt.Sprintf("send %s %s to %s on chain %d (max cost %s %s)",
		chain.FormatAmount(intent.ValueWei, decimals), symbol, to, chainID,
		chain.FormatAmount(fees.EstimatedCostWei, decimals), symbol)
	if err := w.approve(ctx, Approval{Wallet: w.walletKey, Kind: ApproveSendTransaction, Detail: detail}); err != nil {
		return nil, rejected(err)
	}
	signed, err := w.key.SignTx(unsigned, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, provider.NewProviderError(provider.CodeInternalJSONRPCErr, err.Error())
	}
	if err := w.backend.SendTransaction(ctx, chainID, signed); err != nil {
		return nil, err
	}
	w.lggr.Infow("Transaction sent", "hash", signed.Hash().Hex(), "chainID", chainID)
	return signed.Hash(), nil
}

// decodeParam decodes the first positional param into dst. In-process
// callers pass typed values; they take the same JSON path a browser
// wallet would see.
func decodeParam(params []any, dst any) error {
	if len(params) == 0 {
		return provider.NewProviderError(-32602, "missing params")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return provider.NewProviderError(-32602, err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return provider.NewProviderError(-32602, fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}
