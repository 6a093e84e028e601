package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yolodolo42/walletconnector/internal/wallet"
)

// NativeCurrency is the currency block of wallet_addEthereumChain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain parameter.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// SwitchChainParams is the EIP-3326 wallet_switchEthereumChain parameter.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// EvmAdapter normalizes an EIP-1193 provider.
type EvmAdapter struct {
	p    EVMProvider
	subs listenerSet
}

var _ Adapter = (*EvmAdapter)(nil)

// NewEvmAdapter wraps p.
func NewEvmAdapter(p EVMProvider) *EvmAdapter {
	return &EvmAdapter{p: p}
}

func (a *EvmAdapter) Family() wallet.ChainFamily { return wallet.FamilyEVM }

func (a *EvmAdapter) Raw() any { return a.p }

// Provider returns the typed raw provider.
func (a *EvmAdapter) Provider() EVMProvider { return a.p }

func (a *EvmAdapter) RequestAccounts(ctx context.Context, _ RequestOptions) ([]string, error) {
	return a.accounts(ctx, "eth_requestAccounts")
}

func (a *EvmAdapter) AuthorizedAccounts(ctx context.Context) ([]string, error) {
	return a.accounts(ctx, "eth_accounts")
}

func (a *EvmAdapter) accounts(ctx context.Context, method string) ([]string, error) {
	raw, err := a.p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return accounts, nil
}

func (a *EvmAdapter) CurrentChain(ctx context.Context) (uint64, error) {
	raw, err := a.p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decode eth_chainId result: %w", err)
	}
	return ParseChainID(v)
}

// SwitchChain asks the wallet to change its active chain.
func (a *EvmAdapter) SwitchChain(ctx context.Context, hexChainID string) error {
	_, err := a.p.Request(ctx, "wallet_switchEthereumChain", SwitchChainParams{ChainID: hexChainID})
	return err
}

// AddChain asks the wallet to add a chain it does not know yet.
func (a *EvmAdapter) AddChain(ctx context.Context, params AddChainParams) error {
	_, err := a.p.Request(ctx, "wallet_addEthereumChain", params)
	return err
}

func (a *EvmAdapter) Events() []EventKind {
	return []EventKind{AccountsChanged, ChainChanged, Disconnected}
}

func (a *EvmAdapter) Subscribe(kind EventKind, h *Handler) error {
	event, err := evmEventName(kind)
	if err != nil {
		return err
	}
	l := NewListener(func(args ...any) {
		h.handle(normalizeEVMEvent(kind, args))
	})
	a.subs.add(a.p, kind, h, event, l)
	return nil
}

func (a *EvmAdapter) Unsubscribe(kind EventKind, h *Handler) {
	event, err := evmEventName(kind)
	if err != nil {
		return
	}
	a.subs.remove(a.p, kind, h, event)
}

func (a *EvmAdapter) ListenerCount() int { return a.subs.count() }

func evmEventName(kind EventKind) (string, error) {
	switch kind {
	case AccountsChanged:
		return EventAccountsChanged, nil
	case ChainChanged:
		return EventChainChanged, nil
	case Disconnected:
		return EventDisconnect, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEvent, kind)
	}
}

func normalizeEVMEvent(kind EventKind, args []any) Event {
	ev := Event{Kind: kind}
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	switch kind {
	case AccountsChanged:
		ev.Accounts, ev.Err = toStrings(payload)
	case ChainChanged:
		ev.ChainID, ev.Err = ParseChainID(payload)
	}
	return ev
}

// ParseChainID accepts the chain id shapes wallets emit: a 0x-prefixed hex
// string (the standard), a decimal string, or a JSON number.
func ParseChainID(v any) (uint64, error) {
	switch id := v.(type) {
	case string:
		s := strings.TrimSpace(id)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			digits := strings.TrimLeft(strings.ToLower(s[2:]), "0")
			if digits == "" {
				digits = "0"
			}
			n, err := hexutil.DecodeUint64("0x" + digits)
			if err != nil {
				return 0, fmt.Errorf("invalid chain id %q: %w", id, err)
			}
			return n, nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid chain id %q: %w", id, err)
		}
		return n, nil
	case float64:
		if id < 0 || id >= 1<<64 || id != math.Trunc(id) {
			return 0, fmt.Errorf("invalid chain id %v", id)
		}
		return uint64(id), nil
	case uint64:
		return id, nil
	case int:
		if id < 0 {
			return 0, fmt.Errorf("invalid chain id %d", id)
		}
		return uint64(id), nil
	default:
		return 0, fmt.Errorf("invalid chain id of type %T", v)
	}
}

func toStrings(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid account entry of type %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid accounts payload of type %T", v)
	}
}
