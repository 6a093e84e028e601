package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

// Call records one Request.
type Call struct {
	Method string
	Params []any
}

// MethodFunc overrides the handling of one method.
type MethodFunc func(ctx context.Context, params []any) (any, error)

// EVM is an in-memory EIP-1193 provider.
type EVM struct {
	Emitter

	mu          sync.Mutex
	accounts    []string
	authorized  bool
	chainID     uint64
	knownChains map[string]bool
	overrides   map[string]MethodFunc
	gates       map[string]chan struct{}
	calls       []Call
}

var _ provider.EVMProvider = (*EVM)(nil)

// NewEVM returns a provider that exposes accounts on chainID once authorized.
func NewEVM(chainID uint64, accounts ...string) *EVM {
	return &EVM{
		accounts:    accounts,
		chainID:     chainID,
		knownChains: map[string]bool{hexutil.EncodeUint64(chainID): true},
		overrides:   make(map[string]MethodFunc),
		gates:       make(map[string]chan struct{}),
	}
}

// Authorize marks the application as already approved, so eth_accounts
// answers without a prompt.
func (p *EVM) Authorize() *EVM {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized = true
	return p
}

// Handle overrides a method.
func (p *EVM) Handle(method string, fn MethodFunc) *EVM {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[method] = fn
	return p
}

// Gate blocks calls to method until the returned release func is called.
func (p *EVM) Gate(method string) (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.gates[method] = ch
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetAccounts replaces the exposed accounts.
func (p *EVM) SetAccounts(accounts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

// ChainID returns the provider's active chain.
func (p *EVM) ChainID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

// Calls returns the recorded requests.
func (p *EVM) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount counts requests for method, or all requests when method is empty.
func (p *EVM) CallCount(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if method == "" || c.Method == method {
			n++
		}
	}
	return n
}

func (p *EVM) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Params: params})
	gate := p.gates[method]
	override := p.overrides[method]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var (
		result any
		err    error
	)
	if override != nil {
		result, err = override(ctx, params)
	} else {
		result, err = p.handle(method, params)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (p *EVM) handle(method string, params []any) (any, error) {
	switch method {
	case "eth_accounts":
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.authorized {
			return []string{}, nil
		}
		return p.accounts, nil

	case "eth_requestAccounts":
		p.mu.Lock()
		defer p.mu.Unlock()
		p.authorized = true
		return p.accounts, nil

	case "eth_chainId":
		return hexutil.EncodeUint64(p.ChainID()), nil

	case "wallet_switchEthereumChain":
		if len(params) == 0 {
			return nil, provider.NewProviderError(-32602, "missing params")
		}
		sw, ok := params[0].(provider.SwitchChainParams)
		if !ok {
			return nil, provider.NewProviderError(-32602, fmt.Sprintf("unexpected params %T", params[0]))
		}
		p.mu.Lock()
		known := p.knownChains[sw.ChainID]
		p.mu.Unlock()
		if !known {
			return nil, provider.NewProviderError(provider.CodeUnrecognizedChain, "Unrecognized chain ID "+sw.ChainID)
		}
		id, err := hexutil.DecodeUint64(sw.ChainID)
		if err != nil {
			return nil, provider.NewProviderError(-32602, err.Error())
		}
		p.mu.Lock()
		changed := p.chainID != id
		p.chainID = id
		p.mu.Unlock()
		if changed {
			p.Emit(provider.EventChainChanged, sw.ChainID)
		}
		return nil, nil

	case "wallet_addEthereumChain":
		if len(params) == 0 {
			return nil, provider.NewProviderError(-32602, "missing params")
		}
		add, ok := params[0].(provider.AddChainParams)
		if !ok {
			return nil, provider.NewProviderError(-32602, fmt.Sprintf("unexpected params %T", params[0]))
		}
		p.mu.Lock()
		p.knownChains[add.ChainID] = true
		p.mu.Unlock()
		return nil, nil

	default:
		return nil, provider.NewProviderError(provider.CodeUnsupportedMethod, "unsupported method "+method)
	}
}
