package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/yolodolo42/walletconnector/internal/wallet"
)

// EventKind is a chain-family independent provider event.
type EventKind int

const (
	// AccountsChanged carries the new account list. An empty list means the
	// wallet no longer exposes any account to the application.
	AccountsChanged EventKind = iota
	// ChainChanged carries the new numeric chain id (EVM only).
	ChainChanged
	// Disconnected is emitted when the wallet drops the connection.
	Disconnected
)

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	case Disconnected:
		return "disconnect"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a normalized provider event.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  uint64
	// Err is set when the raw payload could not be decoded.
	Err error
}

// Handler receives normalized events. Handlers are compared by pointer.
type Handler struct {
	fn func(Event)
}

// NewHandler wraps fn.
func NewHandler(fn func(Event)) *Handler {
	return &Handler{fn: fn}
}

func (h *Handler) handle(ev Event) {
	if h != nil && h.fn != nil {
		h.fn(ev)
	}
}

// RequestOptions tune the account request handshake.
type RequestOptions struct {
	// Trusted requests a silent reconnect where the wallet supports it.
	Trusted bool
}

// Adapter is the normalized surface over one raw provider.
type Adapter interface {
	Family() wallet.ChainFamily
	// Raw returns the wrapped injected provider.
	Raw() any

	// RequestAccounts performs the authorization handshake; it may prompt.
	RequestAccounts(ctx context.Context, opts RequestOptions) ([]string, error)
	// AuthorizedAccounts returns the already authorized accounts without
	// prompting. An empty result means the wallet has not authorized us.
	AuthorizedAccounts(ctx context.Context) ([]string, error)
	// CurrentChain returns the numeric chain id, 0 for chain families
	// without one.
	CurrentChain(ctx context.Context) (uint64, error)

	// Events lists the event kinds this adapter can deliver.
	Events() []EventKind
	Subscribe(kind EventKind, h *Handler) error
	Unsubscribe(kind EventKind, h *Handler)
	// ListenerCount returns the number of live raw listeners.
	ListenerCount() int
}

// New wraps raw in the adapter for family.
func New(raw any, family wallet.ChainFamily) (Adapter, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: provider is absent", ErrIncompatibleProvider)
	}
	switch family {
	case wallet.FamilyEVM:
		p, ok := raw.(EVMProvider)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not an EVM provider", ErrIncompatibleProvider, raw)
		}
		return NewEvmAdapter(p), nil
	case wallet.FamilySolana:
		p, ok := raw.(SolanaProvider)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a Solana provider", ErrIncompatibleProvider, raw)
		}
		return NewSolanaAdapter(p), nil
	default:
		return nil, fmt.Errorf("%w: unknown chain family %q", ErrIncompatibleProvider, family)
	}
}

type subscription struct {
	kind    EventKind
	handler *Handler
}

// listenerSet tracks raw listeners per normalized subscription so that
// Unsubscribe removes exactly what Subscribe added.
type listenerSet struct {
	mu   sync.Mutex
	subs map[subscription]*Listener
}

func (s *listenerSet) add(emitter Emitter, kind EventKind, h *Handler, event string, l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[subscription]*Listener)
	}
	key := subscription{kind: kind, handler: h}
	if _, exists := s.subs[key]; exists {
		return
	}
	s.subs[key] = l
	emitter.On(event, l)
}

func (s *listenerSet) remove(emitter Emitter, kind EventKind, h *Handler, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscription{kind: kind, handler: h}
	l, ok := s.subs[key]
	if !ok {
		return
	}
	delete(s.subs, key)
	emitter.RemoveListener(event, l)
}

func (s *listenerSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
