// Package connector owns the lifecycle of the single active wallet session:
// silent reattach, explicit connect, disconnect, network switching and the
// reaction to provider events.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

type State int

const (
	Idle State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Manager is safe for concurrent use. Explicit calls and provider event
// callbacks are serialized on one mutex; provider handshakes run without it.
type Manager struct {
	wallets      *wallet.Registry
	networks     *chain.Registry
	lggr         logger.Logger
	newRPCClient RPCClientFactory

	mu      sync.Mutex
	state   State
	probing bool
	// epoch changes whenever the session is torn down, so a handshake that
	// was suspended across a Disconnect can tell its result is stale.
	epoch uint64
	sess  *session
}

// session is the manager's mutable record behind the Session snapshots.
type session struct {
	Session
	handlers map[provider.EventKind]*provider.Handler
}

func New(wallets *wallet.Registry, networks *chain.Registry, opts ...Option) (*Manager, error) {
	if wallets == nil {
		return nil, errors.New("wallet registry is required")
	}
	if networks == nil {
		return nil, errors.New("network registry is required")
	}
	m := &Manager{
		wallets:      wallets,
		networks:     networks,
		lggr:         logger.Nop(),
		newRPCClient: evmrpc.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the active session, if any.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Session{}, false
	}
	return m.sess.Session, true
}

// CheckExistingConnection reattaches to the first installed wallet that has
// already authorized this application. It never prompts the user. When a
// session is active it is returned unchanged.
func (m *Manager) CheckExistingConnection(ctx context.Context) (Session, bool, error) {
	m.mu.Lock()
	if m.state == Connected {
		s := m.sess.Session
		m.mu.Unlock()
		return s, true, nil
	}
	if m.state == Connecting || m.probing {
		m.mu.Unlock()
		return Session{}, false, ErrConnectionInProgress
	}
	m.probing = true
	epoch := m.epoch
	m.mu.Unlock()

	found, ok := m.probeInstalled(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.probing = false
	if m.epoch != epoch {
		m.lggr.Infow("Discarding reattach result")
		return Session{}, false, nil
	}
	if !ok {
		return Session{}, false, ctx.Err()
	}
	if err := m.commitLocked(found); err != nil {
		m.lggr.Warnw("Failed to subscribe to reattached wallet", "wallet", found.WalletKey, "err", err)
		return Session{}, false, nil
	}
	m.lggr.Infow("Reattached wallet", "wallet", found.WalletKey, "address", found.Address, "chainID", found.ChainID)
	return found.Session, true, nil
}

func (m *Manager) probeInstalled(ctx context.Context) (*session, bool) {
	for _, desc := range m.wallets.Installed() {
		if ctx.Err() != nil {
			return nil, false
		}
		s, err := m.probe(ctx, desc)
		if err != nil {
			m.lggr.Warnw("Skipping wallet during reattach", "wallet", desc.Key, "err", err)
			continue
		}
		if s != nil {
			return s, true
		}
	}
	return nil, false
}

// probe reports a panicking provider as an error.
func (m *Manager) probe(ctx context.Context, desc wallet.Descriptor) (s *session, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("%s panicked: %v", desc.Key, r)
		}
	}()
	adapter, err := provider.New(desc.AcquireProvider(), desc.Family)
	if err != nil {
		return nil, err
	}
	accounts, err := adapter.AuthorizedAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return m.newSession(ctx, desc, adapter, accounts[0])
}

// Connect performs the authorization handshake with the wallet registered
// under key. The user may be prompted. An active session is torn down first.
func (m *Manager) Connect(ctx context.Context, key string, opts ...ConnectOption) (Session, error) {
	var co connectOptions
	for _, opt := range opts {
		opt(&co)
	}

	desc, ok := m.wallets.Find(key)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrUnsupportedWallet, key)
	}

	m.mu.Lock()
	if m.state == Connecting || m.probing {
		m.mu.Unlock()
		return Session{}, ErrConnectionInProgress
	}
	installed, err := desc.Detect()
	if err != nil {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !installed {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %s", ErrWalletNotInstalled, desc.DisplayName)
	}
	if m.sess != nil {
		m.lggr.Infow("Replacing active session", "old", m.sess.WalletKey, "new", key)
		m.teardownLocked()
	}
	m.state = Connecting
	epoch := m.epoch
	m.mu.Unlock()

	m.lggr.Debugw("Connecting", "wallet", key, "trusted", co.trusted)
	s, err := m.handshake(ctx, desc, co)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.lggr.Infow("Discarding handshake result", "wallet", key)
		return Session{}, fmt.Errorf("%w: %w", ErrConnectionFailed, errAborted)
	}
	if err != nil {
		m.state = Idle
		err = classifyConnectError(err)
		m.lggr.Infow("Connect failed", "wallet", key, "err", err)
		return Session{}, err
	}
	if err := m.commitLocked(s); err != nil {
		m.state = Idle
		return Session{}, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	m.lggr.Infow("Connected", "wallet", key, "address", s.Address, "chainID", s.ChainID)
	return s.Session, nil
}

func (m *Manager) handshake(ctx context.Context, desc wallet.Descriptor, co connectOptions) (*session, error) {
	adapter, err := provider.New(desc.AcquireProvider(), desc.Family)
	if err != nil {
		return nil, err
	}
	accounts, err := adapter.RequestAccounts(ctx, provider.RequestOptions{Trusted: co.trusted})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errNoAccounts
	}
	return m.newSession(ctx, desc, adapter, accounts[0])
}

// newSession reads the chain and binds the family specific collaborators.
func (m *Manager) newSession(ctx context.Context, desc wallet.Descriptor, adapter provider.Adapter, address string) (*session, error) {
	chainID, err := adapter.CurrentChain(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{
		Session: Session{
			WalletKey:   desc.Key,
			Family:      desc.Family,
			Address:     address,
			ChainID:     chainID,
			RawProvider: adapter.Raw(),
			adapter:     adapter,
		},
		handlers: make(map[provider.EventKind]*provider.Handler),
	}
	switch a := adapter.(type) {
	case *provider.EvmAdapter:
		client, err := m.newRPCClient(a.Provider(), chainID)
		if err != nil {
			return nil, fmt.Errorf("build rpc client: %w", err)
		}
		s.RPCClient = client
	case *provider.SolanaAdapter:
		s.Capabilities = a.Capabilities()
	}
	return s, nil
}

// commitLocked subscribes to s's events and makes it the active session.
func (m *Manager) commitLocked(s *session) error {
	for _, kind := range s.adapter.Events() {
		h := provider.NewHandler(func(ev provider.Event) { m.handleEvent(s, ev) })
		if err := s.adapter.Subscribe(kind, h); err != nil {
			unsubscribe(s)
			return err
		}
		s.handlers[kind] = h
	}
	m.sess = s
	m.state = Connected
	return nil
}

// teardownLocked drops the active session locally and returns it.
func (m *Manager) teardownLocked() *session {
	s := m.sess
	if s != nil {
		unsubscribe(s)
	}
	m.sess = nil
	m.state = Idle
	m.epoch++
	return s
}

func unsubscribe(s *session) {
	for kind, h := range s.handlers {
		s.adapter.Unsubscribe(kind, h)
		delete(s.handlers, kind)
	}
}

// Disconnect ends the active session. It always succeeds locally; a failing
// wallet side disconnect is only logged. Disconnecting while a Connect is in
// flight aborts that Connect, and disconnecting during a reattach discards
// whatever the reattach finds.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Idle {
		if m.probing {
			m.epoch++
			m.lggr.Infow("Aborted pending reattach")
		}
		m.mu.Unlock()
		return nil
	}
	s := m.teardownLocked()
	m.mu.Unlock()

	if s == nil {
		m.lggr.Infow("Aborted pending connect")
		return nil
	}
	m.lggr.Infow("Disconnected", "wallet", s.WalletKey)
	m.disconnectWallet(ctx, s)
	return nil
}

type walletDisconnecter interface {
	Disconnect(ctx context.Context) error
}

func (m *Manager) disconnectWallet(ctx context.Context, s *session) {
	d, ok := s.adapter.(walletDisconnecter)
	if !ok {
		return
	}
	if err := d.Disconnect(ctx); err != nil {
		m.lggr.Warnw("Wallet disconnect failed", "wallet", s.WalletKey, "err", err)
	}
}

// SwitchNetwork asks an EVM wallet to change chains, adding the network to
// the wallet first if it does not know it. The session's ChainID follows the
// wallet's chainChanged event, not this call.
func (m *Manager) SwitchNetwork(ctx context.Context, chainID uint64) error {
	m.mu.Lock()
	s := m.sess
	m.mu.Unlock()
	if s == nil {
		return ErrNotConnected
	}
	evm, ok := s.adapter.(*provider.EvmAdapter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedChainFamily, s.Family)
	}
	net, ok := m.networks.Find(chainID)
	if !ok {
		return fmt.Errorf("%w: chain %d", ErrUnknownNetwork, chainID)
	}

	err := evm.SwitchChain(ctx, net.HexChainID)
	if err == nil || !provider.IsUnrecognizedChain(err) {
		return err
	}
	m.lggr.Infow("Wallet does not know network, adding it", "chainID", chainID, "name", net.Name)
	if err := evm.AddChain(ctx, addChainParams(net)); err != nil {
		return err
	}
	return evm.SwitchChain(ctx, net.HexChainID)
}

func addChainParams(net chain.Network) provider.AddChainParams {
	p := provider.AddChainParams{
		ChainID:   net.HexChainID,
		ChainName: net.Name,
		RPCURLs:   []string{net.RPCEndpoint},
		NativeCurrency: provider.NativeCurrency{
			Name:     net.CurrencySymbol,
			Symbol:   net.CurrencySymbol,
			Decimals: net.CurrencyDecimals,
		},
	}
	if net.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{net.ExplorerURL}
	}
	return p
}

func (m *Manager) handleEvent(s *session, ev provider.Event) {
	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		m.lggr.Debugw("Ignoring event from replaced session", "event", ev.Kind, "wallet", s.WalletKey)
		return
	}
	if ev.Err != nil {
		m.mu.Unlock()
		m.lggr.Warnw("Ignoring malformed provider event", "event", ev.Kind, "wallet", s.WalletKey, "err", ev.Err)
		return
	}

	switch ev.Kind {
	case provider.AccountsChanged:
		if len(ev.Accounts) > 0 {
			if s.Address != ev.Accounts[0] {
				m.lggr.Infow("Account changed", "wallet", s.WalletKey, "address", ev.Accounts[0])
				s.Address = ev.Accounts[0]
			}
			m.mu.Unlock()
			return
		}
	case provider.ChainChanged:
		m.updateChainLocked(s, ev.ChainID)
		m.mu.Unlock()
		return
	}

	// Empty account list or wallet disconnect.
	m.teardownLocked()
	m.mu.Unlock()
	m.lggr.Infow("Wallet ended the session", "wallet", s.WalletKey, "event", ev.Kind)
	m.disconnectWallet(context.Background(), s)
}

func (m *Manager) updateChainLocked(s *session, chainID uint64) {
	if s.ChainID == chainID {
		return
	}
	m.lggr.Infow("Chain changed", "wallet", s.WalletKey, "from", s.ChainID, "to", chainID)
	s.ChainID = chainID
	evm, ok := s.adapter.(*provider.EvmAdapter)
	if !ok {
		return
	}
	client, err := m.newRPCClient(evm.Provider(), chainID)
	if err != nil {
		m.lggr.Errorw("Failed to rebuild rpc client, keeping the previous one", "chainID", chainID, "err", err)
		return
	}
	s.RPCClient = client
}
