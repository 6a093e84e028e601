package connector

import (
	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/provider"
)

// RPCClientFactory builds the EVM client bound to a session's provider and chain.
type RPCClientFactory func(p provider.EVMProvider, chainID uint64) (*evmrpc.Client, error)

type Option func(*Manager)

// WithLogger sets the manager's logger. The default discards everything.
func WithLogger(lggr logger.Logger) Option {
	return func(m *Manager) {
		if lggr != nil {
			m.lggr = lggr
		}
	}
}

// WithRPCClientFactory replaces evmrpc.New as the EVM client constructor.
func WithRPCClientFactory(f RPCClientFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newRPCClient = f
		}
	}
}

type connectOptions struct {
	trusted bool
}

type ConnectOption func(*connectOptions)

// WithTrusted asks the wallet to reconnect silently if it already approved
// this application. Wallets without such a mode ignore it.
func WithTrusted() ConnectOption {
	return func(o *connectOptions) { o.trusted = true }
}
