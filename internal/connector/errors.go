package connector

import (
	"errors"
	"fmt"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

var (
	ErrUnsupportedWallet      = errors.New("unsupported wallet")
	ErrWalletNotInstalled     = errors.New("wallet not installed")
	ErrConnectionRejected     = errors.New("connection rejected by user")
	ErrConnectionFailed       = errors.New("connection failed")
	ErrConnectionInProgress   = errors.New("a connection attempt is already in progress")
	ErrNotConnected           = errors.New("no wallet connected")
	ErrUnsupportedChainFamily = errors.New("operation not supported for this chain family")
	ErrUnknownNetwork         = errors.New("unknown network")
)

var (
	errNoAccounts = errors.New("wallet returned no accounts")
	errAborted    = errors.New("connection aborted by disconnect")
)

// classifyConnectError maps a handshake failure to ErrConnectionRejected or
// ErrConnectionFailed, keeping the cause reachable with errors.As.
func classifyConnectError(err error) error {
	if provider.IsUserRejection(err) {
		return fmt.Errorf("%w: %w", ErrConnectionRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}
