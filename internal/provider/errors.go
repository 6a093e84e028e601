package provider

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 and EIP-3085 provider error codes.
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeDisconnected       = 4900
	CodeUnrecognizedChain  = 4902
	CodeInternalJSONRPCErr = -32603
)

var (
	ErrIncompatibleProvider  = errors.New("provider does not implement the wallet protocol")
	ErrCapabilityUnsupported = errors.New("provider does not support this capability")
	ErrUnsupportedEvent      = errors.New("event not supported by this chain family")
	ErrNoTransport           = errors.New("no transaction transport supplied")
)

// ProviderError is an error reported by a wallet provider.
// It implements go-ethereum's rpc.Error and rpc.DataError.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var (
	_ rpc.Error     = (*ProviderError)(nil)
	_ rpc.DataError = (*ProviderError)(nil)
)

// NewProviderError builds a ProviderError.
func NewProviderError(code int, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

func (e *ProviderError) ErrorData() any { return e.Data }

// ErrorCode extracts the provider error code from err.
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejection reports whether the user declined the request in the wallet UI.
func IsUserRejection(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// IsUnrecognizedChain reports whether the wallet does not know the requested
// chain. Some mobile wallets wrap the 4902 code inside an internal error's
// data.originalError.
func IsUnrecognizedChain(err error) bool {
	code, ok := ErrorCode(err)
	if !ok {
		return false
	}
	if code == CodeUnrecognizedChain {
		return true
	}
	if code != CodeInternalJSONRPCErr {
		return false
	}
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return false
	}
	data, ok := dataErr.ErrorData().(map[string]any)
	if !ok {
		return false
	}
	orig, ok := data["originalError"].(map[string]any)
	if !ok {
		return false
	}
	switch c := orig["code"].(type) {
	case int:
		return c == CodeUnrecognizedChain
	case float64:
		return int(c) == CodeUnrecognizedChain
	}
	return false
}
