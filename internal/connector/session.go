package connector

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

// Session is a read-only snapshot of the active connection.
type Session struct {
	WalletKey string
	Family    wallet.ChainFamily
	// Address is the 0x address (EVM) or base58 public key (Solana).
	Address string
	// ChainID is 0 for Solana sessions.
	ChainID     uint64
	RawProvider any

	// RPCClient is set for EVM sessions only.
	RPCClient *evmrpc.Client
	// Capabilities is set for Solana sessions only.
	Capabilities *provider.SolanaCapabilities

	adapter provider.Adapter
}

// TxRequest carries a transaction for exactly one chain family.
type TxRequest struct {
	EVM    *evmrpc.TransactionArgs
	Solana *SolanaTxRequest
}

// SolanaTxRequest is an unsigned Solana transaction plus the transport used
// when the wallet cannot submit it itself. A *rpc.Client is a valid Transport.
type SolanaTxRequest struct {
	Transaction *solana.Transaction
	Transport   provider.RawTransactionSender
	Opts        rpc.TransactionOpts
}

// SendTransaction signs and submits req through the connected wallet and
// returns the transaction hash (EVM, 0x hex) or signature (Solana, base58).
func (s Session) SendTransaction(ctx context.Context, req TxRequest) (string, error) {
	switch s.Family {
	case wallet.FamilyEVM:
		if req.EVM == nil {
			return "", fmt.Errorf("%w: %s session needs an EVM transaction", ErrUnsupportedChainFamily, s.Family)
		}
		if s.RPCClient == nil {
			return "", ErrNotConnected
		}
		args := *req.EVM
		if args.From == (common.Address{}) {
			args.From = common.HexToAddress(s.Address)
		}
		hash, err := s.RPCClient.SendTransaction(ctx, args)
		if err != nil {
			return "", err
		}
		return hash.Hex(), nil

	case wallet.FamilySolana:
		if req.Solana == nil || req.Solana.Transaction == nil {
			return "", fmt.Errorf("%w: %s session needs a Solana transaction", ErrUnsupportedChainFamily, s.Family)
		}
		if s.Capabilities == nil || s.Capabilities.SendTransaction == nil {
			return "", ErrNotConnected
		}
		sig, err := s.Capabilities.SendTransaction(ctx, req.Solana.Transaction, req.Solana.Transport, req.Solana.Opts)
		if err != nil {
			return "", err
		}
		return sig.String(), nil
	}
	return "", ErrNotConnected
}

// SignMessage asks the wallet to sign an arbitrary message.
func (s Session) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	switch s.Family {
	case wallet.FamilyEVM:
		if s.RPCClient == nil {
			return nil, ErrNotConnected
		}
		return s.RPCClient.PersonalSign(ctx, common.HexToAddress(s.Address), message)
	case wallet.FamilySolana:
		a, ok := s.adapter.(*provider.SolanaAdapter)
		if !ok {
			return nil, ErrNotConnected
		}
		return a.SignMessage(ctx, message)
	}
	return nil, ErrNotConnected
}
