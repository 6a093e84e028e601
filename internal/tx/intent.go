package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yolodolo42/walletconnector/internal/evmrpc"
)

var (
	ErrValueMissing    = errors.New("value missing")
	ErrDenied          = errors.New("destination denied by policy")
	ErrNotAllowed      = errors.New("destination not in allowlist")
	ErrExceedsMaxPerTx = errors.New("value exceeds max per tx limit")
)

// Backend is the node access needed to prepare a transaction.
// *chain.Client satisfies it.
type Backend interface {
	GetNonce(ctx context.Context, chainID uint64, address common.Address) (uint64, error)
	EstimateGas(ctx context.Context, chainID uint64, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context, chainID uint64) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context, chainID uint64) (*big.Int, error)
	CallContract(ctx context.Context, chainID uint64, msg ethereum.CallMsg) ([]byte, error)
}

// Intent is an eth_sendTransaction request resolved against the wallet's
// active chain. Nil pointers are filled from the Backend.
type Intent struct {
	ChainID              uint64
	From                 common.Address
	To                   *common.Address // nil for contract creation
	ValueWei             *big.Int
	Data                 []byte
	Nonce                *uint64
	GasLimit             *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// FromArgs converts dApp supplied transaction arguments. A missing value is
// zero; a legacy gasPrice is used as the fee cap.
func FromArgs(chainID uint64, args evmrpc.TransactionArgs) Intent {
	in := Intent{
		ChainID:  chainID,
		From:     args.From,
		To:       args.To,
		ValueWei: new(big.Int),
	}
	if args.Value != nil {
		in.ValueWei = args.Value.ToInt()
	}
	if args.Data != nil {
		in.Data = *args.Data
	}
	if args.Nonce != nil {
		n := uint64(*args.Nonce)
		in.Nonce = &n
	}
	if args.Gas != nil {
		g := uint64(*args.Gas)
		in.GasLimit = &g
	}
	switch {
	case args.MaxFeePerGas != nil:
		in.MaxFeePerGas = args.MaxFeePerGas.ToInt()
	case args.GasPrice != nil:
		in.MaxFeePerGas = args.GasPrice.ToInt()
	}
	if args.MaxPriorityFeePerGas != nil {
		in.MaxPriorityFeePerGas = args.MaxPriorityFeePerGas.ToInt()
	}
	return in
}

func (in Intent) callMsg(gas uint64, fees SuggestedFees) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:      in.From,
		To:        in.To,
		Gas:       gas,
		GasFeeCap: fees.MaxFeePerGas,
		GasTipCap: fees.MaxPriorityFee,
		Value:     in.ValueWei,
		Data:      in.Data,
	}
}

// Policy is the local wallet's spending guard, checked before the user is
// asked to approve.
type Policy struct {
	MaxPerTxWei *big.Int
	AllowTo     []common.Address
	DenyTo      []common.Address
}

// SuggestedFees carries gas estimates so the approval prompt can show them.
type SuggestedFees struct {
	GasLimit         uint64
	MaxFeePerGas     *big.Int
	MaxPriorityFee   *big.Int
	EstimatedCostWei *big.Int
}

// Validate applies allow/deny lists and spend limits. A contract creation
// never passes an allowlist.
func Validate(in Intent, p Policy) error {
	if in.ValueWei == nil {
		return ErrValueMissing
	}
	if in.To != nil && slices.Contains(p.DenyTo, *in.To) {
		return ErrDenied
	}
	if len(p.AllowTo) > 0 && (in.To == nil || !slices.Contains(p.AllowTo, *in.To)) {
		return ErrNotAllowed
	}
	if p.MaxPerTxWei != nil && in.ValueWei.Cmp(p.MaxPerTxWei) > 0 {
		return fmt.Errorf("%w: %s > %s wei", ErrExceedsMaxPerTx, in.ValueWei, p.MaxPerTxWei)
	}
	return nil
}

// BuildUnsignedTx fills nonce, fees and gas from the backend where the intent
// leaves them open, simulates the call and returns an unsigned EIP-1559
// transaction.
func BuildUnsignedTx(ctx context.Context, b Backend, in Intent) (*types.Transaction, SuggestedFees, error) {
	if in.ValueWei == nil {
		return nil, SuggestedFees{}, ErrValueMissing
	}

	nonce, err := resolveNonce(ctx, b, in)
	if err != nil {
		return nil, SuggestedFees{}, err
	}
	fees, err := resolveFees(ctx, b, in)
	if err != nil {
		return nil, SuggestedFees{}, err
	}

	if in.GasLimit != nil {
		fees.GasLimit = *in.GasLimit
	} else {
		gas, err := b.EstimateGas(ctx, in.ChainID, in.callMsg(0, fees))
		if err != nil {
			return nil, SuggestedFees{}, err
		}
		fees.GasLimit = gas
	}

	// Reverts surface here, before the approval prompt.
	if _, err := b.CallContract(ctx, in.ChainID, in.callMsg(fees.GasLimit, fees)); err != nil {
		return nil, SuggestedFees{}, fmt.Errorf("simulation failed: %w", err)
	}

	fees.EstimatedCostWei = new(big.Int).Mul(fees.MaxFeePerGas, new(big.Int).SetUint64(fees.GasLimit))
	fees.EstimatedCostWei.Add(fees.EstimatedCostWei, in.ValueWei)

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(in.ChainID),
		Nonce:     nonce,
		GasTipCap: fees.MaxPriorityFee,
		GasFeeCap: fees.MaxFeePerGas,
		Gas:       fees.GasLimit,
		To:        in.To,
		Value:     in.ValueWei,
		Data:      in.Data,
	}), fees, nil
}

func resolveNonce(ctx context.Context, b Backend, in Intent) (uint64, error) {
	if in.Nonce != nil {
		return *in.Nonce, nil
	}
	return b.GetNonce(ctx, in.ChainID, in.From)
}

// resolveFees keeps the fee cap at or above the tip, as EIP-1559 requires.
func resolveFees(ctx context.Context, b Backend, in Intent) (SuggestedFees, error) {
	fees := SuggestedFees{MaxFeePerGas: in.MaxFeePerGas, MaxPriorityFee: in.MaxPriorityFeePerGas}
	if fees.MaxPriorityFee == nil {
		tip, err := b.SuggestGasTipCap(ctx, in.ChainID)
		if err != nil {
			return fees, err
		}
		fees.MaxPriorityFee = tip
	}
	if fees.MaxFeePerGas == nil {
		price, err := b.SuggestGasPrice(ctx, in.ChainID)
		if err != nil {
			return fees, err
		}
		fees.MaxFeePerGas = price
	}
	if fees.MaxFeePerGas.Cmp(fees.MaxPriorityFee) < 0 {
		fees.MaxFeePerGas = new(big.Int).Set(fees.MaxPriorityFee)
	}
	return fees, nil
}
