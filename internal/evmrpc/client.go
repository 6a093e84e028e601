// Package evmrpc is a small typed client over an injected EIP-1193 provider.
// A Client is bound to the chain the wallet was on when it was built; callers
// build a new one after the wallet switches chains.
package evmrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

var ErrChainMismatch = errors.New("wallet is on a different chain than the client")

// TransactionArgs are the eth_sendTransaction arguments.
type TransactionArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	Data                 *hexutil.Bytes  `json:"data,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

// Client issues typed JSON-RPC calls through a wallet provider.
type Client struct {
	p       provider.EVMProvider
	chainID uint64
}

// New binds a client to p on chainID.
func New(p provider.EVMProvider, chainID uint64) (*Client, error) {
	if p == nil {
		return nil, errors.New("evmrpc: provider is required")
	}
	return &Client{p: p, chainID: chainID}, nil
}

// ChainID returns the chain the client was built for.
func (c *Client) ChainID() uint64 { return c.chainID }

// Call performs method and decodes the result into result (which may be nil).
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	raw, err := c.p.Request(ctx, method, params...)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Accounts returns the accounts the wallet exposes to the application.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var hexes []string
	if err := c.Call(ctx, &hexes, "eth_accounts"); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		if !common.IsHexAddress(h) {
			return nil, fmt.Errorf("wallet returned invalid address %q", h)
		}
		out = append(out, common.HexToAddress(h))
	}
	return out, nil
}

// VerifyChain checks that the wallet is still on the client's chain.
func (c *Client) VerifyChain(ctx context.Context) error {
	var hex string
	if err := c.Call(ctx, &hex, "eth_chainId"); err != nil {
		return err
	}
	id, err := provider.ParseChainID(hex)
	if err != nil {
		return err
	}
	if id != c.chainID {
		return fmt.Errorf("%w: client %d, wallet %d", ErrChainMismatch, c.chainID, id)
	}
	return nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SendTransaction asks the wallet to sign and broadcast args.
func (c *Client) SendTransaction(ctx context.Context, args TransactionArgs) (common.Hash, error) {
	if args.ChainID == nil {
		args.ChainID = (*hexutil.Big)(new(big.Int).SetUint64(c.chainID))
	}
	var hash common.Hash
	if err := c.Call(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// PersonalSign asks the wallet for an EIP-191 signature of message.
func (c *Client) PersonalSign(ctx context.Context, account common.Address, message []byte) ([]byte, error) {
	var sig hexutil.Bytes
	if err := c.Call(ctx, &sig, "personal_sign", hexutil.Bytes(message), account); err != nil {
		return nil, err
	}
	return sig, nil
}
