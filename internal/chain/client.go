package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrUnknownChain  = errors.New("chain not in the network registry")
	ErrChainMismatch = errors.New("rpc endpoint serves a different chain")
)

const dialTimeout = 10 * time.Second

// Client is the node pool behind the locally simulated wallets: one lazily
// dialed ethclient per registered network. The connection core never talks
// to nodes directly.
type Client struct {
	networks *Registry

	mu    sync.Mutex
	nodes map[uint64]*ethclient.Client
}

func NewClient(networks *Registry) *Client {
	return &Client{
		networks: networks,
		nodes:    make(map[uint64]*ethclient.Client),
	}
}

// Networks returns the registry the client dials from.
func (c *Client) Networks() *Registry {
	return c.networks
}

// node returns the client for chainID, dialing it on first use. The lock is
// held while dialing so a chain is dialed at most once. A node whose
// eth_chainId disagrees with the registry is rejected.
func (c *Client) node(ctx context.Context, chainID uint64) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[chainID]; ok {
		return n, nil
	}
	network, ok := c.networks.Find(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	n, err := ethclient.DialContext(ctx, network.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", network.Name, err)
	}
	remote, err := n.ChainID(ctx)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", network.Name, err)
	}
	if remote.Cmp(network.BigChainID()) != 0 {
		n.Close()
		return nil, fmt.Errorf("%w: %s expected %d, got %s", ErrChainMismatch, network.Name, chainID, remote)
	}

	c.nodes[chainID] = n
	return n, nil
}

func onNode[T any](ctx context.Context, c *Client, chainID uint64, fn func(*ethclient.Client) (T, error)) (T, error) {
	n, err := c.node(ctx, chainID)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(n)
}

func (c *Client) GetNonce(ctx context.Context, chainID uint64, address common.Address) (uint64, error) {
	return onNode(ctx, c, chainID, func(n *ethclient.Client) (uint64, error) {
		return n.PendingNonceAt(ctx, address)
	})
}

func (c *Client) EstimateGas(ctx context.Context, chainID uint64, msg ethereum.CallMsg) (uint64, error) {
	return onNode(ctx, c, chainID, func(n *ethclient.Client) (uint64, error) {
		return n.EstimateGas(ctx, msg)
	})
}

func (c *Client) SuggestGasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	return onNode(ctx, c, chainID, func(n *ethclient.Client) (*big.Int, error) {
		return n.SuggestGasPrice(ctx)
	})
}

func (c *Client) SuggestGasTipCap(ctx context.Context, chainID uint64) (*big.Int, error) {
	return onNode(ctx, c, chainID, func(n *ethclient.Client) (*big.Int, error) {
		return n.SuggestGasTipCap(ctx)
	})
}

// CallContract simulates msg at the latest block.
func (c *Client) CallContract(ctx context.Context, chainID uint64, msg ethereum.CallMsg) ([]byte, error) {
	return onNode(ctx, c, chainID, func(n *ethclient.Client) ([]byte, error) {
		return n.CallContract(ctx, msg, nil)
	})
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, chainID uint64, tx *types.Transaction) error {
	_, err := onNode(ctx, c, chainID, func(n *ethclient.Client) (struct{}, error) {
		return struct{}{}, n.SendTransaction(ctx, tx)
	})
	return err
}

// RawCall forwards a JSON-RPC call to the chain's node. Wallet providers use
// it for the read methods they do not answer themselves.
func (c *Client) RawCall(ctx context.Context, chainID uint64, result any, method string, params ...any) error {
	_, err := onNode(ctx, c, chainID, func(n *ethclient.Client) (struct{}, error) {
		return struct{}{}, n.Client().CallContext(ctx, result, method, params...)
	})
	return err
}

// Close closes every dialed node; later calls dial again.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, n := range c.nodes {
		n.Close()
		delete(c.nodes, id)
	}
}
