package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node answers eth_chainId with chainID and eth_getTransactionCount with 5,
// counting eth_chainId calls.
func node(t *testing.T, chainID string, dials *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "eth_chainId":
			dials.Add(1)
			result = chainID
		case "eth_getTransactionCount":
			result = "0x5"
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	t.Run("dials once per chain", func(t *testing.T) {
		var dials atomic.Int32
		reg, err := NewRegistry(Network{ChainID: 137, Name: "Polygon", RPCEndpoint: node(t, "0x89", &dials)})
		require.NoError(t, err)
		c := NewClient(reg)
		defer c.Close()

		for range 2 {
			nonce, err := c.GetNonce(ctx, 137, addr)
			require.NoError(t, err)
			assert.Equal(t, uint64(5), nonce)
		}
		assert.Equal(t, int32(1), dials.Load())

		c.Close()
		_, err = c.GetNonce(ctx, 137, addr)
		require.NoError(t, err)
		assert.Equal(t, int32(2), dials.Load())
	})

	t.Run("unknown chain", func(t *testing.T) {
		reg, err := NewRegistry()
		require.NoError(t, err)
		_, err = NewClient(reg).GetNonce(ctx, 137, addr)
		assert.ErrorIs(t, err, ErrUnknownChain)
	})

	t.Run("endpoint on another chain", func(t *testing.T) {
		var dials atomic.Int32
		reg, err := NewRegistry(Network{ChainID: 137, Name: "Polygon", RPCEndpoint: node(t, "0x1", &dials)})
		require.NoError(t, err)
		_, err = NewClient(reg).GetNonce(ctx, 137, addr)
		assert.ErrorIs(t, err, ErrChainMismatch)
	})

	t.Run("node errors pass through", func(t *testing.T) {
		var dials atomic.Int32
		reg, err := NewRegistry(Network{ChainID: 137, Name: "Polygon", RPCEndpoint: node(t, "0x89", &dials)})
		require.NoError(t, err)
		c := NewClient(reg)
		defer c.Close()
		var out string
		assert.ErrorContains(t, c.RawCall(ctx, 137, &out, "eth_blockNumber"), "method not found")
	})
}
