package polyjuice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCache(t *testing.T) {
	ctx := context.Background()
	hash := common.HexToHash("0x01")

	t.Run("immutable lookups are cached", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_script_hash", func([]any) (any, error) { return hash, nil })
		c := newTestClient(t, caller)

		for range 3 {
			got, err := c.GetScriptHash(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, hash, got)
		}
		assert.Equal(t, 1, caller.count("gw_get_script_hash"))
	})

	t.Run("keys are per argument", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_script_hash", func(args []any) (any, error) {
			return common.Hash{byte(args[0].(hexutil.Uint64))}, nil
		})
		c := newTestClient(t, caller)

		h1, err := c.GetScriptHash(ctx, 1)
		require.NoError(t, err)
		h2, err := c.GetScriptHash(ctx, 2)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
		assert.Equal(t, 2, caller.count("gw_get_script_hash"))
	})

	t.Run("null results are not cached", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_script_hash_by_short_address", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)

		for range 2 {
			_, found, err := c.GetScriptHashByShortAddress(ctx, common.HexToAddress("0x02"))
			require.NoError(t, err)
			assert.False(t, found)
		}
		assert.Equal(t, 2, caller.count("gw_get_script_hash_by_short_address"))
	})

	t.Run("disabled", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_script_hash", func([]any) (any, error) { return hash, nil })
		c := newTestClient(t, caller, WithCacheSize(0))

		for range 2 {
			_, err := c.GetScriptHash(ctx, 7)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, caller.count("gw_get_script_hash"))
	})

	t.Run("nonces are never cached", func(t *testing.T) {
		caller := newFakeCaller()
		nonce := uint64(0)
		caller.handle("gw_get_nonce", func([]any) (any, error) {
			nonce++
			return hexutil.Uint64(nonce), nil
		})
		c := newTestClient(t, caller)

		n1, err := c.GetNonce(ctx, 1)
		require.NoError(t, err)
		n2, err := c.GetNonce(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n1)
		assert.Equal(t, uint64(2), n2)
	})
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("required value missing", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_nonce", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)

		_, err := c.GetNonce(ctx, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyResult)

		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "gw_get_nonce", rpcErr.Method)
	})

	t.Run("script not found", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_script", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)

		_, err := c.GetScript(ctx, common.HexToHash("0x01"))
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("transport failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		caller := newFakeCaller()
		caller.handle("poly_getCreatorId", func([]any) (any, error) { return nil, boom })
		c := newTestClient(t, caller)

		_, err := c.CreatorID(ctx)
		assert.ErrorIs(t, err, boom)

		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "poly_getCreatorId", rpcErr.Method)
	})

	t.Run("undecodable result", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_nonce", func([]any) (any, error) { return "not a quantity", nil })
		c := newTestClient(t, caller)

		_, err := c.GetNonce(ctx, 1)
		var rpcErr *RPCError
		assert.True(t, errors.As(err, &rpcErr))
	})

	t.Run("unknown transaction is nil", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_transaction", func([]any) (any, error) { return nil, nil })
		caller.handle("gw_get_transaction_receipt", func([]any) (any, error) { return nil, nil })
		caller.handle("eth_getTransactionReceipt", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)
		hash := common.HexToHash("0x03")

		tx, err := c.GetTransaction(ctx, hash, nil)
		require.NoError(t, err)
		assert.Nil(t, tx)

		receipt, err := c.GetTransactionReceipt(ctx, hash)
		require.NoError(t, err)
		assert.Nil(t, receipt)

		ethReceipt, err := c.GetEthTransactionReceipt(ctx, hash)
		require.NoError(t, err)
		assert.Nil(t, ethReceipt)
	})
}

func TestClientGetTransaction(t *testing.T) {
	var gotArgs []any
	caller := newFakeCaller()
	caller.handle("gw_get_transaction", func(args []any) (any, error) {
		gotArgs = args
		return map[string]any{"transaction": nil, "status": "committed"}, nil
	})
	c := newTestClient(t, caller)
	hash := common.HexToHash("0x03")

	verbose := OnlyStatus
	tx, err := c.GetTransaction(context.Background(), hash, &verbose)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, L2TransactionCommitted, tx.Status)
	assert.Nil(t, tx.Transaction)
	assert.Equal(t, []any{hash, uint8(1)}, gotArgs)
}

func TestClientMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.handle("gw_get_script_hash", func([]any) (any, error) { return common.HexToHash("0x01"), nil })
	caller.handle("gw_get_script_hash_by_short_address", func([]any) (any, error) { return nil, nil })
	caller.handle("gw_get_nonce", func([]any) (any, error) { return nil, errors.New("boom") })
	c := newTestClient(t, caller, WithMetrics(m))

	_, _ = c.GetScriptHash(ctx, 1)
	_, _ = c.GetScriptHash(ctx, 1)
	_, _, _ = c.GetScriptHashByShortAddress(ctx, common.Address{0x01})
	_, _ = c.GetNonce(ctx, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("gw_get_script_hash", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("gw_get_script_hash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("gw_get_script_hash_by_short_address", outcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("gw_get_nonce", outcomeError)))

	t.Run("re-registration reuses collectors", func(t *testing.T) {
		again, err := NewMetrics(reg)
		require.NoError(t, err)
		assert.Same(t, m.requests, again.requests)
		assert.Same(t, m.cacheHits, again.cacheHits)
	})
}

func TestClientRateLimit(t *testing.T) {
	caller := newFakeCaller()
	caller.handle("gw_get_nonce", func([]any) (any, error) { return hexutil.Uint64(1), nil })
	c := newTestClient(t, caller, WithRateLimit(0.01, 1))

	_, err := c.GetNonce(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.GetNonce(ctx, 1)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 1, caller.count("gw_get_nonce"))
}
