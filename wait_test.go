package polyjuice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForTransaction(t *testing.T) {
	hash := common.HexToHash("0xfeed")
	fast := WithPollInterval(time.Millisecond)

	t.Run("found after polling", func(t *testing.T) {
		caller := newFakeCaller()
		polls := 0
		caller.handle("gw_get_transaction", func([]any) (any, error) {
			polls++
			if polls < 3 {
				return nil, nil
			}
			return L2TransactionWithStatus{Status: L2TransactionPending}, nil
		})
		c := newTestClient(t, caller)

		tx, err := c.WaitForTransaction(context.Background(), hash, fast)
		require.NoError(t, err)
		assert.Equal(t, L2TransactionPending, tx.Status)
		assert.Equal(t, 3, polls)
	})

	t.Run("timeout", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_transaction", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)

		_, err := c.WaitForTransaction(context.Background(), hash, fast, WithWaitTimeout(20*time.Millisecond))
		assert.ErrorIs(t, err, ErrTimeout)

		var timeoutErr *TimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.Equal(t, hash, timeoutErr.TxHash)
		assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
	})

	t.Run("context cancellation", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_transaction", func([]any) (any, error) { return nil, nil })
		c := newTestClient(t, caller)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.WaitForTransaction(ctx, hash, fast)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("non-positive interval uses default", func(t *testing.T) {
		for _, interval := range []time.Duration{0, -time.Second} {
			caller := newFakeCaller()
			caller.handle("gw_get_transaction", func([]any) (any, error) { return nil, nil })
			c := newTestClient(t, caller)

			require.NotPanics(t, func() {
				_, err := c.WaitForTransaction(context.Background(), hash, WithPollInterval(interval), WithWaitTimeout(10*time.Millisecond))
				assert.ErrorIs(t, err, ErrTimeout)
			})
			assert.Equal(t, 1, caller.count("gw_get_transaction"), "default interval outlasts the timeout")
		}
	})

	t.Run("rpc failure aborts", func(t *testing.T) {
		caller := newFakeCaller()
		boom := errors.New("node down")
		caller.handle("gw_get_transaction", func([]any) (any, error) { return nil, boom })
		c := newTestClient(t, caller)

		_, err := c.WaitForTransaction(context.Background(), hash, fast)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, caller.count("gw_get_transaction"))
	})

	t.Run("receipt", func(t *testing.T) {
		caller := newFakeCaller()
		caller.handle("gw_get_transaction", func([]any) (any, error) {
			return L2TransactionWithStatus{Status: L2TransactionCommitted}, nil
		})
		caller.handle("gw_get_transaction_receipt", func([]any) (any, error) {
			return TransactionReceipt{TxWitnessHash: hash}, nil
		})
		c := newTestClient(t, caller)

		receipt, err := c.WaitForTransactionReceipt(context.Background(), hash, fast)
		require.NoError(t, err)
		require.NotNil(t, receipt)
		assert.Equal(t, hash, receipt.TxWitnessHash)
	})
}
