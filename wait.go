package polyjuice

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Inclusion wait defaults.
const (
	DefaultWaitTimeout  = 180 * time.Second
	DefaultPollInterval = 3 * time.Second
)

// WaitOption configures WaitForTransaction.
type WaitOption func(*waitConfig)

type waitConfig struct {
	timeout  time.Duration
	interval time.Duration
}

// WithWaitTimeout bounds the total wait. Default is 180s.
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
	}
}

// WithPollInterval sets the delay between polls. Default is 3s. A
// non-positive interval falls back to the default.
func WithPollInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.interval = d
	}
}

// WaitForTransaction polls gw_get_transaction until the node knows txHash.
// It returns a TimeoutError once the timeout elapses, which does not tell a
// rejected transaction from a pending one. RPC errors abort the wait.
func (c *Client) WaitForTransaction(ctx context.Context, txHash common.Hash, opts ...WaitOption) (*L2TransactionWithStatus, error) {
	cfg := &waitConfig{timeout: DefaultWaitTimeout, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = DefaultPollInterval
	}

	deadline := time.NewTimer(cfg.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		tx, err := c.GetTransaction(ctx, txHash, nil)
		if err != nil {
			return nil, err
		}
		if tx != nil {
			return tx, nil
		}
		c.logger.Debug("Waiting for transaction", "hash", txHash, "waited", time.Since(start))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &TimeoutError{TxHash: txHash, Timeout: cfg.timeout}
		case <-ticker.C:
		}
	}
}

// WaitForTransactionReceipt waits for txHash to be known and returns its
// Godwoken receipt, which is nil while the transaction is still pending.
func (c *Client) WaitForTransactionReceipt(ctx context.Context, txHash common.Hash, opts ...WaitOption) (*TransactionReceipt, error) {
	if _, err := c.WaitForTransaction(ctx, txHash, opts...); err != nil {
		return nil, err
	}
	return c.GetTransactionReceipt(ctx, txHash)
}
