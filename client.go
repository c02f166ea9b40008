package polyjuice

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// DefaultCacheSize is the number of immutable lookups a Client remembers.
const DefaultCacheSize = 1024

// Caller issues JSON-RPC requests. *rpc.Client satisfies it.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Client is the RPC gateway to a Godwoken web3 node. It is safe for
// concurrent use.
type Client struct {
	caller    Caller
	closer    func()
	limiter   *rate.Limiter
	cache     *lru.Cache
	cacheSize int
	metrics   *Metrics
	logger    log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit bounds the request rate to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCacheSize sets the lookup cache size. Zero disables caching.
func WithCacheSize(size int) ClientOption {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client over an existing caller.
func NewClient(caller Caller, opts ...ClientOption) (*Client, error) {
	c := &Client{
		caller:    caller,
		cacheSize: DefaultCacheSize,
		logger:    log.New("module", "polyjuice-rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize > 0 {
		cache, err := lru.New(c.cacheSize)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

// Dial connects to the web3 node at rawurl.
func Dial(ctx context.Context, rawurl string, opts ...ClientOption) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, &RPCError{Method: "dial", Err: err}
	}
	c, err := NewClient(rpcClient, opts...)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	c.closer = rpcClient.Close
	return c, nil
}

// Close releases the underlying connection if the Client dialed it.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// call issues method and decodes a non-null result into result. It reports
// false if the node returned null.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, &RPCError{Method: method, Err: err}
		}
	}

	start := time.Now()
	var raw json.RawMessage
	err := c.caller.CallContext(ctx, &raw, method, args...)
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.observe(method, outcomeError, elapsed)
		c.logger.Trace("RPC request failed", "method", method, "elapsed", elapsed, "err", err)
		return false, &RPCError{Method: method, Err: err}
	}
	if isNullResult(raw) {
		c.metrics.observe(method, outcomeEmpty, elapsed)
		c.logger.Trace("RPC request returned null", "method", method, "elapsed", elapsed)
		return false, nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		c.metrics.observe(method, outcomeError, elapsed)
		return false, &RPCError{Method: method, Err: err}
	}
	c.metrics.observe(method, outcomeOK, elapsed)
	c.logger.Trace("RPC request served", "method", method, "elapsed", elapsed)
	return true, nil
}

// callRequired is call for methods that must return a value.
func (c *Client) callRequired(ctx context.Context, result any, method string, args ...any) error {
	found, err := c.call(ctx, result, method, args...)
	if err != nil {
		return err
	}
	if !found {
		return &RPCError{Method: method, Err: ErrEmptyResult}
	}
	return nil
}

// cached serves immutable lookups from the cache and stores positive results.
func cached[T any](c *Client, ctx context.Context, key string, method string, args ...any) (T, bool, error) {
	var zero T
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			c.metrics.cacheHit(method)
			return v.(T), true, nil
		}
	}
	var result T
	found, err := c.call(ctx, &result, method, args...)
	if err != nil || !found {
		return zero, false, err
	}
	if c.cache != nil {
		c.cache.Add(key, result)
	}
	return result, true, nil
}

func isNullResult(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// GetScript returns the script with the given hash.
func (c *Client) GetScript(ctx context.Context, scriptHash common.Hash) (*Script, error) {
	script, found, err := cached[Script](c, ctx, "script:"+scriptHash.Hex(), "gw_get_script", scriptHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &RPCError{Method: "gw_get_script", Err: ErrEmptyResult}
	}
	return &script, nil
}

// GetScriptHash returns the script hash of an account.
func (c *Client) GetScriptHash(ctx context.Context, accountID uint64) (common.Hash, error) {
	hash, found, err := cached[common.Hash](c, ctx,
		"script_hash:"+hexutil.EncodeUint64(accountID), "gw_get_script_hash", hexutil.Uint64(accountID))
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return common.Hash{}, &RPCError{Method: "gw_get_script_hash", Err: ErrEmptyResult}
	}
	return hash, nil
}

// GetAccountIDByScriptHash returns the account id of a script hash.
func (c *Client) GetAccountIDByScriptHash(ctx context.Context, scriptHash common.Hash) (uint64, error) {
	id, found, err := cached[hexutil.Uint64](c, ctx,
		"account_id:"+scriptHash.Hex(), "gw_get_account_id_by_script_hash", scriptHash)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &RPCError{Method: "gw_get_account_id_by_script_hash", Err: ErrEmptyResult}
	}
	return uint64(id), nil
}

// GetScriptHashByShortAddress returns the script hash registered for a short
// address. It reports false if the short address is not on chain.
func (c *Client) GetScriptHashByShortAddress(ctx context.Context, short common.Address) (common.Hash, bool, error) {
	return cached[common.Hash](c, ctx,
		"short:"+short.Hex(), "gw_get_script_hash_by_short_address", short)
}

// GetNonce returns the nonce of an account.
func (c *Client) GetNonce(ctx context.Context, accountID uint64) (uint64, error) {
	var nonce hexutil.Uint64
	if err := c.callRequired(ctx, &nonce, "gw_get_nonce", hexutil.Uint64(accountID)); err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

// ExecuteL2Transaction executes a signed transaction against current state.
func (c *Client) ExecuteL2Transaction(ctx context.Context, tx L2Transaction) (*RunResult, error) {
	serialized, err := SerializeL2Transaction(tx)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, "gw_execute_l2transaction", serialized)
}

// ExecuteRawL2Transaction executes an unsigned transaction against current state.
func (c *Client) ExecuteRawL2Transaction(ctx context.Context, tx RawL2Transaction) (*RunResult, error) {
	serialized, err := SerializeRawL2Transaction(tx)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, "gw_execute_raw_l2transaction", serialized)
}

// PolyExecuteRawL2Transaction executes an unsigned transaction carrying its
// address-mapping sidecar.
func (c *Client) PolyExecuteRawL2Transaction(ctx context.Context, tx RawL2TransactionWithAddressMapping) (*RunResult, error) {
	serialized, err := SerializeRawL2TransactionWithAddressMapping(tx)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, "poly_executeRawL2Transaction", serialized)
}

func (c *Client) execute(ctx context.Context, method string, serialized []byte) (*RunResult, error) {
	var result RunResult
	if err := c.callRequired(ctx, &result, method, hexutil.Bytes(serialized)); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitL2Transaction submits a signed transaction and returns its hash.
func (c *Client) SubmitL2Transaction(ctx context.Context, tx L2Transaction) (common.Hash, error) {
	serialized, err := SerializeL2Transaction(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return c.SubmitSerializedL2Transaction(ctx, serialized)
}

// SubmitSerializedL2Transaction submits an already serialized L2Transaction.
func (c *Client) SubmitSerializedL2Transaction(ctx context.Context, serialized []byte) (common.Hash, error) {
	return c.submit(ctx, "gw_submit_l2transaction", serialized)
}

// PolySubmitL2Transaction submits a signed transaction with its
// address-mapping sidecar.
func (c *Client) PolySubmitL2Transaction(ctx context.Context, tx L2TransactionWithAddressMapping) (common.Hash, error) {
	serialized, err := SerializeL2TransactionWithAddressMapping(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return c.PolySubmitSerializedL2Transaction(ctx, serialized)
}

// PolySubmitSerializedL2Transaction submits an already serialized
// L2TransactionWithAddressMapping.
func (c *Client) PolySubmitSerializedL2Transaction(ctx context.Context, serialized []byte) (common.Hash, error) {
	return c.submit(ctx, "poly_submitL2Transaction", serialized)
}

func (c *Client) submit(ctx context.Context, method string, serialized []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.callRequired(ctx, &hash, method, hexutil.Bytes(serialized)); err != nil {
		return common.Hash{}, err
	}
	c.logger.Debug("Submitted transaction", "method", method, "hash", hash)
	return hash, nil
}

// GetTransactionReceipt returns the Godwoken receipt, or nil if unknown.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*TransactionReceipt, error) {
	var receipt TransactionReceipt
	found, err := c.call(ctx, &receipt, "gw_get_transaction_receipt", txHash)
	if err != nil || !found {
		return nil, err
	}
	return &receipt, nil
}

// GetEthTransactionReceipt returns the Ethereum-shaped receipt, or nil if unknown.
func (c *Client) GetEthTransactionReceipt(ctx context.Context, txHash common.Hash) (*EthTransactionReceipt, error) {
	var receipt EthTransactionReceipt
	found, err := c.call(ctx, &receipt, "eth_getTransactionReceipt", txHash)
	if err != nil || !found {
		return nil, err
	}
	return &receipt, nil
}

// GetTransaction returns a transaction and its status, or nil if unknown.
func (c *Client) GetTransaction(ctx context.Context, txHash common.Hash, verbose *GetTxVerbose) (*L2TransactionWithStatus, error) {
	args := []any{txHash}
	if verbose != nil {
		args = append(args, uint8(*verbose))
	}
	var tx L2TransactionWithStatus
	found, err := c.call(ctx, &tx, "gw_get_transaction", args...)
	if err != nil || !found {
		return nil, err
	}
	return &tx, nil
}

// RollupTypeHash returns the rollup type hash served by the node.
func (c *Client) RollupTypeHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	err := c.callRequired(ctx, &hash, "poly_getRollupTypeHash")
	return hash, err
}

// EthAccountLockHash returns the code hash of the EOA lock.
func (c *Client) EthAccountLockHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	err := c.callRequired(ctx, &hash, "poly_getEthAccountLockHash")
	return hash, err
}

// ContractValidatorTypeHash returns the type hash of the contract validator.
func (c *Client) ContractValidatorTypeHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	err := c.callRequired(ctx, &hash, "poly_getContractValidatorTypeHash")
	return hash, err
}

// CreatorID returns the Polyjuice creator account id.
func (c *Client) CreatorID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	err := c.callRequired(ctx, &id, "poly_getCreatorId")
	return uint64(id), err
}

// DefaultFromAddress returns the sender used for calls without one.
func (c *Client) DefaultFromAddress(ctx context.Context) (common.Address, error) {
	var addr common.Address
	err := c.callRequired(ctx, &addr, "poly_getDefaultFromAddress")
	return addr, err
}

// EthAddressByShortAddress asks the node for the Ethereum address recorded
// for a short address. It reports false if the node has none.
func (c *Client) EthAddressByShortAddress(ctx context.Context, short common.Address) (common.Address, bool, error) {
	var addr common.Address
	found, err := c.call(ctx, &addr, "poly_getEthAddressByGodwokenShortAddress", short)
	return addr, found, err
}
