package polyjuice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

var errMethodNotFound = errors.New("the method does not exist")

type rpcHandler func(args []any) (any, error)

// fakeCaller serves JSON-RPC requests from in-process handlers. Results go
// through a JSON round trip so decoding matches a real transport.
type fakeCaller struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		handlers: make(map[string]rpcHandler),
		calls:    make(map[string]int),
	}
}

func (f *fakeCaller) handle(method string, h rpcHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeCaller) CallContext(ctx context.Context, result any, method string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls[method]++
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		return fmt.Errorf("%s: %w", method, errMethodNotFound)
	}
	v, err := h(args)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}

func (f *fakeCaller) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCaller) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

var (
	testValidatorCodeHash = common.HexToHash("0x636b89329db092883883ab5256e435ccabeee07b52091a78be22179636affce8")
	testDefaultFrom       = common.HexToAddress("0x6daf63d8411d6e23552658e3cfb48416a6a2ca78")
	testCreatorID         = uint64(4)
)

// fakeNode is an in-memory Godwoken web3 node holding accounts, nonces and
// the node-side address mapping table.
type fakeNode struct {
	*fakeCaller

	mu         sync.Mutex
	nextID     uint64
	scripts    map[common.Hash]Script
	ids        map[common.Hash]uint64
	hashes     map[uint64]common.Hash
	shorts     map[common.Address]common.Hash
	nonces     map[uint64]uint64
	ethByShort map[common.Address]common.Address
	returnData []byte

	executed  [][]byte
	submitted [][]byte
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	n := &fakeNode{
		fakeCaller: newFakeCaller(),
		nextID:     testCreatorID,
		scripts:    make(map[common.Hash]Script),
		ids:        make(map[common.Hash]uint64),
		hashes:     make(map[uint64]common.Hash),
		shorts:     make(map[common.Address]common.Hash),
		nonces:     make(map[uint64]uint64),
		ethByShort: make(map[common.Address]common.Address),
	}
	n.register(t, Script{
		CodeHash: testValidatorCodeHash,
		HashType: HashTypeType,
		Args:     testRollupTypeHash.Bytes(),
	})

	n.handle("poly_getRollupTypeHash", func([]any) (any, error) { return testRollupTypeHash, nil })
	n.handle("poly_getEthAccountLockHash", func([]any) (any, error) { return testEoaCodeHash, nil })
	n.handle("poly_getCreatorId", func([]any) (any, error) { return hexutil.Uint64(testCreatorID), nil })
	n.handle("poly_getDefaultFromAddress", func([]any) (any, error) { return testDefaultFrom, nil })

	n.handle("gw_get_script", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if s, ok := n.scripts[args[0].(common.Hash)]; ok {
			return s, nil
		}
		return nil, nil
	})
	n.handle("gw_get_script_hash", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if h, ok := n.hashes[uint64(args[0].(hexutil.Uint64))]; ok {
			return h, nil
		}
		return nil, nil
	})
	n.handle("gw_get_account_id_by_script_hash", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if id, ok := n.ids[args[0].(common.Hash)]; ok {
			return hexutil.Uint64(id), nil
		}
		return nil, nil
	})
	n.handle("gw_get_script_hash_by_short_address", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if h, ok := n.shorts[args[0].(common.Address)]; ok {
			return h, nil
		}
		return nil, nil
	})
	n.handle("gw_get_nonce", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		return hexutil.Uint64(n.nonces[uint64(args[0].(hexutil.Uint64))]), nil
	})
	n.handle("poly_getEthAddressByGodwokenShortAddress", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if eth, ok := n.ethByShort[args[0].(common.Address)]; ok {
			return eth, nil
		}
		return nil, nil
	})
	n.handle("poly_executeRawL2Transaction", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.executed = append(n.executed, args[0].(hexutil.Bytes))
		return RunResult{ReturnData: n.returnData}, nil
	})
	n.handle("poly_submitL2Transaction", func(args []any) (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.submitted = append(n.submitted, args[0].(hexutil.Bytes))
		return common.HexToHash("0xfeed"), nil
	})
	return n
}

// register adds an account for script and returns its short address and id.
func (n *fakeNode) register(t *testing.T, script Script) (common.Address, uint64) {
	t.Helper()
	hash, err := ScriptHash(script)
	require.NoError(t, err)

	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.scripts[hash] = script
	n.ids[hash] = id
	n.hashes[id] = hash
	short := common.BytesToAddress(hash[:common.AddressLength])
	n.shorts[short] = hash
	return short, id
}

// addEoa registers the EOA account of eth.
func (n *fakeNode) addEoa(t *testing.T, eth common.Address) (common.Address, uint64) {
	t.Helper()
	args := append(testRollupTypeHash.Bytes(), eth.Bytes()...)
	return n.register(t, Script{CodeHash: testEoaCodeHash, HashType: HashTypeType, Args: args})
}

// addContract registers a contract account and returns its address.
func (n *fakeNode) addContract(t *testing.T, seed byte) (common.Address, uint64) {
	t.Helper()
	args := append(testRollupTypeHash.Bytes(), seed)
	return n.register(t, Script{CodeHash: testValidatorCodeHash, HashType: HashTypeType, Args: args})
}

func (n *fakeNode) setNonce(id, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[id] = nonce
}

func newTestClient(t *testing.T, caller Caller, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithClientLogger(log.Root())}, opts...)
	c, err := NewClient(caller, opts...)
	require.NoError(t, err)
	return c
}

// newTestGodwoker builds a Godwoker whose configuration is fully supplied,
// so construction makes no requests.
func newTestGodwoker(t *testing.T, node *fakeNode, opts ...Option) *Godwoker {
	t.Helper()
	base := []Option{
		WithRollupTypeHash(testRollupTypeHash),
		WithEthAccountLock(AccountLock{CodeHash: testEoaCodeHash, HashType: HashTypeType}),
		WithCreatorID(testCreatorID),
		WithDefaultFromAddress(testDefaultFrom),
	}
	gw, err := New(context.Background(), newTestClient(t, node), append(base, opts...)...)
	require.NoError(t, err)
	return gw
}
