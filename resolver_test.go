package polyjuice

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverLocalDerivation(t *testing.T) {
	node := newFakeNode(t)
	r := newTestGodwoker(t, node).Resolver()
	eth := common.HexToAddress("0x0c1efcca2bcb65a532274f3ef24c044ef4ab6d73")

	script := r.EoaLockScript(eth)
	assert.Equal(t, testEoaCodeHash, script.CodeHash)
	assert.Equal(t, HashTypeType, script.HashType)
	require.Len(t, script.Args, 52)
	assert.Equal(t, testRollupTypeHash.Bytes(), []byte(script.Args[:32]))
	assert.Equal(t, eth.Bytes(), []byte(script.Args[32:]))

	hash, err := r.ScriptHashByEoaEthAddress(eth)
	require.NoError(t, err)
	short, err := r.ShortAddressByEoaEthAddress(eth)
	require.NoError(t, err)
	assert.Equal(t, hash[:20], short.Bytes())

	ok, err := r.CheckEthAddressIsEoa(eth, short)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.CheckEthAddressIsEoa(eth, eth)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, node.total(), "derivation must not query the node")
}

func TestResolveShortAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("zero address is the creator", func(t *testing.T) {
		node := newFakeNode(t)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveShortAddress(ctx, common.Address{})
		require.NoError(t, err)
		assert.Equal(t, ShortAddress{Type: CreatorAddress}, got)
		assert.Zero(t, node.total())
	})

	t.Run("contract passes through", func(t *testing.T) {
		node := newFakeNode(t)
		contract, _ := node.addContract(t, 1)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveShortAddress(ctx, contract)
		require.NoError(t, err)
		assert.Equal(t, ShortAddress{Value: contract, Type: ContractAddress}, got)
	})

	t.Run("registered eoa", func(t *testing.T) {
		node := newFakeNode(t)
		short, _ := node.addEoa(t, ownerA)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveShortAddress(ctx, ownerA)
		require.NoError(t, err)
		assert.Equal(t, ShortAddress{Value: short, Type: EoaAddress}, got)
	})

	t.Run("unregistered eoa is persisted", func(t *testing.T) {
		node := newFakeNode(t)
		var persisted [][2]common.Address
		persister := MappingPersisterFunc(func(_ context.Context, eth, short common.Address) error {
			persisted = append(persisted, [2]common.Address{eth, short})
			return nil
		})
		r := newTestGodwoker(t, node, WithMappingPersister(persister)).Resolver()

		got, err := r.ResolveShortAddress(ctx, ownerB)
		require.NoError(t, err)
		want, err := r.ShortAddressByEoaEthAddress(ownerB)
		require.NoError(t, err)
		assert.Equal(t, ShortAddress{Value: want, Type: NotExistEoaAddress}, got)
		assert.Equal(t, [][2]common.Address{{ownerB, want}}, persisted)
	})

	t.Run("persist failure is not fatal", func(t *testing.T) {
		node := newFakeNode(t)
		persister := MappingPersisterFunc(func(context.Context, common.Address, common.Address) error {
			return errors.New("disk full")
		})
		r := newTestGodwoker(t, node, WithMappingPersister(persister)).Resolver()

		got, err := r.ResolveShortAddress(ctx, ownerB)
		require.NoError(t, err)
		assert.Equal(t, NotExistEoaAddress, got.Type)
	})

	t.Run("rpc failure", func(t *testing.T) {
		node := newFakeNode(t)
		node.handle("gw_get_script_hash_by_short_address", func([]any) (any, error) {
			return nil, errors.New("unavailable")
		})
		r := newTestGodwoker(t, node).Resolver()

		_, err := r.ResolveShortAddress(ctx, ownerA)
		assert.ErrorIs(t, err, ErrResolution)
		var rpcErr *RPCError
		assert.True(t, errors.As(err, &rpcErr))
	})
}

func TestResolveEthAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("zero address", func(t *testing.T) {
		node := newFakeNode(t)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveEthAddress(ctx, common.Address{})
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, got)
		assert.Zero(t, node.total())
	})

	t.Run("registered eoa reads lock args", func(t *testing.T) {
		node := newFakeNode(t)
		short, _ := node.addEoa(t, ownerA)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveEthAddress(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, ownerA, got)
	})

	t.Run("contract passes through", func(t *testing.T) {
		node := newFakeNode(t)
		contract, _ := node.addContract(t, 2)
		r := newTestGodwoker(t, node).Resolver()

		got, err := r.ResolveEthAddress(ctx, contract)
		require.NoError(t, err)
		assert.Equal(t, contract, got)
	})

	t.Run("round trip through store", func(t *testing.T) {
		node := newFakeNode(t)
		store, err := NewMemoryMappingStore(16)
		require.NoError(t, err)
		r := newTestGodwoker(t, node, WithMappingStore(store)).Resolver()

		short, err := r.ResolveShortAddress(ctx, ownerB)
		require.NoError(t, err)
		assert.Equal(t, 1, store.Len())

		got, err := r.ResolveEthAddress(ctx, short.Value)
		require.NoError(t, err)
		assert.Equal(t, ownerB, got)
		assert.Zero(t, node.count("poly_getEthAddressByGodwokenShortAddress"))
	})

	t.Run("store miss falls back to node", func(t *testing.T) {
		node := newFakeNode(t)
		store, err := NewMemoryMappingStore(16)
		require.NoError(t, err)
		r := newTestGodwoker(t, node, WithMappingStore(store)).Resolver()

		short, err := r.ShortAddressByEoaEthAddress(ownerB)
		require.NoError(t, err)
		node.ethByShort[short] = ownerB

		got, err := r.ResolveEthAddress(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, ownerB, got)
		assert.Equal(t, 1, node.count("poly_getEthAddressByGodwokenShortAddress"))
	})

	t.Run("lookup mismatch", func(t *testing.T) {
		node := newFakeNode(t)
		lookup := MappingLookupFunc(func(context.Context, common.Address) (common.Address, error) {
			return ownerA, nil
		})
		r := newTestGodwoker(t, node, WithMappingLookup(lookup)).Resolver()

		short, err := r.ShortAddressByEoaEthAddress(ownerB)
		require.NoError(t, err)
		_, err = r.ResolveEthAddress(ctx, short)
		assert.ErrorIs(t, err, ErrResolution)
		assert.ErrorIs(t, err, ErrMappingMismatch)
	})

	t.Run("unknown everywhere", func(t *testing.T) {
		node := newFakeNode(t)
		r := newTestGodwoker(t, node).Resolver()

		_, err := r.ResolveEthAddress(ctx, common.HexToAddress("0x1111111111111111111111111111111111111111"))
		assert.ErrorIs(t, err, ErrResolution)
		assert.ErrorIs(t, err, ErrMappingNotFound)
	})

	t.Run("lookup errors are not retried", func(t *testing.T) {
		node := newFakeNode(t)
		boom := errors.New("store offline")
		lookup := MappingLookupFunc(func(context.Context, common.Address) (common.Address, error) {
			return common.Address{}, boom
		})
		r := newTestGodwoker(t, node, WithMappingLookup(lookup)).Resolver()

		_, err := r.ResolveEthAddress(ctx, common.HexToAddress("0x1111111111111111111111111111111111111111"))
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, node.count("poly_getEthAddressByGodwokenShortAddress"))
	})
}

func TestMemoryMappingStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryMappingStore(2)
	require.NoError(t, err)

	short1, short2, short3 := common.Address{0x01}, common.Address{0x02}, common.Address{0x03}
	require.NoError(t, store.PersistMapping(ctx, ownerA, short1))
	require.NoError(t, store.PersistMapping(ctx, ownerB, short2))

	got, err := store.LookupEthAddress(ctx, short1)
	require.NoError(t, err)
	assert.Equal(t, ownerA, got)

	// short2 is now least recently used.
	require.NoError(t, store.PersistMapping(ctx, common.Address{0xee}, short3))
	assert.Equal(t, 2, store.Len())

	_, err = store.LookupEthAddress(ctx, short2)
	assert.ErrorIs(t, err, ErrMappingNotFound)

	_, err = NewMemoryMappingStore(0)
	assert.Error(t, err)
}
