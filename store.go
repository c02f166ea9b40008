package polyjuice

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// MappingPersister remembers the Ethereum address behind a short address
// whose account does not exist on chain yet. Implementations must be safe
// for concurrent use.
type MappingPersister interface {
	PersistMapping(ctx context.Context, eth, short common.Address) error
}

// MappingLookup finds the Ethereum address behind an off-chain short
// address. It returns ErrMappingNotFound if it has no entry.
type MappingLookup interface {
	LookupEthAddress(ctx context.Context, short common.Address) (common.Address, error)
}

// MappingPersisterFunc adapts a function to MappingPersister.
type MappingPersisterFunc func(ctx context.Context, eth, short common.Address) error

func (f MappingPersisterFunc) PersistMapping(ctx context.Context, eth, short common.Address) error {
	return f(ctx, eth, short)
}

// MappingLookupFunc adapts a function to MappingLookup.
type MappingLookupFunc func(ctx context.Context, short common.Address) (common.Address, error)

func (f MappingLookupFunc) LookupEthAddress(ctx context.Context, short common.Address) (common.Address, error) {
	return f(ctx, short)
}

// MemoryMappingStore is a bounded in-memory MappingPersister and
// MappingLookup. The least recently used entries are evicted first.
type MemoryMappingStore struct {
	cache *lru.Cache
}

// NewMemoryMappingStore creates a store holding up to size mappings.
func NewMemoryMappingStore(size int) (*MemoryMappingStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryMappingStore{cache: cache}, nil
}

func (s *MemoryMappingStore) PersistMapping(_ context.Context, eth, short common.Address) error {
	s.cache.Add(short, eth)
	return nil
}

func (s *MemoryMappingStore) LookupEthAddress(_ context.Context, short common.Address) (common.Address, error) {
	v, ok := s.cache.Get(short)
	if !ok {
		return common.Address{}, ErrMappingNotFound
	}
	return v.(common.Address), nil
}

// Len returns the number of stored mappings.
func (s *MemoryMappingStore) Len() int {
	return s.cache.Len()
}

// rpcMappingLookup asks the web3 node, which records mappings carried in
// submitted sidecars.
type rpcMappingLookup struct {
	client *Client
}

func (l rpcMappingLookup) LookupEthAddress(ctx context.Context, short common.Address) (common.Address, error) {
	eth, found, err := l.client.EthAddressByShortAddress(ctx, short)
	if err != nil {
		return common.Address{}, err
	}
	if !found {
		return common.Address{}, fmt.Errorf("%w for %s", ErrMappingNotFound, short.Hex())
	}
	return eth, nil
}
