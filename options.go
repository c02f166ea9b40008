package polyjuice

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Option configures New.
type Option func(*options)

// options holds the values supplied to New. Nil fields are discovered.
type options struct {
	rollupTypeHash     *common.Hash
	ethAccountLock     *AccountLock
	creatorID          *uint64
	defaultFromAddress *common.Address
	persister          MappingPersister
	lookup             MappingLookup
	logger             log.Logger
}

// WithRollupTypeHash sets the rollup type hash instead of querying it.
func WithRollupTypeHash(hash common.Hash) Option {
	return func(o *options) {
		o.rollupTypeHash = &hash
	}
}

// WithEthAccountLock sets the EOA lock instead of querying its code hash.
func WithEthAccountLock(lock AccountLock) Option {
	return func(o *options) {
		o.ethAccountLock = &lock
	}
}

// WithCreatorID sets the creator account id instead of querying it.
// Zero is a valid id.
func WithCreatorID(id uint64) Option {
	return func(o *options) {
		o.creatorID = &id
	}
}

// WithDefaultFromAddress sets the fallback sender instead of querying it.
func WithDefaultFromAddress(addr common.Address) Option {
	return func(o *options) {
		o.defaultFromAddress = &addr
	}
}

// WithMappingPersister is notified of every EOA resolved before its
// account exists.
func WithMappingPersister(p MappingPersister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithMappingLookup is consulted for short addresses not found on chain.
// Lookups that report ErrMappingNotFound fall back to the node.
func WithMappingLookup(l MappingLookup) Option {
	return func(o *options) {
		o.lookup = l
	}
}

// WithMappingStore uses s as both persister and lookup.
func WithMappingStore(s *MemoryMappingStore) Option {
	return func(o *options) {
		o.persister = s
		o.lookup = s
	}
}

// WithLogger sets the logger of the resolver and its callers.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
