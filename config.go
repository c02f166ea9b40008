package polyjuice

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Config is the chain configuration a Godwoker works against.
type Config struct {
	RollupTypeHash     common.Hash
	EthAccountLock     AccountLock
	CreatorID          uint64
	DefaultFromAddress common.Address
}

// Godwoker ties the RPC gateway to a resolved chain configuration. It is
// immutable after New and safe for concurrent use.
type Godwoker struct {
	client   *Client
	config   Config
	resolver *Resolver
	logger   log.Logger
}

// New resolves every configuration field not supplied through opts by
// querying the node concurrently, and returns once all four are known.
func New(ctx context.Context, client *Client, opts ...Option) (*Godwoker, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New("module", "polyjuice")
	}

	cfg, err := discoverConfig(ctx, client, o)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Resolved chain configuration",
		"rollup", cfg.RollupTypeHash, "lock", cfg.EthAccountLock.CodeHash,
		"creator", cfg.CreatorID, "from", cfg.DefaultFromAddress)

	lookup := MappingLookup(rpcMappingLookup{client: client})
	var fallback MappingLookup
	if o.lookup != nil {
		lookup, fallback = o.lookup, lookup
	}

	return &Godwoker{
		client: client,
		config: cfg,
		resolver: &Resolver{
			client:    client,
			config:    cfg,
			persister: o.persister,
			lookup:    lookup,
			fallback:  fallback,
			logger:    o.logger,
		},
		logger: o.logger,
	}, nil
}

func discoverConfig(ctx context.Context, client *Client, o *options) (Config, error) {
	var cfg Config
	g, gctx := errgroup.WithContext(ctx)

	if o.rollupTypeHash != nil {
		cfg.RollupTypeHash = *o.rollupTypeHash
	} else {
		g.Go(func() (err error) {
			cfg.RollupTypeHash, err = client.RollupTypeHash(gctx)
			return err
		})
	}

	if o.ethAccountLock != nil && o.ethAccountLock.CodeHash != (common.Hash{}) {
		cfg.EthAccountLock = *o.ethAccountLock
		if cfg.EthAccountLock.HashType == "" {
			cfg.EthAccountLock.HashType = HashTypeType
		}
	} else {
		g.Go(func() error {
			codeHash, err := client.EthAccountLockHash(gctx)
			if err != nil {
				return err
			}
			cfg.EthAccountLock = AccountLock{CodeHash: codeHash, HashType: HashTypeType}
			return nil
		})
	}

	if o.creatorID != nil {
		cfg.CreatorID = *o.creatorID
	} else {
		g.Go(func() (err error) {
			cfg.CreatorID, err = client.CreatorID(gctx)
			return err
		})
	}

	if o.defaultFromAddress != nil {
		cfg.DefaultFromAddress = *o.defaultFromAddress
	} else {
		g.Go(func() (err error) {
			cfg.DefaultFromAddress, err = client.DefaultFromAddress(gctx)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Client returns the RPC gateway.
func (g *Godwoker) Client() *Client {
	return g.client
}

// Config returns the resolved chain configuration.
func (g *Godwoker) Config() Config {
	return g.config
}

// Resolver returns the address resolver.
func (g *Godwoker) Resolver() *Resolver {
	return g.resolver
}
