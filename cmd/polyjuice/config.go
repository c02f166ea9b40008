package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/urfave/cli/v2"

	polyjuice "github.com/RosaliaNienow/quaminventore"
)

const envPrefix = "POLYJUICE_"

// config is the merged command configuration. Sources apply in order:
// defaults, the TOML file, POLYJUICE_* environment variables, then flags.
type config struct {
	RPC                string        `koanf:"rpc"`
	LogLevel           string        `koanf:"log_level"`
	RateLimit          float64       `koanf:"rate_limit"`
	RollupTypeHash     string        `koanf:"rollup_type_hash"`
	EthAccountLockHash string        `koanf:"eth_account_lock_hash"`
	CreatorID          string        `koanf:"creator_id"`
	DefaultFrom        string        `koanf:"default_from"`
	ABI                string        `koanf:"abi"`
	WaitTimeout        time.Duration `koanf:"wait_timeout"`
	PollInterval       time.Duration `koanf:"poll_interval"`
}

var defaults = map[string]interface{}{
	"rpc":           "http://127.0.0.1:8024",
	"log_level":     "info",
	"rate_limit":    0.0,
	"wait_timeout":  polyjuice.DefaultWaitTimeout.String(),
	"poll_interval": polyjuice.DefaultPollInterval.String(),
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	rpcFlag.Name:            "rpc",
	logLevelFlag.Name:       "log_level",
	rateLimitFlag.Name:      "rate_limit",
	rollupTypeHashFlag.Name: "rollup_type_hash",
	ethAccountLockFlag.Name: "eth_account_lock_hash",
	creatorIDFlag.Name:      "creator_id",
	defaultFromFlag.Name:    "default_from",
	abiFlag.Name:            "abi",
	timeoutFlag.Name:        "wait_timeout",
	intervalFlag.Name:       "poll_interval",
}

func loadConfig(c *cli.Context) (*config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, err
	}
	if path := c.String(configFlag.Name); path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		if err := k.Set(key, c.Value(flag)); err != nil {
			return nil, err
		}
	}

	var cfg config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// godwokerOptions turns the configured chain parameters into New options.
// Parameters left empty are discovered from the node.
func (cfg *config) godwokerOptions() ([]polyjuice.Option, error) {
	var opts []polyjuice.Option
	if cfg.RollupTypeHash != "" {
		h, err := parseHash("rollup_type_hash", cfg.RollupTypeHash)
		if err != nil {
			return nil, err
		}
		opts = append(opts, polyjuice.WithRollupTypeHash(h))
	}
	if cfg.EthAccountLockHash != "" {
		h, err := parseHash("eth_account_lock_hash", cfg.EthAccountLockHash)
		if err != nil {
			return nil, err
		}
		opts = append(opts, polyjuice.WithEthAccountLock(polyjuice.AccountLock{CodeHash: h, HashType: polyjuice.HashTypeType}))
	}
	if cfg.CreatorID != "" {
		id, err := strconv.ParseUint(cfg.CreatorID, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid creator_id %q: %w", cfg.CreatorID, err)
		}
		opts = append(opts, polyjuice.WithCreatorID(id))
	}
	if cfg.DefaultFrom != "" {
		addr, err := parseAddress("default_from", cfg.DefaultFrom)
		if err != nil {
			return nil, err
		}
		opts = append(opts, polyjuice.WithDefaultFromAddress(addr))
	}
	return opts, nil
}

func (cfg *config) clientOptions() []polyjuice.ClientOption {
	if cfg.RateLimit <= 0 {
		return nil
	}
	return []polyjuice.ClientOption{polyjuice.WithRateLimit(cfg.RateLimit, 1)}
}

func parseHash(field, s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid %s %q: want 32 bytes of 0x-prefixed hex", field, s)
	}
	return common.BytesToHash(b), nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q: want 20 bytes of hex", field, s)
	}
	return common.HexToAddress(s), nil
}
