package polyjuice

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// eoaArgsSize is the length of an EOA lock's args: rollup type hash then
// Ethereum address.
const eoaArgsSize = common.HashLength + common.AddressLength

// Resolver maps Ethereum addresses to short addresses and back.
type Resolver struct {
	client    *Client
	config    Config
	persister MappingPersister
	lookup    MappingLookup
	fallback  MappingLookup
	logger    log.Logger
}

// EoaLockScript returns the lock script of the EOA account for eth.
func (r *Resolver) EoaLockScript(eth common.Address) Script {
	args := make([]byte, 0, eoaArgsSize)
	args = append(args, r.config.RollupTypeHash.Bytes()...)
	args = append(args, eth.Bytes()...)
	return Script{
		CodeHash: r.config.EthAccountLock.CodeHash,
		HashType: r.config.EthAccountLock.HashType,
		Args:     args,
	}
}

// ScriptHashByEoaEthAddress computes the script hash of the EOA account for
// eth without querying the chain.
func (r *Resolver) ScriptHashByEoaEthAddress(eth common.Address) (common.Hash, error) {
	return ScriptHash(r.EoaLockScript(eth))
}

// ShortAddressByEoaEthAddress computes the short address of the EOA account
// for eth: the first 20 bytes of its script hash.
func (r *Resolver) ShortAddressByEoaEthAddress(eth common.Address) (common.Address, error) {
	hash, err := r.ScriptHashByEoaEthAddress(eth)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(hash[:common.AddressLength]), nil
}

// CheckEthAddressIsEoa reports whether short is the EOA short address of eth.
func (r *Resolver) CheckEthAddressIsEoa(eth, short common.Address) (bool, error) {
	derived, err := r.ShortAddressByEoaEthAddress(eth)
	if err != nil {
		return false, err
	}
	return derived == short, nil
}

// IsShortAddressOnChain reports whether addr is a registered short address.
func (r *Resolver) IsShortAddressOnChain(ctx context.Context, addr common.Address) (bool, error) {
	_, found, err := r.client.GetScriptHashByShortAddress(ctx, addr)
	return found, err
}

// ResolveShortAddress maps an Ethereum address to its short address. The
// zero address is the creator, an address already registered on chain is a
// contract, and anything else is an EOA whose short address is derived from
// its lock script.
func (r *Resolver) ResolveShortAddress(ctx context.Context, eth common.Address) (ShortAddress, error) {
	if eth == (common.Address{}) {
		return ShortAddress{Value: eth, Type: CreatorAddress}, nil
	}

	onChain, err := r.IsShortAddressOnChain(ctx, eth)
	if err != nil {
		return ShortAddress{}, &ResolutionError{Address: eth, Err: err}
	}
	if onChain {
		r.logger.Debug("Resolved contract address", "address", eth)
		return ShortAddress{Value: eth, Type: ContractAddress}, nil
	}

	short, err := r.ShortAddressByEoaEthAddress(eth)
	if err != nil {
		return ShortAddress{}, &ResolutionError{Address: eth, Err: err}
	}
	exists, err := r.IsShortAddressOnChain(ctx, short)
	if err != nil {
		return ShortAddress{}, &ResolutionError{Address: eth, Err: err}
	}
	if exists {
		r.logger.Debug("Resolved EOA address", "address", eth, "short", short)
		return ShortAddress{Value: short, Type: EoaAddress}, nil
	}

	r.logger.Debug("Resolved EOA without account", "address", eth, "short", short)
	if r.persister != nil {
		if err := r.persister.PersistMapping(ctx, eth, short); err != nil {
			r.logger.Warn("Failed to persist address mapping", "address", eth, "short", short, "err", err)
		}
	}
	return ShortAddress{Value: short, Type: NotExistEoaAddress}, nil
}

// ResolveEthAddress maps a short address back to its Ethereum address.
// Registered EOA accounts carry the address in their lock args; other
// registered accounts are contracts and map to themselves. Short addresses
// not on chain are looked up off chain and verified by re-deriving them.
func (r *Resolver) ResolveEthAddress(ctx context.Context, short common.Address) (common.Address, error) {
	if short == (common.Address{}) {
		return short, nil
	}

	scriptHash, found, err := r.client.GetScriptHashByShortAddress(ctx, short)
	if err != nil {
		return common.Address{}, &ResolutionError{Address: short, Err: err}
	}
	if found {
		script, err := r.client.GetScript(ctx, scriptHash)
		if err != nil {
			return common.Address{}, &ResolutionError{Address: short, Err: err}
		}
		if script.CodeHash != r.config.EthAccountLock.CodeHash {
			return short, nil
		}
		if len(script.Args) < eoaArgsSize {
			return common.Address{}, &ResolutionError{
				Address: short,
				Err:     fmt.Errorf("eoa lock args too short: %d bytes", len(script.Args)),
			}
		}
		return common.BytesToAddress(script.Args[common.HashLength:eoaArgsSize]), nil
	}

	eth, err := r.lookupEthAddress(ctx, short)
	if err != nil {
		return common.Address{}, &ResolutionError{Address: short, Err: err}
	}
	ok, err := r.CheckEthAddressIsEoa(eth, short)
	if err != nil {
		return common.Address{}, &ResolutionError{Address: short, Err: err}
	}
	if !ok {
		return common.Address{}, &ResolutionError{
			Address: short,
			Err:     fmt.Errorf("%w: lookup returned %s", ErrMappingMismatch, eth.Hex()),
		}
	}
	return eth, nil
}

func (r *Resolver) lookupEthAddress(ctx context.Context, short common.Address) (common.Address, error) {
	eth, err := r.lookup.LookupEthAddress(ctx, short)
	if errors.Is(err, ErrMappingNotFound) && r.fallback != nil {
		return r.fallback.LookupEthAddress(ctx, short)
	}
	return eth, err
}
