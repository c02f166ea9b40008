package polyjuice

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountIDByEthAddress returns the account id behind any address: the
// creator for the zero address, the registered account for an on-chain
// short address, and the EOA account otherwise.
func (g *Godwoker) AccountIDByEthAddress(ctx context.Context, addr common.Address) (uint64, error) {
	if addr == (common.Address{}) {
		return g.config.CreatorID, nil
	}
	scriptHash, found, err := g.client.GetScriptHashByShortAddress(ctx, addr)
	if err != nil {
		return 0, err
	}
	if !found {
		if scriptHash, err = g.resolver.ScriptHashByEoaEthAddress(addr); err != nil {
			return 0, err
		}
	}
	return g.client.GetAccountIDByScriptHash(ctx, scriptHash)
}

// ScriptHashByEthAddress returns the script hash behind any address, using
// the same classification as AccountIDByEthAddress.
func (g *Godwoker) ScriptHashByEthAddress(ctx context.Context, addr common.Address) (common.Hash, error) {
	if addr == (common.Address{}) {
		return g.client.GetScriptHash(ctx, g.config.CreatorID)
	}
	scriptHash, found, err := g.client.GetScriptHashByShortAddress(ctx, addr)
	if err != nil {
		return common.Hash{}, err
	}
	if found {
		return scriptHash, nil
	}
	return g.resolver.ScriptHashByEoaEthAddress(addr)
}

// AccountIDByEoaEthAddress returns the account id of the EOA for eth.
func (g *Godwoker) AccountIDByEoaEthAddress(ctx context.Context, eth common.Address) (uint64, error) {
	scriptHash, err := g.resolver.ScriptHashByEoaEthAddress(eth)
	if err != nil {
		return 0, err
	}
	return g.client.GetAccountIDByScriptHash(ctx, scriptHash)
}

// AssembleRawL2Transaction resolves sender and receiver accounts, fetches
// the sender nonce and encodes the Polyjuice args.
func (g *Godwoker) AssembleRawL2Transaction(ctx context.Context, tx *NormalizedTransaction) (*RawL2Transaction, error) {
	fromID, err := g.AccountIDByEoaEthAddress(ctx, tx.From)
	if err != nil {
		return nil, err
	}
	toID, err := g.AccountIDByEthAddress(ctx, tx.To)
	if err != nil {
		return nil, err
	}
	nonce, err := g.client.GetNonce(ctx, fromID)
	if err != nil {
		return nil, err
	}

	kind := CallKindCall
	if tx.IsCreation() {
		kind = CallKindCreate
	}
	args, err := encodeArgs(kind, tx.Gas, tx.GasPrice, tx.Value, tx.Data)
	if err != nil {
		return nil, err
	}

	raw := &RawL2Transaction{
		FromID: hexutil.Uint64(fromID),
		ToID:   hexutil.Uint64(toID),
		Nonce:  hexutil.Uint64(nonce),
		Args:   args,
	}
	g.logger.Debug("Assembled raw transaction", "from", fromID, "to", toID, "nonce", nonce, "args", len(args))
	return raw, nil
}

// GenerateTransactionMessageToSign hashes tx for signing under this rollup.
func (g *Godwoker) GenerateTransactionMessageToSign(tx RawL2Transaction, sender, receiver common.Hash, msgType SigningMessageType) (common.Hash, error) {
	return GenerateTransactionMessageToSign(g.config.RollupTypeHash, tx, sender, receiver, msgType)
}

// GenerateMessageFromRawL2Transaction looks up both script hashes by
// account id and returns the message to sign.
func (g *Godwoker) GenerateMessageFromRawL2Transaction(ctx context.Context, tx RawL2Transaction, msgType SigningMessageType) (common.Hash, error) {
	sender, err := g.client.GetScriptHash(ctx, uint64(tx.FromID))
	if err != nil {
		return common.Hash{}, err
	}
	receiver, err := g.client.GetScriptHash(ctx, uint64(tx.ToID))
	if err != nil {
		return common.Hash{}, err
	}
	return g.GenerateTransactionMessageToSign(tx, sender, receiver, msgType)
}

// GenerateMessageFromEthTransaction assembles tx and returns the message to
// sign. No address transcoding is applied to tx.Data.
func (g *Godwoker) GenerateMessageFromEthTransaction(ctx context.Context, tx EthTransaction, msgType SigningMessageType) (common.Hash, error) {
	normalized, err := NormalizeEthTransaction(tx)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := g.AssembleRawL2Transaction(ctx, normalized)
	if err != nil {
		return common.Hash{}, err
	}
	sender, err := g.resolver.ScriptHashByEoaEthAddress(normalized.From)
	if err != nil {
		return common.Hash{}, err
	}
	receiver, err := g.client.GetScriptHash(ctx, uint64(raw.ToID))
	if err != nil {
		return common.Hash{}, err
	}
	return g.GenerateTransactionMessageToSign(*raw, sender, receiver, msgType)
}
