// Package polyjuice translates Ethereum-shaped transactions and calls into
// Godwoken Polyjuice layer-2 transactions, and layer-2 results back into
// Ethereum-shaped values.
//
// Godwoken accounts are addressed by numeric account ids derived from script
// hashes. The 20-byte prefix of an account's script hash is its "short
// address", the layer-2 analogue of an Ethereum address. An Ethereum address
// may not have an on-chain account yet; such accounts are created lazily by
// their first transaction.
//
// # Components
//
//   - Client: JSON-RPC gateway to a Godwoken web3 node (gw_* and poly_* methods).
//   - Resolver: maps Ethereum addresses to short addresses and back.
//   - ABI: the set of contract ABI items used to find address-typed
//     parameters in calldata and return data.
//   - EncodeArgs / DecodeArgs: the fixed binary layout of Polyjuice call arguments.
//   - Provider: assembles, signs and dispatches transactions in one of three
//     modes (Send, Call, EstimateGas).
//
// # Basic Usage
//
//	client, err := polyjuice.Dial(ctx, "http://localhost:8024")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw, err := polyjuice.New(ctx, client) // discovers rollup configuration
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	contracts := polyjuice.MustParseABI(erc20ABIJSON)
//	provider := polyjuice.NewProvider(contracts, gw)
//
//	// Read-only call, addresses in the return value are translated back.
//	ret, err := provider.ExecuteCallTransaction(ctx, polyjuice.EthTransaction{
//	    To:   tokenAddr,
//	    Data: calldata,
//	})
//
//	// Signed transaction, ready for poly_submitL2Transaction.
//	signed, err := provider.BuildSendTransaction(ctx, tx, signer, polyjuice.WithPrefix)
//
// # Address Mapping
//
// Calldata sent to layer 2 carries short addresses in place of Ethereum
// addresses. Every correspondence discovered while rewriting a payload is
// attached to the transaction as an address-mapping sidecar so that
// downstream observers can decode it without re-deriving each mapping.
package polyjuice
