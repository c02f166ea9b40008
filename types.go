package polyjuice

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Platform defaults.
const (
	// MaxTransactionGasLimit is the gas limit used when a transaction sets none.
	MaxTransactionGasLimit uint64 = 0xe4e1c0

	// DefaultEthToCkbDecimal converts 18-decimal wei into 8-decimal shannons.
	DefaultEthToCkbDecimal int64 = 10_000_000_000
)

var minGasPrice = big.NewInt(0)

// MinGasPrice returns the gas price used when a transaction sets none. The
// result is a copy.
func MinGasPrice() *big.Int {
	return new(big.Int).Set(minGasPrice)
}

// HashType selects how a script's code hash is matched against cell data.
type HashType string

const (
	HashTypeData HashType = "data"
	HashTypeType HashType = "type"
)

// Byte returns the Molecule encoding of the hash type.
func (h HashType) Byte() (byte, error) {
	switch h {
	case HashTypeData:
		return 0x00, nil
	case HashTypeType:
		return 0x01, nil
	default:
		return 0, &ValidationError{Field: "hash_type", Err: fmt.Errorf("unknown hash type %q", string(h))}
	}
}

// Script is a CKB lock or type script.
type Script struct {
	CodeHash common.Hash   `json:"code_hash"`
	HashType HashType      `json:"hash_type"`
	Args     hexutil.Bytes `json:"args"`
}

// AccountLock is a lock script without args, shared by every EOA account.
type AccountLock struct {
	CodeHash common.Hash `json:"code_hash"`
	HashType HashType    `json:"hash_type"`
}

// ShortAddressType classifies the result of resolving an Ethereum address.
type ShortAddressType uint8

const (
	// CreatorAddress is the all-zero address reserved for the creator account.
	CreatorAddress ShortAddressType = iota

	// ContractAddress is an address that is already an on-chain short address.
	ContractAddress

	// EoaAddress is an Ethereum EOA with an existing layer-2 account.
	EoaAddress

	// NotExistEoaAddress is an Ethereum EOA whose account will be created lazily.
	NotExistEoaAddress
)

func (t ShortAddressType) String() string {
	switch t {
	case CreatorAddress:
		return "creator"
	case ContractAddress:
		return "contract"
	case EoaAddress:
		return "eoa"
	case NotExistEoaAddress:
		return "not-exist-eoa"
	default:
		return fmt.Sprintf("ShortAddressType(%d)", uint8(t))
	}
}

// ShortAddress is the layer-2 address an Ethereum address resolved to.
type ShortAddress struct {
	Value common.Address
	Type  ShortAddressType
}

// EthTransaction is an Ethereum-style transaction. Numeric fields are hex
// quantities; an empty or zero To denotes contract creation.
type EthTransaction struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Gas      string `json:"gas,omitempty"`
	GasLimit string `json:"gasLimit,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Value    string `json:"value,omitempty"`
	Data     string `json:"data,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// RawL2Transaction is an unsigned Godwoken transaction.
type RawL2Transaction struct {
	FromID hexutil.Uint64 `json:"from_id"`
	ToID   hexutil.Uint64 `json:"to_id"`
	Nonce  hexutil.Uint64 `json:"nonce"`
	Args   hexutil.Bytes  `json:"args"`
}

// L2Transaction is a signed Godwoken transaction.
type L2Transaction struct {
	Raw       RawL2Transaction `json:"raw"`
	Signature hexutil.Bytes    `json:"signature"`
}

// AddressMappingItem is one Ethereum to short address correspondence.
type AddressMappingItem struct {
	EthAddress     common.Address `json:"eth_address"`
	GwShortAddress common.Address `json:"gw_short_address"`
}

// RawL2TransactionWithAddressMapping is an unsigned transaction with its
// address-mapping sidecar and serialized ABI item.
type RawL2TransactionWithAddressMapping struct {
	RawTx     RawL2Transaction     `json:"raw_tx"`
	Addresses []AddressMappingItem `json:"addresses"`
	Extra     hexutil.Bytes        `json:"extra"`
}

// L2TransactionWithAddressMapping is a signed transaction with its
// address-mapping sidecar and serialized ABI item.
type L2TransactionWithAddressMapping struct {
	Tx        L2Transaction        `json:"tx"`
	Addresses []AddressMappingItem `json:"addresses"`
	Extra     hexutil.Bytes        `json:"extra"`
}

// RunResult is the outcome of executing a transaction against current state.
type RunResult struct {
	ReturnData hexutil.Bytes     `json:"return_data"`
	Logs       []json.RawMessage `json:"logs"`
}

// LogItem is a Godwoken log entry.
type LogItem struct {
	AccountID   hexutil.Uint64 `json:"account_id"`
	ServiceFlag hexutil.Uint64 `json:"service_flag"`
	Data        hexutil.Bytes  `json:"data"`
}

// TransactionReceipt is the Godwoken receipt of a committed transaction.
type TransactionReceipt struct {
	TxWitnessHash  common.Hash     `json:"tx_witness_hash"`
	PostState      json.RawMessage `json:"post_state"`
	ReadDataHashes []common.Hash   `json:"read_data_hashes"`
	Logs           []LogItem       `json:"logs"`
}

// EthTransactionStatus is the status field of an Ethereum receipt.
type EthTransactionStatus string

const (
	EthTransactionSuccess EthTransactionStatus = "0x1"
	EthTransactionFailure EthTransactionStatus = "0x0"
)

// EthLogItem is an Ethereum-shaped log entry.
type EthLogItem struct {
	Address          common.Address `json:"address"`
	BlockHash        common.Hash    `json:"blockHash"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	Data             hexutil.Bytes  `json:"data"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
	Topics           []common.Hash  `json:"topics"`
	Removed          bool           `json:"removed"`
}

// EthTransactionReceipt is an Ethereum-shaped receipt served by the web3 node.
type EthTransactionReceipt struct {
	TransactionHash   common.Hash          `json:"transactionHash"`
	BlockHash         common.Hash          `json:"blockHash"`
	BlockNumber       hexutil.Uint64       `json:"blockNumber"`
	TransactionIndex  hexutil.Uint64       `json:"transactionIndex"`
	GasUsed           hexutil.Uint64       `json:"gasUsed"`
	CumulativeGasUsed hexutil.Uint64       `json:"cumulativeGasUsed"`
	LogsBloom         hexutil.Bytes        `json:"logsBloom"`
	Logs              []EthLogItem         `json:"logs"`
	ContractAddress   *common.Address      `json:"contractAddress"`
	Status            EthTransactionStatus `json:"status"`
}

// GetTxVerbose selects how much gw_get_transaction returns.
type GetTxVerbose uint8

const (
	TxWithStatus GetTxVerbose = 0
	OnlyStatus   GetTxVerbose = 1
)

// L2TransactionStatus is the inclusion status of a layer-2 transaction.
type L2TransactionStatus string

const (
	L2TransactionPending   L2TransactionStatus = "pending"
	L2TransactionCommitted L2TransactionStatus = "committed"
)

// L2TransactionView is a transaction together with its hash.
type L2TransactionView struct {
	Inner  L2Transaction `json:"inner"`
	TxHash common.Hash   `json:"tx_hash"`
}

// L2TransactionWithStatus is the result of gw_get_transaction.
type L2TransactionWithStatus struct {
	Transaction *L2TransactionView  `json:"transaction"`
	Status      L2TransactionStatus `json:"status"`
}
