package polyjuice

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Polyjuice args layout constants.
const (
	// ArgsHeaderSize is the size of the fixed part preceding the call data.
	ArgsHeaderSize = 52

	// ArgsMagicSize is the length of the 0xFFFFFF magic.
	ArgsMagicSize = 3

	// ArgsTag is the ASCII tag following the magic.
	ArgsTag = "POLY"
)

var argsMagic = []byte{0xff, 0xff, 0xff}

// CallKind is the call-kind flag byte of the Polyjuice args.
type CallKind uint8

const (
	// CallKindCall invokes an existing contract.
	CallKindCall CallKind = 0x00

	// CallKindCreate deploys a new contract.
	CallKindCreate CallKind = 0x03
)

// IsCreate returns true if the flag denotes contract creation.
func (k CallKind) IsCreate() bool {
	return k == CallKindCreate
}

// DecodedArgs is the field-level view of Polyjuice args.
type DecodedArgs struct {
	Header     string
	Kind       CallKind
	GasLimit   uint64
	GasPrice   *big.Int
	Value      *big.Int
	DataLength uint32
	Data       []byte
}

// EncodeArgs produces the Polyjuice args for tx.
// Format: [magic:3][POLY:4][kind:1][gas:8][gasPrice:16][value:16][dataLen:4][data]
//
// Gas is required. GasPrice and Value default to zero and must fit in 128 bits.
// A To that is empty, "0x", "0x0" or the zero address selects contract creation.
func EncodeArgs(tx EthTransaction) ([]byte, error) {
	gasHex := tx.Gas
	if gasHex == "" {
		gasHex = tx.GasLimit
	}
	if gasHex == "" {
		return nil, &ValidationError{Field: "gas", Err: ErrMissingGasLimit}
	}
	gas, err := parseQuantity("gas", gasHex)
	if err != nil {
		return nil, err
	}
	if !gas.IsUint64() {
		return nil, &RangeError{Field: "gas", Value: gas, Bits: 64}
	}

	gasPrice := new(big.Int)
	if tx.GasPrice != "" {
		if gasPrice, err = parseQuantity("gasPrice", tx.GasPrice); err != nil {
			return nil, err
		}
	}
	value := new(big.Int)
	if tx.Value != "" {
		if value, err = parseQuantity("value", tx.Value); err != nil {
			return nil, err
		}
	}
	var data []byte
	if tx.Data != "" {
		if data, err = parseData("data", tx.Data); err != nil {
			return nil, err
		}
	}
	to, err := FormalizeEthToAddress(tx.To)
	if err != nil {
		return nil, err
	}

	kind := CallKindCall
	if to == (common.Address{}) {
		kind = CallKindCreate
	}
	return encodeArgs(kind, gas.Uint64(), gasPrice, value, data)
}

func encodeArgs(kind CallKind, gas uint64, gasPrice, value *big.Int, data []byte) ([]byte, error) {
	args := make([]byte, ArgsHeaderSize+len(data))

	// Bytes 0-6: magic and tag
	copy(args[0:3], argsMagic)
	copy(args[3:7], ArgsTag)

	// Byte 7: call kind
	args[7] = byte(kind)

	// Bytes 8-15: gas limit
	binary.LittleEndian.PutUint64(args[8:16], gas)

	// Bytes 16-47: gas price and value
	if err := putUint128("gasPrice", args[16:32], gasPrice); err != nil {
		return nil, err
	}
	if err := putUint128("value", args[32:48], value); err != nil {
		return nil, err
	}

	// Bytes 48-51: data length, then the data itself
	binary.LittleEndian.PutUint32(args[48:52], uint32(len(data)))
	copy(args[ArgsHeaderSize:], data)

	return args, nil
}

// DecodeArgs splits Polyjuice args into fields. The magic and tag are not
// checked; use ValidateArgsHeader for that. Data holds exactly DataLength
// bytes: a declared length past the end of args is an error and bytes after
// the declared data are ignored.
func DecodeArgs(args []byte) (*DecodedArgs, error) {
	if len(args) < ArgsHeaderSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedArgs, ArgsHeaderSize, len(args))
	}
	dataLen := binary.LittleEndian.Uint32(args[48:52])
	if uint64(len(args)-ArgsHeaderSize) < uint64(dataLen) {
		return nil, fmt.Errorf("%w: data length %d exceeds %d available bytes",
			ErrMalformedArgs, dataLen, len(args)-ArgsHeaderSize)
	}

	data := make([]byte, dataLen)
	copy(data, args[ArgsHeaderSize:])

	return &DecodedArgs{
		Header:     string(args[3:7]),
		Kind:       CallKind(args[7]),
		GasLimit:   binary.LittleEndian.Uint64(args[8:16]),
		GasPrice:   getUint128(args[16:32]),
		Value:      getUint128(args[32:48]),
		DataLength: dataLen,
		Data:       data,
	}, nil
}

// ValidateArgsHeader checks the magic and tag of Polyjuice args.
func ValidateArgsHeader(args []byte) error {
	if len(args) < ArgsHeaderSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedArgs, ArgsHeaderSize, len(args))
	}
	if !bytes.Equal(args[0:3], argsMagic) || string(args[3:7]) != ArgsTag {
		return fmt.Errorf("%w: unexpected header %x", ErrMalformedArgs, args[0:7])
	}
	return nil
}

// putUint128 writes v as two little-endian u64 halves, low half first.
func putUint128(field string, dst []byte, v *big.Int) error {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return &RangeError{Field: field, Value: new(big.Int).Set(v), Bits: 128}
	}
	u, _ := uint256.FromBig(v)
	binary.LittleEndian.PutUint64(dst[0:8], u[0])
	binary.LittleEndian.PutUint64(dst[8:16], u[1])
	return nil
}

func getUint128(src []byte) *big.Int {
	var u uint256.Int
	u[0] = binary.LittleEndian.Uint64(src[0:8])
	u[1] = binary.LittleEndian.Uint64(src[8:16])
	return u.ToBig()
}
