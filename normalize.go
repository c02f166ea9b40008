package polyjuice

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var hexPattern = regexp.MustCompile(`^0x[0-9A-Fa-f]*$`)

// IsHexString reports whether value is 0x-prefixed hex. A positive length
// additionally requires exactly that many bytes.
func IsHexString(value string, length int) bool {
	if !hexPattern.MatchString(value) {
		return false
	}
	if length > 0 && len(value) != 2+2*length {
		return false
	}
	return true
}

// NormalizeHexValue lower-cases a hex string and pads it to an even number of
// digits. An empty "0x" is kept as is.
func NormalizeHexValue(value string) (string, error) {
	if !IsHexString(value, 0) {
		return "", &ValidationError{Field: "hex value", Err: fmt.Errorf("%w: %q", ErrInvalidHex, value)}
	}
	digits := value[2:]
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	return "0x" + strings.ToLower(digits), nil
}

// FormalizeEthToAddress maps an empty, "0x" or "0x0" target to the zero
// address and rejects anything else that is not a 20-byte hex address.
func FormalizeEthToAddress(to string) (common.Address, error) {
	if to == "" || to == "0x" || to == "0x0" {
		return common.Address{}, nil
	}
	if !IsHexString(to, common.AddressLength) {
		return common.Address{}, &ValidationError{Field: "to", Err: fmt.Errorf("%w: %q", ErrInvalidAddress, to)}
	}
	return common.HexToAddress(to), nil
}

// NormalizedTransaction is an EthTransaction with every default applied.
type NormalizedTransaction struct {
	From     common.Address
	To       common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// IsCreation reports whether the transaction deploys a contract.
func (t *NormalizedTransaction) IsCreation() bool {
	return t.To == (common.Address{})
}

// NormalizeEthTransaction applies platform defaults: gas (or its gasLimit
// alias) falls back to MaxTransactionGasLimit, gasPrice to MinGasPrice,
// value to zero and data to empty.
func NormalizeEthTransaction(tx EthTransaction) (*NormalizedTransaction, error) {
	if tx.From == "" {
		return nil, &ValidationError{Field: "from", Err: ErrMissingFrom}
	}
	if !IsHexString(tx.From, common.AddressLength) {
		return nil, &ValidationError{Field: "from", Err: fmt.Errorf("%w: %q", ErrInvalidAddress, tx.From)}
	}
	to, err := FormalizeEthToAddress(tx.To)
	if err != nil {
		return nil, err
	}

	out := &NormalizedTransaction{
		From:     common.HexToAddress(tx.From),
		To:       to,
		Gas:      MaxTransactionGasLimit,
		GasPrice: MinGasPrice(),
		Value:    new(big.Int),
		Data:     []byte{},
	}

	gas := tx.Gas
	if gas == "" {
		gas = tx.GasLimit
	}
	if gas != "" {
		v, err := parseQuantity("gas", gas)
		if err != nil {
			return nil, err
		}
		if !v.IsUint64() {
			return nil, &RangeError{Field: "gas", Value: v, Bits: 64}
		}
		out.Gas = v.Uint64()
	}
	if tx.GasPrice != "" {
		if out.GasPrice, err = parseQuantity("gasPrice", tx.GasPrice); err != nil {
			return nil, err
		}
	}
	if tx.Value != "" {
		if out.Value, err = parseQuantity("value", tx.Value); err != nil {
			return nil, err
		}
	}
	if tx.Data != "" {
		if out.Data, err = parseData("data", tx.Data); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EthTransaction returns the canonical hex form of t.
func (t *NormalizedTransaction) EthTransaction() EthTransaction {
	tx := EthTransaction{
		From:     t.From.Hex(),
		Gas:      hexutil.EncodeUint64(t.Gas),
		GasPrice: hexutil.EncodeBig(t.GasPrice),
		Value:    hexutil.EncodeBig(t.Value),
		Data:     hexutil.Encode(t.Data),
	}
	if !t.IsCreation() {
		tx.To = t.To.Hex()
	}
	return tx
}

// parseQuantity accepts hex quantities with or without leading zeros.
func parseQuantity(field, s string) (*big.Int, error) {
	if !IsHexString(s, 0) {
		return nil, &ValidationError{Field: field, Err: fmt.Errorf("%w: %q", ErrInvalidHex, s)}
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, &ValidationError{Field: field, Err: fmt.Errorf("%w: %q", ErrInvalidHex, s)}
	}
	return v, nil
}

func parseData(field, s string) ([]byte, error) {
	normalized, err := NormalizeHexValue(s)
	if err != nil {
		return nil, &ValidationError{Field: field, Err: fmt.Errorf("%w: %q", ErrInvalidHex, s)}
	}
	return hexutil.Decode(normalized)
}
