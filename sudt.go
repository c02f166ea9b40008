package polyjuice

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/RosaliaNienow/quaminventore/internal/molecule"
)

// sudtTransferUnionID is the SUDTArgs union id of SUDTTransfer.
const sudtTransferUnionID = 1

var ethToCkbFactor = big.NewInt(DefaultEthToCkbDecimal)

// EncodeSUDTTransferArgs builds the args of an sUDT transfer to the given
// short address. Amount must fit in 256 bits and fee in 128 bits.
func EncodeSUDTTransferArgs(to []byte, amount, fee *big.Int) ([]byte, error) {
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, &RangeError{Field: "amount", Value: new(big.Int).Set(amount), Bits: 256}
	}
	a, _ := uint256.FromBig(amount)
	amountLE := a.Bytes32()
	reverse(amountLE[:])

	var feeLE [16]byte
	if err := putUint128("fee", feeLE[:], fee); err != nil {
		return nil, err
	}

	transfer := molecule.PackTable(
		molecule.PackBytes(to),
		molecule.PackUint256(amountLE),
		molecule.PackUint128(feeLE),
	)
	return molecule.PackUnion(sudtTransferUnionID, transfer), nil
}

// EthToCkb converts an 18-decimal wei amount to 8-decimal shannons,
// truncating the remainder.
func EthToCkb(wei *big.Int) *big.Int {
	return new(big.Int).Quo(wei, ethToCkbFactor)
}

// CkbToEth converts shannons to wei.
func CkbToEth(shannons *big.Int) *big.Int {
	return new(big.Int).Mul(shannons, ethToCkbFactor)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
