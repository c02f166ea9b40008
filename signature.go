package polyjuice

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"

	"github.com/RosaliaNienow/quaminventore/internal/ckbhash"
)

// SignatureLength is the length of an (r, s, v) signature.
const SignatureLength = 65

// SigningMessageType selects whether the personal-sign prefix is applied
// to the transaction message.
type SigningMessageType uint8

const (
	// WithPrefix hashes the message as an Ethereum signed message. It is
	// the default.
	WithPrefix SigningMessageType = iota

	// NoPrefix signs the raw message.
	NoPrefix
)

// GenerateTransactionMessageToSign hashes the rollup type hash, both script
// hashes and the serialized raw transaction. WithPrefix wraps the result in
// the Ethereum signed message prefix.
func GenerateTransactionMessageToSign(
	rollupTypeHash common.Hash,
	tx RawL2Transaction,
	senderScriptHash common.Hash,
	receiverScriptHash common.Hash,
	msgType SigningMessageType,
) (common.Hash, error) {
	raw, err := SerializeRawL2Transaction(tx)
	if err != nil {
		return common.Hash{}, err
	}
	message := ckbhash.Hash(rollupTypeHash.Bytes(), senderScriptHash.Bytes(), receiverScriptHash.Bytes(), raw)
	if msgType == WithPrefix {
		return common.BytesToHash(accounts.TextHash(message.Bytes())), nil
	}
	return message, nil
}

// PackSignature moves the recovery byte of a 65-byte signature into {0, 1}
// by subtracting 27 when it is 27 or more. The input is not modified.
func PackSignature(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, &ValidationError{
			Field: "signature",
			Err:   fmt.Errorf("want %d bytes, got %d", SignatureLength, len(sig)),
		}
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	if v := out[SignatureLength-1]; v >= 27 {
		out[SignatureLength-1] = v - 27
	}
	return out, nil
}
