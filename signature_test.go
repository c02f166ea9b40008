package polyjuice

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RosaliaNienow/quaminventore/internal/ckbhash"
)

func TestPackSignature(t *testing.T) {
	sig := func(v byte) []byte {
		b := bytes.Repeat([]byte{0x11}, SignatureLength)
		b[SignatureLength-1] = v
		return b
	}

	tests := []struct {
		name string
		v    byte
		want byte
	}{
		{"v 27", 27, 0},
		{"v 28", 28, 1},
		{"v 0 unchanged", 0, 0},
		{"v 1 unchanged", 1, 1},
		{"large v", 0x26, 0x0b},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sig(tt.v)
			out, err := PackSignature(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[SignatureLength-1])
			assert.Equal(t, in[:SignatureLength-1], out[:SignatureLength-1])
			assert.Equal(t, tt.v, in[SignatureLength-1], "input must not be modified")
		})
	}

	t.Run("wrong length", func(t *testing.T) {
		_, err := PackSignature(make([]byte, 64))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestGenerateTransactionMessageToSign(t *testing.T) {
	tx := RawL2Transaction{FromID: 5, ToID: 6, Nonce: 1, Args: []byte{0x01}}
	sender := common.HexToHash("0x0a")
	receiver := common.HexToHash("0x0b")

	raw, err := GenerateTransactionMessageToSign(testRollupTypeHash, tx, sender, receiver, NoPrefix)
	require.NoError(t, err)

	serialized, err := SerializeRawL2Transaction(tx)
	require.NoError(t, err)
	assert.Equal(t, ckbhash.Hash(testRollupTypeHash.Bytes(), sender.Bytes(), receiver.Bytes(), serialized), raw)

	prefixed, err := GenerateTransactionMessageToSign(testRollupTypeHash, tx, sender, receiver, WithPrefix)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(accounts.TextHash(raw.Bytes())), prefixed)

	t.Run("depends on every input", func(t *testing.T) {
		other, err := GenerateTransactionMessageToSign(testRollupTypeHash, tx, receiver, sender, NoPrefix)
		require.NoError(t, err)
		assert.NotEqual(t, raw, other)

		tx2 := tx
		tx2.Nonce = 2
		other, err = GenerateTransactionMessageToSign(testRollupTypeHash, tx2, sender, receiver, NoPrefix)
		require.NoError(t, err)
		assert.NotEqual(t, raw, other)
	})
}
