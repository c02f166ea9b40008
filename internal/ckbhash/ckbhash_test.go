package ckbhash

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		want := common.HexToHash("0x44f4c69744d5f8c55d642062949dcae49bc4e7ef43d388c5a12f42b5633d163e")
		assert.Equal(t, want, Hash())
		assert.Equal(t, want, Hash(nil))
	})

	t.Run("concatenation", func(t *testing.T) {
		assert.Equal(t, Hash([]byte("polyjuice")), Hash([]byte("poly"), []byte("juice")))
	})

	t.Run("distinct inputs", func(t *testing.T) {
		assert.NotEqual(t, Hash([]byte{0x00}), Hash([]byte{0x01}))
	})
}
