// Package ckbhash computes the blake2b-256 digest used by CKB-based chains to
// identify scripts and sign transactions.
package ckbhash

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/blake2b-simd"
)

// Personalization is the blake2b personal string fixed by CKB.
const Personalization = "ckb-default-hash"

var config = &blake2b.Config{
	Size:   common.HashLength,
	Person: []byte(Personalization),
}

// Hash returns the digest of the concatenation of data.
func Hash(data ...[]byte) common.Hash {
	h, err := blake2b.New(config)
	if err != nil {
		// Only reachable with an invalid static config.
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	return common.BytesToHash(h.Sum(nil))
}
