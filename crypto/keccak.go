// Package crypto provides the primitives the transport layer is built on:
// Keccak-256 digests and secp256k1 Diffie-Hellman key agreement.
package crypto

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// NewKeccak256 returns a fresh Keccak-256 digest. The returned hash computes
// Sum over a copy of its internal state, so a running digest can be
// snapshotted at any point without disturbing it.
func NewKeccak256() hash.Hash {
	return sha3.NewLegacyKeccak256()
}
