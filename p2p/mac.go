package p2p

import (
	"crypto/cipher"
	"hash"

	"github.com/remyroy/parity/crypto"
)

// frameMAC is the rolling authentication state for one direction of an
// encrypted connection: a Keccak-256 sponge combined with an AES-256-ECB
// "MAC encoder" keyed with the session MAC key. Header bytes are mixed
// through the encoder; bulk frame ciphertext is absorbed directly.
type frameMAC struct {
	digest  hash.Hash    // Keccak-256; Sum works on a copy of the state
	encoder cipher.Block // one-block AES-256 permutation, shared per connection
}

func newFrameMAC(encoder cipher.Block) *frameMAC {
	return &frameMAC{digest: crypto.NewKeccak256(), encoder: encoder}
}

// absorb feeds data into the sponge without any encoder mixing. Used to
// seed the initial state and for bulk frame ciphertext.
func (m *frameMAC) absorb(data []byte) {
	m.digest.Write(data)
}

// snapshot returns the first 16 bytes of the current digest without
// advancing the sponge.
func (m *frameMAC) snapshot() [16]byte {
	var tag [16]byte
	copy(tag[:], m.digest.Sum(nil))
	return tag
}

// mix folds seed into the sponge through the MAC encoder: the current
// digest is encrypted under the MAC key and XORed against the seed before
// being absorbed. An empty seed folds the digest against itself, which is
// how payload MACs are finalized.
func (m *frameMAC) mix(seed []byte) {
	prev := m.snapshot()
	var enc [16]byte
	m.encoder.Encrypt(enc[:], prev[:])
	if len(seed) > 0 {
		for i := range seed {
			enc[i] ^= seed[i]
		}
	} else {
		for i := range enc {
			enc[i] ^= prev[i]
		}
	}
	m.digest.Write(enc[:])
}
