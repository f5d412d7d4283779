package p2p

import (
	"fmt"

	"github.com/remyroy/parity/crypto"
)

// Handshake is the completed key-exchange record consumed when building an
// encrypted connection. The framing layer treats every field as opaque
// keying material: the auth/ack ciphertexts are the exact bytes exchanged
// on the wire and are only ever fed into the MAC engines.
type Handshake struct {
	// EcdheSecret is the local ephemeral secp256k1 private scalar.
	EcdheSecret [crypto.SecretLength]byte

	// RemotePublic is the peer's ephemeral public key, uncompressed,
	// without the 0x04 format prefix.
	RemotePublic [crypto.PublicLength]byte

	// Nonce and RemoteNonce are the handshake nonces, local and remote.
	Nonce       [32]byte
	RemoteNonce [32]byte

	// AuthCipher and AckCipher are the handshake auth and ack messages
	// exactly as transmitted on the wire.
	AuthCipher []byte
	AckCipher  []byte

	// Originated is true iff the local side dialed the peer. It determines
	// the asymmetric nonce ordering during key derivation and which
	// handshake ciphertext seeds which MAC direction.
	Originated bool

	// Connection is the established byte pipe the handshake ran on.
	Connection *Connection
}

// NewHandshake assembles a handshake record from raw slices, validating the
// fixed-length fields.
func NewHandshake(secret, remotePublic, nonce, remoteNonce []byte) (*Handshake, error) {
	h := new(Handshake)
	if len(secret) != len(h.EcdheSecret) {
		return nil, fmt.Errorf("p2p: ecdhe secret must be %d bytes, got %d", len(h.EcdheSecret), len(secret))
	}
	if len(remotePublic) != len(h.RemotePublic) {
		return nil, fmt.Errorf("p2p: remote public must be %d bytes, got %d", len(h.RemotePublic), len(remotePublic))
	}
	if len(nonce) != len(h.Nonce) || len(remoteNonce) != len(h.RemoteNonce) {
		return nil, fmt.Errorf("p2p: handshake nonces must be %d bytes", len(h.Nonce))
	}
	copy(h.EcdheSecret[:], secret)
	copy(h.RemotePublic[:], remotePublic)
	copy(h.Nonce[:], nonce)
	copy(h.RemoteNonce[:], remoteNonce)
	return h, nil
}
