// ecdh.go implements the secp256k1 Diffie-Hellman agreement that turns the
// ephemeral keys exchanged during handshake into transport session keys.
package crypto

import (
	"crypto/rand"
	"errors"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// SecretLength is the byte length of a secp256k1 private scalar.
	SecretLength = 32

	// PublicLength is the byte length of an uncompressed secp256k1 public
	// key without the 0x04 format prefix, as carried in handshake messages.
	PublicLength = 64
)

var (
	// ErrInvalidSecret is returned for a private scalar that is not exactly
	// SecretLength bytes long or that is zero.
	ErrInvalidSecret = errors.New("crypto: invalid ecdh secret")

	// ErrInvalidPublic is returned for a public key that does not name a
	// point on the curve.
	ErrInvalidPublic = errors.New("crypto: invalid ecdh public key")
)

// Agree computes the secp256k1 Diffie-Hellman shared secret between a local
// private scalar and a remote public key. It returns the 32-byte big-endian
// x coordinate of the shared point (RFC 5903 section 9 form).
func Agree(secret, remotePublic []byte) ([]byte, error) {
	if len(secret) != SecretLength {
		return nil, ErrInvalidSecret
	}
	if len(remotePublic) != PublicLength {
		return nil, ErrInvalidPublic
	}
	priv := secp256k1.PrivKeyFromBytes(secret)
	if priv.Key.IsZero() {
		return nil, ErrInvalidSecret
	}
	// ParsePubKey wants the 0x04 uncompressed format prefix that handshake
	// messages strip.
	buf := make([]byte, 1+PublicLength)
	buf[0] = 0x04
	copy(buf[1:], remotePublic)
	pub, err := secp256k1.ParsePubKey(buf)
	if err != nil {
		return nil, ErrInvalidPublic
	}
	return secp256k1.GenerateSharedSecret(priv, pub), nil
}

// GenerateEphemeralKey creates a random secp256k1 key pair in the raw forms
// used by the handshake: a 32-byte scalar and a 64-byte unprefixed public
// key.
func GenerateEphemeralKey() (secret [SecretLength]byte, public [PublicLength]byte, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return secret, public, err
	}
	copy(secret[:], priv.Serialize())
	uncompressed := priv.PubKey().SerializeUncompressed()
	copy(public[:], uncompressed[1:])
	return secret, public, nil
}

// ReadNonce fills a 32-byte handshake nonce from the system entropy source.
func ReadNonce() ([32]byte, error) {
	var nonce [32]byte
	_, err := rand.Read(nonce[:])
	return nonce, err
}
