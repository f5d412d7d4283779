package p2p

import "errors"

var (
	// ErrAuth is returned when a frame fails authentication: a MAC mismatch
	// on a header or payload, malformed header RLP, an out-of-bounds length
	// field, or a failed key agreement. Cipher and MAC state advance in
	// lockstep with the wire, so any such failure permanently
	// desynchronizes the connection and it must be discarded.
	ErrAuth = errors.New("p2p: frame authentication failure")

	// ErrCrypto signals an unexpected length or padding condition inside an
	// AES primitive. It indicates a bug in this package, not peer
	// misbehavior.
	ErrCrypto = errors.New("p2p: cipher state corrupted")

	// ErrOversizedPayload is returned by SendPacket when the payload does
	// not fit the 24-bit frame length field.
	ErrOversizedPayload = errors.New("p2p: payload size overflows frame length field")
)
