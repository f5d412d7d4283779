package p2p

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/remyroy/parity/crypto"
)

const (
	// encryptedHeaderSize is the wire size of a frame header: 16 bytes of
	// AES-CTR ciphertext followed by a 16 byte MAC tag.
	encryptedHeaderSize = 32

	// frameMACSize is the size of the truncated Keccak MAC tag closing
	// every header and payload frame.
	frameMACSize = 16

	// maxPayloadSize bounds the decoded 24-bit header length field before
	// any buffer is sized from it.
	maxPayloadSize = 16 * 1024 * 1024

	// defaultIdleTimeout is the watchdog armed on every register and
	// cleared on every I/O event. It bounds how long a registration may sit
	// without producing an event; it is not a session lifetime.
	defaultIdleTimeout = 1800 * time.Millisecond
)

// headerData is the RLP header-data sent with every frame: the two-element
// list [0, 0], zero capability and context id.
var headerData = []byte{0xc2, 0x80, 0x80}

var zero16 [16]byte

// Packet is a decoded transport message: the protocol identifier carried in
// the frame header and the cleartext payload.
type Packet struct {
	Protocol uint16
	Data     []byte
}

// readState tracks which part of a frame the connection expects next.
type readState int

const (
	readingHeader readState = iota
	readingPayload
)

// EncryptedConnection implements the framed encrypted channel on top of a
// byte pipe: AES-256-CTR for confidentiality with one continuous keystream
// per direction, and a rolling Keccak-256 MAC over the ciphertext. It is
// built by consuming a completed handshake and must be discarded whenever
// any read, write or authentication step fails.
type EncryptedConnection struct {
	conn *Connection

	enc cipher.Stream // egress keystream
	dec cipher.Stream // ingress keystream

	egressMAC  *frameMAC
	ingressMAC *frameMAC

	readState  readState
	protocolID uint16 // protocol id of the header being processed
	payloadLen int    // payload length promised by that header

	// IdleTimeout is the watchdog duration armed by Register. The host
	// tears the connection down when it fires.
	IdleTimeout time.Duration

	idleTimeout Timeout
	idleArmed   bool
}

// NewEncryptedConnection derives the session keys from a completed
// handshake and takes ownership of its byte pipe. Key derivation follows
// the devp2p scheme: the ECDH shared secret and the two handshake nonces
// are folded through a Keccak-256 ladder into the AES key and the MAC key,
// and the MAC states are seeded with the nonces and the handshake
// ciphertexts.
func NewEncryptedConnection(h *Handshake) (*EncryptedConnection, error) {
	shared, err := crypto.Agree(h.EcdheSecret[:], h.RemotePublic[:])
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement: %v", ErrAuth, err)
	}

	// The dialer hashes remote nonce first, the listener its own first, so
	// both ends assemble the same 64 bytes.
	var nonceMaterial [64]byte
	if h.Originated {
		copy(nonceMaterial[:32], h.RemoteNonce[:])
		copy(nonceMaterial[32:], h.Nonce[:])
	} else {
		copy(nonceMaterial[:32], h.Nonce[:])
		copy(nonceMaterial[32:], h.RemoteNonce[:])
	}

	// key material ladder: the upper half is replaced by successive
	// Keccak-256 passes over the whole buffer, yielding first the AES key
	// and then the MAC key.
	keyMaterial := make([]byte, 64)
	copy(keyMaterial[:32], shared)
	copy(keyMaterial[32:], crypto.Keccak256(nonceMaterial[:]))
	copy(keyMaterial[32:], crypto.Keccak256(keyMaterial))
	aesKey := append([]byte(nil), keyMaterial[32:]...)
	copy(keyMaterial[32:], crypto.Keccak256(keyMaterial))
	macKey := keyMaterial[32:]

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	macBlock, err := aes.NewCipher(macKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	// The AES key is ephemeral, so an all-zero IV is safe. Each direction
	// runs its own continuous keystream for the connection lifetime.
	egressMAC := newFrameMAC(macBlock)
	ingressMAC := newFrameMAC(macBlock)

	var seed [32]byte
	for i := range seed {
		seed[i] = macKey[i] ^ h.RemoteNonce[i]
	}
	egressMAC.absorb(seed[:])
	if h.Originated {
		egressMAC.absorb(h.AuthCipher)
	} else {
		egressMAC.absorb(h.AckCipher)
	}

	for i := range seed {
		seed[i] = macKey[i] ^ h.Nonce[i]
	}
	ingressMAC.absorb(seed[:])
	if h.Originated {
		ingressMAC.absorb(h.AckCipher)
	} else {
		ingressMAC.absorb(h.AuthCipher)
	}

	return &EncryptedConnection{
		conn:        h.Connection,
		enc:         cipher.NewCTR(block, zero16[:]),
		dec:         cipher.NewCTR(block, zero16[:]),
		egressMAC:   egressMAC,
		ingressMAC:  ingressMAC,
		readState:   readingHeader,
		IdleTimeout: defaultIdleTimeout,
	}, nil
}

// SendPacket frames, encrypts and authenticates a payload and queues the
// resulting bytes on the pipe. The frame is a 16 byte encrypted header with
// its MAC tag, the encrypted payload zero-padded to a 16 byte boundary, and
// the closing payload MAC tag.
func (ec *EncryptedConnection) SendPacket(payload []byte) error {
	length := len(payload)
	if length >= 1<<24 {
		return fmt.Errorf("%w: %d bytes", ErrOversizedPayload, length)
	}
	header := make([]byte, 16)
	header[0] = byte(length >> 16)
	header[1] = byte(length >> 8)
	header[2] = byte(length)
	copy(header[3:6], headerData)

	pad := (16 - length%16) % 16
	packet := make([]byte, encryptedHeaderSize+length+pad+frameMACSize)

	ec.enc.XORKeyStream(packet[:16], header)
	ec.egressMAC.mix(packet[:16])
	tag := ec.egressMAC.snapshot()
	copy(packet[16:32], tag[:])

	ec.enc.XORKeyStream(packet[32:32+length], payload)
	if pad > 0 {
		// Padding runs through the keystream too; the receiver consumes
		// the same amount to stay in sync.
		ec.enc.XORKeyStream(packet[32+length:32+length+pad], zero16[:pad])
	}
	ec.egressMAC.absorb(packet[32 : 32+length+pad])
	ec.egressMAC.mix(nil)
	tag = ec.egressMAC.snapshot()
	copy(packet[32+length+pad:], tag[:])

	ec.conn.Send(packet)
	framesOutCounter.Inc()
	payloadSizeHistogram.Observe(float64(length))
	return nil
}

// readHeader authenticates and decrypts an incoming frame header and
// prepares the pipe for the payload frame it announces.
func (ec *EncryptedConnection) readHeader(header []byte) error {
	if len(header) != encryptedHeaderSize {
		return fmt.Errorf("%w: short header", ErrAuth)
	}
	ec.ingressMAC.mix(header[:16])
	tag := ec.ingressMAC.snapshot()
	if !hmac.Equal(tag[:], header[16:32]) {
		macFailureCounter.Inc()
		return fmt.Errorf("%w: bad header MAC", ErrAuth)
	}

	plain := make([]byte, 16)
	ec.dec.XORKeyStream(plain, header[:16])

	length := int(plain[0])<<16 | int(plain[1])<<8 | int(plain[2])
	if length > maxPayloadSize {
		return fmt.Errorf("%w: payload length %d exceeds limit", ErrAuth, length)
	}
	protocol, err := parseHeaderData(plain[3:6])
	if err != nil {
		return fmt.Errorf("%w: invalid header rlp: %v", ErrAuth, err)
	}

	ec.payloadLen = length
	ec.protocolID = protocol
	ec.readState = readingPayload

	pad := (16 - length%16) % 16
	ec.conn.Expect(length + pad + frameMACSize)
	return nil
}

// readPayload authenticates and decrypts a payload frame, yielding the
// decoded packet.
func (ec *EncryptedConnection) readPayload(payload []byte) (*Packet, error) {
	pad := (16 - ec.payloadLen%16) % 16
	if len(payload) != ec.payloadLen+pad+frameMACSize {
		return nil, fmt.Errorf("%w: truncated payload frame", ErrAuth)
	}
	body := payload[:ec.payloadLen+pad]
	ec.ingressMAC.absorb(body)
	ec.ingressMAC.mix(nil)
	tag := ec.ingressMAC.snapshot()
	if !hmac.Equal(tag[:], payload[len(payload)-frameMACSize:]) {
		macFailureCounter.Inc()
		return nil, fmt.Errorf("%w: bad payload MAC", ErrAuth)
	}

	data := make([]byte, ec.payloadLen)
	ec.dec.XORKeyStream(data, payload[:ec.payloadLen])
	if pad > 0 {
		// Discarded, but the keystream must advance past the padding.
		var scratch [16]byte
		ec.dec.XORKeyStream(scratch[:pad], payload[ec.payloadLen:ec.payloadLen+pad])
	}

	framesInCounter.Inc()
	return &Packet{Protocol: ec.protocolID, Data: data}, nil
}

// parseHeaderData extracts the protocol id from the header-data RLP, a list
// whose first element is the capability id.
func parseHeaderData(b []byte) (uint16, error) {
	s := rlp.NewStream(bytes.NewReader(b), uint64(len(b)))
	if _, err := s.List(); err != nil {
		return 0, err
	}
	return s.Uint16()
}

// Readable handles a read-readiness event. It advances the receive state
// machine by at most one frame: consuming a header prepares the payload
// cycle and returns nil; consuming a payload returns the decoded packet.
// The host drains readiness by calling Readable until the pipe stops
// producing complete units.
func (ec *EncryptedConnection) Readable(loop EventLoop) (*Packet, error) {
	ec.clearIdleTimeout(loop)
	switch ec.readState {
	case readingHeader:
		data, err := ec.conn.Readable()
		if err != nil || data == nil {
			return nil, err
		}
		return nil, ec.readHeader(data)
	case readingPayload:
		data, err := ec.conn.Readable()
		if err != nil || data == nil {
			return nil, err
		}
		ec.readState = readingHeader
		ec.conn.Expect(encryptedHeaderSize)
		return ec.readPayload(data)
	}
	panic("p2p: invalid read state")
}

// Writable handles a write-readiness event, draining the send queue.
func (ec *EncryptedConnection) Writable(loop EventLoop) error {
	ec.clearIdleTimeout(loop)
	_, err := ec.conn.Writable()
	return err
}

// Register begins a header receive cycle, arms the idle watchdog and
// re-arms the pipe's event loop registration.
func (ec *EncryptedConnection) Register(loop EventLoop) error {
	ec.conn.Expect(encryptedHeaderSize)
	ec.clearIdleTimeout(loop)
	if t, err := loop.ScheduleTimeout(ec.conn.Token(), ec.IdleTimeout); err == nil {
		ec.idleTimeout = t
		ec.idleArmed = true
	}
	return ec.conn.Reregister(loop)
}

// Reregister re-arms the pipe's event loop registration. Called at the end
// of every host event handler.
func (ec *EncryptedConnection) Reregister(loop EventLoop) error {
	return ec.conn.Reregister(loop)
}

func (ec *EncryptedConnection) clearIdleTimeout(loop EventLoop) {
	if ec.idleArmed {
		loop.ClearTimeout(ec.idleTimeout)
		ec.idleArmed = false
	}
}
