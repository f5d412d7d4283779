package p2p

import (
	"bytes"
	"crypto/aes"
	"encoding/hex"
	"testing"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

// Reference vectors for the AES-256-ECB MAC encoder.
func TestMACEncoderVectors(t *testing.T) {
	key := unhex(t, "2212767d793a7a3d66f869ae324dd11bd17044b82c9f463b8a541a4d089efec5")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in, want string
	}{
		{"12532abaec065082a3cf1da7d0136f15", "89464c6b04e7c99e555c81d3f7266a05"},
		{"7e99f682356fdfbc6b67a9562787b18a", "85c070030589ef9c7a2879b3a8489316"},
	}
	var got [16]byte
	for _, tt := range tests {
		block.Encrypt(got[:], unhex(t, tt.in))
		if !bytes.Equal(got[:], unhex(t, tt.want)) {
			t.Errorf("ECB(%s) = %x, want %s", tt.in, got, tt.want)
		}
	}

	// The encoder is a pure keyed permutation: repeating an encryption
	// must give the same block again.
	block.Encrypt(got[:], unhex(t, tests[0].in))
	if !bytes.Equal(got[:], unhex(t, tests[0].want)) {
		t.Error("ECB encryption is not stateless across calls")
	}
}

func newTestMAC(t *testing.T) *frameMAC {
	t.Helper()
	key := unhex(t, "2212767d793a7a3d66f869ae324dd11bd17044b82c9f463b8a541a4d089efec5")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	return newFrameMAC(block)
}

func TestMACSnapshotDoesNotAdvance(t *testing.T) {
	m := newTestMAC(t)
	m.absorb([]byte("authenticated stream prefix"))

	first := m.snapshot()
	second := m.snapshot()
	if first != second {
		t.Fatalf("repeated snapshots differ: %x vs %x", first, second)
	}

	// Interleaved snapshots must not influence the evolving digest.
	plain := newTestMAC(t)
	plain.absorb([]byte("authenticated stream prefix"))
	m.snapshot()
	m.mix([]byte("0123456789abcdef"))
	plain.mix([]byte("0123456789abcdef"))
	if m.snapshot() != plain.snapshot() {
		t.Fatal("snapshot calls disturbed the digest state")
	}
}

func TestMACMixEmptySeedFoldsDigest(t *testing.T) {
	m1 := newTestMAC(t)
	m2 := newTestMAC(t)
	for _, m := range []*frameMAC{m1, m2} {
		m.absorb([]byte("shared history"))
	}

	// mix with no seed XORs the encrypted digest against the digest
	// itself, so it must equal an explicit mix with the snapshot as seed.
	prev := m2.snapshot()
	m1.mix(nil)
	m2.mix(prev[:])
	if m1.snapshot() != m2.snapshot() {
		t.Fatal("mix(nil) does not fold the digest against itself")
	}
}

func TestMACMixSeedMatters(t *testing.T) {
	m1 := newTestMAC(t)
	m2 := newTestMAC(t)
	m1.mix([]byte("aaaaaaaaaaaaaaaa"))
	m2.mix([]byte("bbbbbbbbbbbbbbbb"))
	if m1.snapshot() == m2.snapshot() {
		t.Fatal("different seeds produced identical digests")
	}
}

func TestMACAbsorbChunkingIsIrrelevant(t *testing.T) {
	m1 := newTestMAC(t)
	m2 := newTestMAC(t)
	m1.absorb([]byte("ab"))
	m1.absorb([]byte("cd"))
	m2.absorb([]byte("abcd"))
	if m1.snapshot() != m2.snapshot() {
		t.Fatal("chunked absorb differs from contiguous absorb")
	}
}
