package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestKeccak256KnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"abc", "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, tt := range tests {
		got := Keccak256([]byte(tt.in))
		want, _ := hex.DecodeString(tt.want)
		if !bytes.Equal(got, want) {
			t.Errorf("Keccak256(%q) = %x, want %s", tt.in, got, tt.want)
		}
	}
}

func TestKeccak256MultiChunk(t *testing.T) {
	// Hashing in pieces must match hashing the concatenation.
	whole := Keccak256([]byte("hello world"))
	split := Keccak256([]byte("hello"), []byte(" "), []byte("world"))
	if !bytes.Equal(whole, split) {
		t.Errorf("chunked hash %x != whole hash %x", split, whole)
	}
}

func TestNewKeccak256SumIsNonDestructive(t *testing.T) {
	d := NewKeccak256()
	d.Write([]byte("some absorbed data"))

	first := d.Sum(nil)
	second := d.Sum(nil)
	if !bytes.Equal(first, second) {
		t.Fatalf("repeated Sum gave different digests: %x vs %x", first, second)
	}

	// Writing after a Sum must behave as if Sum was never called.
	d.Write([]byte("more"))
	ref := NewKeccak256()
	ref.Write([]byte("some absorbed data"))
	ref.Write([]byte("more"))
	if !bytes.Equal(d.Sum(nil), ref.Sum(nil)) {
		t.Fatal("Sum disturbed the running digest state")
	}
}
