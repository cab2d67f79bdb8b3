package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// Distinct seeds keep the event and seat substreams independent, so that
// ("AB","C") and ("A","BC") never collide structurally.
var (
	eventSeed = []byte{0x12, 0x34, 0x56, 0x78, 0x90, 0xab, 0xcd, 0xef}
	seatSeed  = []byte{0x0f, 0xed, 0xcb, 0xa9, 0x87, 0x65, 0x43, 0x21}
)

// KeyHash mixes the composite (eventID, seatID) key into a 64-bit value.
// Each id feeds its own substream; the two are combined with a
// xor-plus-rotate step.  Callers rely only on uniformity modulo the seat
// map capacity.
func KeyHash(eventID, seatID string) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.Write(eventSeed)
	_, _ = d.WriteString(eventID)
	h1 := d.Sum64()

	d.Reset()
	_, _ = d.Write(seatSeed)
	_, _ = d.WriteString(seatID)
	h2 := d.Sum64()

	return h1 ^ (h2 + 0x9e3779b97f4a7c15 + bits.RotateLeft64(h1, 6) + h1>>2)
}

// RandomToken returns n cryptographically random bytes.  Tokens are opaque:
// they carry no structure, checksum or seat-derivable content.
func RandomToken(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// TokenEqual compares two hold tokens in constant time.
func TokenEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
