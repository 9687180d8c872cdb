// Package randfix supplies random test fixtures: strings, byte slices,
// UUIDs, and whole random key tuples, for pkg/store and pkg/keycodec
// tests that want more coverage than a handful of fixed cases gives.
package randfix

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dw/acid/pkg/keycodec"
)

// String returns a random uppercase string of length n.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int(65, 90))
	}
	return string(b)
}

// Bytes returns a random byte slice of length n.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Fill fills buf with random bytes.
func Fill(buf []byte) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Read(buf) //nolint:errcheck // rand.Rand.Read never errors
}

// Int returns a random integer in [min,max).
func Int(min, max int) int {
	return min + rand.Intn(max-min)
}

// Int64 returns a random signed 64-bit integer spanning the full range,
// for exercising keycodec.Int's sign-flip packing at both ends.
func Int64() int64 {
	return int64(rand.Uint64())
}

// UUID returns a random UUID, for exercising keycodec.UUIDElem fixtures.
func UUID() uuid.UUID {
	return uuid.New()
}

// Element returns a random primitive tuple element, picked uniformly
// across every Kind except Null and Key (which random fixtures rarely
// want to generate standalone).
func Element() keycodec.Element {
	switch Int(0, 5) {
	case 0:
		return keycodec.Int(Int64())
	case 1:
		return keycodec.Bool(Int(0, 2) == 1)
	case 2:
		return keycodec.Bytes(Bytes(Int(1, 16)))
	case 3:
		return keycodec.UUIDElem(UUID())
	default:
		return keycodec.Text(String(Int(1, 16)))
	}
}

// Key returns a random n-element tuple, for fixturing composite primary
// and index keys in tests without hand-writing each element.
func Key(n int) keycodec.Key {
	k := make(keycodec.Key, n)
	for i := range k {
		k[i] = Element()
	}
	return k
}

func init() {
	//nolint:staticcheck
	rand.Seed(time.Now().UTC().UnixNano())
}
