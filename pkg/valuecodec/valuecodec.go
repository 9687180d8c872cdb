// Package valuecodec supplies the two kinds of byte transform a
// collection applies to a logical record value before it reaches the
// engine: an Encoder turns a Go value into bytes and back (and its name
// is recorded in the store's encoder registry so later opens can find it
// again), while a
// Packer additionally compresses or otherwise transforms already-encoded
// bytes, independent of what produced them.
package valuecodec

// Encoder turns a Go value into bytes and reconstructs it.
type Encoder interface {
	// Name is the stable identifier persisted in the store's encoder
	// registry (component C3), mapping a short int prefix to this
	// encoder across restarts.
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// Packer transforms already-encoded bytes, e.g. for compression.
type Packer interface {
	Name() string
	Pack(data []byte) ([]byte, error)
	Unpack(data []byte) ([]byte, error)
}
