package keycodec

import "encoding/binary"

// AppendUvarint and ReadUvarint expose the unsigned varint encoding used for the
// namespace prefix's collection/index index and for the batch value's
// record-count and length-delta fields. There is no ecosystem library in
// this repo's reference corpus that supplies a different varint scheme
// worth preferring, so this wraps the standard library's own
// binary.{Put,}Uvarint, which is the idiomatic choice here.

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// ReadUvarint reads a varint from the start of buf, returning the value and
// the number of bytes consumed. As with binary.Uvarint, the count is 0 if
// buf is too short and negative if the value overflows 64 bits.
func ReadUvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}
