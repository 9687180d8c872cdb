package keycodec

import (
	"encoding/binary"
	"fmt"
)

// Pack encodes k to its canonical order-preserving byte representation.
func (k Key) Pack() []byte {
	return PackList([]Key{k})
}

// PackList encodes several tuples back to back, separated by a tuple
// boundary marker after every tuple except the last. This is the format
// used both for ordinary single-record physical keys (one tuple, no
// marker at all) and for batched physical keys, whose value packs several
// logical records under one physical key (see the "batched" layout in the
// data model).
func PackList(keys []Key) []byte {
	var buf []byte
	for i, key := range keys {
		if i > 0 {
			buf = append(buf, byte(kindSep))
		}
		for _, e := range key {
			buf = append(buf, e.pack()...)
		}
	}
	return buf
}

func (e Element) pack() []byte {
	switch e.Kind {
	case KindNull:
		return []byte{byte(KindNull)}
	case KindInt:
		b := make([]byte, 9)
		b[0] = byte(KindInt)
		binary.BigEndian.PutUint64(b[1:], uint64(e.Int)^signBit)
		return b
	case KindBool:
		v := byte(0)
		if e.Bool {
			v = 1
		}
		return []byte{byte(KindBool), v}
	case KindBytes:
		return packEscaped(KindBytes, e.Bytes)
	case KindText:
		return packEscaped(KindText, []byte(e.Text))
	case KindUUID:
		b := make([]byte, 17)
		b[0] = byte(KindUUID)
		copy(b[1:], e.UUID[:])
		return b
	case KindKey:
		inner := PackList([]Key{e.Key})
		out := make([]byte, 0, len(inner)+2)
		out = append(out, byte(KindKey))
		out = append(out, inner...)
		out = append(out, byte(kindSep))
		return out
	default:
		panic(fmt.Sprintf("keycodec: unknown element kind %d", e.Kind))
	}
}

// signBit biases signed 64-bit integers into an unsigned space whose
// natural ordering matches signed ordering, so a fixed-width big-endian
// encoding sorts correctly regardless of sign.
const signBit = uint64(1) << 63

// packEscaped appends kind, then raw with every 0x00 byte escaped to
// 0x00 0xFF, terminated by an unescaped 0x00 0x00. This keeps the
// encoding prefix-free: no encoded string is a byte-prefix of another
// unless the tuples themselves are a prefix of one another.
func packEscaped(kind Kind, raw []byte) []byte {
	out := make([]byte, 0, len(raw)+3)
	out = append(out, byte(kind))
	for _, b := range raw {
		if b == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// UnpackList is the inverse of PackList: it decodes as many tuples as are
// present in buf, delimited as PackList produces them.
func UnpackList(buf []byte) ([]Key, error) {
	var out []Key
	var cur Key
	pos := 0
	for pos < len(buf) {
		if Kind(buf[pos]) == kindSep {
			out = append(out, cur)
			cur = nil
			pos++
			continue
		}
		e, n, err := unpackElement(buf[pos:])
		if err != nil {
			return nil, err
		}
		cur = append(cur, e)
		pos += n
	}
	out = append(out, cur)
	return out, nil
}

// Unpack decodes a single tuple, the inverse of Key.Pack.
func Unpack(buf []byte) (Key, error) {
	keys, err := UnpackList(buf)
	if err != nil {
		return nil, err
	}
	if len(keys) != 1 {
		return nil, fmt.Errorf("keycodec: Unpack: expected exactly one tuple, got %d", len(keys))
	}
	return keys[0], nil
}

// UnpackPrefixed strips nsPrefix from physKey and decodes the remainder as
// a list of tuples. ok is false if physKey does not carry nsPrefix as a
// byte prefix -- the end-of-collection signal a scan uses to know it has
// walked past its own namespace.
func UnpackPrefixed(nsPrefix, physKey []byte) (keys []Key, ok bool) {
	if len(physKey) < len(nsPrefix) {
		return nil, false
	}
	for i, b := range nsPrefix {
		if physKey[i] != b {
			return nil, false
		}
	}
	keys, err := UnpackList(physKey[len(nsPrefix):])
	if err != nil {
		return nil, false
	}
	return keys, true
}

func unpackElement(buf []byte) (Element, int, error) {
	if len(buf) == 0 {
		return Element{}, 0, fmt.Errorf("keycodec: unexpected end of buffer")
	}
	kind := Kind(buf[0])
	switch kind {
	case KindNull:
		return Null(), 1, nil
	case KindInt:
		if len(buf) < 9 {
			return Element{}, 0, fmt.Errorf("keycodec: truncated int element")
		}
		biased := binary.BigEndian.Uint64(buf[1:9])
		return Int(int64(biased ^ signBit)), 9, nil
	case KindBool:
		if len(buf) < 2 {
			return Element{}, 0, fmt.Errorf("keycodec: truncated bool element")
		}
		return Bool(buf[1] != 0), 2, nil
	case KindBytes, KindText:
		raw, n, err := unescapeUntilTerminator(buf[1:])
		if err != nil {
			return Element{}, 0, err
		}
		if kind == KindBytes {
			return Bytes(raw), n + 1, nil
		}
		return Text(string(raw)), n + 1, nil
	case KindUUID:
		if len(buf) < 17 {
			return Element{}, 0, fmt.Errorf("keycodec: truncated uuid element")
		}
		var u [16]byte
		copy(u[:], buf[1:17])
		return UUIDElem(u), 17, nil
	case KindKey:
		inner, n, err := scanNestedKey(buf[1:])
		if err != nil {
			return Element{}, 0, err
		}
		keys, err := UnpackList(inner)
		if err != nil {
			return Element{}, 0, err
		}
		if len(keys) != 1 {
			return Element{}, 0, fmt.Errorf("keycodec: malformed nested key")
		}
		return Nested(keys[0]), n + 1, nil
	default:
		return Element{}, 0, fmt.Errorf("keycodec: unknown kind byte %d", buf[0])
	}
}

// unescapeUntilTerminator reverses packEscaped's escaping, stopping at the
// first unescaped 0x00 0x00 terminator. It returns the unescaped payload
// and the number of input bytes consumed, including the terminator.
func unescapeUntilTerminator(buf []byte) ([]byte, int, error) {
	var out []byte
	i := 0
	for i < len(buf) {
		if buf[i] == 0x00 {
			if i+1 >= len(buf) {
				return nil, 0, fmt.Errorf("keycodec: truncated escape sequence")
			}
			switch buf[i+1] {
			case 0x00:
				return out, i + 2, nil
			case 0xFF:
				out = append(out, 0x00)
				i += 2
				continue
			default:
				return nil, 0, fmt.Errorf("keycodec: invalid escape byte %#x", buf[i+1])
			}
		}
		out = append(out, buf[i])
		i++
	}
	return nil, 0, fmt.Errorf("keycodec: missing terminator")
}

// scanNestedKey finds the kindSep byte that closes a nested Key element
// (see Element.pack for KindKey), accounting for further nesting.
func scanNestedKey(buf []byte) (inner []byte, consumed int, err error) {
	depth := 0
	pos := 0
	for pos < len(buf) {
		switch Kind(buf[pos]) {
		case kindSep:
			if depth == 0 {
				return buf[:pos], pos + 1, nil
			}
			depth--
			pos++
		case KindKey:
			depth++
			pos++
		case KindNull:
			pos++
		case KindInt:
			pos += 9
		case KindBool:
			pos += 2
		case KindBytes, KindText:
			_, n, e := unescapeUntilTerminator(buf[pos+1:])
			if e != nil {
				return nil, 0, e
			}
			pos += 1 + n
		case KindUUID:
			pos += 17
		default:
			return nil, 0, fmt.Errorf("keycodec: unknown kind byte %d while scanning nested key", buf[pos])
		}
	}
	return nil, 0, fmt.Errorf("keycodec: unterminated nested key")
}
