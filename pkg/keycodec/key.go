// Package keycodec implements the ordered structured-key tuple codec that
// pkg/store treats as an external collaborator: packing and unpacking
// tuples of primitive elements into byte strings whose lexicographic order
// matches tuple order, plus the NextGreater/PrefixBound machinery the
// cursor layer needs for open/closed bound and prefix-scoped iteration.
package keycodec

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the primitive type of a single tuple element. Kind byte
// values are spaced out so that the natural byte order of the Kind byte
// matches the cross-type ordering (Null < Int < Bool < Bytes < Text <
// UUID < Key), with room left between them for future kinds.
type Kind byte

const (
	KindNull  Kind = 15
	KindInt   Kind = 21
	KindBool  Kind = 30
	KindBytes Kind = 40
	KindText  Kind = 50
	KindUUID  Kind = 90
	KindKey   Kind = 95

	// kindSep never appears as the kind of an element. It separates
	// consecutive tuples when several are packed back to back (see
	// PackList) and terminates a nested Key element.
	kindSep Kind = 102
)

// Element is a single primitive value within a Key tuple.
type Element struct {
	Kind  Kind
	Int   int64
	Bool  bool
	Bytes []byte
	Text  string
	UUID  uuid.UUID
	Key   Key
}

// Null returns the null element.
func Null() Element { return Element{Kind: KindNull} }

// Int wraps a signed integer element.
func Int(v int64) Element { return Element{Kind: KindInt, Int: v} }

// Bool wraps a boolean element.
func Bool(v bool) Element { return Element{Kind: KindBool, Bool: v} }

// Bytes wraps a raw byte-string element.
func Bytes(v []byte) Element { return Element{Kind: KindBytes, Bytes: v} }

// Text wraps a UTF-8 text element.
func Text(v string) Element { return Element{Kind: KindText, Text: v} }

// UUIDElem wraps a UUID element.
func UUIDElem(v uuid.UUID) Element { return Element{Kind: KindUUID, UUID: v} }

// Nested wraps a sub-tuple, used by composite index tuples.
func Nested(k Key) Element { return Element{Kind: KindKey, Key: k} }

// Key is an ordered tuple of primitive elements. Comparison is
// lexicographic by element then by encoded bytes (see Compare).
type Key []Element

// Tuplize normalizes a bare primitive, a Key, or a []Element into a Key, per
// the data model's "a lone primitive is wrapped in a 1-tuple" rule.
func Tuplize(v any) (Key, error) {
	switch t := v.(type) {
	case Key:
		return t, nil
	case []Element:
		return Key(t), nil
	case Element:
		return Key{t}, nil
	case nil:
		return Key{Null()}, nil
	case string:
		return Key{Text(t)}, nil
	case []byte:
		return Key{Bytes(t)}, nil
	case bool:
		return Key{Bool(t)}, nil
	case uuid.UUID:
		return Key{UUIDElem(t)}, nil
	case int:
		return Key{Int(int64(t))}, nil
	case int64:
		return Key{Int(t)}, nil
	case uint64:
		if t > 1<<63-1 {
			return nil, fmt.Errorf("keycodec: uint64 %d out of signed range", t)
		}
		return Key{Int(int64(t))}, nil
	default:
		return nil, fmt.Errorf("keycodec: cannot tuplize value of type %T", v)
	}
}

// Compare returns -1, 0 or 1 comparing k to other, element-wise.
func (k Key) Compare(other Key) int {
	n := len(k)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if c := k[i].compare(other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k) < len(other):
		return -1
	case len(k) > len(other):
		return 1
	default:
		return 0
	}
}

func (e Element) compare(o Element) int {
	if e.Kind != o.Kind {
		if e.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch e.Kind {
	case KindNull:
		return 0
	case KindInt:
		switch {
		case e.Int < o.Int:
			return -1
		case e.Int > o.Int:
			return 1
		default:
			return 0
		}
	case KindBool:
		if e.Bool == o.Bool {
			return 0
		}
		if !e.Bool {
			return -1
		}
		return 1
	case KindBytes:
		return compareBytes(e.Bytes, o.Bytes)
	case KindText:
		switch {
		case e.Text < o.Text:
			return -1
		case e.Text > o.Text:
			return 1
		default:
			return 0
		}
	case KindUUID:
		return compareBytes(e.UUID[:], o.UUID[:])
	case KindKey:
		return e.Key.Compare(o.Key)
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether k's leading elements equal prefix exactly,
// element by element.
func (k Key) HasPrefix(prefix Key) bool {
	if len(k) < len(prefix) {
		return false
	}
	return Key(k[:len(prefix)]).Compare(prefix) == 0
}

func (k Key) String() string {
	return fmt.Sprintf("%v", []Element(k))
}
