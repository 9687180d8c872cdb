package store

import (
	"testing"

	"github.com/dw/acid/pkg/valuecodec"
)

type fakeCodec struct{ name string }

func (f fakeCodec) Name() string                       { return f.name }
func (f fakeCodec) Encode(v any) ([]byte, error)        { return valuecodec.CBOREncoder{}.Encode(v) }
func (f fakeCodec) Decode(d []byte, out any) error      { return valuecodec.CBOREncoder{}.Decode(d, out) }

func TestRegistryAddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	b1, err := s.reg.add(fakeCodec{name: "widget-codec"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b2, err := s.reg.add(fakeCodec{name: "widget-codec"})
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if b1 != b2 {
		t.Fatalf("expected idempotent prefix assignment, got %d then %d", b1, b2)
	}
}

func TestRegistryLookupUnknownPrefix(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.reg.lookupEncoder(239); err == nil {
		t.Fatalf("expected an error looking up an unregistered prefix")
	} else if _, ok := err.(*UnknownEncoderError); !ok {
		t.Fatalf("expected *UnknownEncoderError, got %T", err)
	}
}

func TestRegistryOutOfRange(t *testing.T) {
	s := newTestStore(t)
	s.reg.next = encoderPrefixMax + 1
	if _, err := s.reg.add(fakeCodec{name: "overflow"}); err == nil {
		t.Fatalf("expected an out-of-range error")
	} else if _, ok := err.(*AssignmentOutOfRangeError); !ok {
		t.Fatalf("expected *AssignmentOutOfRangeError, got %T", err)
	}
}
