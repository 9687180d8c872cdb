package valuecodec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOREncoder is the default generic object encoder, the Go analogue of
// the reference implementation's pickle-backed encoder: it can round-trip
// arbitrary Go values (structs, maps, slices, primitives) without the
// caller registering a schema up front, when decoded into a target of the
// original type. Decoded into an `any` target, as Collection does, values
// come back in generic CBOR form: structs and maps as
// map[interface{}]interface{}, non-negative integers as uint64.
type CBOREncoder struct{}

func (CBOREncoder) Name() string { return "cbor" }

func (CBOREncoder) Encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (CBOREncoder) Decode(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("valuecodec: Decode out must be a non-nil pointer, got %T", out)
	}
	return cbor.Unmarshal(data, out)
}
