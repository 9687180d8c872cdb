package valuecodec

import (
	"fmt"

	"github.com/dw/acid/pkg/keycodec"
)

// KeyEncoder encodes a value as a packed tuple key, for collections whose
// "value" is itself structured data worth storing in key-sortable form
// (e.g. a denormalized copy held purely for its ordering).
type KeyEncoder struct{}

func (KeyEncoder) Name() string { return "key" }

func (KeyEncoder) Encode(v any) ([]byte, error) {
	k, err := keycodec.Tuplize(v)
	if err != nil {
		return nil, err
	}
	return k.Pack(), nil
}

func (KeyEncoder) Decode(data []byte, out any) error {
	k, err := keycodec.Unpack(data)
	if err != nil {
		return err
	}
	ptr, ok := out.(*keycodec.Key)
	if !ok {
		return fmt.Errorf("valuecodec: KeyEncoder.Decode requires *keycodec.Key, got %T", out)
	}
	*ptr = k
	return nil
}
