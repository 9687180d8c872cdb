package store

import (
	"encoding/binary"

	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/keycodec"
)

// Count implements the counter service (C5): atomically reads the current
// integer stored under name (creating it with init if absent), writes
// current+n, and returns the pre-increment value. n == 0 reads without
// mutating. Counter state is stored directly as an 8-byte big-endian
// integer in the reserved counters metadata collection -- it does not go
// through the encoder registry, since the registry's own bootstrap must
// not depend on counters being already readable.
func (s *Store) Count(name string, n, init int64, txn engine.Txn) (int64, error) {
	eng := s.engineFor(txn)
	key := s.physKey(metaCounters, keycodec.Key{keycodec.Text(name)})

	var current int64
	v, err := eng.Get(key)
	switch {
	case err == engine.ErrKeyNotFound:
		current = init
	case err != nil:
		return 0, err
	default:
		current = int64(binary.BigEndian.Uint64(v))
	}

	if n == 0 {
		return current, nil
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(current+n))
	if err := eng.Put(key, buf); err != nil {
		return 0, err
	}
	return current, nil
}
