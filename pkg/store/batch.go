package store

import (
	"reflect"

	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/keycodec"
)

// decodePhysical decodes one physical (key, value) pair into its logical
// members, in forward logical key order. N is taken from the physical
// key's tuple count (via UnpackPrefixed), never guessed from the value:
// N==1 uses the single-record value layout, N>1 the batched layout whose
// length prefixes are deltas suitable for prefix-sum decoding.
func (c *Collection) decodePhysical(physKeyBytes, physVal []byte) (keysFwd []keycodec.Key, values []any, err error) {
	keysPhys, ok := keycodec.UnpackPrefixed(c.prefix, physKeyBytes)
	if !ok {
		return nil, nil, nil
	}
	n := len(keysPhys)
	if n == 1 {
		v, err := c.decodeSingle(physVal)
		if err != nil {
			return nil, nil, err
		}
		return keysPhys, []any{v}, nil
	}

	// Batched physical keys store logical keys in reverse order.
	keysFwd = make([]keycodec.Key, n)
	for i, k := range keysPhys {
		keysFwd[n-1-i] = k
	}

	buf := physVal
	nn, used := keycodec.ReadUvarint(buf)
	buf = buf[used:]
	lens := make([]int, nn)
	for i := range lens {
		l, u := keycodec.ReadUvarint(buf)
		buf = buf[u:]
		lens[i] = int(l)
	}
	if len(buf) == 0 {
		return nil, nil, &InvalidConfigurationError{Msg: "truncated batch physical value"}
	}
	packer, err := c.store.GetPacker(buf[0])
	if err != nil {
		return nil, nil, err
	}
	raw, err := packer.Unpack(buf[1:])
	if err != nil {
		return nil, nil, err
	}

	offsets := make([]int, nn+1)
	for i := 0; i < int(nn); i++ {
		offsets[i+1] = offsets[i] + lens[i]
	}
	values = make([]any, nn)
	for i := 0; i < int(nn); i++ {
		var v any
		if err := c.encoder.Decode(raw[offsets[i]:offsets[i+1]], &v); err != nil {
			return nil, nil, err
		}
		values[i] = v
	}
	return keysFwd, values, nil
}

// encodeBatch produces the batched physical value for values (in forward
// logical order): varint(N) ‖ varint(len0) ‖ … ‖ varint(len_{N-1}) ‖
// packer_prefix_byte ‖ packer.Pack(concat of per-value encoded bytes).
func (c *Collection) encodeBatch(values []any) ([]byte, error) {
	encoded := make([][]byte, len(values))
	total := 0
	for i, v := range values {
		b, err := c.encoder.Encode(v)
		if err != nil {
			return nil, err
		}
		encoded[i] = b
		total += len(b)
	}

	buf := keycodec.AppendUvarint(nil, uint64(len(values)))
	for _, b := range encoded {
		buf = keycodec.AppendUvarint(buf, uint64(len(b)))
	}
	concat := make([]byte, 0, total)
	for _, b := range encoded {
		concat = append(concat, b...)
	}
	packed, err := c.packer.Pack(concat)
	if err != nil {
		return nil, err
	}
	buf = append(buf, c.packerByte)
	buf = append(buf, packed...)
	return buf, nil
}

// batchPhysKey packs a physical key for a batch whose members are
// keysFwd, in forward logical order -- the physical key itself is built
// from their reverse.
func (c *Collection) batchPhysKey(keysFwd []keycodec.Key) []byte {
	rev := make([]keycodec.Key, len(keysFwd))
	for i, k := range keysFwd {
		rev[len(keysFwd)-1-i] = k
	}
	return append(c.store.physPrefix(c.idx), keycodec.PackList(rev)...)
}

// locate finds the physical entry (single or batched) that contains
// logical key k, by seeking forward to the packed bytes of k alone: a
// batch's physical key always sorts at the position of its *largest*
// member (reverse-ordered tuples put the max member's bytes first), so
// seeking to any member's bare packed bytes lands on the entry that
// contains it, whether that entry is a standalone record or a batch.
func (c *Collection) locate(eng engine.Engine, k keycodec.Key) (physKeyBytes []byte, keysFwd []keycodec.Key, values []any, found bool, err error) {
	it := eng.Iterate(c.physKey(k), false)
	defer it.Close()
	if !it.Next() {
		return nil, nil, nil, false, nil
	}
	pk := append([]byte{}, it.Key()...)
	pv := append([]byte{}, it.Value()...)

	keysFwd, values, err = c.decodePhysical(pk, pv)
	if err != nil {
		return nil, nil, nil, false, err
	}
	if keysFwd == nil {
		return nil, nil, nil, false, nil
	}
	for _, fk := range keysFwd {
		if fk.Compare(k) == 0 {
			return pk, keysFwd, values, true, nil
		}
	}
	return nil, nil, nil, false, nil
}

// explodeBatchAt re-inserts every member of the batch containing key,
// except skip, as an individual physical record, then deletes the
// batch's own physical key. Index entries are untouched: they reference
// primary key tuples and stay valid regardless of a record's physical
// layout. If key does not currently live in a batch, this is a no-op.
func (c *Collection) explodeBatchAt(txn engine.Txn, key, skip keycodec.Key) error {
	eng := c.store.engineFor(txn)
	physKeyBytes, keysFwd, values, found, err := c.locate(eng, key)
	if err != nil || !found || len(keysFwd) <= 1 {
		return err
	}
	for i, fk := range keysFwd {
		if fk.Compare(skip) == 0 {
			continue
		}
		physVal, err := c.encodeSingle(values[i])
		if err != nil {
			return err
		}
		if err := eng.Put(c.physKey(fk), physVal); err != nil {
			return err
		}
	}
	if err := eng.Delete(physKeyBytes); err != nil {
		return err
	}
	c.store.mtr.batchExplodes.WithLabelValues(c.name).Inc()
	return nil
}

// BatchOptions configures Collection.Batch.
type BatchOptions struct {
	Lo, Hi any // logical key bounds, inclusive; nil means unbounded

	MaxRecs  int // flush the in-progress group once it reaches this many records; 0 = no cap
	MaxBytes int // flush before the tentative encoded group would exceed this size; 0 = no cap

	// Grouper, if set, is called with each record's value; the group is
	// flushed whenever its result changes from the previous record's.
	Grouper func(value any) (any, error)

	// Preserve, when true, flushes the in-progress group and leaves any
	// already-batched physical record encountered untouched, rather than
	// folding its members into new groups.
	Preserve bool

	// MaxPhys caps the number of physical records visited, independent
	// of how many logical records that represents; 0 = unlimited.
	MaxPhys int

	Txn engine.Txn
}

// Batch implements the C6 batch-packing operation (§4.3): it walks
// [Lo, Hi] in logical key order, grouping consecutive single-record
// physical entries into batched physical records under the MaxRecs /
// MaxBytes / Grouper policy, and returns how many logical records were
// consumed, how many physical batch records were written, and the last
// key visited (so the caller may resume a bounded run).
func (c *Collection) Batch(opts BatchOptions) (consumed, batchesWritten int, lastKey keycodec.Key, err error) {
	if opts.MaxRecs <= 0 && opts.MaxBytes <= 0 {
		return 0, 0, nil, &InvalidConfigurationError{Msg: "Batch requires MaxRecs and/or MaxBytes"}
	}

	eng := c.store.engineFor(opts.Txn)
	var start []byte
	if opts.Lo != nil {
		loKey, err := keycodec.Tuplize(opts.Lo)
		if err != nil {
			return 0, 0, nil, err
		}
		start = c.physKey(loKey)
	} else {
		start = c.store.physPrefix(c.idx)
	}

	var hiKey keycodec.Key
	if opts.Hi != nil {
		hiKey, err = keycodec.Tuplize(opts.Hi)
		if err != nil {
			return 0, 0, nil, err
		}
	}

	it := eng.Iterate(start, false)
	defer it.Close()

	var group []any
	var groupKeys []keycodec.Key
	var haveGroupTag bool
	var groupTag any

	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		if len(group) == 1 {
			physVal, err := c.encodeSingle(group[0])
			if err != nil {
				return err
			}
			if err := eng.Put(c.physKey(groupKeys[0]), physVal); err != nil {
				return err
			}
		} else {
			physVal, err := c.encodeBatch(group)
			if err != nil {
				return err
			}
			if err := eng.Put(c.batchPhysKey(groupKeys), physVal); err != nil {
				return err
			}
		}
		batchesWritten++
		c.store.mtr.batchWrites.WithLabelValues(c.name).Inc()
		group = group[:0]
		groupKeys = groupKeys[:0]
		haveGroupTag = false
		return nil
	}

	physVisited := 0
loop:
	for it.Next() {
		keysPhys, ok := keycodec.UnpackPrefixed(c.prefix, it.Key())
		if !ok {
			break
		}
		physVisited++
		if opts.MaxPhys > 0 && physVisited > opts.MaxPhys {
			break
		}

		n := len(keysPhys)
		var keysFwd []keycodec.Key
		if n == 1 {
			keysFwd = keysPhys
		} else {
			keysFwd = make([]keycodec.Key, n)
			for i, k := range keysPhys {
				keysFwd[n-1-i] = k
			}
		}
		if hiKey != nil && keysFwd[0].Compare(hiKey) > 0 {
			break loop
		}

		if n > 1 && opts.Preserve {
			if err := flush(); err != nil {
				return 0, 0, nil, err
			}
			consumed += n
			lastKey = keysFwd[n-1]
			continue
		}

		physKeyBytes := append([]byte{}, it.Key()...)
		_, values, err := c.decodePhysical(physKeyBytes, it.Value())
		if err != nil {
			return 0, 0, nil, err
		}
		if err := eng.Delete(physKeyBytes); err != nil {
			return 0, 0, nil, err
		}

		for i, fk := range keysFwd {
			val := values[i]

			if opts.Grouper != nil {
				tag, err := opts.Grouper(val)
				if err != nil {
					return 0, 0, nil, err
				}
				if haveGroupTag && !reflect.DeepEqual(tag, groupTag) {
					if err := flush(); err != nil {
						return 0, 0, nil, err
					}
				}
				groupTag = tag
				haveGroupTag = true
			}

			group = append(group, val)
			groupKeys = append(groupKeys, fk)

			if opts.MaxBytes > 0 {
				tentative, err := c.encodeBatch(group)
				if err != nil {
					return 0, 0, nil, err
				}
				if len(tentative) > opts.MaxBytes && len(group) > 1 {
					poppedVal := group[len(group)-1]
					poppedKey := groupKeys[len(groupKeys)-1]
					group = group[:len(group)-1]
					groupKeys = groupKeys[:len(groupKeys)-1]
					if err := flush(); err != nil {
						return 0, 0, nil, err
					}
					group = append(group, poppedVal)
					groupKeys = append(groupKeys, poppedKey)
				}
			}

			consumed++
			lastKey = fk

			if opts.MaxRecs > 0 && len(group) >= opts.MaxRecs {
				if err := flush(); err != nil {
					return 0, 0, nil, err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return 0, 0, nil, err
	}
	return consumed, batchesWritten, lastKey, nil
}
