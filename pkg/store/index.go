package store

import (
	"bytes"

	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/keycodec"
)

// Index is a secondary ordered mapping from user-defined tuples to the
// primary keys of one collection, owned by that Collection.
type Index struct {
	coll *Collection
	name string
	idx  uint64
	fn   func(value any) ([]keycodec.Key, error)
}

// Name returns the index's name.
func (idx *Index) Name() string { return idx.name }

// Normalize folds the polymorphic return of a user index function --
// nil, a bare primitive, a bare tuple, or a list of either -- into the
// canonical []keycodec.Key form: a (possibly empty) sequence of tuples.
func Normalize(v any) ([]keycodec.Key, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case keycodec.Key:
		return []keycodec.Key{val}, nil
	case []keycodec.Key:
		return val, nil
	case []any:
		out := make([]keycodec.Key, 0, len(val))
		for _, item := range val {
			k, err := keycodec.Tuplize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		}
		return out, nil
	default:
		k, err := keycodec.Tuplize(v)
		if err != nil {
			return nil, err
		}
		return []keycodec.Key{k}, nil
	}
}

// Filter specifies an index scan, matching the §4.4 contract:
//
//   - Args, if non-nil, is a prefix tuple constraining both endpoints to
//     exactly the entries carrying that tuple: [Args, PrefixBound(Args)).
//   - Lo/Hi are standalone bounds on the index tuple when Args is nil.
//   - In a forward scan Lo is the seek start and always inclusive, and
//     Include decides whether Hi is closed. In a reverse scan Include
//     decides both ends: Hi (the seek start) and Lo are both closed when
//     it is set and both open when it is not. A closed upper bound compares against the
//     bound tuple's PrefixBound rather than its bare packed bytes, since
//     every real entry at that tuple carries a trailing primary-key suffix
//     and so never compares equal to the bare bytes.
//   - Max bounds the result count; 0 means unlimited.
type Filter struct {
	Args    keycodec.Key
	Lo, Hi  keycodec.Key
	Reverse bool
	Include bool
	Max     int
	Txn     engine.Txn
}

// forwardBounds computes the seek start and stop boundary for a forward
// scan under f. A real index entry's packed bytes always carry a trailing
// nested-primary-key suffix, so they never equal a bare tuple's packed
// bytes -- they sort strictly after it. That means a bare tuple only works
// as an *exclusive* boundary; an *inclusive* one has to use the tuple's
// PrefixBound (one past its own range) instead, so every entry sharing
// that exact tuple still sorts before it.
func (idx *Index) forwardBounds(f Filter) (start, hiBoundary []byte, hiUnbounded bool) {
	prefix := idx.coll.store.physPrefix(idx.idx)
	if f.Args != nil {
		start = append(append([]byte{}, prefix...), f.Args.Pack()...)
		if b, ok := keycodec.PrefixBound(prefix, f.Args); ok {
			return start, b, false
		}
		return start, nil, true
	}
	if f.Lo != nil {
		start = append(append([]byte{}, prefix...), f.Lo.Pack()...)
	} else {
		start = append([]byte{}, prefix...)
	}
	if f.Hi == nil {
		return start, nil, true
	}
	if f.Include {
		if b, ok := keycodec.PrefixBound(prefix, f.Hi); ok {
			return start, b, false
		}
		return start, nil, true
	}
	return start, append(append([]byte{}, prefix...), f.Hi.Pack()...), false
}

// reverseBounds is forwardBounds' mirror image for a reverse scan: it
// computes the iterator's seek start and the lower stop boundary. The same
// inclusive/exclusive asymmetry applies but inverted -- an inclusive Lo
// uses its own bare bytes (every entry with that tuple sorts after it,
// hence stays in range), an exclusive Lo needs the tuple's PrefixBound to
// push every one of its own entries out of range. unsatisfiable reports
// the case where an exclusive Lo's tuple saturates the key space (see
// NextGreater) -- nothing can sort after it, so the scan yields nothing.
func (idx *Index) reverseBounds(f Filter) (start, loBoundary []byte, loUnbounded, unsatisfiable bool) {
	prefix := idx.coll.store.physPrefix(idx.idx)
	if f.Args != nil {
		lo := append(append([]byte{}, prefix...), f.Args.Pack()...)
		if b, ok := keycodec.PrefixBound(prefix, f.Args); ok {
			start = b
		} else if nb, ok := keycodec.NextGreater(prefix); ok {
			start = nb
		}
		return start, lo, false, false
	}

	if f.Hi != nil {
		if f.Include {
			if b, ok := keycodec.PrefixBound(prefix, f.Hi); ok {
				start = b
			} else if nb, ok := keycodec.NextGreater(prefix); ok {
				start = nb
			}
		} else {
			start = append(append([]byte{}, prefix...), f.Hi.Pack()...)
		}
	} else if nb, ok := keycodec.NextGreater(prefix); ok {
		start = nb
	}

	if f.Lo == nil {
		return start, nil, true, false
	}
	if f.Include {
		return start, append(append([]byte{}, prefix...), f.Lo.Pack()...), false, false
	}
	b, ok := keycodec.PrefixBound(prefix, f.Lo)
	if !ok {
		return start, nil, false, true
	}
	return start, b, false, false
}

// primaryKeyFromEntry splits an index entry's decoded tuple (index tuple
// ‖ nested primary key) back into (tuple, primary key).
func primaryKeyFromEntry(entry keycodec.Key) (tuple, primary keycodec.Key) {
	if len(entry) == 0 {
		return nil, nil
	}
	last := entry[len(entry)-1]
	return entry[:len(entry)-1], last.Key
}

// iterate walks the index's entries under f, yielding decoded (tuple,
// primary) pairs until the bound/Max policy stops it.
func (idx *Index) iterate(f Filter, yield func(tuple, primary keycodec.Key) bool) error {
	eng := idx.coll.store.engineFor(f.Txn)
	prefix := idx.coll.store.physPrefix(idx.idx)
	n := 0

	if !f.Reverse {
		start, hiBoundary, hiUnbounded := idx.forwardBounds(f)
		it := eng.Iterate(start, false)
		defer it.Close()
		for it.Next() {
			entries, ok := keycodec.UnpackPrefixed(prefix, it.Key())
			if !ok {
				break
			}
			if len(entries) != 1 {
				continue
			}
			cur := it.Key()
			if !hiUnbounded && bytes.Compare(cur, hiBoundary) >= 0 {
				break
			}
			if f.Max > 0 && n >= f.Max {
				break
			}
			t, p := primaryKeyFromEntry(entries[0])
			n++
			idx.coll.store.mtr.cursorSteps.WithLabelValues(idx.coll.name).Inc()
			if !yield(t, p) {
				break
			}
		}
		return nil
	}

	start, loBoundary, loUnbounded, unsatisfiable := idx.reverseBounds(f)
	if unsatisfiable {
		return nil
	}
	it := eng.Iterate(start, true)
	defer it.Close()
	for it.Next() {
		entries, ok := keycodec.UnpackPrefixed(prefix, it.Key())
		if !ok {
			continue
		}
		if len(entries) != 1 {
			continue
		}
		cur := it.Key()
		if !loUnbounded && bytes.Compare(cur, loBoundary) < 0 {
			break
		}
		if f.Max > 0 && n >= f.Max {
			break
		}
		t, p := primaryKeyFromEntry(entries[0])
		n++
		idx.coll.store.mtr.cursorSteps.WithLabelValues(idx.coll.name).Inc()
		if !yield(t, p) {
			break
		}
	}
	return nil
}

// Tuples returns each matching index tuple.
func (idx *Index) Tuples(f Filter) ([]keycodec.Key, error) {
	var out []keycodec.Key
	err := idx.iterate(f, func(t, _ keycodec.Key) bool {
		out = append(out, t)
		return true
	})
	return out, err
}

// Keys returns each matching primary key.
func (idx *Index) Keys(f Filter) ([]keycodec.Key, error) {
	var out []keycodec.Key
	err := idx.iterate(f, func(_, p keycodec.Key) bool {
		out = append(out, p)
		return true
	})
	return out, err
}

// Pairs returns each matching (tuple, primary key) pair.
func (idx *Index) Pairs(f Filter) ([][2]keycodec.Key, error) {
	var out [][2]keycodec.Key
	err := idx.iterate(f, func(t, p keycodec.Key) bool {
		out = append(out, [2]keycodec.Key{t, p})
		return true
	})
	return out, err
}

// Items resolves each matching primary key through the owning
// Collection, yielding (primary_key, value) pairs. A primary key that no
// longer resolves (a stale index entry) is logged and skipped rather
// than surfaced, per §7; self-healing is left to RebuildIndex.
func (idx *Index) Items(f Filter) ([]*Record, error) {
	var out []*Record
	var getErr error
	err := idx.iterate(f, func(_, p keycodec.Key) bool {
		rec, err := idx.coll.Get(p, f.Txn)
		if err == engine.ErrKeyNotFound {
			idx.coll.warnStaleIndex(idx.name, p, idx.coll.store.log)
			return true
		}
		if err != nil {
			getErr = err
			return false
		}
		out = append(out, rec)
		return true
	})
	if err == nil {
		err = getErr
	}
	return out, err
}

// Values returns the decoded values of each matching, still-live record.
func (idx *Index) Values(f Filter) ([]any, error) {
	recs, err := idx.Items(f)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r.Value
	}
	return out, nil
}

// Find returns at most one matching record.
func (idx *Index) Find(f Filter) (*Record, error) {
	f.Max = 1
	recs, err := idx.Items(f)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Has reports whether any entry matches f.
func (idx *Index) Has(f Filter) (bool, error) {
	keys, err := idx.Keys(f)
	return len(keys) > 0, err
}

// Get returns the record for the exact tuple key (Args=key).
func (idx *Index) Get(key any, txn engine.Txn) (*Record, error) {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return nil, err
	}
	return idx.Find(Filter{Args: k, Txn: txn})
}

// Gets returns one record per input tuple key, in order.
func (idx *Index) Gets(keys []any, txn engine.Txn) ([]*Record, error) {
	out := make([]*Record, len(keys))
	for i, k := range keys {
		rec, err := idx.Get(k, txn)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Count returns the number of matching index entries.
func (idx *Index) Count(f Filter) (int, error) {
	keys, err := idx.Keys(f)
	return len(keys), err
}
