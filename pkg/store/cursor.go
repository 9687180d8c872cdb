package store

import (
	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/keycodec"
)

// Bound is one side of a Cursor's range, carrying whether it is set at
// all and whether it is closed (Include) at that side.
type Bound struct {
	Key     keycodec.Key
	Include bool
	set     bool
}

// Result is the view a Cursor yields on each Next call. It is reused
// across calls -- callers who need to retain a Result past the next Next
// must call Owned.
type Result struct {
	// Keys holds every logical key decoded from the current physical
	// entry, in forward logical order (length 1 unless the entry is a
	// batch).
	Keys []keycodec.Key
	// Key is the current logical key -- Keys[Index].
	Key keycodec.Key
	// Value is the current logical value.
	Value any
	// Index is this key's position within Keys (always 0 for a
	// non-batch entry).
	Index int
}

// Owned returns a detached copy of r, safe to retain past the cursor's
// next step.
func (r *Result) Owned() *Result {
	keys := make([]keycodec.Key, len(r.Keys))
	copy(keys, r.Keys)
	var key keycodec.Key
	if r.Index >= 0 && r.Index < len(keys) {
		key = keys[r.Index]
	}
	return &Result{Keys: keys, Key: key, Value: r.Value, Index: r.Index}
}

// Cursor is the C8 bidirectional bounded iterator: it carries lo/hi
// bounds and their inclusivity, a remaining-count cap (-1 = unlimited),
// a physical-record-visited cap independent of the logical cap, and
// transparently explodes batched physical entries into their member
// logical records as it walks, aligning intra-batch direction to the
// outer scan direction.
type Cursor struct {
	coll    *Collection
	eng     engine.Engine
	reverse bool

	lo, hi Bound
	remain int // -1 = unlimited
	maxPhys int // -1 = unlimited

	// prefixKey/hasPrefixScope implement SetPrefix: filtering is done on
	// the decoded logical key directly (HasPrefix) rather than through a
	// synthetic "successor" Key, since PrefixBound's byte string is, in
	// general, not itself a valid packed tuple. prefixSeekBytes is the raw
	// physical successor used only to position a reverse scan's start.
	prefixKey       keycodec.Key
	hasPrefixScope  bool
	prefixSeekBytes []byte

	it          engine.Iterator
	started     bool
	exhausted   bool
	physVisited int

	curKeys   []keycodec.Key
	curValues []any
	curIdx    int

	result Result
}

// NewCursor opens a cursor over coll in the given direction. txn, if
// non-nil, routes the underlying scan through it.
func NewCursor(coll *Collection, reverse bool, txn engine.Txn) *Cursor {
	return &Cursor{
		coll:    coll,
		eng:     coll.store.engineFor(txn),
		reverse: reverse,
		remain:  -1,
		maxPhys: -1,
	}
}

// SetLo sets the lower bound.
func (c *Cursor) SetLo(key any, include bool) error {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return err
	}
	c.lo = Bound{Key: k, Include: include, set: true}
	return nil
}

// SetHi sets the upper bound.
func (c *Cursor) SetHi(key any, include bool) error {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return err
	}
	c.hi = Bound{Key: k, Include: include, set: true}
	return nil
}

// SetPrefix scopes the cursor to every key having key as a tuple prefix.
// The lower seek bound is key itself (inclusive); the upper bound is
// enforced by filtering each decoded key against key via HasPrefix rather
// than by constructing a synthetic successor key, since PrefixBound's
// byte string generally isn't a valid packed tuple of its own. A reverse
// scan still seeks its physical start from that byte string directly --
// it only needs to be a valid position to seek to, not a decodable Key.
func (c *Cursor) SetPrefix(key any) error {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return err
	}
	c.lo = Bound{Key: k, Include: true, set: true}
	c.hi = Bound{}
	c.prefixKey = k
	c.hasPrefixScope = true
	if bound, ok := keycodec.PrefixBound(c.coll.prefix, k); ok {
		c.prefixSeekBytes = bound
	}
	return nil
}

// SetExact scopes the cursor to exactly one key, yielding 0 or 1 results.
func (c *Cursor) SetExact(key any) error {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return err
	}
	c.lo = Bound{Key: k, Include: true, set: true}
	c.hi = Bound{Key: k, Include: true, set: true}
	return nil
}

// SetMax caps the number of logical results yielded.
func (c *Cursor) SetMax(n int) { c.remain = n }

// SetMaxPhys caps the number of physical records visited, independent of
// SetMax's logical cap.
func (c *Cursor) SetMaxPhys(n int) { c.maxPhys = n }

func (c *Cursor) loPred(k keycodec.Key) bool {
	if !c.lo.set {
		return true
	}
	cmp := k.Compare(c.lo.Key)
	if c.lo.Include {
		return cmp >= 0
	}
	return cmp > 0
}

func (c *Cursor) hiPred(k keycodec.Key) bool {
	if !c.hi.set {
		return true
	}
	cmp := k.Compare(c.hi.Key)
	if c.hi.Include {
		return cmp <= 0
	}
	return cmp < 0
}

func (c *Cursor) seekStart() []byte {
	prefix := c.coll.store.physPrefix(c.coll.idx)
	if !c.reverse {
		if c.lo.set {
			return c.coll.physKey(c.lo.Key)
		}
		return prefix
	}
	if c.hasPrefixScope {
		if c.prefixSeekBytes != nil {
			return c.prefixSeekBytes
		}
		return nil
	}
	if c.hi.set {
		return c.coll.physKey(c.hi.Key)
	}
	if nb, ok := keycodec.NextGreater(prefix); ok {
		return nb
	}
	return nil
}

// fetchPhys advances the underlying physical iterator one step and
// decodes its entry, positioning the intra-batch index at the start of
// the batch in the outer scan's direction. It returns false once the
// physical iterator or the physical cap is exhausted.
func (c *Cursor) fetchPhys() bool {
	for {
		if !c.it.Next() {
			return false
		}
		keysFwd, values, err := c.coll.decodePhysical(append([]byte{}, c.it.Key()...), append([]byte{}, c.it.Value()...))
		if keysFwd == nil && err == nil {
			// prefix mismatch: clean end of collection.
			return false
		}
		if err != nil {
			return false
		}
		c.physVisited++
		if c.maxPhys >= 0 && c.physVisited > c.maxPhys {
			return false
		}
		c.curKeys = keysFwd
		c.curValues = values
		if c.reverse {
			c.curIdx = len(keysFwd) - 1
		} else {
			c.curIdx = 0
		}
		return true
	}
}

// stepLogical advances to the next logical record, fetching a new
// physical entry if the current batch is exhausted.
func (c *Cursor) stepLogical() bool {
	if c.curKeys != nil {
		if !c.reverse && c.curIdx+1 < len(c.curKeys) {
			c.curIdx++
			return true
		}
		if c.reverse && c.curIdx-1 >= 0 {
			c.curIdx--
			return true
		}
	}
	return c.fetchPhys()
}

// Next advances the cursor and reports whether Result is valid.
func (c *Cursor) Next() bool {
	if c.exhausted {
		return false
	}
	if c.remain == 0 {
		c.exhausted = true
		return false
	}

	if !c.started {
		c.started = true
		c.it = c.eng.Iterate(c.seekStart(), c.reverse)
		if !c.fetchPhys() {
			c.exhausted = true
			return false
		}
		// Skip past an open lo/hi bound on the very first landed record.
		// (The engine.Iterate contract already guarantees a reverse scan
		// lands on the largest key <= start, so no extra overshoot step
		// is needed here the way a raw engine Seek would require.)
		for {
			k := c.curKeys[c.curIdx]
			if !c.reverse && c.lo.set && !c.lo.Include && k.Compare(c.lo.Key) == 0 {
				if !c.stepLogical() {
					c.exhausted = true
					return false
				}
				continue
			}
			if c.reverse && c.hi.set && !c.hi.Include && k.Compare(c.hi.Key) == 0 {
				if !c.stepLogical() {
					c.exhausted = true
					return false
				}
				continue
			}
			break
		}
	} else {
		if !c.stepLogical() {
			c.exhausted = true
			return false
		}
	}

	k := c.curKeys[c.curIdx]
	satisfied := c.hiPred(k)
	if c.reverse {
		satisfied = c.loPred(k)
	}
	if satisfied && c.hasPrefixScope && !k.HasPrefix(c.prefixKey) {
		satisfied = false
	}
	if !satisfied {
		c.exhausted = true
		return false
	}

	if c.remain > 0 {
		c.remain--
	}
	c.coll.store.mtr.cursorSteps.WithLabelValues(c.coll.name).Inc()
	c.result = Result{Keys: c.curKeys, Key: k, Value: c.curValues[c.curIdx], Index: c.curIdx}
	return true
}

// Result returns the cursor's current (reused) view.
func (c *Cursor) Result() *Result { return &c.result }

// Close releases the underlying engine iterator.
func (c *Cursor) Close() error {
	if c.it != nil {
		return c.it.Close()
	}
	return nil
}
