package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/keycodec"
	"github.com/dw/acid/pkg/valuecodec"
)

// Encoder and Packer re-export the valuecodec interfaces so callers
// configuring a Collection need not import pkg/valuecodec directly.
type Encoder = valuecodec.Encoder
type Packer = valuecodec.Packer

// KeyFunc derives a key from a record's value alone.
type KeyFunc func(value any) (any, error)

// TxnKeyFunc derives a key from a record's value, with access to the
// active transaction (e.g. to consult another collection).
type TxnKeyFunc func(txn engine.Txn, value any) (any, error)

// Collection owns a name, a numeric index (its key-space prefix), a
// value encoder, a default packer, a key-assignment strategy, and its
// registered indices.
type Collection struct {
	store       *Store
	name        string
	idx         uint64
	prefix      []byte

	encoder     Encoder
	encoderByte byte
	packer      Packer
	packerByte  byte

	keyFunc     KeyFunc
	txnKeyFunc  TxnKeyFunc
	derivedKeys bool
	blind       bool
	counterName string

	mu      sync.Mutex
	indices map[string]*Index
}

func newCollection(s *Store, name string, idx uint64, opts CollectionOptions) (*Collection, error) {
	enc := opts.Encoder
	if enc == nil {
		enc = valuecodec.CBOREncoder{}
	}
	pck := opts.Packer
	if pck == nil {
		pck = valuecodec.PlainPacker{}
	}
	encByte, err := s.AddEncoder(enc)
	if err != nil {
		return nil, err
	}
	pckByte, err := s.AddPacker(pck)
	if err != nil {
		return nil, err
	}
	counterName := opts.CounterName
	if counterName == "" {
		counterName = "key:" + name
	}
	return &Collection{
		store:       s,
		name:        name,
		idx:         idx,
		prefix:      s.physPrefix(idx),
		encoder:     enc,
		encoderByte: encByte,
		packer:      pck,
		packerByte:  pckByte,
		keyFunc:     opts.KeyFunc,
		txnKeyFunc:  opts.TxnKeyFunc,
		derivedKeys: opts.DerivedKeys,
		blind:       opts.Blind,
		counterName: counterName,
		indices:     map[string]*Index{},
	}, nil
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Record is a logical (key, value) pair flowing through a Collection. A
// Record obtained from Get/Items/etc carries enough bookkeeping (its
// assigned key, the index entries it last produced) for a later Put to
// correctly diff and clean up stale state; a freshly constructed Record
// (via NewRecord) has none of that and is treated as brand new.
type Record struct {
	Key   keycodec.Key
	Value any

	loaded      bool
	isBatch     bool
	indexTuples map[string][]keycodec.Key // index name -> tuples last written for this record
}

// NewRecord wraps a bare value as a brand-new, keyless record for Put.
func NewRecord(value any) *Record {
	return &Record{Value: value}
}

// PutOptions configures a single Put call.
type PutOptions struct {
	Key   any // explicit key, highest priority in the assignment order
	Txn   engine.Txn
	Blind bool
}

func (c *Collection) physKey(k keycodec.Key) []byte {
	return c.store.physKey(c.idx, k)
}

// assignKey implements the five-step key assignment order from §4.3.
func (c *Collection) assignKey(txn engine.Txn, rec *Record, opts PutOptions) (keycodec.Key, error) {
	if opts.Key != nil {
		return keycodec.Tuplize(opts.Key)
	}
	if rec.loaded && !c.derivedKeys {
		return rec.Key, nil
	}
	if c.txnKeyFunc != nil {
		v, err := c.txnKeyFunc(txn, rec.Value)
		if err != nil {
			return nil, err
		}
		return keycodec.Tuplize(v)
	}
	if c.keyFunc != nil {
		v, err := c.keyFunc(rec.Value)
		if err != nil {
			return nil, err
		}
		return keycodec.Tuplize(v)
	}
	next, err := c.store.Count(c.counterName, 1, 1, txn)
	if err != nil {
		return nil, err
	}
	return keycodec.Key{keycodec.Int(next)}, nil
}

func (c *Collection) computeIndexTuples(value any) (map[string][]keycodec.Key, error) {
	c.mu.Lock()
	indices := make([]*Index, 0, len(c.indices))
	for _, idx := range c.indices {
		indices = append(indices, idx)
	}
	c.mu.Unlock()

	out := make(map[string][]keycodec.Key, len(indices))
	for _, idx := range indices {
		tuples, err := idx.fn(value)
		if err != nil {
			return nil, err
		}
		out[idx.name] = tuples
	}
	return out, nil
}

func (c *Collection) indexEntryKey(idx *Index, tuple, primary keycodec.Key) []byte {
	k := make(keycodec.Key, 0, len(tuple)+1)
	k = append(k, tuple...)
	k = append(k, keycodec.Nested(primary))
	return c.store.physKey(idx.idx, k)
}

func (c *Collection) writeIndexEntries(eng engine.Engine, primary keycodec.Key, tuples map[string][]keycodec.Key) error {
	c.mu.Lock()
	indices := c.indices
	c.mu.Unlock()
	for name, ts := range tuples {
		idx, ok := indices[name]
		if !ok {
			continue
		}
		for _, t := range ts {
			if err := eng.Put(c.indexEntryKey(idx, t, primary), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collection) deleteIndexEntries(eng engine.Engine, primary keycodec.Key, tuples map[string][]keycodec.Key) error {
	c.mu.Lock()
	indices := c.indices
	c.mu.Unlock()
	for name, ts := range tuples {
		idx, ok := indices[name]
		if !ok {
			continue
		}
		for _, t := range ts {
			if err := eng.Delete(c.indexEntryKey(idx, t, primary)); err != nil {
				return err
			}
		}
	}
	return nil
}

// diffIndexTuples returns, per index in old, every old tuple not present
// in the new set; the caller deletes those entries.
func diffIndexTuples(old, nw map[string][]keycodec.Key) map[string][]keycodec.Key {
	toDelete := map[string][]keycodec.Key{}
	for name, oldTuples := range old {
		newTuples := nw[name]
		for _, ot := range oldTuples {
			found := false
			for _, nt := range newTuples {
				if ot.Compare(nt) == 0 {
					found = true
					break
				}
			}
			if !found {
				toDelete[name] = append(toDelete[name], ot)
			}
		}
	}
	return toDelete
}

// encodeSingle produces the single-record physical value:
// packer_prefix_byte ‖ packer.Pack(encoder.Encode(value)).
func (c *Collection) encodeSingle(value any) ([]byte, error) {
	enc, err := c.encoder.Encode(value)
	if err != nil {
		return nil, err
	}
	packed, err := c.packer.Pack(enc)
	if err != nil {
		return nil, err
	}
	return append([]byte{c.packerByte}, packed...), nil
}

func (c *Collection) decodeSingle(phys []byte) (any, error) {
	if len(phys) == 0 {
		return nil, &InvalidConfigurationError{Msg: "empty physical value"}
	}
	packer, err := c.store.GetPacker(phys[0])
	if err != nil {
		return nil, err
	}
	raw, err := packer.Unpack(phys[1:])
	if err != nil {
		return nil, err
	}
	var out any
	if err := c.encoder.Decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Put implements the C6 put algorithm (§4.3): compute the new key and
// index tuples, clean up whatever the record previously occupied (old
// physical key or batch explosion, stale index entries), write the new
// physical record and its index entries, and update rec in place.
func (c *Collection) Put(rec *Record, opts PutOptions) error {
	eng := c.store.engineFor(opts.Txn)
	newKey, err := c.assignKey(opts.Txn, rec, opts)
	if err != nil {
		return err
	}
	newTuples, err := c.computeIndexTuples(rec.Value)
	if err != nil {
		return err
	}

	blind := opts.Blind || c.blind
	c.mu.Lock()
	hasIndices := len(c.indices) > 0
	c.mu.Unlock()
	if !hasIndices {
		blind = true
	}

	if rec.loaded {
		if rec.isBatch {
			if err := c.explodeBatchAt(opts.Txn, rec.Key, rec.Key); err != nil {
				return err
			}
		} else if rec.Key.Compare(newKey) != 0 {
			if err := eng.Delete(c.physKey(rec.Key)); err != nil {
				return err
			}
		}
		toDelete := rec.indexTuples
		if rec.Key.Compare(newKey) == 0 {
			toDelete = diffIndexTuples(rec.indexTuples, newTuples)
		}
		if err := c.deleteIndexEntries(eng, rec.Key, toDelete); err != nil {
			return err
		}
	} else if !blind {
		if err := c.deleteByKey(opts.Txn, newKey); err != nil {
			return err
		}
	}

	physVal, err := c.encodeSingle(rec.Value)
	if err != nil {
		return err
	}
	if err := eng.Put(c.physKey(newKey), physVal); err != nil {
		return err
	}
	if err := c.writeIndexEntries(eng, newKey, newTuples); err != nil {
		return err
	}

	rec.Key = newKey
	rec.loaded = true
	rec.isBatch = false
	rec.indexTuples = newTuples
	c.store.mtr.puts.WithLabelValues(c.name).Inc()
	return nil
}

// Puts writes each value as a brand new record (counter- or key-func
// assigned) and returns the resulting records in order.
func (c *Collection) Puts(values []any, opts PutOptions) ([]*Record, error) {
	out := make([]*Record, len(values))
	for i, v := range values {
		rec := NewRecord(v)
		o := opts
		o.Key = nil
		if err := c.Put(rec, o); err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// PutItems writes explicit (key, value) pairs.
func (c *Collection) PutItems(items map[any]any, txn engine.Txn) error {
	for k, v := range items {
		rec := NewRecord(v)
		if err := c.Put(rec, PutOptions{Key: k, Txn: txn}); err != nil {
			return err
		}
	}
	return nil
}

// deleteByKey purges any stale physical record and index entries at key,
// without requiring a prior Get. Used by the non-blind pre-write check in
// Put.
func (c *Collection) deleteByKey(txn engine.Txn, key keycodec.Key) error {
	eng := c.store.engineFor(txn)
	physKeyBytes, keysFwd, values, found, err := c.locate(eng, key)
	if err != nil || !found {
		return err
	}
	var val any
	for i, fk := range keysFwd {
		if fk.Compare(key) == 0 {
			val = values[i]
		}
	}
	if len(keysFwd) > 1 {
		if err := c.explodeBatchAt(txn, key, key); err != nil {
			return err
		}
	} else if err := eng.Delete(physKeyBytes); err != nil {
		return err
	}
	tuples, err := c.computeIndexTuples(val)
	if err != nil {
		return err
	}
	return c.deleteIndexEntries(eng, key, tuples)
}

// Get fetches the record at key, transparently exploding through batch
// layout when key belongs to a batched physical record.
func (c *Collection) Get(key any, txn engine.Txn) (*Record, error) {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return nil, err
	}
	eng := c.store.engineFor(txn)
	c.store.mtr.gets.WithLabelValues(c.name).Inc()

	_, keysFwd, values, found, err := c.locate(eng, k)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, engine.ErrKeyNotFound
	}
	for i, fk := range keysFwd {
		if fk.Compare(k) == 0 {
			tuples, err := c.computeIndexTuples(values[i])
			if err != nil {
				return nil, err
			}
			return &Record{Key: fk, Value: values[i], loaded: true, isBatch: len(keysFwd) > 1, indexTuples: tuples}, nil
		}
	}
	return nil, engine.ErrKeyNotFound
}

// Gets fetches one record per input key, in order; a missing key yields a
// nil *Record at that position rather than aborting the whole call (the
// §9 Open Question 3 resolution: exactly one Get per input element, with
// no loop-variable aliasing bug).
func (c *Collection) Gets(keys []any, txn engine.Txn) ([]*Record, error) {
	out := make([]*Record, len(keys))
	for i, k := range keys {
		rec, err := c.Get(k, txn)
		if err == engine.ErrKeyNotFound {
			out[i] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Delete removes the record at key, exploding its batch first if needed.
func (c *Collection) Delete(key any, txn engine.Txn) error {
	k, err := keycodec.Tuplize(key)
	if err != nil {
		return err
	}
	eng := c.store.engineFor(txn)
	physKeyBytes, keysFwd, values, found, err := c.locate(eng, k)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	var val any
	for i, fk := range keysFwd {
		if fk.Compare(k) == 0 {
			val = values[i]
		}
	}
	if len(keysFwd) > 1 {
		if err := c.explodeBatchAt(txn, k, k); err != nil {
			return err
		}
	} else if err := eng.Delete(physKeyBytes); err != nil {
		return err
	}
	tuples, err := c.computeIndexTuples(val)
	if err != nil {
		return err
	}
	if err := c.deleteIndexEntries(eng, k, tuples); err != nil {
		return err
	}
	c.store.mtr.deletes.WithLabelValues(c.name).Inc()
	return nil
}

// Deletes removes each key in turn.
func (c *Collection) Deletes(keys []any, txn engine.Txn) error {
	for _, k := range keys {
		if err := c.Delete(k, txn); err != nil {
			return err
		}
	}
	return nil
}

// DeleteValue deletes by looking up a derived key via the collection's
// configured key function, mirroring Put's key-assignment for
// derived-key collections.
func (c *Collection) DeleteValue(value any, txn engine.Txn) error {
	rec := NewRecord(value)
	k, err := c.assignKey(txn, rec, PutOptions{})
	if err != nil {
		return err
	}
	return c.Delete(k, txn)
}

// DeleteValues deletes each value's derived key in turn.
func (c *Collection) DeleteValues(values []any, txn engine.Txn) error {
	for _, v := range values {
		if err := c.DeleteValue(v, txn); err != nil {
			return err
		}
	}
	return nil
}

// AddIndex registers a new secondary index, persisting its numeric
// prefix so it survives a store reopen. fn receives a record's decoded
// value and returns (nil | primitive | tuple | []primitive | []tuple);
// Normalize folds any of those shapes into the canonical []keycodec.Key.
func (c *Collection) AddIndex(name string, fn func(value any) (any, error)) (*Index, error) {
	c.mu.Lock()
	if idx, ok := c.indices[name]; ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	metaKey := c.store.physKey(metaCollections, keycodec.Key{
		keycodec.Text("i"), keycodec.Text(c.name), keycodec.Text(name),
	})

	var idxNum uint64
	if existing, err := c.store.eng.Get(metaKey); err == nil {
		idxNum, _ = keycodec.ReadUvarint(existing)
	} else if err != engine.ErrKeyNotFound {
		return nil, err
	} else {
		next, err := c.store.Count(nsIdxCounter, 1, int64(firstUserIdx), nil)
		if err != nil {
			return nil, err
		}
		idxNum = uint64(next)
		if err := c.store.eng.Put(metaKey, keycodec.AppendUvarint(nil, idxNum)); err != nil {
			return nil, err
		}
	}

	idx := &Index{
		coll: c,
		name: name,
		idx:  idxNum,
		fn: func(value any) ([]keycodec.Key, error) {
			raw, err := fn(value)
			if err != nil {
				return nil, err
			}
			return Normalize(raw)
		},
	}
	c.mu.Lock()
	c.indices[name] = idx
	c.mu.Unlock()
	return idx, nil
}

// Index returns a previously-registered index by name.
func (c *Collection) Index(name string) (*Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indices[name]
	return idx, ok
}

func (c *Collection) warnStaleIndex(name string, key keycodec.Key, logger *zap.Logger) {
	logger.Warn("stale index entry",
		zap.String("collection", c.name),
		zap.String("index", name),
		zap.String("key", key.String()),
	)
	c.store.mtr.staleIndexHits.WithLabelValues(name).Inc()
}
