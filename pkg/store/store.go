// Package store implements the core of the object store: the encoder
// registry (C3), the store itself (C4), monotonic counters (C5),
// collections (C6), secondary indices (C7) and the bounded bidirectional
// cursors (C8) that back their iteration. It depends only on the
// pkg/engine.Engine/Txn interfaces and the pkg/keycodec tuple codec --
// never on a concrete engine backend.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dw/acid/pkg/engine"
	"github.com/dw/acid/pkg/engine/dbconfig"
	"github.com/dw/acid/pkg/keycodec"
	"github.com/prometheus/client_golang/prometheus"
)

// Reserved metadata collection indices, fixed per the on-engine layout.
const (
	metaCollections uint64 = 0
	metaCounters    uint64 = 1
	metaEncoders    uint64 = 2
	metaMeta        uint64 = 3

	firstUserIdx uint64 = 10

	// nsIdxCounter is the single counter collections and indices both draw
	// their physPrefix idx from. physPrefix maps a raw idx into one byte-
	// prefix space shared by both, so they must never be allocated from
	// separate counters -- two counters both starting at firstUserIdx
	// would hand the first collection and the first index the same idx.
	nsIdxCounter = "meta:ns_idx"
)

// Store owns the engine reference, the root byte prefix every physical
// key is namespaced under, the encoder registry, and the reserved
// metadata collections (collections, counters, encoders, meta).
type Store struct {
	eng    engine.Engine
	prefix []byte
	reg    *registry
	log    *zap.Logger
	mtr    *metrics

	mu          sync.Mutex
	collections map[string]*Collection
	collIdx     map[string]uint64
}

// Options configures Open.
type Options struct {
	// Prefix namespaces every physical key this store writes, letting
	// multiple stores share one underlying engine.
	Prefix []byte
	Logger *zap.Logger
	// Registerer receives this store's prometheus collectors. Defaults to
	// prometheus.DefaultRegisterer; pass a fresh prometheus.NewRegistry()
	// in tests to avoid duplicate-registration panics across opens.
	Registerer prometheus.Registerer
}

// Open resolves cfg to a concrete engine (via pkg/engine.Open) and
// constructs a Store over it.
func Open(cfg dbconfig.DBConfiguration, opts Options) (*Store, error) {
	eng, err := engine.Open(cfg)
	if err != nil {
		return nil, err
	}
	return OpenEngine(eng, opts)
}

// OpenEngine constructs a Store directly over an already-open engine,
// useful for tests and for callers composing their own engine.Open calls
// (e.g. wrapping in engine.NewMemCachedStore before handing it to OpenEngine).
func OpenEngine(eng engine.Engine, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &Store{
		eng:         eng,
		prefix:      append([]byte{}, opts.Prefix...),
		log:         logger,
		mtr:         newMetrics(reg),
		collections: map[string]*Collection{},
		collIdx:     map[string]uint64{},
	}
	s.reg = newRegistry(s)
	if err := s.reg.bootstrapBuiltins(); err != nil {
		return nil, err
	}
	if err := s.loadCollectionIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying engine.
func (s *Store) Close() error { return s.eng.Close() }

func (s *Store) engineFor(txn engine.Txn) engine.Engine {
	if txn != nil {
		return txn
	}
	return s.eng
}

// physPrefix returns store_prefix ‖ varint(collection/index idx).
func (s *Store) physPrefix(idx uint64) []byte {
	return keycodec.AppendUvarint(append([]byte{}, s.prefix...), idx)
}

// physKey returns store_prefix ‖ varint(idx) ‖ pack(tuple).
func (s *Store) physKey(idx uint64, k keycodec.Key) []byte {
	return append(s.physPrefix(idx), k.Pack()...)
}

func (s *Store) loadCollectionIndex() error {
	prefix := s.physPrefix(metaCollections)
	it := s.eng.Iterate(prefix, false)
	defer it.Close()
	for it.Next() {
		keys, ok := keycodec.UnpackPrefixed(prefix, it.Key())
		if !ok {
			break
		}
		if len(keys) != 1 || len(keys[0]) != 2 {
			continue
		}
		tag := keys[0][0]
		if tag.Kind != keycodec.KindText || tag.Text != "c" {
			continue
		}
		name := keys[0][1].Text
		idx, _ := keycodec.ReadUvarint(it.Value())
		s.collIdx[name] = idx
	}
	return nil
}

// CollectionOptions configures a Collection obtained from Store.Collection.
type CollectionOptions struct {
	Encoder     Encoder
	Packer      Packer
	KeyFunc     KeyFunc
	TxnKeyFunc  TxnKeyFunc
	DerivedKeys bool
	Blind       bool
	CounterName string
}

// Collection returns the named collection, creating it (and persisting a
// fresh numeric index) on first use. Subsequent calls for the same name
// within this process return the same *Collection regardless of opts, so
// that a collection's registered indices stay consistent across callers.
func (s *Store) Collection(name string, opts CollectionOptions) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	idx, ok := s.collIdx[name]
	if !ok {
		next, err := s.Count(nsIdxCounter, 1, int64(firstUserIdx), nil)
		if err != nil {
			return nil, err
		}
		idx = uint64(next)
		key := s.physKey(metaCollections, keycodec.Key{keycodec.Text("c"), keycodec.Text(name)})
		if err := s.eng.Put(key, keycodec.AppendUvarint(nil, idx)); err != nil {
			return nil, err
		}
		s.collIdx[name] = idx
	}

	c, err := newCollection(s, name, idx, opts)
	if err != nil {
		return nil, err
	}
	s.collections[name] = c
	return c, nil
}

// AddEncoder registers a value encoder, returning its (possibly
// pre-existing) one-byte prefix.
func (s *Store) AddEncoder(e Encoder) (byte, error) { return s.reg.add(e) }

// AddPacker registers a packer, returning its (possibly pre-existing)
// one-byte prefix.
func (s *Store) AddPacker(p Packer) (byte, error) { return s.reg.add(p) }

// GetEncoder resolves a previously-registered encoder prefix byte.
func (s *Store) GetEncoder(prefix byte) (Encoder, error) { return s.reg.lookupEncoder(prefix) }

// GetPacker resolves a previously-registered packer prefix byte.
func (s *Store) GetPacker(prefix byte) (Packer, error) { return s.reg.lookupPacker(prefix) }

// CollectionStats reports per-collection record counts, distinguishing
// physical (engine) entries from logical records (batches count for more
// than one logical record per physical entry).
type CollectionStats struct {
	Name           string
	PhysicalCount  int64
	LogicalCount   int64
	IndexCounts    map[string]int64
}

// Stats walks every known collection and its indices, counting physical
// and logical records. It is not named in the original specification but
// falls naturally out of the metadata collections already being plain
// collections; useful to observe batching effectiveness.
func (s *Store) Stats() ([]CollectionStats, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.collIdx))
	for name := range s.collIdx {
		names = append(names, name)
	}
	s.mu.Unlock()

	out := make([]CollectionStats, 0, len(names))
	for _, name := range names {
		c, err := s.Collection(name, CollectionOptions{})
		if err != nil {
			return nil, err
		}
		stat := CollectionStats{Name: name, IndexCounts: map[string]int64{}}
		prefix := s.physPrefix(c.idx)
		it := s.eng.Iterate(prefix, false)
		for it.Next() {
			keys, ok := keycodec.UnpackPrefixed(prefix, it.Key())
			if !ok {
				break
			}
			stat.PhysicalCount++
			stat.LogicalCount += int64(len(keys))
		}
		it.Close()

		for iname, idx := range c.indices {
			iprefix := s.physPrefix(idx.idx)
			iit := s.eng.Iterate(iprefix, false)
			var n int64
			for iit.Next() {
				if _, ok := keycodec.UnpackPrefixed(iprefix, iit.Key()); !ok {
					break
				}
				n++
			}
			iit.Close()
			stat.IndexCounts[iname] = n
		}
		out = append(out, stat)
	}
	return out, nil
}
