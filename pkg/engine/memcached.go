package engine

import "sort"

// MemCachedStore is a write-back caching overlay on top of another
// Engine: every Put and Delete is buffered in memory, Get reads through
// the overlay, and PersistSync flushes the buffered operations to the
// wrapped engine in one pass. Passing a *MemCachedStore as a Txn lets a
// caller batch several mutations and hand them to the engine in a single
// PersistSync call, which applies them one at a time (an error partway
// leaves the earlier ones applied), while Store
// operations that receive nil route straight to the underlying Engine.
type MemCachedStore struct {
	ps  Engine
	mem map[string][]byte
	del map[string]struct{}
	id  uint64
}

// NewMemCachedStore wraps ps. Its Txn.ID is 0 until SetID is called.
func NewMemCachedStore(ps Engine) *MemCachedStore {
	return &MemCachedStore{ps: ps, mem: map[string][]byte{}, del: map[string]struct{}{}}
}

// ID implements Txn.
func (s *MemCachedStore) ID() uint64 { return s.id }

// SetID sets the identifier returned by ID.
func (s *MemCachedStore) SetID(id uint64) { s.id = id }

// Put implements Engine.
func (s *MemCachedStore) Put(key, value []byte) error {
	k := string(key)
	delete(s.del, k)
	s.mem[k] = append([]byte{}, value...)
	return nil
}

// Delete implements Engine.
func (s *MemCachedStore) Delete(key []byte) error {
	k := string(key)
	delete(s.mem, k)
	s.del[k] = struct{}{}
	return nil
}

// Get implements Engine.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, ok := s.del[k]; ok {
		return nil, ErrKeyNotFound
	}
	if v, ok := s.mem[k]; ok {
		return append([]byte{}, v...), nil
	}
	return s.ps.Get(key)
}

// Close implements Engine. It does not close the wrapped engine -- the
// overlay does not own it.
func (s *MemCachedStore) Close() error { return nil }

// PersistSync flushes every buffered Put/Delete to the wrapped engine and
// clears the overlay. It returns the number of operations applied.
func (s *MemCachedStore) PersistSync() (int, error) {
	n := 0
	for k := range s.del {
		if err := s.ps.Delete([]byte(k)); err != nil {
			return n, err
		}
		n++
	}
	for k, v := range s.mem {
		if err := s.ps.Put([]byte(k), v); err != nil {
			return n, err
		}
		n++
	}
	s.mem = map[string][]byte{}
	s.del = map[string]struct{}{}
	return n, nil
}

// Iterate implements Engine, merging the buffered overlay with the
// wrapped engine's keyspace.
func (s *MemCachedStore) Iterate(start []byte, reverse bool) Iterator {
	overlay := make([]string, 0, len(s.mem)+len(s.del))
	for k := range s.mem {
		overlay = append(overlay, k)
	}
	for k := range s.del {
		overlay = append(overlay, k)
	}
	sort.Slice(overlay, func(i, j int) bool {
		if reverse {
			return overlay[i] > overlay[j]
		}
		return overlay[i] < overlay[j]
	})

	startStr := string(start)
	filtered := overlay[:0]
	for _, k := range overlay {
		if reverse {
			if len(start) == 0 || k <= startStr {
				filtered = append(filtered, k)
			}
		} else if k >= startStr {
			filtered = append(filtered, k)
		}
	}

	mem := make(map[string][]byte, len(s.mem))
	for k, v := range s.mem {
		mem[k] = v
	}
	del := make(map[string]struct{}, len(s.del))
	for k := range s.del {
		del[k] = struct{}{}
	}

	return &mergeIterator{
		underlying: s.ps.Iterate(start, reverse),
		overlay:    filtered,
		mem:        mem,
		del:        del,
		reverse:    reverse,
		first:      true,
	}
}

// mergeIterator walks the buffered overlay and the wrapped engine's
// iterator in lockstep, letting overlay entries shadow (or tombstone)
// matching underlying entries.
type mergeIterator struct {
	underlying Iterator
	overlay    []string
	oi         int
	mem        map[string][]byte
	del        map[string]struct{}
	reverse    bool
	first      bool
	underValid bool
	key, value []byte
}

func (m *mergeIterator) Next() bool {
	if m.first {
		m.underValid = m.underlying.Next()
		m.first = false
	}
	for {
		for m.underValid {
			uk := string(m.underlying.Key())
			if _, isDel := m.del[uk]; isDel {
				m.underValid = m.underlying.Next()
				continue
			}
			if _, isMem := m.mem[uk]; isMem {
				m.underValid = m.underlying.Next()
				continue
			}
			break
		}
		for m.oi < len(m.overlay) {
			if _, isDel := m.del[m.overlay[m.oi]]; isDel {
				m.oi++
				continue
			}
			break
		}

		haveU := m.underValid
		haveO := m.oi < len(m.overlay)
		if !haveU && !haveO {
			return false
		}

		fromOverlay := haveO && !haveU
		if haveU && haveO {
			uk := string(m.underlying.Key())
			ok := m.overlay[m.oi]
			if (!m.reverse && ok <= uk) || (m.reverse && ok >= uk) {
				fromOverlay = true
			}
		}

		if fromOverlay {
			key := m.overlay[m.oi]
			m.oi++
			v, ok := m.mem[key]
			if !ok {
				continue
			}
			m.key, m.value = []byte(key), v
			return true
		}

		m.key = append([]byte{}, m.underlying.Key()...)
		m.value = append([]byte{}, m.underlying.Value()...)
		m.underValid = m.underlying.Next()
		return true
	}
}

func (m *mergeIterator) Key() []byte   { return m.key }
func (m *mergeIterator) Value() []byte { return m.value }
func (m *mergeIterator) Close() error  { return m.underlying.Close() }
