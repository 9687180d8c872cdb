package engine

import (
	lru "github.com/hashicorp/golang-lru"
)

// CachedStore wraps an Engine with a bounded read-through LRU cache for
// point lookups. Iterate always falls through to the wrapped engine since
// a cache of individual keys cannot usefully serve a range scan.
type CachedStore struct {
	Engine
	cache *lru.Cache
}

// NewCachedStore wraps ps with an LRU cache holding up to size entries.
func NewCachedStore(ps Engine, size int) (*CachedStore, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Engine: ps, cache: c}, nil
}

// Get implements Engine.
func (s *CachedStore) Get(key []byte) ([]byte, error) {
	if v, ok := s.cache.Get(string(key)); ok {
		if v == nil {
			return nil, ErrKeyNotFound
		}
		return append([]byte{}, v.([]byte)...), nil
	}
	v, err := s.Engine.Get(key)
	if err == ErrKeyNotFound {
		s.cache.Add(string(key), nil)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.cache.Add(string(key), v)
	return v, nil
}

// Put implements Engine.
func (s *CachedStore) Put(key, value []byte) error {
	if err := s.Engine.Put(key, value); err != nil {
		return err
	}
	s.cache.Add(string(key), append([]byte{}, value...))
	return nil
}

// Delete implements Engine.
func (s *CachedStore) Delete(key []byte) error {
	if err := s.Engine.Delete(key); err != nil {
		return err
	}
	s.cache.Remove(string(key))
	return nil
}
