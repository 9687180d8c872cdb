package engine

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// LevelDBStore is an Engine backed by github.com/syndtr/goleveldb.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if necessary) a LevelDB database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Put implements Engine.
func (s *LevelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Get implements Engine.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Delete implements Engine.
func (s *LevelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// Close implements Engine.
func (s *LevelDBStore) Close() error { return s.db.Close() }

// Iterate implements Engine.
func (s *LevelDBStore) Iterate(start []byte, reverse bool) Iterator {
	it := s.db.NewIterator(nil, nil)
	return &levelDBIterator{it: it, start: start, reverse: reverse, first: true}
}

type levelDBIterator struct {
	it      iterator.Iterator
	start   []byte
	reverse bool
	first   bool
	ok      bool
}

func (it *levelDBIterator) Next() bool {
	if it.first {
		it.first = false
		if it.reverse {
			if len(it.start) == 0 {
				it.ok = it.it.Last()
			} else {
				it.ok = it.it.Seek(it.start)
				if !it.ok {
					it.ok = it.it.Last()
				} else if !bytes.Equal(it.it.Key(), it.start) {
					it.ok = it.it.Prev()
				}
			}
		} else {
			it.ok = it.it.Seek(it.start)
		}
		return it.ok
	}
	if it.reverse {
		it.ok = it.it.Prev()
	} else {
		it.ok = it.it.Next()
	}
	return it.ok
}

func (it *levelDBIterator) Key() []byte   { return it.it.Key() }
func (it *levelDBIterator) Value() []byte { return it.it.Value() }
func (it *levelDBIterator) Close() error  { it.it.Release(); return it.it.Error() }
