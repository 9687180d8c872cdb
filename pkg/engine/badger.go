package engine

import (
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore is an Engine backed by github.com/dgraph-io/badger/v4.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if necessary) a Badger database at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

// Put implements Engine.
func (s *BadgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get implements Engine.
func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements Engine.
func (s *BadgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Close implements Engine.
func (s *BadgerStore) Close() error { return s.db.Close() }

// Iterate implements Engine. Badger's native reverse iterator already
// seeks to the largest key <= start, so unlike BoltStore/LevelDBStore no
// overshoot correction is needed here.
func (s *BadgerStore) Iterate(start []byte, reverse bool) Iterator {
	txn := s.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	it := txn.NewIterator(opts)

	seek := start
	if reverse && len(start) == 0 {
		seek = []byte{0xFF}
	}
	it.Seek(seek)
	return &badgerIterator{txn: txn, it: it, first: true}
}

type badgerIterator struct {
	txn   *badger.Txn
	it    *badger.Iterator
	first bool
}

func (it *badgerIterator) Next() bool {
	if it.first {
		it.first = false
	} else {
		it.it.Next()
	}
	return it.it.Valid()
}

func (it *badgerIterator) Key() []byte { return it.it.Item().KeyCopy(nil) }
func (it *badgerIterator) Value() []byte {
	v, _ := it.it.Item().ValueCopy(nil)
	return v
}
func (it *badgerIterator) Close() error {
	it.it.Close()
	it.txn.Discard()
	return nil
}
