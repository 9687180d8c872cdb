package engine

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("default")

// BoltStore is an Engine backed by go.etcd.io/bbolt.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Put implements Engine.
func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

// Get implements Engine.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements Engine.
func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

// Close implements Engine.
func (s *BoltStore) Close() error { return s.db.Close() }

// Iterate implements Engine. The returned iterator owns a long-lived read
// transaction, released on Close.
func (s *BoltStore) Iterate(start []byte, reverse bool) Iterator {
	tx, err := s.db.Begin(false)
	if err != nil {
		return &errIterator{err: err}
	}
	c := tx.Bucket(boltBucket).Cursor()
	return &boltIterator{tx: tx, c: c, start: start, reverse: reverse, first: true}
}

type boltIterator struct {
	tx      *bolt.Tx
	c       *bolt.Cursor
	start   []byte
	reverse bool
	first   bool
	key, val []byte
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if it.first {
		it.first = false
		if it.reverse {
			if len(it.start) == 0 {
				k, v = it.c.Last()
			} else {
				k, v = it.c.Seek(it.start)
				if k == nil {
					k, v = it.c.Last()
				} else if !bytes.Equal(k, it.start) {
					k, v = it.c.Prev()
				}
			}
		} else {
			k, v = it.c.Seek(it.start)
		}
	} else if it.reverse {
		k, v = it.c.Prev()
	} else {
		k, v = it.c.Next()
	}
	if k == nil {
		return false
	}
	it.key, it.val = append([]byte{}, k...), append([]byte{}, v...)
	return true
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.val }
func (it *boltIterator) Close() error  { return it.tx.Rollback() }

// errIterator is a degenerate Iterator returned when opening a cursor
// fails; Next always reports false.
type errIterator struct{ err error }

func (errIterator) Next() bool    { return false }
func (errIterator) Key() []byte   { return nil }
func (errIterator) Value() []byte { return nil }
func (errIterator) Close() error  { return nil }
