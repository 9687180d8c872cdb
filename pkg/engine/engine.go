// Package engine supplies the abstract ordered byte-KV engine that
// pkg/store is built on (component C2 of the design), together with
// several concrete backends. pkg/store depends only on the Engine and Txn
// interfaces declared here; nothing in pkg/store imports a specific
// backend.
package engine

import "errors"

// ErrKeyNotFound is returned by Get when no value is stored under key.
var ErrKeyNotFound = errors.New("engine: key not found")

// Engine is an ordered byte-oriented key-value store. Put/Get/Delete are
// the point operations; Iterate opens a cursor over the whole keyspace
// starting at start (or at the very first/last key when start is empty),
// moving forward or backward in byte order.
//
// When reverse is false, Iterate yields entries with key >= start in
// ascending order. When reverse is true, it yields entries with key <=
// start in descending order, including start itself if present -- this
// matches the contract pkg/store's cursor layer is written against.
type Engine interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Iterate(start []byte, reverse bool) Iterator
	Close() error
}

// Iterator is a lazy, single-direction cursor over an Engine's keyspace.
// Callers must not retain the slices returned by Key/Value past the next
// call to Next -- implementations are free to reuse backing buffers, the
// same reused-result contract pkg/store's own Cursor exposes one layer up.
type Iterator interface {
	// Next advances the iterator and reports whether a further entry is
	// available. It must be called once before the first Key/Value.
	Next() bool
	Key() []byte
	Value() []byte
	// Close releases any resources held by the iterator (an open
	// transaction snapshot, a cursor handle, ...).
	Close() error
}

// Txn is an engine handle scoped to a single atomic unit of work. It
// exposes the same Put/Get/Delete/Iterate surface as Engine so that
// pkg/store's operations can be written once and either run directly
// against an Engine or routed through a Txn. ID is used purely for log
// correlation.
type Txn interface {
	Engine
	ID() uint64
}
