// Package store provides the durable, transactional key-value substrate that
// every lexgo index structure is built on.
//
// The contract is deliberately narrow: an ordered key space partitioned into
// named buckets, at most one live write transaction, and any number of
// concurrent read transactions that observe the last committed state
// (snapshot isolation). Commit is atomic; a failed commit leaves the prior
// state intact.
package store

import "errors"

var (
	// ErrTxNotWritable is returned when a mutation is attempted on a
	// read-only transaction.
	ErrTxNotWritable = errors.New("store: transaction is not writable")

	// ErrStoreClosed is returned when the store has been closed.
	ErrStoreClosed = errors.New("store: closed")
)

// Store is a transactional ordered key-value store.
type Store interface {
	// Begin starts a transaction. A writable transaction blocks until it is
	// the only writer; read-only transactions never block.
	Begin(writable bool) (Tx, error)

	// View runs fn in a read-only transaction.
	View(fn func(Tx) error) error

	// Update runs fn in a writable transaction, committing on nil return and
	// rolling back otherwise.
	Update(fn func(Tx) error) error

	// Size returns the on-disk (or in-memory) size in bytes.
	Size() (int64, error)

	Close() error
}

// Tx is a transaction over the bucketed key space. Returned byte slices are
// only valid until the transaction ends.
type Tx interface {
	Writable() bool

	// Get returns the value for key in bucket, or nil if absent.
	Get(bucket, key []byte) []byte

	// Put stores key=value in bucket, creating the bucket if needed.
	Put(bucket, key, value []byte) error

	// Delete removes key from bucket. Deleting an absent key is a no-op.
	Delete(bucket, key []byte) error

	// Cursor returns an ordered cursor over bucket. A missing bucket yields
	// an empty cursor.
	Cursor(bucket []byte) Cursor

	// ForEachBucket visits every bucket name in lexicographic order.
	ForEachBucket(fn func(name []byte) error) error

	// DeleteBucket removes an entire bucket. Missing buckets are a no-op.
	DeleteBucket(name []byte) error

	Commit() error
	Rollback() error
}

// Cursor iterates a bucket in key order.
type Cursor interface {
	// First positions at the first key.
	First() (key, value []byte)

	// Seek positions at the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next advances; returns nil, nil when exhausted.
	Next() (key, value []byte)
}

// emptyCursor is returned for missing buckets.
type emptyCursor struct{}

func (emptyCursor) First() ([]byte, []byte)      { return nil, nil }
func (emptyCursor) Seek([]byte) ([]byte, []byte) { return nil, nil }
func (emptyCursor) Next() ([]byte, []byte)       { return nil, nil }
