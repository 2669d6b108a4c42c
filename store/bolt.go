package store

import (
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is the file-backed Store implementation on top of bbolt.
//
// bbolt provides exactly the durability contract lexgo needs: a single-file
// B+tree with one writer, MVCC readers on committed snapshots, and atomic
// multi-bucket commits.
type BoltStore struct {
	db   *bolt.DB
	path string
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens (or creates) the store file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &BoltStore{db: db, path: path}, nil
}

// Begin starts a transaction.
func (s *BoltStore) Begin(writable bool) (Tx, error) {
	btx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltTx{tx: btx}, nil
}

// View runs fn in a read-only transaction.
func (s *BoltStore) View(fn func(Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// Update runs fn in a writable transaction.
func (s *BoltStore) Update(fn func(Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// Size returns the store file size in bytes.
func (s *BoltStore) Size() (int64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Path returns the store file path.
func (s *BoltStore) Path() string { return s.path }

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) Writable() bool { return t.tx.Writable() }

func (t *boltTx) Get(bucket, key []byte) []byte {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.Get(key)
}

func (t *boltTx) Put(bucket, key, value []byte) error {
	if !t.tx.Writable() {
		return ErrTxNotWritable
	}
	b, err := t.tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t *boltTx) Delete(bucket, key []byte) error {
	if !t.tx.Writable() {
		return ErrTxNotWritable
	}
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

func (t *boltTx) Cursor(bucket []byte) Cursor {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return emptyCursor{}
	}
	return &boltCursor{c: b.Cursor()}
}

func (t *boltTx) ForEachBucket(fn func(name []byte) error) error {
	return t.tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
		return fn(name)
	})
}

func (t *boltTx) DeleteBucket(name []byte) error {
	if !t.tx.Writable() {
		return ErrTxNotWritable
	}
	if t.tx.Bucket(name) == nil {
		return nil
	}
	return t.tx.DeleteBucket(name)
}

func (t *boltTx) Commit() error   { return t.tx.Commit() }
func (t *boltTx) Rollback() error { return t.tx.Rollback() }

type boltCursor struct {
	c *bolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte)           { return c.c.First() }
func (c *boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }
func (c *boltCursor) Next() ([]byte, []byte)            { return c.c.Next() }
