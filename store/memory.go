package store

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryStore is an in-memory Store with copy-on-write snapshots.
//
// Readers hold a reference to an immutable version; a writer stages changes
// in an overlay and atomically publishes a new version on commit, so the
// isolation semantics match the file-backed store. Intended for tests and
// ephemeral indexes; commit failures can be injected to exercise atomicity.
type MemoryStore struct {
	current atomic.Pointer[memVersion]

	writerMu sync.Mutex // serializes writable transactions

	failMu     sync.Mutex
	commitFail error

	closed atomic.Bool
}

type memVersion struct {
	buckets map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.current.Store(&memVersion{buckets: map[string]map[string][]byte{}})
	return s
}

// FailNextCommit injects err into the next commit attempt. The failed
// transaction leaves the committed state untouched.
func (s *MemoryStore) FailNextCommit(err error) {
	s.failMu.Lock()
	s.commitFail = err
	s.failMu.Unlock()
}

func (s *MemoryStore) takeCommitFailure() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err := s.commitFail
	s.commitFail = nil
	return err
}

// Begin starts a transaction.
func (s *MemoryStore) Begin(writable bool) (Tx, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if writable {
		s.writerMu.Lock()
	}
	return &memTx{
		store:    s,
		base:     s.current.Load(),
		writable: writable,
		puts:     map[string]map[string][]byte{},
		dels:     map[string]map[string]struct{}{},
		dropped:  map[string]struct{}{},
	}, nil
}

// View runs fn in a read-only transaction.
func (s *MemoryStore) View(fn func(Tx) error) error {
	tx, err := s.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	return fn(tx)
}

// Update runs fn in a writable transaction.
func (s *MemoryStore) Update(fn func(Tx) error) error {
	tx, err := s.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	return tx.Commit()
}

// Size returns the summed size of all keys and values.
func (s *MemoryStore) Size() (int64, error) {
	var n int64
	v := s.current.Load()
	for name, b := range v.buckets {
		n += int64(len(name))
		for k, val := range b {
			n += int64(len(k) + len(val))
		}
	}
	return n, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

type memTx struct {
	store    *MemoryStore
	base     *memVersion
	writable bool
	done     bool

	puts    map[string]map[string][]byte
	dels    map[string]map[string]struct{}
	dropped map[string]struct{}
}

func (t *memTx) Writable() bool { return t.writable }

func (t *memTx) Get(bucket, key []byte) []byte {
	bn, k := string(bucket), string(key)
	if p, ok := t.puts[bn]; ok {
		if v, ok := p[k]; ok {
			return v
		}
	}
	if d, ok := t.dels[bn]; ok {
		if _, ok := d[k]; ok {
			return nil
		}
	}
	if _, ok := t.dropped[bn]; ok {
		return nil
	}
	if b, ok := t.base.buckets[bn]; ok {
		return b[k]
	}
	return nil
}

func (t *memTx) Put(bucket, key, value []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	bn, k := string(bucket), string(key)
	if t.puts[bn] == nil {
		t.puts[bn] = map[string][]byte{}
	}
	t.puts[bn][k] = append([]byte(nil), value...)
	if d, ok := t.dels[bn]; ok {
		delete(d, k)
	}
	return nil
}

func (t *memTx) Delete(bucket, key []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	bn, k := string(bucket), string(key)
	if p, ok := t.puts[bn]; ok {
		delete(p, k)
	}
	if t.dels[bn] == nil {
		t.dels[bn] = map[string]struct{}{}
	}
	t.dels[bn][k] = struct{}{}
	return nil
}

func (t *memTx) Cursor(bucket []byte) Cursor {
	bn := string(bucket)
	keys := make([]string, 0)
	seen := map[string]struct{}{}
	if p, ok := t.puts[bn]; ok {
		for k := range p {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	_, droppedBase := t.dropped[bn]
	if b, ok := t.base.buckets[bn]; ok && !droppedBase {
		for k := range b {
			if _, ok := seen[k]; ok {
				continue
			}
			if d, ok := t.dels[bn]; ok {
				if _, del := d[k]; del {
					continue
				}
			}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return emptyCursor{}
	}
	sort.Strings(keys)
	return &memCursor{tx: t, bucket: bn, keys: keys, pos: -1}
}

func (t *memTx) ForEachBucket(fn func(name []byte) error) error {
	names := map[string]struct{}{}
	for bn := range t.base.buckets {
		if _, ok := t.dropped[bn]; !ok {
			names[bn] = struct{}{}
		}
	}
	for bn, p := range t.puts {
		if len(p) > 0 {
			names[bn] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(names))
	for bn := range names {
		sorted = append(sorted, bn)
	}
	sort.Strings(sorted)
	for _, bn := range sorted {
		if err := fn([]byte(bn)); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) DeleteBucket(name []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	bn := string(name)
	delete(t.puts, bn)
	delete(t.dels, bn)
	t.dropped[bn] = struct{}{}
	return nil
}

func (t *memTx) Commit() error {
	if !t.writable {
		return t.Rollback()
	}
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.writerMu.Unlock()

	if err := t.store.takeCommitFailure(); err != nil {
		return err
	}

	next := &memVersion{buckets: make(map[string]map[string][]byte, len(t.base.buckets))}
	for bn, b := range t.base.buckets {
		if _, ok := t.dropped[bn]; ok {
			continue
		}
		next.buckets[bn] = b
	}
	touched := map[string]struct{}{}
	for bn := range t.puts {
		touched[bn] = struct{}{}
	}
	for bn := range t.dels {
		touched[bn] = struct{}{}
	}
	for bn := range touched {
		clone := map[string][]byte{}
		for k, v := range next.buckets[bn] {
			clone[k] = v
		}
		for k := range t.dels[bn] {
			delete(clone, k)
		}
		for k, v := range t.puts[bn] {
			clone[k] = v
		}
		if len(clone) == 0 {
			delete(next.buckets, bn)
			continue
		}
		next.buckets[bn] = clone
	}

	t.store.current.Store(next)
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.writable {
		t.store.writerMu.Unlock()
	}
	return nil
}

type memCursor struct {
	tx     *memTx
	bucket string
	keys   []string
	pos    int
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = 0
	return c.kv()
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	c.pos = sort.Search(len(c.keys), func(i int) bool {
		return bytes.Compare([]byte(c.keys[i]), seek) >= 0
	})
	return c.kv()
}

func (c *memCursor) Next() ([]byte, []byte) {
	if c.pos < 0 {
		return c.First()
	}
	c.pos++
	return c.kv()
}

func (c *memCursor) kv() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= len(c.keys) {
		return nil, nil
	}
	k := c.keys[c.pos]
	return []byte(k), c.tx.Get([]byte(c.bucket), []byte(k))
}
