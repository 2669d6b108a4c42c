// Package docstore persists document bodies and the primary-key mapping.
//
// Internal ids are dense uint32 values allocated from a free list, so an id
// is stable for a document's lifetime and recycled only after deletion. The
// body and the primary-key table are always written in the same transaction,
// so the two cannot diverge.
package docstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/lexgo/codec"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

// ErrNotFound is returned when a document id or primary key is unknown.
var ErrNotFound = errors.New("docstore: document not found")

const (
	bodyRaw = 0x00
	bodyLZ4 = 0x01

	// bodies below this size are stored uncompressed.
	compressThreshold = 256
)

// Store reads and writes document bodies for one index.
type Store struct {
	buckets  index.Buckets
	codec    codec.Codec
	compress bool
}

// Option configures a Store.
type Option func(*Store)

// WithCompression toggles lz4 body compression. Enabled by default.
func WithCompression(enabled bool) Option {
	return func(s *Store) { s.compress = enabled }
}

// New creates a document store over the given bucket set.
func New(buckets index.Buckets, c codec.Codec, opts ...Option) *Store {
	if c == nil {
		c = codec.Default
	}
	s := &Store{buckets: buckets, codec: c, compress: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the document with the given internal id.
func (s *Store) Get(tx store.Tx, id uint32) (document.Document, error) {
	raw := tx.Get(s.buckets.Documents, idKey(id))
	if raw == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.decodeBody(raw)
}

// LookupPK resolves a primary key to its internal id.
func (s *Store) LookupPK(tx store.Tx, pk string) (uint32, bool) {
	raw := tx.Get(s.buckets.PrimaryKeys, []byte(pk))
	if len(raw) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(raw), true
}

// GetByPrimaryKey returns the internal id and document for pk.
func (s *Store) GetByPrimaryKey(tx store.Tx, pk string) (uint32, document.Document, error) {
	id, ok := s.LookupPK(tx, pk)
	if !ok {
		return 0, nil, fmt.Errorf("%w: primary key %q", ErrNotFound, pk)
	}
	doc, err := s.Get(tx, id)
	if err != nil {
		return 0, nil, err
	}
	return id, doc, nil
}

// Put stores the document body and the primary-key mapping.
func (s *Store) Put(tx store.Tx, id uint32, pk string, doc document.Document) error {
	body, err := s.encodeBody(doc)
	if err != nil {
		return err
	}
	if err := tx.Put(s.buckets.Documents, idKey(id), body); err != nil {
		return err
	}
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], id)
	if err := tx.Put(s.buckets.PrimaryKeys, []byte(pk), idBuf[:]); err != nil {
		return err
	}
	return s.updateAllDocs(tx, func(all *index.Bitmap) { all.Add(id) })
}

// Delete removes the body and the primary-key mapping.
func (s *Store) Delete(tx store.Tx, id uint32, pk string) error {
	if err := tx.Delete(s.buckets.Documents, idKey(id)); err != nil {
		return err
	}
	if err := tx.Delete(s.buckets.PrimaryKeys, []byte(pk)); err != nil {
		return err
	}
	return s.updateAllDocs(tx, func(all *index.Bitmap) { all.Remove(id) })
}

// Each visits every stored document in id order.
func (s *Store) Each(tx store.Tx, fn func(id uint32, doc document.Document) error) error {
	c := tx.Cursor(s.buckets.Documents)
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if len(k) != 4 {
			return fmt.Errorf("docstore: malformed document key %x", k)
		}
		doc, err := s.decodeBody(v)
		if err != nil {
			return err
		}
		if err := fn(binary.BigEndian.Uint32(k), doc); err != nil {
			return err
		}
	}
	return nil
}

// AllocateID returns a fresh internal id, reusing released ids first.
func (s *Store) AllocateID(tx store.Tx) (uint32, error) {
	free, err := s.freeIDs(tx)
	if err != nil {
		return 0, err
	}
	if !free.IsEmpty() {
		var id uint32
		for v := range free.All() {
			id = v
			break
		}
		free.Remove(id)
		if err := s.putFreeIDs(tx, free); err != nil {
			return 0, err
		}
		return id, nil
	}

	next := uint32(0)
	if raw := tx.Get(s.buckets.Meta, metaKey(index.MetaNextID)); len(raw) == 4 {
		next = binary.BigEndian.Uint32(raw)
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], next+1)
	if err := tx.Put(s.buckets.Meta, metaKey(index.MetaNextID), buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

// ReleaseID returns a deleted document's id to the free list.
func (s *Store) ReleaseID(tx store.Tx, id uint32) error {
	free, err := s.freeIDs(tx)
	if err != nil {
		return err
	}
	free.Add(id)
	return s.putFreeIDs(tx, free)
}

// AllDocs returns the set of live document ids. The returned bitmap is a
// private copy the caller may mutate.
func (s *Store) AllDocs(tx store.Tx) (*index.Bitmap, error) {
	raw := tx.Get(s.buckets.Meta, metaKey(index.MetaAllDocs))
	if raw == nil {
		return index.NewBitmap(), nil
	}
	return index.DecodeBitmap(raw)
}

// Count returns the number of live documents.
func (s *Store) Count(tx store.Tx) (uint64, error) {
	all, err := s.AllDocs(tx)
	if err != nil {
		return 0, err
	}
	return all.Cardinality(), nil
}

// Version returns the committed index version, bumped on every batch.
func (s *Store) Version(tx store.Tx) uint64 {
	raw := tx.Get(s.buckets.Meta, metaKey(index.MetaVersion))
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

// BumpVersion increments the index version.
func (s *Store) BumpVersion(tx store.Tx) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.Version(tx)+1)
	return tx.Put(s.buckets.Meta, metaKey(index.MetaVersion), buf[:])
}

func (s *Store) updateAllDocs(tx store.Tx, mutate func(*index.Bitmap)) error {
	all, err := s.AllDocs(tx)
	if err != nil {
		return err
	}
	mutate(all)
	data, err := all.Encode()
	if err != nil {
		return err
	}
	return tx.Put(s.buckets.Meta, metaKey(index.MetaAllDocs), data)
}

func (s *Store) freeIDs(tx store.Tx) (*index.Bitmap, error) {
	raw := tx.Get(s.buckets.Meta, metaKey(index.MetaFreeIDs))
	if raw == nil {
		return index.NewBitmap(), nil
	}
	return index.DecodeBitmap(raw)
}

func (s *Store) putFreeIDs(tx store.Tx, free *index.Bitmap) error {
	data, err := free.Encode()
	if err != nil {
		return err
	}
	return tx.Put(s.buckets.Meta, metaKey(index.MetaFreeIDs), data)
}

func (s *Store) encodeBody(doc document.Document) ([]byte, error) {
	payload, err := s.codec.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	if !s.compress || len(payload) < compressThreshold {
		return append([]byte{bodyRaw}, payload...), nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(payload)))
	var c lz4.Compressor
	n, err := c.CompressBlock(payload, dst)
	if err != nil || n == 0 || n >= len(payload) {
		// Incompressible; store raw.
		return append([]byte{bodyRaw}, payload...), nil
	}

	out := make([]byte, 0, n+10)
	out = append(out, bodyLZ4)
	out = binary.AppendUvarint(out, uint64(len(payload)))
	return append(out, dst[:n]...), nil
}

func (s *Store) decodeBody(raw []byte) (document.Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("docstore: empty document body")
	}
	payload := raw[1:]
	switch raw[0] {
	case bodyRaw:
	case bodyLZ4:
		origLen, n := binary.Uvarint(payload)
		if n <= 0 {
			return nil, fmt.Errorf("docstore: corrupt compressed body")
		}
		dst := make([]byte, origLen)
		if _, err := lz4.UncompressBlock(payload[n:], dst); err != nil {
			return nil, fmt.Errorf("docstore: decompress body: %w", err)
		}
		payload = dst
	default:
		return nil, fmt.Errorf("docstore: unknown body encoding 0x%02x", raw[0])
	}

	var doc document.Document
	if err := s.codec.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("docstore: decode document: %w", err)
	}
	return doc, nil
}

func idKey(id uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	return buf[:]
}

func metaKey(k index.MetaKey) []byte { return []byte(k) }
