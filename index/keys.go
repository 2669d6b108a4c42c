package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Bucket kinds within one named index. Each lexgo index owns one top-level
// store bucket per kind, keeping independently-keyed regions per index.
const (
	KindDocuments     = "docs"
	KindPrimaryKeys   = "pk"
	KindMeta          = "meta"
	KindPostings      = "postings"
	KindPrefixes      = "prefix"
	KindFacets        = "facet"
	KindNumericFacets = "facetnum"
	KindSortable      = "sortable"
)

// AllKinds lists every bucket kind an index owns.
var AllKinds = []string{
	KindDocuments, KindPrimaryKeys, KindMeta, KindPostings,
	KindPrefixes, KindFacets, KindNumericFacets, KindSortable,
}

// fieldSep separates the field name from the rest of a key. Field names must
// not contain it; tokenized words never do since it is a control byte.
const fieldSep = 0x00

// Buckets precomputes the bucket names for one index.
type Buckets struct {
	name string

	Documents     []byte
	PrimaryKeys   []byte
	Meta          []byte
	Postings      []byte
	Prefixes      []byte
	Facets        []byte
	NumericFacets []byte
	Sortable      []byte
}

// NewBuckets returns the bucket set for the index with the given name.
func NewBuckets(name string) Buckets {
	mk := func(kind string) []byte {
		return []byte("lexgo:" + name + ":" + kind)
	}
	return Buckets{
		name:          name,
		Documents:     mk(KindDocuments),
		PrimaryKeys:   mk(KindPrimaryKeys),
		Meta:          mk(KindMeta),
		Postings:      mk(KindPostings),
		Prefixes:      mk(KindPrefixes),
		Facets:        mk(KindFacets),
		NumericFacets: mk(KindNumericFacets),
		Sortable:      mk(KindSortable),
	}
}

// Name returns the index name.
func (b Buckets) Name() string { return b.name }

// ForKind returns the bucket name for kind, or nil for an unknown kind.
func (b Buckets) ForKind(kind string) []byte {
	switch kind {
	case KindDocuments:
		return b.Documents
	case KindPrimaryKeys:
		return b.PrimaryKeys
	case KindMeta:
		return b.Meta
	case KindPostings:
		return b.Postings
	case KindPrefixes:
		return b.Prefixes
	case KindFacets:
		return b.Facets
	case KindNumericFacets:
		return b.NumericFacets
	case KindSortable:
		return b.Sortable
	}
	return nil
}

// All returns every bucket name of the index.
func (b Buckets) All() [][]byte {
	return [][]byte{
		b.Documents, b.PrimaryKeys, b.Meta, b.Postings,
		b.Prefixes, b.Facets, b.NumericFacets, b.Sortable,
	}
}

// ValidateFieldName rejects field names that would collide with the key
// layout.
func ValidateFieldName(field string) error {
	if field == "" {
		return fmt.Errorf("index: empty field name")
	}
	if bytes.IndexByte([]byte(field), fieldSep) >= 0 {
		return fmt.Errorf("index: field name %q contains a reserved byte", field)
	}
	return nil
}

// FieldKey builds a (field, suffix) key.
func FieldKey(field, suffix string) []byte {
	key := make([]byte, 0, len(field)+1+len(suffix))
	key = append(key, field...)
	key = append(key, fieldSep)
	key = append(key, suffix...)
	return key
}

// FieldPrefix returns the key prefix covering every entry of field.
func FieldPrefix(field string) []byte {
	return FieldKey(field, "")
}

// SplitFieldKey splits a key built by FieldKey.
func SplitFieldKey(key []byte) (field, suffix string, ok bool) {
	i := bytes.IndexByte(key, fieldSep)
	if i < 0 {
		return "", "", false
	}
	return string(key[:i]), string(key[i+1:]), true
}

// DocIDKey builds a (field, doc id) key for the sortable bucket.
func DocIDKey(field string, id uint32) []byte {
	key := make([]byte, 0, len(field)+5)
	key = append(key, field...)
	key = append(key, fieldSep)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	return append(key, buf[:]...)
}

// SplitDocIDKey splits a key built by DocIDKey.
func SplitDocIDKey(key []byte) (field string, id uint32, ok bool) {
	i := bytes.IndexByte(key, fieldSep)
	if i < 0 || len(key)-i-1 != 4 {
		return "", 0, false
	}
	return string(key[:i]), binary.BigEndian.Uint32(key[i+1:]), true
}

// NumericKey builds a (field, value) key whose byte order matches the numeric
// order of value, enabling range scans with a plain cursor.
func NumericKey(field string, value float64) []byte {
	key := make([]byte, 0, len(field)+9)
	key = append(key, field...)
	key = append(key, fieldSep)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], EncodeFloatOrdered(value))
	return append(key, buf[:]...)
}

// SplitNumericKey splits a key built by NumericKey.
func SplitNumericKey(key []byte) (field string, value float64, ok bool) {
	i := bytes.IndexByte(key, fieldSep)
	if i < 0 || len(key)-i-1 != 8 {
		return "", 0, false
	}
	return string(key[:i]), DecodeFloatOrdered(binary.BigEndian.Uint64(key[i+1:])), true
}

// EncodeFloatOrdered maps a float64 onto a uint64 whose unsigned order equals
// the numeric order of the input (standard sign-flip trick).
func EncodeFloatOrdered(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// DecodeFloatOrdered reverses EncodeFloatOrdered.
func DecodeFloatOrdered(u uint64) float64 {
	if u&(1<<63) != 0 {
		return math.Float64frombits(u &^ (1 << 63))
	}
	return math.Float64frombits(^u)
}

// MetaKey names a well-known entry in the meta bucket.
type MetaKey string

// Meta bucket entries.
const (
	MetaNextID   MetaKey = "nextid"
	MetaFreeIDs  MetaKey = "freeids"
	MetaAllDocs  MetaKey = "alldocs"
	MetaVersion  MetaKey = "version"
	MetaSchema   MetaKey = "schema"
	MetaSettings MetaKey = "settings"
)
