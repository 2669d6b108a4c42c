package indexer

import (
	"fmt"
	"sort"

	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

// postingDelta is the net per-document change for one (field, word) entry.
// A document present in adds wins over an earlier removal, so a replaced
// document ends up with its new positions only.
type postingDelta struct {
	adds map[uint32][]uint32
	dels map[uint32]struct{}
}

// bitmapDelta is the net membership change for one bitmap-valued entry.
type bitmapDelta struct {
	adds map[uint32]struct{}
	dels map[uint32]struct{}
}

// deltaAccumulator gathers all derived-index mutations of one batch so every
// touched key is read and written exactly once at flush time.
type deltaAccumulator struct {
	postings map[string]*postingDelta // key: field \x00 word
	facets   map[string]*bitmapDelta  // key: field \x00 value key
	numeric  map[string]*bitmapDelta  // key: field \x00 ordered float
	sortable map[string][]byte        // key: field \x00 doc id; nil value deletes
}

func newDeltaAccumulator() *deltaAccumulator {
	return &deltaAccumulator{
		postings: map[string]*postingDelta{},
		facets:   map[string]*bitmapDelta{},
		numeric:  map[string]*bitmapDelta{},
		sortable: map[string][]byte{},
	}
}

func (acc *deltaAccumulator) addPosting(field, word string, id uint32, positions []uint32) {
	key := string(index.FieldKey(field, word))
	d := acc.postings[key]
	if d == nil {
		d = &postingDelta{adds: map[uint32][]uint32{}, dels: map[uint32]struct{}{}}
		acc.postings[key] = d
	}
	delete(d.dels, id)
	d.adds[id] = positions
}

func (acc *deltaAccumulator) removePosting(field, word string, id uint32) {
	key := string(index.FieldKey(field, word))
	d := acc.postings[key]
	if d == nil {
		d = &postingDelta{adds: map[uint32][]uint32{}, dels: map[uint32]struct{}{}}
		acc.postings[key] = d
	}
	delete(d.adds, id)
	d.dels[id] = struct{}{}
}

func (acc *deltaAccumulator) addFacet(field string, v document.Value, id uint32) {
	bitmapAdd(acc.facets, string(index.FieldKey(field, v.Key())), id)
	if v.Kind == document.KindNumber {
		bitmapAdd(acc.numeric, string(index.NumericKey(field, v.Num)), id)
	}
}

func (acc *deltaAccumulator) removeFacet(field string, v document.Value, id uint32) {
	bitmapRemove(acc.facets, string(index.FieldKey(field, v.Key())), id)
	if v.Kind == document.KindNumber {
		bitmapRemove(acc.numeric, string(index.NumericKey(field, v.Num)), id)
	}
}

func (acc *deltaAccumulator) putSortable(field string, id uint32, v document.Value) {
	acc.sortable[string(index.DocIDKey(field, id))] = []byte(v.Key())
}

func (acc *deltaAccumulator) deleteSortable(field string, id uint32) {
	key := string(index.DocIDKey(field, id))
	if _, ok := acc.sortable[key]; !ok {
		acc.sortable[key] = nil
	}
}

func bitmapAdd(m map[string]*bitmapDelta, key string, id uint32) {
	d := m[key]
	if d == nil {
		d = &bitmapDelta{adds: map[uint32]struct{}{}, dels: map[uint32]struct{}{}}
		m[key] = d
	}
	delete(d.dels, id)
	d.adds[id] = struct{}{}
}

func bitmapRemove(m map[string]*bitmapDelta, key string, id uint32) {
	d := m[key]
	if d == nil {
		d = &bitmapDelta{adds: map[uint32]struct{}{}, dels: map[uint32]struct{}{}}
		m[key] = d
	}
	delete(d.adds, id)
	d.dels[id] = struct{}{}
}

// flush writes every accumulated delta. Postings and the word dictionary are
// kept in lockstep: a (field, word) entry exists in the prefix bucket exactly
// when it has a non-empty posting list.
func (acc *deltaAccumulator) flush(tx store.Tx, buckets index.Buckets) error {
	for _, key := range sortedKeys(acc.postings) {
		d := acc.postings[key]
		if err := flushPostings(tx, buckets, []byte(key), d); err != nil {
			return err
		}
	}
	if err := flushBitmaps(tx, buckets.Facets, acc.facets); err != nil {
		return err
	}
	if err := flushBitmaps(tx, buckets.NumericFacets, acc.numeric); err != nil {
		return err
	}
	for _, key := range sortedKeys(acc.sortable) {
		v := acc.sortable[key]
		if v == nil {
			if err := tx.Delete(buckets.Sortable, []byte(key)); err != nil {
				return err
			}
			continue
		}
		if err := tx.Put(buckets.Sortable, []byte(key), v); err != nil {
			return err
		}
	}
	return nil
}

func flushPostings(tx store.Tx, buckets index.Buckets, key []byte, d *postingDelta) error {
	var pl index.PostingList
	if raw := tx.Get(buckets.Postings, key); raw != nil {
		var err error
		if pl, err = index.DecodePostings(raw); err != nil {
			return fmt.Errorf("indexer: postings %q: %w", key, err)
		}
	}
	for id := range d.dels {
		pl = pl.Remove(id)
	}
	for _, id := range sortedIDs(d.adds) {
		pl = pl.Upsert(id, d.adds[id])
	}

	dict, err := loadBitmap(tx, buckets.Prefixes, key)
	if err != nil {
		return err
	}
	for id := range d.dels {
		dict.Remove(id)
	}
	for id := range d.adds {
		dict.Add(id)
	}

	if len(pl) == 0 {
		if err := tx.Delete(buckets.Postings, key); err != nil {
			return err
		}
		return tx.Delete(buckets.Prefixes, key)
	}
	if err := tx.Put(buckets.Postings, key, index.EncodePostings(pl)); err != nil {
		return err
	}
	data, err := dict.Encode()
	if err != nil {
		return err
	}
	return tx.Put(buckets.Prefixes, key, data)
}

func flushBitmaps(tx store.Tx, bucket []byte, deltas map[string]*bitmapDelta) error {
	for _, key := range sortedKeys(deltas) {
		d := deltas[key]
		set, err := loadBitmap(tx, bucket, []byte(key))
		if err != nil {
			return err
		}
		for id := range d.dels {
			set.Remove(id)
		}
		for id := range d.adds {
			set.Add(id)
		}
		if set.IsEmpty() {
			if err := tx.Delete(bucket, []byte(key)); err != nil {
				return err
			}
			continue
		}
		data, err := set.Encode()
		if err != nil {
			return err
		}
		if err := tx.Put(bucket, []byte(key), data); err != nil {
			return err
		}
	}
	return nil
}

func loadBitmap(tx store.Tx, bucket, key []byte) (*index.Bitmap, error) {
	raw := tx.Get(bucket, key)
	if raw == nil {
		return index.NewBitmap(), nil
	}
	return index.DecodeBitmap(raw)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIDs[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
