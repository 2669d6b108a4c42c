// Package indexer turns document-level batch operations into minimal deltas
// on the derived indexes.
//
// A batch is replayed into a final per-primary-key outcome first, then each
// affected document is diffed against its committed state. All postings,
// prefix, facet and sortable mutations are accumulated in memory and flushed
// with exactly one read-modify-write per touched key, however many documents
// in the batch touched it.
package indexer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/lexgo/analysis"
	"github.com/hupe1980/lexgo/docstore"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/filter"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

var (
	// ErrMissingPrimaryKey is returned when a document lacks the primary-key field.
	ErrMissingPrimaryKey = errors.New("indexer: document missing primary key")

	// ErrInvalidPrimaryKey is returned when the primary-key value is neither a
	// string nor an integral number.
	ErrInvalidPrimaryKey = errors.New("indexer: invalid primary key value")

	// ErrDuplicatePrimaryKey is returned when two additions in one batch carry
	// the same primary key.
	ErrDuplicatePrimaryKey = errors.New("indexer: duplicate primary key in batch")
)

type opKind uint8

const (
	opPut opKind = iota
	opDeleteKey
	opDeleteFilter
)

type operation struct {
	kind opKind
	doc  document.Document
	pk   string
	node filter.Node
}

// Batch is an ordered sequence of update operations. It is built by the
// caller, applied once and then discarded.
type Batch struct {
	ops []operation
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// AddOrReplace queues a document addition. A document whose primary key is
// already indexed replaces the stored one.
func (b *Batch) AddOrReplace(doc document.Document) *Batch {
	b.ops = append(b.ops, operation{kind: opPut, doc: doc})
	return b
}

// DeleteByKey queues a deletion by primary key. Deleting an unknown key is a
// no-op.
func (b *Batch) DeleteByKey(pk string) *Batch {
	b.ops = append(b.ops, operation{kind: opDeleteKey, pk: pk})
	return b
}

// DeleteByFilter queues a deletion of every committed document matching the
// filter. Documents added earlier in the same batch are not yet visible to
// the filter and are unaffected.
func (b *Batch) DeleteByFilter(node filter.Node) *Batch {
	b.ops = append(b.ops, operation{kind: opDeleteFilter, node: node})
	return b
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Failure records a document rejected during validation.
type Failure struct {
	Ordinal    int
	PrimaryKey string
	Err        error
}

// Report summarizes an applied batch.
type Report struct {
	Indexed  int
	Replaced int
	Deleted  int
	Failures []Failure
}

// Indexer applies batches for a single named index.
type Indexer struct {
	buckets  index.Buckets
	docs     *docstore.Store
	analyzer *analysis.Analyzer
	schema   document.Schema
	settings document.Settings

	skipInvalid bool
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithPerDocumentFailures makes validation failures skip the offending
// document instead of aborting the whole batch. The skipped documents are
// listed in the report.
func WithPerDocumentFailures() Option {
	return func(ix *Indexer) { ix.skipInvalid = true }
}

// New creates an indexer over the given bucket set.
func New(buckets index.Buckets, docs *docstore.Store, analyzer *analysis.Analyzer, schema document.Schema, settings document.Settings, opts ...Option) *Indexer {
	ix := &Indexer{
		buckets:  buckets,
		docs:     docs,
		analyzer: analyzer,
		schema:   schema,
		settings: settings,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// pending is the final outcome for one primary key after replaying the batch.
type pending struct {
	ordinal int
	doc     document.Document // nil means delete
}

// Apply runs the batch inside tx. On error nothing is committed; the caller
// owns the transaction and must roll it back.
func (ix *Indexer) Apply(tx store.Tx, b *Batch) (*Report, error) {
	report := &Report{}

	final := map[string]*pending{}
	order := []string{}
	record := func(pk string, p *pending) {
		if _, seen := final[pk]; !seen {
			order = append(order, pk)
		}
		final[pk] = p
	}

	for i, op := range b.ops {
		switch op.kind {
		case opPut:
			pk, err := ix.validate(op.doc)
			if err == nil {
				if prev, ok := final[pk]; ok && prev.doc != nil {
					err = fmt.Errorf("%w: %q (documents %d and %d)", ErrDuplicatePrimaryKey, pk, prev.ordinal, i)
				}
			}
			if err != nil {
				if !ix.skipInvalid {
					return nil, fmt.Errorf("indexer: document %d: %w", i, err)
				}
				report.Failures = append(report.Failures, Failure{Ordinal: i, PrimaryKey: pk, Err: err})
				continue
			}
			record(pk, &pending{ordinal: i, doc: op.doc})
		case opDeleteKey:
			record(op.pk, &pending{ordinal: i})
		case opDeleteFilter:
			pks, err := ix.resolveFilter(tx, op.node)
			if err != nil {
				return nil, err
			}
			for _, pk := range pks {
				record(pk, &pending{ordinal: i})
			}
		}
	}

	// Replay order is irrelevant once per-key outcomes are fixed; sorting
	// keeps store writes deterministic.
	sort.Strings(order)

	acc := newDeltaAccumulator()
	for _, pk := range order {
		p := final[pk]
		if p.doc == nil {
			deleted, err := ix.applyDelete(tx, pk, acc)
			if err != nil {
				return nil, err
			}
			if deleted {
				report.Deleted++
			}
			continue
		}
		replaced, err := ix.applyPut(tx, pk, p.doc, acc)
		if err != nil {
			return nil, err
		}
		if replaced {
			report.Replaced++
		} else {
			report.Indexed++
		}
	}

	if err := acc.flush(tx, ix.buckets); err != nil {
		return nil, err
	}
	if err := ix.docs.BumpVersion(tx); err != nil {
		return nil, err
	}
	return report, nil
}

// validate checks schema conformance and extracts the primary key.
func (ix *Indexer) validate(doc document.Document) (string, error) {
	v, ok := doc[ix.settings.PrimaryKey]
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrMissingPrimaryKey, ix.settings.PrimaryKey)
	}
	pk, ok := document.PrimaryKeyString(v)
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrInvalidPrimaryKey, ix.settings.PrimaryKey)
	}
	if err := ix.schema.ValidateDocument(doc); err != nil {
		return pk, err
	}
	return pk, nil
}

func (ix *Indexer) resolveFilter(tx store.Tx, node filter.Node) ([]string, error) {
	universe, err := ix.docs.AllDocs(tx)
	if err != nil {
		return nil, err
	}
	matched, err := filter.Evaluate(tx, ix.buckets, node, universe)
	if err != nil {
		return nil, err
	}
	var pks []string
	for id := range matched.All() {
		doc, err := ix.docs.Get(tx, id)
		if err != nil {
			return nil, err
		}
		pk, ok := document.PrimaryKeyString(doc[ix.settings.PrimaryKey])
		if !ok {
			return nil, fmt.Errorf("indexer: stored document %d has no usable primary key", id)
		}
		pks = append(pks, pk)
	}
	return pks, nil
}

// applyPut stores the new body and records index deltas against the old one.
// Replacing a document under the same primary key is a delete-then-add for
// diffing purposes, so words dropped by the new version lose their postings.
func (ix *Indexer) applyPut(tx store.Tx, pk string, doc document.Document, acc *deltaAccumulator) (replaced bool, err error) {
	var (
		id  uint32
		old document.Document
	)
	if existing, ok := ix.docs.LookupPK(tx, pk); ok {
		replaced = true
		id = existing
		if old, err = ix.docs.Get(tx, id); err != nil {
			return false, err
		}
	} else {
		if id, err = ix.docs.AllocateID(tx); err != nil {
			return false, err
		}
	}

	if old != nil {
		ix.accumulateRemoval(acc, id, old)
	}
	ix.accumulateAddition(acc, id, doc)

	if err := ix.docs.Put(tx, id, pk, doc); err != nil {
		return false, err
	}
	return replaced, nil
}

func (ix *Indexer) applyDelete(tx store.Tx, pk string, acc *deltaAccumulator) (bool, error) {
	id, ok := ix.docs.LookupPK(tx, pk)
	if !ok {
		return false, nil
	}
	old, err := ix.docs.Get(tx, id)
	if err != nil {
		return false, err
	}
	ix.accumulateRemoval(acc, id, old)
	if err := ix.docs.Delete(tx, id, pk); err != nil {
		return false, err
	}
	if err := ix.docs.ReleaseID(tx, id); err != nil {
		return false, err
	}
	return true, nil
}

// fieldWords maps field name to word to the word's positions in that field.
type fieldWords map[string]map[string][]uint32

// extract tokenizes every searchable field of the document.
func (ix *Indexer) extract(doc document.Document) fieldWords {
	out := fieldWords{}
	for _, field := range ix.schema.SearchableFields() {
		v, ok := doc[field]
		if !ok {
			continue
		}
		text := v.Text()
		if text == "" {
			continue
		}
		words := map[string][]uint32{}
		for _, tok := range ix.analyzer.Tokenize(text) {
			words[tok.Word] = append(words[tok.Word], tok.Position)
		}
		if len(words) > 0 {
			out[field] = words
		}
	}
	return out
}

func (ix *Indexer) accumulateAddition(acc *deltaAccumulator, id uint32, doc document.Document) {
	for field, words := range ix.extract(doc) {
		for word, positions := range words {
			acc.addPosting(field, word, id, positions)
		}
	}
	for field, def := range ix.schema {
		v, ok := doc[field]
		if !ok {
			continue
		}
		if def.Facet {
			for _, fv := range document.FacetValues(v) {
				acc.addFacet(field, fv, id)
			}
		}
		if def.Sortable {
			acc.putSortable(field, id, v)
		}
	}
}

func (ix *Indexer) accumulateRemoval(acc *deltaAccumulator, id uint32, doc document.Document) {
	for field, words := range ix.extract(doc) {
		for word := range words {
			acc.removePosting(field, word, id)
		}
	}
	for field, def := range ix.schema {
		v, ok := doc[field]
		if !ok {
			continue
		}
		if def.Facet {
			for _, fv := range document.FacetValues(v) {
				acc.removeFacet(field, fv, id)
			}
		}
		if def.Sortable {
			acc.deleteSortable(field, id)
		}
	}
}
