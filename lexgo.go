package lexgo

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/engine"
	"github.com/hupe1980/lexgo/filter"
	"github.com/hupe1980/lexgo/indexer"
	"github.com/hupe1980/lexgo/resource"
	"github.com/hupe1980/lexgo/store"
)

// DB is an embedded search database holding any number of named indexes
// inside one durable store.
type DB struct {
	st   store.Store
	opts options
	rc   *resource.Controller

	mu      sync.Mutex
	indexes map[string]*Index
	closed  atomic.Bool
}

// Open opens (or creates) the database file at path. With WithInMemory the
// path is ignored and a volatile store is used instead.
func Open(path string, optFns ...Option) (*DB, error) {
	opts := applyOptions(optFns)

	var (
		st  store.Store
		err error
	)
	if opts.inMemory {
		st = store.NewMemoryStore()
	} else {
		if path == "" {
			return nil, fmt.Errorf("lexgo: open: empty path (use WithInMemory for a volatile store)")
		}
		st, err = store.OpenBolt(path)
		if err != nil {
			return nil, err
		}
	}

	db := &DB{
		st:      st,
		opts:    opts,
		rc:      resource.NewController(opts.resourceConfig),
		indexes: map[string]*Index{},
	}
	db.opts.logger.LogOpen(path, opts.inMemory)
	return db, nil
}

// Index returns a handle for the named index, creating it on first use.
// Handles are cached; repeated calls with the same name return the same
// handle.
func (db *DB) Index(name string) (*Index, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if name == "" {
		return nil, fmt.Errorf("lexgo: empty index name")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if ix, ok := db.indexes[name]; ok {
		return ix, nil
	}

	engOpts := []engine.Option{
		engine.WithCodec(db.opts.codec),
		engine.WithLogger(db.opts.logger.Logger),
		engine.WithResourceController(db.rc),
		engine.WithCompression(db.opts.compression),
	}
	if db.opts.cacheSize > 0 {
		engOpts = append(engOpts, engine.WithPostingsCacheSize(db.opts.cacheSize))
	}
	if db.opts.perDocument {
		engOpts = append(engOpts, engine.WithPerDocumentFailures())
	}

	eng, err := engine.New(db.st, name, engOpts...)
	if err != nil {
		return nil, translateError(err)
	}
	ix := &Index{eng: eng}
	db.indexes[name] = ix
	return ix, nil
}

// Indexes lists the names of the indexes opened through this handle.
func (db *DB) Indexes() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.indexes))
	for name := range db.indexes {
		names = append(names, name)
	}
	return names
}

// Index is one named index of a DB. All methods are safe for concurrent use;
// reads never block behind writes.
type Index struct {
	eng *engine.Engine
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.eng.Name() }

// SetSchema declares the fields of the index and reindexes existing
// documents under the new declaration.
func (ix *Index) SetSchema(ctx context.Context, schema document.Schema) error {
	return translateError(ix.eng.SetSchema(ctx, schema))
}

// Schema returns a copy of the current field schema.
func (ix *Index) Schema() document.Schema { return ix.eng.Schema() }

// SetSettings replaces the index settings and reindexes existing documents.
func (ix *Index) SetSettings(ctx context.Context, settings document.Settings) error {
	return translateError(ix.eng.SetSettings(ctx, settings))
}

// Settings returns the current settings.
func (ix *Index) Settings() document.Settings { return ix.eng.Settings() }

// AddDocuments adds or replaces the given documents in one atomic batch.
func (ix *Index) AddDocuments(ctx context.Context, docs ...document.Document) (*indexer.Report, error) {
	b := indexer.NewBatch()
	for _, doc := range docs {
		b.AddOrReplace(doc)
	}
	return ix.ApplyBatch(ctx, b)
}

// DeleteDocuments removes documents by primary key. Unknown keys are
// ignored.
func (ix *Index) DeleteDocuments(ctx context.Context, pks ...string) (*indexer.Report, error) {
	b := indexer.NewBatch()
	for _, pk := range pks {
		b.DeleteByKey(pk)
	}
	return ix.ApplyBatch(ctx, b)
}

// DeleteByFilter removes every document matching the filter expression.
func (ix *Index) DeleteByFilter(ctx context.Context, expr string) (*indexer.Report, error) {
	node, err := filter.Parse(expr, ix.eng.Schema())
	if err != nil {
		return nil, translateError(err)
	}
	return ix.ApplyBatch(ctx, indexer.NewBatch().DeleteByFilter(node))
}

// ApplyBatch applies a mixed batch of additions and deletions as one
// transaction.
func (ix *Index) ApplyBatch(ctx context.Context, b *indexer.Batch) (*indexer.Report, error) {
	report, err := ix.eng.ApplyBatch(ctx, b)
	return report, translateError(err)
}

// EnqueueBatch applies a batch asynchronously and returns a task id for
// polling.
func (ix *Index) EnqueueBatch(ctx context.Context, b *indexer.Batch) (uuid.UUID, error) {
	id, err := ix.eng.EnqueueBatch(ctx, b)
	return id, translateError(err)
}

// Task reports the state of an asynchronous batch.
func (ix *Index) Task(id uuid.UUID) (engine.Task, bool) {
	return ix.eng.Task(id)
}

// GetDocument fetches a stored document by primary key.
func (ix *Index) GetDocument(pk string) (document.Document, error) {
	doc, err := ix.eng.GetDocument(pk)
	return doc, translateError(err)
}

// Search runs a full request against the index.
func (ix *Index) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResponse, error) {
	resp, err := ix.eng.Search(ctx, req)
	return resp, translateError(err)
}

// FacetDistribution counts the values of one facet field across the
// (optionally filtered) document set.
func (ix *Index) FacetDistribution(ctx context.Context, field, filterExpr string) (map[string]uint64, error) {
	dist, err := ix.eng.FacetDistribution(ctx, field, filterExpr)
	return dist, translateError(err)
}

// Stats returns a point-in-time view of the index.
func (ix *Index) Stats() (engine.Stats, error) {
	stats, err := ix.eng.Stats()
	return stats, translateError(err)
}

// IntegrityCheck verifies the derived index structures against the stored
// documents and reports any divergence.
func (ix *Index) IntegrityCheck(ctx context.Context) ([]indexer.Problem, error) {
	problems, err := ix.eng.IntegrityCheck(ctx)
	return problems, translateError(err)
}

// ExportSnapshot writes a consistent snapshot of the index to w.
func (ix *Index) ExportSnapshot(ctx context.Context, w io.Writer) error {
	return translateError(ix.eng.ExportSnapshot(ctx, w))
}

// ImportSnapshot replaces the index contents with a previously exported
// snapshot.
func (ix *Index) ImportSnapshot(ctx context.Context, r io.Reader) error {
	return translateError(ix.eng.ImportSnapshot(ctx, r))
}
