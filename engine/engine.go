// Package engine composes the store, document store, update pipeline and
// query pipeline into one named index.
//
// Writes serialize on an engine-level mutex and run inside a single store
// transaction, so readers always observe the last committed state. Schema or
// settings changes swap an immutable configuration snapshot; in-flight
// searches finish against the snapshot they started with.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lexgo/analysis"
	"github.com/hupe1980/lexgo/codec"
	"github.com/hupe1980/lexgo/docstore"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/indexer"
	"github.com/hupe1980/lexgo/resource"
	"github.com/hupe1980/lexgo/search"
	"github.com/hupe1980/lexgo/store"
)

// ErrClosed is returned for operations on a closed engine.
var ErrClosed = errors.New("engine: closed")

// state is the immutable per-configuration snapshot. It is rebuilt and
// swapped whole on schema or settings changes.
type state struct {
	schema   document.Schema
	settings document.Settings
	analyzer *analysis.Analyzer
	docs     *docstore.Store
	ix       *indexer.Indexer
	matcher  *search.Matcher
}

// Engine is one named index over a shared store.
type Engine struct {
	name    string
	st      store.Store
	buckets index.Buckets
	codec   codec.Codec
	rc      *resource.Controller
	logger  *slog.Logger

	cacheSize   int
	compress    bool
	perDocument bool

	mu    sync.Mutex // serializes writes and configuration changes
	state atomic.Pointer[state]

	counters Counters
	tasks    taskSet
	closed   atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodec sets the codec for document bodies and persisted configuration.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithResourceController attaches shared resource limits. A nil controller
// disables limiting.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) { e.rc = rc }
}

// WithPostingsCacheSize sets the per-engine postings cache capacity.
func WithPostingsCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithCompression toggles document body compression.
func WithCompression(enabled bool) Option {
	return func(e *Engine) { e.compress = enabled }
}

// WithPerDocumentFailures switches batch validation from whole-batch
// atomicity to per-document skipping.
func WithPerDocumentFailures() Option {
	return func(e *Engine) { e.perDocument = true }
}

// New opens the named index inside st, loading persisted schema and settings
// if the index exists.
func New(st store.Store, name string, opts ...Option) (*Engine, error) {
	e := &Engine{
		name:      name,
		st:        st,
		buckets:   index.NewBuckets(name),
		codec:     codec.Default,
		logger:    slog.New(slog.DiscardHandler),
		cacheSize: 1024,
		compress:  true,
	}
	for _, opt := range opts {
		opt(e)
	}

	schema := document.Schema{}
	settings := document.DefaultSettings()
	err := st.View(func(tx store.Tx) error {
		if raw := tx.Get(e.buckets.Meta, []byte(index.MetaSchema)); raw != nil {
			if err := e.codec.Unmarshal(raw, &schema); err != nil {
				return fmt.Errorf("engine: decode schema: %w", err)
			}
		}
		if raw := tx.Get(e.buckets.Meta, []byte(index.MetaSettings)); raw != nil {
			if err := e.codec.Unmarshal(raw, &settings); err != nil {
				return fmt.Errorf("engine: decode settings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s, err := e.buildState(schema, settings)
	if err != nil {
		return nil, err
	}
	e.state.Store(s)
	e.tasks.init()
	return e, nil
}

func (e *Engine) buildState(schema document.Schema, settings document.Settings) (*state, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	analyzer := analysis.New(
		analysis.WithStopWords(settings.StopWords),
		analysis.WithSeparators(settings.Separators),
	)
	docs := docstore.New(e.buckets, e.codec, docstore.WithCompression(e.compress))

	var ixOpts []indexer.Option
	if e.perDocument {
		ixOpts = append(ixOpts, indexer.WithPerDocumentFailures())
	}
	ix := indexer.New(e.buckets, docs, analyzer, schema, settings, ixOpts...)

	matcher, err := search.NewMatcher(e.buckets, analyzer, schema, settings,
		search.WithPostingsCache(e.cacheSize))
	if err != nil {
		return nil, err
	}

	return &state{
		schema:   schema,
		settings: settings,
		analyzer: analyzer,
		docs:     docs,
		ix:       ix,
		matcher:  matcher,
	}, nil
}

// Name returns the index name.
func (e *Engine) Name() string { return e.name }

// Schema returns the current field schema.
func (e *Engine) Schema() document.Schema { return e.state.Load().schema.Clone() }

// Settings returns the current settings.
func (e *Engine) Settings() document.Settings { return e.state.Load().settings }

// Counters exposes the engine's operational counters for sampling.
func (e *Engine) Counters() *Counters { return &e.counters }

// Close marks the engine closed. The shared store is owned by the caller.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

// ApplyBatch validates and applies an update batch as one transaction.
// Resource limits are checked before any write is attempted.
func (e *Engine) ApplyBatch(ctx context.Context, b *indexer.Batch) (*indexer.Report, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	if err := e.rc.AcquireIngest(ctx); err != nil {
		return nil, err
	}
	defer e.rc.ReleaseIngest()

	size, err := e.st.Size()
	if err != nil {
		return nil, err
	}
	if err := e.rc.CheckIndexSize(size); err != nil {
		e.counters.BatchFailures.Add(1)
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state.Load()
	var report *indexer.Report
	err = e.st.Update(func(tx store.Tx) error {
		var err error
		report, err = s.ix.Apply(tx, b)
		return err
	})

	elapsed := time.Since(start)
	if err != nil {
		e.counters.BatchFailures.Add(1)
		e.logger.ErrorContext(ctx, "batch failed",
			"index", e.name, "operations", b.Len(), "error", err)
		return nil, err
	}

	e.counters.BatchesApplied.Add(1)
	e.counters.BatchNanos.Add(elapsed.Nanoseconds())
	e.counters.DocumentsIndexed.Add(int64(report.Indexed + report.Replaced))
	e.counters.DocumentsDeleted.Add(int64(report.Deleted))
	e.logger.InfoContext(ctx, "batch applied",
		"index", e.name,
		"indexed", report.Indexed,
		"replaced", report.Replaced,
		"deleted", report.Deleted,
		"failed", len(report.Failures),
		"elapsed", elapsed)
	return report, nil
}

// SetSchema replaces the field schema and reindexes every stored document.
func (e *Engine) SetSchema(ctx context.Context, schema document.Schema) error {
	if e.closed.Load() {
		return ErrClosed
	}
	s := e.state.Load()
	return e.reconfigure(ctx, schema.Clone(), s.settings)
}

// SetSettings replaces the settings and reindexes every stored document,
// since stop words, separators and typo thresholds shape the stored indexes.
func (e *Engine) SetSettings(ctx context.Context, settings document.Settings) error {
	if e.closed.Load() {
		return ErrClosed
	}
	s := e.state.Load()
	return e.reconfigure(ctx, s.schema, settings)
}

func (e *Engine) reconfigure(ctx context.Context, schema document.Schema, settings document.Settings) error {
	next, err := e.buildState(schema, settings)
	if err != nil {
		return err
	}

	if err := e.rc.AcquireIngest(ctx); err != nil {
		return err
	}
	defer e.rc.ReleaseIngest()

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	err = e.st.Update(func(tx store.Tx) error {
		raw, err := e.codec.Marshal(schema)
		if err != nil {
			return err
		}
		if err := tx.Put(e.buckets.Meta, []byte(index.MetaSchema), raw); err != nil {
			return err
		}
		raw, err = e.codec.Marshal(settings)
		if err != nil {
			return err
		}
		if err := tx.Put(e.buckets.Meta, []byte(index.MetaSettings), raw); err != nil {
			return err
		}
		return next.ix.Rebuild(tx)
	})
	if err != nil {
		return err
	}

	e.state.Store(next)
	e.logger.InfoContext(ctx, "index reconfigured",
		"index", e.name, "elapsed", time.Since(start))
	return nil
}

// IntegrityCheck verifies the derived indexes against the stored documents.
func (e *Engine) IntegrityCheck(ctx context.Context) ([]indexer.Problem, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	s := e.state.Load()
	var problems []indexer.Problem
	err := e.st.View(func(tx store.Tx) error {
		var err error
		problems, err = s.ix.Check(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		e.logger.WarnContext(ctx, "integrity check found problems",
			"index", e.name, "problems", len(problems))
	}
	return problems, nil
}

// Stats describes the current size and activity of the index.
type Stats struct {
	Documents        uint64
	Version          uint64
	StoreSizeBytes   int64
	InFlightSearches int64
	Counters         CountersSnapshot
}

// Stats returns a point-in-time view of the index.
func (e *Engine) Stats() (Stats, error) {
	s := e.state.Load()
	size, err := e.st.Size()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		StoreSizeBytes:   size,
		InFlightSearches: e.rc.InFlightSearches(),
		Counters:         e.counters.Snapshot(),
	}
	err = e.st.View(func(tx store.Tx) error {
		n, err := s.docs.Count(tx)
		if err != nil {
			return err
		}
		st.Documents = n
		st.Version = s.docs.Version(tx)
		return nil
	})
	return st, err
}

// GetDocument fetches a document by primary key.
func (e *Engine) GetDocument(pk string) (document.Document, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	s := e.state.Load()
	var doc document.Document
	err := e.st.View(func(tx store.Tx) error {
		_, d, err := s.docs.GetByPrimaryKey(tx, pk)
		doc = d
		return err
	})
	return doc, err
}
