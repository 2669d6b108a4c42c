package lexgo

import (
	"log/slog"

	"github.com/hupe1980/lexgo/codec"
	"github.com/hupe1980/lexgo/resource"
)

type options struct {
	inMemory       bool
	codec          codec.Codec
	logger         *Logger
	resourceConfig resource.Config
	cacheSize      int
	compression    bool
	perDocument    bool
}

// Option configures Open behavior. Options apply to every index opened
// through the returned DB.
type Option func(*options)

// WithInMemory backs the database with a volatile in-memory store instead of
// a file. Useful for tests and ephemeral workloads.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithCodec configures the codec used for stored documents and persisted
// configuration.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lexgo.NewJSONLogger(slog.LevelInfo)
//	db, _ := lexgo.Open("./data.db", lexgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceConfig sets shared resource limits: concurrent searches,
// ingestion workers and rate, and the maximum store size. Limits apply
// across all indexes of the DB.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = cfg
	}
}

// WithPostingsCacheSize sets the per-index posting list cache capacity.
// Zero or negative disables the cache.
func WithPostingsCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithCompression toggles compression of stored document bodies.
// Enabled by default.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compression = enabled
	}
}

// WithPerDocumentFailures switches batch validation from whole-batch
// atomicity to per-document skipping: invalid documents are reported in the
// batch report while the rest of the batch commits.
func WithPerDocumentFailures() Option {
	return func(o *options) {
		o.perDocument = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:       codec.Default,
		logger:      NoopLogger(),
		cacheSize:   1024,
		compression: true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
