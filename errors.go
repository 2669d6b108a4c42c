package lexgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lexgo/docstore"
	"github.com/hupe1980/lexgo/engine"
	"github.com/hupe1980/lexgo/filter"
	"github.com/hupe1980/lexgo/indexer"
)

var (
	// ErrNotFound is returned when a document or primary key is unknown.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned for operations on a closed DB or index.
	ErrClosed = errors.New("closed")
)

// InvalidDocumentError reports a document a batch could not accept.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InvalidDocumentError struct {
	PrimaryKey string
	cause      error
}

func (e *InvalidDocumentError) Error() string {
	if e.PrimaryKey == "" {
		return fmt.Sprintf("invalid document: %v", e.cause)
	}
	return fmt.Sprintf("invalid document %q: %v", e.PrimaryKey, e.cause)
}

func (e *InvalidDocumentError) Unwrap() error { return e.cause }

// InvalidFilterError reports a filter or request configuration problem: a
// syntax error in the expression, or a field used in a way the schema does
// not declare.
//
// The original underlying error can be accessed via errors.Unwrap.
type InvalidFilterError struct {
	cause error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter: %v", e.cause)
}

func (e *InvalidFilterError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, engine.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	// Document validation normalization.
	if errors.Is(err, indexer.ErrMissingPrimaryKey) ||
		errors.Is(err, indexer.ErrInvalidPrimaryKey) ||
		errors.Is(err, indexer.ErrDuplicatePrimaryKey) {
		return &InvalidDocumentError{cause: err}
	}

	// Filter and request configuration normalization.
	var cfg *filter.ConfigError
	if errors.As(err, &cfg) {
		return &InvalidFilterError{cause: err}
	}
	var syn *filter.SyntaxError
	if errors.As(err, &syn) {
		return &InvalidFilterError{cause: err}
	}

	return err
}
