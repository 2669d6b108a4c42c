package lexgo

import (
	"context"
	"errors"
	"iter"

	"github.com/hupe1980/lexgo/engine"
)

// Execute runs the assembled query and returns the ranked response.
// An empty result is a normal outcome, never an error.
func (b QueryBuilder) Execute(ctx context.Context) (*engine.SearchResponse, error) {
	return b.ix.Search(ctx, b.req)
}

// First returns the single best hit, or ErrNotFound when nothing matches.
func (b QueryBuilder) First(ctx context.Context) (engine.Hit, error) {
	req := b.req
	req.Limit = 1
	resp, err := b.ix.Search(ctx, req)
	if err != nil {
		return engine.Hit{}, err
	}
	if len(resp.Hits) == 0 {
		return engine.Hit{}, ErrNotFound
	}
	return resp.Hits[0], nil
}

// Exists reports whether at least one document matches the query.
func (b QueryBuilder) Exists(ctx context.Context) (bool, error) {
	_, err := b.First(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the total number of matching documents, ignoring Limit and
// Offset.
func (b QueryBuilder) Count(ctx context.Context) (int, error) {
	req := b.req
	req.Limit = 1
	req.Offset = 0
	resp, err := b.ix.Search(ctx, req)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// streamPageSize is the page size used by All.
const streamPageSize = 100

// All iterates every matching hit in rank order, fetching pages lazily.
// Iteration stops at the first error, which is yielded with a zero hit.
func (b QueryBuilder) All(ctx context.Context) iter.Seq2[engine.Hit, error] {
	return func(yield func(engine.Hit, error) bool) {
		req := b.req
		req.Limit = streamPageSize
		req.Offset = b.req.Offset

		for {
			resp, err := b.ix.Search(ctx, req)
			if err != nil {
				yield(engine.Hit{}, err)
				return
			}
			for _, hit := range resp.Hits {
				if !yield(hit, nil) {
					return
				}
			}
			if len(resp.Hits) < req.Limit {
				return
			}
			req.Offset += req.Limit
		}
	}
}
