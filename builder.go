// This file implements the fluent query builder. Builders are immutable -
// each method returns a new builder with the updated configuration.
package lexgo

import (
	"github.com/hupe1980/lexgo/engine"
	"github.com/hupe1980/lexgo/rank"
)

// Query starts a fluent query against the index.
//
// Example:
//
//	hits, err := idx.Query("runing shoes").
//	    Filter(`price < 100 AND category = "shoes"`).
//	    SortBy("price").
//	    Limit(10).
//	    Execute(ctx)
func (ix *Index) Query(q string) QueryBuilder {
	return QueryBuilder{
		ix:  ix,
		req: engine.SearchRequest{Query: q},
	}
}

// QueryBuilder is an immutable fluent builder for search requests.
// Each method returns a new builder with the updated configuration.
type QueryBuilder struct {
	ix  *Index
	req engine.SearchRequest
}

// Filter restricts candidates to documents matching the filter expression.
// Fields used in the expression must be declared as facets in the schema.
func (b QueryBuilder) Filter(expr string) QueryBuilder {
	b.req.Filter = expr
	return b
}

// SortBy appends an ascending sort on a sortable field. Sorts apply in the
// position the sort ranking rule holds in the index settings.
func (b QueryBuilder) SortBy(field string) QueryBuilder {
	b.req.Sort = append(b.sortCopy(), rank.SortSpec{Field: field})
	return b
}

// SortByDesc appends a descending sort on a sortable field.
func (b QueryBuilder) SortByDesc(field string) QueryBuilder {
	b.req.Sort = append(b.sortCopy(), rank.SortSpec{Field: field, Desc: true})
	return b
}

// Limit caps the number of returned hits. Default: 20.
func (b QueryBuilder) Limit(n int) QueryBuilder {
	b.req.Limit = n
	return b
}

// Offset skips the first n ranked hits.
func (b QueryBuilder) Offset(n int) QueryBuilder {
	b.req.Offset = n
	return b
}

// WithScores attaches a per-rule score breakdown to every hit.
func (b QueryBuilder) WithScores() QueryBuilder {
	b.req.WithScores = true
	return b
}

// Request returns the assembled search request.
func (b QueryBuilder) Request() engine.SearchRequest {
	return b.req
}

// sortCopy detaches the sort slice so derived builders do not share backing
// arrays.
func (b QueryBuilder) sortCopy() []rank.SortSpec {
	if len(b.req.Sort) == 0 {
		return nil
	}
	out := make([]rank.SortSpec, len(b.req.Sort))
	copy(out, b.req.Sort)
	return out
}
