package engine

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/filter"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/rank"
	"github.com/hupe1980/lexgo/store"
)

// SearchRequest describes one query.
type SearchRequest struct {
	// Query is the free-text query. Empty matches every document.
	Query string

	// Filter is an optional boolean expression over declared facet fields.
	Filter string

	// Sort lists the requested sort dimensions, applied at the position of
	// the sort ranking rule.
	Sort []rank.SortSpec

	// Limit and Offset paginate the ranked result. Limit <= 0 uses 20.
	Limit  int
	Offset int

	// WithScores attaches the per-criterion score breakdown to every hit.
	WithScores bool
}

// Hit is one returned document.
type Hit struct {
	PrimaryKey string
	Document   document.Document
	Scores     map[string]int64
}

// SearchResponse is the ranked, paginated result of a query.
type SearchResponse struct {
	Hits []Hit

	// Total counts all matching documents before pagination.
	Total int

	// Terms are the normalized query words the engine matched against.
	Terms []string

	Elapsed time.Duration
}

const defaultLimit = 20

// Search runs a query against the last committed state. An empty result is a
// normal outcome, never an error.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	if err := e.rc.AcquireSearch(ctx); err != nil {
		return nil, err
	}
	defer e.rc.ReleaseSearch()

	s := e.state.Load()
	resp, err := e.searchLocked(s, req)

	elapsed := time.Since(start)
	if err != nil {
		e.counters.QueryFailures.Add(1)
		e.logger.ErrorContext(ctx, "search failed",
			"index", e.name, "query", req.Query, "error", err)
		return nil, err
	}
	resp.Elapsed = elapsed

	e.counters.QueriesServed.Add(1)
	e.counters.QueryNanos.Add(elapsed.Nanoseconds())
	e.logger.DebugContext(ctx, "search completed",
		"index", e.name,
		"query", req.Query,
		"total", resp.Total,
		"returned", len(resp.Hits),
		"elapsed", elapsed)
	return resp, nil
}

func (e *Engine) searchLocked(s *state, req SearchRequest) (*SearchResponse, error) {
	for _, spec := range req.Sort {
		def, ok := s.schema[spec.Field]
		if !ok || !def.Sortable {
			return nil, &filter.ConfigError{Field: spec.Field, Reason: "not declared sortable"}
		}
	}

	var node filter.Node
	if req.Filter != "" {
		var err error
		if node, err = filter.Parse(req.Filter, s.schema); err != nil {
			return nil, err
		}
	}

	criteria, err := rank.Build(s.settings.RankingRules, req.Sort)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	resp := &SearchResponse{}
	err = e.st.View(func(tx store.Tx) error {
		universe, err := s.docs.AllDocs(tx)
		if err != nil {
			return err
		}
		if node != nil {
			if universe, err = filter.Evaluate(tx, e.buckets, node, universe); err != nil {
				return err
			}
		}

		version := s.docs.Version(tx)
		res, err := s.matcher.Match(tx, version, req.Query, universe)
		if err != nil {
			return err
		}
		resp.Terms = res.Terms
		resp.Total = len(res.Candidates)

		ranked := make([]*rank.Doc, len(res.Candidates))
		for i, c := range res.Candidates {
			d := &rank.Doc{
				ID:        c.ID,
				Matched:   c.Matched,
				Typos:     c.TypoCount(),
				Exact:     c.ExactCount(),
				Proximity: c.ProximityCost(),
				Attribute: c.AttributeScore(),
			}
			if len(req.Sort) > 0 {
				d.SortValues, d.HasSort = sortValues(tx, e.buckets, req.Sort, c.ID)
			}
			ranked[i] = d
		}
		rank.Sort(ranked, criteria)

		lo := req.Offset
		if lo > len(ranked) {
			lo = len(ranked)
		}
		hi := lo + limit
		if hi > len(ranked) {
			hi = len(ranked)
		}

		for _, d := range ranked[lo:hi] {
			doc, err := s.docs.Get(tx, d.ID)
			if err != nil {
				return fmt.Errorf("engine: load hit %d: %w", d.ID, err)
			}
			pk, _ := document.PrimaryKeyString(doc[s.settings.PrimaryKey])
			hit := Hit{PrimaryKey: pk, Document: doc}
			if req.WithScores {
				hit.Scores = rank.Scores(d, criteria)
			}
			resp.Hits = append(resp.Hits, hit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func sortValues(tx store.Tx, buckets index.Buckets, specs []rank.SortSpec, id uint32) ([]document.Value, []bool) {
	values := make([]document.Value, len(specs))
	has := make([]bool, len(specs))
	for i, spec := range specs {
		raw := tx.Get(buckets.Sortable, index.DocIDKey(spec.Field, id))
		if raw == nil {
			continue
		}
		v, err := document.DecodeKey(string(raw))
		if err != nil {
			continue
		}
		values[i] = v
		has[i] = true
	}
	return values, has
}

// FacetDistribution counts, for one declared facet field, how many documents
// in the filtered set carry each value.
func (e *Engine) FacetDistribution(ctx context.Context, field, filterExpr string) (map[string]uint64, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	s := e.state.Load()

	def, ok := s.schema[field]
	if !ok || !def.Facet {
		return nil, &filter.ConfigError{Field: field, Reason: "not declared as a facet"}
	}

	var node filter.Node
	if filterExpr != "" {
		var err error
		if node, err = filter.Parse(filterExpr, s.schema); err != nil {
			return nil, err
		}
	}

	out := map[string]uint64{}
	err := e.st.View(func(tx store.Tx) error {
		universe, err := s.docs.AllDocs(tx)
		if err != nil {
			return err
		}
		if node != nil {
			if universe, err = filter.Evaluate(tx, e.buckets, node, universe); err != nil {
				return err
			}
		}

		prefix := index.FieldPrefix(field)
		c := tx.Cursor(e.buckets.Facets)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			_, suffix, ok := index.SplitFieldKey(k)
			if !ok {
				continue
			}
			set, err := index.DecodeBitmap(v)
			if err != nil {
				return err
			}
			set.And(universe)
			if n := set.Cardinality(); n > 0 {
				value, err := document.DecodeKey(suffix)
				if err != nil {
					return err
				}
				out[value.Text()] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
