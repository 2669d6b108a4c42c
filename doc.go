// Package lexgo provides an embedded, typo-tolerant full-text search engine
// for Go.
//
// Lexgo indexes schemaless documents and answers keyword queries with typo
// tolerance, prefix matching on the word being typed, filtering on declared
// facet fields, and a configurable cascade of ranking rules. All data lives
// in a single durable store file; readers never block behind writers.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := lexgo.Open("./search.db")
//	defer db.Close()
//
//	idx, _ := db.Index("products")
//	_ = idx.SetSchema(ctx, document.Schema{
//	    "title":    {Searchable: true, Weight: 2},
//	    "brand":    {Searchable: true, Weight: 1},
//	    "category": {Facet: true, FacetType: document.FacetTypeString},
//	    "price":    {Facet: true, FacetType: document.FacetTypeNumber, Sortable: true},
//	})
//
// Index documents in atomic batches:
//
//	report, _ := idx.AddDocuments(ctx,
//	    document.Document{
//	        "id":       document.String("1"),
//	        "title":    document.String("red running shoes"),
//	        "category": document.String("shoes"),
//	        "price":    document.Number(89.90),
//	    },
//	)
//	fmt.Println(report.Indexed)
//
// Search with the fluent builder. Queries tolerate typos ("runing" finds
// "running") and treat the final word as a prefix while the user types:
//
//	resp, _ := idx.Query("runing sho").
//	    Filter(`price < 100 AND category = "shoes"`).
//	    Limit(10).
//	    Execute(ctx)
//	for _, hit := range resp.Hits {
//	    fmt.Println(hit.PrimaryKey, hit.Document["title"].Text())
//	}
//
// # Update Model
//
// Writes are batched. A batch either commits whole or not at all; with
// WithPerDocumentFailures, invalid documents are skipped and reported in the
// batch report instead. Batches can also run asynchronously:
//
//	id, _ := idx.EnqueueBatch(ctx, batch)
//	task, _ := idx.Task(id)  // poll for status and report
//
// # Ranking
//
// Matches are ordered by a cascade of rules (words, typo, proximity,
// attribute, exactness, sort), configurable per index through Settings.
// Request-time sorts on declared sortable fields slot into the sort rule's
// position.
//
// # Key Features
//
//   - Typo tolerance with length-scaled budgets and prefix search
//   - Facet filtering with a boolean expression language
//   - Facet value distributions for drill-down interfaces
//   - Multi-criteria ranking with per-hit score breakdowns
//   - Single-file durable storage with snapshot export/import
//   - Shared resource limits (search concurrency, ingest rate, store size)
//   - Prometheus metrics via db.MetricsCollector
package lexgo
