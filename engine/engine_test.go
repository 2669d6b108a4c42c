package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/docstore"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/filter"
	"github.com/hupe1980/lexgo/indexer"
	"github.com/hupe1980/lexgo/rank"
	"github.com/hupe1980/lexgo/resource"
	"github.com/hupe1980/lexgo/store"
)

func testSchema() document.Schema {
	return document.Schema{
		"title":    {Searchable: true, Weight: 2},
		"body":     {Searchable: true, Weight: 1},
		"category": {Facet: true, FacetType: document.FacetTypeString},
		"price":    {Facet: true, FacetType: document.FacetTypeNumber, Sortable: true},
	}
}

func product(id, title, category string, price float64) document.Document {
	return document.Document{
		"id":       document.String(id),
		"title":    document.String(title),
		"category": document.String(category),
		"price":    document.Number(price),
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	eng, err := New(ms, "products", opts...)
	require.NoError(t, err)
	require.NoError(t, eng.SetSchema(context.Background(), testSchema()))
	return eng, ms
}

func seed(t *testing.T, eng *Engine) {
	t.Helper()
	report, err := eng.ApplyBatch(context.Background(), indexer.NewBatch().
		AddOrReplace(product("a", "red running shoes", "shoes", 30)).
		AddOrReplace(product("b", "blue running shorts", "shorts", 25)).
		AddOrReplace(product("c", "green wool socks", "socks", 5)))
	require.NoError(t, err)
	require.Equal(t, 3, report.Indexed)
}

func primaryKeys(resp *SearchResponse) []string {
	pks := make([]string, len(resp.Hits))
	for i, h := range resp.Hits {
		pks[i] = h.PrimaryKey
	}
	return pks
}

func TestSearchTypoToleranceAndRanking(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	// "runing" is one edit from "running"; "shoes" matches "shoes" exactly
	// and "shorts" with two edits. The typo rule puts the cleaner match
	// first.
	resp, err := eng.Search(context.Background(), SearchRequest{Query: "runing shoes"})
	require.NoError(t, err)

	assert.Equal(t, []string{"runing", "shoes"}, resp.Terms)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"a", "b"}, primaryKeys(resp))
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	resp, err := eng.Search(context.Background(), SearchRequest{Query: "zzzzzzzz"})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Hits)
}

func TestSearchFilter(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	resp, err := eng.Search(context.Background(), SearchRequest{
		Filter: `category = "shoes" OR price < 10`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, primaryKeys(resp))

	resp, err = eng.Search(context.Background(), SearchRequest{
		Query:  "running",
		Filter: `price < 10`,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestSearchFilterOnUnknownFieldFails(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	_, err := eng.Search(context.Background(), SearchRequest{Filter: `colour = "red"`})
	var cfgErr *filter.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "colour", cfgErr.Field)
}

func TestSearchSort(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	resp, err := eng.Search(context.Background(), SearchRequest{
		Sort: []rank.SortSpec{{Field: "price"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, primaryKeys(resp))

	resp, err = eng.Search(context.Background(), SearchRequest{
		Sort: []rank.SortSpec{{Field: "price", Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, primaryKeys(resp))
}

func TestSearchSortOnUnsortableFieldFails(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	_, err := eng.Search(context.Background(), SearchRequest{
		Sort: []rank.SortSpec{{Field: "title"}},
	})
	var cfgErr *filter.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "title", cfgErr.Field)
}

func TestSearchPagination(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	resp, err := eng.Search(context.Background(), SearchRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Hits, 2)

	resp, err = eng.Search(context.Background(), SearchRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Hits, 1)

	resp, err = eng.Search(context.Background(), SearchRequest{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestSearchWithScores(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	resp, err := eng.Search(context.Background(), SearchRequest{
		Query:      "runing",
		WithScores: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	scores := resp.Hits[0].Scores
	require.NotNil(t, scores)
	assert.Contains(t, scores, document.RuleWords)
	assert.EqualValues(t, -1, scores[document.RuleTypo])
}

func TestFacetDistribution(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	dist, err := eng.FacetDistribution(context.Background(), "category", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"shoes": 1, "shorts": 1, "socks": 1}, dist)

	dist, err = eng.FacetDistribution(context.Background(), "category", `price < 10`)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"socks": 1}, dist)

	_, err = eng.FacetDistribution(context.Background(), "title", "")
	var cfgErr *filter.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSetSettingsReindexes(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	settings := eng.Settings()
	settings.TypoTolerance.Enabled = false
	require.NoError(t, eng.SetSettings(context.Background(), settings))

	resp, err := eng.Search(context.Background(), SearchRequest{Query: "runing"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)

	resp, err = eng.Search(context.Background(), SearchRequest{Query: "running"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
}

func TestSetSchemaReindexesAndPersists(t *testing.T) {
	eng, ms := newTestEngine(t)
	seed(t, eng)

	schema := eng.Schema()
	def := schema["title"]
	def.Searchable = false
	schema["title"] = def
	require.NoError(t, eng.SetSchema(context.Background(), schema))

	resp, err := eng.Search(context.Background(), SearchRequest{Query: "running"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)

	// A fresh engine over the same store picks up the persisted schema.
	reopened, err := New(ms, "products")
	require.NoError(t, err)
	assert.False(t, reopened.Schema()["title"].Searchable)

	resp, err = reopened.Search(context.Background(), SearchRequest{Query: "running"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestGetDocument(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	doc, err := eng.GetDocument("a")
	require.NoError(t, err)
	assert.Equal(t, "red running shoes", doc["title"].Text())

	_, err = eng.GetDocument("ghost")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestEnqueueBatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	id, err := eng.EnqueueBatch(context.Background(), indexer.NewBatch().
		AddOrReplace(product("d", "leather boots", "boots", 120)))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, ok := eng.Task(id)
		return ok && task.Status == TaskSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	task, ok := eng.Task(id)
	require.True(t, ok)
	require.NotNil(t, task.Report)
	assert.Equal(t, 1, task.Report.Indexed)
	assert.False(t, task.FinishedAt.IsZero())

	_, ok = eng.Task(uuid.New())
	assert.False(t, ok)
}

func TestCloseRejectsOperations(t *testing.T) {
	eng, _ := newTestEngine(t)
	require.NoError(t, eng.Close())

	_, err := eng.Search(context.Background(), SearchRequest{Query: "x"})
	require.ErrorIs(t, err, ErrClosed)

	_, err = eng.ApplyBatch(context.Background(), indexer.NewBatch())
	require.ErrorIs(t, err, ErrClosed)
}

func TestBatchCommitFailureLeavesStateIntact(t *testing.T) {
	eng, ms := newTestEngine(t)
	seed(t, eng)

	ms.FailNextCommit(errors.New("disk full"))
	_, err := eng.ApplyBatch(context.Background(), indexer.NewBatch().
		AddOrReplace(product("d", "leather boots", "boots", 120)))
	require.Error(t, err)

	stats, err := eng.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Documents)
	assert.EqualValues(t, 1, stats.Counters.BatchFailures)

	_, err = eng.GetDocument("d")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStatsAndCounters(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	_, err := eng.Search(context.Background(), SearchRequest{Query: "running"})
	require.NoError(t, err)

	stats, err := eng.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Documents)
	assert.NotZero(t, stats.Version)
	assert.EqualValues(t, 1, stats.Counters.BatchesApplied)
	assert.EqualValues(t, 3, stats.Counters.DocumentsIndexed)
	assert.EqualValues(t, 1, stats.Counters.QueriesServed)
}

func TestMaxIndexSizeRejectsBatch(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxIndexBytes: 1})
	eng, _ := newTestEngine(t, WithResourceController(rc))

	_, err := eng.ApplyBatch(context.Background(), indexer.NewBatch().
		AddOrReplace(product("a", "red running shoes", "shoes", 30)))
	require.ErrorIs(t, err, resource.ErrIndexTooLarge)

	_, err = eng.GetDocument("a")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	var buf bytes.Buffer
	require.NoError(t, eng.ExportSnapshot(context.Background(), &buf))
	require.NotZero(t, buf.Len())

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	restored, err := New(ms, "restore")
	require.NoError(t, err)
	require.NoError(t, restored.ImportSnapshot(context.Background(), bytes.NewReader(buf.Bytes())))

	// Schema and settings travel with the snapshot.
	assert.True(t, restored.Schema()["title"].Searchable)

	stats, err := restored.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Documents)

	resp, err := restored.Search(context.Background(), SearchRequest{Query: "runing shoes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, primaryKeys(resp))
}

func TestSnapshotImportReplacesExistingData(t *testing.T) {
	src, _ := newTestEngine(t)
	seed(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.ExportSnapshot(context.Background(), &buf))

	dst, _ := newTestEngine(t)
	_, err := dst.ApplyBatch(context.Background(), indexer.NewBatch().
		AddOrReplace(product("z", "stale entry", "misc", 1)))
	require.NoError(t, err)

	require.NoError(t, dst.ImportSnapshot(context.Background(), bytes.NewReader(buf.Bytes())))

	_, err = dst.GetDocument("z")
	require.ErrorIs(t, err, docstore.ErrNotFound)

	stats, err := dst.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Documents)
}

func TestSnapshotImportRejectsMalformedInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	seed(t, eng)

	err := eng.ImportSnapshot(context.Background(), bytes.NewReader([]byte("not a snapshot")))
	require.ErrorIs(t, err, ErrSnapshotFormat)

	var buf bytes.Buffer
	require.NoError(t, eng.ExportSnapshot(context.Background(), &buf))

	truncated := buf.Bytes()[:buf.Len()-8]
	require.Error(t, eng.ImportSnapshot(context.Background(), bytes.NewReader(truncated)))

	corrupted := append([]byte(nil), buf.Bytes()...)
	corrupted[len(corrupted)/2] ^= 0xff
	require.Error(t, eng.ImportSnapshot(context.Background(), bytes.NewReader(corrupted)))

	// The failed imports must not have wiped the index.
	stats, err := eng.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Documents)
}

func TestSnapshotRoundTripLargeCorpus(t *testing.T) {
	eng, _ := newTestEngine(t)

	// Enough records that import consumes the stream across many buffered
	// reads before the trailing checksum.
	batch := indexer.NewBatch()
	for i := range 500 {
		batch.AddOrReplace(product(fmt.Sprintf("p-%04d", i), fmt.Sprintf("widget model %d", i), "widgets", float64(i)))
	}
	report, err := eng.ApplyBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 500, report.Indexed)

	var buf bytes.Buffer
	require.NoError(t, eng.ExportSnapshot(context.Background(), &buf))

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	restored, err := New(ms, "restore")
	require.NoError(t, err)
	require.NoError(t, restored.ImportSnapshot(context.Background(), bytes.NewReader(buf.Bytes())))

	stats, err := restored.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 500, stats.Documents)

	resp, err := restored.Search(context.Background(), SearchRequest{Query: "widget"})
	require.NoError(t, err)
	assert.Equal(t, 500, resp.Total)
}
