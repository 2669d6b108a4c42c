package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/analysis"
	"github.com/hupe1980/lexgo/docstore"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/indexer"
	"github.com/hupe1980/lexgo/store"
)

var testSchema = document.Schema{
	"title": {Searchable: true, Weight: 2},
	"body":  {Searchable: true, Weight: 1},
}

func newTestMatcher(t *testing.T, settings document.Settings, docs ...document.Document) (*Matcher, *store.MemoryStore, uint64) {
	t.Helper()
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	buckets := index.NewBuckets("test")
	ds := docstore.New(buckets, nil)
	ix := indexer.New(buckets, ds, analysis.New(), testSchema, settings)

	batch := indexer.NewBatch()
	for _, doc := range docs {
		batch.AddOrReplace(doc)
	}
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		_, err := ix.Apply(tx, batch)
		return err
	}))

	m, err := NewMatcher(buckets, analysis.New(), testSchema, settings, WithPostingsCache(64))
	require.NoError(t, err)

	var version uint64
	require.NoError(t, ms.View(func(tx store.Tx) error {
		version = ds.Version(tx)
		return nil
	}))
	return m, ms, version
}

func doc(id, title string) document.Document {
	return document.Document{
		"id":    document.String(id),
		"title": document.String(title),
	}
}

func match(t *testing.T, m *Matcher, ms *store.MemoryStore, version uint64, query string, universe *index.Bitmap) *Result {
	t.Helper()
	var res *Result
	require.NoError(t, ms.View(func(tx store.Tx) error {
		var err error
		res, err = m.Match(tx, version, query, universe)
		return err
	}))
	return res
}

func candidateIDs(res *Result) []uint32 {
	ids := make([]uint32, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestMatchExactWords(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "red running shoes"),
		doc("b", "blue running pants"),
		doc("c", "wool socks"))
	universe := index.BitmapOf(0, 1, 2)

	res := match(t, m, ms, v, "running shoes ", universe)
	require.Equal(t, []string{"running", "shoes"}, res.Terms)

	// Strategy "all": only the document containing both words survives.
	assert.Equal(t, []uint32{0}, candidateIDs(res))

	cand := res.Candidates[0]
	assert.Equal(t, 2, cand.Matched)
	require.NotNil(t, cand.Terms[0])
	assert.True(t, cand.Terms[0].Exact)
	assert.Equal(t, 0, cand.Terms[0].Typos)
	assert.Equal(t, "running", cand.Terms[0].Word)
	assert.Equal(t, []uint32{1}, cand.Terms[0].Positions)
}

func TestMatchAnyStrategy(t *testing.T) {
	settings := document.DefaultSettings()
	settings.MatchingStrategy = document.MatchingStrategyAny
	m, ms, v := newTestMatcher(t, settings,
		doc("a", "red running shoes"),
		doc("b", "blue running pants"),
		doc("c", "wool socks"))
	universe := index.BitmapOf(0, 1, 2)

	res := match(t, m, ms, v, "running shoes ", universe)
	assert.Equal(t, []uint32{0, 1}, candidateIDs(res))

	// Partial match carries a lower coverage count.
	assert.Equal(t, 2, res.Candidates[0].Matched)
	assert.Equal(t, 1, res.Candidates[1].Matched)
	assert.Nil(t, res.Candidates[1].Terms[1])
}

func TestMatchSingleTypo(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "red running shoes"))
	universe := index.BitmapOf(0)

	res := match(t, m, ms, v, "runing ", universe)
	require.Equal(t, []uint32{0}, candidateIDs(res))
	info := res.Candidates[0].Terms[0]
	assert.Equal(t, "running", info.Word)
	assert.Equal(t, 1, info.Typos)
	assert.False(t, info.Exact)
}

func TestTypoBudgetByWordLength(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "hello world"))
	universe := index.BitmapOf(0)

	// Length-5 query word: up to two typos.
	res := match(t, m, ms, v, "helxx ", universe)
	assert.Equal(t, []uint32{0}, candidateIDs(res))
	assert.Equal(t, 2, res.Candidates[0].Terms[0].Typos)

	// Three edits away: no match.
	res = match(t, m, ms, v, "hexxx ", universe)
	assert.Empty(t, res.Candidates)

	// Short words tolerate no typos.
	res = match(t, m, ms, v, "wi ", universe)
	assert.Empty(t, res.Candidates)
}

func TestMatchLastWordPrefix(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "red running shoes"),
		doc("b", "blue running shorts"))
	universe := index.BitmapOf(0, 1)

	// No trailing separator: the last word completes by prefix.
	res := match(t, m, ms, v, "sho", universe)
	assert.Equal(t, []uint32{0, 1}, candidateIDs(res))
	for _, c := range res.Candidates {
		assert.True(t, c.Terms[0].Prefix)
		assert.Equal(t, 0, c.Terms[0].Typos)
	}

	// A trailing separator turns off prefix completion.
	res = match(t, m, ms, v, "sho ", universe)
	assert.Empty(t, res.Candidates)
}

func TestMatchRespectsUniverse(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "red running shoes"),
		doc("b", "blue running shorts"))

	res := match(t, m, ms, v, "running ", index.BitmapOf(1))
	assert.Equal(t, []uint32{1}, candidateIDs(res))

	res = match(t, m, ms, v, "running ", index.NewBitmap())
	assert.Empty(t, res.Candidates)
}

func TestMatchEmptyQueryReturnsUniverse(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		doc("a", "red shoes"),
		doc("b", "blue shorts"))

	res := match(t, m, ms, v, "", index.BitmapOf(0, 1))
	assert.Equal(t, []uint32{0, 1}, candidateIDs(res))
	assert.Empty(t, res.Terms)
}

func TestMatchFieldWeight(t *testing.T) {
	m, ms, v := newTestMatcher(t, document.DefaultSettings(),
		document.Document{
			"id":    document.String("a"),
			"title": document.String("wool socks"),
			"body":  document.String("soft wool blend"),
		})
	universe := index.BitmapOf(0)

	res := match(t, m, ms, v, "wool ", universe)
	require.Len(t, res.Candidates, 1)
	// The word occurs in both fields; the higher weight wins.
	assert.Equal(t, 2, res.Candidates[0].Terms[0].Weight)
}

func TestLevenshteinRows(t *testing.T) {
	q := []rune("cat")
	row := baseRow(len(q))
	assert.Equal(t, []int{0, 1, 2, 3}, row)

	for i, r := range "cart" {
		row = extendRow(row, r, q, i)
	}
	// dist("cart", "cat") == 1
	assert.Equal(t, 1, row[len(q)])
	assert.Equal(t, 1, rowMin(row))
}
