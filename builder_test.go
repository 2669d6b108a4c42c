package lexgo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexgo "github.com/hupe1980/lexgo"
	"github.com/hupe1980/lexgo/document"
)

func TestQueryBuilderExecute(t *testing.T) {
	idx := newTestIndex(t)

	resp, err := idx.Query("runing").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)

	resp, err = idx.Query("runing").
		Filter(`category = "shoes"`).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "1", resp.Hits[0].PrimaryKey)
}

func TestQueryBuilderSort(t *testing.T) {
	idx := newTestIndex(t)

	resp, err := idx.Query("").SortBy("price").Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, "3", resp.Hits[0].PrimaryKey)

	resp, err = idx.Query("").SortByDesc("price").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Hits[0].PrimaryKey)
}

func TestQueryBuilderImmutable(t *testing.T) {
	idx := newTestIndex(t)

	base := idx.Query("running").SortBy("price")
	filtered := base.Filter(`price < 50`)
	desc := base.SortByDesc("price")

	assert.Empty(t, base.Request().Filter)
	assert.Len(t, base.Request().Sort, 1)
	assert.Equal(t, `price < 50`, filtered.Request().Filter)
	assert.Len(t, desc.Request().Sort, 2)
}

func TestQueryBuilderFirst(t *testing.T) {
	idx := newTestIndex(t)

	hit, err := idx.Query("socks").First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", hit.PrimaryKey)

	_, err = idx.Query("zzzzzzzz").First(context.Background())
	require.ErrorIs(t, err, lexgo.ErrNotFound)
}

func TestQueryBuilderExists(t *testing.T) {
	idx := newTestIndex(t)

	ok, err := idx.Query("running").Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Query("zzzzzzzz").Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryBuilderCount(t *testing.T) {
	idx := newTestIndex(t)

	n, err := idx.Query("running").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQueryBuilderWithScores(t *testing.T) {
	idx := newTestIndex(t)

	hit, err := idx.Query("runing").WithScores().First(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, hit.Scores)
}

func TestQueryBuilderAll(t *testing.T) {
	db, err := lexgo.Open("", lexgo.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx, err := db.Index("bulk")
	require.NoError(t, err)
	require.NoError(t, idx.SetSchema(context.Background(), document.Schema{
		"title": {Searchable: true, Weight: 1},
	}))

	const total = 130
	for i := 0; i < total; i += 50 {
		var docs []document.Document
		for j := i; j < i+50 && j < total; j++ {
			docs = append(docs, document.Document{
				"id":    document.String(fmt.Sprintf("doc-%03d", j)),
				"title": document.String("widget"),
			})
		}
		_, err = idx.AddDocuments(context.Background(), docs...)
		require.NoError(t, err)
	}

	var seen int
	for hit, err := range idx.Query("widget").All(context.Background()) {
		require.NoError(t, err)
		assert.NotEmpty(t, hit.PrimaryKey)
		seen++
	}
	assert.Equal(t, total, seen)

	// Early break stops iteration.
	var stopped int
	for _, err := range idx.Query("widget").All(context.Background()) {
		require.NoError(t, err)
		stopped++
		if stopped == 3 {
			break
		}
	}
	assert.Equal(t, 3, stopped)
}
