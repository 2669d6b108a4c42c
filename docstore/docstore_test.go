package docstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

func newStore(t *testing.T) (*Store, store.Store) {
	t.Helper()
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	return New(index.NewBuckets("test"), nil), ms
}

func TestPutGetRoundTrip(t *testing.T) {
	ds, ms := newStore(t)

	doc := document.Document{
		"id":    document.String("doc-1"),
		"title": document.String("running shoes"),
		"price": document.Number(49.99),
	}

	require.NoError(t, ms.Update(func(tx store.Tx) error {
		id, err := ds.AllocateID(tx)
		if err != nil {
			return err
		}
		return ds.Put(tx, id, "doc-1", doc)
	}))

	require.NoError(t, ms.View(func(tx store.Tx) error {
		id, got, err := ds.GetByPrimaryKey(tx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, uint32(0), id)
		for k, v := range doc {
			assert.True(t, v.Equal(got[k]), "field %s", k)
		}

		count, err := ds.Count(tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
		return nil
	}))
}

func TestGetUnknown(t *testing.T) {
	ds, ms := newStore(t)
	require.NoError(t, ms.View(func(tx store.Tx) error {
		_, err := ds.Get(tx, 99)
		assert.ErrorIs(t, err, ErrNotFound)

		_, _, err = ds.GetByPrimaryKey(tx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestIDRecycling(t *testing.T) {
	ds, ms := newStore(t)
	doc := document.Document{"id": document.String("x")}

	var first, second, third uint32
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		var err error
		if first, err = ds.AllocateID(tx); err != nil {
			return err
		}
		if second, err = ds.AllocateID(tx); err != nil {
			return err
		}
		if err := ds.Put(tx, first, "a", doc); err != nil {
			return err
		}
		return ds.Put(tx, second, "b", doc)
	}))
	assert.Equal(t, uint32(0), first)
	assert.Equal(t, uint32(1), second)

	// Delete the first document and release its id.
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		if err := ds.Delete(tx, first, "a"); err != nil {
			return err
		}
		return ds.ReleaseID(tx, first)
	}))

	// The released id is reused before a fresh one is minted.
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		var err error
		third, err = ds.AllocateID(tx)
		return err
	}))
	assert.Equal(t, first, third)
}

func TestDeleteRemovesBothSides(t *testing.T) {
	ds, ms := newStore(t)
	doc := document.Document{"id": document.String("a")}

	require.NoError(t, ms.Update(func(tx store.Tx) error {
		id, err := ds.AllocateID(tx)
		if err != nil {
			return err
		}
		if err := ds.Put(tx, id, "a", doc); err != nil {
			return err
		}
		return ds.Delete(tx, id, "a")
	}))

	require.NoError(t, ms.View(func(tx store.Tx) error {
		_, ok := ds.LookupPK(tx, "a")
		assert.False(t, ok)
		_, err := ds.Get(tx, 0)
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := ds.AllDocs(tx)
		require.NoError(t, err)
		assert.True(t, all.IsEmpty())
		return nil
	}))
}

func TestLargeBodyCompression(t *testing.T) {
	ds, ms := newStore(t)

	// Highly repetitive text compresses well below the stored threshold.
	body := strings.Repeat("running shoes for trail and road ", 100)
	doc := document.Document{"id": document.String("big"), "text": document.String(body)}

	require.NoError(t, ms.Update(func(tx store.Tx) error {
		id, err := ds.AllocateID(tx)
		if err != nil {
			return err
		}
		return ds.Put(tx, id, "big", doc)
	}))

	require.NoError(t, ms.View(func(tx store.Tx) error {
		_, got, err := ds.GetByPrimaryKey(tx, "big")
		require.NoError(t, err)
		assert.Equal(t, body, got["text"].Str)

		// The stored value must indeed be smaller than the payload.
		raw := tx.Get(index.NewBuckets("test").Documents, []byte{0, 0, 0, 0})
		assert.Less(t, len(raw), len(body))
		return nil
	}))
}

func TestVersionBump(t *testing.T) {
	ds, ms := newStore(t)
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		assert.Equal(t, uint64(0), ds.Version(tx))
		if err := ds.BumpVersion(tx); err != nil {
			return err
		}
		return ds.BumpVersion(tx)
	}))
	require.NoError(t, ms.View(func(tx store.Tx) error {
		assert.Equal(t, uint64(2), ds.Version(tx))
		return nil
	}))
}

func TestEach(t *testing.T) {
	ds, ms := newStore(t)
	require.NoError(t, ms.Update(func(tx store.Tx) error {
		for _, pk := range []string{"a", "b", "c"} {
			id, err := ds.AllocateID(tx)
			if err != nil {
				return err
			}
			if err := ds.Put(tx, id, pk, document.Document{"id": document.String(pk)}); err != nil {
				return err
			}
		}
		return nil
	}))

	var ids []uint32
	require.NoError(t, ms.View(func(tx store.Tx) error {
		return ds.Each(tx, func(id uint32, doc document.Document) error {
			ids = append(ids, id)
			return nil
		})
	}))
	assert.Equal(t, []uint32{0, 1, 2}, ids)
}
