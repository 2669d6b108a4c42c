package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	ms := NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	return map[string]Store{"bolt": bs, "memory": ms}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			bucket := []byte("b")
			require.NoError(t, s.Update(func(tx Tx) error {
				if err := tx.Put(bucket, []byte("k1"), []byte("v1")); err != nil {
					return err
				}
				return tx.Put(bucket, []byte("k2"), []byte("v2"))
			}))

			require.NoError(t, s.View(func(tx Tx) error {
				assert.Equal(t, []byte("v1"), tx.Get(bucket, []byte("k1")))
				assert.Nil(t, tx.Get(bucket, []byte("missing")))
				assert.Nil(t, tx.Get([]byte("nobucket"), []byte("k1")))
				return nil
			}))
		})
	}
}

func TestStoreCursorOrder(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			bucket := []byte("b")
			require.NoError(t, s.Update(func(tx Tx) error {
				for _, k := range []string{"cherry", "apple", "banana", "apricot"} {
					if err := tx.Put(bucket, []byte(k), []byte("x")); err != nil {
						return err
					}
				}
				return nil
			}))

			require.NoError(t, s.View(func(tx Tx) error {
				c := tx.Cursor(bucket)
				var got []string
				for k, _ := c.First(); k != nil; k, _ = c.Next() {
					got = append(got, string(k))
				}
				assert.Equal(t, []string{"apple", "apricot", "banana", "cherry"}, got)

				k, _ := c.Seek([]byte("ap"))
				assert.Equal(t, "apple", string(k))
				k, _ = c.Next()
				assert.Equal(t, "apricot", string(k))
				return nil
			}))
		})
	}
}

func TestStoreWriteTxSeesOwnWrites(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			bucket := []byte("b")
			require.NoError(t, s.Update(func(tx Tx) error {
				return tx.Put(bucket, []byte("a"), []byte("1"))
			}))

			require.NoError(t, s.Update(func(tx Tx) error {
				if err := tx.Put(bucket, []byte("b"), []byte("2")); err != nil {
					return err
				}
				if err := tx.Delete(bucket, []byte("a")); err != nil {
					return err
				}
				assert.Nil(t, tx.Get(bucket, []byte("a")))
				assert.Equal(t, []byte("2"), tx.Get(bucket, []byte("b")))

				c := tx.Cursor(bucket)
				k, _ := c.First()
				assert.Equal(t, "b", string(k))
				return nil
			}))
		})
	}
}

func TestStoreRollbackDiscards(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			bucket := []byte("b")
			injected := errors.New("boom")
			err := s.Update(func(tx Tx) error {
				if err := tx.Put(bucket, []byte("k"), []byte("v")); err != nil {
					return err
				}
				return injected
			})
			assert.ErrorIs(t, err, injected)

			require.NoError(t, s.View(func(tx Tx) error {
				assert.Nil(t, tx.Get(bucket, []byte("k")))
				return nil
			}))
		})
	}
}

func TestStoreReadOnlyTxRejectsWrites(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.View(func(tx Tx) error {
				return tx.Put([]byte("b"), []byte("k"), []byte("v"))
			})
			assert.Error(t, err)
		})
	}
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	s := NewMemoryStore()
	bucket := []byte("b")
	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.Put(bucket, []byte("k"), []byte("old"))
	}))

	rtx, err := s.Begin(false)
	require.NoError(t, err)

	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.Put(bucket, []byte("k"), []byte("new"))
	}))

	// The reader still observes the snapshot taken at Begin.
	assert.Equal(t, []byte("old"), rtx.Get(bucket, []byte("k")))
	require.NoError(t, rtx.Rollback())

	require.NoError(t, s.View(func(tx Tx) error {
		assert.Equal(t, []byte("new"), tx.Get(bucket, []byte("k")))
		return nil
	}))
}

func TestMemoryStoreInjectedCommitFailure(t *testing.T) {
	s := NewMemoryStore()
	bucket := []byte("b")
	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.Put(bucket, []byte("k"), []byte("v1"))
	}))

	boom := errors.New("disk full")
	s.FailNextCommit(boom)

	err := s.Update(func(tx Tx) error {
		return tx.Put(bucket, []byte("k"), []byte("v2"))
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(func(tx Tx) error {
		assert.Equal(t, []byte("v1"), tx.Get(bucket, []byte("k")))
		return nil
	}))

	// The writer lock was released; further updates succeed.
	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.Put(bucket, []byte("k"), []byte("v3"))
	}))
}

func TestStoreDeleteBucket(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Update(func(tx Tx) error {
				return tx.Put([]byte("gone"), []byte("k"), []byte("v"))
			}))
			require.NoError(t, s.Update(func(tx Tx) error {
				return tx.DeleteBucket([]byte("gone"))
			}))
			require.NoError(t, s.View(func(tx Tx) error {
				assert.Nil(t, tx.Get([]byte("gone"), []byte("k")))
				return nil
			}))
		})
	}
}

func TestStoreForEachBucket(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Update(func(tx Tx) error {
				if err := tx.Put([]byte("b2"), []byte("k"), []byte("v")); err != nil {
					return err
				}
				return tx.Put([]byte("b1"), []byte("k"), []byte("v"))
			}))
			var names []string
			require.NoError(t, s.View(func(tx Tx) error {
				return tx.ForEachBucket(func(n []byte) error {
					names = append(names, string(n))
					return nil
				})
			}))
			assert.Equal(t, []string{"b1", "b2"}, names)
		})
	}
}
