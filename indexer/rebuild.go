package indexer

import (
	"fmt"
	"slices"

	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

// Rebuild drops every derived index and recomputes it from the stored
// document bodies. It is used after schema or analyzer changes, when the
// incremental diff against old entries would be computed with the wrong
// configuration.
func (ix *Indexer) Rebuild(tx store.Tx) error {
	for _, bucket := range [][]byte{
		ix.buckets.Postings, ix.buckets.Prefixes,
		ix.buckets.Facets, ix.buckets.NumericFacets, ix.buckets.Sortable,
	} {
		if err := tx.DeleteBucket(bucket); err != nil {
			return err
		}
	}

	acc := newDeltaAccumulator()
	err := ix.docs.Each(tx, func(id uint32, doc document.Document) error {
		ix.accumulateAddition(acc, id, doc)
		return nil
	})
	if err != nil {
		return err
	}
	if err := acc.flush(tx, ix.buckets); err != nil {
		return err
	}
	return ix.docs.BumpVersion(tx)
}

// Problem describes one inconsistency found by Check.
type Problem struct {
	Field  string
	Word   string
	DocID  uint32
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("field %q word %q doc %d: %s", p.Field, p.Word, p.DocID, p.Detail)
}

// Check verifies the inverted index against the stored documents in both
// directions: every word of every document must have a posting, and every
// posting must be backed by a document that still contains the word. It
// reports problems instead of failing on the first one.
func (ix *Indexer) Check(tx store.Tx) ([]Problem, error) {
	var problems []Problem

	expected := map[string]map[uint32]struct{}{}
	err := ix.docs.Each(tx, func(id uint32, doc document.Document) error {
		for field, words := range ix.extract(doc) {
			for word := range words {
				key := string(index.FieldKey(field, word))
				if expected[key] == nil {
					expected[key] = map[uint32]struct{}{}
				}
				expected[key][id] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	c := tx.Cursor(ix.buckets.Postings)
	for k, v := c.First(); k != nil; k, v = c.Next() {
		field, word, ok := index.SplitFieldKey(k)
		if !ok {
			problems = append(problems, Problem{Detail: fmt.Sprintf("malformed postings key %x", k)})
			continue
		}
		seen[string(k)] = struct{}{}
		pl, err := index.DecodePostings(v)
		if err != nil {
			problems = append(problems, Problem{Field: field, Word: word, Detail: err.Error()})
			continue
		}
		want := expected[string(k)]
		for _, p := range pl {
			if _, ok := want[p.DocID]; !ok {
				problems = append(problems, Problem{Field: field, Word: word, DocID: p.DocID, Detail: "stale posting"})
			}
		}
		for id := range want {
			if _, ok := pl.Find(id); !ok {
				problems = append(problems, Problem{Field: field, Word: word, DocID: id, Detail: "missing posting"})
			}
		}

		// The word dictionary entry must mirror the posting list.
		dict, err := loadBitmap(tx, ix.buckets.Prefixes, k)
		if err != nil {
			problems = append(problems, Problem{Field: field, Word: word, Detail: err.Error()})
			continue
		}
		if !slices.Equal(dict.ToArray(), pl.DocIDs()) {
			problems = append(problems, Problem{Field: field, Word: word, Detail: "word dictionary out of sync"})
		}
	}

	for key, ids := range expected {
		if _, ok := seen[key]; ok {
			continue
		}
		field, word, _ := index.SplitFieldKey([]byte(key))
		for id := range ids {
			problems = append(problems, Problem{Field: field, Word: word, DocID: id, Detail: "missing posting list"})
		}
	}
	return problems, nil
}
