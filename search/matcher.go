// Package search expands query words against the indexed word dictionary and
// collects per-document match metadata for ranking.
//
// Typo expansion never enumerates candidate edits and never scans the whole
// dictionary: the sorted (field, word) keys form an implicit trie that is
// walked with incremental edit-distance rows, and any subtree whose row
// minimum exceeds the typo budget is skipped with a single cursor seek. A
// dictionary entry whose document set does not intersect the search universe
// is discarded before its postings are touched.
package search

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/lexgo/analysis"
	"github.com/hupe1980/lexgo/document"
	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

// TermInfo describes how one query word matched inside one document.
type TermInfo struct {
	// Word is the dictionary word that matched.
	Word string

	// Typos is the edit distance between the query word and the match.
	Typos int

	// Exact reports a distance-zero whole-word match.
	Exact bool

	// Prefix reports that the match only holds for a prefix of Word.
	Prefix bool

	// Weight is the highest weight among the fields the word matched in.
	Weight int

	// Field and Positions locate the match in the best-weighted field.
	Field     string
	Positions []uint32
}

// Candidate is one document matching the query, with per-term metadata.
type Candidate struct {
	ID      uint32
	Matched int
	Terms   []*TermInfo // indexed by query term; nil when unmatched
}

// Result holds the outcome of matching one query.
type Result struct {
	// Terms are the normalized query words, stop words removed.
	Terms []string

	// Candidates is sorted by document id.
	Candidates []*Candidate
}

// Matcher resolves queries against one index.
type Matcher struct {
	buckets  index.Buckets
	analyzer *analysis.Analyzer
	schema   document.Schema
	settings document.Settings

	cache *lru.Cache[string, index.PostingList]
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithPostingsCache caches decoded posting lists keyed by index version, so
// repeated queries against an unchanged index skip store reads. size <= 0
// disables the cache.
func WithPostingsCache(size int) Option {
	return func(m *Matcher) error {
		if size <= 0 {
			m.cache = nil
			return nil
		}
		cache, err := lru.New[string, index.PostingList](size)
		if err != nil {
			return err
		}
		m.cache = cache
		return nil
	}
}

// NewMatcher creates a matcher over the given bucket set.
func NewMatcher(buckets index.Buckets, analyzer *analysis.Analyzer, schema document.Schema, settings document.Settings, opts ...Option) (*Matcher, error) {
	m := &Matcher{
		buckets:  buckets,
		analyzer: analyzer,
		schema:   schema,
		settings: settings,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Match expands the query against the dictionary and returns the candidate
// set permitted by universe. version is the committed index version, used as
// a cache epoch.
func (m *Matcher) Match(tx store.Tx, version uint64, query string, universe *index.Bitmap) (*Result, error) {
	tokens := m.analyzer.Tokenize(query)
	if len(tokens) == 0 {
		return allDocsResult(universe), nil
	}

	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Word
	}
	lastIsPrefix := endsInWord(query)

	byID := map[uint32]*Candidate{}
	for t, term := range terms {
		budget := 0
		if m.settings.TypoTolerance.Enabled {
			budget = m.settings.TypoTolerance.Budget(len([]rune(term)))
		}
		prefixMode := lastIsPrefix && t == len(terms)-1

		for _, field := range m.schema.SearchableFields() {
			matches, err := m.expandField(tx, field, term, budget, prefixMode, universe)
			if err != nil {
				return nil, err
			}
			for _, mt := range matches {
				if err := m.collect(tx, version, byID, universe, t, len(terms), field, mt); err != nil {
					return nil, err
				}
			}
		}
	}

	candidates := make([]*Candidate, 0, len(byID))
	for _, c := range byID {
		if m.settings.MatchingStrategy == document.MatchingStrategyAll && c.Matched != len(terms) {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	return &Result{Terms: terms, Candidates: candidates}, nil
}

// wordMatch is one dictionary word accepted for a query term.
type wordMatch struct {
	word   string
	typos  int
	prefix bool
}

// expandField walks the dictionary entries of one field.
func (m *Matcher) expandField(tx store.Tx, field, term string, budget int, prefixMode bool, universe *index.Bitmap) ([]wordMatch, error) {
	prefix := index.FieldPrefix(field)
	qr := []rune(term)

	var out []wordMatch

	// words holds the runes shared with the previous key; rows and bests are
	// one longer, starting at the empty-prefix state.
	var words []rune
	rows := [][]int{baseRow(len(qr))}
	bests := []int{len(qr)}

	c := tx.Cursor(m.buckets.Prefixes)
	k, v := c.Seek(prefix)
	for k != nil && bytes.HasPrefix(k, prefix) {
		wr := []rune(string(k[len(prefix):]))

		common := 0
		for common < len(words) && common < len(wr) && words[common] == wr[common] {
			common++
		}
		words = words[:common]
		rows = rows[:common+1]
		bests = bests[:common+1]

		pruned := false
		for i := common; i < len(wr); i++ {
			row := extendRow(rows[len(rows)-1], wr[i], qr, i)
			best := min(bests[len(bests)-1], row[len(qr)])
			if rowMin(row) > budget && !(prefixMode && best <= budget) {
				// No word below this node can match; hop over the subtree.
				skip := make([]byte, 0, len(prefix)+4*(i+1)+1)
				skip = append(skip, prefix...)
				skip = append(skip, string(wr[:i+1])...)
				skip = append(skip, 0xff)
				k, v = c.Seek(skip)
				pruned = true
				break
			}
			words = append(words, wr[i])
			rows = append(rows, row)
			bests = append(bests, best)
		}
		if pruned {
			continue
		}

		whole := rows[len(rows)-1][len(qr)]
		best := bests[len(bests)-1]
		var mt wordMatch
		switch {
		case whole <= budget:
			mt = wordMatch{word: string(wr), typos: whole}
		case prefixMode && best <= budget:
			mt = wordMatch{word: string(wr), typos: best, prefix: true}
		default:
			k, v = c.Next()
			continue
		}

		// Skip words whose documents are all outside the universe.
		dict, err := index.DecodeBitmap(v)
		if err != nil {
			return nil, fmt.Errorf("search: word dictionary %q: %w", k, err)
		}
		if universe == nil || dict.Intersects(universe) {
			out = append(out, mt)
		}
		k, v = c.Next()
	}
	return out, nil
}

// collect folds one matched word's postings into the candidate set.
func (m *Matcher) collect(tx store.Tx, version uint64, byID map[uint32]*Candidate, universe *index.Bitmap, term, termCount int, field string, mt wordMatch) error {
	pl, err := m.postings(tx, version, field, mt.word)
	if err != nil {
		return err
	}
	weight := m.schema[field].Weight

	for _, p := range pl {
		if universe != nil && !universe.Contains(p.DocID) {
			continue
		}
		cand := byID[p.DocID]
		if cand == nil {
			cand = &Candidate{ID: p.DocID, Terms: make([]*TermInfo, termCount)}
			byID[p.DocID] = cand
		}
		info := &TermInfo{
			Word:      mt.word,
			Typos:     mt.typos,
			Exact:     mt.typos == 0 && !mt.prefix,
			Prefix:    mt.prefix,
			Weight:    weight,
			Field:     field,
			Positions: p.Positions,
		}
		if cur := cand.Terms[term]; cur == nil {
			cand.Terms[term] = info
			cand.Matched++
		} else if better(info, cur) {
			if info.Weight < cur.Weight {
				info.Weight = cur.Weight
			}
			cand.Terms[term] = info
		} else if info.Weight > cur.Weight {
			cur.Weight = info.Weight
		}
	}
	return nil
}

// better orders term matches: fewer typos first, then whole-word over prefix.
func better(a, b *TermInfo) bool {
	if a.Typos != b.Typos {
		return a.Typos < b.Typos
	}
	if a.Prefix != b.Prefix {
		return !a.Prefix
	}
	return a.Weight > b.Weight
}

func (m *Matcher) postings(tx store.Tx, version uint64, field, word string) (index.PostingList, error) {
	var key string
	if m.cache != nil {
		key = strconv.FormatUint(version, 10) + ":" + field + "\x00" + word
		if pl, ok := m.cache.Get(key); ok {
			return pl, nil
		}
	}
	raw := tx.Get(m.buckets.Postings, index.FieldKey(field, word))
	if raw == nil {
		return nil, nil
	}
	pl, err := index.DecodePostings(raw)
	if err != nil {
		return nil, fmt.Errorf("search: postings %s/%s: %w", field, word, err)
	}
	if m.cache != nil {
		m.cache.Add(key, pl)
	}
	return pl, nil
}

func allDocsResult(universe *index.Bitmap) *Result {
	res := &Result{}
	if universe == nil {
		return res
	}
	for id := range universe.All() {
		res.Candidates = append(res.Candidates, &Candidate{ID: id})
	}
	return res
}

// endsInWord reports whether the query's final rune is part of a word, which
// makes the last query word a prefix to complete.
func endsInWord(query string) bool {
	var last rune
	for _, r := range query {
		last = r
	}
	return unicode.IsLetter(last) || unicode.IsDigit(last)
}
