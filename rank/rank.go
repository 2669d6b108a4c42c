// Package rank orders matched documents by a configurable cascade of
// criteria. Each criterion partitions the candidates; ties fall through to
// the next criterion and finally to the internal document id, so a given
// index state always yields the same order.
package rank

import (
	"fmt"
	"sort"

	"github.com/hupe1980/lexgo/document"
)

// Doc carries the precomputed ranking features of one candidate.
type Doc struct {
	ID uint32

	// Matched is the number of query terms the document covered.
	Matched int

	// Typos is the total edit distance spent across matched terms.
	Typos int

	// Exact is the number of whole-word, typo-free term matches.
	Exact int

	// Proximity is the positional spread cost. Lower is better.
	Proximity int64

	// Attribute is the summed field weight of the matches. Higher is better.
	Attribute int64

	// SortValues holds the document's values for the requested sort fields,
	// in request order. Missing fields have HasSort false.
	SortValues []document.Value
	HasSort    []bool
}

// Criterion compares two candidates. A positive result ranks a before b.
type Criterion interface {
	Name() string
	Compare(a, b *Doc) int
}

// Scorer is implemented by criteria that expose a per-document score for
// result breakdowns. Higher is better.
type Scorer interface {
	Score(d *Doc) int64
}

type wordsCriterion struct{}

func (wordsCriterion) Name() string          { return document.RuleWords }
func (wordsCriterion) Compare(a, b *Doc) int { return a.Matched - b.Matched }
func (wordsCriterion) Score(d *Doc) int64    { return int64(d.Matched) }

type typoCriterion struct{}

func (typoCriterion) Name() string          { return document.RuleTypo }
func (typoCriterion) Compare(a, b *Doc) int { return b.Typos - a.Typos }
func (typoCriterion) Score(d *Doc) int64    { return -int64(d.Typos) }

type proximityCriterion struct{}

func (proximityCriterion) Name() string { return document.RuleProximity }
func (proximityCriterion) Compare(a, b *Doc) int {
	switch {
	case a.Proximity < b.Proximity:
		return 1
	case a.Proximity > b.Proximity:
		return -1
	}
	return 0
}
func (proximityCriterion) Score(d *Doc) int64 { return -d.Proximity }

type attributeCriterion struct{}

func (attributeCriterion) Name() string { return document.RuleAttribute }
func (attributeCriterion) Compare(a, b *Doc) int {
	switch {
	case a.Attribute > b.Attribute:
		return 1
	case a.Attribute < b.Attribute:
		return -1
	}
	return 0
}
func (attributeCriterion) Score(d *Doc) int64 { return d.Attribute }

type exactnessCriterion struct{}

func (exactnessCriterion) Name() string          { return document.RuleExactness }
func (exactnessCriterion) Compare(a, b *Doc) int { return a.Exact - b.Exact }
func (exactnessCriterion) Score(d *Doc) int64    { return int64(d.Exact) }

// SortSpec is one requested sort dimension.
type SortSpec struct {
	Field string
	Desc  bool
}

type sortCriterion struct {
	spec SortSpec
	pos  int
}

func (c sortCriterion) Name() string {
	if c.spec.Desc {
		return c.spec.Field + ":desc"
	}
	return c.spec.Field + ":asc"
}

// Compare ranks documents missing the sort field last, whatever the
// direction.
func (c sortCriterion) Compare(a, b *Doc) int {
	ha := c.pos < len(a.HasSort) && a.HasSort[c.pos]
	hb := c.pos < len(b.HasSort) && b.HasSort[c.pos]
	switch {
	case ha && !hb:
		return 1
	case !ha && hb:
		return -1
	case !ha:
		return 0
	}
	cmp := a.SortValues[c.pos].Compare(b.SortValues[c.pos])
	if c.spec.Desc {
		return cmp
	}
	return -cmp
}

// Build resolves a ranking-rule list into criteria. The sort rule expands
// into the request's sort specs at its position and is dropped when the
// request does not sort.
func Build(rules []string, sorts []SortSpec) ([]Criterion, error) {
	var out []Criterion
	for _, rule := range rules {
		switch rule {
		case document.RuleWords:
			out = append(out, wordsCriterion{})
		case document.RuleTypo:
			out = append(out, typoCriterion{})
		case document.RuleProximity:
			out = append(out, proximityCriterion{})
		case document.RuleAttribute:
			out = append(out, attributeCriterion{})
		case document.RuleExactness:
			out = append(out, exactnessCriterion{})
		case document.RuleSort:
			for i, s := range sorts {
				out = append(out, sortCriterion{spec: s, pos: i})
			}
		default:
			return nil, fmt.Errorf("rank: unknown ranking rule %q", rule)
		}
	}
	return out, nil
}

// Sort orders docs by the criteria cascade, breaking remaining ties by
// ascending document id.
func Sort(docs []*Doc, criteria []Criterion) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, c := range criteria {
			if v := c.Compare(docs[i], docs[j]); v != 0 {
				return v > 0
			}
		}
		return docs[i].ID < docs[j].ID
	})
}

// Scores reports the per-criterion score of one document for result
// breakdowns. Sort criteria carry no score and are skipped.
func Scores(d *Doc, criteria []Criterion) map[string]int64 {
	out := make(map[string]int64, len(criteria))
	for _, c := range criteria {
		if s, ok := c.(Scorer); ok {
			out[c.Name()] = s.Score(d)
		}
	}
	return out
}
