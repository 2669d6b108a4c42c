package filter

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/store"
)

// Evaluate resolves the expression tree to a set of document ids against the
// facet indexes visible in tx. The universe is the set of all live documents;
// NOT and != are complements against it. The returned bitmap is private to
// the caller.
func Evaluate(tx store.Tx, buckets index.Buckets, n Node, universe *index.Bitmap) (*index.Bitmap, error) {
	switch node := n.(type) {
	case *Comparison:
		return evalComparison(tx, buckets, node, universe)
	case *And:
		left, err := Evaluate(tx, buckets, node.Left, universe)
		if err != nil {
			return nil, err
		}
		if left.IsEmpty() {
			return left, nil
		}
		right, err := Evaluate(tx, buckets, node.Right, universe)
		if err != nil {
			return nil, err
		}
		left.And(right)
		return left, nil
	case *Or:
		left, err := Evaluate(tx, buckets, node.Left, universe)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(tx, buckets, node.Right, universe)
		if err != nil {
			return nil, err
		}
		left.Or(right)
		return left, nil
	case *Not:
		inner, err := Evaluate(tx, buckets, node.Expr, universe)
		if err != nil {
			return nil, err
		}
		out := universe.Clone()
		out.AndNot(inner)
		return out, nil
	default:
		return nil, fmt.Errorf("filter: unknown node type %T", n)
	}
}

func evalComparison(tx store.Tx, buckets index.Buckets, c *Comparison, universe *index.Bitmap) (*index.Bitmap, error) {
	switch c.Op {
	case OpEqual:
		return facetSet(tx, buckets, c)
	case OpNotEqual:
		eq, err := facetSet(tx, buckets, c)
		if err != nil {
			return nil, err
		}
		out := universe.Clone()
		out.AndNot(eq)
		return out, nil
	default:
		return numericRange(tx, buckets, c)
	}
}

func facetSet(tx store.Tx, buckets index.Buckets, c *Comparison) (*index.Bitmap, error) {
	raw := tx.Get(buckets.Facets, index.FieldKey(c.Field, c.Value.Key()))
	if raw == nil {
		return index.NewBitmap(), nil
	}
	return index.DecodeBitmap(raw)
}

func numericRange(tx store.Tx, buckets index.Buckets, c *Comparison) (*index.Bitmap, error) {
	out := index.NewBitmap()
	prefix := index.FieldPrefix(c.Field)
	bound := c.Value.Num

	cur := tx.Cursor(buckets.NumericFacets)
	var k, v []byte
	if c.Op == OpGreaterThan || c.Op == OpGreaterEqual {
		k, v = cur.Seek(index.NumericKey(c.Field, bound))
	} else {
		k, v = cur.Seek(prefix)
	}

	for ; k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
		_, value, ok := index.SplitNumericKey(k)
		if !ok {
			return nil, fmt.Errorf("filter: malformed numeric facet key %x", k)
		}

		include := false
		switch c.Op {
		case OpLessThan:
			if value >= bound {
				return out, nil
			}
			include = true
		case OpLessEqual:
			if value > bound {
				return out, nil
			}
			include = true
		case OpGreaterThan:
			include = value > bound
		case OpGreaterEqual:
			include = value >= bound
		}
		if !include {
			continue
		}

		set, err := index.DecodeBitmap(v)
		if err != nil {
			return nil, err
		}
		out.Or(set)
	}
	return out, nil
}
