package search

// Ranking features derived from a candidate's per-term match metadata.

// crossFieldCost is charged for an adjacent term pair that does not co-occur
// in a single field, and for pairs with an unmatched side.
const crossFieldCost = 8

// TypoCount sums the typos spent across all matched terms.
func (c *Candidate) TypoCount() int {
	total := 0
	for _, t := range c.Terms {
		if t != nil {
			total += t.Typos
		}
	}
	return total
}

// ExactCount counts terms matched whole and typo-free.
func (c *Candidate) ExactCount() int {
	n := 0
	for _, t := range c.Terms {
		if t != nil && t.Exact {
			n++
		}
	}
	return n
}

// AttributeScore sums the best field weight of every matched term.
func (c *Candidate) AttributeScore() int64 {
	var total int64
	for _, t := range c.Terms {
		if t != nil {
			total += int64(t.Weight)
		}
	}
	return total
}

// ProximityCost sums, over adjacent query term pairs, the smallest position
// distance between their matches. Lower is better; documents where the terms
// sit side by side in one field cost the least.
func (c *Candidate) ProximityCost() int64 {
	var total int64
	for i := 0; i+1 < len(c.Terms); i++ {
		a, b := c.Terms[i], c.Terms[i+1]
		if a == nil || b == nil || a.Field != b.Field {
			total += crossFieldCost
			continue
		}
		best := int64(crossFieldCost)
		for _, pa := range a.Positions {
			for _, pb := range b.Positions {
				d := int64(pb) - int64(pa)
				if d < 0 {
					d = -d
				}
				if d < best {
					best = d
				}
			}
		}
		total += best
	}
	return total
}
