package search

// Incremental Levenshtein rows over a dictionary walked in key order. Row i
// holds the edit distances between the first i runes of a dictionary word and
// every prefix of the query, so sibling words reuse the rows of their common
// prefix and a whole subtree is abandoned once its row minimum exceeds the
// typo budget.

// baseRow returns the distances for the empty word prefix.
func baseRow(queryLen int) []int {
	row := make([]int, queryLen+1)
	for j := range row {
		row[j] = j
	}
	return row
}

// extendRow computes the row after consuming one more word rune. depth is the
// number of word runes consumed before r.
func extendRow(prev []int, r rune, query []rune, depth int) []int {
	row := make([]int, len(prev))
	row[0] = depth + 1
	for j := 1; j < len(row); j++ {
		cost := 1
		if query[j-1] == r {
			cost = 0
		}
		row[j] = min(prev[j]+1, row[j-1]+1, prev[j-1]+cost)
	}
	return row
}

func rowMin(row []int) int {
	m := row[0]
	for _, v := range row[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
