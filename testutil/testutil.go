package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/lexgo/document"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Adjectives, nouns and categories used by the corpus generators.
var (
	Adjectives = []string{
		"red", "blue", "green", "black", "white", "vintage", "modern",
		"lightweight", "durable", "waterproof", "premium", "classic",
	}
	Nouns = []string{
		"running shoes", "hiking boots", "wool socks", "leather jacket",
		"cotton shirt", "denim jeans", "baseball cap", "rain coat",
		"training shorts", "winter gloves",
	}
	Categories = []string{
		"shoes", "boots", "socks", "jackets", "shirts",
		"jeans", "caps", "coats", "shorts", "gloves",
	}
)

// Word returns a random adjective.
func (r *RNG) Word() string {
	return Adjectives[r.Intn(len(Adjectives))]
}

// Products generates n product documents with deterministic content for a
// given seed. Primary keys are "p-0000" style, titles combine a random
// adjective with a noun, and category and price are derived from the noun.
func Products(r *RNG, n int) []document.Document {
	docs := make([]document.Document, n)
	for i := range docs {
		pick := r.Intn(len(Nouns))
		docs[i] = document.Document{
			"id":       document.String(fmt.Sprintf("p-%04d", i)),
			"title":    document.String(r.Word() + " " + Nouns[pick]),
			"category": document.String(Categories[pick]),
			"price":    document.Number(float64(1+r.Intn(2000)) / 10),
		}
	}
	return docs
}

// ProductSchema returns the schema the generated products fit.
func ProductSchema() document.Schema {
	return document.Schema{
		"title":    {Searchable: true, Weight: 2},
		"category": {Facet: true, FacetType: document.FacetTypeString},
		"price":    {Facet: true, FacetType: document.FacetTypeNumber, Sortable: true},
	}
}

// Typo applies one random edit to word: a substitution, deletion, insertion
// or adjacent transposition. Words shorter than two runes are returned
// unchanged.
func Typo(r *RNG, word string) string {
	runes := []rune(word)
	if len(runes) < 2 {
		return word
	}
	letter := rune('a' + r.Intn(26))
	switch r.Intn(4) {
	case 0: // substitution
		i := r.Intn(len(runes))
		runes[i] = letter
	case 1: // deletion
		i := r.Intn(len(runes))
		runes = append(runes[:i], runes[i+1:]...)
	case 2: // insertion
		i := r.Intn(len(runes) + 1)
		runes = append(runes[:i], append([]rune{letter}, runes[i:]...)...)
	default: // transposition
		i := r.Intn(len(runes) - 1)
		runes[i], runes[i+1] = runes[i+1], runes[i]
	}
	out := string(runes)
	if out == word || strings.TrimSpace(out) != out {
		return Typo(r, word)
	}
	return out
}
