// Package analysis turns field text into normalized, position-tagged words.
// Indexing and querying must use the same Analyzer so that query words line
// up with indexed words.
package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Token is a normalized word with its token offset within the field.
type Token struct {
	Word     string
	Position uint32
}

// Analyzer tokenizes and normalizes text. It is safe for concurrent use.
type Analyzer struct {
	stopWords  map[string]struct{}
	separators map[rune]struct{}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStopWords removes the given (already lowercased) words during
// tokenization.
func WithStopWords(words []string) Option {
	return func(a *Analyzer) {
		for _, w := range words {
			a.stopWords[w] = struct{}{}
		}
	}
}

// WithSeparators treats the given runes as extra word boundaries.
func WithSeparators(seps string) Option {
	return func(a *Analyzer) {
		for _, r := range seps {
			a.separators[r] = struct{}{}
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		stopWords:  map[string]struct{}{},
		separators: map[rune]struct{}{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tokenize splits text into normalized tokens with consecutive positions.
// Stop words are dropped without consuming a position.
func (a *Analyzer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	folded := a.Normalize(text)
	words := strings.FieldsFunc(folded, a.isSeparator)

	tokens := make([]Token, 0, len(words))
	pos := uint32(0)
	for _, w := range words {
		if _, stop := a.stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, Token{Word: w, Position: pos})
		pos++
	}
	return tokens
}

// Words returns the distinct normalized words of text.
func (a *Analyzer) Words(text string) map[string]struct{} {
	tokens := a.Tokenize(text)
	words := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		words[t.Word] = struct{}{}
	}
	return words
}

// Normalize lowercases text and strips diacritics. Query words must pass
// through the same normalization as indexed text.
func (a *Analyzer) Normalize(text string) string {
	return stripDiacritics(strings.ToLower(text))
}

func (a *Analyzer) isSeparator(r rune) bool {
	if _, ok := a.separators[r]; ok {
		return true
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// stripDiacritics removes combining marks after canonical decomposition, so
// "résumé" indexes as "resume".
func stripDiacritics(s string) string {
	// The chain carries internal buffers, so build it per call rather than
	// sharing one transformer across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
