// Package text provides the tokenization and vector-space primitives used
// to score responses.
package text

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidUTF8 is returned by tokenizers that only accept valid UTF-8.
var ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

// Tokenizer splits text into lowercase word tokens.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// WordTokenizer extracts runs of letters and digits, keeping inner
// apostrophes so contractions like "don't" stay whole.
type WordTokenizer struct {
	pattern *regexp.Regexp
}

// NewWordTokenizer returns a tokenizer for Unicode word tokens.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{
		pattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
	}
}

// Tokenize lowercases text and returns its word tokens in order.
// It fails on invalid UTF-8 rather than guessing at byte boundaries.
func (t *WordTokenizer) Tokenize(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	// cases.Caser is stateful, so one is created per call.
	lower := cases.Lower(language.Und).String(text)
	tokens := t.pattern.FindAllString(lower, -1)
	for i, tok := range tokens {
		tokens[i] = strings.ReplaceAll(tok, "’", "'")
	}
	return tokens, nil
}

// FieldTokens is the fallback tokenization: lowercase, then split on
// whitespace. It never fails and applies no stop-word filtering.
func FieldTokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// TokenSet returns the distinct tokens.
func TokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// ContentWords returns the distinct tokens that are not English stop words.
func ContentWords(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if IsStopWord(tok) {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
