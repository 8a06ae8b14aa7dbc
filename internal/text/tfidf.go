package text

import (
	"errors"
	"math"
	"regexp"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrEmptyCorpus is returned when there are no documents to compare.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrEmptyVocabulary is returned when no document contains a usable term.
	ErrEmptyVocabulary = errors.New("empty vocabulary; documents contain no terms")
)

// Vectorizer computes the pairwise similarity of a set of documents.
// Implementations must be safe for concurrent use.
type Vectorizer interface {
	// Similarity returns an n×n matrix where entry [i][j] is the similarity
	// of documents i and j, in [0, 1].
	Similarity(docs []string) ([][]float64, error)
}

// TFIDF fits a TF-IDF model on exactly the documents it is asked to compare
// and scores pairs by cosine similarity. Terms are runs of two or more word
// characters, lowercased. There is no stop-word removal, term frequencies
// are raw counts, and IDF is smoothed as log((1+n)/(1+df))+1.
type TFIDF struct {
	termPattern *regexp.Regexp
}

// NewTFIDF creates a TF-IDF vectorizer.
func NewTFIDF() *TFIDF {
	return &TFIDF{termPattern: regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)}
}

// Similarity implements Vectorizer.
func (v *TFIDF) Similarity(docs []string) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	vectors, err := v.fitTransform(docs)
	if err != nil {
		return nil, err
	}

	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if norm(vectors[i]) > 0 {
			matrix[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			sim := clamp01(dot(vectors[i], vectors[j]))
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix, nil
}

// fitTransform builds the vocabulary over docs and returns one L2-normalized
// TF-IDF vector per document. Documents without terms get a zero vector.
func (v *TFIDF) fitTransform(docs []string) ([][]float64, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, term := range v.terms(doc) {
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	// Sorted vocabulary keeps summation order, and so the floats, stable.
	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([][]float64, len(docs))
	for d, tf := range counts {
		vec := make([]float64, len(vocab))
		for i, term := range vocab {
			if c := tf[term]; c > 0 {
				vec[i] = float64(c) * idf[i]
			}
		}
		if l := norm(vec); l > 0 {
			for i := range vec {
				vec[i] /= l
			}
		}
		vectors[d] = vec
	}
	return vectors, nil
}

func (v *TFIDF) terms(doc string) []string {
	lower := cases.Lower(language.Und).String(doc)
	return v.termPattern.FindAllString(lower, -1)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero.
func CosineSimilarity(a, b []float64) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

// UniformMatrix returns an n×n matrix filled with ones.
func UniformMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		row := make([]float64, n)
		for j := range row {
			row[j] = 1
		}
		m[i] = row
	}
	return m
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
