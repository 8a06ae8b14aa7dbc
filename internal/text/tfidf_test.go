package text

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFIDF_Similarity_Properties(t *testing.T) {
	docs := []string{
		"Paris is the capital of France.",
		"The capital of France is Paris, a large city.",
		"Bananas are yellow fruit rich in potassium.",
	}

	m, err := NewTFIDF().Similarity(docs)
	require.NoError(t, err)
	require.Len(t, m, 3)

	for i := range m {
		require.Len(t, m[i], 3)
		assert.Equal(t, 1.0, m[i][i], "diagonal must be exactly one")
		for j := range m[i] {
			assert.Equal(t, m[i][j], m[j][i], "matrix must be symmetric")
			assert.GreaterOrEqual(t, m[i][j], 0.0)
			assert.LessOrEqual(t, m[i][j], 1.0)
		}
	}

	assert.Greater(t, m[0][1], m[0][2], "paraphrases should be closer than unrelated text")
	assert.Equal(t, 0.0, m[0][2], "documents without shared terms are orthogonal")
}

func TestTFIDF_Similarity_IdenticalDocuments(t *testing.T) {
	m, err := NewTFIDF().Similarity([]string{"same words here", "same words here"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m[0][1], 1e-12)
}

func TestTFIDF_Similarity_ZeroVector(t *testing.T) {
	m, err := NewTFIDF().Similarity([]string{"real content", "!!", "a"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, m[0][0])
	assert.Equal(t, 0.0, m[1][1], "a document without terms has no self similarity")
	assert.Equal(t, 0.0, m[0][1])
	assert.Equal(t, 0.0, m[2][2], "single characters are not terms")
}

func TestTFIDF_Similarity_Errors(t *testing.T) {
	v := NewTFIDF()

	_, err := v.Similarity(nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = v.Similarity([]string{"", "?", "a b c"})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestTFIDF_Similarity_Deterministic(t *testing.T) {
	docs := []string{
		"alpha beta gamma delta",
		"beta gamma epsilon",
		"gamma delta zeta eta theta",
	}
	v := NewTFIDF()

	first, err := v.Similarity(docs)
	require.NoError(t, err)
	for range 5 {
		again, err := v.Similarity(docs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTFIDF_KnownValue(t *testing.T) {
	// Two documents sharing one of two terms each: "aa bb" and "aa cc".
	// idf(aa)=1, idf(bb)=idf(cc)=ln(3/2)+1.
	m, err := NewTFIDF().Similarity([]string{"aa bb", "aa cc"})
	require.NoError(t, err)

	rare := math.Log(1.5) + 1
	want := 1 / (1 + rare*rare)
	assert.InDelta(t, want, m[0][1], 1e-12)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestUniformMatrix(t *testing.T) {
	m := UniformMatrix(3)
	require.Len(t, m, 3)
	for _, row := range m {
		assert.Equal(t, []float64{1, 1, 1}, row)
	}
	assert.Empty(t, UniformMatrix(0))
}
