package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentimentEmptyText(t *testing.T) {
	require.NoError(t, Setup())

	assert.Zero(t, Sentiment(""))
}

func TestSentimentBounds(t *testing.T) {
	require.NoError(t, Setup())

	texts := []string{
		"This bill is a wonderful, excellent achievement for families.",
		"This bill is a terrible, disastrous failure.",
		"The committee shall submit a report by June 30.",
		"climate energy healthcare",
	}

	for _, text := range texts {
		score := Sentiment(text)
		assert.GreaterOrEqual(t, score, -1.0, "text %q", text)
		assert.LessOrEqual(t, score, 1.0, "text %q", text)
	}
}

func TestSentimentPolarity(t *testing.T) {
	require.NoError(t, Setup())

	positive := Sentiment("This is a great, wonderful and excellent proposal.")
	negative := Sentiment("This is a horrible, terrible and disastrous proposal.")

	assert.Greater(t, positive, 0.0)
	assert.Less(t, negative, 0.0)
	assert.Greater(t, positive, negative)
}
