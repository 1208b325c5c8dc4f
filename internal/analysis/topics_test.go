package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbyhedeny/alignator/internal/types"
)

func billsWithSummaries(summaries ...string) []types.Bill {
	bills := make([]types.Bill, len(summaries))
	for i, s := range summaries {
		bills[i] = types.Bill{ID: fmt.Sprintf("b%d", i), Summary: s}
	}
	return bills
}

func TestExtractTopicsDegenerateInput(t *testing.T) {
	require.NoError(t, Setup())

	tests := []struct {
		name  string
		bills []types.Bill
	}{
		{
			name:  "no bills",
			bills: nil,
		},
		{
			name:  "single summary",
			bills: billsWithSummaries("clean energy and climate investment"),
		},
		{
			name: "empty summaries are dropped before the minimum check",
			bills: billsWithSummaries(
				"clean energy and climate investment", "", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics := ExtractTopics(tt.bills)
			assert.NotNil(t, topics)
			assert.Empty(t, topics)
		})
	}
}

func TestExtractTopicsTwoSummaries(t *testing.T) {
	require.NoError(t, Setup())

	// With two documents the document-frequency pruning is vacuous by
	// construction: a term either misses the df >= 2 floor or exceeds
	// the 95% ceiling. The extractor reports no topics rather than
	// failing.
	topics := ExtractTopics(billsWithSummaries(
		"climate energy solar wind water investment",
		"climate energy solar wind water program",
	))

	assert.LessOrEqual(t, len(topics), 2)
}

func TestExtractTopics(t *testing.T) {
	require.NoError(t, Setup())

	bills := billsWithSummaries(
		"climate energy solar wind water climate energy",
		"climate energy solar health medicare",
		"health medicare wind water tax",
		"tax solar health wind water",
	)

	topics := ExtractTopics(bills)

	require.Len(t, topics, 4)
	for i := 1; i <= 4; i++ {
		topic, ok := topics[fmt.Sprintf("Topic_%d", i)]
		require.True(t, ok, "missing Topic_%d", i)
		assert.Len(t, topic.TopWords, 5)
		assert.GreaterOrEqual(t, topic.Weight, 0.0)
	}
}

func TestExtractTopicsTopicCountTracksCorpusSize(t *testing.T) {
	require.NoError(t, Setup())

	bills := billsWithSummaries(
		"climate energy solar wind water",
		"climate energy solar health medicare",
		"health medicare wind water energy",
	)

	topics := ExtractTopics(bills)
	assert.Len(t, topics, 3)
}

func TestExtractTopicsDeterministic(t *testing.T) {
	require.NoError(t, Setup())

	bills := billsWithSummaries(
		"climate energy solar wind water climate",
		"climate energy solar health medicare",
		"health medicare wind water tax",
		"tax solar health wind water",
	)

	first := ExtractTopics(bills)
	second := ExtractTopics(bills)

	assert.Equal(t, first, second)
}
