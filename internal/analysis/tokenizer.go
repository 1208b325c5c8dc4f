package analysis

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Shared NLP state initialized once by Setup. Scorers that find it missing
// degrade to their neutral defaults instead of failing.
var (
	setupOnce sync.Once
	setupErr  error

	stopWords map[string]struct{}
	vader     *govader.SentimentIntensityAnalyzer
)

// defaultStopWords is the standard English stop-word list applied before
// keyword matching and topic extraction. Keyword sets are authored against
// the same lowercase alphabetic tokenization, so changes here must be
// mirrored in the lexicon configuration.
var defaultStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could",
	"did", "do", "does", "doing", "down", "during", "each", "few", "for",
	"from", "further", "had", "has", "have", "having", "he", "her", "here",
	"hers", "herself", "him", "himself", "his", "how", "i", "if", "in",
	"into", "is", "it", "its", "itself", "just", "me", "more", "most",
	"my", "myself", "no", "nor", "not", "now", "of", "off", "on", "once",
	"only", "or", "other", "our", "ours", "ourselves", "out", "over",
	"own", "same", "she", "should", "so", "some", "such", "than", "that",
	"the", "their", "theirs", "them", "themselves", "then", "there",
	"these", "they", "this", "those", "through", "to", "too", "under",
	"until", "up", "very", "was", "we", "were", "what", "when", "where",
	"which", "while", "who", "whom", "why", "will", "with", "would",
	"you", "your", "yours", "yourself", "yourselves",
}

// Setup initializes the shared NLP resources: the stop-word set and the
// VADER sentiment analyzer. It is idempotent; only the first call does
// work. A failure leaves the scorers degraded to neutral defaults rather
// than unusable, so callers may log the error and continue.
func Setup() error {
	setupOnce.Do(func() {
		stopWords = make(map[string]struct{}, len(defaultStopWords))
		for _, w := range defaultStopWords {
			stopWords[w] = struct{}{}
		}

		defer func() {
			if r := recover(); r != nil {
				vader = nil
				setupErr = fmt.Errorf("sentiment analyzer init failed: %v", r)
			}
		}()
		vader = govader.NewSentimentIntensityAnalyzer()
	})
	return setupErr
}

// Tokenize lowercases text, splits it into purely alphabetic word tokens
// and drops stop words. An empty result is a valid outcome, not an error.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	tokens := make([]string, 0, len(lower)/6)

	var sb strings.Builder
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		word := sb.String()
		sb.Reset()
		if _, stop := stopWords[word]; !stop {
			tokens = append(tokens, word)
		}
	}

	for _, r := range lower {
		if r >= 'a' && r <= 'z' {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
