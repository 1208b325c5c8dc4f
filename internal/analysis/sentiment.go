package analysis

import "strings"

// Sentiment computes a polarity estimate in [-1,1] for text using the
// VADER compound score. Sentiment is an auxiliary signal: any internal
// failure degrades to neutral (0) instead of propagating.
func Sentiment(text string) (score float64) {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	if err := Setup(); err != nil || vader == nil {
		return 0
	}

	defer func() {
		if r := recover(); r != nil {
			score = 0
		}
	}()

	return vader.PolarityScores(text).Compound
}
