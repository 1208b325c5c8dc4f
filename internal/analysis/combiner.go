package analysis

// clamp bounds x to [lo, hi]
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Combine merges the text and voting signals into one bounded alignment
// score plus a three-way ideology label.
//
// The text score is the normalized difference of the two keyword scores;
// a member with zero keyword hits is textually neutral, not missing. The
// text/voting split trusts bill text more than the two-valued Yes/No
// signal. Both the split and the label thresholds come from the
// swappable scoring configuration.
func Combine(text TextAnalysis, voting VotingAnalysis, weights ScoringWeights) (float64, string) {
	textScore := 0.0
	if total := text.LiberalScore + text.ConservativeScore; total > 0 {
		textScore = (text.LiberalScore - text.ConservativeScore) / total
	}

	score := weights.TextWeight*textScore + weights.VotingWeight*voting.PartyAlignment
	score = clamp(score, -1, 1)

	return score, ideologyLabel(score, weights)
}

// ideologyLabel partitions [-1,1] into three contiguous intervals. The
// threshold comparisons are strict: a score exactly on a threshold is
// Moderate.
func ideologyLabel(score float64, weights ScoringWeights) string {
	switch {
	case score > weights.LiberalThreshold:
		return IdeologyLiberal
	case score < weights.ConservativeThreshold:
		return IdeologyConservative
	default:
		return IdeologyModerate
	}
}
