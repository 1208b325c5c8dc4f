package analysis

import "github.com/bobbyhedeny/alignator/internal/types"

// Vote positions that feed the party alignment ratio. Any other position
// (Present, Not Voting, ...) is counted in the breakdown but does not
// move the alignment in either direction.
const (
	positionYes = "Yes"
	positionNo  = "No"
)

// AnalyzeVotes reduces a member's vote history to an alignment ratio and
// a consistency ratio. An empty history yields all-zero fields with an
// empty breakdown, never an error.
//
// The most-common-position tie-break is first-encountered order. That
// matches the literal arithmetic of the original heuristic and is kept
// deterministic on purpose.
func AnalyzeVotes(votes []types.MemberVote) VotingAnalysis {
	result := VotingAnalysis{
		PositionBreakdown: make(map[string]int),
	}
	if len(votes) == 0 {
		return result
	}

	// Tally positions, remembering first-seen order for the tie-break.
	order := make([]string, 0, 4)
	for _, v := range votes {
		if _, seen := result.PositionBreakdown[v.Position]; !seen {
			order = append(order, v.Position)
		}
		result.PositionBreakdown[v.Position]++
	}

	result.TotalVotes = len(votes)
	result.YesVotes = result.PositionBreakdown[positionYes]
	result.NoVotes = result.PositionBreakdown[positionNo]

	if decisive := result.YesVotes + result.NoVotes; decisive > 0 {
		result.PartyAlignment = float64(result.YesVotes-result.NoVotes) / float64(decisive)
	}

	mostCommon := 0
	for _, position := range order {
		if count := result.PositionBreakdown[position]; count > mostCommon {
			mostCommon = count
		}
	}
	result.VoteConsistency = float64(mostCommon) / float64(result.TotalVotes)

	return result
}
