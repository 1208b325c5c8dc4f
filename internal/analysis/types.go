package analysis

import (
	"time"

	"github.com/bobbyhedeny/alignator/internal/types"
)

// Ideology labels derived from the alignment score
const (
	IdeologyLiberal      = "Liberal"
	IdeologyModerate     = "Moderate"
	IdeologyConservative = "Conservative"
)

// TextAnalysis summarizes the text signals extracted from a member's bills
type TextAnalysis struct {
	Sentiment         float64 `json:"sentiment"`
	LiberalScore      float64 `json:"liberal_score"`
	ConservativeScore float64 `json:"conservative_score"`
	TextLength        int     `json:"text_length"`
	BillCount         int     `json:"bill_count"`
}

// VotingAnalysis summarizes a member's recorded vote positions
type VotingAnalysis struct {
	PartyAlignment    float64        `json:"party_alignment"`
	VoteConsistency   float64        `json:"vote_consistency"`
	TotalVotes        int            `json:"total_votes"`
	YesVotes          int            `json:"yes_votes"`
	NoVotes           int            `json:"no_votes"`
	PositionBreakdown map[string]int `json:"position_breakdown"`
}

// TopicScore is one latent topic extracted from bill summaries.
// TopWords is ordered ascending by term weight (most important last).
type TopicScore struct {
	TopWords []string `json:"top_words"`
	Weight   float64  `json:"weight"`
}

// Result is a complete alignment analysis for one member in one session.
// Results are append-only: every analysis run produces a new record with
// its own CreatedAt, and storage returns the most recent one on lookup.
type Result struct {
	MemberID       string                `json:"member_id"`
	Session        int                   `json:"session"`
	Member         types.Member          `json:"member_info"`
	AlignmentScore float64               `json:"alignment_score"`
	Ideology       string                `json:"ideology_score"`
	TextAnalysis   TextAnalysis          `json:"text_analysis"`
	VotingAnalysis VotingAnalysis        `json:"voting_analysis"`
	TopicScores    map[string]TopicScore `json:"topic_scores"`
	BillCount      int                   `json:"bill_count"`
	VoteCount      int                   `json:"vote_count"`
	CreatedAt      time.Time             `json:"analysis_timestamp"`
}

// PartySummary aggregates analysis results for one party
type PartySummary struct {
	MemberCount    int            `json:"member_count"`
	AvgAlignment   float64        `json:"avg_alignment_score"`
	IdeologyCounts map[string]int `json:"ideology_counts"`
}
