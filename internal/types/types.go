package types

// Member represents a legislator within a legislative session
type Member struct {
	ID       string `json:"id"`
	Session  int    `json:"session"`
	Chamber  string `json:"chamber"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	State    string `json:"state"`
	District string `json:"district,omitempty"`
}

// Bill represents a bill sponsored by a member
type Bill struct {
	ID        string `json:"id"`
	Session   int    `json:"session"`
	Type      string `json:"type"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	SponsorID string `json:"sponsor_id"`
	Summary   string `json:"summary"`
}

// MemberVote represents one recorded position of a member on a roll call.
// Position is an open string domain; "Yes"/"No" are the common values but
// "Present", "Not Voting" and others appear in the data.
type MemberVote struct {
	VoteID   string `json:"vote_id"`
	MemberID string `json:"member_id"`
	Position string `json:"position"`
}

// Party labels as normalized from the upstream API
const (
	PartyDemocratic  = "Democratic"
	PartyRepublican  = "Republican"
	PartyIndependent = "Independent"
	PartyUnknown     = "Unknown"
)

// AnalyzeRequest is the request body for the analyze endpoint
type AnalyzeRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Session  int    `json:"session"`
}

// CompareRequest is the request body for the compare endpoint
type CompareRequest struct {
	MemberIDs []string `json:"member_ids" binding:"required"`
	Session   int      `json:"session"`
}

// SyncRequest is the request body for the sync endpoint
type SyncRequest struct {
	Session int `json:"session"`
}
