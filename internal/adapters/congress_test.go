package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbyhedeny/alignator/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler) *CongressClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewCongressClient(CongressConfig{
		APIKey:            "test-key",
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	})
	t.Cleanup(func() { client.Close() })

	return client
}

func TestFetchMembers(t *testing.T) {
	var sawAPIKey bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/member", r.URL.Path)
		sawAPIKey = r.Header.Get("X-API-Key") == "test-key"

		chamber := r.URL.Query().Get("chamber")
		if chamber == "senate" {
			json.NewEncoder(w).Encode(map[string]any{"members": []any{}})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"members": []map[string]any{
				{
					"bioguideId": "A000001",
					"name":       "Adams, Alice",
					"partyName":  "Democratic",
					"state":      "California",
					"district":   12,
				},
				{
					"bioguideId": "B000002",
					"name":       "Brown, Bob",
					"partyName":  "Republican",
					"state":      "Texas",
				},
			},
		})
	})

	client := newTestClient(t, handler)

	members, err := client.FetchMembers(context.Background(), 118, "both")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.True(t, sawAPIKey)

	assert.Equal(t, types.Member{
		ID:       "A000001",
		Session:  118,
		Chamber:  "house",
		Name:     "Adams, Alice",
		Party:    types.PartyDemocratic,
		State:    "California",
		District: "12",
	}, members[0])
	assert.Equal(t, types.PartyRepublican, members[1].Party)
	assert.Empty(t, members[1].District)
}

func TestFetchMembersPaginates(t *testing.T) {
	page := func(n int) []map[string]any {
		members := make([]map[string]any, n)
		for i := range members {
			members[i] = map[string]any{
				"bioguideId": fmt.Sprintf("M%06d", i),
				"name":       "Member",
				"partyName":  "Independent",
				"state":      "VT",
			}
		}
		return members
	}

	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			json.NewEncoder(w).Encode(map[string]any{"members": page(250)})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"members": page(3)})
	})

	client := newTestClient(t, handler)

	members, err := client.fetchChamberMembers(context.Background(), 118, "house")
	require.NoError(t, err)
	assert.Len(t, members, 253)
	assert.Equal(t, 2, requests)
}

func TestFetchMemberBills(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/member/A000001/sponsored-legislation", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"sponsoredLegislation": []map[string]any{
				{"congress": 118, "type": "HR", "number": 42, "title": "Clean Energy Act"},
				{"congress": 118, "type": "S", "number": "7", "title": "Border Act"},
				{"congress": 117, "type": "HR", "number": 1, "title": "Old Bill"},
			},
		})
	})

	client := newTestClient(t, handler)

	bills, err := client.FetchMemberBills(context.Background(), "A000001", 118)
	require.NoError(t, err)
	require.Len(t, bills, 2)

	assert.Equal(t, types.Bill{
		ID:        "118-hr-42",
		Session:   118,
		Type:      "hr",
		Number:    42,
		Title:     "Clean Energy Act",
		SponsorID: "A000001",
	}, bills[0])
	assert.Equal(t, "118-s-7", bills[1].ID)
}

func TestFetchBillSummary(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bill/118/hr/42/summaries", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"summaries": []map[string]any{
				{"text": "<p>This bill invests in <b>renewable</b> energy.</p>"},
			},
		})
	})

	client := newTestClient(t, handler)

	summary, err := client.FetchBillSummary(context.Background(), 118, "hr", 42)
	require.NoError(t, err)
	assert.Equal(t, "This bill invests in renewable energy.", summary)
}

func TestFetchBillSummaryEmpty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"summaries": []any{}})
	})

	client := newTestClient(t, handler)

	summary, err := client.FetchBillSummary(context.Background(), 118, "hr", 42)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestFetchBillText(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/bill/118/hr/42/text", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"textVersions": []map[string]any{
				{
					"type": "Introduced in House",
					"formats": []map[string]any{
						{"type": "PDF", "url": server.URL + "/content/hr42.pdf"},
						{"type": "Formatted Text", "url": server.URL + "/content/hr42.htm"},
					},
				},
			},
		})
	})
	mux.HandleFunc("/content/hr42.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Be it enacted by the Senate</body></html>")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewCongressClient(CongressConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	})
	t.Cleanup(func() { client.Close() })

	text, err := client.FetchBillText(context.Background(), 118, "hr", 42)
	require.NoError(t, err)
	assert.Equal(t, "Be it enacted by the Senate", text)
}

func TestFetchBillTextNoVersions(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"textVersions": []any{}})
	})

	client := newTestClient(t, handler)

	text, err := client.FetchBillText(context.Background(), 118, "hr", 42)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFetchMemberVotes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/member/A000001/votes", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"votes": []map[string]any{
				{"voteId": "rc-101", "position": "Yes"},
				{"voteId": "rc-102", "position": "Not Voting"},
			},
		})
	})

	client := newTestClient(t, handler)

	votes, err := client.FetchMemberVotes(context.Background(), "A000001", 118)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, types.MemberVote{VoteID: "rc-101", MemberID: "A000001", Position: "Yes"}, votes[0])
	assert.Equal(t, "Not Voting", votes[1].Position)
}

func TestFetchMembersAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusForbidden)
	})

	client := newTestClient(t, handler)

	_, err := client.FetchMembers(context.Background(), 118, "house")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestNormalizeParty(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Democratic", types.PartyDemocratic},
		{"Democrat", types.PartyDemocratic},
		{"republican", types.PartyRepublican},
		{"Independent", types.PartyIndependent},
		{"", types.PartyUnknown},
		{"Libertarian", types.PartyUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeParty(tt.input), "input %q", tt.input)
	}
}

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain text", "plain text"},
		{"<p>hello</p>", "hello"},
		{"<p>hello <b>bold</b> world</p>", "hello bold world"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripHTMLTags(tt.input), "input %q", tt.input)
	}
}
