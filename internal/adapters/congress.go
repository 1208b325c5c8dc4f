package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobbyhedeny/alignator/internal/resilience"
	"github.com/bobbyhedeny/alignator/internal/types"
)

const (
	defaultCongressBaseURL = "https://api.congress.gov/v3"

	// The API caps list endpoints at 250 items per page.
	congressPageLimit = 250
)

// congressMember is a raw member item from the member list endpoint
type congressMember struct {
	BioguideID string `json:"bioguideId"`
	Name       string `json:"name"`
	PartyName  string `json:"partyName"`
	State      string `json:"state"`
	District   any    `json:"district"`
	Terms      struct {
		Item []struct {
			Chamber string `json:"chamber"`
		} `json:"item"`
	} `json:"terms"`
}

// congressBill is a raw sponsored-legislation item
type congressBill struct {
	Congress int    `json:"congress"`
	Type     string `json:"type"`
	Number   any    `json:"number"`
	Title    string `json:"title"`
}

// congressVote is a raw member vote item
type congressVote struct {
	VoteID   string `json:"voteId"`
	Position string `json:"position"`
}

// congressTextVersion is one entry of a bill's text endpoint
type congressTextVersion struct {
	Type    string `json:"type"`
	Formats []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"formats"`
}

// CongressConfig configures the Congress.gov API client
type CongressConfig struct {
	APIKey string

	// BaseURL overrides the production API endpoint. Empty means the
	// real service.
	BaseURL string

	// RequestsPerSecond throttles outbound calls. Zero means the
	// default of one request per second.
	RequestsPerSecond float64
}

// CongressClient fetches legislative data from the Congress.gov API v3
type CongressClient struct {
	baseURL string
	apiKey  string
	pool    *resilience.ConnectionPool
	limiter *rate.Limiter
}

// NewCongressClient creates a Congress.gov client with connection
// pooling, circuit breaking and client-side rate limiting.
func NewCongressClient(cfg CongressConfig) *CongressClient {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})
	pool := resilience.NewConnectionPool(resilience.DefaultPoolConfig(), cb)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCongressBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &CongressClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchMembers returns the members of a congressional session for one
// chamber ("house" or "senate") or "both".
func (c *CongressClient) FetchMembers(ctx context.Context, session int, chamber string) ([]types.Member, error) {
	chambers := []string{chamber}
	if chamber == "" || chamber == "both" {
		chambers = []string{"house", "senate"}
	}

	var members []types.Member
	for _, ch := range chambers {
		chamberMembers, err := c.fetchChamberMembers(ctx, session, ch)
		if err != nil {
			return nil, err
		}
		members = append(members, chamberMembers...)
	}

	return members, nil
}

func (c *CongressClient) fetchChamberMembers(ctx context.Context, session int, chamber string) ([]types.Member, error) {
	var members []types.Member

	for offset := 0; ; offset += congressPageLimit {
		params := url.Values{}
		params.Set("congress", fmt.Sprint(session))
		params.Set("chamber", chamber)
		params.Set("limit", fmt.Sprint(congressPageLimit))
		params.Set("offset", fmt.Sprint(offset))

		var page struct {
			Members []congressMember `json:"members"`
		}
		if err := c.getJSON(ctx, "member", params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch %s members: %w", chamber, err)
		}

		for _, raw := range page.Members {
			members = append(members, types.Member{
				ID:       raw.BioguideID,
				Session:  session,
				Chamber:  chamber,
				Name:     raw.Name,
				Party:    NormalizeParty(raw.PartyName),
				State:    raw.State,
				District: flexString(raw.District),
			})
		}

		if len(page.Members) < congressPageLimit {
			break
		}
	}

	return members, nil
}

// FetchMemberBills returns the bills a member sponsored in a session
func (c *CongressClient) FetchMemberBills(ctx context.Context, memberID string, session int) ([]types.Bill, error) {
	var bills []types.Bill

	for offset := 0; ; offset += congressPageLimit {
		params := url.Values{}
		params.Set("congress", fmt.Sprint(session))
		params.Set("limit", fmt.Sprint(congressPageLimit))
		params.Set("offset", fmt.Sprint(offset))

		var page struct {
			Bills []congressBill `json:"sponsoredLegislation"`
		}
		endpoint := fmt.Sprintf("member/%s/sponsored-legislation", url.PathEscape(memberID))
		if err := c.getJSON(ctx, endpoint, params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch bills for member %s: %w", memberID, err)
		}

		for _, raw := range page.Bills {
			// Sponsored legislation can span sessions; keep only the
			// requested one.
			if raw.Congress != session {
				continue
			}
			billType := strings.ToLower(raw.Type)
			number := flexInt(raw.Number)
			bills = append(bills, types.Bill{
				ID:        fmt.Sprintf("%d-%s-%d", raw.Congress, billType, number),
				Session:   raw.Congress,
				Type:      billType,
				Number:    number,
				Title:     raw.Title,
				SponsorID: memberID,
			})
		}

		if len(page.Bills) < congressPageLimit {
			break
		}
	}

	return bills, nil
}

// FetchBillSummary returns the newest summary text of a bill, or ""
// when the bill has no summaries yet.
func (c *CongressClient) FetchBillSummary(ctx context.Context, session int, billType string, number int) (string, error) {
	var page struct {
		Summaries []struct {
			Text string `json:"text"`
		} `json:"summaries"`
	}
	endpoint := fmt.Sprintf("bill/%d/%s/%d/summaries", session, url.PathEscape(billType), number)
	if err := c.getJSON(ctx, endpoint, nil, &page); err != nil {
		return "", fmt.Errorf("failed to fetch bill summary: %w", err)
	}

	if len(page.Summaries) == 0 {
		return "", nil
	}
	return stripHTMLTags(page.Summaries[0].Text), nil
}

// FetchBillText downloads the full text of a bill. A bill without a
// published text version yields "" without error.
func (c *CongressClient) FetchBillText(ctx context.Context, session int, billType string, number int) (string, error) {
	var page struct {
		TextVersions []congressTextVersion `json:"textVersions"`
	}
	endpoint := fmt.Sprintf("bill/%d/%s/%d/text", session, url.PathEscape(billType), number)
	if err := c.getJSON(ctx, endpoint, nil, &page); err != nil {
		return "", fmt.Errorf("failed to fetch bill text versions: %w", err)
	}

	textURL := ""
	for _, version := range page.TextVersions {
		for _, format := range version.Formats {
			if format.Type == "Formatted Text" {
				textURL = format.URL
				break
			}
			if textURL == "" {
				textURL = format.URL
			}
		}
		if textURL != "" {
			break
		}
	}
	if textURL == "" {
		return "", nil
	}

	resp, err := c.makeRequest(ctx, textURL)
	if err != nil {
		return "", fmt.Errorf("failed to download bill text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("congress API error: status %d downloading bill text", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read bill text: %w", err)
	}

	return stripHTMLTags(string(body)), nil
}

// FetchMemberVotes returns the recorded vote positions of a member in
// a session.
func (c *CongressClient) FetchMemberVotes(ctx context.Context, memberID string, session int) ([]types.MemberVote, error) {
	var votes []types.MemberVote

	for offset := 0; ; offset += congressPageLimit {
		params := url.Values{}
		params.Set("congress", fmt.Sprint(session))
		params.Set("limit", fmt.Sprint(congressPageLimit))
		params.Set("offset", fmt.Sprint(offset))

		var page struct {
			Votes []congressVote `json:"votes"`
		}
		endpoint := fmt.Sprintf("member/%s/votes", url.PathEscape(memberID))
		if err := c.getJSON(ctx, endpoint, params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch votes for member %s: %w", memberID, err)
		}

		for _, raw := range page.Votes {
			votes = append(votes, types.MemberVote{
				VoteID:   raw.VoteID,
				MemberID: memberID,
				Position: raw.Position,
			})
		}

		if len(page.Votes) < congressPageLimit {
			break
		}
	}

	return votes, nil
}

// getJSON performs a rate-limited GET against an API endpoint and
// decodes the JSON response into out.
func (c *CongressClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	requestURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	resp, err := c.makeRequest(ctx, requestURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("congress API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode congress API response: %w", err)
	}

	return nil
}

// makeRequest issues a GET through the connection pool with retries,
// honoring the client-side rate limit on every attempt.
func (c *CongressClient) makeRequest(ctx context.Context, requestURL string) (*http.Response, error) {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": "Alignator/1.0",
	}
	if c.apiKey != "" {
		headers["X-API-Key"] = c.apiKey
	}

	return resilience.RetryHTTP(ctx, resilience.DefaultRetryConfig(), func() (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.pool.DoRequest(ctx, http.MethodGet, requestURL, headers)
	})
}

// GetPoolStats returns connection pool statistics
func (c *CongressClient) GetPoolStats() map[string]interface{} {
	return c.pool.GetStats()
}

// Close closes the connection pool
func (c *CongressClient) Close() error {
	return c.pool.Close()
}

// NormalizeParty maps the API's party names onto the fixed labels the
// analyzer aggregates by.
func NormalizeParty(partyName string) string {
	switch strings.ToLower(strings.TrimSpace(partyName)) {
	case "democratic", "democrat":
		return types.PartyDemocratic
	case "republican":
		return types.PartyRepublican
	case "independent":
		return types.PartyIndependent
	default:
		return types.PartyUnknown
	}
}

// flexString renders a field the API serves as either a string or a
// number.
func flexString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return fmt.Sprint(int(value))
	default:
		return fmt.Sprint(value)
	}
}

// flexInt parses a field the API serves as either a number or a string
func flexInt(v any) int {
	switch value := v.(type) {
	case float64:
		return int(value)
	case string:
		var n int
		fmt.Sscanf(value, "%d", &n)
		return n
	default:
		return 0
	}
}

// stripHTMLTags removes markup from summary and bill text payloads so
// the analyzer scores prose, not tags.
func stripHTMLTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
