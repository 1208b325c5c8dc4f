package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bobbyhedeny/alignator/internal/types"
)

// Fetcher is the slice of the legislative API the sync needs
type Fetcher interface {
	FetchMembers(ctx context.Context, session int, chamber string) ([]types.Member, error)
	FetchMemberBills(ctx context.Context, memberID string, session int) ([]types.Bill, error)
	FetchBillSummary(ctx context.Context, session int, billType string, number int) (string, error)
	FetchBillText(ctx context.Context, session int, billType string, number int) (string, error)
	FetchMemberVotes(ctx context.Context, memberID string, session int) ([]types.MemberVote, error)
}

// Storage is the slice of the repository the sync writes through
type Storage interface {
	SaveMembers(ctx context.Context, members []types.Member) error
	SaveBills(ctx context.Context, bills []types.Bill) error
	SaveBillText(ctx context.Context, billID, text string) error
	SaveMemberVotes(ctx context.Context, votes []types.MemberVote) error
}

// Stats summarizes one sync run. Failed counts members whose bills or
// votes could not be fetched; their partial data is still stored.
type Stats struct {
	Session  int           `json:"session"`
	Members  int           `json:"members"`
	Bills    int           `json:"bills"`
	Votes    int           `json:"votes"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ms"`
}

// Service pulls a session's legislative data from the upstream API
// into local storage.
type Service struct {
	fetcher Fetcher
	storage Storage
	workers int

	mu      sync.Mutex
	running bool
}

// NewService creates a sync service. workers bounds how many members
// are ingested concurrently; values below 1 mean serial ingestion.
func NewService(fetcher Fetcher, storage Storage, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		fetcher: fetcher,
		storage: storage,
		workers: workers,
	}
}

// SyncSession ingests all members of a session along with their
// sponsored bills, bill texts and vote records. Only one sync runs at
// a time; a second call while one is in flight returns an error.
func (s *Service) SyncSession(ctx context.Context, session int) (*Stats, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("sync already in progress")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	slog.Info("Starting session sync", "session", session)

	members, err := s.fetcher.FetchMembers(ctx, session, "both")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	if err := s.storage.SaveMembers(ctx, members); err != nil {
		return nil, fmt.Errorf("failed to save members: %w", err)
	}

	stats := &Stats{Session: session, Members: len(members)}

	jobs := make(chan types.Member)
	results := make(chan memberResult)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for member := range jobs {
				results <- s.syncMember(ctx, member, session)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, member := range members {
			select {
			case jobs <- member:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		stats.Bills += result.bills
		stats.Votes += result.votes
		if result.err != nil {
			stats.Failed++
			slog.Warn("Member sync incomplete",
				"member_id", result.memberID, "session", session, "error", result.err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	slog.Info("Session sync finished",
		"session", session,
		"members", stats.Members,
		"bills", stats.Bills,
		"votes", stats.Votes,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds())

	return stats, nil
}

type memberResult struct {
	memberID string
	bills    int
	votes    int
	err      error
}

// syncMember ingests one member's bills and votes. The first error
// stops the member but already-stored data is kept.
func (s *Service) syncMember(ctx context.Context, member types.Member, session int) memberResult {
	result := memberResult{memberID: member.ID}

	bills, err := s.fetcher.FetchMemberBills(ctx, member.ID, session)
	if err != nil {
		result.err = fmt.Errorf("fetch bills: %w", err)
		return result
	}

	for i := range bills {
		bill := &bills[i]
		if bill.Summary == "" {
			summary, err := s.fetcher.FetchBillSummary(ctx, bill.Session, bill.Type, bill.Number)
			if err != nil {
				result.err = fmt.Errorf("fetch summary for %s: %w", bill.ID, err)
				return result
			}
			bill.Summary = summary
		}
	}

	if err := s.storage.SaveBills(ctx, bills); err != nil {
		result.err = fmt.Errorf("save bills: %w", err)
		return result
	}
	result.bills = len(bills)

	for _, bill := range bills {
		text, err := s.fetcher.FetchBillText(ctx, bill.Session, bill.Type, bill.Number)
		if err != nil {
			result.err = fmt.Errorf("fetch text for %s: %w", bill.ID, err)
			return result
		}
		if text == "" {
			continue
		}
		if err := s.storage.SaveBillText(ctx, bill.ID, text); err != nil {
			result.err = fmt.Errorf("save text for %s: %w", bill.ID, err)
			return result
		}
	}

	votes, err := s.fetcher.FetchMemberVotes(ctx, member.ID, session)
	if err != nil {
		result.err = fmt.Errorf("fetch votes: %w", err)
		return result
	}
	if err := s.storage.SaveMemberVotes(ctx, votes); err != nil {
		result.err = fmt.Errorf("save votes: %w", err)
		return result
	}
	result.votes = len(votes)

	return result
}
