package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/bobbyhedeny/alignator/internal/errors"
	"github.com/bobbyhedeny/alignator/internal/types"
)

// Store is the narrow storage contract the engine consumes. GetBillText
// returns "" with a nil error when no text is stored for the bill.
type Store interface {
	GetMembers(ctx context.Context, session int) ([]types.Member, error)
	GetMemberBills(ctx context.Context, memberID string, session int) ([]types.Bill, error)
	GetMemberVotes(ctx context.Context, memberID string) ([]types.MemberVote, error)
	GetBillText(ctx context.Context, billID string) (string, error)
	SaveAnalysis(ctx context.Context, result *Result) error
}

// Analyzer orchestrates the full alignment analysis pipeline
type Analyzer struct {
	store Store
	cfg   *Config

	liberalSet      map[string]struct{}
	conservativeSet map[string]struct{}
}

// NewAnalyzer creates an analyzer backed by store, loading the scoring
// configuration from cfgStore. A missing or unreadable configuration
// degrades to the compiled-in defaults.
func NewAnalyzer(store Store, cfgStore *ConfigStore) *Analyzer {
	cfg, err := cfgStore.Load()
	if err != nil {
		slog.Warn("Failed to load scoring config, using defaults", "error", err)
		cfg = DefaultConfig()
	}

	if err := Setup(); err != nil {
		slog.Warn("NLP setup degraded", "error", err)
	}

	return &Analyzer{
		store:           store,
		cfg:             cfg,
		liberalSet:      keywordSet(cfg.Lexicon.Liberal),
		conservativeSet: keywordSet(cfg.Lexicon.Conservative),
	}
}

// AnalyzeMember runs the full pipeline for one member of a session,
// persists the resulting record and returns it. An unknown member yields
// a NotFound error and nothing is written.
func (a *Analyzer) AnalyzeMember(ctx context.Context, memberID string, session int) (*Result, error) {
	members, err := a.store.GetMembers(ctx, session)
	if err != nil {
		return nil, err
	}

	var member *types.Member
	for i := range members {
		if members[i].ID == memberID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil, apperrors.NewNotFoundError("member", memberID)
	}

	bills, err := a.store.GetMemberBills(ctx, memberID, session)
	if err != nil {
		return nil, err
	}
	votes, err := a.store.GetMemberVotes(ctx, memberID)
	if err != nil {
		return nil, err
	}

	textAnalysis, err := a.analyzeText(ctx, bills)
	if err != nil {
		return nil, err
	}
	votingAnalysis := AnalyzeVotes(votes)
	score, ideology := Combine(textAnalysis, votingAnalysis, a.cfg.Weights)

	result := &Result{
		MemberID:       memberID,
		Session:        session,
		Member:         *member,
		AlignmentScore: score,
		Ideology:       ideology,
		TextAnalysis:   textAnalysis,
		VotingAnalysis: votingAnalysis,
		TopicScores:    ExtractTopics(bills),
		BillCount:      len(bills),
		VoteCount:      len(votes),
		CreatedAt:      time.Now().UTC(),
	}

	if err := a.store.SaveAnalysis(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// analyzeText scores the combined text of a member's bills: stored full
// texts where available plus every summary. No bills or no text is a
// defined zero result, not an error.
func (a *Analyzer) analyzeText(ctx context.Context, bills []types.Bill) (TextAnalysis, error) {
	if len(bills) == 0 {
		return TextAnalysis{}, nil
	}

	parts := make([]string, 0, len(bills)*2)
	for _, bill := range bills {
		text, err := a.store.GetBillText(ctx, bill.ID)
		if err != nil {
			return TextAnalysis{}, err
		}
		if text != "" {
			parts = append(parts, text)
		}
		if bill.Summary != "" {
			parts = append(parts, bill.Summary)
		}
	}

	if len(parts) == 0 {
		return TextAnalysis{BillCount: len(bills)}, nil
	}

	combined := strings.Join(parts, " ")

	return TextAnalysis{
		Sentiment:         Sentiment(combined),
		LiberalScore:      KeywordScore(combined, a.liberalSet),
		ConservativeScore: KeywordScore(combined, a.conservativeSet),
		TextLength:        len(combined),
		BillCount:         len(bills),
	}, nil
}

// CompareMembers analyzes a batch of members, keyed by id. A failing
// member is logged and omitted; it never aborts the batch.
func (a *Analyzer) CompareMembers(ctx context.Context, memberIDs []string, session int) map[string]*Result {
	results := make(map[string]*Result, len(memberIDs))
	for _, id := range memberIDs {
		result, err := a.AnalyzeMember(ctx, id, session)
		if err != nil {
			slog.Warn("Member analysis skipped in comparison",
				"member_id", id, "session", session, "error", err)
			continue
		}
		results[id] = result
	}
	return results
}

// PartyAnalysis analyzes every member of a session and aggregates the
// results by party. Means are computed only over members whose analysis
// succeeded.
func (a *Analyzer) PartyAnalysis(ctx context.Context, session int) (map[string]*PartySummary, error) {
	members, err := a.store.GetMembers(ctx, session)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*PartySummary)
	for _, member := range members {
		result, err := a.AnalyzeMember(ctx, member.ID, session)
		if err != nil {
			slog.Warn("Member analysis skipped in party aggregation",
				"member_id", member.ID, "session", session, "error", err)
			continue
		}

		party := member.Party
		if party == "" {
			party = types.PartyUnknown
		}

		summary, ok := summaries[party]
		if !ok {
			summary = &PartySummary{IdeologyCounts: make(map[string]int)}
			summaries[party] = summary
		}
		summary.MemberCount++
		summary.AvgAlignment += result.AlignmentScore
		summary.IdeologyCounts[result.Ideology]++
	}

	for _, summary := range summaries {
		summary.AvgAlignment /= float64(summary.MemberCount)
	}

	return summaries, nil
}
