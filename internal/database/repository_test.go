package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbyhedeny/alignator/internal/analysis"
	apperrors "github.com/bobbyhedeny/alignator/internal/errors"
	"github.com/bobbyhedeny/alignator/internal/types"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func TestMemberRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	members := []types.Member{
		{ID: "A000001", Session: 118, Chamber: "house", Name: "Alice Adams", Party: types.PartyDemocratic, State: "CA", District: "12"},
		{ID: "B000002", Session: 118, Chamber: "senate", Name: "Bob Brown", Party: types.PartyRepublican, State: "TX"},
		{ID: "C000003", Session: 117, Chamber: "house", Name: "Carol Clark", Party: types.PartyIndependent, State: "VT", District: "1"},
	}
	require.NoError(t, repo.SaveMembers(ctx, members))

	got, err := repo.GetMembers(ctx, 118)
	require.NoError(t, err)
	assert.Equal(t, members[:2], got)

	got, err = repo.GetMembers(ctx, 116)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveMembersUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	member := types.Member{ID: "A000001", Session: 118, Chamber: "house", Name: "Alice Adams", Party: types.PartyDemocratic, State: "CA"}
	require.NoError(t, repo.SaveMembers(ctx, []types.Member{member}))

	member.Party = types.PartyIndependent
	require.NoError(t, repo.SaveMembers(ctx, []types.Member{member}))

	got, err := repo.GetMembers(ctx, 118)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.PartyIndependent, got[0].Party)
}

func TestBillRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	bills := []types.Bill{
		{ID: "118-hr-1", Session: 118, Type: "hr", Number: 1, Title: "Clean Energy Act", SponsorID: "A000001", Summary: "renewable energy investment"},
		{ID: "118-hr-2", Session: 118, Type: "hr", Number: 2, Title: "Border Act", SponsorID: "B000002"},
		{ID: "117-s-9", Session: 117, Type: "s", Number: 9, SponsorID: "A000001"},
	}
	require.NoError(t, repo.SaveBills(ctx, bills))

	got, err := repo.GetMemberBills(ctx, "A000001", 118)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bills[0], got[0])

	got, err = repo.GetMemberBills(ctx, "A000001", 117)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "117-s-9", got[0].ID)
}

func TestBillTextRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveBills(ctx, []types.Bill{
		{ID: "118-hr-1", Session: 118, Type: "hr", Number: 1},
	}))

	// Missing text reads as empty without error.
	text, err := repo.GetBillText(ctx, "118-hr-1")
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, repo.SaveBillText(ctx, "118-hr-1", "Be it enacted..."))
	text, err = repo.GetBillText(ctx, "118-hr-1")
	require.NoError(t, err)
	assert.Equal(t, "Be it enacted...", text)

	require.NoError(t, repo.SaveBillText(ctx, "118-hr-1", "amended text"))
	text, err = repo.GetBillText(ctx, "118-hr-1")
	require.NoError(t, err)
	assert.Equal(t, "amended text", text)
}

func TestMemberVoteRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	votes := []types.MemberVote{
		{VoteID: "rc-1", MemberID: "A000001", Position: "Yes"},
		{VoteID: "rc-2", MemberID: "A000001", Position: "No"},
		{VoteID: "rc-1", MemberID: "B000002", Position: "Present"},
	}
	require.NoError(t, repo.SaveMemberVotes(ctx, votes))

	got, err := repo.GetMemberVotes(ctx, "A000001")
	require.NoError(t, err)
	assert.Equal(t, votes[:2], got)

	got, err = repo.GetMemberVotes(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalysisAppendAndLatest(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := &analysis.Result{
		MemberID:       "A000001",
		Session:        118,
		AlignmentScore: 0.2,
		Ideology:       analysis.IdeologyModerate,
		CreatedAt:      base,
	}
	second := &analysis.Result{
		MemberID:       "A000001",
		Session:        118,
		AlignmentScore: 0.5,
		Ideology:       analysis.IdeologyLiberal,
		CreatedAt:      base.Add(time.Hour),
	}

	require.NoError(t, repo.SaveAnalysis(ctx, first))
	require.NoError(t, repo.SaveAnalysis(ctx, second))

	latest, err := repo.GetLatestAnalysis(ctx, "A000001", 118)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, latest.AlignmentScore, 1e-12)
	assert.Equal(t, analysis.IdeologyLiberal, latest.Ideology)
	assert.True(t, latest.CreatedAt.Equal(second.CreatedAt))
}

func TestGetLatestAnalysisNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetLatestAnalysis(context.Background(), "nobody", 118)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepositoryImplementsStore(t *testing.T) {
	var _ analysis.Store = newTestRepository(t)
}
