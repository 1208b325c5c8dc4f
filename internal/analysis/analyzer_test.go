package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bobbyhedeny/alignator/internal/errors"
	"github.com/bobbyhedeny/alignator/internal/types"
)

type fakeStore struct {
	members   []types.Member
	bills     map[string][]types.Bill
	votes     map[string][]types.MemberVote
	billTexts map[string]string

	saved      []*Result
	membersErr error
}

func (f *fakeStore) GetMembers(_ context.Context, _ int) ([]types.Member, error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members, nil
}

func (f *fakeStore) GetMemberBills(_ context.Context, memberID string, _ int) ([]types.Bill, error) {
	return f.bills[memberID], nil
}

func (f *fakeStore) GetMemberVotes(_ context.Context, memberID string) ([]types.MemberVote, error) {
	return f.votes[memberID], nil
}

func (f *fakeStore) GetBillText(_ context.Context, billID string) (string, error) {
	return f.billTexts[billID], nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, result *Result) error {
	f.saved = append(f.saved, result)
	return nil
}

func newTestAnalyzer(t *testing.T, store Store) *Analyzer {
	t.Helper()
	return NewAnalyzer(store, NewConfigStore(t.TempDir()))
}

func TestAnalyzeMemberLiberalProfile(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{
			{ID: "M001", Session: 118, Name: "Jane Doe", Party: types.PartyDemocratic, State: "CA"},
		},
		bills: map[string][]types.Bill{
			"M001": {{ID: "b1", Session: 118, Summary: "environmental climate renewable"}},
		},
		votes: map[string][]types.MemberVote{
			"M001": {
				{VoteID: "v1", MemberID: "M001", Position: "Yes"},
				{VoteID: "v2", MemberID: "M001", Position: "Yes"},
			},
		},
	}
	analyzer := newTestAnalyzer(t, store)

	result, err := analyzer.AnalyzeMember(context.Background(), "M001", 118)
	require.NoError(t, err)

	assert.Equal(t, "M001", result.MemberID)
	assert.Equal(t, 118, result.Session)
	assert.Equal(t, "Jane Doe", result.Member.Name)
	assert.Greater(t, result.AlignmentScore, 0.3)
	assert.Equal(t, IdeologyLiberal, result.Ideology)
	assert.Greater(t, result.TextAnalysis.LiberalScore, result.TextAnalysis.ConservativeScore)
	assert.InDelta(t, 1.0, result.VotingAnalysis.PartyAlignment, 1e-12)
	assert.Equal(t, 1, result.BillCount)
	assert.Equal(t, 2, result.VoteCount)
	assert.False(t, result.CreatedAt.IsZero())

	require.Len(t, store.saved, 1)
	assert.Equal(t, result, store.saved[0])
}

func TestAnalyzeMemberNoActivity(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{{ID: "M002", Session: 118, Party: types.PartyIndependent}},
	}
	analyzer := newTestAnalyzer(t, store)

	result, err := analyzer.AnalyzeMember(context.Background(), "M002", 118)
	require.NoError(t, err)

	assert.Zero(t, result.AlignmentScore)
	assert.Equal(t, IdeologyModerate, result.Ideology)
	assert.Zero(t, result.TextAnalysis.LiberalScore)
	assert.Zero(t, result.TextAnalysis.ConservativeScore)
	assert.Zero(t, result.VotingAnalysis.TotalVotes)
	assert.Empty(t, result.TopicScores)
	assert.Zero(t, result.BillCount)
	assert.Zero(t, result.VoteCount)
}

func TestAnalyzeMemberUsesStoredBillText(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{{ID: "M003", Session: 118}},
		bills: map[string][]types.Bill{
			"M003": {{ID: "b1", Session: 118, Summary: ""}},
		},
		billTexts: map[string]string{
			"b1": "defense border enforcement deportation",
		},
	}
	analyzer := newTestAnalyzer(t, store)

	result, err := analyzer.AnalyzeMember(context.Background(), "M003", 118)
	require.NoError(t, err)

	assert.Greater(t, result.TextAnalysis.ConservativeScore, result.TextAnalysis.LiberalScore)
	assert.Equal(t, IdeologyConservative, result.Ideology)
}

func TestAnalyzeMemberNotFound(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{{ID: "M001", Session: 118}},
	}
	analyzer := newTestAnalyzer(t, store)

	_, err := analyzer.AnalyzeMember(context.Background(), "missing", 118)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, store.saved)
}

func TestAnalyzeMemberStoreError(t *testing.T) {
	storeErr := errors.New("database unavailable")
	store := &fakeStore{membersErr: storeErr}
	analyzer := newTestAnalyzer(t, store)

	_, err := analyzer.AnalyzeMember(context.Background(), "M001", 118)
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, store.saved)
}

func TestCompareMembersOmitsFailures(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{
			{ID: "M001", Session: 118},
			{ID: "M002", Session: 118},
		},
	}
	analyzer := newTestAnalyzer(t, store)

	results := analyzer.CompareMembers(context.Background(), []string{"M001", "missing", "M002"}, 118)

	assert.Len(t, results, 2)
	assert.Contains(t, results, "M001")
	assert.Contains(t, results, "M002")
	assert.NotContains(t, results, "missing")
}

func TestPartyAnalysis(t *testing.T) {
	store := &fakeStore{
		members: []types.Member{
			{ID: "D1", Session: 118, Party: types.PartyDemocratic},
			{ID: "D2", Session: 118, Party: types.PartyDemocratic},
			{ID: "R1", Session: 118, Party: types.PartyRepublican},
			{ID: "U1", Session: 118},
		},
		votes: map[string][]types.MemberVote{
			"D1": {{VoteID: "v1", MemberID: "D1", Position: "Yes"}},
			"D2": {{VoteID: "v1", MemberID: "D2", Position: "No"}},
			"R1": {{VoteID: "v1", MemberID: "R1", Position: "No"}},
		},
	}
	analyzer := newTestAnalyzer(t, store)

	summaries, err := analyzer.PartyAnalysis(context.Background(), 118)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	dem := summaries[types.PartyDemocratic]
	require.NotNil(t, dem)
	assert.Equal(t, 2, dem.MemberCount)
	// One all-yes member (+0.4) and one all-no member (-0.4) average out.
	assert.InDelta(t, 0.0, dem.AvgAlignment, 1e-12)
	assert.Equal(t, 1, dem.IdeologyCounts[IdeologyLiberal])
	assert.Equal(t, 1, dem.IdeologyCounts[IdeologyConservative])

	rep := summaries[types.PartyRepublican]
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.MemberCount)
	assert.InDelta(t, -0.4, rep.AvgAlignment, 1e-12)

	unknown := summaries[types.PartyUnknown]
	require.NotNil(t, unknown)
	assert.Equal(t, 1, unknown.MemberCount)
}
