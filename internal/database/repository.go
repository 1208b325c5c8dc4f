package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bobbyhedeny/alignator/internal/analysis"
	apperrors "github.com/bobbyhedeny/alignator/internal/errors"
	"github.com/bobbyhedeny/alignator/internal/types"
)

// Repository handles database operations for legislative data and
// analysis results. It satisfies analysis.Store.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveMembers upserts a batch of members in one transaction
func (r *Repository) SaveMembers(ctx context.Context, members []types.Member) error {
	stmt, err := r.db.GetPreparedStatement("insert_member")
	if err != nil {
		return apperrors.NewStorageError("save members", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("save members", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	txStmt := tx.StmtContext(ctx, stmt)
	for _, m := range members {
		if _, err := txStmt.ExecContext(ctx,
			m.ID, m.Session, m.Chamber, m.Name, m.Party, m.State, m.District, now, now); err != nil {
			return apperrors.NewStorageError("save members", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("save members", err)
	}
	return nil
}

// SaveBills upserts a batch of bills in one transaction
func (r *Repository) SaveBills(ctx context.Context, bills []types.Bill) error {
	stmt, err := r.db.GetPreparedStatement("insert_bill")
	if err != nil {
		return apperrors.NewStorageError("save bills", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("save bills", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	txStmt := tx.StmtContext(ctx, stmt)
	for _, b := range bills {
		if _, err := txStmt.ExecContext(ctx,
			b.ID, b.Session, b.Type, b.Number, b.Title, b.SponsorID, b.Summary, now, now); err != nil {
			return apperrors.NewStorageError("save bills", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("save bills", err)
	}
	return nil
}

// SaveBillText stores the full text of a bill, replacing any prior copy
func (r *Repository) SaveBillText(ctx context.Context, billID, text string) error {
	stmt, err := r.db.GetPreparedStatement("insert_bill_text")
	if err != nil {
		return apperrors.NewStorageError("save bill text", err)
	}

	if _, err := stmt.ExecContext(ctx, billID, text, time.Now().UTC()); err != nil {
		return apperrors.NewStorageError("save bill text", err)
	}
	return nil
}

// SaveMemberVotes upserts a batch of member vote positions
func (r *Repository) SaveMemberVotes(ctx context.Context, votes []types.MemberVote) error {
	stmt, err := r.db.GetPreparedStatement("insert_member_vote")
	if err != nil {
		return apperrors.NewStorageError("save member votes", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("save member votes", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	txStmt := tx.StmtContext(ctx, stmt)
	for _, v := range votes {
		if _, err := txStmt.ExecContext(ctx, v.VoteID, v.MemberID, v.Position, now); err != nil {
			return apperrors.NewStorageError("save member votes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("save member votes", err)
	}
	return nil
}

// GetMembers returns all members of a session
func (r *Repository) GetMembers(ctx context.Context, session int) ([]types.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session, chamber, name, party, state, district
		FROM members
		WHERE session = ?
		ORDER BY id
	`, session)
	if err != nil {
		return nil, apperrors.NewStorageError("get members", err)
	}
	defer rows.Close()

	var members []types.Member
	for rows.Next() {
		var m types.Member
		var district sql.NullString
		if err := rows.Scan(&m.ID, &m.Session, &m.Chamber, &m.Name, &m.Party, &m.State, &district); err != nil {
			return nil, apperrors.NewStorageError("get members", err)
		}
		m.District = district.String
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("get members", err)
	}

	return members, nil
}

// GetMemberBills returns the bills a member sponsored in a session
func (r *Repository) GetMemberBills(ctx context.Context, memberID string, session int) ([]types.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session, bill_type, bill_number, title, sponsor_id, summary
		FROM bills
		WHERE sponsor_id = ? AND session = ?
		ORDER BY id
	`, memberID, session)
	if err != nil {
		return nil, apperrors.NewStorageError("get member bills", err)
	}
	defer rows.Close()

	var bills []types.Bill
	for rows.Next() {
		var b types.Bill
		var title, sponsorID, summary sql.NullString
		if err := rows.Scan(&b.ID, &b.Session, &b.Type, &b.Number, &title, &sponsorID, &summary); err != nil {
			return nil, apperrors.NewStorageError("get member bills", err)
		}
		b.Title = title.String
		b.SponsorID = sponsorID.String
		b.Summary = summary.String
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("get member bills", err)
	}

	return bills, nil
}

// GetMemberVotes returns every recorded position of a member
func (r *Repository) GetMemberVotes(ctx context.Context, memberID string) ([]types.MemberVote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT vote_id, member_id, position
		FROM member_votes
		WHERE member_id = ?
		ORDER BY vote_id
	`, memberID)
	if err != nil {
		return nil, apperrors.NewStorageError("get member votes", err)
	}
	defer rows.Close()

	var votes []types.MemberVote
	for rows.Next() {
		var v types.MemberVote
		if err := rows.Scan(&v.VoteID, &v.MemberID, &v.Position); err != nil {
			return nil, apperrors.NewStorageError("get member votes", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("get member votes", err)
	}

	return votes, nil
}

// GetBillText returns the stored full text of a bill, or "" when no
// text has been stored. A missing text is not an error.
func (r *Repository) GetBillText(ctx context.Context, billID string) (string, error) {
	stmt, err := r.db.GetPreparedStatement("get_bill_text")
	if err != nil {
		return "", apperrors.NewStorageError("get bill text", err)
	}

	var text string
	err = stmt.QueryRowContext(ctx, billID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStorageError("get bill text", err)
	}

	return text, nil
}

// SaveAnalysis appends an analysis result. Prior results for the same
// member and session are kept for history.
func (r *Repository) SaveAnalysis(ctx context.Context, result *analysis.Result) error {
	stmt, err := r.db.GetPreparedStatement("insert_analysis")
	if err != nil {
		return apperrors.NewStorageError("save analysis", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return apperrors.NewStorageError("save analysis", err)
	}

	if _, err := stmt.ExecContext(ctx,
		uuid.New().String(), result.MemberID, result.Session,
		result.AlignmentScore, result.Ideology, string(payload),
		result.CreatedAt); err != nil {
		return apperrors.NewStorageError("save analysis", err)
	}

	return nil
}

// GetLatestAnalysis returns the newest stored analysis for a member and
// session. No stored analysis yields a NotFound error.
func (r *Repository) GetLatestAnalysis(ctx context.Context, memberID string, session int) (*analysis.Result, error) {
	stmt, err := r.db.GetPreparedStatement("get_latest_analysis")
	if err != nil {
		return nil, apperrors.NewStorageError("get latest analysis", err)
	}

	var payload string
	err = stmt.QueryRowContext(ctx, memberID, session).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("analysis", memberID)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get latest analysis", err)
	}

	var result analysis.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, apperrors.NewStorageError("get latest analysis", err)
	}

	return &result, nil
}
