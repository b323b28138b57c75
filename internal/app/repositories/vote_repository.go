package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
)

// VoteRepository handles database operations for loan votes
type VoteRepository struct {
	db *pgxpool.Pool
}

// NewVoteRepository creates a new VoteRepository
func NewVoteRepository(db *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) querier(q Querier) Querier {
	if q == nil {
		return r.db
	}
	return q
}

// Upsert records a member's vote inside tx. A repeated vote by the same user
// replaces the prior choice and refreshes cast_at (last-write-wins).
func (r *VoteRepository) Upsert(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, userID int64, choice models.VoteChoice) error {
	query := squirrel.Insert("loan_votes").
		Columns("loan_id", "user_id", "choice").
		Values(loanID, userID, choice).
		Suffix("ON CONFLICT (loan_id, user_id) DO UPDATE SET choice = EXCLUDED.choice, cast_at = NOW()").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	_, err = tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// Tally counts the current votes on a loan. Each user contributes exactly one
// row, so the counts cannot double-count a voter.
func (r *VoteRepository) Tally(ctx context.Context, q Querier, loanID uuid.UUID) (governance.Tally, error) {
	sql := `
		SELECT
			COUNT(*) FILTER (WHERE choice = $2) AS approve_count,
			COUNT(*) FILTER (WHERE choice = $3) AS reject_count
		FROM loan_votes
		WHERE loan_id = $1`

	var tally governance.Tally
	err := r.querier(q).QueryRow(ctx, sql, loanID, models.VoteChoiceApprove, models.VoteChoiceReject).
		Scan(&tally.ApproveCount, &tally.RejectCount)
	if err != nil {
		return governance.Tally{}, fmt.Errorf("error executing query: %w", err)
	}

	return tally, nil
}

// ListByLoan retrieves all current vote records for a loan
func (r *VoteRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanVote, error) {
	query := squirrel.Select("id", "loan_id", "user_id", "choice", "cast_at").
		From("loan_votes").
		Where("loan_id = ?", loanID).
		OrderBy("cast_at ASC", "id ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var votes []models.LoanVote
	for rows.Next() {
		var v models.LoanVote
		err := rows.Scan(&v.ID, &v.LoanID, &v.UserID, &v.Choice, &v.CastAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return votes, nil
}
