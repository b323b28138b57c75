package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/pkg/apperrors"
)

// LoanRepository handles database operations for loan requests
type LoanRepository struct {
	db *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(db *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = "id, community_id, requester_id, amount, purpose, status, version, created_at, updated_at"

func scanLoan(row pgx.Row) (*models.Loan, error) {
	var l models.Loan
	err := row.Scan(
		&l.ID,
		&l.CommunityID,
		&l.RequesterID,
		&l.Amount,
		&l.Purpose,
		&l.Status,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrLoanNotFound
		}
		return nil, fmt.Errorf("error scanning loan: %w", err)
	}
	return &l, nil
}

// Create inserts a new PENDING loan inside tx
func (r *LoanRepository) Create(ctx context.Context, tx pgx.Tx, loan *models.Loan) error {
	query := squirrel.Insert("loans").
		Columns("id", "community_id", "requester_id", "amount", "purpose", "status").
		Values(loan.ID, loan.CommunityID, loan.RequesterID, loan.Amount, loan.Purpose, loan.Status).
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

// GetByID retrieves a loan by ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	query := squirrel.Select(loanColumns).
		From("loans").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return scanLoan(r.db.QueryRow(ctx, sql, args...))
}

// UpdateStatus finalizes a PENDING loan. The write is conditional on both the
// version the caller read and the loan still being PENDING: zero rows affected
// means a concurrent writer decided first, and the caller must treat its own
// decision as stale.
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.LoanStatus, expectedVersion int64) error {
	query := squirrel.Update("loans").
		Set("status", status).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where("id = ? AND version = ? AND status = ?", id, expectedVersion, models.LoanStatusPending).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewConflictError("Loan was finalized concurrently")
	}

	return nil
}

// ListByRequester retrieves all loans submitted by a user, in creation order
func (r *LoanRepository) ListByRequester(ctx context.Context, requesterID int64) ([]models.Loan, error) {
	query := squirrel.Select(loanColumns).
		From("loans").
		Where("requester_id = ?", requesterID).
		OrderBy("created_at ASC", "id ASC").
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

	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		err := rows.Scan(
			&l.ID,
			&l.CommunityID,
			&l.RequesterID,
			&l.Amount,
			&l.Purpose,
			&l.Status,
			&l.Version,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return loans, nil
}
