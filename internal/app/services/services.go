package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/app/repositories"
	"github.com/famfund/famfund/internal/db"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

// The service layer is the single entry point for governance mutations.
// Controllers never touch repositories or the hub directly; every mutation
// goes through a service method that serializes on the aggregate it touches.

// CommunityStore is the persistence surface CommunityService needs
type CommunityStore interface {
	Create(ctx context.Context, tx pgx.Tx, community *models.Community) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Community, error)
	SetArchived(ctx context.Context, tx pgx.Tx, id, expectedVersion int64) error
	List(ctx context.Context, search *string, offset uint64, limit int) ([]models.Community, int64, error)
}

// MemberStore is the persistence surface for community memberships
type MemberStore interface {
	Exists(ctx context.Context, q repositories.Querier, communityID, userID int64) (bool, error)
	Count(ctx context.Context, q repositories.Querier, communityID int64) (int, error)
	Add(ctx context.Context, tx pgx.Tx, communityID, userID int64) (int64, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.CommunityMember, error)
}

// LoanStore is the persistence surface for loan requests
type LoanStore interface {
	Create(ctx context.Context, tx pgx.Tx, loan *models.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.LoanStatus, expectedVersion int64) error
	ListByRequester(ctx context.Context, requesterID int64) ([]models.Loan, error)
}

// VoteStore is the persistence surface for loan votes
type VoteStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, userID int64, choice models.VoteChoice) error
	Tally(ctx context.Context, q repositories.Querier, loanID uuid.UUID) (governance.Tally, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanVote, error)
}

// TxRunner runs a function inside a database transaction. Stores that take a
// pgx.Tx receive the transaction the runner opened.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// PoolTxRunner is the production TxRunner over a pgx connection pool
type PoolTxRunner struct {
	Pool *pgxpool.Pool
}

// RunTx implements TxRunner
func (r PoolTxRunner) RunTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.WithTransaction(ctx, r.Pool, db.TransactionFn(fn))
}

// EventPublisher pushes governance events toward live subscribers.
// Publishing is fire-and-forget relative to the mutation that triggered it.
type EventPublisher interface {
	Publish(event *websocket.Event)
}
