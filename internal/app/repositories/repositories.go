package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a repository method taking a
// Querier can run standalone or inside a caller-managed transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories is a container for all repositories
type Repositories struct {
	CommunityRepository *CommunityRepository
	MemberRepository    *MemberRepository
	LoanRepository      *LoanRepository
	VoteRepository      *VoteRepository
}

// NewRepositories creates all repositories over one connection pool
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		CommunityRepository: NewCommunityRepository(db),
		MemberRepository:    NewMemberRepository(db),
		LoanRepository:      NewLoanRepository(db),
		VoteRepository:      NewVoteRepository(db),
	}
}
