package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famfund/famfund/internal/app/models"
)

// MemberRepository handles database operations for community memberships
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// querier returns q, or the pool when q is nil. Callers inside a transaction
// pass their tx so reads observe the locked row state.
func (r *MemberRepository) querier(q Querier) Querier {
	if q == nil {
		return r.db
	}
	return q
}

// Exists checks if a user is a member of a community
func (r *MemberRepository) Exists(ctx context.Context, q Querier, communityID, userID int64) (bool, error) {
	query := squirrel.Select("1").
		From("community_members").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists int
	err = r.querier(q).QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error executing query: %w", err)
	}

	return true, nil
}

// Count returns the number of members in a community
func (r *MemberRepository) Count(ctx context.Context, q Querier, communityID int64) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("community_members").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int
	err = r.querier(q).QueryRow(ctx, sql, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return count, nil
}

// Add inserts a membership row inside tx and returns its identifier.
// The unique constraint on (community_id, user_id) backstops the
// already-member check.
func (r *MemberRepository) Add(ctx context.Context, tx pgx.Tx, communityID, userID int64) (int64, error) {
	query := squirrel.Insert("community_members").
		Columns("community_id", "user_id").
		Values(communityID, userID).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, sql, args...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return id, nil
}

// ListByCommunity retrieves all members of a community in join order
func (r *MemberRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.CommunityMember, error) {
	query := squirrel.Select("id", "community_id", "user_id", "joined_at").
		From("community_members").
		Where("community_id = ?", communityID).
		OrderBy("joined_at ASC", "id ASC").
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

	var members []models.CommunityMember
	for rows.Next() {
		var m models.CommunityMember
		err := rows.Scan(&m.ID, &m.CommunityID, &m.UserID, &m.JoinedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return members, nil
}
