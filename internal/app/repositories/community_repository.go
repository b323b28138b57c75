package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/pkg/apperrors"
)

// CommunityRepository handles database operations for communities
type CommunityRepository struct {
	db *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{db: db}
}

const communityColumns = "id, name, description, max_members, archived, version, created_at, updated_at"

func scanCommunity(row pgx.Row) (*models.Community, error) {
	var c models.Community
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.MaxMembers,
		&c.Archived,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error scanning community: %w", err)
	}
	return &c, nil
}

// Create inserts a new community inside tx and returns its generated
// identifier, so callers can enroll the creator in the same transaction.
func (r *CommunityRepository) Create(ctx context.Context, tx pgx.Tx, community *models.Community) (int64, error) {
	query := squirrel.Insert("communities").
		Columns("name", "description", "max_members").
		Values(community.Name, community.Description, community.MaxMembers).
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

// GetByID retrieves a community by ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	query := squirrel.Select(communityColumns).
		From("communities").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return scanCommunity(r.db.QueryRow(ctx, sql, args...))
}

// GetByIDForUpdate retrieves a community inside tx with its row locked.
// Holding the row lock for the duration of the transaction serializes
// membership and archival mutations against this community across processes.
func (r *CommunityRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Community, error) {
	query := squirrel.Select(communityColumns).
		From("communities").
		Where("id = ?", id).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return scanCommunity(tx.QueryRow(ctx, sql, args...))
}

// SetArchived marks a community archived. The write is conditional on the
// version the caller read; zero rows affected means a concurrent writer won.
func (r *CommunityRepository) SetArchived(ctx context.Context, tx pgx.Tx, id, expectedVersion int64) error {
	query := squirrel.Update("communities").
		Set("archived", true).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where("id = ? AND version = ?", id, expectedVersion).
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
		return apperrors.NewConflictError("Community was modified concurrently")
	}

	return nil
}

// List retrieves communities with optional name search and pagination,
// together with the total row count.
func (r *CommunityRepository) List(ctx context.Context, search *string, offset uint64, limit int) ([]models.Community, int64, error) {
	query := squirrel.Select(communityColumns + ", COUNT(*) OVER() AS total_count").
		From("communities").
		OrderBy("id").
		Offset(offset).
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if search != nil && *search != "" {
		query = query.Where("name ILIKE ?", "%"+*search+"%")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var communities []models.Community
	var total int64
	for rows.Next() {
		var c models.Community
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.MaxMembers,
			&c.Archived,
			&c.Version,
			&c.CreatedAt,
			&c.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		communities = append(communities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return communities, total, nil
}
