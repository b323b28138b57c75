package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/famfund/famfund/internal/app/models"
	appRepos "github.com/famfund/famfund/internal/app/repositories"
	"github.com/famfund/famfund/internal/db"
)

// CreateDefaultData creates a sample lending community on an empty database so
// a fresh install has something to poke at. It is a no-op once any community
// exists.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, defaultMaxMembers int, lgr zerolog.Logger) error {
	communityRepo := appRepos.NewCommunityRepository(dbPool)
	memberRepo := appRepos.NewMemberRepository(dbPool)

	existing, total, err := communityRepo.List(ctx, nil, 0, 1)
	if err != nil {
		return fmt.Errorf("failed to check for existing communities: %w", err)
	}
	if total > 0 || len(existing) > 0 {
		lgr.Debug().Msg("Communities already present, skipping seed data")
		return nil
	}

	description := "A starter community for trying out loan requests and voting"
	community := &appModels.Community{
		Name:        "Demo Lending Circle",
		Description: &description,
		MaxMembers:  defaultMaxMembers,
	}

	err = db.WithTransaction(ctx, dbPool, func(ctx context.Context, tx pgx.Tx) error {
		id, err := communityRepo.Create(ctx, tx, community)
		if err != nil {
			return err
		}
		// User 1 acts as the founding member in development setups.
		_, err = memberRepo.Add(ctx, tx, id, 1)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to seed demo community: %w", err)
	}

	lgr.Info().Int64("communityID", community.ID).Msg("Seeded demo community")
	return nil
}
