package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/pkg/apperrors"
	"github.com/famfund/famfund/internal/pkg/dberrors"
	"github.com/famfund/famfund/internal/pkg/helpers"
	"github.com/famfund/famfund/internal/pkg/keylock"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

// CommunityService defines the interface for community and membership operations
type CommunityService interface {
	CreateCommunity(ctx context.Context, req *dto.CreateCommunityRequest, creatorID int64) (*dto.CommunityResponse, error)
	GetCommunityByID(ctx context.Context, id int64) (*dto.CommunityResponse, error)
	ListCommunities(ctx context.Context, filter *dto.CommunityFilterRequest) (*dto.CommunityListResponse, error)
	ListMembers(ctx context.Context, communityID int64) (*dto.CommunityMembersResponse, error)
	JoinCommunity(ctx context.Context, communityID, userID int64) (*dto.JoinCommunityResponse, error)
	ArchiveCommunity(ctx context.Context, communityID int64) (*dto.ArchiveCommunityResponse, error)
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
}

// communityServiceImpl implements CommunityService
type communityServiceImpl struct {
	communityStore    CommunityStore
	memberStore       MemberStore
	tx                TxRunner
	locks             *keylock.KeyedMutex
	hub               EventPublisher
	defaultMaxMembers int
	logger            zerolog.Logger
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(
	communityStore CommunityStore,
	memberStore MemberStore,
	tx TxRunner,
	locks *keylock.KeyedMutex,
	hub EventPublisher,
	defaultMaxMembers int,
	logger zerolog.Logger,
) CommunityService {
	return &communityServiceImpl{
		communityStore:    communityStore,
		memberStore:       memberStore,
		tx:                tx,
		locks:             locks,
		hub:               hub,
		defaultMaxMembers: defaultMaxMembers,
		logger:            logger,
	}
}

// CreateCommunity creates a community and joins the creator as its first member
func (s *communityServiceImpl) CreateCommunity(ctx context.Context, req *dto.CreateCommunityRequest, creatorID int64) (*dto.CommunityResponse, error) {
	maxMembers := s.defaultMaxMembers
	if req.MaxMembers != nil {
		maxMembers = *req.MaxMembers
	}
	if maxMembers < 1 {
		return nil, apperrors.NewBadRequestError("maxMembers must be at least 1")
	}

	community := &models.Community{
		Name:        req.Name,
		Description: req.Description,
		MaxMembers:  maxMembers,
	}

	err := s.tx.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		id, err := s.communityStore.Create(ctx, tx, community)
		if err != nil {
			return fmt.Errorf("error creating community: %w", err)
		}
		community.ID = id

		if _, err := s.memberStore.Add(ctx, tx, id, creatorID); err != nil {
			return fmt.Errorf("error adding creator as member: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("name", req.Name).
			Int64("creatorID", creatorID).
			Msg("Failed to create community")
		return nil, err
	}

	s.logger.Info().
		Int64("communityID", community.ID).
		Int64("creatorID", creatorID).
		Msg("Community created")

	created, err := s.communityStore.GetByID(ctx, community.ID)
	if err != nil {
		return nil, err
	}
	created.MemberCount = 1

	resp := toCommunityResponse(created)
	return &resp, nil
}

// GetCommunityByID retrieves a community with its member count
func (s *communityServiceImpl) GetCommunityByID(ctx context.Context, id int64) (*dto.CommunityResponse, error) {
	community, err := s.communityStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.memberStore.Count(ctx, nil, id)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("communityID", id).
			Msg("Failed to count members")
		return nil, err
	}
	community.MemberCount = count

	resp := toCommunityResponse(community)
	return &resp, nil
}

// ListCommunities retrieves communities with filtering and pagination
func (s *communityServiceImpl) ListCommunities(ctx context.Context, filter *dto.CommunityFilterRequest) (*dto.CommunityListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)

	communities, total, err := s.communityStore.List(ctx, filter.Search, offset, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list communities")
		return nil, err
	}

	responses := make([]dto.CommunityResponse, 0, len(communities))
	for i := range communities {
		count, err := s.memberStore.Count(ctx, nil, communities[i].ID)
		if err != nil {
			count = 0
		}
		communities[i].MemberCount = count
		responses = append(responses, toCommunityResponse(&communities[i]))
	}

	return &dto.CommunityListResponse{
		Communities:    responses,
		PaginationInfo: helpers.NewPaginationInfo(total, filter.Page, limit),
	}, nil
}

// ListMembers retrieves all members of a community. This is a snapshot read
// taken outside any critical section; it may trail in-flight joins.
func (s *communityServiceImpl) ListMembers(ctx context.Context, communityID int64) (*dto.CommunityMembersResponse, error) {
	if _, err := s.communityStore.GetByID(ctx, communityID); err != nil {
		return nil, err
	}

	members, err := s.memberStore.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CommunityMemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, dto.CommunityMemberResponse{
			UserID:   m.UserID,
			JoinedAt: m.JoinedAt,
		})
	}

	return &dto.CommunityMembersResponse{
		CommunityID: communityID,
		Members:     responses,
	}, nil
}

// JoinCommunity adds a user to a community. The whole read-check-write-publish
// sequence runs inside the community's critical section with the community
// row locked, so concurrent joins can neither overflow maxMembers nor admit
// the same user twice, and their events reach the hub in admission order.
func (s *communityServiceImpl) JoinCommunity(ctx context.Context, communityID, userID int64) (*dto.JoinCommunityResponse, error) {
	var memberCount int

	lockErr := s.locks.WithLock(keylock.CommunityKey(communityID), func() error {
		err := s.tx.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			community, err := s.communityStore.GetByIDForUpdate(ctx, tx, communityID)
			if err != nil {
				return err
			}

			if community.Archived {
				return apperrors.ErrCommunityArchived
			}

			exists, err := s.memberStore.Exists(ctx, tx, communityID, userID)
			if err != nil {
				return err
			}
			if exists {
				return apperrors.ErrAlreadyMember
			}

			count, err := s.memberStore.Count(ctx, tx, communityID)
			if err != nil {
				return err
			}
			if count >= community.MaxMembers {
				return apperrors.ErrCommunityFull
			}

			if _, err := s.memberStore.Add(ctx, tx, communityID, userID); err != nil {
				if dberrors.IsUniqueViolation(err) {
					return apperrors.ErrAlreadyMember
				}
				return err
			}

			memberCount = count + 1
			return nil
		})
		if err != nil {
			return err
		}

		s.logger.Info().
			Int64("communityID", communityID).
			Int64("userID", userID).
			Int("memberCount", memberCount).
			Msg("Member joined community")

		s.hub.Publish(websocket.NewMemberJoinedEvent(communityID, userID, memberCount))
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return &dto.JoinCommunityResponse{
		CommunityID: communityID,
		MemberCount: memberCount,
	}, nil
}

// ArchiveCommunity marks a community archived. Archival is irreversible and
// idempotent: re-archiving an archived community succeeds without emitting a
// second event.
func (s *communityServiceImpl) ArchiveCommunity(ctx context.Context, communityID int64) (*dto.ArchiveCommunityResponse, error) {
	lockErr := s.locks.WithLock(keylock.CommunityKey(communityID), func() error {
		var alreadyArchived bool

		err := s.tx.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			community, err := s.communityStore.GetByIDForUpdate(ctx, tx, communityID)
			if err != nil {
				return err
			}

			if community.Archived {
				alreadyArchived = true
				return nil
			}

			return s.communityStore.SetArchived(ctx, tx, communityID, community.Version)
		})
		if err != nil {
			return err
		}

		if !alreadyArchived {
			s.logger.Info().
				Int64("communityID", communityID).
				Msg("Community archived")
			s.hub.Publish(websocket.NewCommunityArchivedEvent(communityID))
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return &dto.ArchiveCommunityResponse{
		CommunityID: communityID,
		Archived:    true,
	}, nil
}

// IsMember checks if a user belongs to a community; side-effect free
func (s *communityServiceImpl) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	return s.memberStore.Exists(ctx, nil, communityID, userID)
}

func toCommunityResponse(c *models.Community) dto.CommunityResponse {
	return dto.CommunityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		MaxMembers:  c.MaxMembers,
		Archived:    c.Archived,
		MemberCount: c.MemberCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
