package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/pkg/apperrors"
	"github.com/famfund/famfund/internal/pkg/keylock"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

// LoanService defines the interface for loan request and voting operations
type LoanService interface {
	SubmitLoan(ctx context.Context, communityID, requesterID int64, req *dto.SubmitLoanRequest) (*dto.SubmitLoanResponse, error)
	CastVote(ctx context.Context, loanID uuid.UUID, voterID int64, req *dto.CastVoteRequest) (*dto.CastVoteResponse, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error)
	ListVotes(ctx context.Context, loanID uuid.UUID) (*dto.LoanVotesResponse, error)
	ListLoansByRequester(ctx context.Context, requesterID int64) (*dto.LoanListResponse, error)
}

// loanServiceImpl implements LoanService
type loanServiceImpl struct {
	loanStore      LoanStore
	voteStore      VoteStore
	communityStore CommunityStore
	memberStore    MemberStore
	tx             TxRunner
	locks          *keylock.KeyedMutex
	hub            EventPublisher
	policy         governance.Policy
	logger         zerolog.Logger
}

// NewLoanService creates a new LoanService
func NewLoanService(
	loanStore LoanStore,
	voteStore VoteStore,
	communityStore CommunityStore,
	memberStore MemberStore,
	tx TxRunner,
	locks *keylock.KeyedMutex,
	hub EventPublisher,
	policy governance.Policy,
	logger zerolog.Logger,
) LoanService {
	return &loanServiceImpl{
		loanStore:      loanStore,
		voteStore:      voteStore,
		communityStore: communityStore,
		memberStore:    memberStore,
		tx:             tx,
		locks:          locks,
		hub:            hub,
		policy:         policy,
		logger:         logger,
	}
}

// SubmitLoan creates a pending loan request in a community. Submission runs in
// the community's critical section so it cannot race with archival.
func (s *loanServiceImpl) SubmitLoan(ctx context.Context, communityID, requesterID int64, req *dto.SubmitLoanRequest) (*dto.SubmitLoanResponse, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	loan := &models.Loan{
		ID:          uuid.New(),
		CommunityID: communityID,
		RequesterID: requesterID,
		Amount:      req.Amount,
		Purpose:     req.Purpose,
		Status:      models.LoanStatusPending,
	}

	lockErr := s.locks.WithLock(keylock.CommunityKey(communityID), func() error {
		err := s.tx.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			community, err := s.communityStore.GetByIDForUpdate(ctx, tx, communityID)
			if err != nil {
				return err
			}

			if community.Archived {
				return apperrors.ErrCommunityArchived
			}

			isMember, err := s.memberStore.Exists(ctx, tx, communityID, requesterID)
			if err != nil {
				return err
			}
			if !isMember {
				return apperrors.ErrNotMember
			}

			if err := s.loanStore.Create(ctx, tx, loan); err != nil {
				return fmt.Errorf("error creating loan: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.logger.Info().
			Str("loanID", loan.ID.String()).
			Int64("communityID", communityID).
			Int64("requesterID", requesterID).
			Float64("amount", req.Amount).
			Msg("Loan request submitted")

		s.hub.Publish(websocket.NewLoanSubmittedEvent(communityID, loan.ID.String()))
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return &dto.SubmitLoanResponse{
		LoanID: loan.ID.String(),
		Status: models.LoanStatusPending,
	}, nil
}

// CastVote records a member's vote on a pending loan and evaluates the
// decision rule against the tally. The critical section spans the publish as
// well, so two decisive votes arriving together cannot both finalize the loan
// and tally events reach the hub in vote order. Re-casting overwrites the
// voter's previous choice.
func (s *loanServiceImpl) CastVote(ctx context.Context, loanID uuid.UUID, voterID int64, req *dto.CastVoteRequest) (*dto.CastVoteResponse, error) {
	choice, ok := models.ParseVoteChoice(req.Choice)
	if !ok {
		return nil, apperrors.ErrInvalidChoice
	}

	var (
		tally  governance.Tally
		status models.LoanStatus
		loan   *models.Loan
	)

	lockErr := s.locks.WithLock(keylock.LoanKey(loanID.String()), func() error {
		err := s.tx.RunTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var err error
			loan, err = s.loanStore.GetByID(ctx, loanID)
			if err != nil {
				return err
			}

			if loan.Status.IsTerminal() {
				return apperrors.ErrLoanNotPending
			}

			eligible, err := s.memberStore.Exists(ctx, tx, loan.CommunityID, voterID)
			if err != nil {
				return err
			}
			if !eligible {
				return apperrors.ErrNotEligible
			}

			if err := s.voteStore.Upsert(ctx, tx, loanID, voterID, choice); err != nil {
				return fmt.Errorf("error recording vote: %w", err)
			}

			tally, err = s.voteStore.Tally(ctx, tx, loanID)
			if err != nil {
				return err
			}

			memberCount, err := s.memberStore.Count(ctx, tx, loan.CommunityID)
			if err != nil {
				return err
			}
			tally.TotalEligibleVoters = memberCount

			status = s.policy.Decide(tally, memberCount)
			if status != models.LoanStatusPending {
				if err := s.loanStore.UpdateStatus(ctx, tx, loanID, status, loan.Version); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.logger.Info().
			Str("loanID", loanID.String()).
			Int64("voterID", voterID).
			Str("choice", string(choice)).
			Int("approveCount", tally.ApproveCount).
			Int("rejectCount", tally.RejectCount).
			Msg("Vote cast")

		s.hub.Publish(websocket.NewVoteCastEvent(loan.CommunityID, loanID.String(), tally))

		if status != models.LoanStatusPending {
			s.logger.Info().
				Str("loanID", loanID.String()).
				Str("status", string(status)).
				Msg("Loan decided")
			s.hub.Publish(websocket.NewLoanDecidedEvent(loan.CommunityID, loanID.String(), status))
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return &dto.CastVoteResponse{
		LoanID: loanID.String(),
		Tally:  tally,
		Status: status,
	}, nil
}

// GetLoan retrieves a loan with its current vote tally
func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error) {
	loan, err := s.loanStore.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	tally, err := s.voteStore.Tally(ctx, nil, loanID)
	if err != nil {
		return nil, err
	}

	memberCount, err := s.memberStore.Count(ctx, nil, loan.CommunityID)
	if err != nil {
		return nil, err
	}
	tally.TotalEligibleVoters = memberCount

	resp := dto.ToLoanResponse(loan, tally)
	return &resp, nil
}

// ListVotes retrieves the current votes on a loan
func (s *loanServiceImpl) ListVotes(ctx context.Context, loanID uuid.UUID) (*dto.LoanVotesResponse, error) {
	if _, err := s.loanStore.GetByID(ctx, loanID); err != nil {
		return nil, err
	}

	votes, err := s.voteStore.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.LoanVoteResponse, 0, len(votes))
	for _, v := range votes {
		responses = append(responses, dto.LoanVoteResponse{
			UserID: v.UserID,
			Choice: v.Choice,
			CastAt: v.CastAt,
		})
	}

	return &dto.LoanVotesResponse{
		LoanID: loanID.String(),
		Votes:  responses,
	}, nil
}

// ListLoansByRequester retrieves all loans submitted by a user, oldest first
func (s *loanServiceImpl) ListLoansByRequester(ctx context.Context, requesterID int64) (*dto.LoanListResponse, error) {
	loans, err := s.loanStore.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.LoanResponse, 0, len(loans))
	for i := range loans {
		tally, err := s.voteStore.Tally(ctx, nil, loans[i].ID)
		if err != nil {
			return nil, err
		}
		count, err := s.memberStore.Count(ctx, nil, loans[i].CommunityID)
		if err != nil {
			return nil, err
		}
		tally.TotalEligibleVoters = count
		responses = append(responses, dto.ToLoanResponse(&loans[i], tally))
	}

	return &dto.LoanListResponse{Loans: responses}, nil
}
