package dto

import (
	"time"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
)

// SubmitLoanRequest is the payload for submitting a loan request
type SubmitLoanRequest struct {
	Amount  float64 `json:"amount" binding:"required"`
	Purpose *string `json:"purpose,omitempty" binding:"omitempty,max=2000"`
}

// SubmitLoanResponse identifies the newly created loan
type SubmitLoanResponse struct {
	LoanID string            `json:"loanId"`
	Status models.LoanStatus `json:"status"`
}

// CastVoteRequest is a member's vote on a loan
type CastVoteRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// CastVoteResponse carries the tally after the vote and the possibly-updated status
type CastVoteResponse struct {
	LoanID string            `json:"loanId"`
	Tally  governance.Tally  `json:"tally"`
	Status models.LoanStatus `json:"status"`
}

// LoanResponse is the projection of a loan returned to clients
type LoanResponse struct {
	ID          string            `json:"id"`
	CommunityID int64             `json:"communityId"`
	RequesterID int64             `json:"requesterId"`
	Amount      float64           `json:"amount"`
	Purpose     *string           `json:"purpose,omitempty"`
	Status      models.LoanStatus `json:"status"`
	Tally       governance.Tally  `json:"tally"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// LoanListResponse lists loans in creation order
type LoanListResponse struct {
	Loans []LoanResponse `json:"loans"`
}

// LoanVoteResponse is one member's current vote on a loan
type LoanVoteResponse struct {
	UserID int64             `json:"userId"`
	Choice models.VoteChoice `json:"choice"`
	CastAt time.Time         `json:"castAt"`
}

// LoanVotesResponse lists the current votes on a loan in cast order
type LoanVotesResponse struct {
	LoanID string             `json:"loanId"`
	Votes  []LoanVoteResponse `json:"votes"`
}

// ToLoanResponse maps a loan and its tally to the client projection
func ToLoanResponse(loan *models.Loan, tally governance.Tally) LoanResponse {
	return LoanResponse{
		ID:          loan.ID.String(),
		CommunityID: loan.CommunityID,
		RequesterID: loan.RequesterID,
		Amount:      loan.Amount,
		Purpose:     loan.Purpose,
		Status:      loan.Status,
		Tally:       tally,
		CreatedAt:   loan.CreatedAt,
		UpdatedAt:   loan.UpdatedAt,
	}
}
