package models

import (
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a loan request.
// PENDING is the only non-terminal state; APPROVED and REJECTED are terminal.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
)

// IsTerminal reports whether the status permits no further transition.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusApproved || s == LoanStatusRejected
}

// VoteChoice is a member's position on a loan request.
type VoteChoice string

const (
	VoteChoiceApprove VoteChoice = "APPROVE"
	VoteChoiceReject  VoteChoice = "REJECT"
)

// ParseVoteChoice validates a raw choice string.
func ParseVoteChoice(raw string) (VoteChoice, bool) {
	switch VoteChoice(raw) {
	case VoteChoiceApprove:
		return VoteChoiceApprove, true
	case VoteChoiceReject:
		return VoteChoiceReject, true
	}
	return "", false
}

// Loan represents a loan request raised by a community member.
type Loan struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CommunityID int64      `json:"communityId" db:"community_id"`
	RequesterID int64      `json:"requesterId" db:"requester_id"`
	Amount      float64    `json:"amount" db:"amount"`
	Purpose     *string    `json:"purpose,omitempty" db:"purpose"`
	Status      LoanStatus `json:"status" db:"status"`
	Version     int64      `json:"-" db:"version"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// LoanVote is one member's current vote on a loan. A member re-voting
// overwrites their previous record; there is never more than one row per
// (loan, user) pair.
type LoanVote struct {
	ID     int64      `json:"id" db:"id"`
	LoanID uuid.UUID  `json:"loanId" db:"loan_id"`
	UserID int64      `json:"userId" db:"user_id"`
	Choice VoteChoice `json:"choice" db:"choice"`
	CastAt time.Time  `json:"castAt" db:"cast_at"`
}
