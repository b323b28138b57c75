// Package governance holds the vote-aggregation policy that finalizes loan
// requests. The decision rule is pure: given the same tally and member count it
// always produces the same outcome, independent of call order or timing.
package governance

import (
	"fmt"

	"github.com/famfund/famfund/internal/app/models"
)

// Tally summarizes the current votes on a loan.
type Tally struct {
	ApproveCount        int `json:"approveCount"`
	RejectCount         int `json:"rejectCount"`
	TotalEligibleVoters int `json:"totalEligibleVoters"`
}

// Policy decides when accumulated votes finalize a loan's status.
//
// Threshold is the fraction of current community members a side must strictly
// exceed. With the default 0.5 a loan is APPROVED once approvals form a strict
// majority of members, REJECTED once rejections do, and stays PENDING on ties
// and fractional halves.
type Policy struct {
	Threshold float64
}

// DefaultPolicy is a strict simple majority of current members.
func DefaultPolicy() Policy {
	return Policy{Threshold: 0.5}
}

// NewPolicy validates and builds a decision policy.
func NewPolicy(threshold float64) (Policy, error) {
	if threshold <= 0 || threshold >= 1 {
		return Policy{}, fmt.Errorf("governance: threshold must be in (0, 1), got %v", threshold)
	}
	return Policy{Threshold: threshold}, nil
}

// Decide evaluates the tally against the current community member count and
// returns the resulting status. Terminal statuses are never produced for
// already-terminal loans; callers stop evaluating once a loan leaves PENDING.
func (p Policy) Decide(tally Tally, memberCount int) models.LoanStatus {
	if memberCount <= 0 {
		return models.LoanStatusPending
	}

	// Strict inequality: exactly half of an even-sized community decides nothing.
	needed := p.Threshold * float64(memberCount)

	if float64(tally.ApproveCount) > needed {
		return models.LoanStatusApproved
	}
	if float64(tally.RejectCount) > needed {
		return models.LoanStatusRejected
	}
	return models.LoanStatusPending
}
