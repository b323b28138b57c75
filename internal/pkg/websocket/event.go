package websocket

import (
	"time"

	"github.com/famfund/famfund/internal/app/governance"
	"github.com/famfund/famfund/internal/app/models"
)

// EventType identifies a governance event carried over the hub.
type EventType string

const (
	EventMemberJoined      EventType = "MEMBER_JOINED"
	EventLoanSubmitted     EventType = "LOAN_SUBMITTED"
	EventVoteCast          EventType = "VOTE_CAST"
	EventLoanDecided       EventType = "LOAN_DECIDED"
	EventCommunityArchived EventType = "COMMUNITY_ARCHIVED"
)

// Event is a governance state change fanned out to the live subscribers of a
// community. Delivery is best-effort: subscribers only see events produced
// while they are connected, in the order they were produced for the community.
type Event struct {
	// Type of event
	Type EventType `json:"type"`

	// Community this event belongs to
	CommunityID int64 `json:"communityId"`

	// Timestamp when the event was produced
	Timestamp time.Time `json:"timestamp"`

	// User involved, for membership events
	UserID int64 `json:"userId,omitempty"`

	// Member count after the change, for membership events
	MemberCount int `json:"memberCount,omitempty"`

	// Loan involved, for loan events
	LoanID string `json:"loanId,omitempty"`

	// Vote tally after the change, for vote events
	Tally *governance.Tally `json:"tally,omitempty"`

	// Loan status, for decision events
	Status models.LoanStatus `json:"status,omitempty"`
}

// NewMemberJoinedEvent builds the event emitted after a successful join.
func NewMemberJoinedEvent(communityID, userID int64, memberCount int) *Event {
	return &Event{
		Type:        EventMemberJoined,
		CommunityID: communityID,
		Timestamp:   time.Now(),
		UserID:      userID,
		MemberCount: memberCount,
	}
}

// NewLoanSubmittedEvent builds the event emitted after a loan is created.
func NewLoanSubmittedEvent(communityID int64, loanID string) *Event {
	return &Event{
		Type:        EventLoanSubmitted,
		CommunityID: communityID,
		Timestamp:   time.Now(),
		LoanID:      loanID,
	}
}

// NewVoteCastEvent builds the event emitted after every accepted vote.
func NewVoteCastEvent(communityID int64, loanID string, tally governance.Tally) *Event {
	return &Event{
		Type:        EventVoteCast,
		CommunityID: communityID,
		Timestamp:   time.Now(),
		LoanID:      loanID,
		Tally:       &tally,
	}
}

// NewLoanDecidedEvent builds the event emitted when a loan reaches a terminal status.
func NewLoanDecidedEvent(communityID int64, loanID string, status models.LoanStatus) *Event {
	return &Event{
		Type:        EventLoanDecided,
		CommunityID: communityID,
		Timestamp:   time.Now(),
		LoanID:      loanID,
		Status:      status,
	}
}

// NewCommunityArchivedEvent builds the event emitted when a community is archived.
func NewCommunityArchivedEvent(communityID int64) *Event {
	return &Event{
		Type:        EventCommunityArchived,
		CommunityID: communityID,
		Timestamp:   time.Now(),
	}
}
