package models

import "time"

// Community represents a peer lending circle. Members pool and vote on loan
// requests raised within it.
type Community struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	MaxMembers  int       `json:"maxMembers" db:"max_members"`
	Archived    bool      `json:"archived" db:"archived"`
	Version     int64     `json:"-" db:"version"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Derived, populated on reads
	MemberCount int `json:"memberCount,omitempty"`
}

// CommunityMember links a user to a community they joined.
type CommunityMember struct {
	ID          int64     `json:"id" db:"id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	UserID      int64     `json:"userId" db:"user_id"`
	JoinedAt    time.Time `json:"joinedAt" db:"joined_at"`
}
