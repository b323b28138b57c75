package dto

import "time"

// CreateCommunityRequest is the payload for creating a community
type CreateCommunityRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	MaxMembers  *int    `json:"maxMembers,omitempty" binding:"omitempty,min=1,max=10000"`
}

// CommunityResponse is the representation of a community returned to clients
type CommunityResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	MaxMembers  int       `json:"maxMembers"`
	Archived    bool      `json:"archived"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CommunityListResponse is a paginated list of communities
type CommunityListResponse struct {
	Communities    []CommunityResponse `json:"communities"`
	PaginationInfo PaginationInfo      `json:"pagination"`
}

// CommunityFilterRequest holds listing filters
type CommunityFilterRequest struct {
	Search   *string `form:"search"`
	Page     int     `form:"page,default=1"`
	PageSize int     `form:"pageSize,default=10"`
}

// JoinCommunityResponse reports the member count after a successful join
type JoinCommunityResponse struct {
	CommunityID int64 `json:"communityId"`
	MemberCount int   `json:"memberCount"`
}

// ArchiveCommunityResponse confirms archival
type ArchiveCommunityResponse struct {
	CommunityID int64 `json:"communityId"`
	Archived    bool  `json:"archived"`
}

// CommunityMemberResponse is one member of a community
type CommunityMemberResponse struct {
	UserID   int64     `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// CommunityMembersResponse lists the members of a community
type CommunityMembersResponse struct {
	CommunityID int64                     `json:"communityId"`
	Members     []CommunityMemberResponse `json:"members"`
}
