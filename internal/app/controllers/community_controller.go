package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/app/services"
	"github.com/famfund/famfund/internal/middleware"
)

// CommunityController handles community and membership related operations
type CommunityController struct {
	communityService services.CommunityService
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService services.CommunityService) *CommunityController {
	return &CommunityController{
		communityService: communityService,
	}
}

// currentUserID extracts the authenticated user's ID set by the JWT middleware.
func currentUserID(ctx *gin.Context) (int64, bool) {
	value, exists := ctx.Get("userID")
	if !exists {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "User not authenticated")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return 0, false
	}

	userID, ok := value.(int64)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return userID, true
}

// parseCommunityID parses the :id path parameter.
func parseCommunityID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid community ID")
		errorDetail = errorDetail.WithDetails("Community ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// CreateCommunity handles creating a new community
// @Summary Create a new community
// @Description Creates a new lending community. The authenticated user becomes its first member.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCommunityRequest true "Community details"
// @Success 201 {object} dto.CommunityResponse "Community created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	community, err := c.communityService.CreateCommunity(ctx, &req, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, community)
}

// GetAllCommunities handles retrieving communities with optional filtering
// @Summary List communities
// @Description Retrieves communities with optional name search and pagination
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param pageSize query int false "Page size (default: 10, max: 100)" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.CommunityListResponse "Communities retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /communities [get]
func (c *CommunityController) GetAllCommunities(ctx *gin.Context) {
	var filter dto.CommunityFilterRequest
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameters")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	response, err := c.communityService.ListCommunities(ctx, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetCommunityByID handles retrieving a specific community
// @Summary Get community by ID
// @Description Retrieves a community with its current member count
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.CommunityResponse "Community retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid community ID"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id} [get]
func (c *CommunityController) GetCommunityByID(ctx *gin.Context) {
	id, ok := parseCommunityID(ctx)
	if !ok {
		return
	}

	community, err := c.communityService.GetCommunityByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, community)
}

// GetCommunityMembers handles listing a community's members
// @Summary List community members
// @Description Retrieves the members of a community in join order
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.CommunityMembersResponse "Members retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id}/members [get]
func (c *CommunityController) GetCommunityMembers(ctx *gin.Context) {
	id, ok := parseCommunityID(ctx)
	if !ok {
		return
	}

	members, err := c.communityService.ListMembers(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, members)
}

// JoinCommunity handles a user joining a community
// @Summary Join a community
// @Description Adds the authenticated user to the community if capacity allows
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.JoinCommunityResponse "Joined successfully"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Failure 409 {object} dto.ErrorResponse "Already a member, community full, or community archived"
// @Router /communities/{id}/join [post]
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id, ok := parseCommunityID(ctx)
	if !ok {
		return
	}

	response, err := c.communityService.JoinCommunity(ctx, id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// ArchiveCommunity handles archiving a community
// @Summary Archive a community
// @Description Marks the community archived. Archived communities accept no new members or loan requests. Archiving twice is a no-op.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.ArchiveCommunityResponse "Community archived"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id}/archive [post]
func (c *CommunityController) ArchiveCommunity(ctx *gin.Context) {
	if _, ok := currentUserID(ctx); !ok {
		return
	}

	id, ok := parseCommunityID(ctx)
	if !ok {
		return
	}

	response, err := c.communityService.ArchiveCommunity(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}
