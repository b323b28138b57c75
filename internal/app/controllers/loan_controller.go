package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/app/services"
	"github.com/famfund/famfund/internal/middleware"
)

// LoanController handles loan request and voting operations
type LoanController struct {
	loanService services.LoanService
}

// NewLoanController creates a new LoanController
func NewLoanController(loanService services.LoanService) *LoanController {
	return &LoanController{
		loanService: loanService,
	}
}

// parseLoanID parses the :loanId path parameter.
func parseLoanID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("loanId"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid loan ID")
		errorDetail = errorDetail.WithDetails("Loan ID must be a valid UUID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return uuid.Nil, false
	}
	return id, true
}

// SubmitLoan handles submitting a loan request to a community
// @Summary Submit a loan request
// @Description Creates a pending loan request in the community. The requester must be a member and the community must not be archived.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.SubmitLoanRequest true "Loan details"
// @Success 201 {object} dto.SubmitLoanResponse "Loan submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 403 {object} dto.ErrorResponse "Requester is not a member"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Failure 409 {object} dto.ErrorResponse "Community archived"
// @Router /communities/{id}/loans [post]
func (c *LoanController) SubmitLoan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	communityID, ok := parseCommunityID(ctx)
	if !ok {
		return
	}

	var req dto.SubmitLoanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	response, err := c.loanService.SubmitLoan(ctx, communityID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, response)
}

// CastVote handles a member voting on a pending loan
// @Summary Vote on a loan request
// @Description Records the authenticated member's APPROVE or REJECT vote. Voting again overwrites the previous choice. When the tally crosses the decision threshold the loan is finalized.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param request body dto.CastVoteRequest true "Vote choice"
// @Success 200 {object} dto.CastVoteResponse "Vote recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid vote choice"
// @Failure 403 {object} dto.ErrorResponse "Voter is not a member of the loan's community"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan already finalized"
// @Router /loans/{loanId}/votes [post]
func (c *LoanController) CastVote(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	loanID, ok := parseLoanID(ctx)
	if !ok {
		return
	}

	var req dto.CastVoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	response, err := c.loanService.CastVote(ctx, loanID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetLoan handles retrieving a loan with its tally
// @Summary Get loan by ID
// @Description Retrieves a loan request with its current vote tally and status
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanId} [get]
func (c *LoanController) GetLoan(ctx *gin.Context) {
	loanID, ok := parseLoanID(ctx)
	if !ok {
		return
	}

	response, err := c.loanService.GetLoan(ctx, loanID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetLoanVotes handles listing the current votes on a loan
// @Summary List votes on a loan
// @Description Retrieves the current vote of every member who has voted, in cast order
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} dto.LoanVotesResponse "Votes retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanId}/votes [get]
func (c *LoanController) GetLoanVotes(ctx *gin.Context) {
	loanID, ok := parseLoanID(ctx)
	if !ok {
		return
	}

	response, err := c.loanService.ListVotes(ctx, loanID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetMyLoans handles listing the authenticated user's loan requests
// @Summary List own loan requests
// @Description Retrieves the authenticated user's loan requests, oldest first
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.LoanListResponse "Loans retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /loans [get]
func (c *LoanController) GetMyLoans(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	response, err := c.loanService.ListLoansByRequester(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}
