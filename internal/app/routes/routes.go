package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/famfund/famfund/internal/app/controllers"
	"github.com/famfund/famfund/internal/middleware"
	"github.com/famfund/famfund/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	communityController *controllers.CommunityController,
	loanController *controllers.LoanController,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Community routes - membership and lifecycle
		communities := authenticated.Group("/communities")
		{
			communities.GET("", communityController.GetAllCommunities)
			communities.POST("", communityController.CreateCommunity)
			communities.GET("/:id", communityController.GetCommunityByID)
			communities.GET("/:id/members", communityController.GetCommunityMembers)
			communities.POST("/:id/join", communityController.JoinCommunity)
			communities.POST("/:id/archive", communityController.ArchiveCommunity)

			// Loan submission lives under the community it targets
			communities.POST("/:id/loans", loanController.SubmitLoan)

			// Live governance event stream, one subscription per community
			communities.GET("/:id/events", wsHandler.HandleConnection)
		}

		// Loan routes - voting and inspection by loan ID
		loans := authenticated.Group("/loans")
		{
			loans.GET("", loanController.GetMyLoans)
			loans.GET("/:loanId", loanController.GetLoan)
			loans.GET("/:loanId/votes", loanController.GetLoanVotes)
			loans.POST("/:loanId/votes", loanController.CastVote)
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
