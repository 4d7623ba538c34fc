package api

import (
	"context"

	"election-engine/internal/api/handlers"
	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/middlewares"
	"election-engine/pkg/config"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes with proper middleware.
// ctx bounds the background work of the rate limiter.
func SetupRoutes(ctx context.Context, router *gin.Engine, services interfaces.Services, cfg config.ServerConfig) {
	log := services.GetLogger()

	// Global middleware
	router.Use(middlewares.RequestID())
	router.Use(middlewares.Recovery(log))
	router.Use(middlewares.CORS(cfg.AllowedOrigins))
	router.Use(middlewares.Security())
	router.Use(log.HTTPLogger())

	router.GET("/health", handlers.HealthCheck(services))

	limiter := middlewares.NewRateLimiter(ctx, cfg.RateLimit)

	v1 := router.Group("/api/v1")
	{
		setupVoterRoutes(v1, services, limiter)
		setupAdminRoutes(v1, services)
	}
}

// setupVoterRoutes configures the routes used by voters
func setupVoterRoutes(rg *gin.RouterGroup, services interfaces.Services, limiter *middlewares.RateLimiter) {
	voter := rg.Group("/elections")
	voter.Use(middlewares.VoterRequired())
	voter.Use(limiter.Middleware())
	{
		voter.GET("", handlers.ListVoterElections(services))
		voter.GET("/:id", handlers.GetVoterElection(services))
		voter.POST("/:id/register", handlers.RegisterVoter(services))
		voter.POST("/:id/ballots", handlers.CastBallot(services))
		voter.GET("/:id/results", handlers.GetVoterResults(services))
	}
}

// setupAdminRoutes configures the election administration routes
func setupAdminRoutes(rg *gin.RouterGroup, services interfaces.Services) {
	admin := rg.Group("/admin")
	admin.Use(middlewares.AdminRequired())
	{
		elections := admin.Group("/elections")
		{
			elections.GET("", handlers.ListElections(services))
			elections.POST("", handlers.CreateElection(services))
			elections.GET("/:id", handlers.GetElection(services))
			elections.PUT("/:id", handlers.UpdateElection(services))
			elections.DELETE("/:id", handlers.DeleteElection(services))

			elections.GET("/:id/candidates", handlers.ListCandidates(services))
			elections.POST("/:id/candidates", handlers.AddCandidate(services))
			elections.POST("/:id/voters", handlers.AddEligibleVoters(services))

			elections.POST("/:id/publish", handlers.PublishElection(services))
			elections.POST("/:id/cancel", handlers.CancelElection(services))
			elections.POST("/:id/keys/reload", handlers.ReloadElectionKey(services))
			elections.POST("/:id/result-window", handlers.SetResultWindow(services))
			elections.GET("/:id/results", handlers.GetElectionResults(services))
			elections.GET("/:id/audit-logs", handlers.GetAuditLogs(services))
		}
	}
}
