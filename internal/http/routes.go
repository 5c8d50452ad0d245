package http

import (
	"time"

	"warthug/internal/config"
	"warthug/internal/http/handlers"
	"warthug/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) {
	h := handlers.NewHandler(db)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	apiRateLimit := cfg.APIRateLimit
	apiRateWindow := time.Duration(cfg.APIRateWindow) * time.Second
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, time.Duration(cfg.AuthRateWindow)*time.Second)
	tapRL := middleware.TapRateLimit(cfg.TapRateLimit, time.Duration(cfg.TapRateWindow)*time.Second)

	api := r.Group("/api/warthug")
	api.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	// Auth and registration
	api.POST("/auth", authRL, h.Auth)
	api.POST("/register", middleware.SimpleRateLimit(cfg.AuthRateLimit, time.Duration(cfg.AuthRateWindow)*time.Second), h.Register)

	// Status monitor (polled by the client, settles lazy subsystems)
	api.GET("/status/:userId", h.Status)

	// Core economy
	api.POST("/tap", middleware.JWT(), tapRL, h.Tap)
	api.POST("/energy/refill", middleware.JWT(), h.RefillEnergy)
	api.POST("/upgrade/tap-power", middleware.JWT(), h.UpgradeTapPower)
	api.POST("/upgrade/energy-limit", middleware.JWT(), h.UpgradeEnergyLimit)
	api.POST("/points/hourly", middleware.JWT(), h.AwardHourlyPoints)
	api.POST("/points/convert", middleware.JWT(), h.Convert)
	api.GET("/points", middleware.JWT(), h.PointsInfo)
	api.GET("/transactions", middleware.JWT(), h.Transactions)

	// Cards
	api.GET("/cards", middleware.JWT(), h.AllCards)
	api.GET("/cards/:section/:key", middleware.JWT(), h.CardDetails)
	api.POST("/cards/upgrade", middleware.JWT(), h.UpgradeCard)
	api.GET("/cards/templates", h.CardTemplates)

	// Time-gated claims
	claims := api.Group("/claims")
	claims.Use(middleware.JWT())
	{
		claims.GET("/daily", h.DailyClaimInfo)
		claims.POST("/daily", h.DailyClaim)
		claims.POST("/starter-bonus", h.ClaimStarterBonus)
		claims.GET("/summary", h.RewardsSummary)
	}

	// Auto-mine
	mine := api.Group("/auto-mine")
	mine.Use(middleware.JWT())
	{
		mine.POST("/start", h.StartAutoMine)
		mine.GET("/status", h.AutoMineStatus)
		mine.POST("/claim", h.ClaimAutoMine)
	}

	// Referral system
	referral := api.Group("/referral")
	referral.Use(middleware.JWT())
	{
		referral.GET("/details", h.ReferralDetails)
		referral.POST("/claim", h.ClaimReferral)
		referral.GET("/rank", h.ReferralRank)
		referral.POST("/rank/claim", h.ClaimReferralRank)
	}

	// Tasks
	api.GET("/tasks", middleware.JWT(), h.ListTasks)
	api.POST("/tasks/:id/complete", middleware.JWT(), h.CompleteTask)
	api.GET("/tasks/completed", middleware.JWT(), h.CompletedTasks)

	// Vote events
	api.GET("/votes", middleware.JWT(), h.ListVoteEvents)
	api.POST("/votes/:id", middleware.JWT(), h.SubmitVote)
	api.GET("/votes/:id/results", h.VoteResults)

	// Leaderboard
	api.GET("/leaderboard", h.GetLeaderboard)

	// Admin surface; AdminKey middleware guards catalog writes.
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/tasks", h.AdminListTasks)
		admin.POST("/tasks", h.CreateTask)
		admin.POST("/tasks/batch", h.CreateTasks)
		admin.PUT("/tasks/:id", h.UpdateTask)
		admin.DELETE("/tasks/:id", h.DeleteTask)
		admin.POST("/votes", h.CreateVoteEvent)
		admin.POST("/cards", h.CreateCard)
	}

	// WebSocket live status
	r.GET("/ws", h.WS)
}
