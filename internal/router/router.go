package router

import (
	"net/http"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/handler"
	"github.com/edulab/studytrace-backend/internal/middleware"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Participant *handler.ParticipantHandler
	Session     *handler.SessionHandler
	Event       *handler.EventHandler
	Privacy     *handler.PrivacyHandler
	Study       *handler.StudyHandler
	Monitor     *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Exports in particular shrink well.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the unauthenticated surfaces (30 requests per minute per IP).
	publicLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(publicLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", middleware.RequireAdminJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Participant Group (Public) ─────────────────────────────────
	// Participants never authenticate; the session frontend drives these
	// with the IDs it was handed at enrollment.
	participantAPI := router.Group("/api/v1")
	{
		participantAPI.POST("/participants", publicLimiter.Middleware(), handlers.Participant.Enroll)
		participantAPI.POST("/participants/:id/consent", handlers.Participant.RecordConsent)
		participantAPI.POST("/participants/:id/withdraw", handlers.Participant.Withdraw)

		participantAPI.POST("/participants/:id/sessions", handlers.Session.StartSession)
		participantAPI.GET("/participants/:id/sessions/active", handlers.Session.GetActiveSession)
		participantAPI.POST("/sessions/:session_id/transition", handlers.Session.TransitionPhase)
		participantAPI.GET("/sessions/:session_id/breakdown", handlers.Session.GetBreakdown)
		participantAPI.POST("/sessions/:session_id/terminate", handlers.Session.Terminate)

		participantAPI.POST("/events", handlers.Event.LogEvent)
		participantAPI.POST("/events/chat", handlers.Event.RecordChat)
		participantAPI.POST("/events/pdf-view", handlers.Event.RecordPageView)
		participantAPI.POST("/events/quiz", handlers.Event.RecordQuizResponse)
	}

	// ─── 3. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/monitor", handlers.Monitor.PhaseMonitorStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Study management
		adminAPI.GET("/studies", handlers.Study.ListStudies)
		adminAPI.POST("/studies", handlers.Study.CreateStudy)
		adminAPI.GET("/studies/:study_id", handlers.Study.GetStudy)
		adminAPI.GET("/studies/:study_id/participants", handlers.Participant.ListByStudy)

		// Participant oversight
		adminAPI.GET("/participants/:id", handlers.Participant.GetParticipant)
		adminAPI.GET("/sessions/:session_id/summary", handlers.Session.GetSummary)

		// Privacy operations
		adminAPI.POST("/participants/:id/anonymize", handlers.Privacy.Anonymize)
		adminAPI.POST("/participants/:id/delete", handlers.Privacy.Delete)
		adminAPI.GET("/participants/:id/export", handlers.Privacy.Export)
		adminAPI.POST("/privacy/retention-sweep", handlers.Privacy.RetentionSweep)
		adminAPI.POST("/privacy/bulk-anonymize", handlers.Privacy.BulkAnonymize)
		adminAPI.GET("/privacy/compliance-report", handlers.Privacy.ComplianceReport)
	}

	return router
}
