package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/services"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Profile       *ProfileHandler
	Jobs          *JobHandler
	AutoApply     *AutoApplyHandler
	Resume        *ResumeHandler
	Applications  *ApplicationHandler
	Interview     *InterviewHandler
	Notifications *NotificationHandler
	Billing       *BillingHandler
	Cron          *CronHandler
}

// NewRouter wires middleware and every route group onto a gin engine.
func NewRouter(cfg *config.Config, log *zap.Logger, authSvc *services.AuthService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
	})

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/password-reset/request", h.Auth.RequestPasswordReset)
		auth.POST("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
	}

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(authSvc))
	{
		authed.GET("/profile", h.Profile.Get)
		authed.PUT("/profile", h.Profile.Upsert)

		authed.POST("/jobs/search", h.Jobs.Search)
		authed.GET("/jobs", h.Jobs.List)
		authed.GET("/jobs/matches", h.Jobs.Matches)
		authed.GET("/jobs/queue/status", h.Jobs.QueueStatus)
		authed.POST("/jobs/queue/status", h.Jobs.QueueAction)
		authed.GET("/jobs/:id", h.Jobs.Get)

		authed.POST("/auto-apply/scan", h.AutoApply.Scan)
		authed.PUT("/auto-apply/settings", h.Profile.SetAutoApply)

		authed.POST("/resume/structured", h.Resume.CreateStructured)
		authed.GET("/resume/structured", h.Resume.ListStructured)
		authed.GET("/resume/structured/:id", h.Resume.GetStructured)
		authed.POST("/resume/upload", h.Resume.Upload)
		authed.POST("/resume/customize", h.Resume.Customize)
		authed.GET("/resume/customized/:jobID", h.Resume.GetCustomized)

		authed.POST("/ai/generate-cover-letter", h.Resume.GenerateCoverLetter)

		authed.POST("/applications", h.Applications.Create)
		authed.GET("/applications", h.Applications.List)
		authed.PUT("/applications/:id", h.Applications.Update)
		authed.POST("/applications/:id/review", h.Applications.Review)

		authed.POST("/interview/start", h.Interview.Start)
		authed.POST("/interview/submit-answer", h.Interview.SubmitAnswer)
		authed.POST("/interview/:id/finish", h.Interview.Finish)
		authed.GET("/interview/:id", h.Interview.Get)

		authed.GET("/notifications", h.Notifications.List)
		authed.POST("/notifications/:id/read", h.Notifications.MarkRead)

		authed.GET("/billing/usage", h.Billing.Usage)
	}

	cron := api.Group("/cron")
	cron.Use(middleware.RequireCronSecret(cfg.Server.CronSecret))
	{
		cron.POST("/scan", h.Cron.Scan)
		cron.POST("/cleanup", h.Cron.Cleanup)
		cron.POST("/notify", h.Cron.Notify)
	}

	return r
}
