package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/handlers"
)

type RouterConfig struct {
	AttemptHandler  *handlers.AttemptHandler
	EventHandler    *handlers.EventHandler
	AlertHandler    *handlers.AlertHandler
	HintHandler     *handlers.HintHandler
	FeedbackHandler *handlers.FeedbackHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Attempts
		api.POST("/attempts", cfg.AttemptHandler.Create)
		api.GET("/attempts/:id", cfg.AttemptHandler.Get)
		api.GET("/attempts/:id/stats", cfg.AttemptHandler.Stats)
		api.GET("/students/:studentId/attempts", cfg.AttemptHandler.ListByStudent)

		// Events
		api.POST("/events", cfg.EventHandler.Ingest)
		api.GET("/events/deadletters", cfg.EventHandler.DeadLetters)

		// Alerts
		api.GET("/students/:studentId/alerts", cfg.AlertHandler.ListPending)
		api.POST("/alerts/:id/notified", cfg.AlertHandler.MarkNotified)
		api.POST("/alerts/:id/action", cfg.AlertHandler.TeacherAction)

		// Hints
		api.GET("/students/:studentId/hints", cfg.HintHandler.ListPending)
		api.POST("/hints/request", cfg.HintHandler.Request)
		api.POST("/hints/:id/shown", cfg.HintHandler.MarkShown)
		api.POST("/hints/:id/interaction", cfg.HintHandler.RecordInteraction)
		api.POST("/hints/:id/oversight", cfg.HintHandler.Oversight)

		// Prediction feedback
		api.POST("/predictions", cfg.FeedbackHandler.Record)
		api.POST("/predictions/:id/resolve", cfg.FeedbackHandler.Resolve)
		api.GET("/predictions/pending", cfg.FeedbackHandler.Pending)
		api.GET("/students/:studentId/predictions", cfg.FeedbackHandler.PendingByStudent)
		api.GET("/predictions/review", cfg.FeedbackHandler.ReviewQueue)
		api.GET("/predictions/stats", cfg.FeedbackHandler.Stats)
		api.POST("/predictions/validate", cfg.FeedbackHandler.ValidateCoherence)
	}

	return router
}
