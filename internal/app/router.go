package app

import (
	"github.com/gin-gonic/gin"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/server"
)

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AttemptHandler:  h.Attempt,
		EventHandler:    h.Event,
		AlertHandler:    h.Alert,
		HintHandler:     h.Hint,
		FeedbackHandler: h.Feedback,
		AllowOrigins:    cfg.AllowOrigins,
	})
}
