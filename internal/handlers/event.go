package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type EventHandler struct {
	aggregator services.SessionAggregator
	deadLetter monrepos.DeadLetterRepo
}

func NewEventHandler(aggregator services.SessionAggregator, deadLetter monrepos.DeadLetterRepo) *EventHandler {
	return &EventHandler{aggregator: aggregator, deadLetter: deadLetter}
}

type ingestEventRequest struct {
	AttemptID      uuid.UUID      `json:"attempt_id" binding:"required"`
	StudentID      uuid.UUID      `json:"student_id"`
	ContentID      uuid.UUID      `json:"content_id"`
	ClientEventID  string         `json:"client_event_id"`
	Kind           string         `json:"kind" binding:"required"`
	OccurredAt     time.Time      `json:"occurred_at"`
	DurationSec    int            `json:"duration_sec"`
	AnsweredFields *int           `json:"answered_fields"`
	Errors         []string       `json:"errors"`
	Context        map[string]any `json:"context"`
	CognitiveLoad  map[string]any `json:"cognitive_load"`
}

// Ingest applies one behavioral event and returns the refreshed attempt
// aggregate. Replays return the same shape, so at-least-once clients need no
// special casing.
func (h *EventHandler) Ingest(c *gin.Context) {
	var req ingestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	attempt, err := h.aggregator.Apply(c.Request.Context(), services.EventInput{
		AttemptID:      req.AttemptID,
		StudentID:      req.StudentID,
		ContentID:      req.ContentID,
		ClientEventID:  req.ClientEventID,
		Kind:           req.Kind,
		OccurredAt:     req.OccurredAt,
		DurationSec:    req.DurationSec,
		AnsweredFields: req.AnsweredFields,
		Errors:         req.Errors,
		Context:        req.Context,
		CognitiveLoad:  req.CognitiveLoad,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// DeadLetters lists recently rejected events so upstream delivery problems
// stay visible.
func (h *EventHandler) DeadLetters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.deadLetter.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": rows})
}
