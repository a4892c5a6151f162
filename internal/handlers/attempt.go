package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type AttemptHandler struct {
	attempts   monrepos.AttemptRepo
	aggregator services.SessionAggregator
}

func NewAttemptHandler(attempts monrepos.AttemptRepo, aggregator services.SessionAggregator) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, aggregator: aggregator}
}

type createAttemptRequest struct {
	StudentID           uuid.UUID `json:"student_id" binding:"required"`
	ContentID           uuid.UUID `json:"content_id" binding:"required"`
	ExpectedDurationSec int       `json:"expected_duration_sec"`
	TotalFields         int       `json:"total_fields"`
	RetryLimit          int       `json:"retry_limit"`
}

func (h *AttemptHandler) Create(c *gin.Context) {
	var req createAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TotalFields <= 0 {
		req.TotalFields = 1
	}
	attempt := &types.WorkAttempt{
		ID:                  uuid.New(),
		StudentID:           req.StudentID,
		ContentID:           req.ContentID,
		Status:              types.AttemptInProgress,
		ExpectedDurationSec: req.ExpectedDurationSec,
		TotalFields:         req.TotalFields,
		RetryLimit:          req.RetryLimit,
		RiskLevel:           types.RiskBajo,
	}
	if err := h.attempts.Create(c.Request.Context(), nil, attempt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attempt": attempt})
}

func (h *AttemptHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt id"})
		return
	}
	attempt, err := h.attempts.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

func (h *AttemptHandler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt id"})
		return
	}
	stats, err := h.aggregator.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *AttemptHandler) ListByStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	attempts, err := h.attempts.ListByStudent(c.Request.Context(), nil, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}
