package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type FeedbackHandler struct {
	calibrator services.Calibrator
}

func NewFeedbackHandler(calibrator services.Calibrator) *FeedbackHandler {
	return &FeedbackHandler{calibrator: calibrator}
}

type recordPredictionRequest struct {
	StudentID      uuid.UUID      `json:"student_id" binding:"required"`
	PredictionType string         `json:"prediction_type" binding:"required"`
	PredictedValue string         `json:"predicted_value"`
	PredictedScore float64        `json:"predicted_score"`
	Confidence     float64        `json:"confidence"`
	ModelVersion   string         `json:"model_version" binding:"required"`
	StudentContext map[string]any `json:"student_context"`
	PredictedAt    time.Time      `json:"predicted_at"`
}

func (h *FeedbackHandler) Record(c *gin.Context) {
	var req recordPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.calibrator.Record(c.Request.Context(), services.RecordPredictionInput{
		StudentID:      req.StudentID,
		PredictionType: req.PredictionType,
		PredictedValue: req.PredictedValue,
		PredictedScore: req.PredictedScore,
		Confidence:     req.Confidence,
		ModelVersion:   req.ModelVersion,
		StudentContext: req.StudentContext,
		PredictedAt:    req.PredictedAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": row})
}

type resolvePredictionRequest struct {
	ActualValue string  `json:"actual_value"`
	ActualScore float64 `json:"actual_score"`
}

func (h *FeedbackHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
		return
	}
	var req resolvePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.calibrator.Resolve(c.Request.Context(), id, types.Observation{
		Value: req.ActualValue,
		Score: req.ActualScore,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": row})
}

func (h *FeedbackHandler) Pending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.calibrator.Pending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": rows})
}

func (h *FeedbackHandler) PendingByStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	rows, err := h.calibrator.PendingByStudent(c.Request.Context(), studentID, c.Query("prediction_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": rows})
}

func (h *FeedbackHandler) ReviewQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.calibrator.ReviewQueue(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review_queue": rows})
}

func (h *FeedbackHandler) Stats(c *gin.Context) {
	rows, err := h.calibrator.Stats(c.Request.Context(), c.Query("prediction_type"), c.Query("model_version"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": rows})
}

type validateCoherenceRequest struct {
	Predictions map[string]services.ModelOutput `json:"predictions" binding:"required"`
}

// ValidateCoherence cross-checks a set of predictions for one student without
// persisting anything.
func (h *FeedbackHandler) ValidateCoherence(c *gin.Context) {
	var req validateCoherenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": services.ValidateCoherence(req.Predictions)})
}
