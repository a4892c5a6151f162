package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type AlertHandler struct {
	orchestrator services.AlertOrchestrator
}

func NewAlertHandler(orchestrator services.AlertOrchestrator) *AlertHandler {
	return &AlertHandler{orchestrator: orchestrator}
}

func (h *AlertHandler) ListPending(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	alerts, err := h.orchestrator.ListPending(c.Request.Context(), studentID, 20)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *AlertHandler) MarkNotified(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	alert, err := h.orchestrator.MarkNotified(c.Request.Context(), alertID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

type teacherActionRequest struct {
	TeacherID   uuid.UUID `json:"teacher_id" binding:"required"`
	Action      string    `json:"action"`
	Disposition string    `json:"disposition" binding:"required"`
}

func (h *AlertHandler) TeacherAction(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	var req teacherActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	alert, err := h.orchestrator.TeacherAction(c.Request.Context(), alertID, req.TeacherID, req.Action, req.Disposition)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
