package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type HintHandler struct {
	hints services.HintGenerator
}

func NewHintHandler(hints services.HintGenerator) *HintHandler {
	return &HintHandler{hints: hints}
}

func (h *HintHandler) ListPending(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	hints, err := h.hints.ListPending(c.Request.Context(), studentID, 5)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hints": hints})
}

type requestHintRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
	Topic     string    `json:"topic"`
}

func (h *HintHandler) Request(c *gin.Context) {
	var req requestHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hint, err := h.hints.Request(c.Request.Context(), req.AttemptID, req.Topic)
	if err != nil {
		respondError(c, err)
		return
	}
	if hint == nil {
		c.JSON(http.StatusOK, gin.H{"hint": nil, "reason": "duplicate content"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"hint": hint})
}

func (h *HintHandler) MarkShown(c *gin.Context) {
	hintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hint id"})
		return
	}
	hint, err := h.hints.MarkShown(c.Request.Context(), hintID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

type hintInteractionRequest struct {
	Estado    string `json:"estado" binding:"required"`
	Effective *bool  `json:"effective"`
}

func (h *HintHandler) RecordInteraction(c *gin.Context) {
	hintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hint id"})
		return
	}
	var req hintInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hint, err := h.hints.RecordInteraction(c.Request.Context(), hintID, req.Estado, req.Effective)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

type hintOversightRequest struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	Visible   *bool     `json:"visible" binding:"required"`
}

func (h *HintHandler) Oversight(c *gin.Context) {
	hintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hint id"})
		return
	}
	var req hintOversightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hint, err := h.hints.Oversight(c.Request.Context(), hintID, req.TeacherID, *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}
