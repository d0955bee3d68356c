package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/attendance"
)

// AttendanceHandler exposes the daily survey state machine over HTTP.
type AttendanceHandler struct {
	svc    *attendance.Service
	logger *zap.Logger
}

func NewAttendanceHandler(svc *attendance.Service, logger *zap.Logger) *AttendanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceHandler{svc: svc, logger: logger}
}

type userRequest struct {
	TelegramID int64 `json:"telegram_id" binding:"required"`
}

// RespondYes accepts today's lunch and returns the menu to pick from.
func (h *AttendanceHandler) RespondYes(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.svc.RespondYes(c.Request.Context(), req.TelegramID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RespondNo declines today's lunch, unwinding an earlier acceptance.
func (h *AttendanceHandler) RespondNo(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.RespondNo(c.Request.Context(), req.TelegramID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

// SelectFood records the dish choice and charges the daily price.
func (h *AttendanceHandler) SelectFood(c *gin.Context) {
	var req struct {
		TelegramID int64  `json:"telegram_id" binding:"required"`
		Food       string `json:"food" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.svc.SelectFood(c.Request.Context(), req.TelegramID, req.Food)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RequestCancel starts the cancellation flow for today.
func (h *AttendanceHandler) RequestCancel(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	prompt, err := h.svc.RequestCancel(c.Request.Context(), req.TelegramID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prompt)
}

// ConfirmCancel completes or abandons a pending cancellation.
func (h *AttendanceHandler) ConfirmCancel(c *gin.Context) {
	var req struct {
		TelegramID int64 `json:"telegram_id" binding:"required"`
		Confirmed  *bool `json:"confirmed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.svc.ConfirmCancel(c.Request.Context(), req.TelegramID, *req.Confirmed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
