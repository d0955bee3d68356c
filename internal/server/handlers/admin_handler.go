package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/menus"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/roster"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/settlement"
)

// adminIDKey carries the authenticated admin through the request
// context after AdminGuard passes.
const adminIDKey = "admin_id"

// AdminGuard authorizes admin routes via the X-Admin-ID header: the
// ID must belong to a stored user with the admin flag set.
func AdminGuard(users mongodb.UserStore, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-Admin-ID"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing admin id"})
			return
		}
		user, err := users.GetUser(c.Request.Context(), id)
		if err != nil || !user.IsAdmin {
			logger.Warn("admin access denied", zap.Int64("telegram_id", id))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin rights required"})
			return
		}
		c.Set(adminIDKey, id)
		c.Next()
	}
}

// AdminHandler exposes administrative operations: roster management,
// menu edits, card details, date cancellation and manual job triggers.
type AdminHandler struct {
	rosterSvc     *roster.Service
	menuSvc       *menus.Service
	settlementSvc *settlement.Service
	logger        *zap.Logger
}

func NewAdminHandler(rosterSvc *roster.Service, menuSvc *menus.Service, settlementSvc *settlement.Service, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		rosterSvc:     rosterSvc,
		menuSvc:       menuSvc,
		settlementSvc: settlementSvc,
		logger:        logger,
	}
}

func adminID(c *gin.Context) int64 {
	return c.GetInt64(adminIDKey)
}

// ListUsers returns the roster with live ledger figures.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.rosterSvc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Promote grants admin rights to a user.
func (h *AdminHandler) Promote(c *gin.Context) {
	h.setAdmin(c, true)
}

// Demote revokes admin rights from a user.
func (h *AdminHandler) Demote(c *gin.Context) {
	h.setAdmin(c, false)
}

func (h *AdminHandler) setAdmin(c *gin.Context, grant bool) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var err error
	if grant {
		err = h.rosterSvc.Promote(c.Request.Context(), adminID(c), req.TelegramID)
	} else {
		err = h.rosterSvc.Demote(c.Request.Context(), adminID(c), req.TelegramID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"telegram_id": req.TelegramID, "is_admin": grant})
}

// DeleteUser removes a participant and purges their pending choices.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.rosterSvc.Delete(c.Request.Context(), adminID(c), req.TelegramID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CancelDate voids lunch for a whole date with refunds.
func (h *AdminHandler) CancelDate(c *gin.Context) {
	var req struct {
		Date   string `json:"date" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.settlementSvc.CancelDate(c.Request.Context(), adminID(c), req.Date, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Report returns the aggregate settlement report for a date.
func (h *AdminHandler) Report(c *gin.Context) {
	report, err := h.settlementSvc.Report(c.Request.Context(), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RunSettlement triggers the cutoff settlement pass manually.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	result, err := h.settlementSvc.RunSettlement(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckDebts triggers the debt notice pass manually.
func (h *AdminHandler) CheckDebts(c *gin.Context) {
	result, err := h.settlementSvc.CheckDebts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Broadcast delivers a message to every participant.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.rosterSvc.Broadcast(c.Request.Context(), adminID(c), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type menuItemRequest struct {
	Menu string `json:"menu" binding:"required"`
	Item string `json:"item" binding:"required"`
}

// AddMenuItem appends a dish to one of the rotating menus.
func (h *AdminHandler) AddMenuItem(c *gin.Context) {
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.menuSvc.AddItem(c.Request.Context(), req.Menu, req.Item); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

// RemoveMenuItem deletes a dish from one of the rotating menus.
func (h *AdminHandler) RemoveMenuItem(c *gin.Context) {
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.menuSvc.RemoveItem(c.Request.Context(), req.Menu, req.Item); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// SetCardNumber stores the shared top-up card number.
func (h *AdminHandler) SetCardNumber(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.rosterSvc.SetCardNumber(c.Request.Context(), req.Number); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// SetCardOwner stores the shared top-up card owner name.
func (h *AdminHandler) SetCardOwner(c *gin.Context) {
	var req struct {
		Owner string `json:"owner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.rosterSvc.SetCardOwner(c.Request.Context(), req.Owner); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// Kassa returns the communal fund balance from the ledger.
func (h *AdminHandler) Kassa(c *gin.Context) {
	amount, err := h.rosterSvc.Kassa(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kassa": amount})
}
