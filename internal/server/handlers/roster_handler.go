package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/menus"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/roster"
)

// RosterHandler exposes user self-service: registration, profile,
// balance, history and the public menu and card reads.
type RosterHandler struct {
	rosterSvc *roster.Service
	menuSvc   *menus.Service
	logger    *zap.Logger
}

func NewRosterHandler(rosterSvc *roster.Service, menuSvc *menus.Service, logger *zap.Logger) *RosterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterHandler{rosterSvc: rosterSvc, menuSvc: menuSvc, logger: logger}
}

// Register creates a new participant.
func (h *RosterHandler) Register(c *gin.Context) {
	var req struct {
		TelegramID int64  `json:"telegram_id" binding:"required"`
		Name       string `json:"name" binding:"required"`
		Phone      string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.rosterSvc.Register(c.Request.Context(), req.TelegramID, req.Name, req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ChangeName updates a participant's display name.
func (h *RosterHandler) ChangeName(c *gin.Context) {
	var req struct {
		TelegramID int64  `json:"telegram_id" binding:"required"`
		Name       string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.rosterSvc.ChangeName(c.Request.Context(), req.TelegramID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Balance returns the ledger balance for a user.
func (h *RosterHandler) Balance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	info, err := h.rosterSvc.GetBalance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// History returns the user's recent transactions.
func (h *RosterHandler) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	txns, err := h.rosterSvc.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// Attendance returns a user's attended dates for one month.
func (h *RosterHandler) Attendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	month := c.Query("month")
	days, err := h.rosterSvc.AttendanceForMonth(c.Request.Context(), id, month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": month, "days": days})
}

// MenuToday returns the menu the rotation selects for today.
func (h *RosterHandler) MenuToday(c *gin.Context) {
	menu, err := h.menuSvc.ForToday(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// Menu returns one menu by slot name.
func (h *RosterHandler) Menu(c *gin.Context) {
	menu, err := h.menuSvc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// Card returns the shared top-up card details.
func (h *RosterHandler) Card(c *gin.Context) {
	card, err := h.rosterSvc.CardDetails(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}
