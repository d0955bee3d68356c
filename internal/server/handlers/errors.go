package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// writeError maps domain sentinels onto HTTP statuses. Window
// violations are conflicts, not client mistakes: the request was well
// formed, the clock just ruled it out.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSurveyClosed),
		errors.Is(err, models.ErrSurveyNotOpen),
		errors.Is(err, models.ErrCancelWindowClosed),
		errors.Is(err, models.ErrNotAttending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLedgerUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
