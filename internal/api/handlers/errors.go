package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

// writeServiceError maps service errors onto status codes. message is the
// client-facing summary used for server errors.
func writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, planning.ErrEmptySeries),
		errors.Is(err, planning.ErrNonFiniteValue),
		errors.Is(err, planning.ErrUnknownMethod),
		errors.Is(err, planning.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid planning request", "details": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}
