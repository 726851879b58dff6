package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-story-backend/internal/middleware"
	"video-story-backend/internal/models"
)

// currentUserID pulls the authenticated user's id out of the request context.
// A false return has already written the error response.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}

	return userID, true
}

// writeError maps service errors to HTTP responses. Unknown ids are 404,
// caller mistakes are 400, state conflicts are 409, upstream service failures
// are 502, everything else is 500.
func writeError(c *gin.Context, err error) {
	var notReady *models.NotReadyError
	var invalidTransition *models.InvalidTransitionError
	var external *models.ExternalServiceError

	switch {
	case errors.Is(err, models.ErrStoryNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "story not found"})
	case errors.Is(err, models.ErrSegmentNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "segment not found"})
	case errors.Is(err, models.ErrOperationNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "operation not found"})
	case errors.Is(err, models.ErrNoPriorSegment):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no prior segment",
			Message: "use_previous_frame requires a completed earlier segment",
		})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation failed", Message: err.Error()})
	case errors.As(err, &notReady):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "story not ready", Message: err.Error()})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "invalid state transition", Message: err.Error()})
	case errors.As(err, &external):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "upstream service error", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}
