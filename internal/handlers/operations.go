package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-story-backend/internal/models"
	"video-story-backend/internal/services"
)

type OperationsHandler struct {
	service *services.StoryService
}

func NewOperationsHandler(service *services.StoryService) *OperationsHandler {
	return &OperationsHandler{service: service}
}

// GetOperationStatus godoc
// @Summary     Poll a generation operation
// @Description Reports the operation's status and advances the segment when the remote generation has finished
// @Tags        operations
// @Produce     json
// @Param       operation_id path string true "Operation ID"
// @Success     200 {object} models.OperationStatusResponse
// @Router      /api/v1/operations/{operation_id} [get]
func (h *OperationsHandler) GetOperationStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	operationID, err := uuid.Parse(c.Param("operation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid operation id"})
		return
	}

	op, segment, err := h.service.PollOperation(c.Request.Context(), operationID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response := models.OperationStatusResponse{
		OperationID:   op.ID.String(),
		SegmentID:     segment.ID.String(),
		Status:        publicStatus(segment.Status),
		SegmentStatus: segment.Status,
	}
	if segment.VideoURL.Valid {
		response.VideoURL = segment.VideoURL.String
	}
	if segment.FailureReason.Valid {
		response.FailureReason = segment.FailureReason.String
	}
	if segment.ErrorMessage.Valid {
		response.ErrorMessage = segment.ErrorMessage.String
	}

	c.JSON(http.StatusOK, response)
}

// publicStatus collapses the segment lifecycle into the three states clients
// act on. Anything still in flight is pending.
func publicStatus(segmentStatus string) string {
	switch segmentStatus {
	case models.SegmentStatusCompleted:
		return "completed"
	case models.SegmentStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}
