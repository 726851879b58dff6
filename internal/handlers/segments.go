package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-story-backend/internal/models"
	"video-story-backend/internal/services"
)

type SegmentsHandler struct {
	service *services.StoryService
}

func NewSegmentsHandler(service *services.StoryService) *SegmentsHandler {
	return &SegmentsHandler{service: service}
}

// AddSegment godoc
// @Summary     Add a segment
// @Description Appends a segment to the story and starts its video generation. Accepts JSON or multipart form data with an optional seed image.
// @Tags        segments
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
// @Param       story_id path string true "Story ID"
// @Param       request body models.AddSegmentRequest true "Segment prompt"
// @Success     202 {object} models.GenerateResponse
// @Router      /api/v1/stories/{story_id}/segments [post]
func (h *SegmentsHandler) AddSegment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid story id"})
		return
	}

	var req models.AddSegmentRequest
	var seedImage []byte
	var seedContentType string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req.Prompt = c.PostForm("prompt")
		req.UsePreviousFrame = c.PostForm("use_previous_frame") == "true"

		if fileHeader, err := c.FormFile("seed_image"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid seed image", Message: err.Error()})
				return
			}
			defer file.Close()

			seedImage, err = io.ReadAll(file)
			if err != nil {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid seed image", Message: err.Error()})
				return
			}
			seedContentType = fileHeader.Header.Get("Content-Type")
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "prompt is required"})
		return
	}

	segment, op, err := h.service.AddSegment(c.Request.Context(), userID, storyID, req, seedImage, seedContentType)
	if err != nil {
		writeError(c, err)
		return
	}

	response := models.GenerateResponse{
		SegmentID:      segment.ID.String(),
		OperationID:    op.ID.String(),
		SequenceNumber: segment.SequenceNumber,
		Status:         segment.Status,
	}
	if segment.EnhancedPrompt.Valid {
		response.EnhancedPrompt = segment.EnhancedPrompt.String
	}

	c.JSON(http.StatusAccepted, response)
}

// DeleteSegment godoc
// @Summary     Delete a segment
// @Description Removes a segment; remaining segments keep their sequence numbers
// @Tags        segments
// @Produce     json
// @Param       segment_id path string true "Segment ID"
// @Success     200 {object} models.DeleteResponse
// @Router      /api/v1/segments/{segment_id} [delete]
func (h *SegmentsHandler) DeleteSegment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	segmentID, err := uuid.Parse(c.Param("segment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid segment id"})
		return
	}

	if err := h.service.DeleteSegment(segmentID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteResponse{Deleted: true})
}
