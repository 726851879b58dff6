package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-story-backend/internal/models"
	"video-story-backend/internal/services"
)

type StitchHandler struct {
	service *services.StoryService
}

func NewStitchHandler(service *services.StoryService) *StitchHandler {
	return &StitchHandler{service: service}
}

// StitchStory godoc
// @Summary     Stitch a story
// @Description Joins every completed segment into one final video; fails if any segment is not completed
// @Tags        stories
// @Produce     json
// @Param       story_id path string true "Story ID"
// @Success     200 {object} models.StitchResponse
// @Router      /api/v1/stories/{story_id}/stitch [post]
func (h *StitchHandler) StitchStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid story id"})
		return
	}

	story, segmentCount, err := h.service.StitchStory(c.Request.Context(), storyID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response := models.StitchResponse{
		StoryID:       story.ID.String(),
		Status:        story.Status,
		TotalSegments: segmentCount,
	}
	if story.FinalVideoURL.Valid {
		response.FinalVideoURL = story.FinalVideoURL.String
	}

	c.JSON(http.StatusOK, response)
}
