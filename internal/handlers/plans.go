package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"video-story-backend/internal/models"
	"video-story-backend/internal/services"
)

type PlansHandler struct {
	service *services.StoryService
}

func NewPlansHandler(service *services.StoryService) *PlansHandler {
	return &PlansHandler{service: service}
}

// ExpandStory godoc
// @Summary     Plan a story
// @Description Expands a one-line story idea into an ordered list of scene prompts
// @Tags        plans
// @Accept      json
// @Produce     json
// @Param       request body models.ExpandStoryRequest true "Story idea"
// @Success     200 {object} gemini.StoryPlan
// @Router      /api/v1/story-plans [post]
func (h *PlansHandler) ExpandStory(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var req models.ExpandStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	plan, err := h.service.ExpandStory(c.Request.Context(), req.Prompt, req.TargetDurationSeconds)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
