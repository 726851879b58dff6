package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video-story-backend/internal/models"
	"video-story-backend/internal/services"
)

type StoriesHandler struct {
	service *services.StoryService
}

func NewStoriesHandler(service *services.StoryService) *StoriesHandler {
	return &StoriesHandler{service: service}
}

// CreateStory godoc
// @Summary     Create a story
// @Description Creates an empty story to which segments can be added
// @Tags        stories
// @Accept      json
// @Produce     json
// @Param       request body models.CreateStoryRequest true "Story details"
// @Success     200 {object} models.StoryResponse
// @Router      /api/v1/stories [post]
func (h *StoriesHandler) CreateStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	story, err := h.service.CreateStory(userID, req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, storyResponse(story, nil))
}

// ListStories godoc
// @Summary     List stories
// @Description Lists the caller's stories with segment counts
// @Tags        stories
// @Produce     json
// @Success     200 {object} models.StoryListResponse
// @Router      /api/v1/stories [get]
func (h *StoriesHandler) ListStories(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summaries, err := h.service.ListStories(userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response := models.StoryListResponse{Stories: make([]models.StorySummaryResponse, len(summaries))}
	for i, s := range summaries {
		response.Stories[i] = models.StorySummaryResponse{
			ID:                s.ID.String(),
			Title:             s.Title,
			Status:            s.Status,
			SegmentCount:      s.SegmentCount,
			LastSegmentStatus: s.LastSegmentStatus,
			PreviewVideoURL:   s.PreviewVideoURL,
			CreatedAt:         s.CreatedAt,
			UpdatedAt:         s.UpdatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetStory godoc
// @Summary     Get a story
// @Description Returns a story with all of its segments in sequence order
// @Tags        stories
// @Produce     json
// @Param       story_id path string true "Story ID"
// @Success     200 {object} models.StoryResponse
// @Router      /api/v1/stories/{story_id} [get]
func (h *StoriesHandler) GetStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid story id"})
		return
	}

	story, segments, err := h.service.GetStory(storyID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, storyResponse(story, segments))
}

// DeleteStory godoc
// @Summary     Delete a story
// @Description Deletes a story, its segments, and all stored media
// @Tags        stories
// @Produce     json
// @Param       story_id path string true "Story ID"
// @Success     200 {object} models.DeleteResponse
// @Router      /api/v1/stories/{story_id} [delete]
func (h *StoriesHandler) DeleteStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid story id"})
		return
	}

	if err := h.service.DeleteStory(storyID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteResponse{Deleted: true})
}

// GetStoryStats godoc
// @Summary     Story statistics
// @Description Returns segment counts by status and the estimated runtime
// @Tags        stories
// @Produce     json
// @Param       story_id path string true "Story ID"
// @Success     200 {object} models.StoryStatsResponse
// @Router      /api/v1/stories/{story_id}/stats [get]
func (h *StoriesHandler) GetStoryStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid story id"})
		return
	}

	stats, err := h.service.StoryStats(storyID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func storyResponse(story *models.Story, segments []models.Segment) models.StoryResponse {
	response := models.StoryResponse{
		ID:           story.ID.String(),
		Title:        story.Title,
		Description:  story.Description,
		Status:       story.Status,
		SegmentCount: len(segments),
		CreatedAt:    story.CreatedAt,
		UpdatedAt:    story.UpdatedAt,
	}
	if story.FinalVideoURL.Valid {
		response.FinalVideoURL = story.FinalVideoURL.String
	}
	if story.StitchedAt.Valid {
		stitchedAt := story.StitchedAt.Time
		response.StitchedAt = &stitchedAt
	}

	for _, seg := range segments {
		response.Segments = append(response.Segments, segmentResponse(&seg))
	}

	return response
}

func segmentResponse(seg *models.Segment) models.SegmentResponse {
	response := models.SegmentResponse{
		ID:                seg.ID.String(),
		SequenceNumber:    seg.SequenceNumber,
		OriginalPrompt:    seg.OriginalPrompt,
		Status:            seg.Status,
		UsesPreviousFrame: seg.UsesPreviousFrame,
		CreatedAt:         seg.CreatedAt,
	}
	if seg.EnhancedPrompt.Valid {
		response.EnhancedPrompt = seg.EnhancedPrompt.String
	}
	if seg.OperationID.Valid {
		response.OperationID = seg.OperationID.UUID.String()
	}
	if seg.VideoURL.Valid {
		response.VideoURL = seg.VideoURL.String
	}
	if seg.FailureReason.Valid {
		response.FailureReason = seg.FailureReason.String
	}
	if seg.CompletedAt.Valid {
		completedAt := seg.CompletedAt.Time
		response.CompletedAt = &completedAt
	}

	return response
}
