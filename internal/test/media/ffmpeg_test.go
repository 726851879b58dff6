package media_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"video-story-backend/internal/media"
	"video-story-backend/internal/models"
)

func TestLastFrame_EmptyVideo(t *testing.T) {
	processor := media.NewProcessor("", "")

	_, err := processor.LastFrame(context.Background(), nil)

	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtractionFailed)
}

func TestJoinVideos_NoInputs(t *testing.T) {
	processor := media.NewProcessor("", "")

	_, err := processor.JoinVideos(context.Background(), nil)

	assert.Error(t, err)
}

func TestJoinVideos_EmptyInput(t *testing.T) {
	processor := media.NewProcessor("", "")

	_, err := processor.JoinVideos(context.Background(), [][]byte{[]byte("data"), {}})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "video 2")
}
