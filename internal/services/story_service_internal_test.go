package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-story-backend/internal/config"
	"video-story-backend/internal/models"
)

// stubStore embeds the interface so only the methods DeleteStory touches need
// real bodies; anything else panics if reached.
type stubStore struct {
	Store
	story *models.Story
}

func (s *stubStore) GetStory(storyID, userID uuid.UUID) (*models.Story, error) {
	return s.story, nil
}

func (s *stubStore) ListSegments(storyID uuid.UUID) ([]models.Segment, error) {
	return nil, nil
}

func (s *stubStore) DeleteStory(storyID, userID uuid.UUID) error {
	return nil
}

type stubBlobs struct {
	BlobStore
}

func (stubBlobs) DeleteStoryFiles(storyID uuid.UUID) error {
	return nil
}

func TestDeleteStoryReleasesLockEntry(t *testing.T) {
	storyID := uuid.New()
	userID := uuid.New()
	store := &stubStore{story: &models.Story{ID: storyID, UserID: userID}}
	cfg := &config.Config{OperationPollInterval: time.Hour}

	svc := NewStoryService(store, stubBlobs{}, nil, nil, nil, nil, cfg)
	t.Cleanup(svc.StopPolling)

	unlock := svc.lockStory(storyID)
	unlock()

	svc.mu.Lock()
	_, held := svc.storyLocks[storyID]
	svc.mu.Unlock()
	require.True(t, held)

	require.NoError(t, svc.DeleteStory(storyID, userID))

	svc.mu.Lock()
	_, held = svc.storyLocks[storyID]
	svc.mu.Unlock()
	assert.False(t, held)
}
