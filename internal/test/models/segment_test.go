package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"video-story-backend/internal/models"
)

func TestIsTerminal(t *testing.T) {
	assert.True(t, models.IsTerminal(models.SegmentStatusCompleted))
	assert.True(t, models.IsTerminal(models.SegmentStatusFailed))
	assert.False(t, models.IsTerminal(models.SegmentStatusPending))
	assert.False(t, models.IsTerminal(models.SegmentStatusGenerating))
	assert.False(t, models.IsTerminal(models.SegmentStatusPublishing))
}

func TestCanTransition_ForwardPath(t *testing.T) {
	assert.True(t, models.CanTransition(models.SegmentStatusPending, models.SegmentStatusGenerating))
	assert.True(t, models.CanTransition(models.SegmentStatusGenerating, models.SegmentStatusPublishing))
	assert.True(t, models.CanTransition(models.SegmentStatusPublishing, models.SegmentStatusCompleted))
}

func TestCanTransition_SkippingStagesIsRejected(t *testing.T) {
	assert.False(t, models.CanTransition(models.SegmentStatusPending, models.SegmentStatusPublishing))
	assert.False(t, models.CanTransition(models.SegmentStatusPending, models.SegmentStatusCompleted))
	assert.False(t, models.CanTransition(models.SegmentStatusGenerating, models.SegmentStatusCompleted))
}

func TestCanTransition_AnyNonTerminalCanFail(t *testing.T) {
	for _, from := range []string{
		models.SegmentStatusPending,
		models.SegmentStatusGenerating,
		models.SegmentStatusPublishing,
	} {
		assert.True(t, models.CanTransition(from, models.SegmentStatusFailed), "from %s", from)
	}
}

func TestCanTransition_TerminalStatesAreImmutable(t *testing.T) {
	targets := []string{
		models.SegmentStatusPending,
		models.SegmentStatusGenerating,
		models.SegmentStatusPublishing,
		models.SegmentStatusCompleted,
		models.SegmentStatusFailed,
	}
	for _, from := range []string{models.SegmentStatusCompleted, models.SegmentStatusFailed} {
		for _, to := range targets {
			assert.False(t, models.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_BackwardsIsRejected(t *testing.T) {
	assert.False(t, models.CanTransition(models.SegmentStatusGenerating, models.SegmentStatusPending))
	assert.False(t, models.CanTransition(models.SegmentStatusPublishing, models.SegmentStatusGenerating))
}
