package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

type RealtimeClient struct {
	client *supabase.Client
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	// Note: Supabase Go client doesn't have direct Realtime publish
	// We'll use database updates which trigger Realtime automatically
	// For explicit events, we can use the Realtime REST API if needed
	return nil
}

func (r *RealtimeClient) PublishStoryEvent(storyID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("story:%s", storyID.String())
	return r.PublishEvent(channel, event, payload)
}

func (r *RealtimeClient) PublishUserEvent(userID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("user:%s", userID.String())
	return r.PublishEvent(channel, event, payload)
}

// Event payloads
func GenerationStartedPayload(segmentID, operationID uuid.UUID, sequenceNumber int) map[string]interface{} {
	return map[string]interface{}{
		"segment_id":      segmentID.String(),
		"operation_id":    operationID.String(),
		"sequence_number": sequenceNumber,
		"status":          "generating",
	}
}

func SegmentCompletedPayload(segmentID uuid.UUID, sequenceNumber int, videoURL string) map[string]interface{} {
	return map[string]interface{}{
		"segment_id":      segmentID.String(),
		"sequence_number": sequenceNumber,
		"status":          "completed",
		"video_url":       videoURL,
	}
}

func SegmentFailedPayload(segmentID uuid.UUID, sequenceNumber int, reason, errorMsg string) map[string]interface{} {
	return map[string]interface{}{
		"segment_id":      segmentID.String(),
		"sequence_number": sequenceNumber,
		"status":          "failed",
		"failure_reason":  reason,
		"error":           errorMsg,
	}
}

func StitchCompletedPayload(storyID uuid.UUID, videoURL string, segmentCount int) map[string]interface{} {
	return map[string]interface{}{
		"story_id":      storyID.String(),
		"status":        "stitched",
		"video_url":     videoURL,
		"segment_count": segmentCount,
	}
}
