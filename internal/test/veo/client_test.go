package veo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-story-backend/internal/models"
	"video-story-backend/internal/veo"
)

func TestSubmitGeneration(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/models/veo-3.0-fast-generate-001:predictLongRunning", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]string{
			"name": "models/veo-3.0-fast-generate-001/operations/op-123",
		})
	}))
	defer server.Close()

	client := veo.NewClient(server.URL, "test-key")
	name, err := client.SubmitGeneration(context.Background(), veo.GenerationRequest{
		Model:           "veo-3.0-fast-generate-001",
		Prompt:          "a fox runs through snow",
		DurationSeconds: 8,
		AspectRatio:     "16:9",
		Resolution:      "720p",
	})

	require.NoError(t, err)
	assert.Equal(t, "models/veo-3.0-fast-generate-001/operations/op-123", name)

	instances := captured["instances"].([]interface{})
	require.Len(t, instances, 1)
	assert.Equal(t, "a fox runs through snow", instances[0].(map[string]interface{})["prompt"])

	params := captured["parameters"].(map[string]interface{})
	assert.Equal(t, float64(8), params["durationSeconds"])
	assert.Equal(t, "16:9", params["aspectRatio"])
}

func TestSubmitGeneration_RequiresPrompt(t *testing.T) {
	client := veo.NewClient("http://localhost", "test-key")
	_, err := client.SubmitGeneration(context.Background(), veo.GenerationRequest{Model: "m"})
	assert.Error(t, err)
}

func TestSubmitGeneration_RejectsTwoSeeds(t *testing.T) {
	client := veo.NewClient("http://localhost", "test-key")
	_, err := client.SubmitGeneration(context.Background(), veo.GenerationRequest{
		Model:      "m",
		Prompt:     "p",
		ImageBytes: []byte{1},
		VideoBytes: []byte{2},
	})
	assert.Error(t, err)
}

func TestSubmitGeneration_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "quota exceeded for project"})
	}))
	defer server.Close()

	client := veo.NewClient(server.URL, "test-key")
	_, err := client.SubmitGeneration(context.Background(), veo.GenerationRequest{
		Model:  "veo-3.0-fast-generate-001",
		Prompt: "a fox runs through snow",
	})

	var external *models.ExternalServiceError
	require.ErrorAs(t, err, &external)
	assert.Equal(t, "veo", external.Service)
	assert.Equal(t, veo.FailureQuotaExceeded, external.Code)
}

func TestPollOperation_Pending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name": "operations/op-123",
			"done": false,
		})
	}))
	defer server.Close()

	client := veo.NewClient(server.URL, "test-key")
	status, err := client.PollOperation(context.Background(), "operations/op-123")

	require.NoError(t, err)
	assert.False(t, status.Done)
	assert.False(t, status.Failed)
	assert.Empty(t, status.Videos)
}

func TestPollOperation_Completed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name": "operations/op-123",
			"done": true,
			"response": map[string]interface{}{
				"generateVideoResponse": map[string]interface{}{
					"generatedSamples": []map[string]interface{}{
						{"video": map[string]interface{}{"uri": "https://example.com/video.mp4"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := veo.NewClient(server.URL, "test-key")
	status, err := client.PollOperation(context.Background(), "operations/op-123")

	require.NoError(t, err)
	assert.True(t, status.Done)
	require.Len(t, status.Videos, 1)
	assert.Equal(t, "https://example.com/video.mp4", status.Videos[0].URI)
}

func TestPollOperation_FailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		message  string
		expected string
	}{
		{"safety", "FAILED_PRECONDITION", "blocked by responsible AI practices", veo.FailureSafetyFiltered},
		{"quota", "RESOURCE_EXHAUSTED", "quota exceeded for requests", veo.FailureQuotaExceeded},
		{"malformed", "INVALID_ARGUMENT", "invalid argument: durationSeconds", veo.FailureMalformedRequest},
		{"generic", "INTERNAL", "something went wrong", veo.FailureGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"name": "operations/op-123",
					"done": true,
					"error": map[string]interface{}{
						"code":    13,
						"status":  tt.status,
						"message": tt.message,
					},
				})
			}))
			defer server.Close()

			client := veo.NewClient(server.URL, "test-key")
			status, err := client.PollOperation(context.Background(), "operations/op-123")

			require.NoError(t, err)
			assert.True(t, status.Failed)
			assert.Equal(t, tt.expected, status.FailureCode)
			assert.Equal(t, tt.message, status.FailureMessage)
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	client := veo.NewClient("http://localhost", "test-key")

	attempts := 0
	err := client.RetryWithBackoff(func() error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	}, 3)

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	client := veo.NewClient("http://localhost", "test-key")

	attempts := 0
	err := client.RetryWithBackoff(func() error {
		attempts++
		return assert.AnError
	}, 2)

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}
