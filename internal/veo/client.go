package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"video-story-backend/internal/models"
)

// Client talks to the Veo long-running video generation API. Submissions return
// an operation name immediately; the caller polls until the operation is done.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GenerationRequest describes a single segment generation. At most one seed may
// be set: ImageBytes (image-to-video) or VideoBytes (video extension).
type GenerationRequest struct {
	Model           string
	Prompt          string
	ImageBytes      []byte
	ImageMIMEType   string
	VideoBytes      []byte
	VideoMIMEType   string
	DurationSeconds int
	AspectRatio     string
	Resolution      string
}

// GeneratedVideo is one output of a completed operation. The service returns
// either inline bytes or a download URI depending on output size.
type GeneratedVideo struct {
	URI   string
	Bytes []byte
}

// OperationStatus is the observed state of a remote operation. It never maps
// onto segment state here; the orchestrator owns that.
type OperationStatus struct {
	Done           bool
	Failed         bool
	FailureCode    string
	FailureMessage string
	Videos         []GeneratedVideo
}

// Failure codes reported by PollOperation, normalized from the service's own
// error responses.
const (
	FailureSafetyFiltered   = "safety_filtered"
	FailureQuotaExceeded    = "quota_exceeded"
	FailureMalformedRequest = "malformed_request"
	FailureGenerationFailed = "generation_failed"
)

type inlineMedia struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MIMEType           string `json:"mimeType,omitempty"`
	URI                string `json:"uri,omitempty"`
}

type submitRequest struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type submitInstance struct {
	Prompt string       `json:"prompt"`
	Image  *inlineMedia `json:"image,omitempty"`
	Video  *inlineMedia `json:"video,omitempty"`
}

type submitParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	DurationSeconds  int    `json:"durationSeconds,omitempty"`
	Resolution       string `json:"resolution,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
	GenerateAudio    bool   `json:"generateAudio"`
}

type submitResponse struct {
	Name string `json:"name"`
}

type operationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse *struct {
			GeneratedSamples []struct {
				Video inlineMedia `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse,omitempty"`
		Videos []inlineMedia `json:"videos,omitempty"`
	} `json:"response,omitempty"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SubmitGeneration starts a generation and returns the remote operation name.
// It does not block for completion; generation typically takes minutes.
func (c *Client) SubmitGeneration(ctx context.Context, genReq GenerationRequest) (string, error) {
	if genReq.Prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	if len(genReq.ImageBytes) > 0 && len(genReq.VideoBytes) > 0 {
		return "", fmt.Errorf("at most one of seed image and seed video may be set")
	}

	instance := submitInstance{Prompt: genReq.Prompt}
	if len(genReq.ImageBytes) > 0 {
		mime := genReq.ImageMIMEType
		if mime == "" {
			mime = "image/png"
		}
		instance.Image = &inlineMedia{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(genReq.ImageBytes),
			MIMEType:           mime,
		}
	}
	if len(genReq.VideoBytes) > 0 {
		mime := genReq.VideoMIMEType
		if mime == "" {
			mime = "video/mp4"
		}
		instance.Video = &inlineMedia{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(genReq.VideoBytes),
			MIMEType:           mime,
		}
	}

	body := submitRequest{
		Instances: []submitInstance{instance},
		Parameters: submitParameters{
			AspectRatio:      genReq.AspectRatio,
			DurationSeconds:  genReq.DurationSeconds,
			Resolution:       genReq.Resolution,
			PersonGeneration: "allow_adult",
			GenerateAudio:    true,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/models/" + genReq.Model + ":predictLongRunning"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &models.ExternalServiceError{
			Service: "veo",
			Code:    classifyFailure("", string(respBody)),
			Message: fmt.Sprintf("submit returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var result submitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	if result.Name == "" {
		return "", fmt.Errorf("operation name is empty in response, body: %s", string(respBody))
	}

	return result.Name, nil
}

// PollOperation queries the remote operation state. Idempotent and safe to call
// repeatedly; a pending operation simply reports Done=false.
func (c *Client) PollOperation(ctx context.Context, operationName string) (*OperationStatus, error) {
	url := strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(operationName, "/")
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &models.ExternalServiceError{
			Service: "veo",
			Code:    classifyFailure("", string(respBody)),
			Message: fmt.Sprintf("poll returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var result operationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	status := &OperationStatus{Done: result.Done}

	if result.Error != nil {
		status.Failed = true
		status.FailureMessage = result.Error.Message
		status.FailureCode = classifyFailure(result.Error.Status, result.Error.Message)
		return status, nil
	}

	if !result.Done || result.Response == nil {
		return status, nil
	}

	var media []inlineMedia
	if result.Response.GenerateVideoResponse != nil {
		for _, sample := range result.Response.GenerateVideoResponse.GeneratedSamples {
			media = append(media, sample.Video)
		}
	}
	media = append(media, result.Response.Videos...)

	for _, m := range media {
		video := GeneratedVideo{URI: m.URI}
		if m.BytesBase64Encoded != "" {
			decoded, err := base64.StdEncoding.DecodeString(m.BytesBase64Encoded)
			if err != nil {
				return nil, fmt.Errorf("failed to decode video bytes: %w", err)
			}
			video.Bytes = decoded
		}
		if video.URI != "" || len(video.Bytes) > 0 {
			status.Videos = append(status.Videos, video)
		}
	}

	return status, nil
}

// DownloadVideo fetches a generated video by its download URI. Downloads are
// idempotent GETs, so transient failures are retried with backoff.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	var data []byte
	err := c.RetryWithBackoff(func() error {
		var attemptErr error
		data, attemptErr = c.downloadOnce(ctx, uri)
		return attemptErr
	}, 3)
	return data, err
}

func (c *Client) downloadOnce(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download video: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// RetryWithBackoff executes a function with backoff retry logic for transient
// service failures.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// classifyFailure normalizes service error responses into the reason codes the
// rest of the system records. Safety filtering and quota exhaustion are
// terminal; they are never retried automatically.
func classifyFailure(statusCode, message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "safety") || strings.Contains(lower, "responsible ai") || strings.Contains(lower, "blocked"):
		return FailureSafetyFiltered
	case statusCode == "RESOURCE_EXHAUSTED" || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit"):
		return FailureQuotaExceeded
	case statusCode == "INVALID_ARGUMENT" || strings.Contains(lower, "invalid argument") || strings.Contains(lower, "malformed"):
		return FailureMalformedRequest
	default:
		return FailureGenerationFailed
	}
}
