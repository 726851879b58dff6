package models

import "time"

type StoryResponse struct {
	ID            string            `json:"story_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Status        string            `json:"status"`
	SegmentCount  int               `json:"segment_count"`
	FinalVideoURL string            `json:"final_video_url,omitempty"`
	StitchedAt    *time.Time        `json:"stitched_at,omitempty"`
	Segments      []SegmentResponse `json:"segments,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type StoryListResponse struct {
	Stories []StorySummaryResponse `json:"stories"`
}

type StorySummaryResponse struct {
	ID                string    `json:"story_id"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	SegmentCount      int       `json:"segment_count"`
	LastSegmentStatus string    `json:"last_segment_status"`
	PreviewVideoURL   string    `json:"preview_video_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type SegmentResponse struct {
	ID                string     `json:"segment_id"`
	SequenceNumber    int        `json:"sequence_number"`
	OriginalPrompt    string     `json:"original_prompt"`
	EnhancedPrompt    string     `json:"enhanced_prompt,omitempty"`
	Status            string     `json:"status"`
	OperationID       string     `json:"operation_id,omitempty"`
	VideoURL          string     `json:"video_url,omitempty"`
	UsesPreviousFrame bool       `json:"uses_previous_frame"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type GenerateResponse struct {
	SegmentID      string `json:"segment_id"`
	OperationID    string `json:"operation_id"`
	SequenceNumber int    `json:"sequence_number"`
	Status         string `json:"status"`
	EnhancedPrompt string `json:"enhanced_prompt,omitempty"`
}

// OperationStatusResponse reports the three-valued generation status. No
// progress percentages are fabricated here; pending is pending.
type OperationStatusResponse struct {
	OperationID   string `json:"operation_id"`
	SegmentID     string `json:"segment_id"`
	Status        string `json:"status"`
	SegmentStatus string `json:"segment_status"`
	VideoURL      string `json:"video_url,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type StitchResponse struct {
	StoryID       string `json:"story_id"`
	Status        string `json:"status"`
	FinalVideoURL string `json:"final_video_url"`
	TotalSegments int    `json:"total_segments"`
}

type StoryStatsResponse struct {
	TotalSegments              int    `json:"total_segments"`
	CompletedSegments          int    `json:"completed_segments"`
	GeneratingSegments         int    `json:"generating_segments"`
	FailedSegments             int    `json:"failed_segments"`
	TotalDurationSeconds       int    `json:"total_duration_seconds"`
	EstimatedFinalDurationSecs int    `json:"estimated_final_duration_seconds"`
	IsStitchable               bool   `json:"is_stitchable"`
	HasFinalVideo              bool   `json:"has_final_video"`
	FinalVideoURL              string `json:"final_video_url,omitempty"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
