package models

type CreateStoryRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
}

type AddSegmentRequest struct {
	Prompt string `json:"prompt"`
	// UsePreviousFrame seeds generation with the continuity frame of the most
	// recently completed segment. Mutually exclusive with an uploaded seed image.
	UsePreviousFrame bool `json:"use_previous_frame"`
}

type ExpandStoryRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	// TargetDurationSeconds sets the total runtime the plan should fill.
	// Scenes are capped at the per-segment generation limit.
	TargetDurationSeconds int `json:"target_duration_seconds,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
