package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Segment statuses. A segment is created in pending, moves to generating once
// an operation is submitted, may pass through publishing while output is being
// persisted, and terminates in completed or failed. Terminal states are
// immutable; retrying means a new segment, never a rewrite of history.
const (
	SegmentStatusPending    = "pending"
	SegmentStatusGenerating = "generating"
	SegmentStatusPublishing = "publishing"
	SegmentStatusCompleted  = "completed"
	SegmentStatusFailed     = "failed"
)

// Failure reasons recorded on a failed segment.
const (
	ReasonSafetyFiltered   = "safety_filtered"
	ReasonQuotaExceeded    = "quota_exceeded"
	ReasonMalformedRequest = "malformed_request"
	ReasonGenerationFailed = "generation_failed"
	ReasonExtractionFailed = "extraction_failed"
	ReasonTimeout          = "timeout"
	ReasonAbandoned        = "abandoned"
)

type Segment struct {
	ID                  uuid.UUID
	StoryID             uuid.UUID
	SequenceNumber      int
	OriginalPrompt      string
	EnhancedPrompt      sql.NullString
	Status              string
	OperationID         uuid.NullUUID
	VideoPath           sql.NullString
	VideoURL            sql.NullString
	ContinuityFramePath sql.NullString
	SeedImagePath       sql.NullString
	UsesPreviousFrame   bool
	FailureReason       sql.NullString
	ErrorMessage        sql.NullString
	CreatedAt           time.Time
	CompletedAt         sql.NullTime
	UpdatedAt           time.Time
}

// IsTerminal reports whether no further status transitions are permitted.
func IsTerminal(status string) bool {
	return status == SegmentStatusCompleted || status == SegmentStatusFailed
}

var forwardTransitions = map[string]string{
	SegmentStatusPending:    SegmentStatusGenerating,
	SegmentStatusGenerating: SegmentStatusPublishing,
	SegmentStatusPublishing: SegmentStatusCompleted,
}

// CanTransition reports whether a segment may move from one status to another.
// Legal paths are pending→generating→publishing→completed, or any non-terminal
// state →failed.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == SegmentStatusFailed {
		return true
	}
	return forwardTransitions[from] == to
}
