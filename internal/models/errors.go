package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input; rejected synchronously, never retried.
	ErrValidation = errors.New("validation error")

	// ErrNoPriorSegment is returned when use_previous_frame is requested on a
	// story with no completed segment to draw a continuity frame from.
	ErrNoPriorSegment = errors.New("no prior segment available for continuity")

	// ErrExtractionFailed is returned by the continuity extractor when the last
	// frame cannot be derived; never substituted with a placeholder image.
	ErrExtractionFailed = errors.New("continuity frame extraction failed")

	// ErrOperationNotFound is returned when polling an operation id the tracker
	// has never recorded. Distinct from pending.
	ErrOperationNotFound = errors.New("operation not found")

	ErrStoryNotFound   = errors.New("story not found")
	ErrSegmentNotFound = errors.New("segment not found")
)

// ValidationError wraps ErrValidation with a caller-facing detail.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ExternalServiceError carries a failure from the generation or expansion
// service with the service's own reason code preserved.
type ExternalServiceError struct {
	Service string
	Code    string
	Message string
}

func (e *ExternalServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Service, e.Message)
}

// InvalidTransitionError signals an attempt to move a segment along an illegal
// status path, including any mutation of a terminal segment.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid segment transition %s -> %s", e.From, e.To)
}

// NotReadyError is returned when stitching is attempted while a segment at or
// before the point of assembly is not completed. Sequence names the first
// blocking segment.
type NotReadyError struct {
	Sequence int
	Status   string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("story not ready to stitch: segment %d is %s", e.Sequence, e.Status)
}
