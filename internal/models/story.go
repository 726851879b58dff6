package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Story struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Title          string
	Description    string
	Status         string
	FinalVideoPath sql.NullString
	FinalVideoURL  sql.NullString
	StitchedAt     sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StorySummary is the list-view projection of a story: segment counts and the
// latest completed segment's video URL for card previews.
type StorySummary struct {
	Story
	SegmentCount      int
	LastSegmentStatus string
	PreviewVideoURL   string
}

type GenerationOperation struct {
	ID            uuid.UUID
	SegmentID     uuid.UUID
	OperationName string
	Model         string
	Status        string
	SubmittedAt   time.Time
	LastPolledAt  sql.NullTime
}
