package supabase

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"video-story-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

// NewDatabaseClient wraps an already-open connection, typically the one the
// migrator verified at startup.
func NewDatabaseClient(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

const storyColumns = `id, user_id, title, description, status, final_video_path, final_video_url, stitched_at, created_at, updated_at`

func scanStory(row interface{ Scan(...interface{}) error }) (*models.Story, error) {
	var story models.Story
	err := row.Scan(
		&story.ID, &story.UserID, &story.Title, &story.Description, &story.Status,
		&story.FinalVideoPath, &story.FinalVideoURL, &story.StitchedAt,
		&story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (d *DatabaseClient) CreateStory(userID uuid.UUID, title, description string) (*models.Story, error) {
	story, err := scanStory(d.db.QueryRow(`
		INSERT INTO stories (user_id, title, description, status)
		VALUES ($1, $2, $3, 'draft')
		RETURNING `+storyColumns+`
	`, userID, title, description))
	if err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	return story, nil
}

func (d *DatabaseClient) GetStory(storyID, userID uuid.UUID) (*models.Story, error) {
	story, err := scanStory(d.db.QueryRow(`
		SELECT `+storyColumns+`
		FROM stories
		WHERE id = $1 AND user_id = $2
	`, storyID, userID))
	if err == sql.ErrNoRows {
		return nil, models.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	return story, nil
}

func (d *DatabaseClient) ListStories(userID uuid.UUID) ([]models.StorySummary, error) {
	rows, err := d.db.Query(`
		SELECT s.id, s.user_id, s.title, s.description, s.status,
		       s.final_video_path, s.final_video_url, s.stitched_at, s.created_at, s.updated_at,
		       COUNT(seg.id),
		       COALESCE((
		           SELECT status FROM segments
		           WHERE story_id = s.id
		           ORDER BY sequence_number DESC
		           LIMIT 1
		       ), ''),
		       COALESCE((
		           SELECT video_url FROM segments
		           WHERE story_id = s.id AND status = 'completed' AND video_url IS NOT NULL
		           ORDER BY sequence_number DESC
		           LIMIT 1
		       ), '')
		FROM stories s
		LEFT JOIN segments seg ON seg.story_id = s.id
		WHERE s.user_id = $1
		GROUP BY s.id
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.StorySummary
	for rows.Next() {
		var summary models.StorySummary
		err := rows.Scan(
			&summary.ID, &summary.UserID, &summary.Title, &summary.Description, &summary.Status,
			&summary.FinalVideoPath, &summary.FinalVideoURL, &summary.StitchedAt,
			&summary.CreatedAt, &summary.UpdatedAt,
			&summary.SegmentCount, &summary.LastSegmentStatus, &summary.PreviewVideoURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, summary)
	}

	return stories, rows.Err()
}

func (d *DatabaseClient) DeleteStory(storyID, userID uuid.UUID) error {
	result, err := d.db.Exec(`
		DELETE FROM stories
		WHERE id = $1 AND user_id = $2
	`, storyID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return models.ErrStoryNotFound
	}

	return nil
}

// SetStoryFinalVideo swaps the stitched output reference. The new file is
// uploaded before this runs, so the story never points at a missing blob.
func (d *DatabaseClient) SetStoryFinalVideo(storyID uuid.UUID, videoPath, videoURL string) error {
	_, err := d.db.Exec(`
		UPDATE stories
		SET final_video_path = $1, final_video_url = $2, status = 'stitched',
		    stitched_at = NOW(), updated_at = NOW()
		WHERE id = $3
	`, videoPath, videoURL, storyID)
	if err != nil {
		return fmt.Errorf("failed to set final video: %w", err)
	}
	return nil
}

func (d *DatabaseClient) TouchStory(storyID uuid.UUID, status string) error {
	_, err := d.db.Exec(`
		UPDATE stories
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, storyID)
	return err
}

const segmentColumns = `id, story_id, sequence_number, original_prompt, enhanced_prompt, status,
	operation_id, video_path, video_url, continuity_frame_path, seed_image_path, uses_previous_frame,
	failure_reason, error_message, created_at, completed_at, updated_at`

func scanSegment(row interface{ Scan(...interface{}) error }) (*models.Segment, error) {
	var seg models.Segment
	err := row.Scan(
		&seg.ID, &seg.StoryID, &seg.SequenceNumber, &seg.OriginalPrompt, &seg.EnhancedPrompt, &seg.Status,
		&seg.OperationID, &seg.VideoPath, &seg.VideoURL, &seg.ContinuityFramePath, &seg.SeedImagePath,
		&seg.UsesPreviousFrame, &seg.FailureReason, &seg.ErrorMessage,
		&seg.CreatedAt, &seg.CompletedAt, &seg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// CreateSegment inserts a segment at the next sequence number for the story.
// Sequence numbers only grow; deleting a segment leaves a permanent gap.
func (d *DatabaseClient) CreateSegment(storyID uuid.UUID, prompt string, usesPreviousFrame bool, seedImagePath string) (*models.Segment, error) {
	var seedImage sql.NullString
	if seedImagePath != "" {
		seedImage = sql.NullString{String: seedImagePath, Valid: true}
	}

	seg, err := scanSegment(d.db.QueryRow(`
		INSERT INTO segments (story_id, sequence_number, original_prompt, status, uses_previous_frame, seed_image_path)
		VALUES ($1, (SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM segments WHERE story_id = $1), $2, 'pending', $3, $4)
		RETURNING `+segmentColumns+`
	`, storyID, prompt, usesPreviousFrame, seedImage))
	if err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}

	return seg, nil
}

func (d *DatabaseClient) GetSegment(segmentID uuid.UUID) (*models.Segment, error) {
	seg, err := scanSegment(d.db.QueryRow(`
		SELECT `+segmentColumns+`
		FROM segments
		WHERE id = $1
	`, segmentID))
	if err == sql.ErrNoRows {
		return nil, models.ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return seg, nil
}

// ListSegments returns every segment of the story in sequence order.
func (d *DatabaseClient) ListSegments(storyID uuid.UUID) ([]models.Segment, error) {
	rows, err := d.db.Query(`
		SELECT `+segmentColumns+`
		FROM segments
		WHERE story_id = $1
		ORDER BY sequence_number ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, *seg)
	}

	return segments, rows.Err()
}

// LatestSegment returns the segment with the highest sequence number, or
// ErrSegmentNotFound when the story has none.
func (d *DatabaseClient) LatestSegment(storyID uuid.UUID) (*models.Segment, error) {
	seg, err := scanSegment(d.db.QueryRow(`
		SELECT `+segmentColumns+`
		FROM segments
		WHERE story_id = $1
		ORDER BY sequence_number DESC
		LIMIT 1
	`, storyID))
	if err == sql.ErrNoRows {
		return nil, models.ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest segment: %w", err)
	}

	return seg, nil
}

func (d *DatabaseClient) DeleteSegment(segmentID uuid.UUID) error {
	result, err := d.db.Exec(`
		DELETE FROM segments
		WHERE id = $1
	`, segmentID)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return models.ErrSegmentNotFound
	}

	return nil
}

func (d *DatabaseClient) SetSegmentSeedImage(segmentID uuid.UUID, seedImagePath string) error {
	_, err := d.db.Exec(`
		UPDATE segments
		SET seed_image_path = $1, updated_at = NOW()
		WHERE id = $2
	`, seedImagePath, segmentID)
	return err
}

func (d *DatabaseClient) SetSegmentEnhancedPrompt(segmentID uuid.UUID, enhancedPrompt string) error {
	_, err := d.db.Exec(`
		UPDATE segments
		SET enhanced_prompt = $1, updated_at = NOW()
		WHERE id = $2
	`, enhancedPrompt, segmentID)
	return err
}

// MarkSegmentGenerating moves a pending segment to generating and attaches its
// operation. The expected-status guard keeps concurrent writers out.
func (d *DatabaseClient) MarkSegmentGenerating(segmentID, operationID uuid.UUID) error {
	return d.guardedUpdate(segmentID, models.SegmentStatusPending, `
		UPDATE segments
		SET status = 'generating', operation_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, operationID, segmentID, models.SegmentStatusPending)
}

func (d *DatabaseClient) MarkSegmentPublishing(segmentID uuid.UUID) error {
	return d.guardedUpdate(segmentID, models.SegmentStatusGenerating, `
		UPDATE segments
		SET status = 'publishing', updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, segmentID, models.SegmentStatusGenerating)
}

func (d *DatabaseClient) MarkSegmentCompleted(segmentID uuid.UUID, videoPath, videoURL, continuityFramePath string) error {
	var framePath sql.NullString
	if continuityFramePath != "" {
		framePath = sql.NullString{String: continuityFramePath, Valid: true}
	}

	return d.guardedUpdate(segmentID, models.SegmentStatusPublishing, `
		UPDATE segments
		SET status = 'completed', video_path = $1, video_url = $2, continuity_frame_path = $3,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, videoPath, videoURL, framePath, segmentID, models.SegmentStatusPublishing)
}

// MarkSegmentFailed is valid from any non-terminal status. Terminal segments
// are never rewritten.
func (d *DatabaseClient) MarkSegmentFailed(segmentID uuid.UUID, reason, message string) error {
	result, err := d.db.Exec(`
		UPDATE segments
		SET status = 'failed', failure_reason = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status NOT IN ('completed', 'failed')
	`, reason, message, segmentID)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return d.transitionConflict(segmentID, models.SegmentStatusFailed)
	}

	return nil
}

func (d *DatabaseClient) guardedUpdate(segmentID uuid.UUID, expectedStatus, query string, args ...interface{}) error {
	result, err := d.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		next := nextStatusFor(expectedStatus)
		return d.transitionConflict(segmentID, next)
	}

	return nil
}

func nextStatusFor(expected string) string {
	switch expected {
	case models.SegmentStatusPending:
		return models.SegmentStatusGenerating
	case models.SegmentStatusGenerating:
		return models.SegmentStatusPublishing
	default:
		return models.SegmentStatusCompleted
	}
}

func (d *DatabaseClient) transitionConflict(segmentID uuid.UUID, to string) error {
	seg, err := d.GetSegment(segmentID)
	if err != nil {
		return err
	}
	return &models.InvalidTransitionError{From: seg.Status, To: to}
}

func (d *DatabaseClient) CreateOperation(segmentID uuid.UUID, operationName, model string) (*models.GenerationOperation, error) {
	var op models.GenerationOperation
	err := d.db.QueryRow(`
		INSERT INTO generation_operations (segment_id, operation_name, model, status)
		VALUES ($1, $2, $3, 'running')
		RETURNING id, segment_id, operation_name, model, status, submitted_at, last_polled_at
	`, segmentID, operationName, model).Scan(
		&op.ID, &op.SegmentID, &op.OperationName, &op.Model, &op.Status,
		&op.SubmittedAt, &op.LastPolledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	return &op, nil
}

func (d *DatabaseClient) GetOperation(operationID uuid.UUID) (*models.GenerationOperation, error) {
	var op models.GenerationOperation
	err := d.db.QueryRow(`
		SELECT id, segment_id, operation_name, model, status, submitted_at, last_polled_at
		FROM generation_operations
		WHERE id = $1
	`, operationID).Scan(
		&op.ID, &op.SegmentID, &op.OperationName, &op.Model, &op.Status,
		&op.SubmittedAt, &op.LastPolledAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return &op, nil
}

func (d *DatabaseClient) TouchOperation(operationID uuid.UUID) error {
	_, err := d.db.Exec(`
		UPDATE generation_operations
		SET last_polled_at = NOW()
		WHERE id = $1
	`, operationID)
	return err
}

func (d *DatabaseClient) FinishOperation(operationID uuid.UUID, status string) error {
	_, err := d.db.Exec(`
		UPDATE generation_operations
		SET status = $1, last_polled_at = NOW()
		WHERE id = $2
	`, status, operationID)
	return err
}

// ListRunningOperations returns operations that have not reached a terminal
// status, used to resume polling after a restart.
func (d *DatabaseClient) ListRunningOperations() ([]models.GenerationOperation, error) {
	rows, err := d.db.Query(`
		SELECT id, segment_id, operation_name, model, status, submitted_at, last_polled_at
		FROM generation_operations
		WHERE status = 'running'
		ORDER BY submitted_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []models.GenerationOperation
	for rows.Next() {
		var op models.GenerationOperation
		err := rows.Scan(
			&op.ID, &op.SegmentID, &op.OperationName, &op.Model, &op.Status,
			&op.SubmittedAt, &op.LastPolledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

