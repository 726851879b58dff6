package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-story-backend/internal/config"
	"video-story-backend/internal/gemini"
	"video-story-backend/internal/models"
	"video-story-backend/internal/supabase"
	"video-story-backend/internal/veo"
)

// Store is the persistence surface the orchestrator drives. It is satisfied by
// supabase.DatabaseClient; tests substitute an in-memory implementation.
type Store interface {
	CreateStory(userID uuid.UUID, title, description string) (*models.Story, error)
	GetStory(storyID, userID uuid.UUID) (*models.Story, error)
	ListStories(userID uuid.UUID) ([]models.StorySummary, error)
	DeleteStory(storyID, userID uuid.UUID) error
	SetStoryFinalVideo(storyID uuid.UUID, videoPath, videoURL string) error
	TouchStory(storyID uuid.UUID, status string) error

	CreateSegment(storyID uuid.UUID, prompt string, usesPreviousFrame bool, seedImagePath string) (*models.Segment, error)
	GetSegment(segmentID uuid.UUID) (*models.Segment, error)
	ListSegments(storyID uuid.UUID) ([]models.Segment, error)
	LatestSegment(storyID uuid.UUID) (*models.Segment, error)
	DeleteSegment(segmentID uuid.UUID) error
	SetSegmentSeedImage(segmentID uuid.UUID, seedImagePath string) error
	SetSegmentEnhancedPrompt(segmentID uuid.UUID, enhancedPrompt string) error
	MarkSegmentGenerating(segmentID, operationID uuid.UUID) error
	MarkSegmentPublishing(segmentID uuid.UUID) error
	MarkSegmentCompleted(segmentID uuid.UUID, videoPath, videoURL, continuityFramePath string) error
	MarkSegmentFailed(segmentID uuid.UUID, reason, message string) error

	CreateOperation(segmentID uuid.UUID, operationName, model string) (*models.GenerationOperation, error)
	GetOperation(operationID uuid.UUID) (*models.GenerationOperation, error)
	TouchOperation(operationID uuid.UUID) error
	FinishOperation(operationID uuid.UUID, status string) error
	ListRunningOperations() ([]models.GenerationOperation, error)
}

// BlobStore holds video and image files. Satisfied by supabase.StorageClient.
type BlobStore interface {
	UploadSegmentVideo(storyID, segmentID uuid.UUID, data []byte) (string, string, error)
	UploadContinuityFrame(storyID, segmentID uuid.UUID, data []byte) (string, string, error)
	UploadSeedImage(storyID, segmentID uuid.UUID, data []byte, contentType string) (string, string, error)
	UploadFinalVideo(storyID uuid.UUID, data []byte) (string, string, error)
	DownloadFile(storagePath string) ([]byte, error)
	DeleteFile(storagePath string) error
	DeleteStoryFiles(storyID uuid.UUID) error
	DeleteSegmentFiles(storyID, segmentID uuid.UUID) error
	GetPublicURL(storagePath string) string
}

// Generator is the long-running video generation API. Satisfied by veo.Client.
type Generator interface {
	SubmitGeneration(ctx context.Context, req veo.GenerationRequest) (string, error)
	PollOperation(ctx context.Context, operationName string) (*veo.OperationStatus, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// MediaProcessor extracts frames and joins clips. Satisfied by media.Processor.
type MediaProcessor interface {
	LastFrame(ctx context.Context, videoData []byte) ([]byte, error)
	JoinVideos(ctx context.Context, videos [][]byte) ([]byte, error)
}

// PromptEnhancer rewrites and expands prompts. Satisfied by gemini.Client.
type PromptEnhancer interface {
	EnhancePrompt(ctx context.Context, prompt, previousPrompt string) (string, error)
	ExpandStory(ctx context.Context, prompt string, targetDurationSeconds int) (*gemini.StoryPlan, error)
}

// EventPublisher pushes progress events to clients. Satisfied by
// supabase.RealtimeClient.
type EventPublisher interface {
	PublishStoryEvent(storyID uuid.UUID, event string, payload map[string]interface{}) error
}

// StoryService orchestrates story and segment lifecycles. It is the only
// writer of segment state; handlers and the poll supervisor both go through
// it. All state changes for one story happen under that story's mutex.
type StoryService struct {
	store   Store
	blobs   BlobStore
	gen     Generator
	media   MediaProcessor
	prompts PromptEnhancer
	events  EventPublisher
	cfg     *config.Config

	poller *Poller

	mu         sync.Mutex
	storyLocks map[uuid.UUID]*sync.Mutex
}

func NewStoryService(
	store Store,
	blobs BlobStore,
	gen Generator,
	media MediaProcessor,
	prompts PromptEnhancer,
	events EventPublisher,
	cfg *config.Config,
) *StoryService {
	s := &StoryService{
		store:      store,
		blobs:      blobs,
		gen:        gen,
		media:      media,
		prompts:    prompts,
		events:     events,
		cfg:        cfg,
		storyLocks: make(map[uuid.UUID]*sync.Mutex),
	}
	s.poller = NewPoller(s, cfg.OperationPollInterval)
	return s
}

// lockStory serializes all mutations for one story. Different stories proceed
// independently.
func (s *StoryService) lockStory(storyID uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.storyLocks[storyID]
	if !ok {
		lock = &sync.Mutex{}
		s.storyLocks[storyID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *StoryService) CreateStory(userID uuid.UUID, title, description string) (*models.Story, error) {
	return s.store.CreateStory(userID, title, description)
}

// ListStories returns the user's stories with segment counts. The card preview
// is the most recent completed segment's video, falling back to the stitched
// final video for stories whose segments were since deleted.
func (s *StoryService) ListStories(userID uuid.UUID) ([]models.StorySummary, error) {
	summaries, err := s.store.ListStories(userID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if summaries[i].PreviewVideoURL == "" && summaries[i].FinalVideoURL.Valid {
			summaries[i].PreviewVideoURL = summaries[i].FinalVideoURL.String
		}
	}

	return summaries, nil
}

func (s *StoryService) GetStory(storyID, userID uuid.UUID) (*models.Story, []models.Segment, error) {
	story, err := s.store.GetStory(storyID, userID)
	if err != nil {
		return nil, nil, err
	}

	segments, err := s.store.ListSegments(storyID)
	if err != nil {
		return nil, nil, err
	}

	return story, segments, nil
}

// DeleteStory removes the story, its segments and operations, and best-effort
// deletes its blobs. Running pollers for its segments are cancelled first.
func (s *StoryService) DeleteStory(storyID, userID uuid.UUID) error {
	unlock := s.lockStory(storyID)
	defer unlock()

	if _, err := s.store.GetStory(storyID, userID); err != nil {
		return err
	}

	segments, err := s.store.ListSegments(storyID)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		if seg.OperationID.Valid {
			s.poller.Cancel(seg.OperationID.UUID)
		}
	}

	if err := s.store.DeleteStory(storyID, userID); err != nil {
		return err
	}

	if err := s.blobs.DeleteStoryFiles(storyID); err != nil {
		log.Printf("Failed to delete story files for %s: %v", storyID, err)
	}

	// The story is gone; its lock entry would otherwise live forever.
	s.mu.Lock()
	delete(s.storyLocks, storyID)
	s.mu.Unlock()

	return nil
}

// StoryStats aggregates segment counts by status and estimates the total
// duration of the completed portion.
func (s *StoryService) StoryStats(storyID, userID uuid.UUID) (*models.StoryStatsResponse, error) {
	story, err := s.store.GetStory(storyID, userID)
	if err != nil {
		return nil, err
	}

	segments, err := s.store.ListSegments(storyID)
	if err != nil {
		return nil, err
	}

	stats := &models.StoryStatsResponse{
		TotalSegments: len(segments),
		HasFinalVideo: story.FinalVideoURL.Valid,
	}
	if story.FinalVideoURL.Valid {
		stats.FinalVideoURL = story.FinalVideoURL.String
	}

	for _, seg := range segments {
		switch seg.Status {
		case models.SegmentStatusCompleted:
			stats.CompletedSegments++
			stats.TotalDurationSeconds += s.cfg.VideoDurationSeconds
		case models.SegmentStatusGenerating, models.SegmentStatusPublishing:
			stats.GeneratingSegments++
		case models.SegmentStatusFailed:
			stats.FailedSegments++
		}
	}
	stats.EstimatedFinalDurationSecs = stats.TotalDurationSeconds
	stats.IsStitchable = len(segments) > 0 && stats.CompletedSegments == len(segments)

	return stats, nil
}

// AddSegment creates the next segment of a story and starts its generation.
// Sequence numbers continue from the current maximum, so deleted segments
// leave permanent gaps. A seed image and the previous segment's continuity
// frame are mutually exclusive generation seeds.
func (s *StoryService) AddSegment(ctx context.Context, userID, storyID uuid.UUID, req models.AddSegmentRequest, seedImage []byte, seedContentType string) (*models.Segment, *models.GenerationOperation, error) {
	unlock := s.lockStory(storyID)
	defer unlock()

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, nil, models.ValidationError("prompt is required")
	}
	if len(seedImage) > 0 && req.UsePreviousFrame {
		return nil, nil, models.ValidationError("a seed image and use_previous_frame are mutually exclusive")
	}

	if _, err := s.store.GetStory(storyID, userID); err != nil {
		return nil, nil, err
	}

	segments, err := s.store.ListSegments(storyID)
	if err != nil {
		return nil, nil, err
	}
	if len(segments) >= s.cfg.MaxSegmentsPerStory {
		return nil, nil, models.ValidationError("story already has the maximum of %d segments", s.cfg.MaxSegmentsPerStory)
	}

	var previous *models.Segment
	var previousPrompt string
	if req.UsePreviousFrame {
		previous, err = s.store.LatestSegment(storyID)
		if errors.Is(err, models.ErrSegmentNotFound) {
			return nil, nil, models.ErrNoPriorSegment
		}
		if err != nil {
			return nil, nil, err
		}
		if previous.Status != models.SegmentStatusCompleted {
			return nil, nil, models.ValidationError("previous segment is %s; wait for it to complete before continuing from it", previous.Status)
		}
		if !previous.ContinuityFramePath.Valid {
			return nil, nil, models.ValidationError("previous segment has no continuity frame")
		}
		if previous.EnhancedPrompt.Valid {
			previousPrompt = previous.EnhancedPrompt.String
		} else {
			previousPrompt = previous.OriginalPrompt
		}
	}

	segment, err := s.store.CreateSegment(storyID, req.Prompt, req.UsePreviousFrame, "")
	if err != nil {
		return nil, nil, err
	}

	enhanced, err := s.prompts.EnhancePrompt(ctx, req.Prompt, previousPrompt)
	if err != nil {
		// Prompt enhancement is an improvement, not a requirement. Fall
		// back to the user's prompt when the model is unavailable.
		log.Printf("Prompt enhancement failed for segment %s: %v", segment.ID, err)
		enhanced = req.Prompt
	}
	if err := s.store.SetSegmentEnhancedPrompt(segment.ID, enhanced); err != nil {
		return nil, nil, err
	}

	genReq := veo.GenerationRequest{
		Model:           s.cfg.VeoModelFast,
		Prompt:          enhanced,
		DurationSeconds: s.cfg.VideoDurationSeconds,
		AspectRatio:     s.cfg.AspectRatio,
		Resolution:      s.cfg.Resolution,
	}
	if req.UsePreviousFrame {
		frame, err := s.blobs.DownloadFile(previous.ContinuityFramePath.String)
		if err != nil {
			s.failSegment(segment.ID, models.ReasonGenerationFailed, fmt.Sprintf("failed to load continuity frame: %v", err))
			return nil, nil, fmt.Errorf("failed to load continuity frame: %w", err)
		}
		genReq.Model = s.cfg.VeoModelImage
		genReq.ImageBytes = frame
		genReq.ImageMIMEType = "image/png"
	} else if len(seedImage) > 0 {
		seedPath, _, err := s.blobs.UploadSeedImage(storyID, segment.ID, seedImage, seedContentType)
		if err != nil {
			s.failSegment(segment.ID, models.ReasonGenerationFailed, fmt.Sprintf("failed to store seed image: %v", err))
			return nil, nil, fmt.Errorf("failed to store seed image: %w", err)
		}
		if err := s.store.SetSegmentSeedImage(segment.ID, seedPath); err != nil {
			return nil, nil, err
		}
		genReq.Model = s.cfg.VeoModelImage
		genReq.ImageBytes = seedImage
		genReq.ImageMIMEType = seedContentType
	}

	operationName, err := s.gen.SubmitGeneration(ctx, genReq)
	if err != nil {
		s.failSegment(segment.ID, models.ReasonGenerationFailed, err.Error())
		return nil, nil, fmt.Errorf("failed to submit generation: %w", err)
	}

	op, err := s.store.CreateOperation(segment.ID, operationName, genReq.Model)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.MarkSegmentGenerating(segment.ID, op.ID); err != nil {
		return nil, nil, err
	}

	s.store.TouchStory(storyID, "generating")
	s.poller.Watch(op.ID)
	s.events.PublishStoryEvent(storyID, "generation_started",
		supabase.GenerationStartedPayload(segment.ID, op.ID, segment.SequenceNumber))

	segment, err = s.store.GetSegment(segment.ID)
	if err != nil {
		return nil, nil, err
	}

	return segment, op, nil
}

// DeleteSegment removes one segment. Remaining segments keep their sequence
// numbers. Segments with a generation in flight cannot be deleted.
func (s *StoryService) DeleteSegment(segmentID, userID uuid.UUID) error {
	segment, err := s.store.GetSegment(segmentID)
	if err != nil {
		return err
	}

	unlock := s.lockStory(segment.StoryID)
	defer unlock()

	// Re-read under the lock; the poller may have advanced it.
	segment, err = s.store.GetSegment(segmentID)
	if err != nil {
		return err
	}

	if _, err := s.store.GetStory(segment.StoryID, userID); err != nil {
		return err
	}

	if segment.Status == models.SegmentStatusGenerating || segment.Status == models.SegmentStatusPublishing {
		return models.ValidationError("segment is %s; wait for generation to finish before deleting it", segment.Status)
	}

	if err := s.store.DeleteSegment(segmentID); err != nil {
		return err
	}

	if err := s.blobs.DeleteSegmentFiles(segment.StoryID, segmentID); err != nil {
		log.Printf("Failed to delete segment files for %s: %v", segmentID, err)
	}

	return nil
}

// PollOperation reports the state of a generation operation, advancing the
// owning segment when the remote side has finished. Safe to call repeatedly.
func (s *StoryService) PollOperation(ctx context.Context, operationID, userID uuid.UUID) (*models.GenerationOperation, *models.Segment, error) {
	op, err := s.store.GetOperation(operationID)
	if err != nil {
		return nil, nil, err
	}

	segment, err := s.store.GetSegment(op.SegmentID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.store.GetStory(segment.StoryID, userID); err != nil {
		return nil, nil, err
	}

	return s.pollOnce(ctx, op)
}

// pollOnce is the shared poll path for handler requests and the background
// supervisor. Terminal segments are returned as-is without a remote call.
func (s *StoryService) pollOnce(ctx context.Context, op *models.GenerationOperation) (*models.GenerationOperation, *models.Segment, error) {
	unlock := s.lockStory(s.storyIDForOperation(op))
	defer unlock()

	segment, err := s.store.GetSegment(op.SegmentID)
	if err != nil {
		return nil, nil, err
	}

	if models.IsTerminal(segment.Status) {
		return op, segment, nil
	}

	// The deadline is enforced before the remote call so an unreachable
	// generation service cannot keep a segment in flight past the bound.
	if time.Since(op.SubmittedAt) > s.cfg.OperationTimeout {
		return s.finalizeFailure(op, segment, models.ReasonTimeout,
			fmt.Sprintf("generation did not finish within %s", s.cfg.OperationTimeout))
	}

	remote, err := s.gen.PollOperation(ctx, op.OperationName)
	if err != nil {
		// A transient poll failure leaves the segment untouched; the next
		// poll will retry.
		return nil, nil, fmt.Errorf("failed to poll operation: %w", err)
	}

	s.store.TouchOperation(op.ID)

	if remote.Failed {
		return s.finalizeFailure(op, segment, remote.FailureCode, remote.FailureMessage)
	}

	if !remote.Done {
		return s.refresh(op, segment)
	}

	if len(remote.Videos) == 0 {
		return s.finalizeFailure(op, segment, models.ReasonGenerationFailed,
			"generation finished without video output")
	}

	return s.publishResult(ctx, op, segment, remote.Videos[0])
}

// publishResult persists the generated video, extracts the continuity frame,
// and completes the segment.
func (s *StoryService) publishResult(ctx context.Context, op *models.GenerationOperation, segment *models.Segment, video veo.GeneratedVideo) (*models.GenerationOperation, *models.Segment, error) {
	if err := s.store.MarkSegmentPublishing(segment.ID); err != nil {
		return nil, nil, err
	}

	videoData := video.Bytes
	if len(videoData) == 0 {
		var err error
		videoData, err = s.gen.DownloadVideo(ctx, video.URI)
		if err != nil {
			return s.finalizeFailure(op, segment, models.ReasonGenerationFailed,
				fmt.Sprintf("failed to download generated video: %v", err))
		}
	}

	videoPath, videoURL, err := s.blobs.UploadSegmentVideo(segment.StoryID, segment.ID, videoData)
	if err != nil {
		return s.finalizeFailure(op, segment, models.ReasonGenerationFailed,
			fmt.Sprintf("failed to store generated video: %v", err))
	}

	frame, err := s.media.LastFrame(ctx, videoData)
	if err != nil {
		return s.finalizeFailure(op, segment, models.ReasonExtractionFailed,
			fmt.Sprintf("failed to extract continuity frame: %v", err))
	}

	framePath, _, err := s.blobs.UploadContinuityFrame(segment.StoryID, segment.ID, frame)
	if err != nil {
		return s.finalizeFailure(op, segment, models.ReasonExtractionFailed,
			fmt.Sprintf("failed to store continuity frame: %v", err))
	}

	if err := s.store.MarkSegmentCompleted(segment.ID, videoPath, videoURL, framePath); err != nil {
		return nil, nil, err
	}
	s.store.FinishOperation(op.ID, "succeeded")
	s.poller.Cancel(op.ID)

	s.events.PublishStoryEvent(segment.StoryID, "segment_completed",
		supabase.SegmentCompletedPayload(segment.ID, segment.SequenceNumber, videoURL))

	return s.refresh(op, segment)
}

func (s *StoryService) finalizeFailure(op *models.GenerationOperation, segment *models.Segment, reason, message string) (*models.GenerationOperation, *models.Segment, error) {
	s.failSegment(segment.ID, reason, message)
	s.store.FinishOperation(op.ID, "failed")
	s.poller.Cancel(op.ID)

	s.events.PublishStoryEvent(segment.StoryID, "segment_failed",
		supabase.SegmentFailedPayload(segment.ID, segment.SequenceNumber, reason, message))

	return s.refresh(op, segment)
}

func (s *StoryService) failSegment(segmentID uuid.UUID, reason, message string) {
	if err := s.store.MarkSegmentFailed(segmentID, reason, message); err != nil {
		log.Printf("Failed to mark segment %s failed: %v", segmentID, err)
	}
}

func (s *StoryService) refresh(op *models.GenerationOperation, segment *models.Segment) (*models.GenerationOperation, *models.Segment, error) {
	freshOp, err := s.store.GetOperation(op.ID)
	if err != nil {
		return nil, nil, err
	}
	freshSeg, err := s.store.GetSegment(segment.ID)
	if err != nil {
		return nil, nil, err
	}
	return freshOp, freshSeg, nil
}

func (s *StoryService) storyIDForOperation(op *models.GenerationOperation) uuid.UUID {
	segment, err := s.store.GetSegment(op.SegmentID)
	if err != nil {
		// Segment gone; fall back to a zero key so the poll still
		// serializes against other orphaned operations.
		return uuid.Nil
	}
	return segment.StoryID
}

// StitchStory joins every completed segment into one video and atomically
// swaps the story's final video reference. All existing segments must be
// completed; the first blocking segment is named in the error.
func (s *StoryService) StitchStory(ctx context.Context, storyID, userID uuid.UUID) (*models.Story, int, error) {
	unlock := s.lockStory(storyID)
	defer unlock()

	story, err := s.store.GetStory(storyID, userID)
	if err != nil {
		return nil, 0, err
	}

	segments, err := s.store.ListSegments(storyID)
	if err != nil {
		return nil, 0, err
	}
	if len(segments) == 0 {
		return nil, 0, models.ValidationError("story has no segments to stitch")
	}

	for _, seg := range segments {
		if seg.Status != models.SegmentStatusCompleted {
			return nil, 0, &models.NotReadyError{Sequence: seg.SequenceNumber, Status: seg.Status}
		}
	}

	videos := make([][]byte, 0, len(segments))
	for _, seg := range segments {
		data, err := s.blobs.DownloadFile(seg.VideoPath.String)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to download segment %d video: %w", seg.SequenceNumber, err)
		}
		videos = append(videos, data)
	}

	joined, err := s.media.JoinVideos(ctx, videos)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to join segment videos: %w", err)
	}

	// Upload to a fresh path before touching the story so the current final
	// video stays valid until the very last step.
	finalPath, finalURL, err := s.blobs.UploadFinalVideo(storyID, joined)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to store stitched video: %w", err)
	}

	previousPath := ""
	if story.FinalVideoPath.Valid {
		previousPath = story.FinalVideoPath.String
	}

	if err := s.store.SetStoryFinalVideo(storyID, finalPath, finalURL); err != nil {
		return nil, 0, err
	}

	if previousPath != "" && previousPath != finalPath {
		if err := s.blobs.DeleteFile(previousPath); err != nil {
			log.Printf("Failed to delete previous stitched video %s: %v", previousPath, err)
		}
	}

	s.events.PublishStoryEvent(storyID, "stitch_completed",
		supabase.StitchCompletedPayload(storyID, finalURL, len(segments)))

	story, err = s.store.GetStory(storyID, userID)
	if err != nil {
		return nil, 0, err
	}

	return story, len(segments), nil
}

// ExpandStory plans a multi-scene story from a single idea.
func (s *StoryService) ExpandStory(ctx context.Context, prompt string, targetDurationSeconds int) (*gemini.StoryPlan, error) {
	maxDuration := s.cfg.MaxSegmentsPerStory * s.cfg.VideoDurationSeconds
	if targetDurationSeconds > maxDuration {
		return nil, models.ValidationError("target duration %ds exceeds the maximum of %ds", targetDurationSeconds, maxDuration)
	}

	return s.prompts.ExpandStory(ctx, prompt, targetDurationSeconds)
}

// ResumePolling restarts supervision of operations that were running when the
// server last stopped.
func (s *StoryService) ResumePolling() error {
	ops, err := s.store.ListRunningOperations()
	if err != nil {
		return fmt.Errorf("failed to list running operations: %w", err)
	}

	resumed := 0
	for _, op := range ops {
		if time.Since(op.SubmittedAt) > s.cfg.OperationTimeout {
			segment, err := s.store.GetSegment(op.SegmentID)
			if err != nil {
				s.store.FinishOperation(op.ID, "failed")
				continue
			}
			unlock := s.lockStory(segment.StoryID)
			s.finalizeFailure(&op, segment, models.ReasonAbandoned,
				"operation passed its deadline while polling was stopped")
			unlock()
			continue
		}
		s.poller.Watch(op.ID)
		resumed++
	}

	if resumed > 0 {
		log.Printf("Resumed polling for %d running operations", resumed)
	}

	return nil
}

// StopPolling cancels all background polling, used during shutdown.
func (s *StoryService) StopPolling() {
	s.poller.Shutdown()
}
