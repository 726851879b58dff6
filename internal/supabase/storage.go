package supabase

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	// Ensure URL doesn't have trailing slash
	baseURL := supabaseURL
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

func (s *StorageClient) upload(storagePath, contentType string, data []byte) (string, string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}

	return storagePath, s.GetPublicURL(storagePath), nil
}

// UploadSegmentVideo stores a generated clip at a stable per-segment path.
func (s *StorageClient) UploadSegmentVideo(storyID, segmentID uuid.UUID, data []byte) (string, string, error) {
	storagePath := fmt.Sprintf("stories/%s/segments/%s/video.mp4", storyID.String(), segmentID.String())
	return s.upload(storagePath, "video/mp4", data)
}

// UploadContinuityFrame stores the last frame of a segment's video. The next
// segment seeds its generation from this image.
func (s *StorageClient) UploadContinuityFrame(storyID, segmentID uuid.UUID, data []byte) (string, string, error) {
	storagePath := fmt.Sprintf("stories/%s/segments/%s/last_frame.png", storyID.String(), segmentID.String())
	return s.upload(storagePath, "image/png", data)
}

func (s *StorageClient) UploadSeedImage(storyID, segmentID uuid.UUID, data []byte, contentType string) (string, string, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	storagePath := fmt.Sprintf("stories/%s/segments/%s/seed_image", storyID.String(), segmentID.String())
	return s.upload(storagePath, contentType, data)
}

// UploadFinalVideo writes the stitched output to a fresh timestamped path so a
// re-stitch never overwrites a file a client may still be downloading.
func (s *StorageClient) UploadFinalVideo(storyID uuid.UUID, data []byte) (string, string, error) {
	storagePath := fmt.Sprintf("stories/%s/final/stitched_%d.mp4", storyID.String(), time.Now().Unix())
	return s.upload(storagePath, "video/mp4", data)
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}

func (s *StorageClient) DownloadFile(storagePath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return data, nil
}

func (s *StorageClient) DeleteFile(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	return err
}

func (s *StorageClient) deletePrefix(prefix string) error {
	files, err := s.client.ListFiles(s.bucket, prefix, storage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(files) > 0 {
		filePaths := make([]string, len(files))
		for i, file := range files {
			filePaths[i] = file.Name
		}
		_, err = s.client.RemoveFile(s.bucket, filePaths)
		if err != nil {
			return fmt.Errorf("failed to delete files: %w", err)
		}
	}

	return nil
}

// DeleteStoryFiles removes every blob under the story, including segment
// videos, continuity frames, and stitched outputs.
func (s *StorageClient) DeleteStoryFiles(storyID uuid.UUID) error {
	return s.deletePrefix(fmt.Sprintf("stories/%s/", storyID.String()))
}

func (s *StorageClient) DeleteSegmentFiles(storyID, segmentID uuid.UUID) error {
	return s.deletePrefix(fmt.Sprintf("stories/%s/segments/%s/", storyID.String(), segmentID.String()))
}
