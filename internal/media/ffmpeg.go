package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-story-backend/internal/models"
)

// Processor runs ffmpeg and ffprobe as subprocesses for frame extraction and
// segment stitching.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
}

func NewProcessor(ffmpegPath, ffprobePath string) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// IsAvailable reports whether the ffmpeg binary can be executed.
func (p *Processor) IsAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, p.ffmpegPath, "-version")
	return cmd.Run() == nil
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the playable length of a video file in seconds.
func (p *Processor) Duration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe video: %w", err)
	}

	var probe probeFormat
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse probe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}

	return duration, nil
}

// LastFrame decodes the final frame of a video and returns it as PNG bytes.
// The result seeds the next segment's generation so scenes run continuously.
func (p *Processor) LastFrame(ctx context.Context, videoData []byte) ([]byte, error) {
	if len(videoData) == 0 {
		return nil, fmt.Errorf("%w: video data is empty", models.ErrExtractionFailed)
	}

	tmpDir, err := os.MkdirTemp("", "frame-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "input.mp4")
	outputPath := filepath.Join(tmpDir, "last_frame.png")

	if err := os.WriteFile(inputPath, videoData, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp video: %w", err)
	}

	duration, err := p.Duration(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtractionFailed, err)
	}

	// Seek just short of the end; seeking to the exact duration can land
	// past the last decodable frame.
	seek := duration - 0.1
	if seek < 0 {
		seek = 0
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", fmt.Sprintf("%.3f", seek),
		"-i", inputPath,
		"-frames:v", "1",
		"-update", "1",
		"-y",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", models.ErrExtractionFailed, err, truncate(string(output), 512))
	}

	frame, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read extracted frame: %v", models.ErrExtractionFailed, err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: extracted frame is empty", models.ErrExtractionFailed)
	}

	return frame, nil
}

// JoinVideos concatenates the given clips in order into a single MP4. It tries
// a stream copy first and falls back to re-encoding when the inputs disagree
// on codec parameters.
func (p *Processor) JoinVideos(ctx context.Context, videos [][]byte) ([]byte, error) {
	if len(videos) == 0 {
		return nil, fmt.Errorf("no videos to join")
	}

	tmpDir, err := os.MkdirTemp("", "stitch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var listFile strings.Builder
	for i, video := range videos {
		if len(video) == 0 {
			return nil, fmt.Errorf("video %d is empty", i+1)
		}
		inputPath := filepath.Join(tmpDir, fmt.Sprintf("part_%04d.mp4", i))
		if err := os.WriteFile(inputPath, video, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write temp video: %w", err)
		}
		fmt.Fprintf(&listFile, "file '%s'\n", inputPath)
	}

	listPath := filepath.Join(tmpDir, "inputs.txt")
	if err := os.WriteFile(listPath, []byte(listFile.String()), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write concat list: %w", err)
	}

	outputPath := filepath.Join(tmpDir, "output.mp4")

	copyArgs := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}
	if output, err := exec.CommandContext(ctx, p.ffmpegPath, copyArgs...).CombinedOutput(); err != nil {
		encodeArgs := []string{
			"-f", "concat",
			"-safe", "0",
			"-i", listPath,
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-c:a", "aac",
			"-y",
			outputPath,
		}
		if output2, err2 := exec.CommandContext(ctx, p.ffmpegPath, encodeArgs...).CombinedOutput(); err2 != nil {
			return nil, fmt.Errorf("failed to join videos: copy: %v: %s; re-encode: %v: %s",
				err, truncate(string(output), 256), err2, truncate(string(output2), 256))
		}
	}

	joined, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read joined video: %w", err)
	}

	return joined, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
