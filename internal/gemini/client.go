package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	maxRetries       = 3
	retryBaseDelay   = 2 * time.Second
	maxSceneDuration = 8
)

// Client wraps the Gemini API for prompt enhancement and story planning.
type Client struct {
	client *genai.Client
	model  string
}

// ScenePlan is one planned segment of an expanded story.
type ScenePlan struct {
	SceneNumber     int    `json:"scene_number"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
}

// StoryPlan is the full output of story expansion.
type StoryPlan struct {
	Title  string      `json:"title"`
	Scenes []ScenePlan `json:"scenes"`
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnhancePrompt rewrites a raw segment prompt into a detailed video generation
// prompt. When previousPrompt is non-empty the rewrite is asked to continue
// the prior scene, matching the continuity frame the generator receives.
func (c *Client) EnhancePrompt(ctx context.Context, prompt, previousPrompt string) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are a video prompt engineer. Rewrite the following scene description ")
	sb.WriteString("into a single detailed prompt for an AI video generation model. ")
	sb.WriteString("Describe camera movement, lighting, and mood. ")
	sb.WriteString("Return only the rewritten prompt, no commentary.\n\n")
	if previousPrompt != "" {
		sb.WriteString("This scene continues from the previous scene. Previous prompt: ")
		sb.WriteString(previousPrompt)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Scene description: ")
	sb.WriteString(prompt)

	text, err := c.generateText(ctx, sb.String(), "")
	if err != nil {
		return "", fmt.Errorf("failed to enhance prompt: %w", err)
	}

	enhanced := strings.TrimSpace(text)
	if enhanced == "" {
		return "", fmt.Errorf("model returned an empty prompt")
	}

	return enhanced, nil
}

// ExpandStory turns a one-line story idea into an ordered list of scene
// prompts whose durations sum to roughly the target. Scene count is the target
// duration divided by the per-scene maximum, rounded up.
func (c *Client) ExpandStory(ctx context.Context, prompt string, targetDurationSeconds int) (*StoryPlan, error) {
	if targetDurationSeconds <= 0 {
		targetDurationSeconds = maxSceneDuration
	}
	sceneCount := int(math.Ceil(float64(targetDurationSeconds) / float64(maxSceneDuration)))

	request := fmt.Sprintf(`You are a screenwriter for short AI-generated videos.
Expand the following story idea into exactly %d consecutive scenes that tell one continuous story.
Each scene is at most %d seconds long and its prompt must describe a single continuous shot.
Later scenes must visually continue from the final moment of the scene before them.

Story idea: %s

Respond with JSON matching this schema:
{"title": "...", "scenes": [{"scene_number": 1, "prompt": "...", "duration_seconds": %d}]}`,
		sceneCount, maxSceneDuration, prompt, maxSceneDuration)

	text, err := c.generateText(ctx, request, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to expand story: %w", err)
	}

	var plan StoryPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse story plan: %w", err)
	}

	if len(plan.Scenes) == 0 {
		return nil, fmt.Errorf("story plan contains no scenes")
	}

	for i := range plan.Scenes {
		plan.Scenes[i].SceneNumber = i + 1
		if plan.Scenes[i].DurationSeconds <= 0 || plan.Scenes[i].DurationSeconds > maxSceneDuration {
			plan.Scenes[i].DurationSeconds = maxSceneDuration
		}
	}

	return &plan, nil
}

func (c *Client) generateText(ctx context.Context, prompt, responseMIMEType string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	if responseMIMEType != "" {
		model.ResponseMIMEType = responseMIMEType
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				select {
				case <-time.After(retryBaseDelay * time.Duration(attempt)):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}

		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
			continue
		}

		return string(text), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
