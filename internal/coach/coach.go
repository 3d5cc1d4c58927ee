// Package coach proxies chat turns to the Gemini API, grounding the model
// with a short summary of the caller's progression so advice stays concrete.
// Transcripts are never persisted.
package coach

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/model"
)

const systemPrompt = "You are the village coach of a Pomodoro focus app. " +
	"Players grow a village by finishing focus sessions and tasks. " +
	"Give short, practical focus and planning advice. Stay encouraging, never clinical."

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Coach struct {
	apiKey string
	model  string
	client *genai.Client
}

// New returns a coach; with an empty API key every Chat call reports the
// coach as unavailable rather than failing at startup.
func New(apiKey, modelName string) *Coach {
	return &Coach{apiKey: apiKey, model: modelName}
}

func (c *Coach) Enabled() bool {
	return c.apiKey != ""
}

// Chat sends the conversation plus a profile summary and returns the
// model's reply.
func (c *Coach) Chat(ctx context.Context, profile model.Profile, messages []Message) (string, *apperrors.APIError) {
	if !c.Enabled() {
		return "", apperrors.Unavailable("coach_unavailable", "coach backend is not configured")
	}
	if len(messages) == 0 {
		return "", apperrors.BadRequest("empty_conversation", "at least one message is required")
	}

	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return "", apperrors.Unavailable("coach_unavailable", "failed to reach coach backend")
		}
		c.client = client
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			// Gemini uses "model" instead of "assistant".
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Text}},
		})
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt + "\n\n" + summarize(profile)}},
		},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", apperrors.Unavailable("coach_unavailable", "coach backend request failed")
	}
	if result == nil || result.Text() == "" {
		return "", apperrors.Unavailable("coach_unavailable", "coach backend returned no reply")
	}
	return result.Text(), nil
}

func summarize(profile model.Profile) string {
	return fmt.Sprintf(
		"Player stats: level %d, %d total focus minutes, %d completed tasks, %d day streak, %d resource points.",
		profile.Level,
		profile.TotalFocusMinutes,
		profile.CompletedTaskCount,
		profile.StreakDays,
		profile.ResourcePoints,
	)
}
