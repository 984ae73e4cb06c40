package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"context-stack/internal/models"
	"context-stack/shared/config"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from model")

// Completer sends a conversation to Gemini and returns the reply text
type Completer struct {
	client *genai.Client
	model  string
}

func NewCompleter(ctx context.Context, cfg *config.AIConfig) (*Completer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Completer{
		client: client,
		model:  cfg.Model,
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []models.Message) (string, error) {
	contents, system := buildContents(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("conversation has no user or assistant messages")
	}

	var genConfig *genai.GenerateContentConfig
	if system != nil {
		genConfig = &genai.GenerateContentConfig{SystemInstruction: system}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion with %s: %w", c.model, err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// buildContents maps chat messages to Gemini contents. System messages are
// merged into a single system instruction.
func buildContents(messages []models.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}
