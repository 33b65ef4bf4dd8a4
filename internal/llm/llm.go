// Package llm drafts question texts through an OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// MaxDraft caps the number of questions requested in one call.
const MaxDraft = 50

// DraftResult is the JSON object the model is asked to return.
type DraftResult struct {
	Questions []string `json:"questions"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// Ping checks that the endpoint answers a model listing.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// DraftQuestions asks the model for n distinct question texts on topic.
// Texts already in existing are skipped. Fewer than n texts may be returned.
func (c *Client) DraftQuestions(ctx context.Context, topic string, n int, existing []string) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > MaxDraft {
		n = MaxDraft
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildDraftSystemPrompt(n, existing)},
			{Role: openai.ChatMessageRoleUser, Content: "TOPIC: " + topic},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	questions, err := parseDraft(raw, n, existing)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func buildDraftSystemPrompt(n int, existing []string) string {
	var sb strings.Builder
	sb.WriteString("You write questions for a practical computer lab exam. ")
	sb.WriteString("Each student receives exactly one question and answers it by submitting a file.\n\n")
	sb.WriteString(fmt.Sprintf("Write %d distinct questions on the topic given by the user.\n", n))
	sb.WriteString("- Questions must be of similar difficulty, since neighbouring students get different ones.\n")
	sb.WriteString("- Each question must be self-contained and answerable within the exam time.\n")
	sb.WriteString("- Do not number the questions.\n")

	if len(existing) > 0 {
		sb.WriteString("\nThe exam already has these questions, do NOT repeat them:\n")
		for _, q := range existing {
			sb.WriteString("- " + q + "\n")
		}
	}

	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"questions": ["<question 1>", "<question 2>"]}`)
	sb.WriteString("\n")

	return sb.String()
}

// parseDraft decodes the model's JSON, dropping blank and repeated texts.
func parseDraft(raw string, n int, existing []string) ([]string, error) {
	var result DraftResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	seen := make(map[string]bool, len(existing))
	for _, q := range existing {
		seen[strings.TrimSpace(q)] = true
	}

	var out []string
	for _, q := range result.Questions {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out, nil
}
