package oracle

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 30 * time.Second

// RequiredJSONFormat is the exact response contract sent to the model.
const RequiredJSONFormat = `{"violations":[{"user_id":"123456","reason":"personal attack"}]}`

// Client is the judgment oracle client using an OpenAI-compatible API.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new oracle client. baseURL is optional; an empty value
// targets the OpenAI API.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
	}
}

// Review submits a fully built review prompt and returns the raw response.
// The caller parses it; a slow or stuck backend is cut off by the client
// timeout so a group's lock is never held indefinitely.
func (c *Client) Review(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1, // Low temperature for deterministic verdicts
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// BuildReviewPrompt assembles the review prompt: reviewer preamble, rule
// list (defaults plus optional custom rules), the transcript, and the fixed
// JSON output contract.
func BuildReviewPrompt(defaultRules, customRules, transcript string) string {
	rules := defaultRules
	if customRules != "" {
		rules = fmt.Sprintf("%s\n\nAdditional custom rules:\n%s", rules, customRules)
	}

	return fmt.Sprintf(`You are a group chat moderation assistant. Analyze the messages below and identify violations of these rules:
%s

Message log:
%s

Return the list of violating users as JSON in exactly this format:
%s

If there are no violations, return:
{"violations": []}

Return only the JSON data, no other text.`, rules, transcript, RequiredJSONFormat)
}
