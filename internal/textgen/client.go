package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("text generator returned an empty response")

// Config for the text generator
type Config struct {
	APIKey                  string
	Model                   string
	BaseURL                 string // empty uses the OpenAI default
	ComposeInstructionsFile string
	AnalyzeInstructionsFile string
	Timeout                 time.Duration
}

// Client composes feedback requests and analyzes replies with a chat model
type Client struct {
	api                 openai.Client
	model               string
	composeInstructions string
	analyzeInstructions string
	timeout             time.Duration
	logger              *slog.Logger
}

// NewClient creates a new text generator. Instruction files, when set, must
// be readable.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	compose, err := loadInstructions(cfg.ComposeInstructionsFile, DefaultComposeInstructions)
	if err != nil {
		return nil, err
	}
	analyze, err := loadInstructions(cfg.AnalyzeInstructionsFile, DefaultAnalyzeInstructions)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// one attempt per call; failures are retried on the next tick
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &Client{
		api:                 openai.NewClient(opts...),
		model:               model,
		composeInstructions: compose,
		analyzeInstructions: analyze,
		timeout:             timeout,
		logger:              logger.With("component", "textgen"),
	}, nil
}

// Compose writes a feedback request email from the deal prompt
func (c *Client) Compose(ctx context.Context, prompt string) (string, error) {
	text, err := c.complete(ctx, c.composeInstructions, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to compose email: %w", err)
	}
	return text, nil
}

// Analyze turns a customer reply into labelled analysis text
func (c *Client) Analyze(ctx context.Context, reply string) (string, error) {
	text, err := c.complete(ctx, c.analyzeInstructions, reply)
	if err != nil {
		return "", fmt.Errorf("failed to analyze reply: %w", err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, instructions, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(input),
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("completion finished",
		"model", resp.Model,
		"duration", time.Since(start),
		"total_tokens", resp.Usage.TotalTokens,
	)

	return text, nil
}

func loadInstructions(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	return text, nil
}
