// Package llm provides the Anthropic API integration for Consilium agents.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/consilium-health/consilium/internal/config"
)

// Request is one completion request. Zero Temperature and MaxTokens fall back
// to the client defaults. Agent, when set, attributes token usage to that
// agent in the tracker.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Agent       string
}

// Completer is the LLM surface the agents depend on. Stream calls onChunk for
// each text delta and returns the full accumulated text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onChunk func(string)) (string, error)
}

// Client wraps the Anthropic SDK client with token tracking and retry.
type Client struct {
	inner       anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int
	tracker     *TokenTracker
}

var _ Completer = (*Client)(nil)

// NewClient creates a client from configuration. With Bedrock enabled it
// authenticates through the AWS SDK default chain; otherwise it uses the API
// key from config or the ANTHROPIC_API_KEY environment variable.
func NewClient(cfg *config.Config) (*Client, error) {
	var opts []option.RequestOption

	if cfg.Anthropic.Bedrock.Enabled {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Anthropic.Bedrock.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Anthropic.Bedrock.Region))
		}
		if cfg.Anthropic.Bedrock.Profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Anthropic.Bedrock.Profile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.Anthropic.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("no Anthropic API key: set anthropic.api_key or ANTHROPIC_API_KEY")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Anthropic.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.Anthropic.Bedrock.Enabled {
		model = translateModelForBedrock(model)
	}

	return &Client{
		inner:       anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
		tracker:     NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	if strings.HasPrefix(string(model), "us.anthropic") {
		return model
	}
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

func (c *Client) params(req Request) anthropic.MessageNewParams {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens == 0 {
		maxTokens = 2000
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// Complete performs a blocking completion and returns the response text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var text string
	err := withRetry(ctx, func() error {
		resp, err := c.inner.Messages.New(ctx, c.params(req))
		if err != nil {
			return err
		}
		c.tracker.AddFor(req.Agent, resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var b strings.Builder
		for _, block := range resp.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(tb.Text)
			}
		}
		text = b.String()
		return nil
	})
	return text, err
}

// Stream performs a streaming completion, invoking onChunk for each text
// delta, and returns the full accumulated text. onChunk may be nil.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	stream := c.inner.Messages.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	acc := anthropic.Message{}
	var b strings.Builder

	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return b.String(), fmt.Errorf("accumulating stream event: %w", err)
		}
		if deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				b.WriteString(delta.Text)
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return b.String(), err
	}

	c.tracker.AddFor(req.Agent, acc.Usage.InputTokens, acc.Usage.OutputTokens)
	return b.String(), nil
}
