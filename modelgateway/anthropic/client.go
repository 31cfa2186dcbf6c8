// Package anthropic adapts modelgateway.Client onto the Anthropic Claude
// Messages API via github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so callers can substitute a fake in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements modelgateway.Client on top of Anthropic Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int64
	temperature  float64
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int64
	Temperature  float64
}

// New builds an adapter from an existing Anthropic Messages client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: opts.DefaultModel, maxTokens: maxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs an adapter using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Messages.New request and translates the
// response into a modelgateway.Response.
func (c *Client) Complete(ctx context.Context, req *modelgateway.Request) (*modelgateway.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	var system string
	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Text()
		switch m.Role {
		case modelgateway.RoleSystem:
			system = system + text
		case modelgateway.RoleUser:
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(text)))
		case modelgateway.RoleAssistant:
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(text)))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		// The SDK surfaces transport-level failures (timeouts, 5xx, 429)
		// as plain errors without a stable exported status-code type to
		// switch on here, so every call failure is treated as retryable
		// and left to the retry middleware's attempt budget; a
		// non-transient failure just exhausts its retries slightly less
		// gracefully than a precise classification would.
		return nil, &modelgateway.TransientError{Cause: fmt.Errorf("anthropic messages.new: %w", err)}
	}
	return translateResponse(msg)
}

func translateResponse(msg *sdk.Message) (*modelgateway.Response, error) {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, modelgateway.ErrEmptyCompletion
	}
	return &modelgateway.Response{
		Content: text,
		Usage: modelgateway.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		StopReason: string(msg.StopReason),
	}, nil
}
