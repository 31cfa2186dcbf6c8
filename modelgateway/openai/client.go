// Package openai adapts modelgateway.Client onto the OpenAI Chat
// Completions API via github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// ChatClient captures the subset of the go-openai client the adapter
// uses, so tests can substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client implements modelgateway.Client via OpenAI Chat Completions.
type Client struct {
	chat  ChatClient
	model string
}

// Options configures the adapter.
type Options struct {
	Client       ChatClient
	DefaultModel string
}

// New builds an adapter from the given options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai: client is required")
	}
	modelID := strings.TrimSpace(opts.DefaultModel)
	if modelID == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: opts.Client, model: modelID}, nil
}

// NewFromAPIKey constructs an adapter using the default go-openai HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	return New(Options{Client: openai.NewClient(apiKey), DefaultModel: defaultModel})
}

// Complete renders a chat completion using the configured client.
func (c *Client) Complete(ctx context.Context, req *modelgateway.Request) (*modelgateway.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case modelgateway.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case modelgateway.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text()})
	}

	request := openai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	resp, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, &modelgateway.TransientError{Cause: fmt.Errorf("openai chat completion: %w", err)}
	}
	return translateResponse(resp)
}

func translateResponse(resp openai.ChatCompletionResponse) (*modelgateway.Response, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, modelgateway.ErrEmptyCompletion
	}
	choice := resp.Choices[0]
	return &modelgateway.Response{
		Content: choice.Message.Content,
		Usage: modelgateway.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		StopReason: string(choice.FinishReason),
	}, nil
}
