// Package bedrock adapts modelgateway.Client onto the AWS Bedrock Converse
// API via github.com/aws/aws-sdk-go-v2/service/bedrockruntime.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client used
// by the adapter, matching *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the adapter.
type Options struct {
	Runtime      RuntimeClient
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements modelgateway.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds an adapter from the given options.
func New(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{
		runtime:      opts.Runtime,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// Complete issues a Converse request and translates the response.
func (c *Client) Complete(ctx context.Context, req *modelgateway.Request) (*modelgateway.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	var system []brtypes.SystemContentBlock
	var messages []brtypes.Message
	for _, m := range req.Messages {
		text := m.Text()
		if text == "" {
			continue
		}
		switch m.Role {
		case modelgateway.RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: text})
		case modelgateway.RoleUser:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		case modelgateway.RoleAssistant:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		}
	}
	if len(messages) == 0 {
		return nil, errors.New("bedrock: at least one user/assistant message is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if len(system) > 0 {
		input.System = system
	}
	if cfg := c.inferenceConfig(req.MaxTokens, req.Temperature); cfg != nil {
		input.InferenceConfig = cfg
	}

	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, &modelgateway.TransientError{Cause: fmt.Errorf("bedrock converse: %w", err)}
	}
	return translateResponse(output)
}

func (c *Client) inferenceConfig(maxTokens int, temp float32) *brtypes.InferenceConfiguration {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if temp <= 0 {
		temp = c.temperature
	}
	if maxTokens <= 0 && temp <= 0 {
		return nil
	}
	var cfg brtypes.InferenceConfiguration
	if maxTokens > 0 {
		m := int32(maxTokens)
		cfg.MaxTokens = &m
	}
	if temp > 0 {
		cfg.Temperature = &temp
	}
	return &cfg
}

func translateResponse(output *bedrockruntime.ConverseOutput) (*modelgateway.Response, error) {
	msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, modelgateway.ErrEmptyCompletion
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	if text == "" {
		return nil, modelgateway.ErrEmptyCompletion
	}
	resp := &modelgateway.Response{Content: text, StopReason: string(output.StopReason)}
	if u := output.Usage; u != nil {
		if u.InputTokens != nil {
			resp.Usage.InputTokens = int(*u.InputTokens)
		}
		if u.OutputTokens != nil {
			resp.Usage.OutputTokens = int(*u.OutputTokens)
		}
	}
	return resp, nil
}
