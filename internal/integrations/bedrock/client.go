package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"ticket-insights/internal/domain"
)

const defaultMaxTokens = 4096

// bedrockAPI is the minimal Bedrock Runtime interface required by Client.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type bedrockAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Generator is the prompt-in/text-out contract consumed by the pipeline
// stages. The service is treated as a black box: responses carry no
// structured-output guarantee and callers re-parse anything JSON-shaped.
type Generator interface {
	Generate(ctx context.Context, prompt string, params domain.GenerateParams) (string, error)
}

// Client invokes a Bedrock model through the provider-agnostic Converse API.
type Client struct {
	api       bedrockAPI
	modelID   string
	maxTokens int32
}

type Option func(*Client)

// WithMaxTokens overrides the default output-token ceiling.
func WithMaxTokens(n int32) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// NewClient creates a Client bound to one model id.
func NewClient(api bedrockAPI, modelID string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	c := &Client{api: api, modelID: modelID, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends a single user prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.GenerateParams) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("bedrock: prompt must not be empty")
	}

	inference := &types.InferenceConfiguration{
		MaxTokens: aws.Int32(c.maxTokens),
	}
	if params.Temperature != nil {
		inference.Temperature = params.Temperature
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
		InferenceConfig: inference,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse: %w", err)
	}

	return outputText(out)
}

func outputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", errors.New("bedrock: empty converse output")
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock: unexpected output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", errors.New("bedrock: no text content in response")
}
