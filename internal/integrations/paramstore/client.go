package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter. Consumers should depend on
// this interface rather than the concrete *Client so they remain testable
// without real AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// ModelConfig holds the generation settings operators tune in Parameter Store
// without redeploying the pipeline.
type ModelConfig struct {
	ModelID   string
	MaxTokens int32
}

// LoadModelConfig reads the model configuration from under prefix. The model
// id parameter is required; max_tokens falls back to def when absent.
func LoadModelConfig(ctx context.Context, g Getter, prefix string, def int32) (ModelConfig, error) {
	if g == nil {
		return ModelConfig{}, errors.New("paramstore: getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ModelConfig{}, errors.New("paramstore: parameter prefix must not be empty")
	}

	modelID, err := g.GetParameter(ctx, prefix+"/bedrock_model_id")
	if err != nil {
		return ModelConfig{}, fmt.Errorf("paramstore: load model id: %w", err)
	}

	cfg := ModelConfig{ModelID: modelID, MaxTokens: def}
	raw, err := g.GetParameter(ctx, prefix+"/max_tokens")
	if err != nil {
		return cfg, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || n <= 0 {
		return ModelConfig{}, fmt.Errorf("paramstore: invalid max_tokens %q", raw)
	}
	cfg.MaxTokens = int32(n)
	return cfg, nil
}
