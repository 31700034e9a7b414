package transcriptstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ticket-insights/internal/domain"
)

// s3API is the minimal S3 interface required by Client.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client wraps the S3 bucket holding per-call transcript/analytics blobs and
// the raw ticket inputs (note exports).
type Client struct {
	api    s3API
	bucket string
}

// New creates a Client bound to one bucket.
func New(api s3API, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("transcriptstore: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("transcriptstore: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket}, nil
}

// GetObject reads one object in full.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("transcriptstore: key is required")
	}
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("transcriptstore: get object %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("transcriptstore: read object %q: %w", key, err)
	}
	return body, nil
}

// FetchTranscript reads and decodes the transcript blob stored at key.
func (c *Client) FetchTranscript(ctx context.Context, key string) (*domain.Transcript, error) {
	body, err := c.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var transcript domain.Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return nil, fmt.Errorf("transcriptstore: decode transcript %q: %w", key, err)
	}
	return &transcript, nil
}

// PutTranscript writes the transcript blob back to key, replacing the
// previous object.
func (c *Client) PutTranscript(ctx context.Context, key string, transcript *domain.Transcript) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("transcriptstore: key is required")
	}
	if transcript == nil {
		return errors.New("transcriptstore: transcript must not be nil")
	}
	body, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("transcriptstore: encode transcript %q: %w", key, err)
	}
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("transcriptstore: put object %q: %w", key, err)
	}
	return nil
}
