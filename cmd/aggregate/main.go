package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"ticket-insights/internal/integrations/bedrock"
	"ticket-insights/internal/integrations/paramstore"
	"ticket-insights/internal/integrations/transcriptstore"
	"ticket-insights/internal/repository"
	"ticket-insights/internal/usecase"
)

const defaultMaxTokens = 4096

// aggregateEvent is the workflow payload for the final ticket stage.
type aggregateEvent struct {
	TicketID string `json:"ticketId"`
	JobID    string `json:"jobId"`
}

type aggregateResult struct {
	JobID           string  `json:"jobId"`
	SentimentScore  float64 `json:"sentimentScore"`
	SentimentChange float64 `json:"sentimentChange"`
}

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	metadataTable := mustEnv("METADATA_TABLE")
	recordTypeIndex := mustEnv("RECORD_TYPE_INDEX")
	outputBucket := mustEnv("OUTPUT_BUCKET")
	paramPrefix := mustEnv("PARAM_PREFIX")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), metadataTable, recordTypeIndex)
	if err != nil {
		slog.Error("failed to create metadata store", "err", err)
		os.Exit(1)
	}
	transcripts, err := transcriptstore.New(awss3.NewFromConfig(cfg), outputBucket)
	if err != nil {
		slog.Error("failed to create transcript store client", "err", err)
		os.Exit(1)
	}
	params, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	modelCfg, err := paramstore.LoadModelConfig(ctx, params, paramPrefix, defaultMaxTokens)
	if err != nil {
		slog.Error("failed to load model configuration", "err", err)
		os.Exit(1)
	}
	generator, err := bedrock.NewClient(awsbedrock.NewFromConfig(cfg), modelCfg.ModelID, bedrock.WithMaxTokens(modelCfg.MaxTokens))
	if err != nil {
		slog.Error("failed to create Bedrock client", "err", err)
		os.Exit(1)
	}

	svc, err := usecase.NewAggregateService(store, transcripts, generator, slog.Default())
	if err != nil {
		slog.Error("failed to create aggregation service", "err", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event aggregateEvent) (aggregateResult, error) {
		out, err := svc.Aggregate(ctx, usecase.AggregateInput{
			TicketID: event.TicketID,
			JobID:    event.JobID,
		})
		if err != nil {
			slog.Error("ticket aggregation failed", "jobId", event.JobID, "err", err)
			return aggregateResult{}, err
		}
		return aggregateResult{
			JobID:           event.JobID,
			SentimentScore:  out.SentimentScore,
			SentimentChange: out.SentimentChange,
		}, nil
	})
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
