package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"ticket-insights/internal/integrations/bedrock"
	"ticket-insights/internal/integrations/paramstore"
	"ticket-insights/internal/repository"
	"ticket-insights/internal/usecase"
)

const defaultMaxTokens = 4096

// notesEvent is the workflow payload for the written-notes QA stage.
type notesEvent struct {
	TicketID string `json:"ticketId"`
	JobID    string `json:"jobId"`
}

type notesResult struct {
	JobID  string `json:"jobId"`
	Scored int    `json:"scored"`
	Failed int    `json:"failed"`
}

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	metadataTable := mustEnv("METADATA_TABLE")
	recordTypeIndex := mustEnv("RECORD_TYPE_INDEX")
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

	scorer, err := usecase.NewQAScorer(generator)
	if err != nil {
		slog.Error("failed to create QA scorer", "err", err)
		os.Exit(1)
	}
	svc, err := usecase.NewEnrichNotesService(store, scorer, slog.Default())
	if err != nil {
		slog.Error("failed to create notes enrichment service", "err", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event notesEvent) (notesResult, error) {
		out, err := svc.EnrichNotes(ctx, usecase.EnrichNotesInput{
			TicketID: event.TicketID,
			JobID:    event.JobID,
		})
		if err != nil {
			slog.Error("notes enrichment failed", "jobId", event.JobID, "err", err)
			return notesResult{}, err
		}
		return notesResult{JobID: event.JobID, Scored: out.Scored, Failed: out.Failed}, nil
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
