package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

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

// callEvent is the workflow payload for one transcribed call.
type callEvent struct {
	TicketID           string `json:"ticketId"`
	JobID              string `json:"jobId"`
	CallID             string `json:"callId"`
	InterimResultsFile string `json:"interimResultsFile"`
}

type callResult struct {
	JobID        string `json:"jobId"`
	CallID       string `json:"callId"`
	LanguageCode string `json:"languageCode"`
	QAScored     bool   `json:"qaScored"`
}

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	metadataTable := mustEnv("METADATA_TABLE")
	recordTypeIndex := mustEnv("RECORD_TYPE_INDEX")
	outputBucket := mustEnv("OUTPUT_BUCKET")
	paramPrefix := mustEnv("PARAM_PREFIX")
	activePrompts := envList("ACTIVE_PROMPTS")

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

	scorer, err := usecase.NewQAScorer(generator)
	if err != nil {
		slog.Error("failed to create QA scorer", "err", err)
		os.Exit(1)
	}
	svc, err := usecase.NewEnrichCallService(transcripts, store, scorer, generator, activePrompts, slog.Default())
	if err != nil {
		slog.Error("failed to create call enrichment service", "err", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event callEvent) (callResult, error) {
		out, err := svc.EnrichCall(ctx, usecase.EnrichCallInput{
			TicketID:           event.TicketID,
			JobID:              event.JobID,
			CallID:             event.CallID,
			InterimResultsFile: event.InterimResultsFile,
		})
		if err != nil {
			slog.Error("call enrichment failed", "jobId", event.JobID, "callId", event.CallID, "err", err)
			return callResult{}, err
		}
		return callResult{
			JobID:        event.JobID,
			CallID:       event.CallID,
			LanguageCode: out.LanguageCode,
			QAScored:     out.QAReport != nil,
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
