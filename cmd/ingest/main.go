package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"ticket-insights/internal/domain"
	"ticket-insights/internal/integrations/transcriptstore"
	"ticket-insights/internal/repository"
	"ticket-insights/internal/usecase"
)

// ingestEvent is the workflow payload for the ingestion stage.
type ingestEvent struct {
	TicketID   string             `json:"ticketId"`
	JobID      string             `json:"jobId"`
	NotesKey   string             `json:"notesKey"`
	AudioFiles []domain.AudioFile `json:"audioFiles"`
}

type ingestResult struct {
	TicketID           string `json:"ticketId"`
	JobID              string `json:"jobId"`
	TicketCreationTime int64  `json:"ticketCreationTime"`
	Calls              int    `json:"calls"`
	Interactions       int    `json:"interactions"`
}

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	metadataTable := mustEnv("METADATA_TABLE")
	recordTypeIndex := mustEnv("RECORD_TYPE_INDEX")
	inputBucket := mustEnv("INPUT_BUCKET")

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
	objects, err := transcriptstore.New(awss3.NewFromConfig(cfg), inputBucket)
	if err != nil {
		slog.Error("failed to create object store client", "err", err)
		os.Exit(1)
	}

	svc, err := usecase.NewIngestService(objects, store)
	if err != nil {
		slog.Error("failed to create ingest service", "err", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event ingestEvent) (ingestResult, error) {
		out, err := svc.Ingest(ctx, usecase.IngestInput{
			TicketID:   event.TicketID,
			JobID:      event.JobID,
			NotesKey:   event.NotesKey,
			AudioFiles: event.AudioFiles,
		})
		if err != nil {
			slog.Error("ingest failed", "jobId", event.JobID, "err", err)
			return ingestResult{}, err
		}
		return ingestResult{
			TicketID:           event.TicketID,
			JobID:              event.JobID,
			TicketCreationTime: out.TicketCreationTime,
			Calls:              out.Calls,
			Interactions:       out.Interactions,
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
