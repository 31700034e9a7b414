package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ticket-insights/internal/domain"
)

// AggregationStore is the metadata surface the fan-in stage reads and
// finalizes through.
type AggregationStore interface {
	QueryHeaders(ctx context.Context, jobID string) ([]domain.Header, error)
	QueryCalls(ctx context.Context, jobID string) ([]domain.Call, error)
	QueryInteractions(ctx context.Context, jobID string) ([]domain.Interaction, error)
	FinalizeHeader(ctx context.Context, jobID string, creationTime int64, fin domain.HeaderFinalization) error
}

// TranscriptFetcher reads enriched transcript blobs for the combined log.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, key string) (*domain.Transcript, error)
}

// AggregateService merges every call and note of a job into one combined
// transcript, derives the ticket-level summaries and sentiment, and moves
// the header terminally to PROCESSED. The fan-in barrier before this stage
// is the orchestrator's job; the service reads whatever state exists.
type AggregateService struct {
	store       AggregationStore
	transcripts TranscriptFetcher
	generator   TextGenerator
	logger      *slog.Logger
}

type AggregateInput struct {
	JobID    string
	TicketID string
}

type AggregateOutput struct {
	OverallSummary   string
	ExecutiveSummary string
	SentimentScore   float64
	SentimentChange  float64
}

func NewAggregateService(store AggregationStore, transcripts TranscriptFetcher, generator TextGenerator, logger *slog.Logger) (*AggregateService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if transcripts == nil {
		return nil, errors.New("usecase: transcript store must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregateService{store: store, transcripts: transcripts, generator: generator, logger: logger}, nil
}

func (s *AggregateService) Aggregate(ctx context.Context, in AggregateInput) (AggregateOutput, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return AggregateOutput{}, newError(ErrorInvalidInput, "missing_job_id", nil)
	}

	headers, err := s.store.QueryHeaders(ctx, in.JobID)
	if err != nil {
		return AggregateOutput{}, newError(ErrorInternal, "header_query_failed", err)
	}
	if len(headers) == 0 {
		return AggregateOutput{}, newError(ErrorNotFound, "header_missing", nil)
	}

	interactions, err := s.store.QueryInteractions(ctx, in.JobID)
	if err != nil {
		return AggregateOutput{}, newError(ErrorInternal, "interaction_query_failed", err)
	}
	calls, err := s.store.QueryCalls(ctx, in.JobID)
	if err != nil {
		return AggregateOutput{}, newError(ErrorInternal, "call_query_failed", err)
	}

	combined, err := s.combineTranscripts(ctx, calls, interactions)
	if err != nil {
		return AggregateOutput{}, err
	}

	fields, err := s.generateTicketSummaries(ctx, combined)
	if err != nil {
		return AggregateOutput{}, err
	}

	out := AggregateOutput{
		OverallSummary:   fields["OverallSummary"],
		ExecutiveSummary: fields["ExecutiveSummary"],
		SentimentScore:   parseClampedScore(fields["Sentiment"], -1, 1),
		SentimentChange:  parseClampedScore(fields["SentimentChange"], -5, 5),
	}
	fin := domain.HeaderFinalization{
		OverallSummary:   out.OverallSummary,
		ExecutiveSummary: out.ExecutiveSummary,
		SentimentScore:   out.SentimentScore,
		SentimentChange:  out.SentimentChange,
	}
	if err := s.store.FinalizeHeader(ctx, in.JobID, headers[0].Timestamp, fin); err != nil {
		return AggregateOutput{}, newError(ErrorInternal, "header_finalize_failed", err)
	}
	return out, nil
}

// combineTranscripts builds the single buffer all four ticket prompts run
// against: the audio transcripts in call order, then the comments log. Calls
// without an enriched transcript are skipped, not fatal.
func (s *AggregateService) combineTranscripts(ctx context.Context, calls []domain.Call, interactions []domain.Interaction) (string, error) {
	var b strings.Builder
	b.WriteString("\n")

	n := 0
	for _, call := range calls {
		if call.InterimResultsFile == "" {
			s.logger.Warn("call has no transcript, skipping", "callId", call.CallID)
			continue
		}
		transcript, err := s.transcripts.FetchTranscript(ctx, call.InterimResultsFile)
		if err != nil {
			return "", newError(ErrorUpstream, "transcript_fetch_failed",
				fmt.Errorf("call %s: %w", call.CallID, err))
		}
		n++
		fmt.Fprintf(&b, "Audio Call %d\n%s\n\n", n, transcript.Text())
	}

	b.WriteString("\nTicket Comments log\n")
	for _, note := range interactions {
		fmt.Fprintf(&b, "\n%s: %s\n", note.Initiator, note.Content)
	}
	return b.String(), nil
}

// generateTicketSummaries runs the four header prompts. Unlike per-call
// summarization there is no degraded mode here: a failed prompt fails the
// stage, which the orchestrator re-invokes.
func (s *AggregateService) generateTicketSummaries(ctx context.Context, combined string) (map[string]string, error) {
	zeroTemp := float32(0)
	fields := make(map[string]string, 4)
	for _, tpl := range ticketPromptTemplates() {
		text, err := s.generator.Generate(ctx, renderPrompt(tpl.Template, combined), domain.GenerateParams{Temperature: &zeroTemp})
		if err != nil {
			return nil, newError(ErrorUpstream, "ticket_summary_failed",
				fmt.Errorf("prompt %s: %w", tpl.Key, err))
		}
		fields[tpl.Key] = strings.TrimSpace(text)
	}
	return fields, nil
}

// parseClampedScore validates a model-returned numeric string, clamping to
// [min, max] and falling back to 0 when the output is not a number.
func parseClampedScore(raw string, min, max float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
