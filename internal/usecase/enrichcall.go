package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"ticket-insights/internal/domain"
)

// Sentinel texts persisted when summarization degrades rather than aborts.
const (
	failedSummaryText = "An error occurred generating the summary."
	noSummaryText     = "No Summary Available"
)

// TranscriptReadWriter is the transcript-store surface call enrichment needs:
// read the analytics blob and write the enriched blob back to the same key.
type TranscriptReadWriter interface {
	FetchTranscript(ctx context.Context, key string) (*domain.Transcript, error)
	PutTranscript(ctx context.Context, key string, transcript *domain.Transcript) error
}

// RuleScorer judges one transcript against a rule catalog.
type RuleScorer interface {
	Score(ctx context.Context, catalog Catalog, transcript string) (*domain.QAReport, error)
}

// CallUpdater applies the terminal enrichment write to a call record.
type CallUpdater interface {
	UpdateCallEnrichment(ctx context.Context, jobID, callID string, enr domain.CallEnrichment) error
}

// EnrichCallService runs the per-call pipeline task: summarization prompts,
// QA scoring, transcript write-back and the single call-record mutation.
// Instances are independent per call and share no mutable state.
type EnrichCallService struct {
	transcripts TranscriptReadWriter
	store       CallUpdater
	scorer      RuleScorer
	generator   TextGenerator
	promptKeys  map[string]bool // nil means every catalog prompt is active
	logger      *slog.Logger
}

type EnrichCallInput struct {
	JobID              string
	TicketID           string
	CallID             string
	InterimResultsFile string
}

type EnrichCallOutput struct {
	Summary      map[string]string
	QAReport     *domain.QAReport
	LanguageCode string
	Duration     float64
}

func NewEnrichCallService(transcripts TranscriptReadWriter, store CallUpdater, scorer RuleScorer, generator TextGenerator, activePrompts []string, logger *slog.Logger) (*EnrichCallService, error) {
	if transcripts == nil {
		return nil, errors.New("usecase: transcript store must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if scorer == nil {
		return nil, errors.New("usecase: scorer must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var keys map[string]bool
	if len(activePrompts) > 0 {
		keys = make(map[string]bool, len(activePrompts))
		for _, k := range activePrompts {
			keys[k] = true
		}
	}
	return &EnrichCallService{
		transcripts: transcripts,
		store:       store,
		scorer:      scorer,
		generator:   generator,
		promptKeys:  keys,
		logger:      logger,
	}, nil
}

func (s *EnrichCallService) EnrichCall(ctx context.Context, in EnrichCallInput) (EnrichCallOutput, error) {
	if strings.TrimSpace(in.JobID) == "" || strings.TrimSpace(in.CallID) == "" {
		return EnrichCallOutput{}, newError(ErrorInvalidInput, "missing_job_or_call_id", nil)
	}
	if strings.TrimSpace(in.InterimResultsFile) == "" {
		return EnrichCallOutput{}, newError(ErrorInvalidInput, "missing_interim_results_file", nil)
	}

	transcript, err := s.transcripts.FetchTranscript(ctx, in.InterimResultsFile)
	if err != nil {
		return EnrichCallOutput{}, newError(ErrorUpstream, "transcript_fetch_failed", err)
	}
	text := transcript.Text()

	summary := s.generateSummaries(ctx, in.CallID, text)

	report, err := s.scorer.Score(ctx, CallQACatalog(), text)
	if err != nil {
		// A failed QA pass is fatal only to itself; summarization results
		// still land on the record.
		s.logger.Error("call QA scoring failed", "jobId", in.JobID, "callId", in.CallID, "err", err)
		report = nil
	}

	transcript.ConversationAnalytics.Summary = summary
	transcript.ConversationAnalytics.QAReport = report
	if err := s.transcripts.PutTranscript(ctx, in.InterimResultsFile, transcript); err != nil {
		return EnrichCallOutput{}, newError(ErrorUpstream, "transcript_write_failed", err)
	}

	sentiment := transcript.CustomerSentiment()
	summaryText, ok := summary["Summary"]
	if !ok || summaryText == "" {
		summaryText = noSummaryText
	}
	enrichment := domain.CallEnrichment{
		InterimResultsFile: in.InterimResultsFile,
		LanguageCode:       transcript.ConversationAnalytics.LanguageCode,
		Duration:           transcript.ConversationAnalytics.Duration,
		SentimentScore:     sentiment.SentimentScore,
		SentimentChange:    sentiment.SentimentChange,
		Summary:            summaryText,
		QAReport:           report,
	}
	if err := s.store.UpdateCallEnrichment(ctx, in.JobID, in.CallID, enrichment); err != nil {
		return EnrichCallOutput{}, newError(ErrorInternal, "call_update_failed", err)
	}

	return EnrichCallOutput{
		Summary:      summary,
		QAReport:     report,
		LanguageCode: transcript.ConversationAnalytics.LanguageCode,
		Duration:     transcript.ConversationAnalytics.Duration,
	}, nil
}

// generateSummaries runs the active single-purpose prompts independently. A
// prompt failure substitutes the sentinel text for that field and the task
// moves on; it never aborts the call.
func (s *EnrichCallService) generateSummaries(ctx context.Context, callID, transcript string) map[string]string {
	zeroTemp := float32(0)
	result := make(map[string]string)
	active := make([]promptTemplate, 0)
	for _, tpl := range callPromptTemplates() {
		if s.promptKeys == nil || s.promptKeys[tpl.Key] {
			active = append(active, tpl)
		}
	}

	for _, tpl := range active {
		text, err := s.generator.Generate(ctx, renderPrompt(tpl.Template, transcript), domain.GenerateParams{Temperature: &zeroTemp})
		if err != nil {
			s.logger.Error("summarization prompt failed", "callId", callID, "prompt", tpl.Key, "err", err)
			result[tpl.Key] = failedSummaryText
			continue
		}
		result[tpl.Key] = strings.TrimSpace(text)
	}

	// A single configured prompt may itself return a JSON document whose
	// fields replace the one-key map.
	if len(active) == 1 {
		if nested := parseNestedSummary(result[active[0].Key]); nested != nil {
			return nested
		}
	}
	return result
}

func parseNestedSummary(raw string) map[string]string {
	var nested map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		return nil
	}
	out := make(map[string]string, len(nested))
	for key, value := range nested {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			text = string(value)
		}
		out[key] = text
	}
	return out
}
