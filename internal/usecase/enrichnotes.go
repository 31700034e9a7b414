package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ticket-insights/internal/domain"
)

// NotesStore is the metadata surface notes enrichment reads and writes.
type NotesStore interface {
	QueryAgentInteractions(ctx context.Context, jobID string) ([]domain.Interaction, error)
	UpdateInteractionQA(ctx context.Context, jobID, sortKey string, report *domain.QAReport) error
}

// EnrichNotesService QA-scores every agent-authored note of a job. Notes are
// independent: one failing note never blocks the others.
type EnrichNotesService struct {
	store  NotesStore
	scorer RuleScorer
	logger *slog.Logger
}

type EnrichNotesInput struct {
	JobID    string
	TicketID string
}

type EnrichNotesOutput struct {
	Scored int
	Failed int
}

func NewEnrichNotesService(store NotesStore, scorer RuleScorer, logger *slog.Logger) (*EnrichNotesService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if scorer == nil {
		return nil, errors.New("usecase: scorer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichNotesService{store: store, scorer: scorer, logger: logger}, nil
}

func (s *EnrichNotesService) EnrichNotes(ctx context.Context, in EnrichNotesInput) (EnrichNotesOutput, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return EnrichNotesOutput{}, newError(ErrorInvalidInput, "missing_job_id", nil)
	}

	notes, err := s.store.QueryAgentInteractions(ctx, in.JobID)
	if err != nil {
		return EnrichNotesOutput{}, newError(ErrorInternal, "interaction_query_failed", err)
	}

	out := EnrichNotesOutput{}
	for _, note := range notes {
		report, err := s.scorer.Score(ctx, NotesQACatalog(), note.Content)
		if err != nil {
			s.logger.Error("note QA scoring failed", "jobId", in.JobID, "sortKey", note.SortKey, "err", err)
			out.Failed++
			continue
		}
		if err := s.store.UpdateInteractionQA(ctx, in.JobID, note.SortKey, report); err != nil {
			s.logger.Error("note QA write failed", "jobId", in.JobID, "sortKey", note.SortKey, "err", err)
			out.Failed++
			continue
		}
		out.Scored++
	}
	return out, nil
}
