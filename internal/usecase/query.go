package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ticket-insights/internal/domain"
)

// QueryStore is the read surface consumed by the API.
type QueryStore interface {
	ListHeaders(ctx context.Context) ([]domain.Header, error)
	QueryHeaders(ctx context.Context, jobID string) ([]domain.Header, error)
	QueryCalls(ctx context.Context, jobID string) ([]domain.Call, error)
	QueryInteractions(ctx context.Context, jobID string) ([]domain.Interaction, error)
	GetCall(ctx context.Context, jobID, callID string) (*domain.Call, error)
}

// QueryService assembles stored records for API consumers and answers
// ad-hoc questions about a single call transcript.
type QueryService struct {
	store     QueryStore
	objects   ObjectGetter
	generator TextGenerator
}

// TicketDetail is one job's full record set: the header, the comments log in
// ascending timestamp order, and the phone calls.
type TicketDetail struct {
	Header      domain.Header        `json:"header"`
	CommentsLog []domain.Interaction `json:"commentsLog"`
	PhoneCalls  []domain.Call        `json:"phoneCalls"`
}

// CallDetail pairs a call record with its raw transcript analytics blob.
type CallDetail struct {
	Call      domain.Call     `json:"call"`
	Analytics json.RawMessage `json:"jsonData,omitempty"`
}

func NewQueryService(store QueryStore, objects ObjectGetter, generator TextGenerator) (*QueryService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if objects == nil {
		return nil, errors.New("usecase: object getter must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	return &QueryService{store: store, objects: objects, generator: generator}, nil
}

// ListTickets returns every job's header record.
func (s *QueryService) ListTickets(ctx context.Context) ([]domain.Header, error) {
	headers, err := s.store.ListHeaders(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "header_list_failed", err)
	}
	return headers, nil
}

// GetTicket returns the assembled records for one job. A job without a
// header is a not-found condition, not an internal error.
func (s *QueryService) GetTicket(ctx context.Context, jobID string) (TicketDetail, error) {
	if strings.TrimSpace(jobID) == "" {
		return TicketDetail{}, newError(ErrorInvalidInput, "missing_job_id", nil)
	}
	headers, err := s.store.QueryHeaders(ctx, jobID)
	if err != nil {
		return TicketDetail{}, newError(ErrorInternal, "header_query_failed", err)
	}
	if len(headers) == 0 {
		return TicketDetail{}, newError(ErrorNotFound, "ticket_not_found", nil)
	}

	interactions, err := s.store.QueryInteractions(ctx, jobID)
	if err != nil {
		return TicketDetail{}, newError(ErrorInternal, "interaction_query_failed", err)
	}
	calls, err := s.store.QueryCalls(ctx, jobID)
	if err != nil {
		return TicketDetail{}, newError(ErrorInternal, "call_query_failed", err)
	}
	return TicketDetail{Header: headers[0], CommentsLog: interactions, PhoneCalls: calls}, nil
}

// GetCall returns one call record together with its transcript analytics.
func (s *QueryService) GetCall(ctx context.Context, jobID, callID string) (CallDetail, error) {
	call, err := s.lookupCall(ctx, jobID, callID)
	if err != nil {
		return CallDetail{}, err
	}
	detail := CallDetail{Call: *call}
	if call.InterimResultsFile != "" {
		body, err := s.objects.GetObject(ctx, call.InterimResultsFile)
		if err != nil {
			return CallDetail{}, newError(ErrorUpstream, "transcript_fetch_failed", err)
		}
		detail.Analytics = json.RawMessage(body)
	}
	return detail, nil
}

// AskCall answers a free-form question about one call transcript.
func (s *QueryService) AskCall(ctx context.Context, jobID, callID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", newError(ErrorInvalidInput, "empty_question", nil)
	}
	call, err := s.lookupCall(ctx, jobID, callID)
	if err != nil {
		return "", err
	}
	if call.InterimResultsFile == "" {
		return "", newError(ErrorInvalidInput, "call_not_enriched", nil)
	}

	body, err := s.objects.GetObject(ctx, call.InterimResultsFile)
	if err != nil {
		return "", newError(ErrorUpstream, "transcript_fetch_failed", err)
	}
	var transcript domain.Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return "", newError(ErrorInternal, "transcript_decode_failed", err)
	}

	prompt := strings.ReplaceAll(askPromptTemplate, "{transcript}", transcript.Text())
	prompt = strings.ReplaceAll(prompt, "{question}", question)
	zeroTemp := float32(0)
	answer, err := s.generator.Generate(ctx, prompt, domain.GenerateParams{Temperature: &zeroTemp})
	if err != nil {
		return "", newError(ErrorUpstream, "question_generation_failed", err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *QueryService) lookupCall(ctx context.Context, jobID, callID string) (*domain.Call, error) {
	if strings.TrimSpace(jobID) == "" || strings.TrimSpace(callID) == "" {
		return nil, newError(ErrorInvalidInput, "missing_job_or_call_id", nil)
	}
	call, err := s.store.GetCall(ctx, jobID, callID)
	if err != nil {
		return nil, newError(ErrorInternal, "call_query_failed", err)
	}
	if call == nil {
		return nil, newError(ErrorNotFound, "call_not_found", nil)
	}
	return call, nil
}
