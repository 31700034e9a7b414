package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ticket-insights/internal/domain"
)

type stubAggregationStore struct {
	headers        []domain.Header
	calls          []domain.Call
	interactions   []domain.Interaction
	queryErr       error
	finalizeErr    error
	finalizedJobID string
	finalizedAt    int64
	finalized      *domain.HeaderFinalization
}

func (s *stubAggregationStore) QueryHeaders(context.Context, string) ([]domain.Header, error) {
	return s.headers, s.queryErr
}

func (s *stubAggregationStore) QueryCalls(context.Context, string) ([]domain.Call, error) {
	return s.calls, s.queryErr
}

func (s *stubAggregationStore) QueryInteractions(context.Context, string) ([]domain.Interaction, error) {
	return s.interactions, s.queryErr
}

func (s *stubAggregationStore) FinalizeHeader(_ context.Context, jobID string, creationTime int64, fin domain.HeaderFinalization) error {
	s.finalizedJobID = jobID
	s.finalizedAt = creationTime
	s.finalized = &fin
	return s.finalizeErr
}

type transcriptMapFetcher struct {
	transcripts map[string]*domain.Transcript
	err         error
}

func (s *transcriptMapFetcher) FetchTranscript(_ context.Context, key string) (*domain.Transcript, error) {
	if s.err != nil {
		return nil, s.err
	}
	tr, ok := s.transcripts[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return tr, nil
}

// ticketGenerator answers the four header prompts with fixed values and
// records the combined transcript each prompt saw.
type ticketGenerator struct {
	sentiment       string
	sentimentChange string
	err             error
	prompts         []string
}

func (g *ticketGenerator) Generate(_ context.Context, prompt string, _ domain.GenerateParams) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.Contains(prompt, "sentiment change score"):
		return g.sentimentChange, nil
	case strings.Contains(prompt, "overall sentiment score"):
		return g.sentiment, nil
	case strings.Contains(prompt, "executive summary"):
		return "executive summary text", nil
	default:
		return "overall summary text", nil
	}
}

func speech(lines ...string) *domain.Transcript {
	tr := &domain.Transcript{}
	for _, line := range lines {
		speaker, text, _ := strings.Cut(line, ": ")
		tr.SpeechSegments = append(tr.SpeechSegments, domain.SpeechSegment{Speaker: speaker, Text: text})
	}
	return tr
}

func newAggregateFixture(t *testing.T) (*AggregateService, *stubAggregationStore, *transcriptMapFetcher, *ticketGenerator) {
	t.Helper()
	store := &stubAggregationStore{
		headers: []domain.Header{{JobID: "job-1", TicketID: "T-1", Timestamp: 1700000000, Status: domain.StatusSubmitted}},
		calls: []domain.Call{
			{CallID: "call-1", InterimResultsFile: "jobs/job-1/call-1.json"},
			{CallID: "call-2", InterimResultsFile: "jobs/job-1/call-2.json"},
		},
		interactions: []domain.Interaction{
			{Initiator: domain.InitiatorUser, Content: "My card was charged twice."},
			{Initiator: domain.InitiatorAgent, Content: "Refund issued."},
		},
	}
	fetcher := &transcriptMapFetcher{transcripts: map[string]*domain.Transcript{
		"jobs/job-1/call-1.json": speech("Agent: Thanks for calling.", "Customer: I was double charged."),
		"jobs/job-1/call-2.json": speech("Agent: Following up on the refund."),
	}}
	gen := &ticketGenerator{sentiment: "0.5", sentimentChange: "2"}
	svc, err := NewAggregateService(store, fetcher, gen, slog.Default())
	require.NoError(t, err)
	return svc, store, fetcher, gen
}

func TestAggregate_CombinesCallsAndNotes(t *testing.T) {
	svc, store, _, gen := newAggregateFixture(t)

	out, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1", TicketID: "T-1"})
	require.NoError(t, err)
	require.Equal(t, "overall summary text", out.OverallSummary)
	require.Equal(t, "executive summary text", out.ExecutiveSummary)
	require.Equal(t, 0.5, out.SentimentScore)
	require.Equal(t, 2.0, out.SentimentChange)

	// All four prompts share the same combined buffer.
	require.Len(t, gen.prompts, 4)
	combined := gen.prompts[0]
	require.Contains(t, combined, "Audio Call 1\nAgent: Thanks for calling.")
	require.Contains(t, combined, "Audio Call 2\nAgent: Following up on the refund.")
	require.Contains(t, combined, "Ticket Comments log")
	require.Contains(t, combined, "user: My card was charged twice.")
	require.Contains(t, combined, "agent: Refund issued.")

	require.Equal(t, "job-1", store.finalizedJobID)
	require.Equal(t, int64(1700000000), store.finalizedAt)
	require.Equal(t, out.OverallSummary, store.finalized.OverallSummary)
}

func TestAggregate_SkipsCallsWithoutTranscript(t *testing.T) {
	svc, store, fetcher, gen := newAggregateFixture(t)
	delete(fetcher.transcripts, "jobs/job-1/call-1.json")

	// call-1 loses its pointer entirely, so only call-2 contributes and the
	// numbering restarts from it.
	store.calls[0].InterimResultsFile = ""

	_, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	require.NoError(t, err)
	require.Contains(t, gen.prompts[0], "Audio Call 1\nAgent: Following up on the refund.")
	require.NotContains(t, gen.prompts[0], "Audio Call 2")
}

func TestAggregate_TranscriptFetchFailureIsFatal(t *testing.T) {
	svc, store, fetcher, _ := newAggregateFixture(t)
	fetcher.err = errors.New("access denied")

	_, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorUpstream, ucErr.Code)
	require.Nil(t, store.finalized)
}

func TestAggregate_PromptFailureIsFatal(t *testing.T) {
	svc, store, _, gen := newAggregateFixture(t)
	gen.err = errors.New("throttled")

	_, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorUpstream, ucErr.Code)
	require.Equal(t, "ticket_summary_failed", ucErr.Reason)
	require.Nil(t, store.finalized)
}

func TestAggregate_MissingHeader(t *testing.T) {
	svc, store, _, _ := newAggregateFixture(t)
	store.headers = nil

	_, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorNotFound, ucErr.Code)
}

func TestAggregate_NonNumericScoresFallBackToZero(t *testing.T) {
	svc, _, _, gen := newAggregateFixture(t)
	gen.sentiment = "very positive"
	gen.sentimentChange = "n/a"

	out, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	require.NoError(t, err)
	require.Zero(t, out.SentimentScore)
	require.Zero(t, out.SentimentChange)
}

func TestAggregate_ScoresAreClamped(t *testing.T) {
	svc, _, _, gen := newAggregateFixture(t)
	gen.sentiment = "3"
	gen.sentimentChange = "-12"

	out, err := svc.Aggregate(context.Background(), AggregateInput{JobID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, 1.0, out.SentimentScore)
	require.Equal(t, -5.0, out.SentimentChange)
}

func TestParseClampedScore(t *testing.T) {
	require.Equal(t, 0.7, parseClampedScore(" 0.7 ", -1, 1))
	require.Equal(t, -1.0, parseClampedScore("-4", -1, 1))
	require.Equal(t, 5.0, parseClampedScore("9.3", -5, 5))
	require.Zero(t, parseClampedScore("", -1, 1))
	require.Zero(t, parseClampedScore("positive", -1, 1))
}
