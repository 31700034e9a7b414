package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"ticket-insights/internal/domain"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
	params   domain.GenerateParams
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, params domain.GenerateParams) (string, error) {
	s.prompt = prompt
	s.params = params
	s.calls++
	return s.response, s.err
}

func judgmentResponse(t *testing.T, followed map[int]string) string {
	t.Helper()
	out := make(map[string]ruleJudgment, len(followed))
	for id, f := range followed {
		out[strconv.Itoa(id)] = ruleJudgment{Justification: "because", Followed: f}
	}
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return string(raw)
}

func TestNewQAScorer_ValidatesDependency(t *testing.T) {
	_, err := NewQAScorer(nil)
	require.Error(t, err)
}

func TestScore_AllRulesFollowed_FullScore(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes,
		4: domain.JudgmentYes, 5: domain.JudgmentYes, 6: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	require.NoError(t, err)
	require.Equal(t, 100, report.OverallScore)
	require.Len(t, report.Categories, 3)
	require.NotNil(t, gen.params.Temperature)
	require.Equal(t, float32(0), *gen.params.Temperature)
}

func TestScore_OneRuleNotFollowed_DropsCategory(t *testing.T) {
	// Rule 5 fails, so Communication contributes nothing while the override
	// rule is still followed.
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes,
		4: domain.JudgmentYes, 5: domain.JudgmentNo, 6: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	require.NoError(t, err)
	require.Equal(t, 50, report.OverallScore)
}

func TestScore_DoNotKnow_DropsCategory(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentDoNotKnow, 2: domain.JudgmentYes, 3: domain.JudgmentYes,
		4: domain.JudgmentYes, 5: domain.JudgmentYes, 6: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	require.NoError(t, err)
	require.Equal(t, 50, report.OverallScore)
}

func TestScore_OverrideRuleNotFollowed_ZeroesOverall(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes,
		4: domain.JudgmentYes, 5: domain.JudgmentYes, 6: domain.JudgmentNo,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	require.NoError(t, err)
	require.Equal(t, 0, report.OverallScore)
	// Judgments are still recorded even when the override zeroes the total.
	require.Len(t, report.Categories["Greeting"].Rules, 3)
}

func TestScore_NotesCatalog(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentNo, 3: domain.JudgmentYes, 4: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), NotesQACatalog(), "Dear customer,\n")
	require.NoError(t, err)
	require.Equal(t, 75, report.OverallScore)
}

func TestScore_SurroundingProseIsTolerated(t *testing.T) {
	gen := &stubGenerator{response: "Here are my judgments:\n" + judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes, 4: domain.JudgmentYes,
	}) + "\nLet me know if you need more."}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	report, err := scorer.Score(context.Background(), NotesQACatalog(), "Dear customer,\n")
	require.NoError(t, err)
	require.Equal(t, 100, report.OverallScore)
}

func TestScore_MissingJudgment(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), NotesQACatalog(), "Dear customer,\n")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorMissingJudgment, ucErr.Code)
}

func TestScore_UnparseableResponse(t *testing.T) {
	gen := &stubGenerator{response: "no json here"}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorJudgmentParse, ucErr.Code)
}

func TestScore_GeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("throttled")}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), CallQACatalog(), "Agent: hello\n")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorUpstream, ucErr.Code)
}

func TestScore_PromptContainsRulesAndForbiddenTerms(t *testing.T) {
	gen := &stubGenerator{response: judgmentResponse(t, map[int]string{
		1: domain.JudgmentYes, 2: domain.JudgmentYes, 3: domain.JudgmentYes, 4: domain.JudgmentYes,
	})}
	scorer, err := NewQAScorer(gen)
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), NotesQACatalog(), "Dear customer, thanks for writing in.")
	require.NoError(t, err)
	require.Contains(t, gen.prompt, "Dear customer, thanks for writing in.")
	require.Contains(t, gen.prompt, "Fraud")
	require.Contains(t, gen.prompt, "grammatically correct")
}

func TestCatalogMaxScore(t *testing.T) {
	require.Equal(t, 100, CallQACatalog().MaxScore())
	require.Equal(t, 100, NotesQACatalog().MaxScore())
}
