package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ticket-insights/internal/domain"
)

// TextGenerator is the prompt-in/text-out contract for the generation
// service. Latency is unbounded and retries are the service's own concern.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params domain.GenerateParams) (string, error)
}

// QAScorer turns free-form natural-language judgments into a deterministic
// compliance score for one rule catalog. One prompt, one model invocation,
// no retries.
type QAScorer struct {
	generator TextGenerator
}

// ruleJudgment is the per-rule entry of the model's JSON response, keyed by
// the rule id as a string.
type ruleJudgment struct {
	Justification string `json:"justification"`
	Followed      string `json:"followed"`
}

func NewQAScorer(generator TextGenerator) (*QAScorer, error) {
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	return &QAScorer{generator: generator}, nil
}

// Score judges the transcript against the catalog and computes the overall
// compliance score. A scored category contributes its points only when every
// member rule is judged "yes"; any override rule judged "no" forces the
// overall score to zero after totaling.
func (s *QAScorer) Score(ctx context.Context, catalog Catalog, transcript string) (*domain.QAReport, error) {
	prompt := buildQAPrompt(catalog, transcript)
	zeroTemp := float32(0)
	raw, err := s.generator.Generate(ctx, prompt, domain.GenerateParams{Temperature: &zeroTemp})
	if err != nil {
		return nil, newError(ErrorUpstream, "qa_generation_failed", err)
	}

	var judgments map[string]ruleJudgment
	if err := extractJSON(raw, &judgments); err != nil {
		return nil, newError(ErrorJudgmentParse, "qa_response_not_json", err)
	}

	return scoreJudgments(catalog, judgments)
}

func scoreJudgments(catalog Catalog, judgments map[string]ruleJudgment) (*domain.QAReport, error) {
	categories := make(map[string]domain.CategoryResult, len(catalog.Rules))
	allFollowed := make(map[string]bool)
	overrideFailed := false

	for _, rule := range catalog.Rules {
		judgment, ok := judgments[strconv.Itoa(rule.ID)]
		if !ok {
			return nil, newError(ErrorMissingJudgment, "qa_rule_not_judged",
				fmt.Errorf("rule %d has no judgment", rule.ID))
		}

		node, seen := categories[rule.Category]
		if !seen {
			node = domain.CategoryResult{CategoryScore: rule.CategoryScore}
			allFollowed[rule.Category] = true
		}
		node.Rules = append(node.Rules, domain.RuleResult{
			ID:            rule.ID,
			Rule:          rule.Text,
			Followed:      judgment.Followed,
			Justification: judgment.Justification,
		})
		categories[rule.Category] = node

		if rule.CategoryScore != nil && judgment.Followed != domain.JudgmentYes {
			allFollowed[rule.Category] = false
		}
		if catalog.isOverride(rule.ID) && judgment.Followed == domain.JudgmentNo {
			overrideFailed = true
		}
	}

	overall := 0
	for name, node := range categories {
		if node.CategoryScore != nil && allFollowed[name] {
			overall += *node.CategoryScore
		}
	}
	if overrideFailed {
		overall = 0
	}

	return &domain.QAReport{OverallScore: overall, Categories: categories}, nil
}
