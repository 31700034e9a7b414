package domain

// Judgments a model may return for a single rule.
const (
	JudgmentYes       = "yes"
	JudgmentNo        = "no"
	JudgmentDoNotKnow = "do not know"
)

// Rule is one entry of a static QA rule catalog. CategoryScore is nil for
// unscored categories, whose rules act as overrides instead of contributing
// points.
type Rule struct {
	ID            int
	Category      string
	CategoryScore *int
	Text          string
}

// RuleResult is the judged outcome for one rule, justification preserved for
// audit.
type RuleResult struct {
	ID            int    `dynamodbav:"id" json:"id"`
	Rule          string `dynamodbav:"rule" json:"rule"`
	Followed      string `dynamodbav:"followed" json:"followed"`
	Justification string `dynamodbav:"justification" json:"justification"`
}

// CategoryResult groups the judged rules of one catalog category.
type CategoryResult struct {
	CategoryScore *int         `dynamodbav:"category_score,omitempty" json:"category_score,omitempty"`
	Rules         []RuleResult `dynamodbav:"rules" json:"rules"`
}

// QAReport is the structured output of the rule-scoring engine.
type QAReport struct {
	OverallScore int                       `dynamodbav:"overall_score" json:"overall_score"`
	Categories   map[string]CategoryResult `dynamodbav:"categories" json:"categories"`
}
