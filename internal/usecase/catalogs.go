package usecase

import "ticket-insights/internal/domain"

// Catalog is a statically-built QA rule table: the rules grouped into scored
// categories, the override rules whose "no" judgment zeroes the overall
// score, and the forbidden-terms list embedded in the judging prompt.
type Catalog struct {
	// Framing names the artifact under review in the prompt, e.g.
	// "call transcript" or "email".
	Framing         string
	Rules           []domain.Rule
	OverrideRuleIDs []int
	ForbiddenTerms  []string
}

var forbiddenTerms = []string{"Fraud", "Free", "Promotional", "Discount"}

// CallQACatalog is the rule table applied to audio-call transcripts.
func CallQACatalog() Catalog {
	return Catalog{
		Framing: "call transcript",
		Rules: []domain.Rule{
			{ID: 1, Category: "Greeting", CategoryScore: intPtr(50), Text: "Did the agent greet the customer, introduce themselves and the company, and state the purpose of the call?"},
			{ID: 2, Category: "Greeting", CategoryScore: intPtr(50), Text: "Did the agent end the call politely after the customer's query was addressed?"},
			{ID: 3, Category: "Greeting", CategoryScore: intPtr(50), Text: "Did the agent validate the customer by asking for any of these: date of birth, last 4 digits of the ID on file, or the last transaction on the card?"},
			{ID: 4, Category: "Communication", CategoryScore: intPtr(50), Text: "Was the agent able to articulate their thoughts clearly and concisely?"},
			{ID: 5, Category: "Communication", CategoryScore: intPtr(50), Text: "Was the agent confident throughout the call while addressing customer queries?"},
			{ID: 6, Category: "Forbidden words", Text: "Did the agent use any forbidden words in the conversation?"},
		},
		OverrideRuleIDs: []int{6},
		ForbiddenTerms:  forbiddenTerms,
	}
}

// NotesQACatalog is the rule table applied to agent-authored notes.
func NotesQACatalog() Catalog {
	return Catalog{
		Framing: "email",
		Rules: []domain.Rule{
			{ID: 1, Category: "Greeting", CategoryScore: intPtr(25), Text: "Did the agent use a relevant opening statement matching the situation, such as thanking the customer for writing in, or another formal email opening?"},
			{ID: 2, Category: "Grammar", CategoryScore: intPtr(25), Text: "Was the agent's reply grammatically correct and easy to comprehend?"},
			{ID: 3, Category: "Acknowledgment", CategoryScore: intPtr(50), Text: "Did the agent acknowledge and address all the concerns the customer raised in the email trail?"},
			{ID: 4, Category: "Forbidden words", Text: "Did the agent use any forbidden words in the email?"},
		},
		OverrideRuleIDs: []int{4},
		ForbiddenTerms:  forbiddenTerms,
	}
}

// MaxScore is the sum of the distinct scored categories' points, the upper
// bound of any overall score produced from this catalog.
func (c Catalog) MaxScore() int {
	seen := map[string]bool{}
	total := 0
	for _, r := range c.Rules {
		if r.CategoryScore != nil && !seen[r.Category] {
			seen[r.Category] = true
			total += *r.CategoryScore
		}
	}
	return total
}

func (c Catalog) isOverride(id int) bool {
	for _, o := range c.OverrideRuleIDs {
		if o == id {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }
