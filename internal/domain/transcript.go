package domain

import "strings"

// Transcript is the per-call analytics blob held in the transcript store,
// keyed by the Call record's interimResultsFile. Enrichment reads the
// analytics and writes summary/qa_report back into the same object.
type Transcript struct {
	ConversationAnalytics ConversationAnalytics `json:"ConversationAnalytics"`
	SpeechSegments        []SpeechSegment       `json:"SpeechSegments"`
}

type ConversationAnalytics struct {
	LanguageCode    string                    `json:"LanguageCode"`
	Duration        float64                   `json:"Duration"`
	SentimentTrends map[string]SentimentTrend `json:"SentimentTrends"`
	Summary         map[string]string         `json:"summary,omitempty"`
	QAReport        *QAReport                 `json:"qa_report,omitempty"`
}

type SentimentTrend struct {
	SentimentScore  float64 `json:"SentimentScore"`
	SentimentChange float64 `json:"SentimentChange"`
}

type SpeechSegment struct {
	Speaker string `json:"Speaker"`
	Text    string `json:"Text"`
}

// CustomerSpeakerKey identifies the customer channel in SentimentTrends.
const CustomerSpeakerKey = "spk_1"

// Text renders the transcript as speaker-labelled lines for prompt substitution.
func (t *Transcript) Text() string {
	var b strings.Builder
	for _, seg := range t.SpeechSegments {
		b.WriteString(seg.Speaker)
		b.WriteString(": ")
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// CustomerSentiment returns the customer-channel sentiment trend, or a zero
// trend if the analytics carry none.
func (t *Transcript) CustomerSentiment() SentimentTrend {
	return t.ConversationAnalytics.SentimentTrends[CustomerSpeakerKey]
}
