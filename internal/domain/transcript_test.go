package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranscriptText(t *testing.T) {
	tr := &Transcript{SpeechSegments: []SpeechSegment{
		{Speaker: "Agent", Text: "Thank you for calling."},
		{Speaker: "Customer", Text: "I was double charged."},
	}}
	require.Equal(t, "Agent: Thank you for calling.\nCustomer: I was double charged.\n", tr.Text())

	require.Empty(t, (&Transcript{}).Text())
}

func TestCustomerSentiment(t *testing.T) {
	tr := &Transcript{ConversationAnalytics: ConversationAnalytics{
		SentimentTrends: map[string]SentimentTrend{
			"spk_0":            {SentimentScore: 0.9},
			CustomerSpeakerKey: {SentimentScore: -0.3, SentimentChange: 1.5},
		},
	}}
	trend := tr.CustomerSentiment()
	require.Equal(t, -0.3, trend.SentimentScore)
	require.Equal(t, 1.5, trend.SentimentChange)

	require.Zero(t, (&Transcript{}).CustomerSentiment())
}
