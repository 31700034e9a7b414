package usecase

import (
	"fmt"
	"strings"
)

// promptTemplate is one single-purpose generation prompt. Key becomes the
// field name in the summarization result; {transcript} is substituted at
// invocation time.
type promptTemplate struct {
	Key      string
	Template string
}

const answerPreamble = "Answer the question below, defined in <question></question>, based on the transcript defined in " +
	"<transcript></transcript>. If you cannot answer the question, reply with 'n/a'. Use gender neutral pronouns. " +
	"When you reply, only respond with the answer.\n\n"

const transcriptBlock = "<transcript>\n{transcript}\n</transcript>"

func questionPrompt(question string) string {
	return answerPreamble + "<question>" + question + "</question>\n\n" + transcriptBlock
}

// callPromptTemplates are the per-call summarization prompts, invoked
// independently and in this order.
func callPromptTemplates() []promptTemplate {
	return []promptTemplate{
		{Key: "Summary", Template: questionPrompt("What is a summary of the transcript?")},
		{Key: "Topic", Template: questionPrompt("What is the topic of the call? For example, iphone issue, billing issue, cancellation. Only reply with the topic, nothing more.")},
		{Key: "Product", Template: questionPrompt("What product did the customer call about? For example, internet, broadband, mobile phone, mobile plans. Only reply with the product, nothing more.")},
		{Key: "Resolved", Template: questionPrompt("Did the agent resolve the customer's questions? Only reply with yes or no, nothing more.")},
		{Key: "Callback", Template: questionPrompt("Was this a callback? (yes or no) Only reply with yes or no, nothing more.")},
		{Key: "Politeness", Template: questionPrompt("Was the agent polite and professional? (yes or no) Only reply with yes or no, nothing more.")},
		{Key: "Actions", Template: questionPrompt("What actions did the agent take?")},
		{Key: "EmailResponse", Template: transcriptBlock + "\nBased on the above conversation between the agent and the customer, " +
			"write an email response addressing the customer by name. Start by thanking the customer for being a valuable customer " +
			"and for taking the time to talk to one of our agents. Depending on the summary of the ticket and the customer sentiment, " +
			"write an email with the next steps. Close the email with a thank you note."},
	}
}

const ticketPromptPreamble = "You are a helpful assistant that always responds in English. Based on the conversation between a " +
	"customer care agent and customer in the transcript below, "

const ticketPromptSuffix = "\n\n" + transcriptBlock

// ticketPromptTemplates are the ticket-level aggregation prompts, one per
// header field.
func ticketPromptTemplates() []promptTemplate {
	return []promptTemplate{
		{Key: "OverallSummary", Template: ticketPromptPreamble +
			"provide an overall summary of the conversation. You must always provide a summary based on whatever content is " +
			"available. Use gender neutral pronouns. Respond only with the summary text, no XML tags." + ticketPromptSuffix},
		{Key: "ExecutiveSummary", Template: ticketPromptPreamble +
			"provide an executive summary and actions for the executive. You must always provide a summary based on whatever " +
			"content is available. Use gender neutral pronouns. Respond only with the summary text, no XML tags." + ticketPromptSuffix},
		{Key: "SentimentChange", Template: ticketPromptPreamble +
			"provide a sentiment change score on a scale of -5 (negative change) to 5 (positive change), indicating how the " +
			"customer's sentiment shifted from the beginning to the end of the interaction. Consider the customer's language, " +
			"tone, and emotional expressions. Respond only with the numeric score." + ticketPromptSuffix},
		{Key: "Sentiment", Template: ticketPromptPreamble +
			"provide an overall sentiment score for the customer on a scale of -1 (negative) to 1 (positive), with 0 being " +
			"neutral. Consider the customer's language, tone, and emotional expressions. Respond only with the numeric score." + ticketPromptSuffix},
	}
}

// askPromptTemplate answers a free-form question about one call transcript.
const askPromptTemplate = "You are an AI chatbot. Carefully read the following transcript within <transcript></transcript> tags. " +
	"Provide a short answer to the question at the end. If the answer cannot be determined from the transcript, then reply " +
	"saying Sorry, I don't know. Use gender neutral pronouns. Do not use XML tags in the answer.\n" +
	transcriptBlock + "\n{question}"

func renderPrompt(template, transcript string) string {
	return strings.ReplaceAll(template, "{transcript}", transcript)
}

// buildQAPrompt embeds the catalog's rules and forbidden terms into a single
// judging prompt whose response is one JSON object keyed by rule id.
func buildQAPrompt(catalog Catalog, transcript string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Here is a %s of a conversation between a customer support agent and their customer:\n", catalog.Framing)
	b.WriteString("<transcript>\n" + transcript + "\n</transcript>\n")

	b.WriteString("Here is a list of forbidden words that you should check if they were used by the agent in the conversation:\n")
	b.WriteString("<forbidden words>\n")
	b.WriteString(strings.Join(catalog.ForbiddenTerms, ",\n"))
	b.WriteString("\n</forbidden words>\n\n")

	fmt.Fprintf(&b, "From the above %s, you have to check if the following rules across various categories are followed by the agent while conversing with the customer:\n", catalog.Framing)
	b.WriteString(renderRules(catalog))

	b.WriteString("\nFor each rule, provide an entry in json format as below. Return the followed field with yes or no or do not know based on your analysis.\n")
	b.WriteString("Expected output format:\n")
	b.WriteString("{\n")
	b.WriteString("    \"id of the rule\": {\n")
	b.WriteString("        \"justification\": \"Justification why you think it is followed or not followed\",\n")
	b.WriteString("        \"followed\": \"yes\" or \"no\" or \"do not know\"\n")
	b.WriteString("    }\n")
	b.WriteString("    ....\n")
	b.WriteString("}\n")
	return b.String()
}

// renderRules serializes the static rule table into the markup form the
// judging prompt uses, grouping rules under their category in table order.
func renderRules(catalog Catalog) string {
	var b strings.Builder
	b.WriteString("<rules>\n")
	current := ""
	for _, r := range catalog.Rules {
		if r.Category != current {
			if current != "" {
				b.WriteString("    </category>\n")
			}
			current = r.Category
			if r.CategoryScore != nil {
				fmt.Fprintf(&b, "    <category name=%q score=\"%d\">\n", r.Category, *r.CategoryScore)
			} else {
				fmt.Fprintf(&b, "    <category name=%q>\n", r.Category)
			}
		}
		fmt.Fprintf(&b, "        <rule id=\"%d\">%s</rule>\n", r.ID, r.Text)
	}
	if current != "" {
		b.WriteString("    </category>\n")
	}
	b.WriteString("</rules>\n")
	return b.String()
}
