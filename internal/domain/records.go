package domain

// Record types stored in the metadata table, one value per sort-key family.
const (
	RecordTypeHeader      = "header"
	RecordTypeCall        = "call"
	RecordTypeInteraction = "interaction"
)

// Header statuses. A header is written once as SUBMITTED by ingestion and
// moved terminally to PROCESSED by ticket aggregation.
const (
	StatusSubmitted = "SUBMITTED"
	StatusProcessed = "PROCESSED"
)

// Initiator values derived from the note export's Role column.
const (
	InitiatorAgent = "agent"
	InitiatorUser  = "user"
)

// Header is the ticket-level aggregate record, one per job.
type Header struct {
	JobID            string  `dynamodbav:"PK" json:"jobId"`
	SortKey          string  `dynamodbav:"SK" json:"-"`
	RecordType       string  `dynamodbav:"recordType" json:"-"`
	TicketID         string  `dynamodbav:"ticketId" json:"ticketId"`
	Timestamp        int64   `dynamodbav:"timestamp" json:"timestamp"`
	Status           string  `dynamodbav:"status" json:"status"`
	OverallSummary   string  `dynamodbav:"overallSummary,omitempty" json:"overallSummary,omitempty"`
	ExecutiveSummary string  `dynamodbav:"executiveSummary,omitempty" json:"executiveSummary,omitempty"`
	SentimentScore   float64 `dynamodbav:"sentimentScore" json:"sentimentScore"`
	SentimentChange  float64 `dynamodbav:"sentimentChange" json:"sentimentChange"`
	LastModifiedAt   int64   `dynamodbav:"lastModifiedAt" json:"lastModifiedAt"`
}

// Call is the record for one transcribed audio interaction. Ingestion writes
// the identity fields; call enrichment fills in the rest exactly once.
type Call struct {
	JobID              string    `dynamodbav:"PK" json:"jobId"`
	SortKey            string    `dynamodbav:"SK" json:"-"`
	RecordType         string    `dynamodbav:"recordType" json:"-"`
	TicketID           string    `dynamodbav:"ticketId" json:"ticketId"`
	CallID             string    `dynamodbav:"callId" json:"callId"`
	Initiator          string    `dynamodbav:"initiator" json:"initiator"`
	InitiatorID        string    `dynamodbav:"initiatorId" json:"initiatorId"`
	Timestamp          int64     `dynamodbav:"timestamp" json:"timestamp"`
	FilePath           string    `dynamodbav:"filePath" json:"filePath"`
	InterimResultsFile string    `dynamodbav:"interimResultsFile,omitempty" json:"interimResultsFile,omitempty"`
	LanguageCode       string    `dynamodbav:"languageCode,omitempty" json:"languageCode,omitempty"`
	Duration           float64   `dynamodbav:"duration,omitempty" json:"duration,omitempty"`
	SentimentScore     float64   `dynamodbav:"sentimentScore,omitempty" json:"sentimentScore,omitempty"`
	SentimentChange    float64   `dynamodbav:"sentimentChange,omitempty" json:"sentimentChange,omitempty"`
	Summary            string    `dynamodbav:"summary,omitempty" json:"summary,omitempty"`
	QAReport           *QAReport `dynamodbav:"qaReport,omitempty" json:"qaReport,omitempty"`
	LastModifiedAt     int64     `dynamodbav:"lastModifiedAt" json:"lastModifiedAt"`
}

// Interaction is one written note or comment from the ticket log. Agent-authored
// interactions optionally gain a QA report from notes enrichment.
type Interaction struct {
	JobID          string    `dynamodbav:"PK" json:"jobId"`
	SortKey        string    `dynamodbav:"SK" json:"-"`
	RecordType     string    `dynamodbav:"recordType" json:"-"`
	TicketID       string    `dynamodbav:"ticketId" json:"ticketId"`
	Content        string    `dynamodbav:"content" json:"content"`
	Initiator      string    `dynamodbav:"initiator" json:"initiator"`
	InitiatorID    string    `dynamodbav:"initiatorId" json:"initiatorId"`
	Timestamp      int64     `dynamodbav:"timestamp" json:"timestamp"`
	QAReport       *QAReport `dynamodbav:"qaReport,omitempty" json:"qaReport,omitempty"`
	LastModifiedAt int64     `dynamodbav:"lastModifiedAt" json:"lastModifiedAt"`
}

// CallEnrichment carries the single terminal mutation call enrichment
// applies to a Call record.
type CallEnrichment struct {
	InterimResultsFile string
	LanguageCode       string
	Duration           float64
	SentimentScore     float64
	SentimentChange    float64
	Summary            string
	QAReport           *QAReport
}

// HeaderFinalization carries the ticket-level summary fields aggregation
// writes into the Header together with the terminal PROCESSED status.
type HeaderFinalization struct {
	OverallSummary   string
	ExecutiveSummary string
	SentimentScore   float64
	SentimentChange  float64
}

// AudioFile is one entry of the audio manifest handed to ingestion by the
// workflow, mapping a callId to its storage path.
type AudioFile struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	CallID   string `json:"callId"`
	CallTime int64  `json:"callTime"`
}
