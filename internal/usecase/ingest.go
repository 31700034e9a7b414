package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"ticket-insights/internal/domain"
)

// noteColumns are the expected columns of the ticket note export.
var noteColumns = []string{"Datetime", "Role", "CallID", "Interaction"}

// noteTimeLayouts are tried in order when parsing the Datetime column.
var noteTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ObjectGetter reads raw ticket inputs from the object store.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// IngestStore is the metadata surface the ingestion stage writes through.
type IngestStore interface {
	QueryHeaders(ctx context.Context, jobID string) ([]domain.Header, error)
	PutHeader(ctx context.Context, h domain.Header) error
	PutCall(ctx context.Context, c domain.Call) error
	PutInteraction(ctx context.Context, in domain.Interaction) error
}

// IngestService parses a ticket's note export and audio manifest into the
// initial metadata records and positions the job's header at the earliest
// interaction time.
type IngestService struct {
	objects ObjectGetter
	store   IngestStore
}

type IngestInput struct {
	TicketID   string
	JobID      string
	NotesKey   string
	AudioFiles []domain.AudioFile
}

type IngestOutput struct {
	TicketCreationTime int64
	Calls              int
	Interactions       int
}

func NewIngestService(objects ObjectGetter, store IngestStore) (*IngestService, error) {
	if objects == nil {
		return nil, errors.New("usecase: object getter must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	return &IngestService{objects: objects, store: store}, nil
}

func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (IngestOutput, error) {
	if strings.TrimSpace(in.JobID) == "" || strings.TrimSpace(in.TicketID) == "" {
		return IngestOutput{}, newError(ErrorInvalidInput, "missing_job_or_ticket_id", nil)
	}

	raw, err := s.objects.GetObject(ctx, in.NotesKey)
	if err != nil {
		return IngestOutput{}, newError(ErrorUpstream, "notes_fetch_failed", err)
	}
	rows, err := parseNoteRows(raw)
	if err != nil {
		return IngestOutput{}, newError(ErrorInvalidInput, "notes_parse_failed", err)
	}
	if len(rows) == 0 {
		return IngestOutput{}, newError(ErrorEmptyTicket, "no_note_rows", nil)
	}

	manifest := make(map[string]domain.AudioFile, len(in.AudioFiles))
	for _, f := range in.AudioFiles {
		manifest[f.CallID] = f
	}

	out := IngestOutput{}
	var minTime int64
	for _, row := range rows {
		interactionTime, err := parseNoteTime(row.Datetime)
		if err != nil {
			return IngestOutput{}, newError(ErrorInvalidInput, "bad_datetime", err)
		}
		if minTime == 0 || interactionTime < minTime {
			minTime = interactionTime
		}

		initiator, initiatorID := parseInitiator(row.Role)

		if row.CallID != "" {
			callID := strings.TrimSuffix(row.CallID, path.Ext(row.CallID))
			audio, ok := manifest[callID]
			if !ok {
				return IngestOutput{}, newError(ErrorInvalidInput, "unknown_call_id",
					fmt.Errorf("callId %q not in audio manifest", callID))
			}
			call := domain.Call{
				JobID:       in.JobID,
				TicketID:    in.TicketID,
				CallID:      callID,
				Initiator:   initiator,
				InitiatorID: initiatorID,
				Timestamp:   interactionTime,
				FilePath:    audio.Path,
			}
			if err := s.store.PutCall(ctx, call); err != nil {
				return IngestOutput{}, newError(ErrorInternal, "call_write_failed", err)
			}
			out.Calls++
		}

		interaction := domain.Interaction{
			JobID:       in.JobID,
			TicketID:    in.TicketID,
			Content:     row.Interaction,
			Initiator:   initiator,
			InitiatorID: initiatorID,
			Timestamp:   interactionTime,
		}
		if err := s.store.PutInteraction(ctx, interaction); err != nil {
			return IngestOutput{}, newError(ErrorInternal, "interaction_write_failed", err)
		}
		out.Interactions++
	}

	creationTime, err := s.resolveCreationTime(ctx, in.JobID, minTime)
	if err != nil {
		return IngestOutput{}, err
	}
	header := domain.Header{
		JobID:     in.JobID,
		TicketID:  in.TicketID,
		Timestamp: creationTime,
		Status:    domain.StatusSubmitted,
	}
	if err := s.store.PutHeader(ctx, header); err != nil {
		return IngestOutput{}, newError(ErrorInternal, "header_write_failed", err)
	}
	out.TicketCreationTime = creationTime
	return out, nil
}

// resolveCreationTime keeps the header sort key stable across re-runs: once a
// header exists for the job, its embedded creation time wins over whatever a
// later (possibly partial) scan derives.
func (s *IngestService) resolveCreationTime(ctx context.Context, jobID string, scanned int64) (int64, error) {
	existing, err := s.store.QueryHeaders(ctx, jobID)
	if err != nil {
		return 0, newError(ErrorInternal, "header_query_failed", err)
	}
	if len(existing) > 0 {
		return existing[0].Timestamp, nil
	}
	return scanned, nil
}

type noteRow struct {
	Datetime    string
	Role        string
	CallID      string
	Interaction string
}

func parseNoteRows(raw []byte) ([]noteRow, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM from spreadsheet exports
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read note export: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := map[string]int{}
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range noteColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("note export missing column %q", col)
		}
	}

	rows := make([]noteRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		cell := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		rows = append(rows, noteRow{
			Datetime:    cell("Datetime"),
			Role:        cell("Role"),
			CallID:      cell("CallID"),
			Interaction: cell("Interaction"),
		})
	}
	return rows, nil
}

func parseNoteTime(value string) (int64, error) {
	for _, layout := range noteTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unparseable datetime %q", value)
}

// parseInitiator classifies the Role column: any role containing "agent"
// (case-insensitive) is an agent whose id is the text after the first '-';
// everything else is the literal user.
func parseInitiator(role string) (initiator, initiatorID string) {
	if !strings.Contains(strings.ToLower(role), domain.InitiatorAgent) {
		return domain.InitiatorUser, domain.InitiatorUser
	}
	id := domain.InitiatorAgent
	if _, after, found := strings.Cut(role, "-"); found {
		id = strings.TrimSpace(after)
	}
	return domain.InitiatorAgent, id
}
