package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"ticket-insights/internal/domain"
)

const (
	skPrefixHeader      = "header#"
	skPrefixCall        = "call#"
	skPrefixInteraction = "interaction#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store wraps the single metadata table shared by every pipeline stage.
// Partition key is the jobId; sort keys are header#, call# and interaction#
// prefixed, so a prefix query returns one record family in ascending order.
type Store struct {
	api             dynamodbAPI
	tableName       string
	recordTypeIndex string
}

// New creates a metadata Store. recordTypeIndex names the secondary index
// keyed on the recordType attribute, used to list headers across jobs.
func New(api dynamodbAPI, tableName, recordTypeIndex string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if strings.TrimSpace(recordTypeIndex) == "" {
		return nil, errors.New("repository: record type index must not be empty")
	}
	return &Store{api: api, tableName: tableName, recordTypeIndex: recordTypeIndex}, nil
}

// HeaderSortKey positions a header at the ticket creation time.
func HeaderSortKey(creationTime int64) string {
	return fmt.Sprintf("%s%d", skPrefixHeader, creationTime)
}

// CallSortKey keys a call record by its callId.
func CallSortKey(callID string) string {
	return skPrefixCall + callID
}

// InteractionSortKey keys a note by its interaction time, so prefix queries
// come back in chronological order.
func InteractionSortKey(timestamp int64) string {
	return fmt.Sprintf("%s%d", skPrefixInteraction, timestamp)
}

var nowUnix = func() int64 {
	return time.Now().Unix()
}

// PutHeader upserts the job's header record, keyed at its creation time.
func (s *Store) PutHeader(ctx context.Context, h domain.Header) error {
	h.SortKey = HeaderSortKey(h.Timestamp)
	h.RecordType = domain.RecordTypeHeader
	h.LastModifiedAt = nowUnix()
	if err := s.putRecord(ctx, h.JobID, h.SortKey, h); err != nil {
		return fmt.Errorf("repository: PutHeader: %w", err)
	}
	return nil
}

// PutCall upserts the minimal call record created by ingestion.
func (s *Store) PutCall(ctx context.Context, c domain.Call) error {
	c.SortKey = CallSortKey(c.CallID)
	c.RecordType = domain.RecordTypeCall
	c.LastModifiedAt = nowUnix()
	if err := s.putRecord(ctx, c.JobID, c.SortKey, c); err != nil {
		return fmt.Errorf("repository: PutCall: %w", err)
	}
	return nil
}

// PutInteraction upserts one note record.
func (s *Store) PutInteraction(ctx context.Context, in domain.Interaction) error {
	in.SortKey = InteractionSortKey(in.Timestamp)
	in.RecordType = domain.RecordTypeInteraction
	in.LastModifiedAt = nowUnix()
	if err := s.putRecord(ctx, in.JobID, in.SortKey, in); err != nil {
		return fmt.Errorf("repository: PutInteraction: %w", err)
	}
	return nil
}

func (s *Store) putRecord(ctx context.Context, jobID, sortKey string, record any) error {
	if jobID == "" || sortKey == "" {
		return errors.New("jobID and sort key are required")
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// QueryHeaders returns the job's header records in sort-key order. Exactly one
// is expected; callers treat zero as not found.
func (s *Store) QueryHeaders(ctx context.Context, jobID string) ([]domain.Header, error) {
	var headers []domain.Header
	if err := s.queryPrefix(ctx, jobID, skPrefixHeader, nil, &headers); err != nil {
		return nil, fmt.Errorf("repository: QueryHeaders: %w", err)
	}
	return headers, nil
}

// QueryCalls returns all call records for a job, ascending by callId.
func (s *Store) QueryCalls(ctx context.Context, jobID string) ([]domain.Call, error) {
	var calls []domain.Call
	if err := s.queryPrefix(ctx, jobID, skPrefixCall, nil, &calls); err != nil {
		return nil, fmt.Errorf("repository: QueryCalls: %w", err)
	}
	return calls, nil
}

// GetCall returns the call record for callID, or nil if none exists.
func (s *Store) GetCall(ctx context.Context, jobID, callID string) (*domain.Call, error) {
	var calls []domain.Call
	if err := s.queryPrefix(ctx, jobID, CallSortKey(callID), nil, &calls); err != nil {
		return nil, fmt.Errorf("repository: GetCall: %w", err)
	}
	if len(calls) == 0 {
		return nil, nil
	}
	return &calls[0], nil
}

// QueryInteractions returns the job's notes in ascending timestamp order.
func (s *Store) QueryInteractions(ctx context.Context, jobID string) ([]domain.Interaction, error) {
	var interactions []domain.Interaction
	if err := s.queryPrefix(ctx, jobID, skPrefixInteraction, nil, &interactions); err != nil {
		return nil, fmt.Errorf("repository: QueryInteractions: %w", err)
	}
	return interactions, nil
}

// QueryAgentInteractions returns only agent-authored notes, filtered
// server-side on the initiator attribute.
func (s *Store) QueryAgentInteractions(ctx context.Context, jobID string) ([]domain.Interaction, error) {
	filter := aws.String("initiator = :initiator")
	var interactions []domain.Interaction
	if err := s.queryPrefix(ctx, jobID, skPrefixInteraction, filter, &interactions); err != nil {
		return nil, fmt.Errorf("repository: QueryAgentInteractions: %w", err)
	}
	return interactions, nil
}

func (s *Store) queryPrefix(ctx context.Context, jobID, prefix string, filter *string, out any) error {
	if jobID == "" {
		return errors.New("jobID is required")
	}
	values := map[string]types.AttributeValue{
		":pk":     &types.AttributeValueMemberS{Value: jobID},
		":prefix": &types.AttributeValueMemberS{Value: prefix},
	}
	if filter != nil {
		values[":initiator"] = &types.AttributeValueMemberS{Value: domain.InitiatorAgent}
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		FilterExpression:          filter,
		ExpressionAttributeValues: values,
	}

	var items []map[string]types.AttributeValue
	for {
		res, err := s.api.Query(ctx, in)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		items = append(items, res.Items...)
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	return nil
}

// ListHeaders returns every job's header via the recordType index.
func (s *Store) ListHeaders(ctx context.Context) ([]domain.Header, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.recordTypeIndex),
		KeyConditionExpression: aws.String("recordType = :recordType"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":recordType": &types.AttributeValueMemberS{Value: domain.RecordTypeHeader},
		},
	}

	var headers []domain.Header
	for {
		res, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListHeaders query: %w", err)
		}
		var page []domain.Header
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &page); err != nil {
			return nil, fmt.Errorf("repository: ListHeaders unmarshal: %w", err)
		}
		headers = append(headers, page...)
		if len(res.LastEvaluatedKey) == 0 {
			return headers, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

// UpdateCallEnrichment applies the enrichment write to a call record.
func (s *Store) UpdateCallEnrichment(ctx context.Context, jobID, callID string, enr domain.CallEnrichment) error {
	if jobID == "" || callID == "" {
		return errors.New("repository: UpdateCallEnrichment: jobID and callID are required")
	}
	report, err := attributevalue.Marshal(enr.QAReport)
	if err != nil {
		return fmt.Errorf("repository: UpdateCallEnrichment marshal qaReport: %w", err)
	}
	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       recordKey(jobID, CallSortKey(callID)),
		UpdateExpression: aws.String("SET interimResultsFile = :interimResultsFile, lastModifiedAt = :lastModifiedAt, " +
			"languageCode = :languageCode, #du = :duration, sentimentChange = :sentimentChange, " +
			"sentimentScore = :sentimentScore, qaReport = :qaReport, summary = :summary"),
		ExpressionAttributeNames: map[string]string{
			"#du": "duration",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":interimResultsFile": &types.AttributeValueMemberS{Value: enr.InterimResultsFile},
			":languageCode":       &types.AttributeValueMemberS{Value: enr.LanguageCode},
			":duration":           floatAttr(enr.Duration),
			":sentimentScore":     floatAttr(enr.SentimentScore),
			":sentimentChange":    floatAttr(enr.SentimentChange),
			":qaReport":           report,
			":summary":            &types.AttributeValueMemberS{Value: enr.Summary},
			":lastModifiedAt":     intAttr(nowUnix()),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: UpdateCallEnrichment: %w", err)
	}
	return nil
}

// UpdateInteractionQA attaches a QA report to one note record.
func (s *Store) UpdateInteractionQA(ctx context.Context, jobID, sortKey string, report *domain.QAReport) error {
	if jobID == "" || sortKey == "" {
		return errors.New("repository: UpdateInteractionQA: jobID and sort key are required")
	}
	value, err := attributevalue.Marshal(report)
	if err != nil {
		return fmt.Errorf("repository: UpdateInteractionQA marshal qaReport: %w", err)
	}
	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              recordKey(jobID, sortKey),
		UpdateExpression: aws.String("SET qaReport = :qaReport, lastModifiedAt = :lastModifiedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qaReport":       value,
			":lastModifiedAt": intAttr(nowUnix()),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: UpdateInteractionQA: %w", err)
	}
	return nil
}

// FinalizeHeader applies the aggregation write to the job's header record.
func (s *Store) FinalizeHeader(ctx context.Context, jobID string, creationTime int64, fin domain.HeaderFinalization) error {
	if jobID == "" {
		return errors.New("repository: FinalizeHeader: jobID is required")
	}
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       recordKey(jobID, HeaderSortKey(creationTime)),
		UpdateExpression: aws.String("SET lastModifiedAt = :lastModifiedAt, executiveSummary = :executiveSummary, " +
			"overallSummary = :overallSummary, sentimentChange = :sentimentChange, sentimentScore = :sentimentScore, #st = :status"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":executiveSummary": &types.AttributeValueMemberS{Value: fin.ExecutiveSummary},
			":overallSummary":   &types.AttributeValueMemberS{Value: fin.OverallSummary},
			":sentimentScore":   floatAttr(fin.SentimentScore),
			":sentimentChange":  floatAttr(fin.SentimentChange),
			":status":           &types.AttributeValueMemberS{Value: domain.StatusProcessed},
			":lastModifiedAt":   intAttr(nowUnix()),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: FinalizeHeader: %w", err)
	}
	return nil
}

func recordKey(jobID, sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: jobID},
		"SK": &types.AttributeValueMemberS{Value: sortKey},
	}
}

func intAttr(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func floatAttr(v float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}
