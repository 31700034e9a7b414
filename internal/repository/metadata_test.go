package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"ticket-insights/internal/domain"
)

type fakeDynamo struct {
	putErr        error
	queryPages    []*dynamodb.QueryOutput
	queryErr      error
	updateErr     error
	lastPutInput  *dynamodb.PutItemInput
	queryInputs   []*dynamodb.QueryInput
	lastUpdateIn  *dynamodb.UpdateItemInput
	queryCallsLen int
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	copied := *in
	f.queryInputs = append(f.queryInputs, &copied)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryCallsLen >= len(f.queryPages) {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.queryPages[f.queryCallsLen]
	f.queryCallsLen++
	return page, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateIn = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func mustNewStore(t *testing.T, db *fakeDynamo) *Store {
	t.Helper()
	s, err := New(db, "test-table", "recordTypeIndex")
	require.NoError(t, err)
	return s
}

func mustMarshal(t *testing.T, record any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(record)
	require.NoError(t, err)
	return item
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "table", "index")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, " ", "index")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, "table", "")
	require.Error(t, err)
}

func TestSortKeys(t *testing.T) {
	require.Equal(t, "header#1700000000", HeaderSortKey(1700000000))
	require.Equal(t, "call#call-7", CallSortKey("call-7"))
	require.Equal(t, "interaction#1700000500", InteractionSortKey(1700000500))
}

func TestPutHeader_SetsKeysAndRecordType(t *testing.T) {
	restore := nowUnix
	nowUnix = func() int64 { return 42 }
	defer func() { nowUnix = restore }()

	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	err := s.PutHeader(context.Background(), domain.Header{
		JobID:     "job-1",
		TicketID:  "T-1",
		Timestamp: 1700000000,
		Status:    domain.StatusSubmitted,
	})
	require.NoError(t, err)
	require.Equal(t, "test-table", *db.lastPutInput.TableName)

	var stored domain.Header
	require.NoError(t, attributevalue.UnmarshalMap(db.lastPutInput.Item, &stored))
	require.Equal(t, "job-1", stored.JobID)
	require.Equal(t, "header#1700000000", stored.SortKey)
	require.Equal(t, domain.RecordTypeHeader, stored.RecordType)
	require.Equal(t, int64(42), stored.LastModifiedAt)
}

func TestPutCall_RequiresJobID(t *testing.T) {
	s := mustNewStore(t, &fakeDynamo{})
	err := s.PutCall(context.Background(), domain.Call{CallID: "call-7"})
	require.Error(t, err)
}

func TestQueryHeaders_PrefixCondition(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			mustMarshal(t, domain.Header{JobID: "job-1", SortKey: "header#100", Timestamp: 100}),
		},
	}}}
	s := mustNewStore(t, db)

	headers, err := s.QueryHeaders(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, headers, 1)
	require.Equal(t, int64(100), headers[0].Timestamp)

	in := db.queryInputs[0]
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *in.KeyConditionExpression)
	require.Equal(t, &types.AttributeValueMemberS{Value: "job-1"}, in.ExpressionAttributeValues[":pk"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "header#"}, in.ExpressionAttributeValues[":prefix"])
	require.Nil(t, in.FilterExpression)
}

func TestQueryInteractions_PaginatesAllPages(t *testing.T) {
	lastKey := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "job-1"}}
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{
		{
			Items: []map[string]types.AttributeValue{
				mustMarshal(t, domain.Interaction{JobID: "job-1", SortKey: "interaction#100", Content: "first"}),
			},
			LastEvaluatedKey: lastKey,
		},
		{
			Items: []map[string]types.AttributeValue{
				mustMarshal(t, domain.Interaction{JobID: "job-1", SortKey: "interaction#200", Content: "second"}),
			},
		},
	}}
	s := mustNewStore(t, db)

	interactions, err := s.QueryInteractions(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	require.Equal(t, "first", interactions[0].Content)
	require.Equal(t, "second", interactions[1].Content)

	require.Len(t, db.queryInputs, 2)
	require.Equal(t, lastKey, db.queryInputs[1].ExclusiveStartKey)
}

func TestQueryAgentInteractions_FiltersOnInitiator(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{}}}
	s := mustNewStore(t, db)

	_, err := s.QueryAgentInteractions(context.Background(), "job-1")
	require.NoError(t, err)

	in := db.queryInputs[0]
	require.Equal(t, "initiator = :initiator", *in.FilterExpression)
	require.Equal(t, &types.AttributeValueMemberS{Value: domain.InitiatorAgent}, in.ExpressionAttributeValues[":initiator"])
}

func TestGetCall_NilWhenAbsent(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	call, err := s.GetCall(context.Background(), "job-1", "call-9")
	require.NoError(t, err)
	require.Nil(t, call)
}

func TestGetCall_ReturnsRecord(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			mustMarshal(t, domain.Call{JobID: "job-1", SortKey: "call#call-7", CallID: "call-7"}),
		},
	}}}
	s := mustNewStore(t, db)

	call, err := s.GetCall(context.Background(), "job-1", "call-7")
	require.NoError(t, err)
	require.NotNil(t, call)
	require.Equal(t, "call-7", call.CallID)
	require.Equal(t, &types.AttributeValueMemberS{Value: "call#call-7"}, db.queryInputs[0].ExpressionAttributeValues[":prefix"])
}

func TestListHeaders_UsesRecordTypeIndex(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			mustMarshal(t, domain.Header{JobID: "job-1", SortKey: "header#100"}),
			mustMarshal(t, domain.Header{JobID: "job-2", SortKey: "header#200"}),
		},
	}}}
	s := mustNewStore(t, db)

	headers, err := s.ListHeaders(context.Background())
	require.NoError(t, err)
	require.Len(t, headers, 2)

	in := db.queryInputs[0]
	require.Equal(t, "recordTypeIndex", *in.IndexName)
	require.Equal(t, "recordType = :recordType", *in.KeyConditionExpression)
}

func TestUpdateCallEnrichment_WritesAllFields(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	score := 100
	err := s.UpdateCallEnrichment(context.Background(), "job-1", "call-7", domain.CallEnrichment{
		InterimResultsFile: "jobs/job-1/call-7.json",
		LanguageCode:       "en-US",
		Duration:           182.5,
		SentimentScore:     0.4,
		SentimentChange:    1.2,
		Summary:            "refund confirmed",
		QAReport:           &domain.QAReport{OverallScore: score},
	})
	require.NoError(t, err)

	in := db.lastUpdateIn
	require.Equal(t, recordKey("job-1", "call#call-7"), in.Key)
	require.Contains(t, *in.UpdateExpression, "#du = :duration")
	require.Equal(t, "duration", in.ExpressionAttributeNames["#du"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "refund confirmed"}, in.ExpressionAttributeValues[":summary"])
	require.Equal(t, &types.AttributeValueMemberN{Value: "182.5"}, in.ExpressionAttributeValues[":duration"])

	var report domain.QAReport
	require.NoError(t, attributevalue.Unmarshal(in.ExpressionAttributeValues[":qaReport"], &report))
	require.Equal(t, score, report.OverallScore)
}

func TestUpdateInteractionQA(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	err := s.UpdateInteractionQA(context.Background(), "job-1", "interaction#100", &domain.QAReport{OverallScore: 75})
	require.NoError(t, err)

	in := db.lastUpdateIn
	require.Equal(t, recordKey("job-1", "interaction#100"), in.Key)
	require.Contains(t, *in.UpdateExpression, "qaReport = :qaReport")
}

func TestFinalizeHeader_SetsProcessedStatus(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	err := s.FinalizeHeader(context.Background(), "job-1", 1700000000, domain.HeaderFinalization{
		OverallSummary:   "overall",
		ExecutiveSummary: "executive",
		SentimentScore:   0.5,
		SentimentChange:  2,
	})
	require.NoError(t, err)

	in := db.lastUpdateIn
	require.Equal(t, recordKey("job-1", "header#1700000000"), in.Key)
	require.Equal(t, "status", in.ExpressionAttributeNames["#st"])
	require.Equal(t, &types.AttributeValueMemberS{Value: domain.StatusProcessed}, in.ExpressionAttributeValues[":status"])
}

func TestQueryHeaders_PropagatesError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throttled")}
	s := mustNewStore(t, db)

	_, err := s.QueryHeaders(context.Background(), "job-1")
	require.Error(t, err)
}
