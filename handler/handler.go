package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"ticket-insights/internal/domain"
	"ticket-insights/internal/usecase"
)

// Routed resource paths, matching the API Gateway resource definitions.
const (
	resourceTickets = "/tickets"
	resourceTicket  = "/tickets/{ticketId}/{jobId}"
	resourceCall    = "/tickets/{ticketId}/{jobId}/{callId}"
	resourceQuery   = "/tickets/{ticketId}/{jobId}/{callId}/query"
)

// QueryAPI is the read surface the handler exposes.
type QueryAPI interface {
	ListTickets(ctx context.Context) ([]domain.Header, error)
	GetTicket(ctx context.Context, jobID string) (usecase.TicketDetail, error)
	GetCall(ctx context.Context, jobID, callID string) (usecase.CallDetail, error)
	AskCall(ctx context.Context, jobID, callID, question string) (string, error)
}

type Handler struct {
	api QueryAPI
}

type questionRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(api QueryAPI) (*Handler, error) {
	if api == nil {
		return nil, errors.New("handler: query api must not be nil")
	}
	return &Handler{api: api}, nil
}

// Handle routes one API Gateway proxy event by its resource path.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)
	jobID := event.PathParameters["jobId"]
	callID := event.PathParameters["callId"]

	switch event.Resource {
	case resourceTickets:
		headers, err := h.api.ListTickets(ctx)
		if err != nil {
			return errorFor(err, correlationID), nil
		}
		if headers == nil {
			headers = []domain.Header{}
		}
		return respond(http.StatusOK, headers, correlationID), nil

	case resourceTicket:
		ticket, err := h.api.GetTicket(ctx, jobID)
		if err != nil {
			return errorFor(err, correlationID), nil
		}
		return respond(http.StatusOK, ticket, correlationID), nil

	case resourceCall:
		call, err := h.api.GetCall(ctx, jobID, callID)
		if err != nil {
			return errorFor(err, correlationID), nil
		}
		return respond(http.StatusOK, call, correlationID), nil

	case resourceQuery:
		var req questionRequest
		if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
			body := errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"}
			return respond(http.StatusBadRequest, body, correlationID), nil
		}
		answer, err := h.api.AskCall(ctx, jobID, callID, req.Question)
		if err != nil {
			return errorFor(err, correlationID), nil
		}
		return respond(http.StatusOK, answerResponse{Answer: answer}, correlationID), nil
	}

	body := errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "unknown_resource"}
	return respond(http.StatusNotFound, body, correlationID), nil
}

func errorFor(err error, correlationID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("unhandled error", "err", err)
		body := errorResponse{Error: string(usecase.ErrorInternal)}
		return respond(http.StatusInternalServerError, body, correlationID)
	}
	return respond(statusFor(ucErr.Code), errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason}, correlationID)
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorEmptyTicket:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("encode response body", "err", err)
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(payload),
	}
}

func correlationIDFrom(headers map[string]string) string {
	for name, value := range headers {
		if strings.EqualFold(name, "x-correlation-id") && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return uuid.NewString()
}
