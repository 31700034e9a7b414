package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorInvalidInput marks malformed stage input (bad rows, unknown ids).
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorEmptyTicket marks a job with no note rows to position a header from.
	ErrorEmptyTicket ErrorCode = "EMPTY_TICKET"
	// ErrorJudgmentParse marks model QA output with no recoverable JSON.
	ErrorJudgmentParse ErrorCode = "JUDGMENT_PARSE"
	// ErrorMissingJudgment marks a catalog rule absent from the judgment map.
	ErrorMissingJudgment ErrorCode = "MISSING_RULE_JUDGMENT"
	// ErrorNotFound marks a job whose header does not exist.
	ErrorNotFound ErrorCode = "NOT_FOUND"
	// ErrorUpstream marks an unreachable or failing external service.
	ErrorUpstream ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
