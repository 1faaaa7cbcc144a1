package session

import (
	"fmt"

	"github.com/pkg/errors"
)

// 存储层哨兵错误
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrConcurrencyConflict = errors.New("session was modified concurrently")
)

// ErrorCode 签名流程错误码
type ErrorCode string

const (
	CodeInvalidThreshold            ErrorCode = "InvalidThreshold"
	CodeInvalidParticipantCount     ErrorCode = "InvalidParticipantCount"
	CodeUnauthorizedParticipant     ErrorCode = "UnauthorizedParticipant"
	CodeDuplicateSubmission         ErrorCode = "DuplicateSubmission"
	CodeRoundClosed                 ErrorCode = "RoundClosed"
	CodeConcurrencyConflict         ErrorCode = "ConcurrencyConflict"
	CodeSessionExpired              ErrorCode = "SessionExpired"
	CodeAggregationError            ErrorCode = "AggregationError"
	CodeSignatureVerificationFailed ErrorCode = "SignatureVerificationFailed"
	CodePublishFailed               ErrorCode = "PublishFailed"
	CodeApprovalRejected            ErrorCode = "ApprovalRejected"
	CodeApprovalExpired             ErrorCode = "ApprovalExpired"
)

// Error 携带错误码与会话上下文的签名流程错误
type Error struct {
	Code      ErrorCode
	SessionID string
	Reason    string
	Original  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Reason)
	if e.SessionID != "" {
		msg = fmt.Sprintf("[%s] session %s: %s", e.Code, e.SessionID, e.Reason)
	}
	if e.Original != nil {
		msg = msg + ": " + e.Original.Error()
	}
	return msg
}

// Unwrap 暴露底层错误
func (e *Error) Unwrap() error {
	return e.Original
}

// NewError ...
func NewError(code ErrorCode, sessionID, reason string) *Error {
	return &Error{Code: code, SessionID: sessionID, Reason: reason}
}

// WrapError 在保留底层错误的同时附加错误码
func WrapError(code ErrorCode, sessionID string, original error, reason string) *Error {
	return &Error{Code: code, SessionID: sessionID, Reason: reason, Original: original}
}

// CodeOf 提取错误码，非签名流程错误返回空串
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
