package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
)

// MapDomainError 将领域错误翻译为对外的 HTTP 错误，无法识别时返回 nil 由调用方兜底。
// Title 固定为稳定的错误码字符串，客户端按 title 分支处理。
func MapDomainError(err error) *httperrors.HTTPError {
	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		status := statusForCode(sessionErr)
		if status == 0 {
			return nil
		}

		httpErr := httperrors.NewHTTPErrorWithDetail(status, types.PublicHTTPErrorTypeGeneric, string(sessionErr.Code), sessionErr.Reason)
		httpErr.Internal = sessionErr.Original

		return httpErr
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return httperrors.NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeGeneric, "session not found")
	case errors.Is(err, approval.ErrNotFound):
		return httperrors.NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeGeneric, "approval not found")
	case errors.Is(err, approval.ErrUnauthorizedApprover):
		return httperrors.NewHTTPError(http.StatusForbidden, types.PublicHTTPErrorTypeGeneric, "approver is not eligible to vote")
	case errors.Is(err, approval.ErrDuplicateVote):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeGeneric, "approver has already voted")
	case errors.Is(err, approval.ErrAlreadyResolved):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeGeneric, "approval is already resolved")
	case errors.Is(err, approval.ErrExpired):
		return httperrors.NewHTTPError(http.StatusGone, types.PublicHTTPErrorTypeGeneric, "approval has expired")
	}

	return nil
}

func statusForCode(e *session.Error) int {
	switch e.Code {
	case session.CodeInvalidThreshold, session.CodeInvalidParticipantCount:
		return http.StatusBadRequest
	case session.CodeUnauthorizedParticipant:
		return http.StatusForbidden
	case session.CodeDuplicateSubmission, session.CodeRoundClosed, session.CodeConcurrencyConflict, session.CodeApprovalRejected:
		return http.StatusConflict
	case session.CodeSessionExpired, session.CodeApprovalExpired:
		return http.StatusGone
	case session.CodePublishFailed:
		// 中继失败是上游故障，前置状态不满足则是调用方冲突
		if e.Original != nil {
			return http.StatusBadGateway
		}
		return http.StatusConflict
	case session.CodeAggregationError, session.CodeSignatureVerificationFailed:
		return http.StatusInternalServerError
	}

	return 0
}
