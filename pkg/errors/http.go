package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse는 모든 에러 응답의 공통 형태입니다
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id,omitempty"`
}

// ToHTTPStatus는 에러 분류를 HTTP 상태 코드로 변환합니다
func ToHTTPStatus(kind Kind) int {
	httpStatus, _ := GetCodeMapping(kind)
	return httpStatus
}

// ToHTTPResponse는 에러를 HTTP 상태 코드와 응답 본문으로 변환합니다.
// 내부 에러의 원인은 응답에 포함하지 않습니다.
func ToHTTPResponse(err error, requestID string) (int, ErrorResponse) {
	appErr := FromHTTPError(err)

	var ae *AppError
	As(appErr, &ae)

	return ToHTTPStatus(ae.Kind()), ErrorResponse{
		Error:     ae.Message(),
		ErrorCode: ae.Code(),
		RequestID: requestID,
	}
}

// FromHTTPError는 Echo HTTP 에러를 내부 에러로 변환합니다
func FromHTTPError(err error) error {
	if err == nil {
		return nil
	}

	// 이미 AppError인 경우 그대로 반환
	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}

	// Echo 에러 처리
	var echoErr *echo.HTTPError
	if As(err, &echoErr) {
		kind, code := httpStatusToKind(echoErr.Code)
		msg := http.StatusText(echoErr.Code)
		if m, ok := echoErr.Message.(string); ok && kind != KindInternal {
			msg = m
		}
		return NewAppError(kind, code, msg, err)
	}

	// 기본 에러는 Internal로 처리 (메시지는 노출하지 않음)
	return NewAppError(KindInternal, ErrInternal, "internal server error", err)
}

// httpStatusToKind는 HTTP 상태 코드를 내부 에러 분류로 변환합니다
func httpStatusToKind(status int) (Kind, string) {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return KindNotFound, ErrNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return KindValidation, ErrInvalidArgument
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthorization, ErrUnauthenticated
	case http.StatusConflict:
		return KindConflict, ErrConflict
	case http.StatusTooManyRequests:
		return KindRateLimited, ErrRateLimited
	case http.StatusGatewayTimeout:
		return KindUnavailable, ErrTimeout
	default:
		return KindInternal, ErrInternal
	}
}
