package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error는 기본 에러 인터페이스를 확장합니다
type Error interface {
	error
	Kind() Kind    // 에러 분류 반환
	Code() string  // 에러 코드 반환
	Unwrap() error // 내부 에러 반환
}

// AppError는 기본 에러 구현체입니다.
// message는 클라이언트에 노출해도 안전한 문구여야 합니다.
type AppError struct {
	kind    Kind
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Kind() Kind {
	return e.kind
}

func (e *AppError) Code() string {
	return e.code
}

// Message는 내부 에러를 제외한 안전한 메시지를 반환합니다
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// NewAppError는 새 애플리케이션 에러를 생성합니다
func NewAppError(kind Kind, code string, message string, err error) *AppError {
	return &AppError{
		kind:    kind,
		code:    code,
		message: message,
		err:     err,
	}
}

// Validation은 입력 검증 에러를 생성합니다
func Validation(code, message string) *AppError {
	return NewAppError(KindValidation, code, message, nil)
}

// Unauthorized는 인증/서명 에러를 생성합니다
func Unauthorized(code, message string, err error) *AppError {
	return NewAppError(KindAuthorization, code, message, err)
}

// NotFound는 리소스 없음 에러를 생성합니다
func NotFound(message string) *AppError {
	return NewAppError(KindNotFound, ErrNotFound, message, nil)
}

// Unavailable은 외부 서비스 장애 에러를 생성합니다
func Unavailable(code, message string, err error) *AppError {
	return NewAppError(KindUnavailable, code, message, err)
}

// Internal은 내부 에러를 생성합니다. 원인 에러는 로그에만 남고 응답에는 message만 노출됩니다
func Internal(code, message string, err error) *AppError {
	return NewAppError(KindInternal, code, message, err)
}

// Wrap은 기존 에러를 래핑합니다
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// 기존 AppError인 경우 분류와 코드를 유지합니다
	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Kind(), appErr.Code(), message, err)
	}

	return NewAppError(KindInternal, ErrInternal, message, err)
}

// KindOf는 에러 체인에서 분류를 추출합니다. AppError가 없으면 internal입니다
func KindOf(err error) Kind {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternal
}
