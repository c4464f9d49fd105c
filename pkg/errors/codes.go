package errors

// Kind는 에러 분류(taxonomy)입니다. 응답 코드 매핑은 convert.go의 테이블에서만 결정됩니다.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindQuota         Kind = "quota"
	KindFunds         Kind = "funds"
	KindRateLimited   Kind = "rate_limited"
	KindUnavailable   Kind = "unavailable"
	KindInternal      Kind = "internal"
)

// 공통 에러 코드 정의 (클라이언트에 노출되는 error_code)
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrRateLimited     = "RATE_LIMITED"

	// 식별자/파일 검증
	ErrMissingIdentifier  = "MISSING_IDENTIFIER"
	ErrInvalidFingerprint = "INVALID_FINGERPRINT"
	ErrInvalidFile        = "INVALID_FILE"

	// 웹훅
	ErrMissingSignature        = "MISSING_SIGNATURE"
	ErrInvalidSignature        = "INVALID_SIGNATURE"
	ErrAuditLogFailed          = "AUDIT_LOG_FAILED"
	ErrWebhookProcessingFailed = "WEBHOOK_PROCESSING_FAILED"

	// 과금/쿼터
	ErrQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrQuotaCheckFailed    = "QUOTA_CHECK_FAILED"
	ErrInsufficientCredits = "INSUFFICIENT_CREDITS"

	// 외부 서비스
	ErrPaymentUnavailable   = "PAYMENT_PROVIDER_UNAVAILABLE"
	ErrInferenceUnavailable = "INFERENCE_UNAVAILABLE"
	ErrStorageUnavailable   = "STORAGE_UNAVAILABLE"
)
