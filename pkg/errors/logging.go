package errors

import (
	"go.uber.org/zap"
)

// LogError는 에러를 구조화된 로그로 기록합니다.
// 클라이언트 에러(검증, 쿼터 등)는 Warn, 그 외는 Error 레벨로 기록합니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	// 기본 필드
	allFields := make([]zap.Field, 0, len(fields)+3)
	allFields = append(allFields, zap.Error(err))

	// AppError에서 추가 정보 추출
	kind := KindInternal
	var appErr *AppError
	if As(err, &appErr) {
		kind = appErr.Kind()
		allFields = append(allFields,
			zap.String("error_code", appErr.Code()),
			zap.String("error_kind", string(kind)))
	}

	// 추가 필드 병합
	allFields = append(allFields, fields...)

	// 로깅
	switch kind {
	case KindInternal, KindUnavailable:
		logger.Error(msg, allFields...)
	default:
		logger.Warn(msg, allFields...)
	}
}
