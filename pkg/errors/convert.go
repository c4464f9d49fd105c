package errors

// CodePair는 프레임워크 간 코드 매핑을 위한 구조체입니다
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

// 분류별 코드 매핑 테이블
var kindMapping = map[Kind]CodePair{
	KindValidation:    {400, 3},  // Bad Request, INVALID_ARGUMENT
	KindAuthorization: {401, 16}, // Unauthorized, UNAUTHENTICATED
	KindNotFound:      {404, 5},  // Not Found, NOT_FOUND
	KindConflict:      {409, 6},  // Conflict, ALREADY_EXISTS
	KindFunds:         {402, 9},  // Payment Required, FAILED_PRECONDITION
	KindQuota:         {429, 8},  // Too Many Requests, RESOURCE_EXHAUSTED
	KindRateLimited:   {429, 8},  // Too Many Requests, RESOURCE_EXHAUSTED
	KindUnavailable:   {503, 14}, // Service Unavailable, UNAVAILABLE
	KindInternal:      {500, 13}, // Internal Server Error, INTERNAL
}

// GetCodeMapping은 특정 에러 분류에 대한 HTTP 및 gRPC 코드 매핑을 반환합니다
func GetCodeMapping(kind Kind) (int, int) {
	if pair, ok := kindMapping[kind]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13 // 기본값으로 Internal Server Error
}
