// File: pkg/logger/echo_logger.go
package logger

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// 로그에 원문 그대로 남기지 않을 헤더
var maskedHeaders = map[string]bool{
	echo.HeaderAuthorization: true,
	"Stripe-Signature":       true,
}

// NewEchoRequestLogger는 Echo 서버를 위한 Request Logger를 생성합니다.
// /health, /metrics 요청은 기록하지 않습니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	config := middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		// 에러는 HTTPErrorHandler에서 응답으로 변환됩니다.
		HandleError: true,

		LogLatency:       true,
		LogRemoteIP:      true,
		LogMethod:        true,
		LogURI:           true,
		LogRoutePath:     true,
		LogRequestID:     true,
		LogUserAgent:     true,
		LogStatus:        true,
		LogError:         true,
		LogContentLength: true,
		LogResponseSize:  true,
		LogHeaders:       []string{"Content-Type", "Authorization", "Stripe-Signature"},
		LogQueryParams:   []string{"fingerprint"},

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.String("request.content_length", v.ContentLength),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
				zap.Int64("response.response_size", v.ResponseSize),
			}

			if len(v.Headers) > 0 {
				fields = append(fields, zap.Any("request.headers", maskHeaders(v.Headers)))
			}
			if len(v.QueryParams) > 0 {
				fields = append(fields, zap.Any("request.query_params", v.QueryParams))
			}

			switch {
			case v.Error != nil:
				fields = append(fields, zap.Error(v.Error))
				if v.Status >= 500 {
					logger.Error("Request failed", fields...)
				} else {
					logger.Warn("Request rejected", fields...)
				}
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	}

	return middleware.RequestLoggerWithConfig(config)
}

// maskHeaders 민감한 헤더 값은 앞부분만 남기고 가립니다.
func maskHeaders(in map[string][]string) map[string]string {
	headers := make(map[string]string, len(in))
	for k, values := range in {
		if len(values) == 0 {
			continue
		}
		val := values[0]
		if maskedHeaders[http.CanonicalHeaderKey(k)] {
			if len(val) > 15 {
				val = val[:10] + "..."
			} else {
				val = "[MASKED]"
			}
		}
		headers[k] = val
	}
	return headers
}

// WithEchoLogger Echo의 에러 핸들러를 설정합니다.
// 모든 에러는 {error, error_code, request_id} 형태의 JSON으로 응답합니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = c.Request().Header.Get(echo.HeaderXRequestID)
		}

		status, body := pkgerrors.ToHTTPResponse(err, requestID)
		if status >= http.StatusInternalServerError {
			pkgerrors.LogError(logger, err, "HTTP error",
				zap.Int("status", status),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", requestID),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// RequestID echo 컨텍스트에서 요청 ID를 꺼냅니다.
func RequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
}
