package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

func TestMaskHeaders(t *testing.T) {
	headers := maskHeaders(map[string][]string{
		"Authorization":    {"Bearer eyJhbGciOiJIUzI1NiJ9.payload.sig"},
		"Stripe-Signature": {"t=1,v1=abc"},
		"Content-Type":     {"application/json"},
	})

	assert.Equal(t, "Bearer eyJ...", headers["Authorization"])
	assert.Equal(t, "[MASKED]", headers["Stripe-Signature"])
	assert.Equal(t, "application/json", headers["Content-Type"])
}

func TestGrpcLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, grpcLogLevel("grpc.health.v1.Health", codes.OK))
	assert.Equal(t, zapcore.InfoLevel, grpcLogLevel("restore.v1.Admin", codes.OK))
	assert.Equal(t, zapcore.WarnLevel, grpcLogLevel("grpc.health.v1.Health", codes.NotFound))
	assert.Equal(t, zapcore.ErrorLevel, grpcLogLevel("restore.v1.Admin", codes.Internal))
}

func TestHTTPErrorHandlerRendersAppError(t *testing.T) {
	e := echo.New()
	WithEchoLogger(e, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restorations", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	e.HTTPErrorHandler(pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required"), c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"error":"fingerprint is required","error_code":"MISSING_IDENTIFIER","request_id":"req-123"}`,
		rec.Body.String())
}
