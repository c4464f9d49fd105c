package http

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

type fingerprintRequest struct {
	Fingerprint string `validate:"required,min=20"`
	Name        string `validate:"required"`
}

func TestRequestValidatorCodes(t *testing.T) {
	v := NewRequestValidator()

	tests := []struct {
		name string
		req  fingerprintRequest
		code string
	}{
		{"missing fingerprint", fingerprintRequest{Name: "x"}, pkgerrors.ErrMissingIdentifier},
		{"short fingerprint", fingerprintRequest{Fingerprint: "short", Name: "x"}, pkgerrors.ErrInvalidFingerprint},
		{"other field", fingerprintRequest{Fingerprint: testFingerprint}, pkgerrors.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			var appErr *pkgerrors.AppError
			if assert.ErrorAs(t, err, &appErr) {
				assert.Equal(t, tt.code, appErr.Code())
			}
		})
	}

	assert.NoError(t, v.Validate(&fingerprintRequest{Fingerprint: testFingerprint, Name: "x"}))
}
