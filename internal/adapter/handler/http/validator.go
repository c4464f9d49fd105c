package http

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the validator installed on the echo server
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate checks struct tags and converts failures into validation errors
func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "invalid request")
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Field() == "Fingerprint" {
		if fe.Tag() == "required" {
			return pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required")
		}
		return pkgerrors.Validation(pkgerrors.ErrInvalidFingerprint, "fingerprint must be at least 20 characters")
	}
	if fe.Tag() == "required" {
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, field+" is required")
	}
	return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, field+" is invalid")
}

// bindAndValidate binds the request into req and validates it
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "invalid request body")
	}
	return c.Validate(req)
}
