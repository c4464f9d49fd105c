package http

import (
	"github.com/labstack/echo/v4"

	"github.com/wekeepgrowing/restoration-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// resolveAccount picks the ledger account for a request: the authenticated
// user when present, otherwise the device fingerprint.
func resolveAccount(c echo.Context, fingerprint string) (string, error) {
	if user := auth.GetUserFromContext(c); user != nil {
		return user.UserID, nil
	}
	if fingerprint == "" {
		return "", pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required")
	}
	if len(fingerprint) < usecase.MinFingerprintLength {
		return "", pkgerrors.Validation(pkgerrors.ErrInvalidFingerprint, "fingerprint must be at least 20 characters")
	}
	return fingerprint, nil
}

// userEmail returns the authenticated caller's email, if any.
func userEmail(c echo.Context) string {
	if user := auth.GetUserFromContext(c); user != nil {
		return user.Email
	}
	return ""
}
