package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_002", "Insufficient coins", http.StatusBadRequest),
			expected: "[WAL_002] Insufficient coins",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestErrorCatalog(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAmount", ErrInvalidAmount(), "WAL_001", 400},
		{"InsufficientCoins", ErrInsufficientCoins(), "WAL_002", 400},
		{"Validation", Validation("bad input"), "REQ_001", 400},
		{"NotFound", ErrNotFound("Order"), "REQ_004", 404},
		{"DuplicateRequest", ErrDuplicateRequest(), "REQ_009", 409},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"EmailExists", ErrEmailExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"RateLimitExceeded", ErrRateLimitExceeded(), "RATE_001", 429},
		{"InternalError", InternalError(nil), "SYS_001", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestDatabaseError_Wraps(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Account")
	assert.Contains(t, err.Message, "Account")
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", ErrInsufficientCoins())
	assert.True(t, Is(wrapped, "WAL_002"))
	assert.False(t, Is(wrapped, "WAL_001"))
	assert.False(t, Is(errors.New("plain"), "WAL_002"))
}
