package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{"simple validation error", "url", "invalid format", "validation error on field 'url': invalid format"},
		{"required field error", "title", "required", "validation error on field 'title': required"},
		{"length validation error", "hash", "must be 64 hex characters", "validation error on field 'hash': must be 64 hex characters"},
		{"empty field name", "", "test message", "validation error on field '': test message"},
		{"empty message", "test", "", "validation error on field 'test': "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_WithErrors(t *testing.T) {
	err := &ValidationError{Field: "url", Message: "invalid format"}

	// ValidationError はセンチネルではないので Is は一致しない
	assert.False(t, errors.Is(err, ErrValidationFailed))

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "url", validationErr.Field)
	assert.Equal(t, "invalid format", validationErr.Message)
}

func TestValidationError_InErrorChain(t *testing.T) {
	baseErr := &ValidationError{Field: "url", Message: "invalid format"}
	wrappedErr := errors.Join(ErrValidationFailed, baseErr)

	// Join された連鎖から As と Is の双方で辿れること
	var validationErr *ValidationError
	assert.True(t, errors.As(wrappedErr, &validationErr))
	assert.Equal(t, "url", validationErr.Field)
	assert.True(t, errors.Is(wrappedErr, ErrValidationFailed))
}

func TestValidationError_ZeroValue(t *testing.T) {
	var err ValidationError

	assert.Equal(t, "", err.Field)
	assert.Equal(t, "", err.Message)
	assert.Equal(t, "validation error on field '': ", err.Error())
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrNotFound", ErrNotFound, "entity not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrValidationFailed", ErrValidationFailed, "validation failed"},
		{"ErrDuplicate", ErrDuplicate, "duplicate entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expected)
		})
	}

	// 各センチネルは互いに独立している
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
	assert.False(t, errors.Is(ErrInvalidInput, ErrValidationFailed))
	assert.False(t, errors.Is(ErrValidationFailed, ErrDuplicate))
}
