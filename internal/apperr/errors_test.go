package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errReason = errors.New("copy not available")

func TestValidationError(t *testing.T) {
	err := Validation("copy_id", errReason)

	assert.Equal(t, "copy_id: copy not available", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, errReason)
	assert.NotErrorIs(t, err, ErrConflict)

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "copy_id", ve.Field)
}

func TestNotFoundError(t *testing.T) {
	err := NotFound("loan", 42)

	assert.Equal(t, "loan 42 not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConflictError(t *testing.T) {
	err := Conflict(ErrStaleWrite)

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Equal(t, ErrStaleWrite.Error(), err.Error())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"validation", Validation("", errReason), ErrValidation},
		{"wrapped not found", fmt.Errorf("get loan: %w", NotFound("loan", 1)), ErrNotFound},
		{"conflict", Conflict(errReason), ErrConflict},
		{"plain", errors.New("disk full"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
