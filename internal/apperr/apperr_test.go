package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("booking 42: %w", ErrConflict)
	assert.Equal(t, ErrConflict, Kind(wrapped))
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("payment: %w", ErrNotFound)))
	assert.Nil(t, Kind(errors.New("boom")))
	assert.Nil(t, Kind(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("create order: %w", ErrGatewayUnavailable)))
	assert.True(t, IsRetryable(ErrRetryable))
	assert.False(t, IsRetryable(ErrSignatureInvalid))
	assert.False(t, IsRetryable(ErrValidation))
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("create booking: %w", FieldErrors{"ServiceID": "This field is required", "AddressID": "Must be a valid UUID"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, ErrValidation, Kind(err))

	var fields FieldErrors
	assert.True(t, errors.As(err, &fields))
	assert.Len(t, fields, 2)
	assert.Equal(t, "create booking: validation failed: AddressID: Must be a valid UUID; ServiceID: This field is required", err.Error())
}
