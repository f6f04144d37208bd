package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransportNoise(t *testing.T) {
	assert.True(t, IsTransportNoise(fmt.Errorf("delete 10: %w", ErrMessageGone)))
	assert.True(t, IsTransportNoise(ErrMessageNotModified))
	assert.False(t, IsTransportNoise(ErrCannotEdit))
	assert.False(t, IsTransportNoise(errors.New("boom")))
}

func TestRemoteErrorAs(t *testing.T) {
	err := fmt.Errorf("create order: %w", &RemoteError{Method: "POST", URL: "/api/orders/", Status: 500, Detail: "oops"})

	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, 500, remote.Status)
	assert.Contains(t, err.Error(), "status 500")
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "price: must be positive", NewValidationError("price", "must be positive").Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}
