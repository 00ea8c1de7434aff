package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeValidation, "first name is required")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code nested under another coded error", func(t *testing.T) {
		inner := New(CodeUnavailable, "candidate store unreachable")
		outer := Wrap(inner, CodeInternal, "evaluate record")
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("row 3: %w", New(CodeDeactivated, "de-activated record exists for trn 1234567"))
		assert.True(t, HasCode(err, CodeDeactivated))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "find by trn")

	assert.Equal(t, "find by trn: connection refused", err.Error())
	assert.Equal(t, "find by trn", Message(err))
	assert.Equal(t, CodeUnavailable, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, GetCode(cause))
}
