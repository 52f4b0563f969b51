package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := New(CodeInfrastructure, "registry unavailable")

	t.Run("direct", func(t *testing.T) {
		assert.True(t, HasCode(base, CodeInfrastructure))
		assert.False(t, HasCode(base, CodeValidation))
	})

	t.Run("through fmt wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("screen: %w", base)
		assert.True(t, HasCode(wrapped, CodeInfrastructure))
	})

	t.Run("nested domain errors", func(t *testing.T) {
		outer := Wrap(base, CodeInternal, "l1 failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeInfrastructure))
		assert.Equal(t, CodeInternal, CodeOf(outer))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))

	cause := errors.New("dial tcp: timeout")
	err := Wrap(cause, CodeInfrastructure, "processing delayed")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "processing delayed", MessageOf(err))
	assert.ErrorIs(t, err, New(CodeInfrastructure, "processing delayed"))
}
