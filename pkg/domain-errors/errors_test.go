package derrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("nil has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
	})

	t.Run("plain errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("direct domain error", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeConflict, "version mismatch"))
		assert.Equal(t, CodeConflict, CodeOf(err))
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeTransientStore, "write blob")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeTransientStore, CodeOf(err))
	assert.Contains(t, err.Error(), "write blob")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidInput, "field %q required", "kind")
	assert.Equal(t, CodeInvalidInput, err.Code)
	assert.Equal(t, `field "kind" required`, err.Message)
}

func TestOutermostCodeWins(t *testing.T) {
	inner := New(CodeNotFound, "record missing")
	outer := Wrap(inner, CodePermanentStore, "read metadata")
	assert.Equal(t, CodePermanentStore, CodeOf(outer))
}
