package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := New(BadInput, "missing field")
	assert.Equal(t, "bad_input: missing field", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StoreUnavailable, "query chunks", cause)
	assert.Contains(t, err.Error(), "store_unavailable")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, err.Unwrap())
}

func TestIsMatchesKind(t *testing.T) {
	err := New(ToolInputRejected, "bad filter")
	assert.True(t, Is(err, ToolInputRejected))
	assert.False(t, Is(err, BadInput))
	assert.False(t, Is(errors.New("plain"), BadInput))
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(New(Timeout, "slow"))
	require := assert.New(t)
	require.True(ok)
	require.Equal(Timeout, kind)

	_, ok = KindOf(errors.New("plain"))
	require.False(ok)
}

func TestRetriable(t *testing.T) {
	assert.True(t, Retriable(New(StoreUnavailable, "x")))
	assert.True(t, Retriable(New(EmbedderUnavailable, "x")))
	assert.True(t, Retriable(New(LLMUnavailable, "x")))
	assert.False(t, Retriable(New(BadInput, "x")))
	assert.False(t, Retriable(errors.New("plain")))
}

func TestErrorWrapsViaErrorsAs(t *testing.T) {
	var target *Error
	err := Wrap(BadQuery, "parse", errors.New("syntax error"))
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, BadQuery, target.Kind)
}
