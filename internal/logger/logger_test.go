package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsUnknownLevelAndFormat(t *testing.T) {
	_, err := New("loud", "text", &bytes.Buffer{})
	assert.Error(t, err)
	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWithFields_MasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	require.NoError(t, err)
	Set(l)
	t.Cleanup(func() { Set(nil) })

	Warn("skip source", "url", "https://example.com/sub", "api_token", "abc123", "err", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"url":"https://example.com/sub"`)
	assert.Contains(t, out, `"api_token":"***"`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.NotContains(t, out, "abc123")
}

func TestToFields_OddArgs(t *testing.T) {
	f := toFields([]any{"a", 1, "dangling"})
	assert.Equal(t, 1, f["a"])
	assert.Equal(t, "dangling", f["!BADKEY"])
}
