package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64_Alphabets(t *testing.T) {
	for _, in := range []string{"aGk/Pz8=", "aGk_Pz8=", "aGk/Pz8", "aGk_Pz8"} {
		got, err := DecodeBase64(in)
		require.NoError(t, err, in)
		assert.Equal(t, "hi???", string(got), in)
	}
	_, err := DecodeBase64("***")
	assert.Error(t, err)
}

func TestDecodeBase64Text_StripsWhitespace(t *testing.T) {
	got, err := DecodeBase64Text("aGVs\r\nbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "", DecodeBase64Lenient("%%%"))
}

func TestParseHostPort(t *testing.T) {
	h, p, err := ParseHostPort("[::1]:8388")
	require.NoError(t, err)
	assert.Equal(t, "::1", h)
	assert.Equal(t, 8388, p)

	for _, bad := range []string{"example.com", ":80", "example.com:0", "example.com:65536", "example.com:x"} {
		_, _, err := ParseHostPort(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseError_Format(t *testing.T) {
	var nilErr *ParseError
	assert.Equal(t, "<nil>", nilErr.Error())

	e := NewParseError("x://y", "SUB_UNSUPPORTED_SCHEME", "msg", "", ErrUnknownScheme)
	assert.True(t, errors.Is(e, ErrUnknownScheme))
	assert.Equal(t, "parse_sub", e.AppError.Stage)
	assert.Equal(t, "x://y", e.AppError.Snippet)
}
