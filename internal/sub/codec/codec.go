// Package codec holds the decoding helpers and error type shared by the
// link parsers.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ErrUnknownScheme is wrapped by ParseError for links no parser claims.
var ErrUnknownScheme = errors.New("unknown link scheme")

// NewParseError builds a link-scoped error. Callers that know the source
// URL and line number fill them in afterwards.
func NewParseError(link, code, message, hint string, cause error) *ParseError {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "parse_sub",
			Snippet: model.Snippet(link),
			Hint:    hint,
		},
		Cause: cause,
	}
}

// Invalid is the common "malformed link" error.
func Invalid(link, message string, cause error) *ParseError {
	return NewParseError(link, "SUB_PARSE_ERROR", message, "", cause)
}

// ParsePort accepts 1-65535 only.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, errors.New("port out of range")
	}
	return p, nil
}

func ParseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	port, err := ParsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// DecodeBase64 tries the standard alphabet (with padding) first, then
// URL-safe, then the raw variants.
func DecodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// DecodeBase64Text decodes s and requires valid UTF-8.
func DecodeBase64Text(s string) (string, error) {
	b, err := DecodeBase64(RemoveSpaceTabCRLF(s))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded text is not valid utf-8")
	}
	return string(b), nil
}

// DecodeBase64Lenient returns "" when s is not base64.
func DecodeBase64Lenient(s string) string {
	out, err := DecodeBase64Text(s)
	if err != nil {
		return ""
	}
	return out
}

func EncodeBase64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func RemoveSpaceTabCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func StripUTF8BOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// HasControl reports whether s holds CR, LF or NUL.
func HasControl(s string) bool {
	return strings.ContainsAny(s, "\r\n\x00")
}
