package model

import (
	"strings"
	"unicode/utf8"
)

// MaxSnippet caps AppError.Snippet in bytes.
const MaxSnippet = 200

// AppError is the error payload shared by every stage of the conversion
// pipeline. The HTTP layer serializes it as {"error": AppError}.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage"`

	URL     string `json:"url,omitempty"`
	Line    int    `json:"line,omitempty"` // 1-based; 0 means "not set"
	Snippet string `json:"snippet,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type ErrorResponse struct {
	Error AppError `json:"error"`
}

// Snippet flattens s to one line and cuts it to MaxSnippet bytes without
// splitting a UTF-8 sequence.
func Snippet(s string) string {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	if len(s) <= MaxSnippet {
		return s
	}
	cut := MaxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
