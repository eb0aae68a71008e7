package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func TestWriteError_JSONShapeAndHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Header().Set("Content-Disposition", `attachment; filename="x.yaml"`)
	writeError(rr, http.StatusUnprocessableEntity, model.AppError{
		Code:    "RULESET_PARSE_ERROR",
		Message: "规则行无效",
		Stage:   "load_ruleset",
		URL:     "https://example.com/Proxy.list",
		Line:    7,
		Snippet: "DOMAIN-SUFFIX",
	})

	if got, want := rr.Code, http.StatusUnprocessableEntity; got != want {
		t.Fatalf("status = %d, want %d", got, want)
	}
	if got, want := rr.Header().Get("Content-Type"), "application/json; charset=utf-8"; got != want {
		t.Fatalf("Content-Type = %q, want %q", got, want)
	}
	if got := rr.Header().Get("Content-Disposition"); got != "" {
		t.Fatalf("Content-Disposition = %q, want empty on error", got)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nbody=%q", err, rr.Body.String())
	}
	if resp.Error.Code != "RULESET_PARSE_ERROR" || resp.Error.Stage != "load_ruleset" || resp.Error.Line != 7 {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestWriteDocument_HeadersOverrideDefault(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDocument(rr, http.StatusOK, map[string]string{
		"Subscription-UserInfo": "upload=1; download=2",
		"Content-Type":          "application/json; charset=utf-8",
	}, "{}")

	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Subscription-UserInfo"); got != "upload=1; download=2" {
		t.Fatalf("Subscription-UserInfo = %q", got)
	}
	if got := rr.Header().Get("Content-Length"); got != "2" {
		t.Fatalf("Content-Length = %q", got)
	}
	if rr.Body.String() != "{}" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestWriteText_Default(t *testing.T) {
	rr := httptest.NewRecorder()
	writeText(rr, http.StatusOK, "ok\n")
	if got := rr.Header().Get("Content-Type"); got != contentTypeText {
		t.Fatalf("Content-Type = %q", got)
	}
}
