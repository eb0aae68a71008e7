package httpapi

import (
	"net/http"
	"strings"
	"testing"
)

func TestMetrics_CountsRequestsAndErrors(t *testing.T) {
	h := NewHandler(testOptions(t))

	if rr := doGET(t, h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr := doGET(t, h, "/sub?bogus=1"); rr.Code != http.StatusBadRequest {
		t.Fatalf("sub status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr := doGET(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`subconverter_http_requests_total{pattern="GET /healthz",status="200"} 1`,
		`subconverter_http_requests_total{pattern="GET /sub",status="400"} 1`,
		`subconverter_app_errors_total{code="INVALID_ARGUMENT",stage="validate_request"} 1`,
		`subconverter_ruleset_fresh_parses_total 0`,
		`subconverter_http_request_duration_seconds_count{pattern="GET /healthz"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics body missing %q, got:\n%s", want, body)
		}
	}
}
