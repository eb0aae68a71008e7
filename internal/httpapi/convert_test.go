package httpapi

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/settings"
)

func TestParseConvertGET(t *testing.T) {
	q := url.Values{}
	q.Set("target", "surge")
	q.Set("ver", "4")
	q.Set("url", "https://a| https://b ||")
	q.Set("udp", "true")
	q.Set("tfo", "0")
	q.Set("scv", "maybe")
	q.Set("interval", "600")
	req, err := parseConvertGET(httptest.NewRequest("GET", "/sub?"+q.Encode(), nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Target != "surge" || req.Ver != 4 || req.Interval != 600 {
		t.Fatalf("req=%+v", req)
	}
	if len(req.URLs) != 2 || req.URLs[1] != "https://b" {
		t.Fatalf("urls=%q", req.URLs)
	}
	if req.UDP != model.True || req.TFO != model.False || req.SCV != model.Unset {
		t.Fatalf("tribools udp=%v tfo=%v scv=%v", req.UDP, req.TFO, req.SCV)
	}
}

func TestBuildParams_Layering(t *testing.T) {
	s := settings.Default()
	s.DefaultURLs = []string{"https://default"}
	s.InsertURLs = []string{"https://insert"}
	s.Extra.UDP = model.True
	s.Extra.TFO = model.True

	h := &convertHandler{opt: testOptions(t)}
	p, err := h.buildParams(context.Background(), convertRequest{
		Target: "clash",
		TFO:    model.False,
		Insert: model.False,
		Emoji:  model.True,
		Rename: "a@b`c@d`bad",
	}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.URLs) != 1 || p.URLs[0] != "https://default" {
		t.Fatalf("urls=%q", p.URLs)
	}
	if len(p.InsertURLs) != 0 {
		t.Fatalf("insert=%q", p.InsertURLs)
	}
	if p.Extra.UDP != model.True || p.Extra.TFO != model.False {
		t.Fatalf("udp=%v tfo=%v", p.Extra.UDP, p.Extra.TFO)
	}
	if !p.Extra.AddEmoji || !p.Extra.RemoveEmoji {
		t.Fatalf("emoji add=%v remove=%v", p.Extra.AddEmoji, p.Extra.RemoveEmoji)
	}
	if len(p.Extra.RenameRules) != 2 || p.Extra.RenameRules[1].Match != "c" {
		t.Fatalf("rename=%+v", p.Extra.RenameRules)
	}
	if !p.Authorized {
		t.Fatalf("empty server token should authorize")
	}
}

func TestAuthorized(t *testing.T) {
	h := &convertHandler{opt: Options{Token: "s3cret"}}
	if h.authorized("") || h.authorized("s3cre") {
		t.Fatalf("wrong token authorized")
	}
	if !h.authorized("s3cret") {
		t.Fatalf("right token rejected")
	}
}
