package rules

import (
	"errors"
	"testing"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func TestParseList_SurgeList(t *testing.T) {
	content := "# comment\n" +
		"DOMAIN-SUFFIX,google.com\r\n" +
		"DOMAIN-KEYWORD,youtube,Proxy\n" +
		"IP-CIDR,91.108.4.0/22,no-resolve\n" +
		"IP-CIDR,2001:b28:f23d::/48\n" +
		"AND,((DOMAIN,a.com),(DST-PORT,443))\n" +
		"// another comment\n" +
		"USER-AGENT,Telegram*\n"

	rs, errs := ParseList(content, model.RulesetSurge, "Telegram")
	if len(rs) != 5 {
		t.Fatalf("len=%d, want=5 (%+v)", len(rs), rs)
	}
	if len(errs) != 1 {
		t.Fatalf("errs=%d, want=1", len(errs))
	}
	var rerr *RuleError
	if !errors.As(errs[0], &rerr) || rerr.Line != 6 {
		t.Fatalf("err=%v, want RuleError on line 6", errs[0])
	}
	if rs[1].Action != "Telegram" {
		t.Fatalf("action=%q, want list group", rs[1].Action)
	}
	if !rs[2].NoResolve || rs[2].Type != "IP-CIDR" {
		t.Fatalf("rule=%+v, want IP-CIDR no-resolve", rs[2])
	}
	if rs[3].Type != "IP-CIDR6" {
		t.Fatalf("type=%q, want=%q", rs[3].Type, "IP-CIDR6")
	}
}

func TestParseList_ClashPayload(t *testing.T) {
	content := "payload:\n  - '+.google.com'\n  - \"example.org\"\n  - '.cn'\n"
	rs, errs := ParseList(content, model.RulesetClashDomain, "G")
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	want := []model.Rule{
		{Type: "DOMAIN-SUFFIX", Value: "google.com", Action: "G"},
		{Type: "DOMAIN", Value: "example.org", Action: "G"},
		{Type: "DOMAIN-SUFFIX", Value: "cn", Action: "G"},
	}
	if len(rs) != len(want) {
		t.Fatalf("len=%d, want=%d", len(rs), len(want))
	}
	for i := range want {
		if rs[i] != want[i] {
			t.Fatalf("rs[%d]=%+v, want=%+v", i, rs[i], want[i])
		}
	}
}

func TestParseList_ClashIPCIDRAndClassical(t *testing.T) {
	rs, _ := ParseList("payload:\n  - 10.0.0.0/8\n  - fd00::/8\n", model.RulesetClashIPCIDR, "LAN")
	if len(rs) != 2 || rs[0].Type != "IP-CIDR" || rs[1].Type != "IP-CIDR6" {
		t.Fatalf("rs=%+v", rs)
	}
	rs, _ = ParseList("payload:\n  - DOMAIN-SUFFIX,apple.com\n  - GEOIP,CN,no-resolve\n", model.RulesetClashClassical, "Apple")
	if len(rs) != 2 || rs[1].Type != "GEOIP" || !rs[1].NoResolve {
		t.Fatalf("rs=%+v", rs)
	}
}

func TestParseList_QuanX(t *testing.T) {
	rs, errs := ParseList("host-suffix, google.com, proxy\nip6-cidr, 2001:db8::/32, proxy\nfinal, direct\n", model.RulesetQuanX, "G")
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if len(rs) != 3 || rs[0].Type != "DOMAIN-SUFFIX" || rs[1].Type != "IP-CIDR6" || rs[2].Type != "MATCH" {
		t.Fatalf("rs=%+v", rs)
	}
}

func TestParseInline(t *testing.T) {
	r, err := ParseInline("GEOIP,CN", "Domestic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (model.Rule{Type: "GEOIP", Value: "CN", Action: "Domestic"}) {
		t.Fatalf("rule=%+v", r)
	}
	r, err = ParseInline("FINAL", "Final")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != "MATCH" || r.Action != "Final" {
		t.Fatalf("rule=%+v", r)
	}
	if _, err := ParseInline("", "G"); err == nil {
		t.Fatalf("expected error for empty inline rule")
	}
}

func TestParseInlineRule_RequireAction(t *testing.T) {
	_, err := ParseInlineRule("DOMAIN,example.com")
	var rerr *RuleError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuleError, got %T: %v", err, err)
	}
	if rerr.Code != "RULE_PARSE_ERROR" {
		t.Fatalf("code=%q, want=%q", rerr.Code, "RULE_PARSE_ERROR")
	}
}

func TestParseInlineRule_NoResolveWithoutAction(t *testing.T) {
	_, err := ParseInlineRule("IP-CIDR,1.2.3.0/24,no-resolve")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseInlineRule_WithAction(t *testing.T) {
	r, err := ParseInlineRule("IP-CIDR,1.2.3.0/24,DIRECT,no-resolve")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (model.Rule{Type: "IP-CIDR", Value: "1.2.3.0/24", Action: "DIRECT", NoResolve: true}) {
		t.Fatalf("rule=%+v", r)
	}
	m, err := ParseInlineRule("MATCH,Proxy")
	if err != nil || m.Type != "MATCH" || m.Action != "Proxy" {
		t.Fatalf("rule=%+v err=%v", m, err)
	}
}

func TestParseInlineRule_UnsupportedType(t *testing.T) {
	_, err := ParseInlineRule("FOO,bar,DIRECT")
	var rerr *RuleError
	if !errors.As(err, &rerr) || rerr.Code != "UNSUPPORTED_RULE_TYPE" {
		t.Fatalf("err=%v, want UNSUPPORTED_RULE_TYPE", err)
	}
}
