package rules

import (
	"testing"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func FuzzParseInlineRule(f *testing.F) {
	seed := []string{
		"",
		"  \n",
		"# comment",
		"MATCH,DIRECT",
		"DOMAIN,example.com,DIRECT",
		"DOMAIN-SUFFIX,example.com,PROXY",
		"GEOIP,CN,DIRECT",
		"IP-CIDR,1.2.3.0/24,DIRECT,no-resolve",
		"IP-CIDR6,2001:db8::/32,REJECT,no-resolve",
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, line string) {
		r, err := ParseInlineRule(line)
		if err != nil {
			return
		}
		if r.Type == "" {
			t.Fatalf("empty rule type")
		}
		if r.Action == "" {
			t.Fatalf("empty rule action")
		}
		if r.Type != "MATCH" && r.Value == "" {
			t.Fatalf("empty rule value for type=%q", r.Type)
		}
		if r.NoResolve && !resolvable(r.Type) {
			t.Fatalf("no-resolve on non-ip rule: type=%q", r.Type)
		}
	})
}

func FuzzParseList(f *testing.F) {
	f.Add("payload:\n  - '+.google.com'\n  - DOMAIN,a.com\n")
	f.Add("host-suffix, google.com, proxy\nfinal, direct\n")
	f.Fuzz(func(t *testing.T, content string) {
		rs, _ := ParseList(content, model.RulesetSurge, "G")
		for _, r := range rs {
			if r.Action != "G" {
				t.Fatalf("action=%q, want G", r.Action)
			}
			if r.Type != "MATCH" && r.Value == "" {
				t.Fatalf("empty value for type=%q", r.Type)
			}
		}
	})
}
