// Package rules reads rule-list bodies in the Surge, QuantumultX and
// Clash payload dialects into canonical rules.
package rules

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

type RuleError struct {
	Code    string
	Message string
	Hint    string
	Line    int
	Cause   error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := e.Code
	if e.Line > 0 {
		prefix = fmt.Sprintf("%s (line %d)", e.Code, e.Line)
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

// Types understood by at least one renderer.
var knownTypes = map[string]bool{
	"DOMAIN": true, "DOMAIN-SUFFIX": true, "DOMAIN-KEYWORD": true,
	"GEOIP": true, "IP-CIDR": true, "IP-CIDR6": true, "SRC-IP-CIDR": true,
	"IP-ASN": true, "DST-PORT": true, "SRC-PORT": true,
	"PROCESS-NAME": true, "USER-AGENT": true, "URL-REGEX": true,
	"MATCH": true,
}

var quanxTypes = map[string]string{
	"HOST":         "DOMAIN",
	"HOST-SUFFIX":  "DOMAIN-SUFFIX",
	"HOST-KEYWORD": "DOMAIN-KEYWORD",
	"IP-CIDR":      "IP-CIDR",
	"IP6-CIDR":     "IP-CIDR6",
	"GEOIP":        "GEOIP",
	"USER-AGENT":   "USER-AGENT",
	"FINAL":        "MATCH",
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "//")
}

// ParseList reads every rule in content and binds it to group. Lines that
// cannot be read are returned as errors and skipped. A "payload:" body is
// read as a Clash rule provider regardless of typ.
func ParseList(content string, typ model.RulesetType, group string) ([]model.Rule, []error) {
	lines := strings.Split(content, "\n")
	payload := false
	out := make([]model.Rule, 0, len(lines))
	var errs []error
	for i, raw := range lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || isComment(line) {
			continue
		}
		if line == "payload:" {
			payload = true
			continue
		}
		if payload || strings.HasPrefix(line, "- ") {
			line = unquote(strings.TrimSpace(strings.TrimPrefix(line, "-")))
		}

		var (
			r   model.Rule
			err error
		)
		switch typ {
		case model.RulesetClashDomain:
			r, err = parseDomainEntry(line)
		case model.RulesetClashIPCIDR:
			r, err = parseCIDREntry(line)
		case model.RulesetQuanX:
			r, err = parseQuanXLine(line)
		default:
			r, err = parseClassicalLine(line)
		}
		if err != nil {
			var rerr *RuleError
			if errors.As(err, &rerr) {
				rerr.Line = i + 1
			}
			errs = append(errs, err)
			continue
		}
		r.Action = group
		out = append(out, r)
	}
	return out, errs
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseInline reads the body of a "[]" ruleset entry such as "GEOIP,CN"
// or "FINAL".
func ParseInline(body string, group string) (model.Rule, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "内联规则不能为空"}
	}
	r, err := parseClassicalLine(body)
	if err != nil {
		return model.Rule{}, err
	}
	r.Action = group
	return r, nil
}

// ParseInlineRule parses "TYPE,VALUE,ACTION[,no-resolve]" or "MATCH,ACTION".
// ACTION is required.
func ParseInlineRule(line string) (model.Rule, error) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "rule line is empty"}
	}
	if isComment(line) {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "rule line is comment"}
	}
	parts := splitFields(line)
	typ := normalizeType(parts[0])
	if typ == "MATCH" {
		if len(parts) != 2 || parts[1] == "" {
			return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "MATCH 规则必须是 MATCH,<ACTION>"}
		}
		return model.Rule{Type: "MATCH", Action: parts[1]}, nil
	}
	if len(parts) < 3 || parts[2] == "" || strings.EqualFold(parts[2], "no-resolve") {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则缺少 ACTION", Hint: "expected: TYPE,VALUE,ACTION[,no-resolve]"}
	}
	r, err := parseClassicalLine(strings.Join(append([]string{parts[0], parts[1]}, parts[3:]...), ","))
	if err != nil {
		return model.Rule{}, err
	}
	r.Action = parts[2]
	return r, nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "FINAL" {
		return "MATCH"
	}
	return t
}

// parseClassicalLine reads "TYPE,VALUE[,extra...]". A trailing policy in
// the list is ignored because the ruleset entry decides the group.
func parseClassicalLine(line string) (model.Rule, error) {
	parts := splitFields(line)
	typ := normalizeType(parts[0])
	if typ == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则类型不能为空"}
	}
	if !knownTypes[typ] {
		return model.Rule{}, &RuleError{Code: "UNSUPPORTED_RULE_TYPE", Message: fmt.Sprintf("不支持的规则类型：%s", typ)}
	}
	if typ == "MATCH" {
		return model.Rule{Type: "MATCH"}, nil
	}
	if len(parts) < 2 || parts[1] == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则 VALUE 不能为空", Hint: "expected: TYPE,VALUE"}
	}
	r := model.Rule{Type: typ, Value: parts[1]}
	for _, extra := range parts[2:] {
		if strings.EqualFold(extra, "no-resolve") {
			r.NoResolve = true
		}
	}
	switch typ {
	case "IP-CIDR", "IP-CIDR6", "SRC-IP-CIDR":
		v6, err := cidrFamily(r.Value)
		if err != nil {
			return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: typ + " 的 CIDR 不合法", Cause: err}
		}
		if typ != "SRC-IP-CIDR" {
			r.Type = "IP-CIDR"
			if v6 {
				r.Type = "IP-CIDR6"
			}
		}
	}
	if r.NoResolve && !resolvable(r.Type) {
		r.NoResolve = false
	}
	return r, nil
}

func resolvable(typ string) bool {
	return typ == "IP-CIDR" || typ == "IP-CIDR6" || typ == "GEOIP" || typ == "IP-ASN"
}

func parseQuanXLine(line string) (model.Rule, error) {
	parts := splitFields(line)
	if t, ok := quanxTypes[strings.ToUpper(parts[0])]; ok {
		parts[0] = t
		return parseClassicalLine(strings.Join(parts, ","))
	}
	return parseClassicalLine(line)
}

// parseDomainEntry reads a Clash "domain" provider entry: "+.x" and "*.x"
// match suffixes, anything else is an exact domain.
func parseDomainEntry(line string) (model.Rule, error) {
	if strings.Contains(line, ",") {
		return parseClassicalLine(line)
	}
	switch {
	case strings.HasPrefix(line, "+."):
		return model.Rule{Type: "DOMAIN-SUFFIX", Value: line[2:]}, nil
	case strings.HasPrefix(line, "*."):
		return model.Rule{Type: "DOMAIN-SUFFIX", Value: line[2:]}, nil
	case strings.HasPrefix(line, "."):
		return model.Rule{Type: "DOMAIN-SUFFIX", Value: line[1:]}, nil
	default:
		return model.Rule{Type: "DOMAIN", Value: line}, nil
	}
}

func parseCIDREntry(line string) (model.Rule, error) {
	if strings.Contains(line, ",") {
		return parseClassicalLine(line)
	}
	v6, err := cidrFamily(line)
	if err != nil {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "CIDR 不合法", Cause: err}
	}
	if v6 {
		return model.Rule{Type: "IP-CIDR6", Value: line}, nil
	}
	return model.Rule{Type: "IP-CIDR", Value: line}, nil
}

func cidrFamily(s string) (bool, error) {
	ip, _, err := net.ParseCIDR(strings.TrimSpace(s))
	if err != nil {
		return false, err
	}
	if ip == nil {
		return false, errors.New("empty ip")
	}
	return ip.To4() == nil, nil
}
