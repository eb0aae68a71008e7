package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/rules"
)

type directiveError struct {
	Code    string
	Message string
	Hint    string
	Cause   error
}

func (e *directiveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *directiveError) Unwrap() error { return e.Cause }

const groupHint = "expected: <NAME>`<TYPE>`<MEMBER>...[`<URL>`<INTERVAL>[,<TIMEOUT>][,<TOLERANCE>]]"

// ParseGroupDirective reads "NAME`TYPE`MEMBER`MEMBER..." lines. Health
// checked types end with "`URL`INTERVAL[,TIMEOUT][,TOLERANCE]". A member
// segment holding several "[]" literals is split into one entry each.
func ParseGroupDirective(raw string) (model.ProxyGroupConfig, error) {
	parts := strings.Split(raw, "`")
	if len(parts) < 3 {
		return model.ProxyGroupConfig{}, &directiveError{
			Code:    "GROUP_PARSE_ERROR",
			Message: "custom_proxy_group 指令格式不合法",
			Hint:    groupHint,
		}
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return model.ProxyGroupConfig{}, &directiveError{Code: "GROUP_PARSE_ERROR", Message: "策略组名不能为空", Hint: groupHint}
	}
	if strings.ContainsAny(name, "\r\n\x00") {
		return model.ProxyGroupConfig{}, &directiveError{Code: "GROUP_PARSE_ERROR", Message: "策略组名包含非法控制字符"}
	}
	typ, ok := model.ParseGroupType(parts[1])
	if !ok {
		return model.ProxyGroupConfig{}, &directiveError{
			Code:    "GROUP_UNSUPPORTED_TYPE",
			Message: fmt.Sprintf("不支持的策略组类型：%s", strings.TrimSpace(parts[1])),
		}
	}

	g := model.ProxyGroupConfig{Name: name, Type: typ}
	members := parts[2:]
	if typ.HealthChecked() {
		if len(members) < 3 {
			return model.ProxyGroupConfig{}, &directiveError{
				Code:    "GROUP_PARSE_ERROR",
				Message: fmt.Sprintf("%s 策略组缺少测试地址或间隔", typ),
				Hint:    groupHint,
			}
		}
		n := len(members)
		g.URL = strings.TrimSpace(members[n-2])
		if err := parseHealthSpec(&g, members[n-1]); err != nil {
			return model.ProxyGroupConfig{}, err
		}
		members = members[:n-2]
	}

	for _, m := range members {
		g.Proxies = append(g.Proxies, splitLiterals(m)...)
	}
	if len(g.Proxies) == 0 {
		return model.ProxyGroupConfig{}, &directiveError{Code: "GROUP_PARSE_ERROR", Message: "策略组至少需要一个成员", Hint: groupHint}
	}
	return g, nil
}

// parseHealthSpec reads "INTERVAL[,TIMEOUT][,TOLERANCE]".
func parseHealthSpec(g *model.ProxyGroupConfig, spec string) error {
	fields := strings.Split(spec, ",")
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return &directiveError{
				Code:    "GROUP_PARSE_ERROR",
				Message: "测试间隔必须是非负整数",
				Hint:    groupHint,
				Cause:   err,
			}
		}
		nums[i] = n
	}
	g.Interval = nums[0]
	if len(nums) > 1 {
		g.Timeout = nums[1]
	}
	if len(nums) > 2 {
		g.Tolerance = nums[2]
	}
	return nil
}

func splitLiterals(seg string) []string {
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return nil
	}
	if !strings.HasPrefix(seg, "[]") || strings.Count(seg, "[]") == 1 {
		return []string{seg}
	}
	var out []string
	for _, tok := range strings.Split(seg, "[]")[1:] {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, "[]"+tok)
		}
	}
	return out
}

// ParseRulesetDirective reads "GROUP,URL[,INTERVAL]". An inline "[]RULE"
// keeps everything after the group, commas included.
func ParseRulesetDirective(raw string) (model.RulesetConfig, error) {
	group, rest, ok := strings.Cut(raw, ",")
	group, rest = strings.TrimSpace(group), strings.TrimSpace(rest)
	if !ok || group == "" || rest == "" {
		return model.RulesetConfig{}, errors.New("expected: GROUP,URL[,INTERVAL]")
	}
	if strings.HasPrefix(rest, "[]") {
		return model.RulesetConfig{Group: group, URL: rest}, nil
	}
	cfg := model.RulesetConfig{Group: group, URL: rest}
	if i := strings.LastIndexByte(rest, ','); i > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(rest[i+1:])); err == nil {
			cfg.URL = strings.TrimSpace(rest[:i])
			cfg.Interval = n
		}
	}
	return cfg, nil
}

// InlineRuleset turns "TYPE,VALUE,ACTION[,no-resolve]" into the
// equivalent "[]" ruleset entry.
func InlineRuleset(raw string) (model.RulesetConfig, error) {
	r, err := rules.ParseInlineRule(raw)
	if err != nil {
		return model.RulesetConfig{}, err
	}
	if r.Type == "MATCH" {
		return model.RulesetConfig{Group: r.Action, URL: "[]FINAL"}, nil
	}
	body := r.Type + "," + r.Value
	if r.NoResolve {
		body += ",no-resolve"
	}
	return model.RulesetConfig{Group: r.Action, URL: "[]" + body}, nil
}
