package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/rules"
	"gopkg.in/yaml.v3"
)

const stageProfile = "parse_profile"

// Spec is a validated external config. Nil toggles leave the request or
// global value untouched.
type Spec struct {
	Version int

	RuleBases           map[model.Family]string
	ManagedConfigPrefix string

	Groups   []model.ProxyGroupConfig
	Rulesets []model.RulesetConfig

	Rename  []MatchEntry
	Emoji   []MatchEntry
	Include []string
	Exclude []string

	AddEmoji               *bool
	RemoveEmoji            *bool
	EnableRuleGenerator    *bool
	OverwriteOriginalRules *bool
}

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

type rawProfile struct {
	Version             int               `yaml:"version"`
	RuleBase            map[string]string `yaml:"rule_base"`
	ManagedConfigPrefix string            `yaml:"managed_config_prefix"`
	CustomProxyGroup    []string          `yaml:"custom_proxy_group"`
	Ruleset             []string          `yaml:"ruleset"`
	Rule                []string          `yaml:"rule"`

	RenameNode     []MatchEntry `yaml:"rename_node"`
	Emojis         []MatchEntry `yaml:"emojis"`
	IncludeRemarks []string     `yaml:"include_remarks"`
	ExcludeRemarks []string     `yaml:"exclude_remarks"`

	AddEmoji               *bool `yaml:"add_emoji"`
	RemoveOldEmoji         *bool `yaml:"remove_old_emoji"`
	EnableRuleGenerator    *bool `yaml:"enable_rule_generator"`
	OverwriteOriginalRules *bool `yaml:"overwrite_original_rules"`
}

var families = map[string]model.Family{
	"clash":     model.FamilyClash,
	"surge":     model.FamilySurge,
	"surfboard": model.FamilySurfboard,
	"mellow":    model.FamilyMellow,
	"quan":      model.FamilyQuan,
	"quanx":     model.FamilyQuanX,
	"loon":      model.FamilyLoon,
	"sssub":     model.FamilySSSub,
	"singbox":   model.FamilySingBox,
}

func parseErr(code, msg, sourceURL, snippet, hint string, cause error) *ParseError {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   stageProfile,
			URL:     sourceURL,
			Snippet: snippet,
			Hint:    hint,
		},
		Cause: cause,
	}
}

// ParseProfileYAML parses and validates an external config document.
// Ruleset and inline rule entries come out in document order, rulesets
// first.
func ParseProfileYAML(sourceURL string, content string) (*Spec, error) {
	var rp rawProfile
	if err := yamlDecodeStrict(content, &rp); err != nil {
		return nil, parseErr("PROFILE_PARSE_ERROR", "外部配置 YAML 解析失败", sourceURL, model.Snippet(content), "", err)
	}
	if rp.Version != 1 {
		return nil, parseErr("PROFILE_VALIDATE_ERROR", "外部配置 version 必须为 1", sourceURL, "", "", nil)
	}

	spec := &Spec{
		Version:                rp.Version,
		RuleBases:              make(map[model.Family]string, len(rp.RuleBase)),
		Rename:                 rp.RenameNode,
		Emoji:                  rp.Emojis,
		AddEmoji:               rp.AddEmoji,
		RemoveEmoji:            rp.RemoveOldEmoji,
		EnableRuleGenerator:    rp.EnableRuleGenerator,
		OverwriteOriginalRules: rp.OverwriteOriginalRules,
	}

	for k, v := range rp.RuleBase {
		fam, ok := families[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return nil, parseErr("PROFILE_VALIDATE_ERROR", fmt.Sprintf("rule_base key 不支持：%s", k), sourceURL, "", "", nil)
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, parseErr("PROFILE_VALIDATE_ERROR", fmt.Sprintf("rule_base.%s 不能为空", k), sourceURL, "", "", nil)
		}
		if strings.Contains(v, "://") {
			if err := validateHTTPURL(v); err != nil {
				return nil, parseErr("PROFILE_VALIDATE_ERROR", fmt.Sprintf("rule_base.%s URL 不合法", k), sourceURL, v, "", err)
			}
		}
		spec.RuleBases[fam] = v
	}

	if prefix := strings.TrimSpace(rp.ManagedConfigPrefix); prefix != "" {
		if err := validatePublicBaseURL(prefix); err != nil {
			return nil, parseErr("PROFILE_VALIDATE_ERROR", "managed_config_prefix 不合法", sourceURL, prefix, "", err)
		}
		spec.ManagedConfigPrefix = strings.TrimRight(prefix, "/") + "/"
	}

	groupNames := make(map[string]struct{}, len(rp.CustomProxyGroup))
	for _, raw := range rp.CustomProxyGroup {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		g, err := ParseGroupDirective(raw)
		if err != nil {
			var de *directiveError
			if errors.As(err, &de) {
				return nil, parseErr(de.Code, de.Message, sourceURL, raw, de.Hint, de.Cause)
			}
			return nil, parseErr("GROUP_PARSE_ERROR", "custom_proxy_group 解析失败", sourceURL, raw, "", err)
		}
		if g.Name == "DIRECT" || g.Name == "REJECT" {
			return nil, parseErr("PROFILE_VALIDATE_ERROR", "策略组名不能使用保留名 DIRECT/REJECT", sourceURL, raw, "", nil)
		}
		if _, ok := groupNames[g.Name]; ok {
			return nil, parseErr("PROFILE_VALIDATE_ERROR", fmt.Sprintf("重复的策略组名：%s", g.Name), sourceURL, raw, "", nil)
		}
		groupNames[g.Name] = struct{}{}
		spec.Groups = append(spec.Groups, g)
	}

	for _, raw := range rp.Ruleset {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		rs, err := ParseRulesetDirective(raw)
		if err != nil {
			return nil, parseErr("RULESET_PARSE_ERROR", "ruleset 指令解析失败", sourceURL, raw, "", err)
		}
		if body, ok := strings.CutPrefix(rs.URL, "[]"); ok {
			if _, err := rules.ParseInline(body, rs.Group); err != nil {
				return nil, ruleErr(err, sourceURL, raw)
			}
		}
		spec.Rulesets = append(spec.Rulesets, rs)
	}

	for _, raw := range rp.Rule {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		rs, err := InlineRuleset(raw)
		if err != nil {
			return nil, ruleErr(err, sourceURL, raw)
		}
		spec.Rulesets = append(spec.Rulesets, rs)
	}

	for _, list := range []struct {
		key string
		in  []string
		out *[]string
	}{
		{"include_remarks", rp.IncludeRemarks, &spec.Include},
		{"exclude_remarks", rp.ExcludeRemarks, &spec.Exclude},
	} {
		for _, expr := range list.in {
			if expr == "" {
				continue
			}
			if _, err := regexp.Compile(expr); err != nil {
				return nil, parseErr("PROFILE_VALIDATE_ERROR", list.key+" 正则不可编译", sourceURL, expr, "", err)
			}
			*list.out = append(*list.out, expr)
		}
	}

	return spec, nil
}

func ruleErr(err error, sourceURL, raw string) *ParseError {
	var re *rules.RuleError
	if errors.As(err, &re) {
		return parseErr(re.Code, re.Message, sourceURL, raw, re.Hint, re.Cause)
	}
	return parseErr("RULE_PARSE_ERROR", "rule 指令解析失败", sourceURL, raw, "", err)
}

// ApplyExtra overlays the config's toggles and match rules on base.
// Config rename and emoji lists replace the base lists when non-empty.
func (s *Spec) ApplyExtra(ctx context.Context, src Source, base model.ExtraSettings) model.ExtraSettings {
	out := base.Clone()
	if s == nil {
		return out
	}
	setBool(&out.AddEmoji, s.AddEmoji)
	setBool(&out.RemoveEmoji, s.RemoveEmoji)
	setBool(&out.EnableRuleGenerator, s.EnableRuleGenerator)
	setBool(&out.OverwriteOriginalRules, s.OverwriteOriginalRules)
	if rc := ExpandMatches(ctx, src, RenameMatch, s.Rename); len(rc) > 0 {
		out.RenameRules = rc
	}
	if rc := ExpandMatches(ctx, src, EmojiMatch, s.Emoji); len(rc) > 0 {
		out.EmojiRules = rc
	}
	if s.ManagedConfigPrefix != "" {
		out.ManagedConfigPrefix = s.ManagedConfigPrefix
	}
	return out
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func yamlDecodeStrict(content string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}

	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple YAML documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u == nil || !u.IsAbs() {
		return errors.New("url must be absolute")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http/https")
	}
	return nil
}

func validatePublicBaseURL(s string) error {
	if err := validateHTTPURL(s); err != nil {
		return err
	}
	u, _ := url.Parse(strings.TrimSpace(s))
	if u.RawQuery != "" || u.Fragment != "" {
		return errors.New("prefix must not contain query/fragment")
	}
	return nil
}
