// Package settings holds the process-wide conversion defaults read from
// pref.yml. A Store publishes immutable snapshots that can be swapped on
// reload.
package settings

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/profile"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	stageSettings = "load_settings"

	defaultTestURL       = "http://www.gstatic.com/generate_204"
	defaultTestInterval  = 300
	defaultMaxRulesets   = 64
	defaultMaxRules      = 32768
	defaultUpdateSeconds = 86400
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

// Settings is one resolved snapshot. Treat it as read-only once published.
type Settings struct {
	APIMode        bool
	APIAccessToken string

	DefaultURLs   []string
	InsertURLs    []string
	PrependInsert bool
	Include       []string
	Exclude       []string
	FilterScript  string

	DefaultExternalConfig string
	RuleBases             map[model.Family]string

	ProxyConfig       string
	ProxyRuleset      string
	ProxySubscription string

	Extra    model.ExtraSettings
	Groups   []model.ProxyGroupConfig
	Rulesets []model.RulesetConfig

	WriteManagedConfig bool
	QuanXDeviceID      string
	MaxAllowedRulesets int
}

// Default is the snapshot used when no pref.yml is configured.
func Default() *Settings {
	s, _ := Parse("")
	return s
}

// Load reads pref.yml from path through src and expands its !!import:
// entries through the same source.
func Load(ctx context.Context, src profile.Source, path string) (*Settings, error) {
	body, err := src.Load(ctx, fetch.KindProfile, path, "")
	if err != nil {
		return nil, &ParseError{
			AppError: model.AppError{Code: "SETTINGS_LOAD_ERROR", Message: "设置文件读取失败", Stage: stageSettings, URL: path},
			Cause:    err,
		}
	}
	raw, err := decode(path, body)
	if err != nil {
		return nil, err
	}
	return raw.resolve(ctx, src, path)
}

// Parse decodes pref.yml without following imports.
func Parse(content string) (*Settings, error) {
	raw, err := decode("", content)
	if err != nil {
		return nil, err
	}
	return raw.resolve(context.Background(), nil, "")
}

func decode(path, content string) (*rawSettings, error) {
	raw := defaultRaw()
	if strings.TrimSpace(content) == "" {
		return raw, nil
	}
	if err := yaml.Unmarshal([]byte(content), raw); err != nil {
		return nil, &ParseError{
			AppError: model.AppError{Code: "SETTINGS_PARSE_ERROR", Message: "设置文件 YAML 解析失败", Stage: stageSettings, URL: path},
			Cause:    err,
		}
	}
	return raw, nil
}

func (r *rawSettings) resolve(ctx context.Context, src profile.Source, path string) (*Settings, error) {
	c, n, m := r.Common, r.NodePref, r.ManagedConfig
	s := &Settings{
		APIMode:               c.APIMode,
		APIAccessToken:        c.APIAccessToken,
		DefaultURLs:           lo.Compact(c.DefaultURL),
		PrependInsert:         c.PrependInsertURL,
		Include:               lo.Compact(c.IncludeRemarks),
		Exclude:               lo.Compact(c.ExcludeRemarks),
		DefaultExternalConfig: c.DefaultExternalConfig,
		RuleBases:             r.ruleBases(),
		ProxyConfig:           c.ProxyConfig,
		ProxyRuleset:          c.ProxyRuleset,
		ProxySubscription:     c.ProxySubscription,
		WriteManagedConfig:    m.WriteManagedConfig,
		QuanXDeviceID:         m.QuanXDeviceID,
		MaxAllowedRulesets:    r.Advanced.MaxAllowedRulesets,
	}
	if c.EnableInsert {
		s.InsertURLs = lo.Compact(c.InsertURL)
	}
	if c.EnableFilter {
		s.FilterScript = c.FilterScript
	}

	s.Extra = model.ExtraSettings{
		AddEmoji:               r.Emojis.AddEmoji,
		RemoveEmoji:            r.Emojis.RemoveOldEmoji,
		AppendProxyType:        c.AppendProxyType,
		RenameRules:            profile.ExpandMatches(ctx, src, profile.RenameMatch, n.RenameNode),
		EmojiRules:             profile.ExpandMatches(ctx, src, profile.EmojiMatch, r.Emojis.Rules),
		TFO:                    tribool(n.TCPFastOpenFlag),
		UDP:                    tribool(n.UDPFlag),
		SkipCertVerify:         tribool(n.SkipCertVerifyFlag),
		TLS13:                  tribool(n.TLS13Flag),
		Sort:                   n.SortFlag,
		SortScript:             n.SortScript,
		FilterDeprecated:       n.FilterDeprecatedNodes,
		ClashNewFieldName:      n.ClashUseNewFieldName,
		EnableRuleGenerator:    r.Rulesets.Enabled,
		OverwriteOriginalRules: r.Rulesets.OverwriteOriginalRules,
		UpdateInterval:         m.ConfigUpdateInterval,
		UpdateStrict:           m.ConfigUpdateStrict,
		MaxAllowedRules:        r.Advanced.MaxAllowedRules,
	}
	if prefix := strings.TrimRight(strings.TrimSpace(m.ManagedConfigPrefix), "/"); m.WriteManagedConfig && prefix != "" {
		s.Extra.ManagedConfigPrefix = prefix + "/"
	}

	groups, err := expandGroups(ctx, src, path, r.ProxyGroups.CustomProxyGroup)
	if err != nil {
		return nil, err
	}
	s.Groups = groups
	rulesets, err := expandRulesets(ctx, src, path, r.Rulesets.Rulesets)
	if err != nil {
		return nil, err
	}
	s.Rulesets = rulesets
	return s, nil
}

func (r *rawSettings) ruleBases() map[model.Family]string {
	c := r.Common
	all := map[model.Family]string{
		model.FamilyClash:     c.ClashRuleBase,
		model.FamilySurge:     c.SurgeRuleBase,
		model.FamilySurfboard: c.SurfboardRuleBase,
		model.FamilyMellow:    c.MellowRuleBase,
		model.FamilyQuan:      c.QuanRuleBase,
		model.FamilyQuanX:     c.QuanXRuleBase,
		model.FamilyLoon:      c.LoonRuleBase,
		model.FamilySSSub:     c.SSSubRuleBase,
		model.FamilySingBox:   c.SingBoxRuleBase,
	}
	return lo.PickBy(all, func(_ model.Family, v string) bool { return strings.TrimSpace(v) != "" })
}

func expandGroups(ctx context.Context, src profile.Source, path string, in []rawGroup) ([]model.ProxyGroupConfig, error) {
	var out []model.ProxyGroupConfig
	for _, g := range in {
		if g.Import != "" {
			lines, err := importLines(ctx, src, g.Import)
			if err != nil {
				continue
			}
			for _, line := range lines {
				pg, err := profile.ParseGroupDirective(line)
				if err != nil {
					return nil, settingsErr("GROUP_PARSE_ERROR", "导入的策略组解析失败", g.Import, line, err)
				}
				out = append(out, pg)
			}
			continue
		}
		typ, ok := model.ParseGroupType(g.Type)
		if !ok || g.Name == "" {
			return nil, settingsErr("GROUP_PARSE_ERROR", fmt.Sprintf("策略组 %q 类型不合法：%s", g.Name, g.Type), path, "", nil)
		}
		pg := model.ProxyGroupConfig{
			Name:      g.Name,
			Type:      typ,
			Proxies:   lo.Compact(g.Rule),
			Tolerance: g.Tolerance,
			Timeout:   g.Timeout,
		}
		if typ.HealthChecked() {
			pg.URL = lo.Ternary(g.URL == "", defaultTestURL, g.URL)
			pg.Interval = lo.Ternary(g.Interval == 0, defaultTestInterval, g.Interval)
		}
		out = append(out, pg)
	}
	return out, nil
}

func expandRulesets(ctx context.Context, src profile.Source, path string, in []rawRuleset) ([]model.RulesetConfig, error) {
	var out []model.RulesetConfig
	for _, rs := range in {
		switch {
		case rs.Import != "":
			lines, err := importLines(ctx, src, rs.Import)
			if err != nil {
				continue
			}
			for _, line := range lines {
				cfg, err := profile.ParseRulesetDirective(line)
				if err != nil {
					return nil, settingsErr("RULESET_PARSE_ERROR", "导入的规则集解析失败", rs.Import, line, err)
				}
				out = append(out, cfg)
			}
		case rs.Rule != "":
			out = append(out, model.RulesetConfig{Group: rs.Group, URL: "[]" + rs.Rule})
		case rs.Ruleset != "":
			out = append(out, model.RulesetConfig{Group: rs.Group, URL: rs.Ruleset, Interval: rs.Interval})
		default:
			return nil, settingsErr("RULESET_PARSE_ERROR", fmt.Sprintf("规则集 %q 缺少 ruleset 或 rule", rs.Group), path, "", nil)
		}
	}
	return out, nil
}

// importLines reads a snippet file. A failed import is logged and the
// caller skips it.
func importLines(ctx context.Context, src profile.Source, path string) ([]string, error) {
	if src == nil {
		return nil, fmt.Errorf("no source for import %s", path)
	}
	body, err := src.Load(ctx, fetch.KindProfile, path, "")
	if err != nil {
		logger.Warn("导入文件加载失败，已跳过", "url", path, "err", err)
		return nil, err
	}
	lines := lo.Map(strings.Split(body, "\n"), func(l string, _ int) string { return strings.TrimSpace(l) })
	return lo.Filter(lines, func(l string, _ int) bool {
		return l != "" && !strings.HasPrefix(l, "#") && !strings.HasPrefix(l, ";")
	}), nil
}

func tribool(b *bool) model.Tribool {
	if b == nil {
		return model.Unset
	}
	return model.BoolOf(*b)
}

func settingsErr(code, msg, url, snippet string, cause error) *ParseError {
	return &ParseError{
		AppError: model.AppError{Code: code, Message: msg, Stage: stageSettings, URL: url, Snippet: snippet},
		Cause:    cause,
	}
}

// Store publishes the current snapshot.
type Store struct {
	cur atomic.Pointer[Settings]
}

func NewStore(s *Settings) *Store {
	st := &Store{}
	if s == nil {
		s = Default()
	}
	st.cur.Store(s)
	return st
}

func (s *Store) Current() *Settings { return s.cur.Load() }

// Swap installs next and returns the previous snapshot.
func (s *Store) Swap(next *Settings) *Settings {
	return s.cur.Swap(next)
}
