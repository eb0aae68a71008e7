package compiler

import (
	"maps"
	"slices"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const stageValidate = "validate_request"

// Params collects a conversion request. It is only read through NewConfig.
type Params struct {
	Target model.Target

	URLs          []string
	InsertURLs    []string
	PrependInsert bool
	GroupName     string

	// Bases holds pre-supplied base documents per target kind. A rule-base
	// path for the same family takes precedence.
	Bases         map[model.TargetKind]string
	RuleBasePaths map[model.Family]string

	Rulesets    []model.RulesetConfig
	ProxyGroups []model.ProxyGroupConfig

	Include []string
	Exclude []string

	Extra model.ExtraSettings

	DeviceID     string
	Filename     string
	FilterScript string

	Upload     bool
	UploadPath string

	Proxy      string
	Token      string
	Authorized bool

	SubInfo string
}

// Config is a validated, immutable request. Getters return copies.
type Config struct {
	p Params
}

// NewConfig validates p and freezes a private copy of it.
func NewConfig(p Params) (*Config, error) {
	p.URLs = trimAll(p.URLs)
	p.InsertURLs = trimAll(p.InsertURLs)
	if len(p.URLs) == 0 && len(p.InsertURLs) == 0 {
		return nil, &ValidationError{AppError: model.AppError{
			Code:    "NO_SOURCE_URL",
			Message: "至少需要提供一个订阅链接",
			Stage:   stageValidate,
			Hint:    "set url or insert",
		}}
	}
	if p.Target.Kind == "" {
		p.Target = model.Target{Kind: model.TargetClash}
	}
	if p.Filename != "" && (strings.ContainsAny(p.Filename, "\r\n\x00\"") || strings.ContainsAny(p.Filename, "/\\")) {
		return nil, &ValidationError{AppError: model.AppError{
			Code:    "INVALID_ARGUMENT",
			Message: "filename 含有非法字符",
			Stage:   stageValidate,
			Snippet: p.Filename,
		}}
	}
	return &Config{p: clone(p)}, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clone(p Params) Params {
	p.URLs = slices.Clone(p.URLs)
	p.InsertURLs = slices.Clone(p.InsertURLs)
	p.Bases = maps.Clone(p.Bases)
	p.RuleBasePaths = maps.Clone(p.RuleBasePaths)
	p.Rulesets = slices.Clone(p.Rulesets)
	p.ProxyGroups = cloneGroups(p.ProxyGroups)
	p.Include = slices.Clone(p.Include)
	p.Exclude = slices.Clone(p.Exclude)
	p.Extra.RenameRules = slices.Clone(p.Extra.RenameRules)
	p.Extra.EmojiRules = slices.Clone(p.Extra.EmojiRules)
	return p
}

func cloneGroups(in []model.ProxyGroupConfig) []model.ProxyGroupConfig {
	if in == nil {
		return nil
	}
	out := make([]model.ProxyGroupConfig, len(in))
	for i, g := range in {
		g.Proxies = slices.Clone(g.Proxies)
		out[i] = g
	}
	return out
}

// Params returns a copy of the validated request.
func (c *Config) Params() Params { return clone(c.p) }

func (c *Config) Target() model.Target { return c.p.Target }
func (c *Config) URLs() []string { return slices.Clone(c.p.URLs) }
func (c *Config) InsertURLs() []string { return slices.Clone(c.p.InsertURLs) }
func (c *Config) Rulesets() []model.RulesetConfig { return slices.Clone(c.p.Rulesets) }
func (c *Config) Groups() []model.ProxyGroupConfig { return cloneGroups(c.p.ProxyGroups) }
func (c *Config) Extra() model.ExtraSettings { return clone(c.p).Extra }
func (c *Config) DeviceID() string { return c.p.DeviceID }
func (c *Config) Filename() string { return c.p.Filename }
func (c *Config) Proxy() string { return c.p.Proxy }
func (c *Config) Token() string { return c.p.Token }
func (c *Config) Authorized() bool { return c.p.Authorized }
func (c *Config) RuleBasePaths() map[model.Family]string { return maps.Clone(c.p.RuleBasePaths) }

// Base returns the pre-supplied base document for kind.
func (c *Config) Base(kind model.TargetKind) string { return c.p.Bases[kind] }

func (c *Config) publishable() bool {
	return c.p.Upload && strings.TrimSpace(c.p.UploadPath) != "" && c.p.Authorized
}
