// Package ruleset turns declared ruleset entries into loaded content and
// keeps the process-wide single-slot cache.
package ruleset

import (
	"context"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

const (
	inlinePrefix = "[]"
	importPrefix = "!!import:"
)

// Source reads remote or local text. *fetch.Fetcher implements it.
type Source interface {
	Load(ctx context.Context, kind fetch.Kind, source string, proxySpec string) (string, error)
}

type Loader struct {
	Source Source
	Proxy  string

	// MaxRulesets caps the number of entries; 0 means unlimited.
	MaxRulesets int
}

var typePrefixes = []struct {
	prefix string
	typ    model.RulesetType
}{
	{"clash-domain:", model.RulesetClashDomain},
	{"clash-ipcidr:", model.RulesetClashIPCIDR},
	{"clash-classic:", model.RulesetClashClassical},
	{"surge:", model.RulesetSurge},
	{"quanx:", model.RulesetQuanX},
}

// SplitType strips a leading dialect prefix from a ruleset URL.
func SplitType(u string) (model.RulesetType, string) {
	for _, p := range typePrefixes {
		if strings.HasPrefix(u, p.prefix) {
			return p.typ, strings.TrimPrefix(u, p.prefix)
		}
	}
	return model.RulesetSurge, u
}

// Load builds one content entry per config, in order. Fetch failures are
// logged and leave the entry's content empty.
func (l *Loader) Load(ctx context.Context, cfgs []model.RulesetConfig) []model.RulesetContent {
	out := make([]model.RulesetContent, 0, len(cfgs))
	for _, cfg := range cfgs {
		if l.MaxRulesets > 0 && len(out) >= l.MaxRulesets {
			logger.Warn("规则集数量超过上限，已截断", "max", l.MaxRulesets)
			break
		}
		out = append(out, l.loadOne(ctx, cfg))
	}
	return out
}

func (l *Loader) loadOne(ctx context.Context, cfg model.RulesetConfig) model.RulesetContent {
	c := model.RulesetContent{Group: cfg.Group, Interval: cfg.Interval, Type: model.RulesetSurge}
	switch {
	case strings.HasPrefix(cfg.URL, inlinePrefix):
		c.Kind = model.RulesetInline
		c.Content = strings.TrimPrefix(cfg.URL, inlinePrefix)
		return c
	case strings.HasPrefix(cfg.URL, importPrefix):
		c.Kind = model.RulesetImport
		c.Path = strings.TrimPrefix(cfg.URL, importPrefix)
	default:
		c.Kind = model.RulesetRemote
		c.Type, c.Path = SplitType(cfg.URL)
	}
	if c.Path == "" || l.Source == nil {
		return c
	}
	text, err := l.Source.Load(ctx, fetch.KindRuleset, c.Path, l.Proxy)
	if err != nil {
		logger.Warn("规则集加载失败，已跳过", "url", c.Path, "group", c.Group, "err", err)
		return c
	}
	c.Content = text
	return c
}
