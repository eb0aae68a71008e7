// Package rulebase loads the per-family base documents renderers merge
// generated sections into.
package rulebase

import (
	"context"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

type Source interface {
	Load(ctx context.Context, kind fetch.Kind, source string, proxySpec string) (string, error)
}

// Set maps each target variant to its base text.
type Set map[model.TargetKind]string

// For returns the base of target, or "" when none was loaded.
func (s Set) For(t model.Target) string {
	return s[t.Kind]
}

// Load reads every non-empty path. A loaded text populates all sibling
// variants of its family; failures are logged and leave the family empty.
func Load(ctx context.Context, src Source, proxySpec string, paths map[model.Family]string) Set {
	set := Set{}
	for family, path := range paths {
		if path == "" {
			continue
		}
		text, err := src.Load(ctx, fetch.KindRuleBase, path, proxySpec)
		if err != nil {
			logger.Warn("规则基础配置加载失败，已跳过", "family", string(family), "url", path, "err", err)
			continue
		}
		for _, kind := range model.FamilyTargets(family) {
			set[kind] = text
		}
	}
	return set
}
