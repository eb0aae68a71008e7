package main

import (
	"context"

	"github.com/CrazyForks/subconverter-go/internal/compiler"
	"github.com/CrazyForks/subconverter-go/internal/config"
	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/httpapi"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/ruleset"
	"github.com/CrazyForks/subconverter-go/internal/settings"
	"github.com/CrazyForks/subconverter-go/internal/upload"
)

// app holds the long-lived pipeline pieces shared by serve and convert.
type app struct {
	cfg      *config.Config
	fetcher  *fetch.Fetcher
	settings *settings.Store
	compiler *compiler.Compiler
	cache    *ruleset.Cache
	store    *upload.Store
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	f := fetch.New(fetch.Options{
		Timeout:      cfg.Fetch.Timeout,
		MaxBytes:     cfg.Fetch.MaxBytes,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		UserAgent:    cfg.Fetch.UserAgent,
		Proxy:        cfg.Fetch.Proxy,
	})

	snap := settings.Default()
	if path := cfg.Settings.Path; path != "" {
		s, err := settings.Load(ctx, f, path)
		if err != nil {
			return nil, err
		}
		snap = s
		logger.Info("已加载设置文件", "path", path, "groups", len(s.Groups), "rulesets", len(s.Rulesets))
	}

	a := &app{cfg: cfg, fetcher: f, settings: settings.NewStore(snap)}

	var publisher upload.Publisher = upload.Nop{}
	if cfg.Publish.Enabled {
		st, err := upload.Open(cfg.Publish.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = st
		publisher = st
	}

	maxRulesets := cfg.Convert.MaxRulesets
	if snap.MaxAllowedRulesets > 0 {
		maxRulesets = snap.MaxAllowedRulesets
	}
	a.cache = ruleset.NewCache(&ruleset.Loader{
		Source:      f,
		Proxy:       snap.ProxyRuleset,
		MaxRulesets: maxRulesets,
	})
	a.compiler = compiler.New(compiler.Options{
		Source:    f,
		Rulesets:  a.cache,
		Publisher: publisher,
		Parallel:  cfg.Convert.Parallel,
	})
	return a, nil
}

// primeRulesets loads the default rulesets of the current settings into
// the cache slot.
func (a *app) primeRulesets(ctx context.Context) {
	s := a.settings.Current()
	if !s.Extra.EnableRuleGenerator || len(s.Rulesets) == 0 {
		return
	}
	content := a.cache.Prime(ctx, s.Rulesets)
	logger.Info("已预载默认规则集", "rulesets", len(content))
}

// reloadSettings re-reads the settings file and installs it. The ruleset
// slot is re-primed when the default rulesets changed.
func (a *app) reloadSettings(ctx context.Context) error {
	path := a.cfg.Settings.Path
	if path == "" {
		return nil
	}
	next, err := settings.Load(ctx, a.fetcher, path)
	if err != nil {
		return err
	}
	prev := a.settings.Swap(next)
	logger.Info("已重新加载设置文件", "path", path)
	if !model.RulesetConfigsEqual(prev.Rulesets, next.Rulesets) {
		a.primeRulesets(ctx)
	}
	return nil
}

func (a *app) httpOptions() httpapi.Options {
	opt := httpapi.Options{
		ConvertTimeout: a.cfg.Server.ConvertTimeout,
		Compiler:       a.compiler,
		Source:         a.fetcher,
		Settings:       a.settings,
		Token:          a.cfg.Server.Token,
	}
	if a.store != nil {
		opt.Documents = a.store
	}
	return opt
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("关闭发布存储失败", "err", err)
		}
	}
}
