// Package compiler runs one conversion: it resolves the sources into
// nodes, preprocesses them and hands them to the target renderer.
package compiler

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/preprocess"
	"github.com/CrazyForks/subconverter-go/internal/render"
	"github.com/CrazyForks/subconverter-go/internal/rulebase"
	"github.com/CrazyForks/subconverter-go/internal/ruleset"
	"github.com/CrazyForks/subconverter-go/internal/sub"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
	"github.com/CrazyForks/subconverter-go/internal/sub/ssd"
	"github.com/CrazyForks/subconverter-go/internal/template"
	"github.com/CrazyForks/subconverter-go/internal/upload"
)

const tagPrefix = "tag:"

// Source loads subscription bodies, rule bases and rulesets.
type Source interface {
	Load(ctx context.Context, kind fetch.Kind, source string, proxySpec string) (string, error)
}

// metaSource is implemented by sources that expose response headers,
// such as *fetch.Fetcher.
type metaSource interface {
	LoadMeta(ctx context.Context, kind fetch.Kind, source string, proxySpec string) (string, fetch.Metadata, error)
}

type Options struct {
	Source Source

	// Rulesets is shared across requests. Nil builds a private cache on
	// top of Source.
	Rulesets *ruleset.Cache

	Scripter  preprocess.Scripter
	Publisher upload.Publisher

	// Parallel bounds concurrent source fetches; 0 or 1 fetches in order.
	Parallel int
}

type Compiler struct {
	source    Source
	rulesets  *ruleset.Cache
	scripter  preprocess.Scripter
	publisher upload.Publisher
	parallel  int
}

func New(opt Options) *Compiler {
	c := &Compiler{
		source:    opt.Source,
		rulesets:  opt.Rulesets,
		scripter:  opt.Scripter,
		publisher: opt.Publisher,
		parallel:  opt.Parallel,
	}
	if c.source == nil {
		c.source = fetch.New(fetch.Options{})
	}
	if c.rulesets == nil {
		c.rulesets = ruleset.NewCache(&ruleset.Loader{Source: c.source})
	}
	if c.scripter == nil {
		c.scripter = preprocess.NopScripter{}
	}
	if c.publisher == nil {
		c.publisher = upload.Nop{}
	}
	return c
}

// Rulesets exposes the shared ruleset cache.
func (c *Compiler) Rulesets() *ruleset.Cache { return c.rulesets }

func (c *Compiler) Source() Source { return c.source }

type Result struct {
	Content string
	Headers map[string]string
}

// Compile converts cfg. A failing main source aborts the request; failing
// insert sources are logged and skipped.
func (c *Compiler) Compile(ctx context.Context, cfg *Config) (*Result, error) {
	if cfg == nil {
		return nil, &ValidationError{AppError: model.AppError{Code: "INVALID_ARGUMENT", Message: "缺少转换参数", Stage: stageValidate}}
	}
	target := cfg.Target()
	extra := cfg.Extra()

	bases := rulebase.Load(ctx, c.source, cfg.Proxy(), cfg.RuleBasePaths())
	base := bases.For(target)
	if base == "" {
		base = cfg.Base(target.Kind)
	}

	insert, _, _ := c.resolve(ctx, cfg, cfg.InsertURLs(), false)
	main, subInfo, err := c.resolve(ctx, cfg, cfg.URLs(), true)
	if err != nil {
		return nil, err
	}
	if cfg.p.SubInfo != "" {
		subInfo = cfg.p.SubInfo
	}
	if len(main)+len(insert) == 0 {
		return nil, &EmptyResultError{AppError: model.AppError{
			Code:    "NO_NODES",
			Message: "没有找到任何节点",
			Stage:   "parse_sub",
		}}
	}

	var nodes []model.Proxy
	if cfg.p.PrependInsert {
		nodes = append(insert, main...)
	} else {
		nodes = append(main, insert...)
	}

	if name := cfg.p.GroupName; name != "" {
		for i := range nodes {
			nodes[i].Group = name
		}
	}

	preprocess.Apply(nodes, preprocess.OptionsFrom(extra), c.scripter)

	var rulesets []model.RulesetContent
	if extra.EnableRuleGenerator {
		rulesets = c.rulesets.Resolve(ctx, cfg.Rulesets())
	}

	content, err := render.Render(target, render.Input{
		Nodes:    nodes,
		Base:     base,
		Rulesets: rulesets,
		Groups:   cfg.Groups(),
		Extra:    extra,
	})
	if err != nil {
		return nil, err
	}

	content = template.ManagedConfig(content, template.ManagedOptions{
		Prefix:        extra.ManagedConfigPrefix,
		Target:        target,
		URLs:          cfg.URLs(),
		Interval:      extra.UpdateInterval,
		Strict:        extra.UpdateStrict,
		RuleGenerator: extra.EnableRuleGenerator && !extra.NodeList,
	})

	res := &Result{Content: content, Headers: headers(cfg, subInfo)}
	c.publish(ctx, cfg, content)
	return res, nil
}

func (c *Compiler) publish(ctx context.Context, cfg *Config, content string) {
	if !cfg.publishable() {
		return
	}
	doc := upload.Document{Path: cfg.p.UploadPath, Target: cfg.Target().String(), Content: content}
	if err := c.publisher.Publish(ctx, doc); err != nil {
		logger.Warn("发布转换结果失败", "path", doc.Path, "err", err)
	}
}

// resolve loads every source and returns the nodes in source order, plus
// the first Subscription-UserInfo value in list order. With failFast the
// error of the first failing source in list order is returned; otherwise
// failures are logged and skipped.
func (c *Compiler) resolve(ctx context.Context, cfg *Config, sources []string, failFast bool) ([]model.Proxy, string, error) {
	results := make([][]model.Proxy, len(sources))
	infos := make([]string, len(sources))
	errs := make([]error, len(sources))

	groupID := func(i int) int {
		if failFast {
			return i
		}
		return -(i + 1)
	}

	if c.parallel > 1 {
		var g errgroup.Group
		g.SetLimit(c.parallel)
		for i, src := range sources {
			g.Go(func() error {
				results[i], infos[i], errs[i] = c.loadSource(ctx, cfg, src, groupID(i))
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, src := range sources {
			results[i], infos[i], errs[i] = c.loadSource(ctx, cfg, src, groupID(i))
			if errs[i] != nil && failFast {
				break
			}
		}
	}

	var (
		out  []model.Proxy
		info string
	)
	for i, src := range sources {
		if errs[i] != nil {
			if failFast {
				return nil, "", errs[i]
			}
			logger.Warn("插入订阅解析失败，已跳过", "url", src, "err", errs[i])
			continue
		}
		if info == "" {
			info = infos[i]
		}
		out = append(out, results[i]...)
	}
	return out, info, nil
}

// loadSource resolves one "[tag:NAME,]source" entry.
func (c *Compiler) loadSource(ctx context.Context, cfg *Config, entry string, groupID int) ([]model.Proxy, string, error) {
	group, src := splitTag(entry)

	var (
		nodes []model.Proxy
		info  string
		err   error
	)
	switch {
	case strings.HasPrefix(src, ssd.Scheme):
		nodes, err = sub.ParseSubscription(src, src)
	case sub.IsNodeLink(src):
		var p model.Proxy
		if p, err = sub.ParseLink(src); err == nil {
			nodes = []model.Proxy{p}
		}
	default:
		var body string
		if body, info, err = c.fetchSource(ctx, src, cfg.Proxy()); err == nil {
			nodes, err = sub.ParseSubscription(src, body)
		}
	}
	if err != nil {
		return nil, "", sourceError(src, err)
	}

	for i := range nodes {
		nodes[i].GroupID = groupID
		if group != "" {
			nodes[i].Group = group
		}
	}
	return sub.Filter(nodes, sub.FilterOptions{
		Include: cfg.p.Include,
		Exclude: cfg.p.Exclude,
		Keep:    c.keep(cfg.p.FilterScript),
	}), info, nil
}

// fetchSource loads a subscription body and its Subscription-UserInfo
// response header, when the source exposes headers.
func (c *Compiler) fetchSource(ctx context.Context, src, proxySpec string) (string, string, error) {
	ms, ok := c.source.(metaSource)
	if !ok {
		body, err := c.source.Load(ctx, fetch.KindSubscription, src, proxySpec)
		return body, "", err
	}
	body, meta, err := ms.LoadMeta(ctx, fetch.KindSubscription, src, proxySpec)
	if err != nil {
		return "", "", err
	}
	return body, strings.TrimSpace(meta.Header.Get(headerSubInfo)), nil
}

func (c *Compiler) keep(script string) func(model.Proxy) bool {
	if script == "" {
		return nil
	}
	return func(p model.Proxy) bool {
		ok, err := c.scripter.Filter(script, p)
		if err != nil {
			logger.Warn("过滤脚本执行失败，保留节点", "remark", p.Remark, "err", err)
			return true
		}
		return ok
	}
}

func splitTag(entry string) (group, src string) {
	if rest, ok := strings.CutPrefix(entry, tagPrefix); ok {
		if name, u, ok := strings.Cut(rest, ","); ok {
			return strings.TrimSpace(name), strings.TrimSpace(u)
		}
	}
	return "", entry
}

func sourceError(src string, err error) *SourceError {
	app := model.AppError{Code: "SOURCE_FAILED", Message: "订阅加载失败", Stage: "fetch_sub", URL: src}
	var fe *fetch.FetchError
	var pe *codec.ParseError
	switch {
	case errors.As(err, &fe):
		app = fe.AppError
	case errors.As(err, &pe):
		app = pe.AppError
	}
	if app.URL == "" {
		app.URL = src
	}
	return &SourceError{AppError: app, URL: src, Cause: err}
}
