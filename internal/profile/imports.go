package profile

import (
	"context"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

const (
	importPrefix = "!!import:"
	scriptPrefix = "!!script:"
)

// Source reads imported snippet files.
type Source interface {
	Load(ctx context.Context, kind fetch.Kind, source string, proxySpec string) (string, error)
}

// MatchEntry is a rename or emoji entry as written in YAML: a
// match/replace pair, a script, or an import of a snippet file.
type MatchEntry struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
	Emoji   string `yaml:"emoji"`
	Script  string `yaml:"script"`
	Import  string `yaml:"import"`
}

// MatchKind selects the snippet line syntax: rename lines are
// "MATCH@REPLACE", emoji lines are "MATCH,EMOJI".
type MatchKind int

const (
	RenameMatch MatchKind = iota
	EmojiMatch
)

// ParseMatchLine reads one snippet line. "!!script:" lines become script
// rules; ok is false for blank, comment or malformed lines.
func ParseMatchLine(kind MatchKind, line string) (model.RegexMatchConfig, bool) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
		return model.RegexMatchConfig{}, false
	}
	if s, ok := strings.CutPrefix(line, scriptPrefix); ok {
		return model.RegexMatchConfig{Script: s}, true
	}
	sep := "@"
	if kind == EmojiMatch {
		sep = ","
	}
	i := strings.LastIndex(line, sep)
	if i <= 0 {
		return model.RegexMatchConfig{}, false
	}
	return model.RegexMatchConfig{Match: line[:i], Replace: line[i+len(sep):]}, true
}

// ExpandMatches resolves entries in order. Imports are loaded through src
// and spliced in place; a failed import is logged and skipped.
func ExpandMatches(ctx context.Context, src Source, kind MatchKind, entries []MatchEntry) []model.RegexMatchConfig {
	var out []model.RegexMatchConfig
	for _, e := range entries {
		path := e.Import
		if p, ok := strings.CutPrefix(e.Match, importPrefix); ok && path == "" {
			path = p
		}
		switch {
		case path != "":
			if src == nil {
				logger.Warn("未配置导入来源，已跳过", "url", path)
				continue
			}
			text, err := src.Load(ctx, fetch.KindProfile, path, "")
			if err != nil {
				logger.Warn("导入片段加载失败，已跳过", "url", path, "err", err)
				continue
			}
			for n, line := range strings.Split(text, "\n") {
				if rc, ok := ParseMatchLine(kind, line); ok {
					out = append(out, rc)
				} else if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
					logger.Debug("跳过无法解析的导入行", "url", path, "line", n+1)
				}
			}
		case e.Script != "":
			out = append(out, model.RegexMatchConfig{Script: e.Script})
		case e.Match != "":
			replace := e.Replace
			if kind == EmojiMatch && e.Emoji != "" {
				replace = e.Emoji
			}
			out = append(out, model.RegexMatchConfig{Match: e.Match, Replace: replace})
		}
	}
	return out
}
