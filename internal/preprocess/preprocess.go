// Package preprocess applies the ordered node transforms: proxy-type
// tagging, rename rules, emoji rules and sorting.
package preprocess

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

type Options struct {
	AppendProxyType bool
	RenameRules     []model.RegexMatchConfig

	AddEmoji    bool
	RemoveEmoji bool
	EmojiRules  []model.RegexMatchConfig

	Sort       bool
	SortScript string
}

// OptionsFrom projects the preprocessing toggles out of ExtraSettings.
func OptionsFrom(ext model.ExtraSettings) Options {
	return Options{
		AppendProxyType: ext.AppendProxyType,
		RenameRules:     ext.RenameRules,
		AddEmoji:        ext.AddEmoji,
		RemoveEmoji:     ext.RemoveEmoji,
		EmojiRules:      ext.EmojiRules,
		Sort:            ext.Sort,
		SortScript:      ext.SortScript,
	}
}

type compiledRule struct {
	re      *regexp.Regexp
	replace string
	script  string
}

func compileRules(kind string, rules []model.RegexMatchConfig) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Script != "" {
			out = append(out, compiledRule{script: r.Script})
			continue
		}
		if r.Match == "" {
			continue
		}
		re, err := regexp.Compile(r.Match)
		if err != nil {
			logger.Warn("忽略不合法的正则规则", "kind", kind, "pattern", r.Match, "err", err)
			continue
		}
		out = append(out, compiledRule{re: re, replace: r.Replace})
	}
	return out
}

// Apply mutates nodes in place. scripter may be nil.
func Apply(nodes []model.Proxy, opt Options, scripter Scripter) {
	if scripter == nil {
		scripter = NopScripter{}
	}

	if opt.AppendProxyType {
		for i := range nodes {
			nodes[i].Remark = "[" + nodes[i].Type.DisplayName() + "] " + nodes[i].Remark
		}
	}

	rename := compileRules("rename", opt.RenameRules)
	for i := range nodes {
		nodes[i].Remark = applyRename(nodes[i], rename, scripter)
	}

	if opt.RemoveEmoji {
		for i := range nodes {
			nodes[i].Remark = RemoveEmoji(nodes[i].Remark)
		}
	}
	if opt.AddEmoji {
		emoji := compileRules("emoji", opt.EmojiRules)
		for i := range nodes {
			nodes[i].Remark = applyEmoji(nodes[i], emoji, scripter)
		}
	}

	if opt.Sort {
		if opt.SortScript != "" {
			if err := scripter.Sort(opt.SortScript, nodes); err != nil {
				logger.Warn("排序脚本执行失败，保持原顺序", "err", err)
			}
			return
		}
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Remark < nodes[j].Remark })
	}
}

func applyRename(node model.Proxy, rules []compiledRule, scripter Scripter) string {
	remark := node.Remark
	for _, r := range rules {
		if r.script != "" {
			node.Remark = remark
			out, err := scripter.Rename(r.script, node)
			if err != nil {
				logger.Warn("重命名脚本执行失败", "remark", remark, "err", err)
				continue
			}
			remark = out
			continue
		}
		remark = r.re.ReplaceAllString(remark, r.replace)
	}
	if strings.TrimSpace(remark) == "" {
		// A rule set that erases the whole name keeps the original.
		return node.Remark
	}
	return remark
}

// applyEmoji prefixes the emoji of the first matching rule.
func applyEmoji(node model.Proxy, rules []compiledRule, scripter Scripter) string {
	for _, r := range rules {
		var emoji string
		if r.script != "" {
			out, err := scripter.Rename(r.script, node)
			if err != nil || out == "" || out == node.Remark {
				continue
			}
			emoji = out
		} else if r.re.MatchString(node.Remark) {
			emoji = r.replace
		}
		if emoji != "" {
			return emoji + " " + node.Remark
		}
	}
	return node.Remark
}

// RemoveEmoji strips leading emoji (including flags, variation selectors
// and joiners) and the whitespace after them.
func RemoveEmoji(s string) string {
	orig := s
	for s != "" {
		r, size := utf8.DecodeRuneInString(s)
		if !isEmojiRune(r) {
			break
		}
		s = s[size:]
	}
	if s == orig {
		return orig
	}
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return orig
	}
	return s
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, flags, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	default:
		return false
	}
}
