// Package template edits base documents: anchor injection, INI section
// replacement and managed-config decoration.
package template

import (
	"fmt"
	"strings"
)

const (
	AnchorProxies = "#@PROXIES@#"
	AnchorGroups  = "#@GROUPS@#"
	AnchorRules   = "#@RULES@#"
)

type Dialect int

const (
	DialectINI Dialect = iota
	DialectYAML
)

// Blocks are the generated sections injected at the anchors.
type Blocks struct {
	Proxies string
	Groups  string
	Rules   string
}

type AnchorOptions struct {
	Dialect Dialect

	// Sections maps an anchor to the INI section it must sit in. Nil skips
	// the check.
	Sections map[string]string
	BaseURL  string
}

// HasAnchors reports whether text carries any injection anchor.
func HasAnchors(text string) bool {
	return strings.Contains(text, AnchorProxies) ||
		strings.Contains(text, AnchorGroups) ||
		strings.Contains(text, AnchorRules)
}

// InjectAnchors validates anchors and injects the blocks into text. It keeps
// each anchor's indentation and the document's newline style.
func InjectAnchors(text string, blocks Blocks, opt AnchorOptions) (string, error) {
	if text == "" {
		return "", templateError("INVALID_ARGUMENT", "基础配置不能为空", opt.BaseURL)
	}

	newline := detectNewline(text)
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	endsWithNewline := strings.HasSuffix(normalized, "\n")

	pos, err := findAndValidateAnchors(lines, opt)
	if err != nil {
		return "", err
	}

	lines[pos.proxiesLine] = indentBlock(lines[pos.proxiesLine], blocks.Proxies)
	lines[pos.groupsLine] = indentBlock(lines[pos.groupsLine], blocks.Groups)
	lines[pos.rulesLine] = indentBlock(lines[pos.rulesLine], blocks.Rules)

	return joinLines(lines, endsWithNewline, newline), nil
}

type anchorPos struct {
	proxiesLine int
	groupsLine  int
	rulesLine   int
}

func findAndValidateAnchors(lines []string, opt AnchorOptions) (anchorPos, error) {
	pos := anchorPos{proxiesLine: -1, groupsLine: -1, rulesLine: -1}
	counts := map[string]int{}
	anchors := []string{AnchorProxies, AnchorGroups, AnchorRules}

	section := ""
	for i, line := range lines {
		trim := strings.TrimSpace(line)
		for _, a := range anchors {
			if strings.Contains(line, a) && trim != a {
				return anchorPos{}, anchorNotStandalone(opt.BaseURL, line, a)
			}
		}
		if sec, ok := parseSectionHeader(trim); ok {
			section = sec
			continue
		}

		switch trim {
		case AnchorProxies:
			pos.proxiesLine = i
		case AnchorGroups:
			pos.groupsLine = i
		case AnchorRules:
			pos.rulesLine = i
		default:
			continue
		}
		counts[trim]++
		if want, ok := opt.Sections[trim]; ok && section != strings.ToLower(want) {
			return anchorPos{}, sectionError(opt.BaseURL, fmt.Sprintf("%s 必须位于 [%s] 段内", trim, want))
		}
	}

	for _, a := range anchors {
		switch {
		case counts[a] == 0:
			return anchorPos{}, anchorMissing(opt.BaseURL, a)
		case counts[a] > 1:
			return anchorPos{}, anchorDup(opt.BaseURL, a)
		}
	}

	// YAML anchors must sit under their list key.
	if opt.Dialect == DialectYAML {
		if leadingWhitespace(lines[pos.proxiesLine]) == "" || leadingWhitespace(lines[pos.groupsLine]) == "" || leadingWhitespace(lines[pos.rulesLine]) == "" {
			return anchorPos{}, sectionError(opt.BaseURL, "YAML 基础配置锚点缩进不能为 0（应位于对应列表下方）")
		}
	}

	return pos, nil
}

func indentBlock(anchorLine string, block string) string {
	indent := leadingWhitespace(anchorLine)
	if block == "" {
		return ""
	}
	blockLines := strings.Split(block, "\n")
	for i := range blockLines {
		blockLines[i] = indent + blockLines[i]
	}
	return strings.Join(blockLines, "\n")
}

func parseSectionHeader(trim string) (string, bool) {
	if len(trim) < 3 {
		return "", false
	}
	if trim[0] != '[' || trim[len(trim)-1] != ']' {
		return "", false
	}
	inner := strings.ToLower(strings.TrimSpace(trim[1 : len(trim)-1]))
	return inner, true
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

func detectNewline(s string) string {
	if strings.Contains(s, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func joinLines(lines []string, endsWithNewline bool, newline string) string {
	out := strings.Join(lines, "\n")
	if !endsWithNewline {
		out = strings.TrimSuffix(out, "\n")
	}
	if newline == "\r\n" {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return out
}
