package render

import (
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/template"
)

type iniSection struct {
	name  string
	lines []string
}

// iniDoc is a rendered INI-style config: generated sections replace the
// base document's sections, or fill its anchors when it has them.
type iniDoc struct {
	proxies, groups, rules iniSection

	// extra sections are written with the rules, e.g. [filter_remote].
	extra []iniSection
}

func (d iniDoc) render(in Input) (string, error) {
	if in.Extra.NodeList {
		return joinLines(d.proxies.lines), nil
	}
	gen := in.Extra.EnableRuleGenerator

	if template.HasAnchors(in.Base) {
		blocks := template.Blocks{
			Proxies: strings.Join(d.proxies.lines, "\n"),
			Groups:  strings.Join(d.groups.lines, "\n"),
		}
		if gen {
			blocks.Rules = strings.Join(d.rules.lines, "\n")
		}
		out, err := template.InjectAnchors(in.Base, blocks, template.AnchorOptions{
			Dialect: template.DialectINI,
			Sections: map[string]string{
				template.AnchorProxies: d.proxies.name,
				template.AnchorGroups:  d.groups.name,
				template.AnchorRules:   d.rules.name,
			},
		})
		if err != nil || !gen {
			return out, err
		}
		for _, s := range d.extra {
			out = template.ReplaceSection(out, s.name, s.lines)
		}
		return out, nil
	}

	out := template.ReplaceSection(in.Base, d.proxies.name, d.proxies.lines)
	out = template.ReplaceSection(out, d.groups.name, d.groups.lines)
	if !gen {
		return out, nil
	}
	for _, s := range d.extra {
		out = template.ReplaceSection(out, s.name, s.lines)
	}
	rules := d.rules.lines
	if !in.Extra.OverwriteOriginalRules {
		rules = append(template.SectionLines(in.Base, d.rules.name), rules...)
	}
	return template.ReplaceSection(out, d.rules.name, rules), nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
