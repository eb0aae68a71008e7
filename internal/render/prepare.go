package render

import (
	"fmt"

	"github.com/CrazyForks/subconverter-go/internal/groups"
	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/rules"
)

// prepareNodes copies nodes, applies the request capability overrides and
// makes remarks unique. Nodes rejected by keep are logged and dropped.
func prepareNodes(in Input, keep func(model.Proxy) bool) []model.Proxy {
	out := make([]model.Proxy, 0, len(in.Nodes))
	seen := make(map[string]int, len(in.Nodes))
	for _, n := range in.Nodes {
		if keep != nil && !keep(n) {
			logger.Debug("目标格式不支持该节点，已跳过", "target", in.Target.String(), "type", string(n.Type), "remark", n.Remark)
			continue
		}
		n = n.Clone()
		n.UDP = in.Extra.UDP.Or(n.UDP)
		n.TCPFastOpen = in.Extra.TFO.Or(n.TCPFastOpen)
		n.SkipCertVerify = in.Extra.SkipCertVerify.Or(n.SkipCertVerify)
		n.TLS13 = in.Extra.TLS13.Or(n.TLS13)
		n.Remark = uniqueRemark(n.Remark, seen)
		out = append(out, n)
	}
	return out
}

func uniqueRemark(remark string, seen map[string]int) string {
	last, dup := seen[remark]
	if !dup {
		seen[remark] = 1
		return remark
	}
	for i := last + 1; ; i++ {
		cand := fmt.Sprintf("%s %d", remark, i)
		if _, taken := seen[cand]; !taken {
			seen[remark] = i
			seen[cand] = 1
			return cand
		}
	}
}

type group struct {
	model.ProxyGroupConfig
	Members []string
}

func resolveGroups(cfgs []model.ProxyGroupConfig, nodes []model.Proxy) []group {
	out := make([]group, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, group{ProxyGroupConfig: c, Members: groups.Resolve(c, nodes)})
	}
	return out
}

// ruleItem is either a concrete rule or a reference to a remote list the
// client fetches itself.
type ruleItem struct {
	Rule model.Rule
	Ref  *model.RulesetContent
}

type ruleOptions struct {
	allowed map[string]struct{}

	// reference decides whether a remote entry is emitted as a reference.
	// Nil expands everything.
	reference func(model.RulesetContent) bool
}

// generateRules expands the rulesets in order, stopping at
// MaxAllowedRules items.
func generateRules(in Input, opt ruleOptions) []ruleItem {
	limit := in.Extra.MaxAllowedRules
	full := func(n int) bool { return limit > 0 && n >= limit }

	var out []ruleItem
	add := func(r model.Rule) {
		if opt.allowed != nil {
			if _, ok := opt.allowed[r.Type]; !ok {
				return
			}
		}
		out = append(out, ruleItem{Rule: r})
	}

	for _, rs := range in.Rulesets {
		if full(len(out)) {
			logger.Warn("生成的规则数量达到上限，其余规则已忽略", "max", limit)
			break
		}
		switch {
		case rs.Kind == model.RulesetInline:
			r, err := rules.ParseInline(rs.Content, rs.Group)
			if err != nil {
				logger.Warn("跳过无法解析的内联规则", "rule", rs.Content, "err", err)
				continue
			}
			add(r)
		case rs.Kind == model.RulesetRemote && rs.IsHTTP() && !in.Extra.ExpandRulesets && opt.reference != nil && opt.reference(rs):
			ref := rs
			out = append(out, ruleItem{Ref: &ref})
		default:
			if rs.Content == "" {
				continue
			}
			list, errs := rules.ParseList(rs.Content, rs.Type, rs.Group)
			if len(errs) > 0 {
				logger.Debug("规则集中存在无法解析的行", "url", rs.Path, "skipped", len(errs))
			}
			for _, r := range list {
				if full(len(out)) {
					break
				}
				add(r)
			}
		}
	}
	return out
}
