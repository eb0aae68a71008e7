package sub

import (
	"regexp"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

// FilterOptions select nodes by remark before aggregation. Keep, when set,
// is consulted last for nodes that passed the patterns.
type FilterOptions struct {
	Include []string
	Exclude []string
	Keep    func(model.Proxy) bool
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			logger.Warn("忽略不合法的过滤正则", "pattern", p, "err", err)
			continue
		}
		out = append(out, re)
	}
	return out
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Filter keeps nodes that match no exclude pattern and, when include
// patterns exist, at least one of them. Order is preserved.
func Filter(nodes []model.Proxy, opt FilterOptions) []model.Proxy {
	include := compileAll(opt.Include)
	exclude := compileAll(opt.Exclude)
	if len(include) == 0 && len(exclude) == 0 && opt.Keep == nil {
		return nodes
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if matchAny(exclude, n.Remark) {
			continue
		}
		if len(include) > 0 && !matchAny(include, n.Remark) {
			continue
		}
		if opt.Keep != nil && !opt.Keep(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
