// Package groups expands proxy-group member selectors into names.
package groups

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const (
	literalPrefix = "[]"
	directDefault = "DIRECT"
)

// Resolve expands cfg.Proxies against nodes. Literal "[]NAME" entries are
// emitted where they are declared. Nodes matched by any selector entry are
// emitted together in node discovery order, at the position of the first
// selector. Duplicates are dropped and an empty result becomes DIRECT.
func Resolve(cfg model.ProxyGroupConfig, nodes []model.Proxy) []string {
	var (
		out      []string
		matchers []func(model.Proxy) bool
		slot     = -1
	)
	for _, entry := range cfg.Proxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if name, ok := strings.CutPrefix(entry, literalPrefix); ok {
			out = append(out, name)
			continue
		}
		if slot < 0 {
			slot = len(out)
		}
		matchers = append(matchers, selector(entry))
	}

	if slot >= 0 {
		var matched []string
		for _, n := range nodes {
			if lo.SomeBy(matchers, func(m func(model.Proxy) bool) bool { return m(n) }) {
				matched = append(matched, n.Remark)
			}
		}
		out = append(out[:slot], append(matched, out[slot:]...)...)
	}

	out = lo.Uniq(out)
	if len(out) == 0 {
		return []string{directDefault}
	}
	return out
}

// selector builds the node predicate for one entry. "!!KEY=value" entries
// may carry a trailing "!!remark-regex".
func selector(entry string) func(model.Proxy) bool {
	if entry == ".*" || entry == "@all" {
		return func(model.Proxy) bool { return true }
	}
	if !strings.HasPrefix(entry, "!!") {
		return remarkMatcher(entry)
	}
	body := entry[2:]
	key, value, ok := strings.Cut(body, "=")
	if !ok {
		return remarkMatcher(entry)
	}
	rest := func(model.Proxy) bool { return true }
	if v, tail, found := strings.Cut(value, "!!"); found {
		value = v
		rest = remarkMatcher(tail)
	}

	var field func(model.Proxy) bool
	switch strings.ToUpper(key) {
	case "GROUP":
		m := pattern(value)
		field = func(p model.Proxy) bool { return m(p.Group) }
	case "GROUPID", "INSERT":
		in := idSet(value)
		field = func(p model.Proxy) bool { return in(p.GroupID) }
	case "TYPE":
		m := pattern("(?i)^(" + value + ")$")
		field = func(p model.Proxy) bool { return m(p.Type.DisplayName()) || m(string(p.Type)) }
	case "PORT":
		m := pattern(value)
		field = func(p model.Proxy) bool { return m(strconv.Itoa(p.Port)) }
	case "SERVER":
		m := pattern(value)
		field = func(p model.Proxy) bool { return m(p.Server) }
	default:
		return remarkMatcher(entry)
	}
	return func(p model.Proxy) bool { return field(p) && rest(p) }
}

func remarkMatcher(expr string) func(model.Proxy) bool {
	m := pattern(expr)
	return func(p model.Proxy) bool { return m(p.Remark) }
}

// pattern compiles expr; an invalid expression matches literally.
func pattern(expr string) func(string) bool {
	re, err := regexp.Compile(expr)
	if err != nil {
		return func(s string) bool { return s == expr }
	}
	return re.MatchString
}

// idSet parses "0", "1,3" or "1-3" style id lists. Negative ids select
// insert sources.
func idSet(value string) func(int) bool {
	type span struct{ lo, hi int }
	var spans []span
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			spans = append(spans, span{n, n})
			continue
		}
		// first char may be a sign
		if i := strings.Index(part[1:], "-"); i >= 0 {
			a, errA := strconv.Atoi(part[:i+1])
			b, errB := strconv.Atoi(part[i+2:])
			if errA == nil && errB == nil {
				spans = append(spans, span{min(a, b), max(a, b)})
			}
		}
	}
	return func(id int) bool {
		return lo.SomeBy(spans, func(s span) bool { return id >= s.lo && id <= s.hi })
	}
}
