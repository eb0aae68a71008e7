package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const (
	managedConfigPrefix = "#!MANAGED-CONFIG"

	// DefaultUpdateInterval is the managed-config refresh period in seconds.
	DefaultUpdateInterval = 86400
)

type ManagedOptions struct {
	Prefix        string
	Target        model.Target
	URLs          []string
	Interval      int
	Strict        bool
	RuleGenerator bool
}

// Supported reports whether target clients understand the header.
func Supported(t model.Target) bool {
	return t.Kind == model.TargetSurge || t.Kind == model.TargetSurfboard
}

// ManagedURL builds the refresh URL. Source URLs are joined with '|' and
// embedded verbatim.
func ManagedURL(opt ManagedOptions) string {
	var b strings.Builder
	b.WriteString(opt.Prefix)
	b.WriteString("sub?target=")
	if opt.Target.Kind == model.TargetSurfboard {
		b.WriteString("surfboard")
	} else {
		b.WriteString("surge&ver=")
		b.WriteString(strconv.Itoa(opt.Target.Version))
	}
	b.WriteString("&url=")
	b.WriteString(strings.Join(opt.URLs, "|"))
	return b.String()
}

// ManagedConfig prefixes body with the managed-config header when a prefix
// is set, the rule generator is on and the target supports it. Otherwise
// body is returned unchanged. A managed line already in body is dropped.
func ManagedConfig(body string, opt ManagedOptions) string {
	if opt.Prefix == "" || !opt.RuleGenerator || !Supported(opt.Target) {
		return body
	}
	interval := opt.Interval
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	header := fmt.Sprintf("%s %s interval=%d strict=%t", managedConfigPrefix, ManagedURL(opt), interval, opt.Strict)
	return header + "\n\n" + stripManagedLines(body)
}

func stripManagedLines(body string) string {
	if !strings.Contains(body, managedConfigPrefix) {
		return body
	}
	lines := strings.SplitAfter(body, "\n")
	out := lines[:0]
	for _, line := range lines {
		if isManagedConfigLine(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimLeft(strings.Join(out, ""), "\r\n")
}

func isManagedConfigLine(line string) bool {
	trimLeft := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimLeft, managedConfigPrefix)
}
