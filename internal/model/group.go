package model

import "strings"

type GroupType string

const (
	GroupSelect      GroupType = "select"
	GroupURLTest     GroupType = "url-test"
	GroupFallback    GroupType = "fallback"
	GroupLoadBalance GroupType = "load-balance"
	GroupRelay       GroupType = "relay"
)

// ParseGroupType is case-insensitive; ok is false for unknown kinds.
func ParseGroupType(s string) (GroupType, bool) {
	switch GroupType(strings.ToLower(strings.TrimSpace(s))) {
	case GroupSelect:
		return GroupSelect, true
	case GroupURLTest:
		return GroupURLTest, true
	case GroupFallback:
		return GroupFallback, true
	case GroupLoadBalance:
		return GroupLoadBalance, true
	case GroupRelay:
		return GroupRelay, true
	default:
		return "", false
	}
}

// HealthChecked reports whether the group kind probes its members.
func (t GroupType) HealthChecked() bool {
	return t == GroupURLTest || t == GroupFallback || t == GroupLoadBalance
}

type ProxyGroupConfig struct {
	Name string
	Type GroupType

	// Proxies holds member selection entries: "[]NAME" literals,
	// "!!GROUP=" style selectors or remark patterns.
	Proxies []string

	// Health-check values are passed through to renderers untouched.
	URL       string
	Interval  int
	Timeout   int
	Tolerance int

	Strategy string // load-balance only
}

func (g ProxyGroupConfig) Clone() ProxyGroupConfig {
	g.Proxies = append([]string(nil), g.Proxies...)
	return g
}
