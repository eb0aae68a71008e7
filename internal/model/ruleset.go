package model

import "slices"

// RulesetConfig is one declared ruleset entry. URL may be a remote URL,
// a local path, "[]RULE" for an inline rule or "!!import:PATH".
type RulesetConfig struct {
	Group    string
	URL      string
	Interval int
}

// RulesetConfigsEqual is exact, element-wise value equality.
func RulesetConfigsEqual(a, b []RulesetConfig) bool {
	return slices.Equal(a, b)
}

type RulesetKind int

const (
	RulesetInline RulesetKind = iota
	RulesetRemote
	RulesetImport
)

func (k RulesetKind) String() string {
	switch k {
	case RulesetInline:
		return "inline"
	case RulesetRemote:
		return "remote"
	case RulesetImport:
		return "import"
	default:
		return "unknown"
	}
}

// RulesetType is the dialect of a rule list body.
type RulesetType string

const (
	RulesetSurge          RulesetType = "surge"
	RulesetQuanX          RulesetType = "quanx"
	RulesetClashDomain    RulesetType = "clash-domain"
	RulesetClashIPCIDR    RulesetType = "clash-ipcidr"
	RulesetClashClassical RulesetType = "clash-classic"
)

// RulesetContent binds a target group to an inline rule, a remote rule list
// or an imported rule list. Order matters: first match wins.
type RulesetContent struct {
	Group string
	Kind  RulesetKind
	Type  RulesetType

	// Path is the remote URL or local path; empty for inline entries.
	Path string

	// Content is the inline rule or the fetched list body.
	Content  string
	Interval int
}

// IsHTTP reports whether the entry can be referenced by URL.
func (c RulesetContent) IsHTTP() bool {
	return isHTTPURL(c.Path)
}

// Rule is a single classification line bound to an action.
type Rule struct {
	Type      string // e.g. "DOMAIN-SUFFIX", "IP-CIDR", "MATCH"
	Value     string // domain/suffix/keyword/cidr/cc; empty for MATCH
	Action    string // DIRECT/REJECT/group name
	NoResolve bool   // IP-CIDR/IP-CIDR6/GEOIP only
}
