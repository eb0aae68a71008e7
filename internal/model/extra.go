package model

import "strings"

// RegexMatchConfig is a rename or emoji rule. Script is set instead of
// Match/Replace for "!!script:" entries.
type RegexMatchConfig struct {
	Match   string
	Replace string
	Script  string
}

// ExtraSettings are the per-request transform and render toggles.
type ExtraSettings struct {
	AddEmoji        bool
	RemoveEmoji     bool
	AppendProxyType bool
	RenameRules     []RegexMatchConfig
	EmojiRules      []RegexMatchConfig

	TFO            Tribool
	UDP            Tribool
	SkipCertVerify Tribool
	TLS13          Tribool

	Sort             bool
	SortScript       string
	FilterDeprecated bool

	ClashNewFieldName     bool
	ClashClassicalRuleset bool
	NodeList              bool

	EnableRuleGenerator    bool
	OverwriteOriginalRules bool

	// ExpandRulesets inlines remote rulesets instead of emitting references.
	ExpandRulesets bool

	ManagedConfigPrefix string
	UpdateInterval      int
	UpdateStrict        bool

	// MaxAllowedRules caps generated rules; 0 means unlimited.
	MaxAllowedRules int
}

func (e ExtraSettings) Clone() ExtraSettings {
	e.RenameRules = append([]RegexMatchConfig(nil), e.RenameRules...)
	e.EmojiRules = append([]RegexMatchConfig(nil), e.EmojiRules...)
	return e
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsHTTPURL reports whether s is fetched over the network rather than read
// from disk.
func IsHTTPURL(s string) bool { return isHTTPURL(s) }
