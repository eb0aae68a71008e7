package settings

import "github.com/CrazyForks/subconverter-go/internal/profile"

type rawSettings struct {
	Common        rawCommon        `yaml:"common"`
	NodePref      rawNodePref      `yaml:"node_pref"`
	ManagedConfig rawManagedConfig `yaml:"managed_config"`
	Emojis        rawEmojis        `yaml:"emojis"`
	Rulesets      rawRulesets      `yaml:"rulesets"`
	ProxyGroups   rawProxyGroups   `yaml:"proxy_groups"`
	Advanced      rawAdvanced      `yaml:"advanced"`
}

type rawCommon struct {
	APIMode               bool     `yaml:"api_mode"`
	APIAccessToken        string   `yaml:"api_access_token"`
	DefaultURL            []string `yaml:"default_url"`
	EnableInsert          bool     `yaml:"enable_insert"`
	InsertURL             []string `yaml:"insert_url"`
	PrependInsertURL      bool     `yaml:"prepend_insert_url"`
	ExcludeRemarks        []string `yaml:"exclude_remarks"`
	IncludeRemarks        []string `yaml:"include_remarks"`
	EnableFilter          bool     `yaml:"enable_filter"`
	FilterScript          string   `yaml:"filter_script"`
	DefaultExternalConfig string   `yaml:"default_external_config"`

	ClashRuleBase     string `yaml:"clash_rule_base"`
	SurgeRuleBase     string `yaml:"surge_rule_base"`
	SurfboardRuleBase string `yaml:"surfboard_rule_base"`
	MellowRuleBase    string `yaml:"mellow_rule_base"`
	QuanRuleBase      string `yaml:"quan_rule_base"`
	QuanXRuleBase     string `yaml:"quanx_rule_base"`
	LoonRuleBase      string `yaml:"loon_rule_base"`
	SSSubRuleBase     string `yaml:"sssub_rule_base"`
	SingBoxRuleBase   string `yaml:"singbox_rule_base"`

	ProxyConfig       string `yaml:"proxy_config"`
	ProxyRuleset      string `yaml:"proxy_ruleset"`
	ProxySubscription string `yaml:"proxy_subscription"`
	AppendProxyType   bool   `yaml:"append_proxy_type"`
}

type rawNodePref struct {
	UDPFlag               *bool                `yaml:"udp_flag"`
	TCPFastOpenFlag       *bool                `yaml:"tcp_fast_open_flag"`
	SkipCertVerifyFlag    *bool                `yaml:"skip_cert_verify_flag"`
	TLS13Flag             *bool                `yaml:"tls13_flag"`
	SortFlag              bool                 `yaml:"sort_flag"`
	SortScript            string               `yaml:"sort_script"`
	FilterDeprecatedNodes bool                 `yaml:"filter_deprecated_nodes"`
	ClashUseNewFieldName  bool                 `yaml:"clash_use_new_field_name"`
	RenameNode            []profile.MatchEntry `yaml:"rename_node"`
}

type rawManagedConfig struct {
	WriteManagedConfig   bool   `yaml:"write_managed_config"`
	ManagedConfigPrefix  string `yaml:"managed_config_prefix"`
	ConfigUpdateInterval int    `yaml:"config_update_interval"`
	ConfigUpdateStrict   bool   `yaml:"config_update_strict"`
	QuanXDeviceID        string `yaml:"quanx_device_id"`
}

type rawEmojis struct {
	AddEmoji       bool                 `yaml:"add_emoji"`
	RemoveOldEmoji bool                 `yaml:"remove_old_emoji"`
	Rules          []profile.MatchEntry `yaml:"rules"`
}

type rawRulesets struct {
	Enabled                bool         `yaml:"enabled"`
	OverwriteOriginalRules bool         `yaml:"overwrite_original_rules"`
	Rulesets               []rawRuleset `yaml:"rulesets"`
}

type rawRuleset struct {
	Rule     string `yaml:"rule"`
	Ruleset  string `yaml:"ruleset"`
	Group    string `yaml:"group"`
	Interval int    `yaml:"interval"`
	Import   string `yaml:"import"`
}

type rawProxyGroups struct {
	CustomProxyGroup []rawGroup `yaml:"custom_proxy_group"`
}

type rawGroup struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Rule      []string `yaml:"rule"`
	URL       string   `yaml:"url"`
	Interval  int      `yaml:"interval"`
	Tolerance int      `yaml:"tolerance"`
	Timeout   int      `yaml:"timeout"`
	Import    string   `yaml:"import"`
}

type rawAdvanced struct {
	MaxAllowedRulesets int `yaml:"max_allowed_rulesets"`
	MaxAllowedRules    int `yaml:"max_allowed_rules"`
}

func defaultRaw() *rawSettings {
	return &rawSettings{
		Common: rawCommon{
			EnableInsert:      true,
			PrependInsertURL:  true,
			ProxyConfig:       "SYSTEM",
			ProxyRuleset:      "SYSTEM",
			ProxySubscription: "NONE",
		},
		NodePref: rawNodePref{ClashUseNewFieldName: true},
		ManagedConfig: rawManagedConfig{
			WriteManagedConfig:   true,
			ManagedConfigPrefix:  "http://127.0.0.1:25500",
			ConfigUpdateInterval: defaultUpdateSeconds,
		},
		Emojis:   rawEmojis{RemoveOldEmoji: true},
		Rulesets: rawRulesets{Enabled: true},
		Advanced: rawAdvanced{
			MaxAllowedRulesets: defaultMaxRulesets,
			MaxAllowedRules:    defaultMaxRules,
		},
	}
}
