package render

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/template"
)

const (
	defaultTestURL  = "http://www.gstatic.com/generate_204"
	defaultInterval = 300
)

type clashKeys struct {
	proxies, groups, rules string
}

var (
	clashNewKeys = clashKeys{"proxies", "proxy-groups", "rules"}
	clashOldKeys = clashKeys{"Proxy", "Proxy Group", "Rule"}
)

func renderClash(in Input) (string, error) {
	keep := func(p model.Proxy) bool {
		switch p.Type {
		case model.ProxyShadowsocks:
			_, ok := parseSSPlugin(p)
			return ok
		case model.ProxyShadowsocksR:
			return in.Target.Kind == model.TargetClashR || !in.Extra.FilterDeprecated
		case model.ProxyVMess, model.ProxyVLESS, model.ProxyTrojan,
			model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5:
			return true
		}
		return false
	}
	nodes := prepareNodes(in, keep)

	proxies := &yaml.Node{Kind: yaml.SequenceNode}
	for _, p := range nodes {
		proxies.Content = append(proxies.Content, clashProxy(p, in.Extra.ClashNewFieldName).n)
	}
	if in.Extra.NodeList {
		doc := newMap(0)
		doc.set("proxies", proxies)
		return encodeYAML(doc.n)
	}

	groupSeq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, g := range resolveGroups(in.Groups, nodes) {
		groupSeq.Content = append(groupSeq.Content, clashGroup(g).n)
	}

	var (
		ruleSeq   *yaml.Node
		providers ymap
	)
	if in.Extra.EnableRuleGenerator {
		ruleSeq, providers = clashRules(in)
	}

	if template.HasAnchors(in.Base) {
		return clashAnchors(in.Base, proxies, groupSeq, ruleSeq)
	}

	root, err := parseYAMLBase(in.Base)
	if err != nil {
		return "", err
	}
	keys, stale := clashOldKeys, clashNewKeys
	if in.Extra.ClashNewFieldName {
		keys, stale = clashNewKeys, clashOldKeys
	}

	var baseRules []*yaml.Node
	for _, k := range []string{keys.rules, stale.rules} {
		if n := lookup(root, k); n != nil && n.Kind == yaml.SequenceNode {
			baseRules = append(baseRules, n.Content...)
		}
	}
	remove(root, stale.proxies)
	remove(root, stale.groups)

	put(root, keys.proxies, proxies)
	put(root, keys.groups, groupSeq)
	if ruleSeq != nil {
		remove(root, stale.rules)
		if !in.Extra.OverwriteOriginalRules {
			ruleSeq.Content = append(baseRules, ruleSeq.Content...)
		}
		if !providers.empty() {
			put(root, "rule-providers", providers.n)
		}
		put(root, keys.rules, ruleSeq)
	}
	return encodeYAML(root)
}

func clashAnchors(base string, proxies, groups, rules *yaml.Node) (string, error) {
	var blocks template.Blocks
	var err error
	if blocks.Proxies, err = encodeYAML(proxies); err != nil {
		return "", err
	}
	if blocks.Groups, err = encodeYAML(groups); err != nil {
		return "", err
	}
	if rules != nil {
		if blocks.Rules, err = encodeYAML(rules); err != nil {
			return "", err
		}
	}
	blocks.Proxies = strings.TrimSuffix(blocks.Proxies, "\n")
	blocks.Groups = strings.TrimSuffix(blocks.Groups, "\n")
	blocks.Rules = strings.TrimSuffix(blocks.Rules, "\n")
	return template.InjectAnchors(base, blocks, template.AnchorOptions{Dialect: template.DialectYAML})
}

func clashProxy(p model.Proxy, newNames bool) ymap {
	m := newMap(yaml.FlowStyle)
	m.str("name", p.Remark)
	typ := string(p.Type)
	if p.Type == model.ProxyHTTPS {
		typ = "http"
	}
	m.str("type", typ)
	m.str("server", p.Server)
	m.int("port", p.Port)

	switch p.Type {
	case model.ProxyShadowsocks:
		m.str("cipher", p.EncryptMethod)
		m.str("password", p.Password)
		if plugin, _ := parseSSPlugin(p); plugin.Name != "" {
			opts := newMap(yaml.FlowStyle)
			opts.str("mode", plugin.Mode)
			opts.opt("host", plugin.Host)
			if plugin.Name == "v2ray-plugin" {
				opts.opt("path", plugin.Path)
				if plugin.TLS {
					opts.bool("tls", true)
				}
			}
			m.str("plugin", plugin.Name)
			m.set("plugin-opts", opts.n)
		}
	case model.ProxyShadowsocksR:
		m.str("cipher", p.EncryptMethod)
		m.str("password", p.Password)
		m.str("protocol", p.Protocol)
		m.str("obfs", p.OBFS)
		if newNames {
			m.str("protocol-param", p.ProtocolParam)
			m.str("obfs-param", p.OBFSParam)
		} else {
			m.str("protocolparam", p.ProtocolParam)
			m.str("obfsparam", p.OBFSParam)
		}
	case model.ProxyVMess, model.ProxyVLESS:
		m.str("uuid", p.UserID)
		if p.Type == model.ProxyVMess {
			m.int("alterId", p.AlterID)
			m.str("cipher", p.EncryptMethod)
		} else {
			m.opt("flow", p.Flow)
		}
		m.bool("tls", p.TLS)
		if p.TLS {
			m.opt("servername", sni(p))
		}
		clashTransport(m, p, newNames)
	case model.ProxyTrojan:
		m.str("password", p.Password)
		m.opt("sni", sni(p))
		clashTransport(m, p, newNames)
	case model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5:
		m.opt("username", p.Username)
		m.opt("password", p.Password)
		if p.Type == model.ProxyHTTPS {
			m.bool("tls", true)
		}
	}

	m.tribool("udp", p.UDP)
	m.tribool("tfo", p.TCPFastOpen)
	if p.TLS {
		m.tribool("skip-cert-verify", p.SkipCertVerify)
	}
	return m
}

func clashTransport(m ymap, p model.Proxy, newNames bool) {
	switch p.TransferProtocol {
	case "ws":
		m.str("network", "ws")
		if !newNames {
			m.opt("ws-path", p.Path)
			if p.Host != "" {
				h := newMap(yaml.FlowStyle)
				h.str("Host", p.Host)
				m.set("ws-headers", h.n)
			}
			return
		}
		opts := newMap(yaml.FlowStyle)
		opts.opt("path", p.Path)
		if p.Host != "" {
			h := newMap(yaml.FlowStyle)
			h.str("Host", p.Host)
			opts.set("headers", h.n)
		}
		if !opts.empty() {
			m.set("ws-opts", opts.n)
		}
	case "h2":
		m.str("network", "h2")
		opts := newMap(yaml.FlowStyle)
		if p.Host != "" {
			opts.set("host", strSeq(yaml.FlowStyle, []string{p.Host}))
		}
		opts.opt("path", p.Path)
		m.set("h2-opts", opts.n)
	case "grpc":
		m.str("network", "grpc")
		opts := newMap(yaml.FlowStyle)
		opts.str("grpc-service-name", p.Path)
		m.set("grpc-opts", opts.n)
	}
}

func clashGroup(g group) ymap {
	m := newMap(0)
	m.str("name", g.Name)
	m.str("type", string(g.Type))
	m.set("proxies", strSeq(0, g.Members))
	if g.Type.HealthChecked() {
		u := g.URL
		if u == "" {
			u = defaultTestURL
		}
		m.str("url", u)
		interval := g.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		m.int("interval", interval)
		if g.Tolerance > 0 {
			m.int("tolerance", g.Tolerance)
		}
		if g.Timeout > 0 {
			m.int("timeout", g.Timeout)
		}
	}
	if g.Type == model.GroupLoadBalance {
		m.opt("strategy", g.Strategy)
	}
	return m
}

// clashRules builds the rule list and the providers referenced by it.
// Providers are only used for classical rulesets.
func clashRules(in Input) (*yaml.Node, ymap) {
	providers := newMap(0)
	var reference func(model.RulesetContent) bool
	if in.Extra.ClashClassicalRuleset {
		reference = func(rs model.RulesetContent) bool { return rs.Type != model.RulesetQuanX }
	}
	items := generateRules(in, ruleOptions{
		allowed:   AllowedRuleTypes(in.Target.Kind),
		reference: reference,
	})

	used := map[string]int{}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it.Ref == nil {
			lines = append(lines, clashDialect.format(it.Rule))
			continue
		}
		name := clashRuleProviderName(it.Ref.Path, used)
		providers.set(name, clashProvider(name, *it.Ref).n)
		lines = append(lines, "RULE-SET,"+name+","+it.Ref.Group)
	}
	return strSeq(0, lines), providers
}

func clashProvider(name string, rs model.RulesetContent) ymap {
	behavior, format := "classical", "text"
	switch rs.Type {
	case model.RulesetClashDomain:
		behavior, format = "domain", "yaml"
	case model.RulesetClashIPCIDR:
		behavior, format = "ipcidr", "yaml"
	case model.RulesetClashClassical:
		format = "yaml"
	}
	interval := rs.Interval
	if interval <= 0 {
		interval = template.DefaultUpdateInterval
	}
	m := newMap(0)
	m.str("type", "http")
	m.str("behavior", behavior)
	m.str("url", rs.Path)
	m.str("path", "./providers/"+name+".yaml")
	m.int("interval", interval)
	m.str("format", format)
	return m
}

func clashRuleProviderName(rawURL string, used map[string]int) string {
	base := ""
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u != nil {
		base = path.Base(u.Path)
	}
	if base == "" || base == "." || base == "/" {
		base = "ruleset"
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	base = sanitizeProviderName(base)
	if base == "" {
		base = "ruleset"
	}

	if n, ok := used[base]; ok {
		n++
		used[base] = n
		return fmt.Sprintf("%s-%d", base, n)
	}
	used[base] = 1
	return base
}

// sanitizeProviderName keeps names usable as YAML keys and inside
// "RULE-SET,name,policy" without quoting.
func sanitizeProviderName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}
