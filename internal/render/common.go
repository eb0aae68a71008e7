package render

import (
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// ruleDialect formats canonical rules for one target grammar.
type ruleDialect struct {
	names  map[string]string
	sep    string
	action func(string) string
}

var (
	clashDialect = ruleDialect{names: map[string]string{}, sep: ","}
	surgeDialect = ruleDialect{names: map[string]string{
		"MATCH":       "FINAL",
		"DST-PORT":    "DEST-PORT",
		"SRC-IP-CIDR": "SRC-IP",
	}, sep: ","}
	quanxDialect = ruleDialect{names: map[string]string{
		"MATCH":          "FINAL",
		"DOMAIN":         "HOST",
		"DOMAIN-SUFFIX":  "HOST-SUFFIX",
		"DOMAIN-KEYWORD": "HOST-KEYWORD",
		"IP-CIDR6":       "IP6-CIDR",
	}, sep: ",", action: func(a string) string { return quanxMemberName(a) }}
	mellowDialect = ruleDialect{names: map[string]string{"MATCH": "FINAL"}, sep: ", "}
)

func (d ruleDialect) format(r model.Rule) string {
	typ := r.Type
	if n, ok := d.names[typ]; ok {
		typ = n
	}
	action := r.Action
	if d.action != nil {
		action = d.action(action)
	}
	if r.Type == "MATCH" {
		return typ + d.sep + action
	}
	parts := []string{typ, r.Value, action}
	if r.NoResolve {
		parts = append(parts, "no-resolve")
	}
	return strings.Join(parts, d.sep)
}

func (d ruleDialect) lines(items []ruleItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Ref != nil {
			continue
		}
		out = append(out, d.format(it.Rule))
	}
	return out
}

type ssPlugin struct {
	Name string // "obfs" or "v2ray-plugin"
	Mode string
	Host string
	Path string
	TLS  bool
}

// parseSSPlugin maps the SIP002 plugin of p. ok is false for plugins no
// renderer can express; those nodes are skipped.
func parseSSPlugin(p model.Proxy) (ssPlugin, bool) {
	switch p.Plugin {
	case "":
		return ssPlugin{}, true
	case "simple-obfs", "obfs-local":
		mode := strings.TrimSpace(p.PluginOpt("obfs"))
		if mode == "" {
			return ssPlugin{}, false
		}
		return ssPlugin{Name: "obfs", Mode: mode, Host: strings.TrimSpace(p.PluginOpt("obfs-host")), Path: p.PluginOpt("obfs-uri")}, true
	case "v2ray-plugin":
		mode := p.PluginOpt("mode")
		if mode == "" {
			mode = "websocket"
		}
		return ssPlugin{
			Name: "v2ray-plugin",
			Mode: mode,
			Host: p.PluginOpt("host"),
			Path: p.PluginOpt("path"),
			TLS:  p.PluginOpt("tls") == "true",
		}, true
	default:
		return ssPlugin{}, false
	}
}

// pluginString re-encodes the plugin options in SIP002 order.
func pluginString(p model.Proxy) string {
	if p.Plugin == "" {
		return ""
	}
	parts := []string{p.Plugin}
	for _, kv := range p.PluginOpts {
		if kv.Value == "true" && (kv.Key == "tls" || kv.Key == "mux") {
			parts = append(parts, kv.Key)
			continue
		}
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return strings.Join(parts, ";")
}

func pluginOptsString(p model.Proxy) string {
	s := pluginString(p)
	_, opts, _ := strings.Cut(s, ";")
	return opts
}

// kvList builds "k=v" option lists, skipping empty values.
type kvList []string

func (l *kvList) add(key, value string) {
	if value == "" {
		return
	}
	*l = append(*l, key+"="+value)
}

func (l *kvList) addBool(key string, t model.Tribool) {
	if !t.IsSet() {
		return
	}
	*l = append(*l, key+"="+strconv.FormatBool(t.Bool()))
}

func (l *kvList) addInt(key string, v int) {
	if v == 0 {
		return
	}
	*l = append(*l, key+"="+strconv.Itoa(v))
}

func hostPort(p model.Proxy) string {
	if strings.Contains(p.Server, ":") {
		return "[" + p.Server + "]:" + strconv.Itoa(p.Port)
	}
	return p.Server + ":" + strconv.Itoa(p.Port)
}

func sni(p model.Proxy) string {
	if p.ServerName != "" {
		return p.ServerName
	}
	return p.Host
}
