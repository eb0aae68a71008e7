package render

import (
	"encoding/json"
	"strconv"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

var singboxRuleFields = map[string]string{
	"DOMAIN":         "domain",
	"DOMAIN-SUFFIX":  "domain_suffix",
	"DOMAIN-KEYWORD": "domain_keyword",
	"IP-CIDR":        "ip_cidr",
	"IP-CIDR6":       "ip_cidr",
	"SRC-IP-CIDR":    "source_ip_cidr",
	"GEOIP":          "geoip",
	"DST-PORT":       "port",
	"SRC-PORT":       "source_port",
	"PROCESS-NAME":   "process_name",
}

func renderSingBox(in Input) (string, error) {
	base, err := jsonBase(in.Base)
	if err != nil {
		return "", err
	}
	nodes := prepareNodes(in, supports(model.ProxyShadowsocks, model.ProxyVMess, model.ProxyVLESS,
		model.ProxyTrojan, model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5))

	nodeOut := make([]any, 0, len(nodes))
	for _, p := range nodes {
		nodeOut = append(nodeOut, singboxOutbound(p))
	}
	if in.Extra.NodeList {
		return encodeJSON(map[string]any{"outbounds": nodeOut})
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(base.Raw), &root); err != nil {
		return "", renderError("RENDER_BASE_INVALID", "基础配置不是合法的 JSON", "", err)
	}

	tags := map[string]bool{}
	for _, t := range base.Get("outbounds.#.tag").Array() {
		tags[t.String()] = true
	}

	var outbounds []any
	for _, g := range resolveGroups(in.Groups, nodes) {
		if ob, ok := singboxGroup(g); ok {
			outbounds = append(outbounds, ob)
			tags[g.Name] = true
		}
	}
	outbounds = append(outbounds, nodeOut...)
	if existing, ok := root["outbounds"].([]any); ok {
		outbounds = append(outbounds, existing...)
	}
	if !tags["DIRECT"] {
		outbounds = append(outbounds, map[string]any{"type": "direct", "tag": "DIRECT"})
	}
	if !tags["REJECT"] {
		outbounds = append(outbounds, map[string]any{"type": "block", "tag": "REJECT"})
	}
	root["outbounds"] = outbounds

	if in.Extra.EnableRuleGenerator {
		route, _ := root["route"].(map[string]any)
		if route == nil {
			route = map[string]any{}
		}
		var kept []any
		if !in.Extra.OverwriteOriginalRules {
			kept, _ = route["rules"].([]any)
		}
		generated, final := singboxRules(generateRules(in, ruleOptions{allowed: AllowedRuleTypes(model.TargetSingBox)}))
		route["rules"] = append(kept, generated...)
		if final != "" {
			route["final"] = final
		}
		root["route"] = route
	}
	return encodeJSON(root)
}

func singboxOutbound(p model.Proxy) map[string]any {
	ob := map[string]any{
		"tag":         p.Remark,
		"server":      p.Server,
		"server_port": p.Port,
	}
	if p.TCPFastOpen.Bool() {
		ob["tcp_fast_open"] = true
	}
	switch p.Type {
	case model.ProxyShadowsocks:
		ob["type"] = "shadowsocks"
		ob["method"] = p.EncryptMethod
		ob["password"] = p.Password
		if p.Plugin != "" {
			plugin := p.Plugin
			if plugin == "simple-obfs" {
				plugin = "obfs-local"
			}
			ob["plugin"] = plugin
			ob["plugin_opts"] = pluginOptsString(p)
		}
	case model.ProxyVMess:
		ob["type"] = "vmess"
		ob["uuid"] = p.UserID
		ob["alter_id"] = p.AlterID
		ob["security"] = orDefault(p.EncryptMethod, "auto")
		singboxTLS(ob, p, p.TLS)
		singboxTransport(ob, p)
	case model.ProxyVLESS:
		ob["type"] = "vless"
		ob["uuid"] = p.UserID
		if p.Flow != "" {
			ob["flow"] = p.Flow
		}
		singboxTLS(ob, p, p.TLS)
		singboxTransport(ob, p)
	case model.ProxyTrojan:
		ob["type"] = "trojan"
		ob["password"] = p.Password
		singboxTLS(ob, p, true)
		singboxTransport(ob, p)
	case model.ProxyHTTP, model.ProxyHTTPS:
		ob["type"] = "http"
		singboxAuth(ob, p)
		singboxTLS(ob, p, p.Type == model.ProxyHTTPS)
	case model.ProxySOCKS5:
		ob["type"] = "socks"
		ob["version"] = "5"
		singboxAuth(ob, p)
		if p.UDP.IsSet() && !p.UDP.Bool() {
			ob["network"] = "tcp"
		}
	}
	return ob
}

func singboxAuth(ob map[string]any, p model.Proxy) {
	if p.Username != "" {
		ob["username"] = p.Username
	}
	if p.Password != "" {
		ob["password"] = p.Password
	}
}

func singboxTLS(ob map[string]any, p model.Proxy, enabled bool) {
	if !enabled {
		return
	}
	tls := map[string]any{"enabled": true}
	if name := sni(p); name != "" {
		tls["server_name"] = name
	}
	if p.SkipCertVerify.Bool() {
		tls["insecure"] = true
	}
	ob["tls"] = tls
}

func singboxTransport(ob map[string]any, p model.Proxy) {
	switch p.TransferProtocol {
	case "ws":
		t := map[string]any{"type": "ws", "path": orDefault(p.Path, "/")}
		if p.Host != "" {
			t["headers"] = map[string]any{"Host": p.Host}
		}
		ob["transport"] = t
	case "h2":
		t := map[string]any{"type": "http", "path": orDefault(p.Path, "/")}
		if p.Host != "" {
			t["host"] = []string{p.Host}
		}
		ob["transport"] = t
	case "grpc":
		ob["transport"] = map[string]any{"type": "grpc", "service_name": p.Path}
	}
}

func singboxGroup(g group) (map[string]any, bool) {
	members := g.Members
	if len(members) == 0 {
		members = []string{"DIRECT"}
	}
	switch g.Type {
	case model.GroupSelect:
		return map[string]any{"type": "selector", "tag": g.Name, "outbounds": members}, true
	case model.GroupURLTest, model.GroupFallback, model.GroupLoadBalance:
		ob := map[string]any{
			"type":      "urltest",
			"tag":       g.Name,
			"outbounds": members,
			"url":       orDefault(g.URL, defaultTestURL),
			"interval":  strconv.Itoa(intOr(g.Interval, defaultInterval)) + "s",
		}
		if g.Tolerance > 0 {
			ob["tolerance"] = g.Tolerance
		}
		return ob, true
	}
	return nil, false
}

func intOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// singboxRules folds runs of rules sharing a field and outbound into one
// rule object. MATCH becomes route.final.
func singboxRules(items []ruleItem) ([]any, string) {
	var (
		out   []any
		final string
		last  map[string]any
		field string
	)
	for _, it := range items {
		r := it.Rule
		if r.Type == "MATCH" {
			final = r.Action
			continue
		}
		f, ok := singboxRuleFields[r.Type]
		if !ok {
			continue
		}
		var value any = r.Value
		if f == "port" || f == "source_port" {
			n, err := strconv.Atoi(r.Value)
			if err != nil {
				continue
			}
			value = n
		}
		if last != nil && field == f && last["outbound"] == r.Action {
			last[f] = append(last[f].([]any), value)
			continue
		}
		last = map[string]any{f: []any{value}, "outbound": r.Action}
		field = f
		out = append(out, last)
	}
	if out == nil {
		out = []any{}
	}
	return out, final
}
