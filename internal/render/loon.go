package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

func renderLoon(in Input) (string, error) {
	nodes := prepareNodes(in, func(p model.Proxy) bool {
		_, ok := loonProxy(p)
		return ok
	})

	proxyNameRep := make(map[string]string, len(nodes))
	proxyLines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		rep, err := surgeProxyName(p.Remark)
		if err != nil {
			return "", err
		}
		proxyNameRep[p.Remark] = rep
		body, _ := loonProxy(p)
		proxyLines = append(proxyLines, rep+" = "+body)
	}

	var groupLines []string
	for _, g := range resolveGroups(in.Groups, nodes) {
		if err := surgeGroupNameOK(g.Name); err != nil {
			return "", err
		}
		line, ok := loonGroup(g, proxyNameRep)
		if !ok {
			logger.Warn("目标格式不支持该策略组类型，已跳过", "target", in.Target.String(), "group", g.Name, "type", string(g.Type))
			continue
		}
		groupLines = append(groupLines, line)
	}

	var remoteLines, ruleLines []string
	if in.Extra.EnableRuleGenerator {
		items := generateRules(in, ruleOptions{
			allowed: AllowedRuleTypes(in.Target.Kind),
			reference: func(rs model.RulesetContent) bool {
				return rs.Type == model.RulesetSurge || rs.Type == model.RulesetQuanX
			},
		})
		for _, it := range items {
			if it.Ref != nil {
				if strings.Contains(it.Ref.Path, ",") {
					continue
				}
				remoteLines = append(remoteLines, fmt.Sprintf("%s, policy=%s, tag=%s, enabled=true", it.Ref.Path, it.Ref.Group, it.Ref.Group))
				continue
			}
			ruleLines = append(ruleLines, surgeDialect.format(it.Rule))
		}
	}

	return iniDoc{
		proxies: iniSection{"Proxy", proxyLines},
		groups:  iniSection{"Proxy Group", groupLines},
		rules:   iniSection{"Rule", ruleLines},
		extra:   []iniSection{{"Remote Rule", remoteLines}},
	}.render(in)
}

func loonProxy(p model.Proxy) (string, bool) {
	parts := []string{}
	add := func(ss ...string) { parts = append(parts, ss...) }
	port := strconv.Itoa(p.Port)
	switch p.Type {
	case model.ProxyShadowsocks:
		plugin, ok := parseSSPlugin(p)
		if !ok || plugin.Name == "v2ray-plugin" {
			return "", false
		}
		add("Shadowsocks", p.Server, port, p.EncryptMethod, quote(p.Password))
		if plugin.Name == "obfs" {
			add("obfs-name="+plugin.Mode, "obfs-host="+plugin.Host)
			if plugin.Path != "" {
				add("obfs-uri=" + plugin.Path)
			}
		}
	case model.ProxyShadowsocksR:
		add("ShadowsocksR", p.Server, port, p.EncryptMethod, quote(p.Password),
			"protocol="+p.Protocol, "protocol-param="+p.ProtocolParam, "obfs="+p.OBFS, "obfs-param="+p.OBFSParam)
	case model.ProxyVMess, model.ProxyVLESS:
		if p.TransferProtocol != "tcp" && p.TransferProtocol != "ws" {
			return "", false
		}
		if p.Type == model.ProxyVMess {
			add("vmess", p.Server, port, p.EncryptMethod, quote(p.UserID), "transport="+p.TransferProtocol, "alterId="+strconv.Itoa(p.AlterID))
		} else {
			add("VLESS", p.Server, port, quote(p.UserID), "transport="+p.TransferProtocol)
			if p.Flow != "" {
				add("flow=" + p.Flow)
			}
		}
		if p.TransferProtocol == "ws" {
			add("path="+orDefault(p.Path, "/"), "host="+p.Host)
		}
		add("over-tls=" + strconv.FormatBool(p.TLS))
		if p.TLS && sni(p) != "" {
			add("sni=" + sni(p))
		}
	case model.ProxyTrojan:
		add("trojan", p.Server, port, quote(p.Password), "over-tls=true")
		if s := sni(p); s != "" {
			add("sni=" + s)
		}
		if p.TransferProtocol == "ws" {
			add("transport=ws", "path="+orDefault(p.Path, "/"), "host="+p.Host)
		}
	case model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5:
		add(string(p.Type), p.Server, port)
		if p.Username != "" || p.Password != "" {
			add(p.Username, quote(p.Password))
		}
	default:
		return "", false
	}
	if p.TLS && p.SkipCertVerify.IsSet() {
		add("skip-cert-verify=" + strconv.FormatBool(p.SkipCertVerify.Bool()))
	}
	if p.TCPFastOpen.IsSet() {
		add("fast-open=" + strconv.FormatBool(p.TCPFastOpen.Bool()))
	}
	if p.UDP.IsSet() {
		add("udp=" + strconv.FormatBool(p.UDP.Bool()))
	}
	return strings.Join(parts, ","), true
}

func loonGroup(g group, proxyNameRep map[string]string) (string, bool) {
	switch g.Type {
	case model.GroupSelect, model.GroupURLTest, model.GroupFallback, model.GroupLoadBalance:
	default:
		return "", false
	}
	parts := []string{string(g.Type)}
	for _, m := range g.Members {
		parts = append(parts, surgeMemberName(m, proxyNameRep))
	}
	if g.Type.HealthChecked() {
		interval := g.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		parts = append(parts, "url="+orDefault(g.URL, defaultTestURL), "interval="+strconv.Itoa(interval))
		if g.Type == model.GroupURLTest && g.Tolerance > 0 {
			parts = append(parts, "tolerance="+strconv.Itoa(g.Tolerance))
		}
		if g.Type == model.GroupLoadBalance {
			parts = append(parts, "algorithm=round-robin")
		}
	}
	return g.Name + " = " + strings.Join(parts, ","), true
}

func quote(s string) string { return "\"" + s + "\"" }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
