package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/template"
)

func renderQuanX(in Input) (string, error) {
	nodes := prepareNodes(in, func(p model.Proxy) bool {
		_, ok := quanxServer(p, "")
		return ok
	})

	// Precompute representable proxy tags to keep references consistent.
	proxyTagRep := make(map[string]string, len(nodes))
	proxyLines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		tag, err := quanxTag(p.Remark)
		if err != nil {
			return "", err
		}
		proxyTagRep[p.Remark] = tag
		line, _ := quanxServer(p, tag)
		proxyLines = append(proxyLines, line)
	}

	groupLines := make([]string, 0, len(in.Groups))
	for _, g := range resolveGroups(in.Groups, nodes) {
		if err := quanxPolicyNameOK(g.Name); err != nil {
			return "", err
		}
		line, ok := quanxPolicy(g, proxyTagRep)
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
		var err error
		remoteLines, err = quanxRemoteLines(items)
		if err != nil {
			return "", err
		}
		for _, it := range items {
			if it.Ref != nil {
				continue
			}
			if err := quanxPolicyNameOK(it.Rule.Action); err != nil {
				return "", err
			}
			ruleLines = append(ruleLines, quanxDialect.format(it.Rule))
		}
	}

	return iniDoc{
		proxies: iniSection{"server_local", proxyLines},
		groups:  iniSection{"policy", groupLines},
		rules:   iniSection{"filter_local", ruleLines},
		extra:   []iniSection{{"filter_remote", remoteLines}},
	}.render(in)
}

func quanxServer(p model.Proxy, tag string) (string, bool) {
	var opts kvList
	var head string
	switch p.Type {
	case model.ProxyShadowsocks:
		plugin, ok := parseSSPlugin(p)
		if !ok {
			return "", false
		}
		head = "shadowsocks=" + hostPort(p)
		opts.add("method", p.EncryptMethod)
		opts.add("password", p.Password)
		switch plugin.Name {
		case "obfs":
			opts.add("obfs", plugin.Mode)
			opts.add("obfs-host", plugin.Host)
			opts.add("obfs-uri", plugin.Path)
		case "v2ray-plugin":
			mode := "ws"
			if plugin.TLS {
				mode = "wss"
			}
			opts.add("obfs", mode)
			opts.add("obfs-host", plugin.Host)
			opts.add("obfs-uri", plugin.Path)
		}
	case model.ProxyShadowsocksR:
		head = "shadowsocks=" + hostPort(p)
		opts.add("method", p.EncryptMethod)
		opts.add("password", p.Password)
		opts.add("ssr-protocol", p.Protocol)
		opts.add("ssr-protocol-param", p.ProtocolParam)
		opts.add("obfs", p.OBFS)
		opts.add("obfs-host", p.OBFSParam)
	case model.ProxyVMess, model.ProxyVLESS:
		if p.TransferProtocol != "tcp" && p.TransferProtocol != "ws" {
			return "", false
		}
		if p.Type == model.ProxyVMess {
			head = "vmess=" + hostPort(p)
			method := p.EncryptMethod
			if method == "auto" {
				method = "chacha20-ietf-poly1305"
			}
			opts.add("method", method)
		} else {
			head = "vless=" + hostPort(p)
			opts.add("method", "none")
		}
		opts.add("password", p.UserID)
		switch {
		case p.TransferProtocol == "ws" && p.TLS:
			opts.add("obfs", "wss")
		case p.TransferProtocol == "ws":
			opts.add("obfs", "ws")
		case p.TLS:
			opts.add("obfs", "over-tls")
		}
		if p.TransferProtocol == "ws" || p.TLS {
			opts.add("obfs-host", sni(p))
		}
		if p.TransferProtocol == "ws" {
			opts.add("obfs-uri", p.Path)
		}
	case model.ProxyTrojan:
		head = "trojan=" + hostPort(p)
		opts.add("password", p.Password)
		opts.add("over-tls", "true")
		opts.add("tls-host", sni(p))
	case model.ProxyHTTP, model.ProxyHTTPS:
		head = "http=" + hostPort(p)
		opts.add("username", p.Username)
		opts.add("password", p.Password)
		if p.Type == model.ProxyHTTPS {
			opts.add("over-tls", "true")
		}
	case model.ProxySOCKS5:
		head = "socks5=" + hostPort(p)
		opts.add("username", p.Username)
		opts.add("password", p.Password)
	default:
		return "", false
	}
	if p.TLS && p.SkipCertVerify.IsSet() {
		opts.add("tls-verification", strconv.FormatBool(!p.SkipCertVerify.Bool()))
	}
	opts.addBool("tls13", p.TLS13)
	opts.addBool("fast-open", p.TCPFastOpen)
	opts.addBool("udp-relay", p.UDP)
	opts.add("tag", tag)
	return head + ", " + strings.Join(opts, ", "), true
}

func quanxPolicy(g group, proxyTagRep map[string]string) (string, bool) {
	var kind string
	switch g.Type {
	case model.GroupSelect:
		kind = "static"
	case model.GroupURLTest:
		kind = "url-latency-benchmark"
	case model.GroupFallback:
		kind = "available"
	case model.GroupLoadBalance:
		kind = "round-robin"
	default:
		return "", false
	}
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString("=")
	b.WriteString(g.Name)
	for _, m := range g.Members {
		b.WriteString(", ")
		b.WriteString(quanxMemberName(m, proxyTagRep))
	}
	if g.Type == model.GroupURLTest || g.Type == model.GroupFallback {
		interval := g.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		fmt.Fprintf(&b, ", check-interval=%d", interval)
		if g.Tolerance > 0 && g.Type == model.GroupURLTest {
			fmt.Fprintf(&b, ", tolerance=%d", g.Tolerance)
		}
	}
	return b.String(), true
}

func quanxRemoteLines(items []ruleItem) ([]string, error) {
	var lines []string
	// Make tags unique even when multiple rulesets share the same policy.
	tagCounts := map[string]int{}
	for _, it := range items {
		if it.Ref == nil {
			continue
		}
		rs := it.Ref
		if strings.ContainsAny(rs.Path, "\r\n\x00") || strings.Contains(rs.Path, ",") {
			return nil, &RenderError{
				AppError: model.AppError{
					Code:    "RULESET_URL_INVALID",
					Message: "ruleset URL 含有 Quantumult X 不支持的字符（, 或控制字符）",
					Stage:   stageRender,
					Snippet: rs.Path,
					Hint:    "use a URL without ','",
				},
			}
		}
		if err := quanxPolicyNameOK(rs.Group); err != nil {
			return nil, err
		}
		tagCounts[rs.Group]++
		tag := rs.Group
		if n := tagCounts[rs.Group]; n > 1 {
			tag = fmt.Sprintf("%s-%d", rs.Group, n)
		}
		interval := rs.Interval
		if interval <= 0 {
			interval = template.DefaultUpdateInterval
		}
		lines = append(lines, fmt.Sprintf("%s, tag=%s, force-policy=%s, update-interval=%d, opt-parser=%t, enabled=true",
			rs.Path, tag, quanxMemberName(rs.Group), interval, rs.Type == model.RulesetSurge))
	}
	return lines, nil
}

func quanxTag(tag string) (string, error) {
	if strings.ContainsAny(tag, "\r\n\x00") {
		return "", renderError("NODE_NAME_INVALID", "节点名包含非法控制字符", tag, nil)
	}
	if strings.Contains(tag, "\"") {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "NODE_NAME_INVALID",
				Message: "节点名包含双引号，无法输出到 Quantumult X",
				Stage:   stageRender,
				Snippet: tag,
				Hint:    "remove '\"' from node name",
			},
		}
	}
	// Quote commas to avoid breaking the comma-separated syntax.
	if strings.Contains(tag, ",") {
		return "\"" + tag + "\"", nil
	}
	return tag, nil
}

func quanxPolicyNameOK(name string) error {
	if strings.ContainsAny(name, "\r\n\x00") || strings.Contains(name, ",") || strings.Contains(name, "=") {
		return &RenderError{
			AppError: model.AppError{
				Code:    "GROUP_NAME_INVALID",
				Message: "策略组名/规则 action 含有 Quantumult X 不支持的字符（, 或 = 或控制字符）",
				Stage:   stageRender,
				Snippet: name,
				Hint:    "rename the group in the external config",
			},
		}
	}
	return nil
}

// quanxMemberName lowercases the built-in policies. An optional tag map
// translates proxy remarks.
func quanxMemberName(member string, proxyTagRep ...map[string]string) string {
	switch member {
	case "DIRECT":
		return "direct"
	case "REJECT":
		return "reject"
	}
	for _, rep := range proxyTagRep {
		if r, ok := rep[member]; ok {
			return r
		}
	}
	return member
}
