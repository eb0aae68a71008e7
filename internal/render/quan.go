package render

import (
	"fmt"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

// Quantumult (not X): [SERVER], base64 [POLICY] bodies and [TCP] rules.
func renderQuan(in Input) (string, error) {
	nodes := prepareNodes(in, func(p model.Proxy) bool {
		_, ok := quanServer(p)
		return ok
	})

	proxyLines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		name, err := surgeProxyName(p.Remark)
		if err != nil {
			return "", err
		}
		body, _ := quanServer(p)
		proxyLines = append(proxyLines, name+" = "+body)
	}

	var groupLines []string
	for _, g := range resolveGroups(in.Groups, nodes) {
		if err := surgeGroupNameOK(g.Name); err != nil {
			return "", err
		}
		body, ok := quanPolicy(g)
		if !ok {
			logger.Warn("目标格式不支持该策略组类型，已跳过", "target", in.Target.String(), "group", g.Name, "type", string(g.Type))
			continue
		}
		groupLines = append(groupLines, g.Name+" : "+codec.EncodeBase64URL(body))
	}

	var ruleLines []string
	if in.Extra.EnableRuleGenerator {
		items := generateRules(in, ruleOptions{allowed: AllowedRuleTypes(in.Target.Kind)})
		ruleLines = surgeDialect.lines(items)
	}

	return iniDoc{
		proxies: iniSection{"SERVER", proxyLines},
		groups:  iniSection{"POLICY", groupLines},
		rules:   iniSection{"TCP", ruleLines},
	}.render(in)
}

func quanServer(p model.Proxy) (string, bool) {
	var opts kvList
	var head string
	switch p.Type {
	case model.ProxyShadowsocks:
		plugin, ok := parseSSPlugin(p)
		if !ok || plugin.Name == "v2ray-plugin" {
			return "", false
		}
		head = fmt.Sprintf("shadowsocks, %s, %d, %s, \"%s\"", p.Server, p.Port, p.EncryptMethod, p.Password)
		if plugin.Name == "obfs" {
			opts.add("obfs", plugin.Mode)
			opts.add("obfs-host", plugin.Host)
		}
	case model.ProxyShadowsocksR:
		head = fmt.Sprintf("shadowsocksr, %s, %d, %s, \"%s\"", p.Server, p.Port, p.EncryptMethod, p.Password)
		opts.add("protocol", p.Protocol)
		opts.add("protocol_param", p.ProtocolParam)
		opts.add("obfs", p.OBFS)
		opts.add("obfs_param", p.OBFSParam)
	case model.ProxyVMess:
		if p.TransferProtocol != "tcp" && p.TransferProtocol != "ws" {
			return "", false
		}
		method := p.EncryptMethod
		if method == "auto" {
			method = "chacha20-ietf-poly1305"
		}
		head = fmt.Sprintf("vmess, %s, %d, %s, \"%s\", group=%s", p.Server, p.Port, method, p.UserID, p.Group)
		opts.add("over-tls", fmt.Sprint(p.TLS))
		if p.TLS {
			opts.add("tls-host", sni(p))
			opts.add("certificate", "1")
		}
		if p.TransferProtocol == "ws" {
			opts.add("obfs", "ws")
			opts.add("obfs-path", "\""+p.Path+"\"")
			if p.Host != "" {
				opts.add("obfs-header", "\"Host: "+p.Host+"\"")
			}
		}
	case model.ProxyHTTP, model.ProxyHTTPS:
		head = fmt.Sprintf("http, upstream-proxy-address=%s, upstream-proxy-port=%d, upstream-proxy-auth=%t", p.Server, p.Port, p.Username != "")
		opts.add("upstream-proxy-username", p.Username)
		opts.add("upstream-proxy-password", p.Password)
		if p.Type == model.ProxyHTTPS {
			opts.add("over-tls", "true")
			opts.add("certificate", "1")
		}
	default:
		return "", false
	}
	if len(opts) == 0 {
		return head, true
	}
	return head + ", " + strings.Join(opts, ", "), true
}

func quanPolicy(g group) (string, bool) {
	var kind string
	switch g.Type {
	case model.GroupSelect:
		kind = "static"
	case model.GroupURLTest:
		kind = "auto"
	case model.GroupFallback:
		kind = "available"
	case model.GroupLoadBalance:
		kind = "balance, round-robin"
	default:
		return "", false
	}
	head := g.Name + " : " + kind
	if g.Type == model.GroupSelect && len(g.Members) > 0 {
		head += ", " + g.Members[0]
	}
	return head + "\n" + strings.Join(g.Members, "\n"), true
}
