package render

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func renderMellow(in Input) (string, error) {
	nodes := prepareNodes(in, func(p model.Proxy) bool {
		_, ok := mellowEndpoint(p)
		return ok
	})

	proxyLines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		if strings.ContainsAny(p.Remark, ",:\r\n") {
			return "", renderError("NODE_NAME_INVALID", "节点名包含 Mellow 不支持的字符（, 或 : 或换行）", p.Remark, nil)
		}
		body, _ := mellowEndpoint(p)
		proxyLines = append(proxyLines, p.Remark+", "+body)
	}

	var groupLines []string
	for _, g := range resolveGroups(in.Groups, nodes) {
		kind := "latency"
		switch g.Type {
		case model.GroupFallback:
			kind = "failover"
		case model.GroupLoadBalance:
			kind = "random"
		}
		interval := g.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		timeout := g.Timeout
		if timeout <= 0 {
			timeout = 6
		}
		groupLines = append(groupLines, fmt.Sprintf("%s, %s, %s, interval=%d, timeout=%d", g.Name, strings.Join(g.Members, ":"), kind, interval, timeout))
	}

	var ruleLines []string
	if in.Extra.EnableRuleGenerator {
		items := generateRules(in, ruleOptions{allowed: AllowedRuleTypes(in.Target.Kind)})
		ruleLines = mellowDialect.lines(items)
	}

	return iniDoc{
		proxies: iniSection{"Endpoint", proxyLines},
		groups:  iniSection{"EndpointGroup", groupLines},
		rules:   iniSection{"RoutingRule", ruleLines},
	}.render(in)
}

func mellowEndpoint(p model.Proxy) (string, bool) {
	port := strconv.Itoa(p.Port)
	switch p.Type {
	case model.ProxyShadowsocks:
		if p.Plugin != "" {
			return "", false
		}
		u := url.URL{Scheme: "ss", User: url.UserPassword(p.EncryptMethod, p.Password), Host: hostPort(p)}
		return "ss, " + u.String(), true
	case model.ProxyVMess:
		q := url.Values{}
		q.Set("network", p.TransferProtocol)
		if p.TransferProtocol == "ws" {
			q.Set("ws.path", orDefault(p.Path, "/"))
			if p.Host != "" {
				q.Set("ws.host", p.Host)
			}
		}
		if p.TLS {
			q.Set("tls", "true")
			if s := sni(p); s != "" {
				q.Set("tls.servername", s)
			}
		}
		u := url.URL{Scheme: "vmess1", User: url.User(p.UserID), Host: hostPort(p), RawQuery: q.Encode()}
		return "vmess1, " + u.String(), true
	case model.ProxySOCKS5, model.ProxyHTTP:
		kind := "socks"
		if p.Type == model.ProxyHTTP {
			kind = "http"
		}
		line := fmt.Sprintf("builtin, %s, address=%s, port=%s", kind, p.Server, port)
		if p.Username != "" {
			line += ", user=" + p.Username + ", pass=" + p.Password
		}
		return line, true
	default:
		return "", false
	}
}
