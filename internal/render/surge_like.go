package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

type surgeFlavor struct {
	version   int
	surfboard bool
}

func (f surgeFlavor) atLeast(v int) bool { return f.surfboard || f.version >= v }

func renderSurge(in Input) (string, error) {
	f := surgeFlavor{version: in.Target.Version, surfboard: in.Target.Kind == model.TargetSurfboard}
	if !f.surfboard && f.version == 0 {
		f.version = model.DefaultSurgeVersion
	}

	nodes := prepareNodes(in, func(p model.Proxy) bool {
		_, ok := surgeProxyBody(p, f)
		return ok
	})

	// Precompute name representation for proxies to keep references consistent.
	proxyNameRep := make(map[string]string, len(nodes))
	proxyLines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		rep, err := surgeProxyName(p.Remark)
		if err != nil {
			return "", err
		}
		proxyNameRep[p.Remark] = rep
		body, _ := surgeProxyBody(p, f)
		proxyLines = append(proxyLines, rep+" = "+body)
	}

	groupLines := make([]string, 0, len(in.Groups))
	for _, g := range resolveGroups(in.Groups, nodes) {
		if err := surgeGroupNameOK(g.Name); err != nil {
			return "", err
		}
		line, ok := surgeGroupLine(g, f, proxyNameRep)
		if !ok {
			logger.Warn("目标格式不支持该策略组类型，已跳过", "target", in.Target.String(), "group", g.Name, "type", string(g.Type))
			continue
		}
		groupLines = append(groupLines, line)
	}

	var ruleLines []string
	if in.Extra.EnableRuleGenerator {
		var err error
		ruleLines, err = surgeRuleLines(in, f)
		if err != nil {
			return "", err
		}
	}

	return iniDoc{
		proxies: iniSection{"Proxy", proxyLines},
		groups:  iniSection{"Proxy Group", groupLines},
		rules:   iniSection{"Rule", ruleLines},
	}.render(in)
}

// surgeProxyBody renders everything right of "name = ". ok is false when
// the flavor cannot express p.
func surgeProxyBody(p model.Proxy, f surgeFlavor) (string, bool) {
	var opts kvList
	var head string
	switch p.Type {
	case model.ProxyShadowsocks:
		plugin, ok := parseSSPlugin(p)
		if !ok || plugin.Name == "v2ray-plugin" {
			return "", false
		}
		if f.atLeast(3) {
			head = fmt.Sprintf("ss, %s, %d", p.Server, p.Port)
			opts.add("encrypt-method", p.EncryptMethod)
			opts.add("password", p.Password)
		} else {
			head = fmt.Sprintf("custom, %s, %d, %s, %s, https://github.com/pobizhe/SSEncrypt/raw/master/SSEncrypt.module", p.Server, p.Port, p.EncryptMethod, p.Password)
		}
		if plugin.Name == "obfs" {
			opts.add("obfs", plugin.Mode)
			opts.add("obfs-host", plugin.Host)
		}
		opts.addBool("udp-relay", p.UDP)
	case model.ProxyVMess:
		if !f.atLeast(4) || (p.TransferProtocol != "tcp" && p.TransferProtocol != "ws") {
			return "", false
		}
		head = fmt.Sprintf("vmess, %s, %d", p.Server, p.Port)
		opts.add("username", p.UserID)
		if p.TransferProtocol == "ws" {
			opts.add("ws", "true")
			opts.add("ws-path", p.Path)
			if p.Host != "" {
				opts.add("ws-headers", "Host:"+p.Host)
			}
		}
		if p.TLS {
			opts.add("tls", "true")
			opts.add("sni", p.ServerName)
		}
		if p.AlterID == 0 && !f.surfboard {
			opts.add("vmess-aead", "true")
		}
	case model.ProxyTrojan:
		if !f.atLeast(4) {
			return "", false
		}
		head = fmt.Sprintf("trojan, %s, %d", p.Server, p.Port)
		opts.add("password", p.Password)
		opts.add("sni", sni(p))
		if p.TransferProtocol == "ws" {
			opts.add("ws", "true")
			opts.add("ws-path", p.Path)
		}
	case model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5:
		head = fmt.Sprintf("%s, %s, %d", p.Type, p.Server, p.Port)
		if p.Username != "" || p.Password != "" {
			head += ", " + p.Username + ", " + p.Password
		}
		if p.Type == model.ProxySOCKS5 {
			opts.addBool("udp-relay", p.UDP)
		}
	default:
		return "", false
	}
	if p.TLS {
		opts.addBool("skip-cert-verify", p.SkipCertVerify)
	}
	opts.addBool("tfo", p.TCPFastOpen)
	if len(opts) == 0 {
		return head, true
	}
	return head + ", " + strings.Join(opts, ", "), true
}

func surgeGroupLine(g group, f surgeFlavor, proxyNameRep map[string]string) (string, bool) {
	typ := string(g.Type)
	switch g.Type {
	case model.GroupSelect, model.GroupURLTest, model.GroupFallback:
	case model.GroupLoadBalance:
		if !f.atLeast(4) {
			typ = string(model.GroupURLTest)
		}
	default:
		return "", false
	}

	var b strings.Builder
	b.WriteString(g.Name)
	b.WriteString(" = ")
	b.WriteString(typ)
	for _, m := range g.Members {
		b.WriteString(", ")
		b.WriteString(surgeMemberName(m, proxyNameRep))
	}
	if g.Type.HealthChecked() {
		u := g.URL
		if u == "" {
			u = defaultTestURL
		}
		interval := g.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		b.WriteString(", url=")
		b.WriteString(u)
		b.WriteString(", interval=")
		b.WriteString(strconv.Itoa(interval))
		if g.Tolerance > 0 && g.Type == model.GroupURLTest {
			b.WriteString(", tolerance=")
			b.WriteString(strconv.Itoa(g.Tolerance))
		}
		if g.Timeout > 0 {
			b.WriteString(", timeout=")
			b.WriteString(strconv.Itoa(g.Timeout))
		}
	}
	return b.String(), true
}

func surgeRuleLines(in Input, f surgeFlavor) ([]string, error) {
	items := generateRules(in, ruleOptions{
		allowed: AllowedRuleTypes(in.Target.Kind),
		reference: func(rs model.RulesetContent) bool {
			return rs.Type == model.RulesetSurge && f.atLeast(3)
		},
	})

	ruleLines := make([]string, 0, len(items))
	for _, it := range items {
		action := it.Rule.Action
		if it.Ref != nil {
			action = it.Ref.Group
		}
		// Validate action representability for Surge-like formats.
		if action != "DIRECT" && action != "REJECT" {
			if err := surgeGroupNameOK(action); err != nil {
				return nil, err
			}
		}
		if it.Ref == nil {
			ruleLines = append(ruleLines, surgeDialect.format(it.Rule))
			continue
		}
		if strings.ContainsAny(it.Ref.Path, "\r\n\x00") || strings.Contains(it.Ref.Path, ",") {
			return nil, &RenderError{
				AppError: model.AppError{
					Code:    "RULESET_URL_INVALID",
					Message: "ruleset URL 含有 Surge 不支持的字符（, 或控制字符）",
					Stage:   stageRender,
					Snippet: it.Ref.Path,
					Hint:    "use a URL without ','",
				},
			}
		}
		ruleLines = append(ruleLines, "RULE-SET,"+it.Ref.Path+","+action)
	}
	return ruleLines, nil
}

func surgeProxyName(name string) (string, error) {
	if strings.ContainsAny(name, "\r\n\x00") {
		return "", renderError("NODE_NAME_INVALID", "节点名包含非法控制字符", name, nil)
	}
	if strings.Contains(name, "\"") {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "NODE_NAME_INVALID",
				Message: "节点名包含双引号，无法输出到 Surge 系配置",
				Stage:   stageRender,
				Snippet: name,
				Hint:    "remove '\"' from node name",
			},
		}
	}
	if strings.Contains(name, "=") {
		return "", renderError("NODE_NAME_INVALID", "节点名包含 '='，无法输出到 Surge 系配置", name, nil)
	}
	if strings.Contains(name, ",") {
		return "\"" + name + "\"", nil
	}
	return name, nil
}

func surgeGroupNameOK(name string) error {
	if strings.ContainsAny(name, "\r\n\x00") || strings.Contains(name, ",") || strings.Contains(name, "=") {
		return &RenderError{
			AppError: model.AppError{
				Code:    "GROUP_NAME_INVALID",
				Message: "策略组名/规则 action 含有 Surge 不支持的字符（, 或 = 或控制字符）",
				Stage:   stageRender,
				Snippet: name,
				Hint:    "rename the group in the external config",
			},
		}
	}
	return nil
}

func surgeMemberName(member string, proxyNameRep map[string]string) string {
	if rep, ok := proxyNameRep[member]; ok {
		return rep
	}
	// DIRECT/REJECT or a group name
	return member
}
