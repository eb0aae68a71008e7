package render

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

// renderLinks emits a base64 list of share links for the link-list targets.
func renderLinks(in Input) (string, error) {
	kinds := linkKinds(in.Target.Kind)
	nodes := prepareNodes(in, func(p model.Proxy) bool {
		if in.Target.Kind == model.TargetSSR && p.Type == model.ProxyShadowsocks {
			return p.Plugin == ""
		}
		return kinds(p)
	})

	lines := make([]string, 0, len(nodes))
	for _, p := range nodes {
		var link string
		if in.Target.Kind == model.TargetSSR && p.Type == model.ProxyShadowsocks {
			p.Type = model.ProxyShadowsocksR
			p.Protocol, p.OBFS = "origin", "plain"
		}
		switch p.Type {
		case model.ProxyShadowsocks:
			link = ssLink(p)
		case model.ProxyShadowsocksR:
			link = ssrLink(p)
		case model.ProxyVMess:
			link = vmessLink(p)
		case model.ProxyVLESS:
			link = vlessLink(p)
		case model.ProxyTrojan:
			link = trojanLink(p)
		case model.ProxyHTTP, model.ProxyHTTPS:
			link = httpLink(p)
		case model.ProxySOCKS5:
			link = socksLink(p)
		}
		lines = append(lines, link)
	}
	if in.Extra.NodeList {
		return joinLines(lines), nil
	}
	return codec.EncodeBase64(strings.Join(lines, "\n")), nil
}

func linkKinds(kind model.TargetKind) func(model.Proxy) bool {
	switch kind {
	case model.TargetSS:
		return supports(model.ProxyShadowsocks)
	case model.TargetSSR:
		return supports(model.ProxyShadowsocksR)
	case model.TargetV2Ray:
		return supports(model.ProxyVMess, model.ProxyVLESS)
	case model.TargetTrojan:
		return supports(model.ProxyTrojan)
	default:
		return supports(model.ProxyShadowsocks, model.ProxyShadowsocksR, model.ProxyVMess, model.ProxyVLESS,
			model.ProxyTrojan, model.ProxyHTTP, model.ProxyHTTPS, model.ProxySOCKS5)
	}
}

func fragment(remark string) string {
	return "#" + url.PathEscape(remark)
}

func ssLink(p model.Proxy) string {
	var b strings.Builder
	b.WriteString("ss://")
	b.WriteString(codec.EncodeBase64URL(p.EncryptMethod + ":" + p.Password))
	b.WriteString("@")
	b.WriteString(hostPort(p))
	if plugin := pluginString(p); plugin != "" {
		b.WriteString("/?plugin=")
		b.WriteString(url.QueryEscape(plugin))
	}
	b.WriteString(fragment(p.Remark))
	return b.String()
}

func ssrLink(p model.Proxy) string {
	main := strings.Join([]string{
		p.Server, strconv.Itoa(p.Port), p.Protocol, p.EncryptMethod, p.OBFS,
		codec.EncodeBase64URL(p.Password),
	}, ":")
	params := []string{
		"obfsparam=" + codec.EncodeBase64URL(p.OBFSParam),
		"protoparam=" + codec.EncodeBase64URL(p.ProtocolParam),
		"remarks=" + codec.EncodeBase64URL(p.Remark),
		"group=" + codec.EncodeBase64URL(p.Group),
	}
	return "ssr://" + codec.EncodeBase64URL(main+"/?"+strings.Join(params, "&"))
}

type vmessJSON struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port string `json:"port"`
	ID   string `json:"id"`
	Aid  string `json:"aid"`
	Scy  string `json:"scy"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
	SNI  string `json:"sni,omitempty"`
}

func vmessLink(p model.Proxy) string {
	v := vmessJSON{
		V:    "2",
		PS:   p.Remark,
		Add:  p.Server,
		Port: strconv.Itoa(p.Port),
		ID:   p.UserID,
		Aid:  strconv.Itoa(p.AlterID),
		Scy:  p.EncryptMethod,
		Net:  p.TransferProtocol,
		Type: orDefault(p.FakeType, "none"),
		Host: p.Host,
		Path: p.Path,
		SNI:  p.ServerName,
	}
	if p.TLS {
		v.TLS = "tls"
	}
	b, _ := json.Marshal(v)
	return "vmess://" + codec.EncodeBase64(string(b))
}

func transportQuery(p model.Proxy, q url.Values) {
	if p.TransferProtocol != "" && p.TransferProtocol != "tcp" {
		q.Set("type", p.TransferProtocol)
	}
	switch p.TransferProtocol {
	case "ws", "h2":
		if p.Host != "" {
			q.Set("host", p.Host)
		}
		if p.Path != "" {
			q.Set("path", p.Path)
		}
	case "grpc":
		if p.Path != "" {
			q.Set("serviceName", p.Path)
		}
	}
	if p.ServerName != "" {
		q.Set("sni", p.ServerName)
	}
	if p.SkipCertVerify.Bool() {
		q.Set("allowInsecure", "1")
	}
}

func vlessLink(p model.Proxy) string {
	q := url.Values{}
	q.Set("encryption", "none")
	if p.TLS {
		q.Set("security", "tls")
	}
	if p.Flow != "" {
		q.Set("flow", p.Flow)
	}
	transportQuery(p, q)
	u := url.URL{Scheme: "vless", User: url.User(p.UserID), Host: hostPort(p), RawQuery: q.Encode()}
	return u.String() + fragment(p.Remark)
}

func trojanLink(p model.Proxy) string {
	q := url.Values{}
	transportQuery(p, q)
	u := url.URL{Scheme: "trojan", User: url.User(p.Password), Host: hostPort(p), RawQuery: q.Encode()}
	return u.String() + fragment(p.Remark)
}

func httpLink(p model.Proxy) string {
	u := url.URL{Scheme: string(p.Type), Host: hostPort(p), Path: "/"}
	if p.Username != "" || p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	q := url.Values{}
	q.Set("remarks", p.Remark)
	if p.Group != "" {
		q.Set("group", p.Group)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func socksLink(p model.Proxy) string {
	auth := ""
	if p.Username != "" || p.Password != "" {
		auth = codec.EncodeBase64URL(p.Username+":"+p.Password) + "@"
	}
	return "socks://" + auth + hostPort(p) + fragment(p.Remark)
}
