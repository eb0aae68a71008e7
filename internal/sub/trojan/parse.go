package trojan

import (
	"net/url"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "trojan://"

// Parse decodes trojan://password@host:port?sni=&allowInsecure=&type=&path=&host=&group=#remark.
func Parse(s string) (model.Proxy, error) {
	u, err := url.Parse(s)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "trojan 链接不合法", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return model.Proxy{}, codec.Invalid(s, "trojan 缺少密码", nil)
	}
	server := u.Hostname()
	if server == "" {
		return model.Proxy{}, codec.Invalid(s, "trojan 缺少服务器地址", nil)
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "443"
	}
	port, err := codec.ParsePort(portStr)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "trojan 端口不合法", err)
	}

	q := u.Query()
	sni := q.Get("sni")
	if sni == "" {
		sni = q.Get("peer")
	}
	network := ""
	if q.Get("ws") == "1" {
		network = "ws"
	}
	if t := q.Get("type"); t != "" {
		network = t
	}
	path := q.Get("path")
	if path == "" {
		path = q.Get("wspath")
	}
	group := q.Get("group")
	if group == "" {
		group = model.TrojanDefaultGroup
	}

	p := model.NewTrojan(group, strings.TrimSpace(u.Fragment), server, port, u.User.Username(), network, q.Get("host"), path, sni)
	if v := q.Get("allowInsecure"); v != "" {
		p.SkipCertVerify = model.ParseTribool(v)
	}
	if v := q.Get("tfo"); v != "" {
		p.TCPFastOpen = model.ParseTribool(v)
	}
	return p, nil
}
