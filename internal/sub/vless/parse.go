package vless

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "vless://"

// Parse decodes vless://uuid@host:port?type=&security=&sni=&path=&host=&flow=#remark.
func Parse(s string) (model.Proxy, error) {
	u, err := url.Parse(s)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "vless 链接不合法", err)
	}
	if u.User == nil {
		return model.Proxy{}, codec.Invalid(s, "vless 缺少 uuid", nil)
	}
	id := u.User.Username()
	if _, err := uuid.Parse(id); err != nil {
		return model.Proxy{}, codec.Invalid(s, "vless id 不是合法 UUID", err)
	}
	server := u.Hostname()
	if server == "" {
		return model.Proxy{}, codec.Invalid(s, "vless 缺少服务器地址", nil)
	}
	port, err := codec.ParsePort(u.Port())
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "vless 端口不合法", err)
	}

	q := u.Query()
	network := q.Get("type")
	path := q.Get("path")
	if network == "grpc" && path == "" {
		path = q.Get("serviceName")
	}
	security := strings.ToLower(q.Get("security"))
	tls := security == "tls" || security == "reality" || security == "xtls"

	group := q.Get("group")
	if group == "" {
		group = model.V2RayDefaultGroup
	}
	p := model.NewVLESS(group, strings.TrimSpace(u.Fragment), server, port, id, q.Get("flow"), network, q.Get("host"), path, tls, q.Get("sni"))
	if q.Get("allowInsecure") == "1" {
		p.SkipCertVerify = model.True
	}
	return p, nil
}
