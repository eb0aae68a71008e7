// Package httpsub parses http:// and https:// proxy links.
package httpsub

import (
	"net/url"
	"strconv"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

// Parse decodes http(s)://[user:pass@]host[:port][/?remarks=&group=].
// The port defaults to 443 for https and 80 for http.
func Parse(s string) (model.Proxy, error) {
	u, err := url.Parse(s)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "http 代理链接不合法", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.Proxy{}, codec.Invalid(s, "http 代理链接协议不合法", nil)
	}
	isHTTPS := u.Scheme == "https"

	q := u.Query()
	remark := unescape(q.Get("remarks"))
	group := unescape(q.Get("group"))

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	server := u.Hostname()
	if server == "" {
		return model.Proxy{}, codec.Invalid(s, "http 代理缺少服务器地址", nil)
	}

	port := 80
	if isHTTPS {
		port = 443
	}
	if ps := u.Port(); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 1 || n > 65535 {
			return model.Proxy{}, codec.Invalid(s, "http 代理端口不合法", err)
		}
		port = n
	}

	if group == "" {
		group = model.HTTPDefaultGroup
	}
	return model.NewHTTP(group, remark, server, port, username, password, isHTTPS), nil
}

// Query values are decoded once more: providers commonly double-encode them.
func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}
