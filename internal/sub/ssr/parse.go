package ssr

import (
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "ssr://"

// Ciphers accepted by plain shadowsocks; an ssr node using one of them
// with origin/plain is emitted as ss.
var ssCiphers = map[string]bool{
	"rc4-md5": true, "aes-128-gcm": true, "aes-192-gcm": true, "aes-256-gcm": true,
	"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
	"aes-128-ctr": true, "aes-192-ctr": true, "aes-256-ctr": true,
	"camellia-128-cfb": true, "camellia-192-cfb": true, "camellia-256-cfb": true,
	"bf-cfb": true, "chacha20-ietf-poly1305": true, "xchacha20-ietf-poly1305": true,
	"salsa20": true, "chacha20": true, "chacha20-ietf": true,
}

// Parse decodes ssr://b64(server:port:protocol:method:obfs:b64(password)/?obfsparam=&protoparam=&remarks=&group=).
// Every query value is itself base64.
func Parse(s string) (model.Proxy, error) {
	payload := strings.TrimPrefix(s, Scheme)
	decoded, err := codec.DecodeBase64Text(payload)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "ssr base64 解码失败", err)
	}

	main, rawQuery, _ := strings.Cut(decoded, "/?")
	main = strings.TrimSuffix(main, "/")

	// The server may be an IPv6 literal, so split from the right.
	fields := strings.Split(main, ":")
	if len(fields) < 6 {
		return model.Proxy{}, codec.Invalid(s, "ssr 字段数量不足", nil)
	}
	n := len(fields)
	server := strings.Join(fields[:n-5], ":")
	server = strings.TrimSuffix(strings.TrimPrefix(server, "["), "]")
	portStr, protocol, method, obfs, passB64 := fields[n-5], fields[n-4], fields[n-3], fields[n-2], fields[n-1]
	if server == "" {
		return model.Proxy{}, codec.Invalid(s, "ssr 服务器地址为空", nil)
	}
	port, err := codec.ParsePort(portStr)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "ssr 端口不合法", err)
	}
	password, err := codec.DecodeBase64Text(passB64)
	if err != nil || password == "" {
		return model.Proxy{}, codec.Invalid(s, "ssr 密码解码失败", err)
	}

	q := splitQuery(rawQuery)
	param := func(k string) string { return codec.DecodeBase64Lenient(q[k]) }
	remark := param("remarks")
	group := param("group")
	obfsParam := param("obfsparam")
	protoParam := param("protoparam")

	if ssCiphers[method] && (protocol == "" || protocol == "origin") && (obfs == "" || obfs == "plain") {
		if group == "" {
			group = model.SSDefaultGroup
		}
		return model.NewShadowsocks(group, remark, server, port, password, method, "", nil), nil
	}
	if group == "" {
		group = model.SSRDefaultGroup
	}
	return model.NewShadowsocksR(group, remark, server, port, password, method, protocol, protoParam, obfs, obfsParam), nil
}

// splitQuery keeps '+' intact; values are standard or URL-safe base64.
func splitQuery(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, "&") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			continue
		}
		if _, dup := out[k]; !dup {
			out[k] = v
		}
	}
	return out
}
