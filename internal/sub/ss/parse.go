package ss

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "ss://"

// Parse decodes a SIP002 link (ss://b64(method:password)@host:port/?plugin=...#name)
// or the legacy fully base64 form (ss://b64(method:password@host:port)#name).
func Parse(s string) (model.Proxy, error) {
	withoutFrag, frag, hasFrag := strings.Cut(s, "#")
	remark := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			decoded = frag
		}
		remark = strings.TrimSpace(decoded)
		if codec.HasControl(remark) {
			return model.Proxy{}, codec.NewParseError(s, "SUB_PARSE_ERROR", "节点名称包含非法控制字符", "forbidden: \\r \\n \\0", nil)
		}
	}

	withoutQuery, query, _ := strings.Cut(withoutFrag, "?")
	q, err := parseQuery(s, query)
	if err != nil {
		return model.Proxy{}, err
	}

	rest := strings.TrimPrefix(withoutQuery, Scheme)
	if rest == "" {
		return model.Proxy{}, codec.Invalid(s, "ss:// 后缺少内容", nil)
	}

	var method, password, hostPort string
	if userPart, hostPart, ok := strings.Cut(rest, "@"); ok {
		// Form A: <b64(method:password)>@<host>:<port>
		if userPart == "" || hostPart == "" {
			return model.Proxy{}, codec.Invalid(s, "ss uri 格式不合法", nil)
		}
		hostPort = strings.TrimSuffix(hostPart, "/")
		if strings.Contains(hostPort, "/") {
			return model.Proxy{}, codec.Invalid(s, "ss uri path 不支持（仅允许空或 /）", nil)
		}
		method, password, err = decodeUserInfo(userPart)
		if err != nil {
			return model.Proxy{}, codec.Invalid(s, "ss userinfo 解码失败", err)
		}
	} else {
		// Form B: ss://<b64(method:password@host:port)>
		decoded, err := codec.DecodeBase64Text(strings.TrimSuffix(rest, "/"))
		if err != nil {
			return model.Proxy{}, codec.Invalid(s, "ss base64 解码失败", err)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return model.Proxy{}, codec.Invalid(s, "ss base64 解码结果缺少 @ 分隔符", nil)
		}
		method, password, err = splitMethodPassword(decoded[:at])
		if err != nil {
			return model.Proxy{}, codec.Invalid(s, "ss base64 解码结果缺少 cipher:password", err)
		}
		hostPort = decoded[at+1:]
	}

	server, port, err := codec.ParseHostPort(hostPort)
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "服务器地址或端口不合法", err)
	}

	group := q.group
	if group == "" {
		group = model.SSDefaultGroup
	}
	return model.NewShadowsocks(group, remark, server, port, password, method, q.plugin, q.pluginOpts), nil
}

type query struct {
	plugin     string
	pluginOpts []model.KV
	group      string
}

// net/url.ParseQuery rejects non-URL-encoded semicolons, but SIP002 plugin
// values use semicolons. Only '&' separates parameters here.
func parseQuery(link, raw string) (query, error) {
	var q query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		kRaw, vRaw, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(kRaw)
		if err != nil {
			return q, codec.Invalid(link, "query 参数解码失败", err)
		}
		v, err := url.PathUnescape(vRaw)
		if err != nil {
			return q, codec.Invalid(link, "query 参数解码失败", err)
		}
		switch k {
		case "plugin":
			if q.plugin != "" {
				return q, codec.Invalid(link, "重复的 plugin 参数", nil)
			}
			q.plugin, q.pluginOpts, err = parsePlugin(link, v)
			if err != nil {
				return q, err
			}
		case "group":
			q.group = codec.DecodeBase64Lenient(v)
		}
	}
	return q, nil
}

func parsePlugin(link, v string) (string, []model.KV, error) {
	segs := strings.Split(v, ";")
	name := strings.TrimSpace(segs[0])
	if name == "" {
		return "", nil, codec.Invalid(link, "plugin 名称不能为空", nil)
	}
	opts := make([]model.KV, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		if seg == "" {
			continue
		}
		k, val, ok := strings.Cut(seg, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return "", nil, codec.Invalid(link, "plugin 选项 key 不能为空", nil)
		}
		if !ok {
			// Flags such as "tls" in v2ray-plugin options.
			val = "true"
		}
		opts = append(opts, model.KV{Key: k, Value: val})
	}
	return name, opts, nil
}

// decodeUserInfo accepts base64 or, for 2022 ciphers, percent-encoded
// plain text.
func decodeUserInfo(userPart string) (string, string, error) {
	if decoded, err := codec.DecodeBase64(userPart); err == nil && utf8.Valid(decoded) && strings.Contains(string(decoded), ":") {
		return splitMethodPassword(string(decoded))
	}
	plain, err := url.PathUnescape(userPart)
	if err != nil {
		return "", "", err
	}
	return splitMethodPassword(plain)
}

func splitMethodPassword(s string) (string, string, error) {
	method, password, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New("missing ':'")
	}
	method = strings.TrimSpace(method)
	password = strings.TrimSpace(password)
	if method == "" || password == "" {
		return "", "", errors.New("empty method or password")
	}
	if codec.HasControl(method) || codec.HasControl(password) {
		return "", "", errors.New("control chars in method/password")
	}
	return method, password, nil
}
