// Package ssd parses ssd:// airport subscriptions: a base64 JSON document
// whose top-level fields are defaults for every server entry.
package ssd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "ssd://"

// Parse returns the servers it could decode plus one error per skipped
// server entry.
func Parse(s string) ([]model.Proxy, []error, error) {
	decoded, err := codec.DecodeBase64Text(strings.TrimSpace(strings.TrimPrefix(s, Scheme)))
	if err != nil {
		return nil, nil, codec.Invalid(s, "ssd base64 解码失败", err)
	}
	if !gjson.Valid(decoded) {
		return nil, nil, codec.Invalid(s, "ssd 内容不是合法 JSON", nil)
	}
	doc := gjson.Parse(decoded)
	servers := doc.Get("servers")
	if !servers.IsArray() {
		return nil, nil, codec.Invalid(s, "ssd 缺少 servers 数组", nil)
	}

	group := doc.Get("airport").String()
	if group == "" {
		group = model.SSDefaultGroup
	}
	str := func(srv gjson.Result, key string) string {
		if v := srv.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
		return doc.Get(key).String()
	}

	var out []model.Proxy
	var skipped []error
	for i, srv := range servers.Array() {
		host := srv.Get("server").String()
		port, perr := codec.ParsePort(str(srv, "port"))
		method := str(srv, "encryption")
		password := str(srv, "password")
		switch {
		case host == "":
			skipped = append(skipped, fmt.Errorf("server #%d: %w", i, errors.New("empty server")))
			continue
		case perr != nil:
			skipped = append(skipped, fmt.Errorf("server #%d: %w", i, perr))
			continue
		case method == "" || password == "":
			skipped = append(skipped, fmt.Errorf("server #%d: %w", i, errors.New("empty encryption or password")))
			continue
		}

		plugin := str(srv, "plugin")
		var opts []model.KV
		for _, seg := range strings.Split(str(srv, "plugin_options"), ";") {
			k, v, ok := strings.Cut(seg, "=")
			if k = strings.TrimSpace(k); k != "" {
				if !ok {
					v = "true"
				}
				opts = append(opts, model.KV{Key: k, Value: v})
			}
		}
		out = append(out, model.NewShadowsocks(group, srv.Get("remarks").String(), host, port, password, method, plugin, opts))
	}
	return out, skipped, nil
}
