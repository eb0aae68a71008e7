// Package socks parses SOCKS5 links in the socks5://, socks:// (v2rayN)
// and Telegram tg://socks forms.
package socks

import (
	"net/url"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const (
	Scheme         = "socks://"
	Scheme5        = "socks5://"
	TelegramScheme = "tg://socks"
	TelegramWeb    = "https://t.me/socks"
)

func Parse(s string) (model.Proxy, error) {
	switch {
	case strings.HasPrefix(s, TelegramScheme), strings.HasPrefix(s, TelegramWeb):
		return parseTelegram(s)
	case strings.HasPrefix(s, Scheme5):
		return parseURI(s, strings.TrimPrefix(s, Scheme5))
	default:
		return parseURI(s, strings.TrimPrefix(s, Scheme))
	}
}

func parseURI(link, rest string) (model.Proxy, error) {
	body, frag, _ := strings.Cut(rest, "#")
	remark, err := url.PathUnescape(frag)
	if err != nil {
		remark = frag
	}
	body, rawQuery, _ := strings.Cut(body, "?")
	body = strings.TrimSuffix(body, "/")

	var userinfo, hostPort string
	if at := strings.LastIndex(body, "@"); at >= 0 {
		userinfo, hostPort = body[:at], body[at+1:]
		if dec, err := codec.DecodeBase64Text(userinfo); err == nil && strings.Contains(dec, ":") {
			userinfo = dec
		} else if un, err := url.PathUnescape(userinfo); err == nil {
			userinfo = un
		}
	} else {
		dec, err := codec.DecodeBase64Text(body)
		if err != nil {
			hostPort = body
		} else if at := strings.LastIndex(dec, "@"); at >= 0 {
			userinfo, hostPort = dec[:at], dec[at+1:]
		} else {
			hostPort = dec
		}
	}

	server, port, err := codec.ParseHostPort(hostPort)
	if err != nil {
		return model.Proxy{}, codec.Invalid(link, "socks 服务器地址或端口不合法", err)
	}
	username, password, _ := strings.Cut(userinfo, ":")

	q, _ := url.ParseQuery(rawQuery)
	group := q.Get("group")
	if group == "" {
		group = model.SocksDefaultGroup
	}
	return model.NewSOCKS5(group, strings.TrimSpace(remark), server, port, username, password), nil
}

// tg://socks?server=&port=&user=&pass=&remarks=&group=
func parseTelegram(link string) (model.Proxy, error) {
	u, err := url.Parse(link)
	if err != nil {
		return model.Proxy{}, codec.Invalid(link, "socks 链接不合法", err)
	}
	q := u.Query()
	server := strings.TrimSpace(q.Get("server"))
	if server == "" {
		return model.Proxy{}, codec.Invalid(link, "socks 缺少服务器地址", nil)
	}
	port, err := codec.ParsePort(q.Get("port"))
	if err != nil {
		return model.Proxy{}, codec.Invalid(link, "socks 端口不合法", err)
	}
	group := q.Get("group")
	if group == "" {
		group = model.SocksDefaultGroup
	}
	return model.NewSOCKS5(group, q.Get("remarks"), server, port, q.Get("user"), q.Get("pass")), nil
}
