package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// newTransport builds a transport for an outbound proxy spec.
func newTransport(spec string) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	spec = strings.TrimSpace(spec)

	switch strings.ToUpper(spec) {
	case "", "NONE":
		base.Proxy = nil
		return base, nil
	case "SYSTEM":
		base.Proxy = http.ProxyFromEnvironment
		return base, nil
	}

	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", spec, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", spec)
	}

	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
		return base, nil
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy %q: %w", u.Host, err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("socks5 dialer does not support contexts")
		}
		base.Proxy = nil
		base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return cd.DialContext(ctx, network, addr)
		}
		return base, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}
