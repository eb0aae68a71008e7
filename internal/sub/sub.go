// Package sub turns subscription bodies into canonical nodes by
// dispatching each link to the parser that owns its scheme.
package sub

import (
	"errors"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/logger"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/clash"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
	"github.com/CrazyForks/subconverter-go/internal/sub/httpsub"
	"github.com/CrazyForks/subconverter-go/internal/sub/socks"
	"github.com/CrazyForks/subconverter-go/internal/sub/ss"
	"github.com/CrazyForks/subconverter-go/internal/sub/ssd"
	"github.com/CrazyForks/subconverter-go/internal/sub/ssr"
	"github.com/CrazyForks/subconverter-go/internal/sub/trojan"
	"github.com/CrazyForks/subconverter-go/internal/sub/vless"
	"github.com/CrazyForks/subconverter-go/internal/sub/vmess"
)

type linkParser struct {
	prefix string
	parse  func(string) (model.Proxy, error)
}

// Order matters: t.me socks links must win over the generic https parser.
var linkParsers = []linkParser{
	{socks.TelegramWeb, socks.Parse},
	{ss.Scheme, ss.Parse},
	{ssr.Scheme, ssr.Parse},
	{vmess.Scheme, vmess.Parse},
	{vless.Scheme, vless.Parse},
	{trojan.Scheme, trojan.Parse},
	{socks.Scheme, socks.Parse},
	{socks.Scheme5, socks.Parse},
	{socks.TelegramScheme, socks.Parse},
	{"http://", httpsub.Parse},
	{"https://", httpsub.Parse},
}

func lookup(link string) (linkParser, bool) {
	for _, lp := range linkParsers {
		if strings.HasPrefix(link, lp.prefix) {
			return lp, true
		}
	}
	return linkParser{}, false
}

// IsNodeLink reports whether source is itself a node (or an inline ssd
// list) rather than a location to fetch. http(s) sources are always
// treated as subscriptions.
func IsNodeLink(source string) bool {
	if model.IsHTTPURL(source) {
		return false
	}
	if strings.HasPrefix(source, ssd.Scheme) {
		return true
	}
	_, ok := lookup(source)
	return ok
}

// ParseLink parses a single node link.
func ParseLink(link string) (model.Proxy, error) {
	link = strings.TrimSpace(link)
	lp, ok := lookup(link)
	if !ok {
		return model.Proxy{}, codec.NewParseError(link, "SUB_UNSUPPORTED_SCHEME", "不支持的节点协议", "", codec.ErrUnknownScheme)
	}
	return lp.parse(link)
}

// ParseSubscription decodes a subscription body: an ssd:// document, a
// Clash YAML document, a raw link list or a base64 link list. Bad lines
// are logged and skipped; only an undecodable body is an error.
func ParseSubscription(sourceURL string, content string) ([]model.Proxy, error) {
	s := strings.TrimSpace(codec.StripUTF8BOM(content))
	if s == "" {
		return nil, withSource(codec.NewParseError("", "SUB_PARSE_ERROR", "订阅内容为空", "", nil), sourceURL, 0)
	}
	if out, ok, err := parseStructured(sourceURL, s); ok {
		return out, err
	}

	decoded, err := codec.DecodeBase64Text(s)
	if err != nil {
		return nil, withSource(codec.NewParseError(s, "SUB_BASE64_DECODE_ERROR", "订阅 base64 解码失败", "", err), sourceURL, 0)
	}
	decoded = strings.TrimSpace(codec.StripUTF8BOM(decoded))
	if out, ok, err := parseStructured(sourceURL, decoded); ok {
		return out, err
	}
	return nil, withSource(codec.NewParseError(s, "SUB_PARSE_ERROR", "订阅内容无法识别", "expected: node links, ssd:// or clash yaml", nil), sourceURL, 0)
}

// parseStructured handles every form that needs no outer base64 layer.
func parseStructured(sourceURL, s string) ([]model.Proxy, bool, error) {
	switch {
	case strings.HasPrefix(s, ssd.Scheme):
		out, skipped, err := ssd.Parse(s)
		logSkipped(sourceURL, skipped)
		return out, true, withSource(err, sourceURL, 0)
	case clash.Looks(s):
		out, skipped, err := clash.Parse(s)
		logSkipped(sourceURL, skipped)
		return out, true, withSource(err, sourceURL, 0)
	case hasLinkLine(s):
		return parseRawList(sourceURL, s), true, nil
	default:
		return nil, false, nil
	}
}

func hasLinkLine(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if _, ok := lookup(strings.TrimSpace(line)); ok {
			return true
		}
	}
	return false
}

func parseRawList(sourceURL, raw string) []model.Proxy {
	lines := strings.Split(raw, "\n")
	out := make([]model.Proxy, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseLink(line)
		if err != nil {
			err = withSource(err, sourceURL, i+1)
			logger.Warn("跳过无法解析的节点", "url", sourceURL, "line", i+1, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

func logSkipped(sourceURL string, skipped []error) {
	for _, err := range skipped {
		logger.Warn("跳过无法解析的节点", "url", sourceURL, "err", err)
	}
}

func withSource(err error, sourceURL string, line int) error {
	var pe *codec.ParseError
	if errors.As(err, &pe) {
		pe.AppError.URL = sourceURL
		if line > 0 {
			pe.AppError.Line = line
		}
	}
	return err
}
