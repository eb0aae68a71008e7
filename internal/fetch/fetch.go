package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

type Kind int

const (
	KindSubscription Kind = iota
	KindProfile
	KindRuleBase
	KindRuleset
)

func (k Kind) stage() string {
	switch k {
	case KindSubscription:
		return "fetch_sub"
	case KindProfile:
		return "fetch_profile"
	case KindRuleBase:
		return "load_rulebase"
	case KindRuleset:
		return "load_ruleset"
	default:
		return "fetch"
	}
}

func (k Kind) defaultMaxBytes() int64 {
	switch k {
	case KindSubscription:
		return 32 * 1024 * 1024
	case KindProfile:
		return 1 * 1024 * 1024
	case KindRuleBase:
		return 2 * 1024 * 1024
	case KindRuleset:
		return 4 * 1024 * 1024
	default:
		return 1 * 1024 * 1024
	}
}

type Options struct {
	Timeout      time.Duration // default 15s
	MaxBytes     int64         // default per kind
	MaxRedirects int           // default 5
	UserAgent    string

	// Proxy is the default outbound proxy: "", "NONE", "SYSTEM",
	// http(s)://host:port or socks5://[user:pass@]host:port.
	Proxy string
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = 5
	}
	if o.UserAgent == "" {
		o.UserAgent = "subconverter-go"
	}
	return o
}

// Metadata describes a successful response.
type Metadata struct {
	Status int
	Header http.Header
	URL    string // final URL after redirects
}

type FetchError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func newFetchError(status int, code, message, stage, rawURL string, cause error) *FetchError {
	return &FetchError{
		Status: status,
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   stage,
			URL:     rawURL,
		},
		Cause: cause,
	}
}

var (
	errTooManyRedirects   = errors.New("too many redirects")
	errRedirectBadScheme  = errors.New("redirect target scheme is not http/https")
	errInvalidURLOrScheme = errors.New("invalid url or scheme")
)

// Fetcher performs HTTP GETs and local reads with size and encoding
// limits. It is safe for concurrent use.
type Fetcher struct {
	opt Options

	mu         sync.Mutex
	transports map[string]http.RoundTripper
}

func New(opt Options) *Fetcher {
	return &Fetcher{
		opt:        opt.withDefaults(),
		transports: make(map[string]http.RoundTripper),
	}
}

func (f *Fetcher) transport(proxySpec string) (http.RoundTripper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.transports[proxySpec]; ok {
		return rt, nil
	}
	rt, err := newTransport(proxySpec)
	if err != nil {
		return nil, err
	}
	f.transports[proxySpec] = rt
	return rt, nil
}

// FetchText is a one-off fetch with default options.
func FetchText(ctx context.Context, kind Kind, rawURL string) (string, error) {
	return FetchTextWithOptions(ctx, kind, rawURL, Options{})
}

func FetchTextWithOptions(ctx context.Context, kind Kind, rawURL string, opt Options) (string, error) {
	body, _, err := New(opt).Fetch(ctx, kind, rawURL, "")
	return body, err
}

// Fetch GETs rawURL. proxySpec overrides the fetcher's default proxy when
// non-empty.
func (f *Fetcher) Fetch(ctx context.Context, kind Kind, rawURL string, proxySpec string) (string, Metadata, error) {
	stage := kind.stage()
	opt := f.opt

	maxBytes := opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = kind.defaultMaxBytes()
	}
	if maxBytes <= 0 {
		return "", Metadata{}, newFetchError(http.StatusBadRequest, "INVALID_ARGUMENT", "响应大小上限必须大于 0", stage, rawURL, nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", Metadata{}, newFetchError(http.StatusBadRequest, "INVALID_ARGUMENT", "仅允许 http/https URL", stage, rawURL, errors.Join(errInvalidURLOrScheme, err))
	}

	if proxySpec == "" {
		proxySpec = opt.Proxy
	}
	rt, err := f.transport(proxySpec)
	if err != nil {
		return "", Metadata{}, newFetchError(http.StatusBadRequest, "INVALID_ARGUMENT", "代理配置不合法", stage, rawURL, err)
	}

	maxRedirects := opt.MaxRedirects
	client := &http.Client{
		Timeout:   opt.Timeout,
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// 1st redirect => len(via)==1.
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", Metadata{}, newFetchError(http.StatusBadRequest, "INVALID_ARGUMENT", "请求 URL 不合法", stage, rawURL, err)
	}
	req.Header.Set("User-Agent", opt.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return "", Metadata{}, classifyDoError(err, stage, rawURL, maxRedirects)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Metadata{}, newFetchError(http.StatusBadGateway, "FETCH_FAILED", fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode), stage, rawURL, nil)
	}

	r, err := decodeBody(resp)
	if err != nil {
		return "", Metadata{}, newFetchError(http.StatusBadGateway, "FETCH_FAILED", "上游响应解压失败", stage, rawURL, err)
	}
	defer r.Close()

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", Metadata{}, newFetchError(http.StatusGatewayTimeout, "FETCH_TIMEOUT", "拉取远程资源超时", stage, rawURL, err)
		}
		return "", Metadata{}, newFetchError(http.StatusBadGateway, "FETCH_FAILED", "读取上游响应失败", stage, rawURL, err)
	}
	if err := checkBody(body, maxBytes, stage, rawURL); err != nil {
		return "", Metadata{}, err
	}

	meta := Metadata{Status: resp.StatusCode, Header: resp.Header.Clone(), URL: resp.Request.URL.String()}
	return string(body), meta, nil
}

func classifyDoError(err error, stage, rawURL string, maxRedirects int) error {
	if errors.Is(err, errTooManyRedirects) {
		return newFetchError(http.StatusBadGateway, "FETCH_FAILED", fmt.Sprintf("重定向次数超过上限（>%d）", maxRedirects), stage, rawURL, err)
	}
	if errors.Is(err, errRedirectBadScheme) {
		return newFetchError(http.StatusBadRequest, "INVALID_ARGUMENT", "重定向目标仅允许 http/https", stage, rawURL, err)
	}
	// Go may wrap timeouts in *url.Error.
	var ne net.Error
	if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return newFetchError(http.StatusGatewayTimeout, "FETCH_TIMEOUT", "拉取远程资源超时", stage, rawURL, err)
	}
	return newFetchError(http.StatusBadGateway, "FETCH_FAILED", "拉取远程资源失败", stage, rawURL, err)
}

func checkBody(body []byte, maxBytes int64, stage, source string) error {
	if int64(len(body)) > maxBytes {
		return newFetchError(http.StatusUnprocessableEntity, "TOO_LARGE", fmt.Sprintf("远程资源过大（>%d bytes）", maxBytes), stage, source, nil)
	}
	if !utf8.Valid(body) {
		return newFetchError(http.StatusUnprocessableEntity, "FETCH_INVALID_UTF8", "远程资源不是合法 UTF-8 文本", stage, source, nil)
	}
	return nil
}
