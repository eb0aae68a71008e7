package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/compiler"
	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/profile"
	"github.com/CrazyForks/subconverter-go/internal/settings"
)

// convertRequest is one /sub or /api/convert call. Tribool fields left
// Unset keep the settings value.
type convertRequest struct {
	Target  string
	Ver     int
	URLs    []string
	Insert  model.Tribool
	Prepend model.Tribool
	Group   string
	Config  string

	Include string
	Exclude string
	Rename  string
	Emoji   model.Tribool

	AddEmoji    model.Tribool
	RemoveEmoji model.Tribool
	AppendType  model.Tribool
	Sort        model.Tribool
	FDN         model.Tribool

	TFO   model.Tribool
	UDP   model.Tribool
	SCV   model.Tribool
	TLS13 model.Tribool

	NewName model.Tribool
	Classic model.Tribool
	List    model.Tribool
	Expand  model.Tribool

	Filename string
	Interval int
	Strict   model.Tribool

	Upload     model.Tribool
	UploadPath string
	Token      string
}

type convertRequestJSON struct {
	Target  string   `json:"target"`
	Ver     int      `json:"ver"`
	URLs    []string `json:"urls"`
	Insert  *bool    `json:"insert"`
	Prepend *bool    `json:"prepend"`
	Group   string   `json:"group"`
	Config  string   `json:"config"`

	Include string `json:"include"`
	Exclude string `json:"exclude"`
	Rename  string `json:"rename"`
	Emoji   *bool  `json:"emoji"`

	AddEmoji    *bool `json:"add_emoji"`
	RemoveEmoji *bool `json:"remove_emoji"`
	AppendType  *bool `json:"append_type"`
	Sort        *bool `json:"sort"`
	FDN         *bool `json:"fdn"`

	TFO   *bool `json:"tfo"`
	UDP   *bool `json:"udp"`
	SCV   *bool `json:"scv"`
	TLS13 *bool `json:"tls13"`

	NewName *bool `json:"new_name"`
	Classic *bool `json:"classic"`
	List    *bool `json:"list"`
	Expand  *bool `json:"expand"`

	Filename string `json:"filename"`
	Interval int    `json:"interval"`
	Strict   *bool  `json:"strict"`

	Upload     *bool  `json:"upload"`
	UploadPath string `json:"upload_path"`
	Token      string `json:"token"`
}

var tribools = map[string]func(*convertRequest) *model.Tribool{
	"insert":       func(r *convertRequest) *model.Tribool { return &r.Insert },
	"prepend":      func(r *convertRequest) *model.Tribool { return &r.Prepend },
	"emoji":        func(r *convertRequest) *model.Tribool { return &r.Emoji },
	"add_emoji":    func(r *convertRequest) *model.Tribool { return &r.AddEmoji },
	"remove_emoji": func(r *convertRequest) *model.Tribool { return &r.RemoveEmoji },
	"append_type":  func(r *convertRequest) *model.Tribool { return &r.AppendType },
	"sort":         func(r *convertRequest) *model.Tribool { return &r.Sort },
	"fdn":          func(r *convertRequest) *model.Tribool { return &r.FDN },
	"tfo":          func(r *convertRequest) *model.Tribool { return &r.TFO },
	"udp":          func(r *convertRequest) *model.Tribool { return &r.UDP },
	"scv":          func(r *convertRequest) *model.Tribool { return &r.SCV },
	"tls13":        func(r *convertRequest) *model.Tribool { return &r.TLS13 },
	"new_name":     func(r *convertRequest) *model.Tribool { return &r.NewName },
	"classic":      func(r *convertRequest) *model.Tribool { return &r.Classic },
	"list":         func(r *convertRequest) *model.Tribool { return &r.List },
	"expand":       func(r *convertRequest) *model.Tribool { return &r.Expand },
	"strict":       func(r *convertRequest) *model.Tribool { return &r.Strict },
	"upload":       func(r *convertRequest) *model.Tribool { return &r.Upload },
}

var strParams = map[string]func(*convertRequest) *string{
	"target":      func(r *convertRequest) *string { return &r.Target },
	"group":       func(r *convertRequest) *string { return &r.Group },
	"config":      func(r *convertRequest) *string { return &r.Config },
	"include":     func(r *convertRequest) *string { return &r.Include },
	"exclude":     func(r *convertRequest) *string { return &r.Exclude },
	"rename":      func(r *convertRequest) *string { return &r.Rename },
	"filename":    func(r *convertRequest) *string { return &r.Filename },
	"upload_path": func(r *convertRequest) *string { return &r.UploadPath },
	"token":       func(r *convertRequest) *string { return &r.Token },
}

func parseConvertGET(r *http.Request) (convertRequest, error) {
	return parseConvertQuery(r.URL.Query())
}

func parseConvertQuery(q url.Values) (convertRequest, error) {
	var req convertRequest
	for key := range q {
		value, err := singleQuery(q, key, false)
		if err != nil {
			return convertRequest{}, err
		}
		switch {
		case key == "url":
			req.URLs = splitSources(value)
		case key == "ver" || key == "interval":
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return convertRequest{}, requestError("INVALID_ARGUMENT", fmt.Sprintf("%s 必须是非负整数", key), value)
			}
			if key == "ver" {
				req.Ver = n
			} else {
				req.Interval = n
			}
		case tribools[key] != nil:
			*tribools[key](&req) = model.ParseTribool(strings.ToLower(strings.TrimSpace(value)))
		case strParams[key] != nil:
			*strParams[key](&req) = value
		default:
			return convertRequest{}, requestError("INVALID_ARGUMENT", fmt.Sprintf("不支持的 query 参数：%s", key), "")
		}
	}
	return req, nil
}

func parseConvertPOST(r *http.Request) (convertRequest, error) {
	var body convertRequestJSON
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 不允许多段", "")
	} else if !errors.Is(err, io.EOF) {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	if body.Ver < 0 || body.Interval < 0 {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "ver/interval 必须是非负整数", "")
	}

	var sources []string
	for _, u := range body.URLs {
		sources = append(sources, splitSources(u)...)
	}
	return convertRequest{
		Target:      body.Target,
		Ver:         body.Ver,
		URLs:        sources,
		Insert:      tri(body.Insert),
		Prepend:     tri(body.Prepend),
		Group:       body.Group,
		Config:      body.Config,
		Include:     body.Include,
		Exclude:     body.Exclude,
		Rename:      body.Rename,
		Emoji:       tri(body.Emoji),
		AddEmoji:    tri(body.AddEmoji),
		RemoveEmoji: tri(body.RemoveEmoji),
		AppendType:  tri(body.AppendType),
		Sort:        tri(body.Sort),
		FDN:         tri(body.FDN),
		TFO:         tri(body.TFO),
		UDP:         tri(body.UDP),
		SCV:         tri(body.SCV),
		TLS13:       tri(body.TLS13),
		NewName:     tri(body.NewName),
		Classic:     tri(body.Classic),
		List:        tri(body.List),
		Expand:      tri(body.Expand),
		Filename:    body.Filename,
		Interval:    body.Interval,
		Strict:      tri(body.Strict),
		Upload:      tri(body.Upload),
		UploadPath:  body.UploadPath,
		Token:       body.Token,
	}, nil
}

func tri(b *bool) model.Tribool {
	if b == nil {
		return model.Unset
	}
	return model.BoolOf(*b)
}

// splitSources splits a '|' joined source list, dropping empty entries.
func splitSources(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func singleQuery(q url.Values, key string, required bool) (string, error) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		if required {
			return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("缺少 %s 参数", key), "")
		}
		return "", nil
	}
	if len(values) != 1 {
		return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("%s 参数只能出现一次", key), "")
	}
	return values[0], nil
}

func setBool(dst *bool, t model.Tribool) {
	if t.IsSet() {
		*dst = t.Bool()
	}
}

// buildParams layers the request over the external config over the
// settings snapshot.
func (h *convertHandler) buildParams(ctx context.Context, req convertRequest, s *settings.Settings) (compiler.Params, error) {
	target, err := model.ParseTarget(req.Target, req.Ver)
	if err != nil {
		return compiler.Params{}, requestError("INVALID_ARGUMENT", "不支持的 target", req.Target)
	}

	p := compiler.Params{
		Target:        target,
		URLs:          req.URLs,
		PrependInsert: s.PrependInsert,
		GroupName:     strings.TrimSpace(req.Group),
		RuleBasePaths: s.RuleBases,
		Rulesets:      s.Rulesets,
		ProxyGroups:   s.Groups,
		Include:       s.Include,
		Exclude:       s.Exclude,
		Extra:         s.Extra.Clone(),
		DeviceID:      s.QuanXDeviceID,
		FilterScript:  s.FilterScript,
		Proxy:         s.ProxySubscription,
		UploadPath:    strings.TrimSpace(req.UploadPath),
		Token:         req.Token,
		Authorized:    h.authorized(req.Token),
	}
	if len(p.URLs) == 0 {
		p.URLs = s.DefaultURLs
	}
	if req.Insert.Or(model.True).Bool() {
		p.InsertURLs = s.InsertURLs
	}
	setBool(&p.PrependInsert, req.Prepend)
	setBool(&p.Upload, req.Upload)

	configURL := strings.TrimSpace(req.Config)
	if configURL == "" {
		configURL = s.DefaultExternalConfig
	}
	if configURL != "" {
		if err := h.applyExternal(ctx, configURL, &p); err != nil {
			return compiler.Params{}, err
		}
	}

	if req.Include != "" {
		p.Include = []string{req.Include}
	}
	if req.Exclude != "" {
		p.Exclude = []string{req.Exclude}
	}
	if req.Rename != "" {
		var rc []model.RegexMatchConfig
		for _, entry := range strings.Split(req.Rename, "`") {
			if m, ok := profile.ParseMatchLine(profile.RenameMatch, entry); ok {
				rc = append(rc, m)
			}
		}
		p.Extra.RenameRules = rc
	}

	x := &p.Extra
	setBool(&x.AddEmoji, req.Emoji)
	setBool(&x.RemoveEmoji, req.Emoji)
	setBool(&x.AddEmoji, req.AddEmoji)
	setBool(&x.RemoveEmoji, req.RemoveEmoji)
	setBool(&x.AppendProxyType, req.AppendType)
	setBool(&x.Sort, req.Sort)
	setBool(&x.FilterDeprecated, req.FDN)
	setBool(&x.ClashNewFieldName, req.NewName)
	setBool(&x.ClashClassicalRuleset, req.Classic)
	setBool(&x.NodeList, req.List)
	setBool(&x.ExpandRulesets, req.Expand)
	setBool(&x.UpdateStrict, req.Strict)
	x.TFO = req.TFO.Or(x.TFO)
	x.UDP = req.UDP.Or(x.UDP)
	x.SkipCertVerify = req.SCV.Or(x.SkipCertVerify)
	x.TLS13 = req.TLS13.Or(x.TLS13)
	if req.Interval > 0 {
		x.UpdateInterval = req.Interval
	}

	name, err := outputFileName(req.Filename, target)
	if err != nil {
		return compiler.Params{}, err
	}
	p.Filename = name
	return p, nil
}

func (h *convertHandler) applyExternal(ctx context.Context, configURL string, p *compiler.Params) error {
	text, err := h.opt.Source.Load(ctx, fetch.KindProfile, configURL, p.Proxy)
	if err != nil {
		return err
	}
	spec, err := profile.ParseProfileYAML(configURL, text)
	if err != nil {
		return err
	}
	if len(spec.RuleBases) > 0 {
		merged := make(map[model.Family]string, len(p.RuleBasePaths)+len(spec.RuleBases))
		for k, v := range p.RuleBasePaths {
			merged[k] = v
		}
		for k, v := range spec.RuleBases {
			merged[k] = v
		}
		p.RuleBasePaths = merged
	}
	if len(spec.Groups) > 0 {
		p.ProxyGroups = spec.Groups
	}
	if len(spec.Rulesets) > 0 {
		p.Rulesets = spec.Rulesets
	}
	if len(spec.Include) > 0 {
		p.Include = spec.Include
	}
	if len(spec.Exclude) > 0 {
		p.Exclude = spec.Exclude
	}
	p.Extra = spec.ApplyExtra(ctx, h.opt.Source, p.Extra)
	return nil
}

func (h *convertHandler) authorized(token string) bool {
	if h.opt.Token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.opt.Token)) == 1
}
