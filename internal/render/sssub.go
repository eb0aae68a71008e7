package render

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// renderSSSub emits the SIP008-style server array. Fields of the base JSON
// object are copied into every server before the node's own fields.
func renderSSSub(in Input) (string, error) {
	base, err := jsonBase(in.Base)
	if err != nil {
		return "", err
	}
	nodes := prepareNodes(in, supports(model.ProxyShadowsocks))

	servers := make([]map[string]any, 0, len(nodes))
	for _, p := range nodes {
		s := map[string]any{}
		base.ForEach(func(k, v gjson.Result) bool {
			s[k.String()] = v.Value()
			return true
		})
		s["server"] = p.Server
		s["server_port"] = p.Port
		s["password"] = p.Password
		s["method"] = p.EncryptMethod
		s["remarks"] = p.Remark
		s["plugin"] = p.Plugin
		s["plugin_opts"] = pluginOptsString(p)
		servers = append(servers, s)
	}
	return encodeJSON(servers)
}

// jsonBase parses an optional JSON object base document.
func jsonBase(base string) (gjson.Result, error) {
	if strings.TrimSpace(base) == "" {
		return gjson.Parse("{}"), nil
	}
	if !gjson.Valid(base) {
		return gjson.Result{}, renderError("RENDER_BASE_INVALID", "基础配置不是合法的 JSON", "", nil)
	}
	r := gjson.Parse(base)
	if !r.IsObject() {
		return gjson.Result{}, renderError("RENDER_BASE_INVALID", "基础配置顶层必须是 JSON 对象", "", nil)
	}
	return r, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", renderError("RENDER_ENCODE_ERROR", "JSON 编码失败", "", err)
	}
	return string(pretty.Pretty(b)), nil
}
