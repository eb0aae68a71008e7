package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

func ssNode(remark string) model.Proxy {
	return model.Proxy{
		Type:          model.ProxyShadowsocks,
		Remark:        remark,
		Server:        "example.com",
		Port:          8388,
		EncryptMethod: "aes-128-gcm",
		Password:      "123",
	}
}

func proxyGroup() []model.ProxyGroupConfig {
	return []model.ProxyGroupConfig{{Name: "PROXY", Type: model.GroupSelect, Proxies: []string{".*", "[]DIRECT"}}}
}

func TestRender_UnknownTarget(t *testing.T) {
	_, err := Render(model.Target{Kind: model.TargetSSD}, Input{Nodes: []model.Proxy{ssNode("n1")}})
	if !errors.Is(err, ErrUnimplementedTarget) {
		t.Fatalf("expected ErrUnimplementedTarget, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.AppError.Code != "UNSUPPORTED_TARGET" || re.AppError.Stage != "render" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestLookup_EveryListedTarget(t *testing.T) {
	for _, k := range []model.TargetKind{
		model.TargetClash, model.TargetClashR, model.TargetSurge, model.TargetSurfboard,
		model.TargetQuan, model.TargetQuanX, model.TargetLoon, model.TargetMellow,
		model.TargetSSSub, model.TargetSingBox, model.TargetSS, model.TargetSSR,
		model.TargetV2Ray, model.TargetTrojan, model.TargetMixed,
	} {
		if _, ok := Lookup(k); !ok {
			t.Fatalf("no renderer for %s", k)
		}
	}
	if _, ok := Lookup(model.TargetSSD); ok {
		t.Fatalf("ssd must not have a renderer")
	}
}

func TestUniqueRemark(t *testing.T) {
	seen := map[string]int{}
	got := []string{
		uniqueRemark("a", seen),
		uniqueRemark("a 2", seen),
		uniqueRemark("a", seen),
		uniqueRemark("a", seen),
	}
	want := []string{"a", "a 2", "a 3", "a 4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("remark %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestPrepareNodes_TriboolOverride(t *testing.T) {
	keep := ssNode("keep")
	keep.UDP = model.False
	in := Input{
		Nodes: []model.Proxy{ssNode("unset"), keep},
		Extra: model.ExtraSettings{TFO: model.True},
	}
	out := prepareNodes(in, nil)
	if out[0].UDP != model.Unset || out[1].UDP != model.False {
		t.Fatalf("unset request value must keep node value: %v %v", out[0].UDP, out[1].UDP)
	}
	if !out[0].TCPFastOpen.Bool() || !out[1].TCPFastOpen.Bool() {
		t.Fatalf("request value must override node value")
	}

	in.Extra.UDP = model.True
	out = prepareNodes(in, nil)
	if !out[1].UDP.Bool() {
		t.Fatalf("request udp=true must win over node udp=false")
	}
	if in.Nodes[1].UDP != model.False {
		t.Fatalf("input nodes must not be mutated")
	}
}

func TestRender_Clash_PasswordQuotedAndPlugin(t *testing.T) {
	n := ssNode("n1")
	n.Plugin = "simple-obfs"
	n.PluginOpts = []model.KV{{Key: "obfs", Value: "tls"}, {Key: "obfs-host", Value: "example.com"}}

	out, err := Render(model.Target{Kind: model.TargetClash}, Input{
		Nodes:  []model.Proxy{n},
		Groups: proxyGroup(),
		Extra:  model.ExtraSettings{ClashNewFieldName: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`password: "123"`, "plugin: obfs", "plugin-opts:", "mode: tls", "proxies:", "proxy-groups:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRender_Clash_SkipsUnsupportedPlugin(t *testing.T) {
	n := ssNode("n1")
	n.Plugin = "kcptun"
	out, err := Render(model.Target{Kind: model.TargetClash}, Input{Nodes: []model.Proxy{n, ssNode("n2")}, Groups: proxyGroup()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "name: n1") || !strings.Contains(out, "name: n2") {
		t.Fatalf("unsupported plugin node must be skipped:\n%s", out)
	}
}

func TestRender_Clash_OldFieldNames(t *testing.T) {
	base := "port: 7890\nproxies: []\nrules:\n  - DOMAIN,keep.example,DIRECT\n"
	ssr := model.Proxy{
		Type: model.ProxyShadowsocksR, Remark: "r1", Server: "1.2.3.4", Port: 443,
		EncryptMethod: "aes-256-cfb", Password: "p", Protocol: "auth_aes128_md5", OBFS: "tls1.2_ticket_auth",
	}
	out, err := Render(model.Target{Kind: model.TargetClashR}, Input{
		Nodes:  []model.Proxy{ssr},
		Base:   base,
		Groups: proxyGroup(),
		Rulesets: []model.RulesetContent{
			{Group: "PROXY", Kind: model.RulesetInline, Content: "FINAL"},
		},
		Extra: model.ExtraSettings{EnableRuleGenerator: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Proxy:", "Proxy Group:", "Rule:", "protocolparam", "port: 7890", "DOMAIN,keep.example,DIRECT", "MATCH,PROXY"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "proxies:") {
		t.Fatalf("new key must be dropped when old names are used:\n%s", out)
	}
	if strings.Index(out, "keep.example") > strings.Index(out, "MATCH,PROXY") {
		t.Fatalf("base rules must come first:\n%s", out)
	}
}

func TestRender_Clash_RuleProviders(t *testing.T) {
	in := Input{
		Nodes:  []model.Proxy{ssNode("n1")},
		Groups: proxyGroup(),
		Rulesets: []model.RulesetContent{
			{Group: "PROXY", Kind: model.RulesetRemote, Type: model.RulesetSurge, Path: "https://example.com/rules/Google.list", Content: "DOMAIN-SUFFIX,google.com"},
			{Group: "DIRECT", Kind: model.RulesetInline, Content: "FINAL"},
		},
		Extra: model.ExtraSettings{EnableRuleGenerator: true, ClashNewFieldName: true, ClashClassicalRuleset: true},
	}
	out, err := Render(model.Target{Kind: model.TargetClash}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"rule-providers:", "Google:", "behavior: classical", "RULE-SET,Google,PROXY", "MATCH,DIRECT"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	in.Extra.ClashClassicalRuleset = false
	out, err = Render(model.Target{Kind: model.TargetClash}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "rule-providers") || !strings.Contains(out, "DOMAIN-SUFFIX,google.com,PROXY") {
		t.Fatalf("rules must be inlined without classical rulesets:\n%s", out)
	}
}

func TestRender_Clash_DropsURLRegex(t *testing.T) {
	out, err := Render(model.Target{Kind: model.TargetClash}, Input{
		Groups: proxyGroup(),
		Rulesets: []model.RulesetContent{
			{Group: "PROXY", Kind: model.RulesetRemote, Type: model.RulesetSurge, Path: "/local.list", Content: "URL-REGEX,^http://ad\nDOMAIN,a.example"},
		},
		Extra: model.ExtraSettings{EnableRuleGenerator: true, ClashNewFieldName: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "URL-REGEX") || !strings.Contains(out, "DOMAIN,a.example,PROXY") {
		t.Fatalf("unexpected rules:\n%s", out)
	}
}

func surgeInput() Input {
	return Input{
		Nodes:  []model.Proxy{ssNode("n, 1")},
		Groups: proxyGroup(),
		Rulesets: []model.RulesetContent{
			{Group: "PROXY", Kind: model.RulesetRemote, Type: model.RulesetSurge, Path: "https://example.com/Google.list", Content: "DOMAIN-SUFFIX,google.com"},
			{Group: "DIRECT", Kind: model.RulesetInline, Content: "FINAL"},
		},
		Extra: model.ExtraSettings{EnableRuleGenerator: true},
	}
}

func TestRender_Surge_RuleSetByVersion(t *testing.T) {
	out, err := Render(model.Target{Kind: model.TargetSurge, Version: 3}, surgeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"[Proxy]", `"n, 1" = ss, example.com, 8388`, `PROXY = select, "n, 1", DIRECT`, "RULE-SET,https://example.com/Google.list,PROXY", "FINAL,DIRECT"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	out, err = Render(model.Target{Kind: model.TargetSurge, Version: 2}, surgeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "RULE-SET") || !strings.Contains(out, "DOMAIN-SUFFIX,google.com,PROXY") {
		t.Fatalf("surge 2 must inline rules:\n%s", out)
	}
	if !strings.Contains(out, "= custom, example.com, 8388") {
		t.Fatalf("surge 2 must use the custom ss form:\n%s", out)
	}
}

func TestRender_Surge_ExpandRulesets(t *testing.T) {
	in := surgeInput()
	in.Extra.ExpandRulesets = true
	out, err := Render(model.Target{Kind: model.TargetSurge, Version: 4}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "RULE-SET") || !strings.Contains(out, "DOMAIN-SUFFIX,google.com,PROXY") {
		t.Fatalf("expanded rulesets must be inlined:\n%s", out)
	}
}

func TestRender_Surge_NodeNameInvalid(t *testing.T) {
	_, err := Render(model.Target{Kind: model.TargetSurge, Version: 4}, Input{Nodes: []model.Proxy{ssNode("a=b")}})
	var re *RenderError
	if !errors.As(err, &re) || re.AppError.Code != "NODE_NAME_INVALID" {
		t.Fatalf("expected NODE_NAME_INVALID, got %v", err)
	}
}

func TestRender_Surge_GroupNameInvalid(t *testing.T) {
	_, err := Render(model.Target{Kind: model.TargetSurge, Version: 4}, Input{
		Nodes:  []model.Proxy{ssNode("n1")},
		Groups: []model.ProxyGroupConfig{{Name: "A,B", Type: model.GroupSelect, Proxies: []string{".*"}}},
	})
	var re *RenderError
	if !errors.As(err, &re) || re.AppError.Code != "GROUP_NAME_INVALID" {
		t.Fatalf("expected GROUP_NAME_INVALID, got %v", err)
	}
}

func TestRender_Surge_NodeList(t *testing.T) {
	in := surgeInput()
	in.Extra.NodeList = true
	out, err := Render(model.Target{Kind: model.TargetSurge, Version: 4}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "[Proxy]") || strings.Contains(out, "[Rule]") {
		t.Fatalf("node list must not contain sections:\n%s", out)
	}
	if !strings.HasPrefix(out, `"n, 1" = ss`) {
		t.Fatalf("unexpected node list:\n%s", out)
	}
}

func TestRender_Surge_KeepsBaseSections(t *testing.T) {
	in := surgeInput()
	in.Base = "[General]\nloglevel = notify\n\n[Rule]\nDOMAIN,base.example,DIRECT\n"
	out, err := Render(model.Target{Kind: model.TargetSurge, Version: 4}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "loglevel = notify") {
		t.Fatalf("base section lost:\n%s", out)
	}
	if i, j := strings.Index(out, "DOMAIN,base.example,DIRECT"), strings.Index(out, "RULE-SET"); i < 0 || i > j {
		t.Fatalf("base rules must be kept before generated rules:\n%s", out)
	}

	in.Extra.OverwriteOriginalRules = true
	out, err = Render(model.Target{Kind: model.TargetSurge, Version: 4}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "base.example") {
		t.Fatalf("overwrite must drop base rules:\n%s", out)
	}
}

func TestGenerateRules_MaxAllowed(t *testing.T) {
	in := Input{
		Rulesets: []model.RulesetContent{
			{Group: "A", Kind: model.RulesetRemote, Type: model.RulesetSurge, Content: "DOMAIN,a.example\nDOMAIN,b.example\nDOMAIN,c.example"},
			{Group: "B", Kind: model.RulesetInline, Content: "FINAL"},
		},
		Extra: model.ExtraSettings{MaxAllowedRules: 2},
	}
	items := generateRules(in, ruleOptions{})
	if len(items) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(items))
	}
	if items[1].Rule.Value != "b.example" {
		t.Fatalf("rules must keep input order: %+v", items)
	}

	in.Extra.MaxAllowedRules = 0
	if items := generateRules(in, ruleOptions{}); len(items) != 4 {
		t.Fatalf("zero limit must not cap, got %d", len(items))
	}
}

func TestRender_QuanX(t *testing.T) {
	in := surgeInput()
	in.Nodes = []model.Proxy{ssNode("n1")}
	out, err := Render(model.Target{Kind: model.TargetQuanX}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"[server_local]",
		"shadowsocks=example.com:8388, method=aes-128-gcm, password=123",
		"tag=n1",
		"static=PROXY, n1, direct",
		"[filter_remote]",
		"https://example.com/Google.list, tag=PROXY, force-policy=PROXY",
		"FINAL,direct",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRender_Loon(t *testing.T) {
	in := surgeInput()
	in.Nodes = []model.Proxy{ssNode("n1")}
	out, err := Render(model.Target{Kind: model.TargetLoon}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"[Proxy]", "n1 = Shadowsocks", "[Remote Rule]", "https://example.com/Google.list"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRender_SingBox(t *testing.T) {
	vm := model.Proxy{
		Type: model.ProxyVMess, Remark: "v1", Server: "v.example", Port: 443,
		UserID: "b831381d-6324-4d53-ad4f-8cda48b30811", EncryptMethod: "auto",
		TransferProtocol: "ws", Path: "/ws", Host: "cdn.example", TLS: true,
	}
	in := Input{
		Nodes:  []model.Proxy{vm, ssNode("s1")},
		Base:   `{"log":{"level":"info"},"outbounds":[{"type":"direct","tag":"DIRECT"}]}`,
		Groups: proxyGroup(),
		Rulesets: []model.RulesetContent{
			{Group: "PROXY", Kind: model.RulesetRemote, Type: model.RulesetSurge, Path: "https://example.com/x.list", Content: "DOMAIN-SUFFIX,a.example\nDOMAIN-SUFFIX,b.example"},
			{Group: "DIRECT", Kind: model.RulesetInline, Content: "FINAL"},
		},
		Extra: model.ExtraSettings{EnableRuleGenerator: true},
	}
	out, err := Render(model.Target{Kind: model.TargetSingBox}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gjson.Valid(out) {
		t.Fatalf("invalid json:\n%s", out)
	}
	doc := gjson.Parse(out)
	if doc.Get("log.level").String() != "info" {
		t.Fatalf("base fields lost:\n%s", out)
	}
	if got := doc.Get(`outbounds.#(tag=="PROXY").type`).String(); got != "selector" {
		t.Fatalf("group outbound type = %q", got)
	}
	if got := doc.Get(`outbounds.#(tag=="v1").transport.path`).String(); got != "/ws" {
		t.Fatalf("vmess transport path = %q", got)
	}
	if got := doc.Get(`outbounds.#(tag=="DIRECT")#`).Array(); len(got) != 1 {
		t.Fatalf("DIRECT must not be duplicated, got %d", len(got))
	}
	if doc.Get(`outbounds.#(tag=="REJECT").type`).String() != "block" {
		t.Fatalf("REJECT outbound missing:\n%s", out)
	}
	if doc.Get("route.final").String() != "DIRECT" {
		t.Fatalf("route.final = %q", doc.Get("route.final").String())
	}
	if n := doc.Get("route.rules.0.domain_suffix.#").Int(); n != 2 {
		t.Fatalf("adjacent rules must be folded, got %d", n)
	}
}

func TestRender_SSSub(t *testing.T) {
	n := ssNode("s1")
	n.Plugin = "obfs-local"
	n.PluginOpts = []model.KV{{Key: "obfs", Value: "http"}, {Key: "obfs-host", Value: "h.example"}}
	out, err := Render(model.Target{Kind: model.TargetSSSub}, Input{
		Nodes: []model.Proxy{n, {Type: model.ProxyTrojan, Remark: "t1", Server: "t", Port: 1, Password: "x"}},
		Base:  `{"version":1}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := gjson.Parse(out)
	if doc.Get("#").Int() != 1 {
		t.Fatalf("only ss nodes expected:\n%s", out)
	}
	if doc.Get("0.version").Int() != 1 || doc.Get("0.server_port").Int() != 8388 {
		t.Fatalf("unexpected server:\n%s", out)
	}
	if doc.Get("0.plugin_opts").String() != "obfs=http;obfs-host=h.example" {
		t.Fatalf("plugin_opts = %q", doc.Get("0.plugin_opts").String())
	}
}

func TestRender_Links(t *testing.T) {
	trojan := model.Proxy{Type: model.ProxyTrojan, Remark: "t 1", Server: "t.example", Port: 443, Password: "pw"}
	in := Input{Nodes: []model.Proxy{ssNode("s1"), trojan}}

	out, err := Render(model.Target{Kind: model.TargetSS}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := codec.DecodeBase64Text(out)
	if err != nil {
		t.Fatalf("output must be base64: %v", err)
	}
	if !strings.HasPrefix(text, "ss://") || strings.Contains(text, "trojan://") {
		t.Fatalf("unexpected ss links:\n%s", text)
	}
	if !strings.HasSuffix(text, "@example.com:8388#s1") {
		t.Fatalf("unexpected ss link: %s", text)
	}

	out, err = Render(model.Target{Kind: model.TargetMixed}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, _ = codec.DecodeBase64Text(out)
	lines := strings.Split(text, "\n")
	if len(lines) != 2 || lines[1] != "trojan://pw@t.example:443#t%201" {
		t.Fatalf("unexpected mixed links: %q", lines)
	}

	out, err = Render(model.Target{Kind: model.TargetSSR}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, _ = codec.DecodeBase64Text(out)
	if !strings.HasPrefix(text, "ssr://") {
		t.Fatalf("plain ss nodes must be converted to ssr: %s", text)
	}
}
