package vmess

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

const Scheme = "vmess://"

// Parse decodes the v2rayN form: vmess://b64(json).
func Parse(s string) (model.Proxy, error) {
	decoded, err := codec.DecodeBase64Text(strings.TrimPrefix(s, Scheme))
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "vmess base64 解码失败", err)
	}
	if !gjson.Valid(decoded) {
		return model.Proxy{}, codec.Invalid(s, "vmess 内容不是合法 JSON", nil)
	}
	doc := gjson.Parse(decoded)

	server := strings.TrimSpace(doc.Get("add").String())
	if server == "" {
		return model.Proxy{}, codec.Invalid(s, "vmess 缺少服务器地址", nil)
	}
	// port may be a JSON string or number.
	port, err := codec.ParsePort(doc.Get("port").String())
	if err != nil {
		return model.Proxy{}, codec.Invalid(s, "vmess 端口不合法", err)
	}
	id := strings.TrimSpace(doc.Get("id").String())
	if _, err := uuid.Parse(id); err != nil {
		return model.Proxy{}, codec.Invalid(s, "vmess id 不是合法 UUID", err)
	}

	network := strings.ToLower(doc.Get("net").String())
	host := doc.Get("host").String()
	path := doc.Get("path").String()
	if network == "grpc" && path == "" {
		path = doc.Get("serviceName").String()
	}
	tls := strings.EqualFold(doc.Get("tls").String(), "tls")
	sni := doc.Get("sni").String()
	cipher := doc.Get("scy").String()

	p := model.NewVMess(model.V2RayDefaultGroup, strings.TrimSpace(doc.Get("ps").String()), server, port,
		id, int(doc.Get("aid").Int()), cipher, network, doc.Get("type").String(), host, path, tls, sni)
	return p, nil
}
