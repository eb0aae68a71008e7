// Package clash reads the proxies list of a Clash YAML document and
// converts each entry into a canonical node.
package clash

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CrazyForks/subconverter-go/internal/model"
	"github.com/CrazyForks/subconverter-go/internal/sub/codec"
)

// flexInt accepts both 443 and "443".
type flexInt int

func (f *flexInt) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.Atoi(strings.TrimSpace(n.Value))
	if err != nil {
		return fmt.Errorf("line %d: not an integer: %q", n.Line, n.Value)
	}
	*f = flexInt(v)
	return nil
}

type wsOpts struct {
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers"`
}

type grpcOpts struct {
	ServiceName string `yaml:"grpc-service-name"`
}

type proxyEntry struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Server   string  `yaml:"server"`
	Port     flexInt `yaml:"port"`
	Cipher   string  `yaml:"cipher"`
	Password string  `yaml:"password"`
	Username string  `yaml:"username"`

	Plugin     string            `yaml:"plugin"`
	PluginOpts map[string]string `yaml:"plugin-opts"`

	Protocol      string `yaml:"protocol"`
	ProtocolParam string `yaml:"protocol-param"`
	Obfs          string `yaml:"obfs"`
	ObfsParam     string `yaml:"obfs-param"`

	UUID       string   `yaml:"uuid"`
	AlterID    flexInt  `yaml:"alterId"`
	Network    string   `yaml:"network"`
	TLS        bool     `yaml:"tls"`
	SNI        string   `yaml:"sni"`
	ServerName string   `yaml:"servername"`
	Flow       string   `yaml:"flow"`
	WSOpts     wsOpts   `yaml:"ws-opts"`
	GRPCOpts   grpcOpts `yaml:"grpc-opts"`

	UDP            *bool `yaml:"udp"`
	TFO            *bool `yaml:"tfo"`
	SkipCertVerify *bool `yaml:"skip-cert-verify"`
}

type document struct {
	Proxies    []yaml.Node `yaml:"proxies"`
	OldProxies []yaml.Node `yaml:"Proxy"`
}

// Looks reports whether content is plausibly a Clash document.
func Looks(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "proxies:") || strings.HasPrefix(line, "Proxy:") {
			return true
		}
	}
	return false
}

// Parse returns the decodable proxies plus one error per skipped entry.
func Parse(content string) ([]model.Proxy, []error, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, nil, codec.NewParseError(content, "SUB_PARSE_ERROR", "clash 订阅 YAML 解析失败", "", err)
	}
	nodes := doc.Proxies
	if len(nodes) == 0 {
		nodes = doc.OldProxies
	}
	if len(nodes) == 0 {
		return nil, nil, codec.NewParseError(content, "SUB_PARSE_ERROR", "clash 订阅中没有 proxies", "", nil)
	}

	var out []model.Proxy
	var skipped []error
	for i := range nodes {
		var e proxyEntry
		if err := nodes[i].Decode(&e); err != nil {
			skipped = append(skipped, fmt.Errorf("proxy #%d: %w", i, err))
			continue
		}
		p, err := convert(e)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("proxy #%d (%s): %w", i, e.Name, err))
			continue
		}
		out = append(out, p)
	}
	return out, skipped, nil
}

func tribool(b *bool) model.Tribool {
	if b == nil {
		return model.Unset
	}
	return model.BoolOf(*b)
}

func convert(e proxyEntry) (model.Proxy, error) {
	server := strings.TrimSpace(e.Server)
	if server == "" {
		return model.Proxy{}, errors.New("empty server")
	}
	port := int(e.Port)
	if port < 1 || port > 65535 {
		return model.Proxy{}, errors.New("port out of range")
	}

	var p model.Proxy
	switch strings.ToLower(e.Type) {
	case "ss":
		var opts []model.KV
		plugin := e.Plugin
		switch plugin {
		case "obfs":
			plugin = "obfs-local"
			opts = append(opts, model.KV{Key: "obfs", Value: e.PluginOpts["mode"]})
			if h := e.PluginOpts["host"]; h != "" {
				opts = append(opts, model.KV{Key: "obfs-host", Value: h})
			}
		case "v2ray-plugin":
			opts = append(opts, model.KV{Key: "mode", Value: e.PluginOpts["mode"]})
			if h := e.PluginOpts["host"]; h != "" {
				opts = append(opts, model.KV{Key: "host", Value: h})
			}
			if pa := e.PluginOpts["path"]; pa != "" {
				opts = append(opts, model.KV{Key: "path", Value: pa})
			}
			if e.PluginOpts["tls"] == "true" {
				opts = append(opts, model.KV{Key: "tls", Value: "true"})
			}
		}
		p = model.NewShadowsocks(model.SSDefaultGroup, e.Name, server, port, e.Password, e.Cipher, plugin, opts)
	case "ssr":
		p = model.NewShadowsocksR(model.SSRDefaultGroup, e.Name, server, port, e.Password, e.Cipher, e.Protocol, e.ProtocolParam, e.Obfs, e.ObfsParam)
	case "vmess":
		host, path := e.WSOpts.Headers["Host"], e.WSOpts.Path
		if e.Network == "grpc" {
			path = e.GRPCOpts.ServiceName
		}
		p = model.NewVMess(model.V2RayDefaultGroup, e.Name, server, port, e.UUID, int(e.AlterID), e.Cipher, e.Network, "", host, path, e.TLS, e.ServerName)
	case "vless":
		host, path := e.WSOpts.Headers["Host"], e.WSOpts.Path
		if e.Network == "grpc" {
			path = e.GRPCOpts.ServiceName
		}
		p = model.NewVLESS(model.V2RayDefaultGroup, e.Name, server, port, e.UUID, e.Flow, e.Network, host, path, e.TLS, e.ServerName)
	case "trojan":
		p = model.NewTrojan(model.TrojanDefaultGroup, e.Name, server, port, e.Password, e.Network, e.WSOpts.Headers["Host"], e.WSOpts.Path, e.SNI)
	case "http":
		p = model.NewHTTP(model.HTTPDefaultGroup, e.Name, server, port, e.Username, e.Password, e.TLS)
	case "socks5":
		p = model.NewSOCKS5(model.SocksDefaultGroup, e.Name, server, port, e.Username, e.Password)
	default:
		return model.Proxy{}, fmt.Errorf("unsupported proxy type %q", e.Type)
	}
	p.UDP = tribool(e.UDP)
	p.TCPFastOpen = tribool(e.TFO)
	p.SkipCertVerify = tribool(e.SkipCertVerify)
	return p, nil
}
