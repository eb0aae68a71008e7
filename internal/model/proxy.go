package model

import "strconv"

type ProxyType string

const (
	ProxyShadowsocks  ProxyType = "ss"
	ProxyShadowsocksR ProxyType = "ssr"
	ProxyVMess        ProxyType = "vmess"
	ProxyVLESS        ProxyType = "vless"
	ProxyTrojan       ProxyType = "trojan"
	ProxyHTTP         ProxyType = "http"
	ProxyHTTPS        ProxyType = "https"
	ProxySOCKS5       ProxyType = "socks5"
)

// DisplayName is the label used by the append-proxy-type option.
func (t ProxyType) DisplayName() string {
	switch t {
	case ProxyShadowsocks:
		return "SS"
	case ProxyShadowsocksR:
		return "SSR"
	case ProxyVMess:
		return "VMess"
	case ProxyVLESS:
		return "VLESS"
	case ProxyTrojan:
		return "Trojan"
	case ProxyHTTP:
		return "HTTP"
	case ProxyHTTPS:
		return "HTTPS"
	case ProxySOCKS5:
		return "SOCKS5"
	default:
		return string(t)
	}
}

// Placeholder group labels used when a link carries no group of its own.
const (
	SSDefaultGroup     = "SSProvider"
	SSRDefaultGroup    = "SSRProvider"
	V2RayDefaultGroup  = "V2RayProvider"
	TrojanDefaultGroup = "TrojanProvider"
	HTTPDefaultGroup   = "HTTPProvider"
	SocksDefaultGroup  = "SocksProvider"
)

type KV struct {
	Key   string
	Value string
}

// Proxy is the canonical node shared by all parsers and renderers.
type Proxy struct {
	Type    ProxyType
	Group   string
	GroupID int
	Remark  string

	Server string
	Port   int

	Username      string
	Password      string
	EncryptMethod string

	// Plugin/PluginOpts come from the SIP002 "plugin" parameter.
	// PluginOpts keeps order (no map) to keep output deterministic.
	Plugin     string
	PluginOpts []KV

	Protocol      string
	ProtocolParam string
	OBFS          string
	OBFSParam     string

	UserID           string
	AlterID          int
	TransferProtocol string // tcp, ws, h2, grpc, quic
	FakeType         string
	Host             string
	Path             string
	TLS              bool
	ServerName       string
	Flow             string

	UDP            Tribool
	TCPFastOpen    Tribool
	SkipCertVerify Tribool
	TLS13          Tribool
}

type Identity struct {
	Group  string
	Remark string
	Server string
	Port   int
}

func (p Proxy) Identity() Identity {
	return Identity{Group: p.Group, Remark: p.Remark, Server: p.Server, Port: p.Port}
}

// PluginOpt returns the value of the first plugin option named key.
func (p Proxy) PluginOpt(key string) string {
	for _, kv := range p.PluginOpts {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Clone returns a copy that shares no slices with p.
func (p Proxy) Clone() Proxy {
	if p.PluginOpts != nil {
		p.PluginOpts = append([]KV(nil), p.PluginOpts...)
	}
	return p
}

func defaultRemark(remark, server string, port int) string {
	if remark != "" {
		return remark
	}
	return server + ":" + strconv.Itoa(port)
}

func base(t ProxyType, group, remark, server string, port int) Proxy {
	return Proxy{
		Type:   t,
		Group:  group,
		Remark: defaultRemark(remark, server, port),
		Server: server,
		Port:   port,
	}
}

func NewShadowsocks(group, remark, server string, port int, password, method, plugin string, pluginOpts []KV) Proxy {
	p := base(ProxyShadowsocks, group, remark, server, port)
	p.Password = password
	p.EncryptMethod = method
	p.Plugin = plugin
	p.PluginOpts = pluginOpts
	return p
}

func NewShadowsocksR(group, remark, server string, port int, password, method, protocol, protocolParam, obfs, obfsParam string) Proxy {
	p := base(ProxyShadowsocksR, group, remark, server, port)
	p.Password = password
	p.EncryptMethod = method
	p.Protocol = protocol
	p.ProtocolParam = protocolParam
	p.OBFS = obfs
	p.OBFSParam = obfsParam
	return p
}

// NewVMess builds a vmess node. network is the transport (tcp, ws, h2, grpc).
func NewVMess(group, remark, server string, port int, id string, alterID int, cipher, network, fakeType, host, path string, tls bool, sni string) Proxy {
	p := base(ProxyVMess, group, remark, server, port)
	p.UserID = id
	p.AlterID = alterID
	if cipher == "" {
		cipher = "auto"
	}
	p.EncryptMethod = cipher
	if network == "" {
		network = "tcp"
	}
	p.TransferProtocol = network
	p.FakeType = fakeType
	p.Host = host
	p.Path = path
	p.TLS = tls
	p.ServerName = sni
	return p
}

func NewVLESS(group, remark, server string, port int, id, flow, network, host, path string, tls bool, sni string) Proxy {
	p := base(ProxyVLESS, group, remark, server, port)
	p.UserID = id
	p.Flow = flow
	if network == "" {
		network = "tcp"
	}
	p.TransferProtocol = network
	p.Host = host
	p.Path = path
	p.TLS = tls
	p.ServerName = sni
	return p
}

func NewTrojan(group, remark, server string, port int, password, network, host, path, sni string) Proxy {
	p := base(ProxyTrojan, group, remark, server, port)
	p.Password = password
	if network == "" {
		network = "tcp"
	}
	p.TransferProtocol = network
	p.Host = host
	p.Path = path
	p.TLS = true
	p.ServerName = sni
	return p
}

func NewHTTP(group, remark, server string, port int, username, password string, tls bool) Proxy {
	t := ProxyHTTP
	if tls {
		t = ProxyHTTPS
	}
	p := base(t, group, remark, server, port)
	p.Username = username
	p.Password = password
	p.TLS = tls
	return p
}

func NewSOCKS5(group, remark, server string, port int, username, password string) Proxy {
	p := base(ProxySOCKS5, group, remark, server, port)
	p.Username = username
	p.Password = password
	return p
}
