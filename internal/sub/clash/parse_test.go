package clash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const doc = `
port: 7890
proxies:
  - {name: "SS 1", type: ss, server: ss.example.com, port: 8388, cipher: aes-128-gcm, password: pw, udp: true,
     plugin: obfs, plugin-opts: {mode: http, host: bing.com}}
  - name: VM
    type: vmess
    server: vm.example.com
    port: "443"
    uuid: b831381d-6324-4d53-ad4f-8cda48b30811
    alterId: 0
    cipher: auto
    tls: true
    network: ws
    ws-opts:
      path: /ray
      headers:
        Host: cdn.example.com
  - {name: T, type: trojan, server: t.example.com, port: 443, password: x, sni: t.example.com, skip-cert-verify: false}
  - {name: Bad, type: wireguard, server: w.example.com, port: 51820}
  - {name: Zero, type: ss, server: z.example.com, port: 0, cipher: aes-128-gcm, password: pw}
`

func TestLooks(t *testing.T) {
	assert.True(t, Looks(doc))
	assert.False(t, Looks("ss://abc\nvmess://def"))
}

func TestParse(t *testing.T) {
	proxies, skipped, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, proxies, 3)
	assert.Len(t, skipped, 2)

	ss := proxies[0]
	assert.Equal(t, model.ProxyShadowsocks, ss.Type)
	assert.Equal(t, "obfs-local", ss.Plugin)
	assert.Equal(t, "http", ss.PluginOpt("obfs"))
	assert.Equal(t, "bing.com", ss.PluginOpt("obfs-host"))
	assert.Equal(t, model.True, ss.UDP)

	vm := proxies[1]
	assert.Equal(t, 443, vm.Port)
	assert.Equal(t, "ws", vm.TransferProtocol)
	assert.Equal(t, "/ray", vm.Path)
	assert.Equal(t, "cdn.example.com", vm.Host)
	assert.True(t, vm.TLS)

	tr := proxies[2]
	assert.Equal(t, model.False, tr.SkipCertVerify)
	assert.Equal(t, "t.example.com", tr.ServerName)
}

func TestParse_NoProxies(t *testing.T) {
	_, _, err := Parse("port: 7890\n")
	assert.Error(t, err)
}
