package vless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func TestParse(t *testing.T) {
	p, err := Parse("vless://b831381d-6324-4d53-ad4f-8cda48b30811@sg.example.com:443?type=grpc&serviceName=svc&security=tls&sni=sg.example.com&flow=xtls-rprx-vision&allowInsecure=1#SG%2001")
	require.NoError(t, err)

	assert.Equal(t, model.ProxyVLESS, p.Type)
	assert.Equal(t, "SG 01", p.Remark)
	assert.Equal(t, "grpc", p.TransferProtocol)
	assert.Equal(t, "svc", p.Path)
	assert.True(t, p.TLS)
	assert.Equal(t, "xtls-rprx-vision", p.Flow)
	assert.Equal(t, model.True, p.SkipCertVerify)
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"vless://sg.example.com:443",
		"vless://not-a-uuid@sg.example.com:443",
		"vless://b831381d-6324-4d53-ad4f-8cda48b30811@sg.example.com",
		"vless://b831381d-6324-4d53-ad4f-8cda48b30811@:443",
	} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
