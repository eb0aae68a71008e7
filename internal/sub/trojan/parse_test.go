package trojan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func TestParse(t *testing.T) {
	p, err := Parse("trojan://secret@us.example.com:8443?peer=sni.example.com&allowInsecure=1&type=ws&path=%2Fws&group=Air#US%2001")
	require.NoError(t, err)

	assert.Equal(t, model.ProxyTrojan, p.Type)
	assert.Equal(t, "US 01", p.Remark)
	assert.Equal(t, "Air", p.Group)
	assert.Equal(t, "secret", p.Password)
	assert.Equal(t, 8443, p.Port)
	assert.Equal(t, "sni.example.com", p.ServerName)
	assert.Equal(t, "ws", p.TransferProtocol)
	assert.Equal(t, "/ws", p.Path)
	assert.True(t, p.TLS)
	assert.Equal(t, model.True, p.SkipCertVerify)
}

func TestParse_DefaultPortAndGroup(t *testing.T) {
	p, err := Parse("trojan://pw@example.com")
	require.NoError(t, err)
	assert.Equal(t, 443, p.Port)
	assert.Equal(t, model.TrojanDefaultGroup, p.Group)
	assert.Equal(t, "example.com:443", p.Remark)
	assert.Equal(t, model.Unset, p.SkipCertVerify)
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"trojan://example.com:443", "trojan://pw@:443", "trojan://pw@example.com:0"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
