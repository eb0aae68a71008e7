package socks

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func TestParse_Forms(t *testing.T) {
	b64User := base64.StdEncoding.EncodeToString([]byte("u:p"))
	b64All := base64.StdEncoding.EncodeToString([]byte("u:p@1.2.3.4:1080"))

	cases := []struct {
		in     string
		remark string
	}{
		{"socks5://u:p@1.2.3.4:1080#Home", "Home"},
		{"socks://" + b64User + "@1.2.3.4:1080#Home", "Home"},
		{"socks://" + b64All + "#Home", "Home"},
		{"tg://socks?server=1.2.3.4&port=1080&user=u&pass=p&remarks=Home", "Home"},
		{"https://t.me/socks?server=1.2.3.4&port=1080&user=u&pass=p&remarks=Home", "Home"},
	}
	for _, tc := range cases {
		p, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, model.ProxySOCKS5, p.Type, tc.in)
		assert.Equal(t, "1.2.3.4", p.Server, tc.in)
		assert.Equal(t, 1080, p.Port, tc.in)
		assert.Equal(t, "u", p.Username, tc.in)
		assert.Equal(t, "p", p.Password, tc.in)
		assert.Equal(t, tc.remark, p.Remark, tc.in)
		assert.Equal(t, model.SocksDefaultGroup, p.Group, tc.in)
	}
}

func TestParse_NoAuth(t *testing.T) {
	p, err := Parse("socks5://1.2.3.4:1080")
	require.NoError(t, err)
	assert.Empty(t, p.Username)
	assert.Equal(t, "1.2.3.4:1080", p.Remark)
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"socks5://1.2.3.4", "socks5://u:p@1.2.3.4:0", "tg://socks?port=1080", "tg://socks?server=h&port=x"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
