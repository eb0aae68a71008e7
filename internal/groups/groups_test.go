package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func testNodes() []model.Proxy {
	hk := model.NewShadowsocks("AirA", "HK 01", "hk.example.com", 8388, "p", "aes-128-gcm", "", nil)
	hk.GroupID = 0
	jp := model.NewVMess("AirA", "JP 01", "jp.example.com", 443, "id", 0, "", "ws", "", "", "/", true, "")
	jp.GroupID = 0
	us := model.NewTrojan("AirB", "US 01", "us.example.com", 443, "pw", "", "", "", "")
	us.GroupID = 1
	ins := model.NewHTTP("Extra", "HK extra", "10.0.0.1", 8080, "", "", false)
	ins.GroupID = -1
	return []model.Proxy{hk, jp, us, ins}
}

func group(entries ...string) model.ProxyGroupConfig {
	return model.ProxyGroupConfig{Name: "G", Type: model.GroupSelect, Proxies: entries}
}

func TestResolve_LiteralsKeepDeclaredPosition(t *testing.T) {
	got := Resolve(group("[]Auto", "HK", "[]DIRECT"), testNodes())
	assert.Equal(t, []string{"Auto", "HK 01", "HK extra", "DIRECT"}, got)
}

func TestResolve_SelectorsEmitInDiscoveryOrder(t *testing.T) {
	nodes := []model.Proxy{{Remark: "a"}, {Remark: "b"}}
	assert.Equal(t, []string{"a", "b"}, Resolve(group("^b$", "^a$"), nodes))

	got := Resolve(group("[]Auto", "US", "[]Fallback", "HK"), testNodes())
	assert.Equal(t, []string{"Auto", "HK 01", "US 01", "HK extra", "Fallback"}, got)
}

func TestResolve_AllSelectsDiscoveryOrder(t *testing.T) {
	want := []string{"HK 01", "JP 01", "US 01", "HK extra"}
	assert.Equal(t, want, Resolve(group(".*"), testNodes()))
	assert.Equal(t, want, Resolve(group("@all"), testNodes()))
}

func TestResolve_Dedup(t *testing.T) {
	got := Resolve(group("HK", "01", ".*", "[]JP 01"), testNodes())
	assert.Equal(t, []string{"HK 01", "JP 01", "US 01", "HK extra"}, got)
}

func TestResolve_Directives(t *testing.T) {
	nodes := testNodes()
	assert.Equal(t, []string{"US 01"}, Resolve(group("!!GROUP=AirB"), nodes))
	assert.Equal(t, []string{"HK 01", "JP 01"}, Resolve(group("!!GROUPID=0"), nodes))
	assert.Equal(t, []string{"HK 01", "JP 01", "US 01"}, Resolve(group("!!GROUPID=0-1"), nodes))
	assert.Equal(t, []string{"HK extra"}, Resolve(group("!!GROUPID=-1"), nodes))
	assert.Equal(t, []string{"JP 01", "US 01"}, Resolve(group("!!TYPE=VMess|Trojan"), nodes))
	assert.Equal(t, []string{"HK 01"}, Resolve(group("!!PORT=8388"), nodes))
	assert.Equal(t, []string{"US 01"}, Resolve(group("!!SERVER=^us\\."), nodes))
	assert.Equal(t, []string{"JP 01"}, Resolve(group("!!GROUP=AirA!!JP"), nodes))
}

func TestResolve_InvalidRegexMatchesLiterally(t *testing.T) {
	nodes := []model.Proxy{
		model.NewSOCKS5("", "a(b", "1.1.1.1", 1080, "", ""),
		model.NewSOCKS5("", "ab", "1.1.1.2", 1080, "", ""),
	}
	assert.Equal(t, []string{"a(b"}, Resolve(group("a(b"), nodes))
}

func TestResolve_EmptyBecomesDirect(t *testing.T) {
	assert.Equal(t, []string{"DIRECT"}, Resolve(group("nothing-matches"), testNodes()))
	assert.Equal(t, []string{"DIRECT"}, Resolve(group(), nil))
}
