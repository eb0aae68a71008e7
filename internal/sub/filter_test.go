package sub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

func remarks(nodes []model.Proxy) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Remark)
	}
	return out
}

func nodes(names ...string) []model.Proxy {
	out := make([]model.Proxy, 0, len(names))
	for i, n := range names {
		out = append(out, model.NewSOCKS5("G", n, "h", 1000+i, "", ""))
	}
	return out
}

func TestFilter_IncludeExclude(t *testing.T) {
	in := nodes("HK 01", "HK 02 expired", "JP 01", "US 01")
	got := Filter(in, FilterOptions{Include: []string{"^HK", "^JP"}, Exclude: []string{"expired"}})
	assert.Equal(t, []string{"HK 01", "JP 01"}, remarks(got))
	assert.Len(t, in, 4)
}

func TestFilter_InvalidPatternIgnored(t *testing.T) {
	got := Filter(nodes("A", "B"), FilterOptions{Exclude: []string{"(", "B"}})
	assert.Equal(t, []string{"A"}, remarks(got))
}

func TestFilter_KeepHook(t *testing.T) {
	got := Filter(nodes("A", "B", "C"), FilterOptions{Keep: func(p model.Proxy) bool { return p.Remark != "B" }})
	assert.Equal(t, []string{"A", "C"}, remarks(got))
}

func TestFilter_NoOptionsReturnsInput(t *testing.T) {
	in := nodes("A")
	assert.Equal(t, in, Filter(in, FilterOptions{}))
}
