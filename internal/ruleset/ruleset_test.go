package ruleset

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []string
	texts map[string]string
}

func (f *fakeSource) Load(_ context.Context, kind fetch.Kind, source, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source)
	if kind != fetch.KindRuleset {
		return "", errors.New("wrong kind")
	}
	text, ok := f.texts[source]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func TestLoader_Kinds(t *testing.T) {
	src := &fakeSource{texts: map[string]string{
		"https://example.com/a.list": "DOMAIN-SUFFIX,a.com\n",
		"rules/b.yaml":               "payload:\n  - '+.b.com'\n",
		"rules/extra.list":           "DOMAIN,c.com\n",
	}}
	l := &Loader{Source: src}
	got := l.Load(context.Background(), []model.RulesetConfig{
		{Group: "A", URL: "https://example.com/a.list", Interval: 86400},
		{Group: "B", URL: "clash-domain:rules/b.yaml"},
		{Group: "C", URL: "!!import:rules/extra.list"},
		{Group: "D", URL: "[]GEOIP,CN"},
		{Group: "E", URL: "https://example.com/missing.list"},
	})
	require.Len(t, got, 5)

	assert.Equal(t, model.RulesetRemote, got[0].Kind)
	assert.Equal(t, model.RulesetSurge, got[0].Type)
	assert.Equal(t, 86400, got[0].Interval)
	assert.True(t, got[0].IsHTTP())
	assert.Equal(t, "DOMAIN-SUFFIX,a.com\n", got[0].Content)

	assert.Equal(t, model.RulesetClashDomain, got[1].Type)
	assert.Equal(t, "rules/b.yaml", got[1].Path)

	assert.Equal(t, model.RulesetImport, got[2].Kind)
	assert.Equal(t, "DOMAIN,c.com\n", got[2].Content)

	assert.Equal(t, model.RulesetInline, got[3].Kind)
	assert.Equal(t, "GEOIP,CN", got[3].Content)

	assert.Equal(t, model.RulesetRemote, got[4].Kind)
	assert.Empty(t, got[4].Content)

	assert.Len(t, src.calls, 4, "inline entries are never fetched")
}

func TestLoader_MaxRulesets(t *testing.T) {
	l := &Loader{MaxRulesets: 2}
	got := l.Load(context.Background(), []model.RulesetConfig{
		{Group: "A", URL: "[]GEOIP,CN"},
		{Group: "B", URL: "[]GEOIP,US"},
		{Group: "C", URL: "[]FINAL"},
	})
	assert.Len(t, got, 2)
}

func TestSplitType(t *testing.T) {
	typ, u := SplitType("quanx:https://example.com/q.list")
	assert.Equal(t, model.RulesetQuanX, typ)
	assert.Equal(t, "https://example.com/q.list", u)

	typ, u = SplitType("https://example.com/s.list")
	assert.Equal(t, model.RulesetSurge, typ)
	assert.Equal(t, "https://example.com/s.list", u)
}

func TestCache_EqualConfigsReuseSlot(t *testing.T) {
	src := &fakeSource{texts: map[string]string{"https://example.com/a.list": "DOMAIN,a.com\n"}}
	c := NewCache(&Loader{Source: src})
	cfgs := []model.RulesetConfig{{Group: "A", URL: "https://example.com/a.list"}, {Group: "F", URL: "[]FINAL"}}

	first := c.Resolve(context.Background(), cfgs)
	second := c.Resolve(context.Background(), append([]model.RulesetConfig(nil), cfgs...))
	assert.Equal(t, int64(1), c.FreshParses())
	assert.Equal(t, first, second)
	assert.Len(t, src.calls, 1)
}

func TestCache_DifferentConfigNeverSeesOtherContent(t *testing.T) {
	src := &fakeSource{texts: map[string]string{
		"https://example.com/a.list": "DOMAIN,a.com\n",
		"https://example.com/b.list": "DOMAIN,b.com\n",
	}}
	c := NewCache(&Loader{Source: src})
	a := []model.RulesetConfig{{Group: "G", URL: "https://example.com/a.list"}}
	b := []model.RulesetConfig{{Group: "G", URL: "https://example.com/b.list"}}

	gotA := c.Resolve(context.Background(), a)
	gotB := c.Resolve(context.Background(), b)
	require.Len(t, gotA, 1)
	require.Len(t, gotB, 1)
	assert.Equal(t, "DOMAIN,a.com\n", gotA[0].Content)
	assert.Equal(t, "DOMAIN,b.com\n", gotB[0].Content)
	assert.Equal(t, int64(2), c.FreshParses())

	// interval participates in equality
	a2 := []model.RulesetConfig{{Group: "G", URL: "https://example.com/a.list", Interval: 600}}
	c.Resolve(context.Background(), a2)
	assert.Equal(t, int64(3), c.FreshParses())
}

func TestCache_CopiesAreIndependent(t *testing.T) {
	c := NewCache(&Loader{})
	cfgs := []model.RulesetConfig{{Group: "F", URL: "[]FINAL"}}
	first := c.Resolve(context.Background(), cfgs)
	first[0].Content = "mutated"

	second := c.Resolve(context.Background(), cfgs)
	assert.Equal(t, "FINAL", second[0].Content)
}

func TestCache_PrimeSeedsSlot(t *testing.T) {
	c := NewCache(&Loader{})
	cfgs := []model.RulesetConfig{{Group: "F", URL: "[]FINAL"}}
	c.Prime(context.Background(), cfgs)
	c.Resolve(context.Background(), cfgs)
	assert.Equal(t, int64(1), c.FreshParses())
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(&Loader{})
	a := []model.RulesetConfig{{Group: "A", URL: "[]GEOIP,CN"}}
	b := []model.RulesetConfig{{Group: "B", URL: "[]GEOIP,US"}}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		cfgs, want := a, "GEOIP,CN"
		if i%2 == 1 {
			cfgs, want = b, "GEOIP,US"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := c.Resolve(context.Background(), cfgs)
			if assert.Len(t, got, 1) {
				assert.Equal(t, want, got[0].Content)
			}
		}()
	}
	wg.Wait()
}

func TestCache_EmptyConfig(t *testing.T) {
	c := NewCache(&Loader{})
	assert.Nil(t, c.Resolve(context.Background(), nil))
	assert.Equal(t, int64(0), c.FreshParses())
}
