package ruleset

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

// Cache holds exactly one loaded ruleset, keyed by the configuration that
// produced it. Lookups compare the full configuration by value.
type Cache struct {
	loader *Loader

	mu      sync.Mutex
	filled  bool
	key     []model.RulesetConfig
	content []model.RulesetContent

	fresh atomic.Int64
}

func NewCache(loader *Loader) *Cache {
	return &Cache{loader: loader}
}

// Resolve returns a private copy of the content for cfgs. The slot is used
// only when cfgs equals its key; otherwise cfgs is loaded and replaces it.
// The lock is not held while loading.
func (c *Cache) Resolve(ctx context.Context, cfgs []model.RulesetConfig) []model.RulesetContent {
	if len(cfgs) == 0 {
		return nil
	}
	if hit, ok := c.lookup(cfgs); ok {
		return hit
	}
	return c.Prime(ctx, cfgs)
}

func (c *Cache) lookup(cfgs []model.RulesetConfig) ([]model.RulesetContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.filled || !model.RulesetConfigsEqual(c.key, cfgs) {
		return nil, false
	}
	return slices.Clone(c.content), true
}

// Prime loads cfgs unconditionally and stores the result in the slot.
func (c *Cache) Prime(ctx context.Context, cfgs []model.RulesetConfig) []model.RulesetContent {
	content := c.loader.Load(ctx, cfgs)
	c.fresh.Add(1)

	c.mu.Lock()
	c.filled = true
	c.key = slices.Clone(cfgs)
	c.content = content
	c.mu.Unlock()

	return slices.Clone(content)
}

// FreshParses counts loads performed by Resolve and Prime.
func (c *Cache) FreshParses() int64 { return c.fresh.Load() }
