package cache

import (
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

// Observer is notified of accessor cache lookups.
type Observer interface {
	Hit(table Table)
	Miss(table Table)
}

// Observed wraps c so every lookup is reported to o.
func Observed(c AccessorCache, o Observer) AccessorCache {
	if o == nil {
		return c
	}
	return &observedCache{AccessorCache: c, obs: o}
}

type observedCache struct {
	AccessorCache
	obs Observer
}

func (c *observedCache) Get(table Table, owner reflect.Type, sig Signature) (types.Member, bool) {
	m, ok := c.AccessorCache.Get(table, owner, sig)
	c.record(table, ok)
	return m, ok
}

func (c *observedCache) GetMethod(owner reflect.Type, sig Signature) (*types.Method, bool) {
	m, ok := c.AccessorCache.GetMethod(owner, sig)
	c.record(TableMethod, ok)
	return m, ok
}

func (c *observedCache) record(table Table, hit bool) {
	if hit {
		c.obs.Hit(table)
	} else {
		c.obs.Miss(table)
	}
}
