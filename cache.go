package formula

import (
	"container/list"
	"sync"
)

const DefaultCacheSize = 1024

// expressionCache is an LRU of compiled expressions keyed by worksheet and
// formula text. safe for concurrent use.
type expressionCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key  string
	expr *CompiledExpression
}

func newExpressionCache(capacity int) *expressionCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &expressionCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func cacheKey(worksheet, formula string) string {
	return FoldCase(worksheet) + "\x00" + formula
}

func (c *expressionCache) get(key string) (*CompiledExpression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, exists := c.items[key]
	if !exists {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).expr, true
}

func (c *expressionCache) set(key string, expr *CompiledExpression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, exists := c.items[key]; exists {
		el.Value.(*cacheEntry).expr = expr
		c.ll.MoveToFront(el)
		return
	}

	// evict the least recently used entry
	if c.ll.Len() >= c.capacity {
		if back := c.ll.Back(); back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, expr: expr})
}

func (c *expressionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *expressionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
