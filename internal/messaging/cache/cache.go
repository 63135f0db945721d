package cache

import (
	"sync"
	"time"
)

// TTLCache 以鍵為單位的進程內快取，採讀取時惰性過期策略，
// 不啟動背景清理 goroutine.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

type entry struct {
	value     int
	expiresAt time.Time
}

// NewTTLCache 創建新的 TTL 快取.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get 讀取快取值；不存在或已過期時回傳 false，過期項目順帶移除.
func (c *TTLCache) Get(key string) (int, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return 0, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// 重新檢查，期間可能已被覆寫.
		if cur, still := c.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return 0, false
	}

	return e.value, true
}

// Put 寫入快取值並重設存活時間.
func (c *TTLCache) Put(key string, value int) {
	c.mu.Lock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate 移除指定鍵.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len 回傳目前持有的項目數（含尚未惰性清除的過期項目）.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
