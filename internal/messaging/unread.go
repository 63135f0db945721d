package messaging

import (
	"context"
	"time"

	"marketplace-messaging/internal/messaging/cache"
	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/logger"
)

// 未讀計數快取的預設存活時間.
const defaultUnreadCacheTTL = 30 * time.Second

// UnreadSource 未讀計數的數據來源.
type UnreadSource interface {
	CountUnreadBySender(ctx context.Context, userID string) (int, error)
}

// UnreadCounter 未讀對話計數器，以進程內 TTL 快取避免每次輪詢都重算.
type UnreadCounter struct {
	source UnreadSource
	cache  *cache.TTLCache
}

// NewUnreadCounter 創建新的未讀計數器.
func NewUnreadCounter(source UnreadSource) *UnreadCounter {
	ttl := defaultUnreadCacheTTL
	if cfg := config.Get(); cfg != nil && cfg.Cache.UnreadTTLSeconds > 0 {
		ttl = time.Duration(cfg.Cache.UnreadTTLSeconds) * time.Second
	}
	return &UnreadCounter{
		source: source,
		cache:  cache.NewTTLCache(ttl),
	}
}

// Get 回傳用戶含未讀訊息的不重複對話數.
// stale 為 true 表示數值來自快取或故障回退，TTL 窗口內的寫入可能尚未反映.
// 計算失敗時回傳 0 而非錯誤：漏掉角標的嚴重性遠低於擋住整個介面渲染.
func (c *UnreadCounter) Get(ctx context.Context, userID string) (count int, stale bool) {
	if cached, ok := c.cache.Get(userID); ok {
		return cached, true
	}

	count, err := c.source.CountUnreadBySender(ctx, userID)
	if err != nil {
		logger.Error(ctx, "未讀計數計算失敗，回退為 0",
			logger.WithUserID(userID),
			logger.WithDetails(map[string]interface{}{"error": err.Error()}))
		return 0, true
	}

	c.cache.Put(userID, count)
	return count, false
}

// Invalidate 移除用戶的快取項目；訊息寫入後盡力而為地呼叫.
func (c *UnreadCounter) Invalidate(userID string) {
	c.cache.Invalidate(userID)
}
