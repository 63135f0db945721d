package presence

import (
	"context"
	"fmt"
	"time"

	"marketplace-messaging/internal/constants"
	"marketplace-messaging/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// Tracker 基於 Redis 的在線狀態與通知抑制.
// Redis 未啟用時所有方法降級為保守行為（視為離線、從不抑制）.
type Tracker struct {
	client            *redis.Client
	suppressionWindow time.Duration
}

// NewTracker 創建在線狀態追蹤器，client 可為 nil.
func NewTracker(client *redis.Client) *Tracker {
	window := time.Duration(constants.DefaultSuppressionWindowSeconds) * time.Second
	if cfg := config.Get(); cfg != nil && cfg.Notifications.SuppressionWindowSeconds > 0 {
		window = time.Duration(cfg.Notifications.SuppressionWindowSeconds) * time.Second
	}

	return &Tracker{
		client:            client,
		suppressionWindow: window,
	}
}

// presenceKey 用戶在線標記鍵.
func presenceKey(userID string) string {
	return "presence:online:" + userID
}

// suppressionKey 對話通知抑制鍵.
func suppressionKey(userID, conversationKey string) string {
	return fmt.Sprintf("notify:suppress:%s:%s", userID, conversationKey)
}

// activeKey 用戶當前開啟對話的標記鍵.
func activeKey(userID string) string {
	return "presence:active:" + userID
}

// Heartbeat 標記用戶在線（60 秒 TTL，客戶端週期性刷新）.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) error {
	if t.client == nil {
		return nil
	}
	return t.client.Set(ctx, presenceKey(userID), "1", 60*time.Second).Err()
}

// IsUserOnline 檢查用戶是否在線.
func (t *Tracker) IsUserOnline(ctx context.Context, userID string) bool {
	if t.client == nil {
		return false
	}

	n, err := t.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// SetActiveConversation 標記用戶當前開啟的對話（60 秒 TTL）.
// 對話開啟期間該對話的通知直接抑制.
func (t *Tracker) SetActiveConversation(ctx context.Context, userID, conversationKey string) error {
	if t.client == nil {
		return nil
	}
	return t.client.Set(ctx, activeKey(userID), conversationKey, 60*time.Second).Err()
}

// ShouldSuppressNotification 同一對話在抑制窗口內只發送一次通知.
// 收件人正開著該對話時直接抑制；否則首次調用設置窗口標記並返回 false，
// 窗口內的後續調用返回 true.
func (t *Tracker) ShouldSuppressNotification(ctx context.Context, userID, conversationKey string) bool {
	if t.client == nil {
		return false
	}

	if active, err := t.client.Get(ctx, activeKey(userID)).Result(); err == nil && active == conversationKey {
		return true
	}

	ok, err := t.client.SetNX(ctx, suppressionKey(userID, conversationKey), "1", t.suppressionWindow).Result()
	if err != nil {
		// Redis 故障時寧可多發通知
		return false
	}
	return !ok
}

// ClearSuppression 清除對話的抑制標記（用戶讀取對話後重新開放通知）.
func (t *Tracker) ClearSuppression(ctx context.Context, userID, conversationKey string) {
	if t.client == nil {
		return
	}
	t.client.Del(ctx, suppressionKey(userID, conversationKey))
}
