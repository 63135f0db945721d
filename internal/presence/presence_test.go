package presence

import (
	"context"
	"testing"
)

// Redis 未啟用時所有方法必須降級為保守行為，不可報錯.
func TestTrackerDegradedWithoutRedis(t *testing.T) {
	tracker := NewTracker(nil)
	ctx := context.Background()

	if err := tracker.Heartbeat(ctx, "user_a"); err != nil {
		t.Errorf("無 Redis 時 Heartbeat 不應報錯: %v", err)
	}

	if tracker.IsUserOnline(ctx, "user_a") {
		t.Error("無 Redis 時應視為離線")
	}

	// 從不抑制：寧可多發通知
	if tracker.ShouldSuppressNotification(ctx, "user_a", "user_b:ad_1") {
		t.Error("無 Redis 時不應抑制通知")
	}
	if tracker.ShouldSuppressNotification(ctx, "user_a", "user_b:ad_1") {
		t.Error("重複呼叫仍不應抑制")
	}

	if err := tracker.SetActiveConversation(ctx, "user_a", "user_b:ad_1"); err != nil {
		t.Errorf("無 Redis 時 SetActiveConversation 不應報錯: %v", err)
	}

	tracker.ClearSuppression(ctx, "user_a", "user_b:ad_1")
}

func TestPresenceKeys(t *testing.T) {
	if got := presenceKey("user_a"); got != "presence:online:user_a" {
		t.Errorf("presenceKey = %q", got)
	}
	if got := suppressionKey("user_a", "user_b:ad_1"); got != "notify:suppress:user_a:user_b:ad_1" {
		t.Errorf("suppressionKey = %q", got)
	}
	if got := activeKey("user_a"); got != "presence:active:user_a" {
		t.Errorf("activeKey = %q", got)
	}
}
