package cache

import (
	"testing"
	"time"
)

func TestTTLCache_PutGet(t *testing.T) {
	c := NewTTLCache(time.Minute)

	if _, ok := c.Get("user_a"); ok {
		t.Error("空快取不應命中")
	}

	c.Put("user_a", 5)
	value, ok := c.Get("user_a")
	if !ok || value != 5 {
		t.Errorf("Get = (%d, %v)，期望 (5, true)", value, ok)
	}

	// 覆寫
	c.Put("user_a", 7)
	value, _ = c.Get("user_a")
	if value != 7 {
		t.Errorf("覆寫後應讀到 7，得到 %d", value)
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := NewTTLCache(20 * time.Millisecond)

	c.Put("user_a", 3)
	if _, ok := c.Get("user_a"); !ok {
		t.Fatal("TTL 內應命中")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("user_a"); ok {
		t.Error("過期後不應命中")
	}
	// 惰性過期應順帶移除項目
	if c.Len() != 0 {
		t.Errorf("過期讀取後項目應被移除，Len = %d", c.Len())
	}
}

func TestTTLCache_Invalidate(t *testing.T) {
	c := NewTTLCache(time.Minute)

	c.Put("user_a", 2)
	c.Put("user_b", 4)

	c.Invalidate("user_a")

	if _, ok := c.Get("user_a"); ok {
		t.Error("失效後不應命中")
	}
	if value, ok := c.Get("user_b"); !ok || value != 4 {
		t.Error("其他鍵不應受影響")
	}

	// 對不存在的鍵失效為 no-op
	c.Invalidate("user_x")
}
