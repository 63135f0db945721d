package messaging

import (
	"context"
	"errors"
	"testing"
)

// fakeUnreadSource 可控的未讀計數來源.
type fakeUnreadSource struct {
	count int
	err   error
	calls int
}

func (f *fakeUnreadSource) CountUnreadBySender(_ context.Context, _ string) (int, error) {
	f.calls++
	return f.count, f.err
}

func TestUnreadCounter_FreshThenCached(t *testing.T) {
	source := &fakeUnreadSource{count: 3}
	counter := NewUnreadCounter(source)

	count, stale := counter.Get(context.Background(), "user_a")
	if count != 3 || stale {
		t.Errorf("首次讀取應為 (3, false)，得到 (%d, %v)", count, stale)
	}

	// TTL 內的第二次讀取走快取
	count, stale = counter.Get(context.Background(), "user_a")
	if count != 3 || !stale {
		t.Errorf("快取命中應為 (3, true)，得到 (%d, %v)", count, stale)
	}
	if source.calls != 1 {
		t.Errorf("快取命中不應重算，calls = %d", source.calls)
	}
}

func TestUnreadCounter_FailOpen(t *testing.T) {
	source := &fakeUnreadSource{err: errors.New("connection reset")}
	counter := NewUnreadCounter(source)

	count, stale := counter.Get(context.Background(), "user_a")
	if count != 0 || !stale {
		t.Errorf("計算失敗應回退為 (0, true)，得到 (%d, %v)", count, stale)
	}

	// 失敗結果不落入快取，下次重試
	source.err = nil
	source.count = 2
	count, stale = counter.Get(context.Background(), "user_a")
	if count != 2 || stale {
		t.Errorf("故障恢復後應重算為 (2, false)，得到 (%d, %v)", count, stale)
	}
}

func TestUnreadCounter_Invalidate(t *testing.T) {
	source := &fakeUnreadSource{count: 1}
	counter := NewUnreadCounter(source)

	counter.Get(context.Background(), "user_a")

	// 新訊息寫入後失效，下一次讀取重算
	source.count = 2
	counter.Invalidate("user_a")

	count, stale := counter.Get(context.Background(), "user_a")
	if count != 2 || stale {
		t.Errorf("失效後應重算為 (2, false)，得到 (%d, %v)", count, stale)
	}
	if source.calls != 2 {
		t.Errorf("期望重算 2 次，calls = %d", source.calls)
	}
}
