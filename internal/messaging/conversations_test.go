package messaging

import (
	"testing"
	"time"

	storage "marketplace-messaging/internal/storage/database/messaging"
)

// newTestMessage 構造聚合測試用的訊息.
func newTestMessage(sender, recipient, listingID string, createdAt time.Time, read bool) *storage.Message {
	return &storage.Message{
		SenderID:         sender,
		RecipientID:      recipient,
		RelatedListingID: listingID,
		Read:             read,
		CreatedAt:        createdAt,
	}
}

func TestConversationKey(t *testing.T) {
	testCases := []struct {
		name      string
		otherID   string
		listingID string
		want      string
	}{
		{"With listing", "user_b", "ad_1", "user_b:ad_1"},
		{"Without listing", "user_b", "", "user_b:no-ad"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConversationKey(tc.otherID, tc.listingID); got != tc.want {
				t.Errorf("ConversationKey(%q, %q) = %q, want %q", tc.otherID, tc.listingID, got, tc.want)
			}
		})
	}
}

func TestBuildConversations_Grouping(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	msgs := []*storage.Message{
		// 與 user_b 就 ad_1 的往來
		newTestMessage("user_b", "user_a", "ad_1", base, false),
		newTestMessage("user_a", "user_b", "ad_1", base.Add(time.Minute), false),
		// 與 user_b 無刊登的往來，屬於另一個對話
		newTestMessage("user_b", "user_a", "", base.Add(2*time.Minute), false),
		// 與 user_c 的往來
		newTestMessage("user_c", "user_a", "ad_2", base.Add(3*time.Minute), true),
	}

	conversations := BuildConversations("user_a", msgs)

	if len(conversations) != 3 {
		t.Fatalf("期望 3 個對話，得到 %d", len(conversations))
	}

	// 按最新訊息時間倒序
	if conversations[0].Key != "user_c:ad_2" {
		t.Errorf("第一個對話應為 user_c:ad_2，得到 %s", conversations[0].Key)
	}
	if conversations[1].Key != "user_b:no-ad" {
		t.Errorf("第二個對話應為 user_b:no-ad，得到 %s", conversations[1].Key)
	}
	if conversations[2].Key != "user_b:ad_1" {
		t.Errorf("第三個對話應為 user_b:ad_1，得到 %s", conversations[2].Key)
	}
}

func TestBuildConversations_UnreadCount(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	msgs := []*storage.Message{
		newTestMessage("user_b", "user_a", "ad_1", base, false),
		newTestMessage("user_b", "user_a", "ad_1", base.Add(time.Minute), false),
		newTestMessage("user_b", "user_a", "ad_1", base.Add(2*time.Minute), true),
		// 自己寄出的訊息不算未讀
		newTestMessage("user_a", "user_b", "ad_1", base.Add(3*time.Minute), false),
	}

	conversations := BuildConversations("user_a", msgs)

	if len(conversations) != 1 {
		t.Fatalf("期望 1 個對話，得到 %d", len(conversations))
	}
	if conversations[0].UnreadCount != 2 {
		t.Errorf("未讀計數應為 2，得到 %d", conversations[0].UnreadCount)
	}
}

func TestBuildConversations_OutOfOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 亂序輸入：最新的訊息排在最前面
	msgs := []*storage.Message{
		newTestMessage("user_b", "user_a", "ad_1", base.Add(5*time.Minute), false),
		newTestMessage("user_a", "user_b", "", base, false),
		newTestMessage("user_b", "user_a", "ad_1", base.Add(2*time.Minute), false),
	}

	conversations := BuildConversations("user_a", msgs)

	if len(conversations) != 2 {
		t.Fatalf("期望 2 個對話，得到 %d", len(conversations))
	}

	conv := conversations[0]
	if conv.Key != "user_b:ad_1" {
		t.Fatalf("最新對話應為 user_b:ad_1，得到 %s", conv.Key)
	}
	if !conv.LastMessage.CreatedAt.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("最新訊息時間錯誤: %v", conv.LastMessage.CreatedAt)
	}
	if conv.ListingID != "ad_1" {
		t.Errorf("刊登引用應為 ad_1，得到 %s", conv.ListingID)
	}
}

func TestBuildConversations_Deterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 兩個對話的最新訊息時間完全相同，輸出順序必須穩定
	msgs := []*storage.Message{
		newTestMessage("user_c", "user_a", "", base, false),
		newTestMessage("user_b", "user_a", "", base, false),
	}

	first := BuildConversations("user_a", msgs)
	for i := 0; i < 10; i++ {
		again := BuildConversations("user_a", msgs)
		if len(again) != len(first) {
			t.Fatalf("對話數量不穩定: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j].Key != first[j].Key {
				t.Fatalf("第 %d 次運算順序不穩定: %s vs %s", i, again[j].Key, first[j].Key)
			}
		}
	}

	// 時間相同時按對話鍵排序
	if first[0].Key != "user_b:no-ad" || first[1].Key != "user_c:no-ad" {
		t.Errorf("時間持平時排序錯誤: %s, %s", first[0].Key, first[1].Key)
	}
}

func TestBuildConversations_SkipUnresolvable(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	msgs := []*storage.Message{
		// 雙方均非請求者
		newTestMessage("user_x", "user_y", "", base, false),
		// 對方即請求者本人
		newTestMessage("user_a", "user_a", "", base, false),
		// 正常訊息
		newTestMessage("user_b", "user_a", "", base, false),
	}

	conversations := BuildConversations("user_a", msgs)

	if len(conversations) != 1 {
		t.Fatalf("無法解析對方的訊息應被跳過，期望 1 個對話，得到 %d", len(conversations))
	}
	if conversations[0].OtherPartyID != "user_b" {
		t.Errorf("對方應為 user_b，得到 %s", conversations[0].OtherPartyID)
	}
}

func TestBuildConversations_ListingRefLatestWins(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 同一對話鍵下較新的非空刊登引用勝出，且與輸入順序無關
	msgs := []*storage.Message{
		newTestMessage("user_b", "user_a", "ad_1", base.Add(time.Minute), false),
		newTestMessage("user_a", "user_b", "ad_1", base, false),
	}

	forward := BuildConversations("user_a", msgs)
	reversed := BuildConversations("user_a", []*storage.Message{msgs[1], msgs[0]})

	if forward[0].ListingID != "ad_1" || reversed[0].ListingID != "ad_1" {
		t.Errorf("刊登引用受輸入順序影響: %s vs %s", forward[0].ListingID, reversed[0].ListingID)
	}
}

func TestBuildConversations_Empty(t *testing.T) {
	conversations := BuildConversations("user_a", nil)
	if len(conversations) != 0 {
		t.Errorf("空輸入應回傳空列表，得到 %d 個對話", len(conversations))
	}
}
