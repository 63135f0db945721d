package messaging

import (
	"testing"
	"time"
)

func TestMessageIsParty(t *testing.T) {
	msg := &Message{SenderID: "user_a", RecipientID: "user_b"}

	testCases := []struct {
		name   string
		userID string
		want   bool
	}{
		{"Sender", "user_a", true},
		{"Recipient", "user_b", true},
		{"Outsider", "user_c", false},
		{"Empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := msg.IsParty(tc.userID); got != tc.want {
				t.Errorf("IsParty(%q) = %v, want %v", tc.userID, got, tc.want)
			}
		})
	}
}

func TestMessageCounterpart(t *testing.T) {
	msg := &Message{SenderID: "user_a", RecipientID: "user_b"}

	if got := msg.Counterpart("user_a"); got != "user_b" {
		t.Errorf("寄件人視角的對方應為 user_b，得到 %q", got)
	}
	if got := msg.Counterpart("user_b"); got != "user_a" {
		t.Errorf("收件人視角的對方應為 user_a，得到 %q", got)
	}
	if got := msg.Counterpart("user_c"); got != "" {
		t.Errorf("非當事人應得到空字串，得到 %q", got)
	}
}

func TestMessageVisibility(t *testing.T) {
	now := time.Now().UTC()
	msg := &Message{
		SenderID:    "user_a",
		RecipientID: "user_b",
		DeletedBy:   []DeletionMark{{UserID: "user_a", DeletedAt: now}},
	}

	// 軟刪除只影響刪除者的視圖
	if msg.VisibleTo("user_a") {
		t.Error("刪除者不應再看到訊息")
	}
	if !msg.VisibleTo("user_b") {
		t.Error("另一方的視圖不應受影響")
	}
	if msg.VisibleTo("user_c") {
		t.Error("非當事人永遠不可見")
	}

	if !msg.DeletedByUser("user_a") {
		t.Error("DeletedByUser 應回報刪除者")
	}
	if msg.DeletedByUser("user_b") {
		t.Error("DeletedByUser 不應誤報另一方")
	}

	mark, ok := msg.DeletionMarkFor("user_a")
	if !ok || !mark.DeletedAt.Equal(now) {
		t.Errorf("DeletionMarkFor 應回傳墓碑: %+v, %v", mark, ok)
	}
	if _, ok := msg.DeletionMarkFor("user_b"); ok {
		t.Error("無墓碑時 DeletionMarkFor 應回傳 false")
	}
}

func TestMessageArchivedByUser(t *testing.T) {
	msg := &Message{
		SenderID:    "user_a",
		RecipientID: "user_b",
		ArchivedBy:  []string{"user_b"},
	}

	if msg.ArchivedByUser("user_a") {
		t.Error("封存是每人獨立的狀態")
	}
	if !msg.ArchivedByUser("user_b") {
		t.Error("封存者應回報為已封存")
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage()

	if msg.ID == "" {
		t.Error("新訊息應有 ID")
	}
	if msg.Attachments == nil {
		t.Error("附件列表應初始化為空切片")
	}
	if msg.CreatedAt.IsZero() || !msg.CreatedAt.Equal(msg.UpdatedAt) {
		t.Error("時間戳應初始化且一致")
	}
}
