package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	testSenderID    = "user_seller"
	testRecipientID = "user_buyer"
)

// newTestStore 連接本地 MongoDB；連不上時跳過測試.
func newTestStore(t *testing.T) *MessageStore {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI("mongodb://localhost:27017").
		SetServerSelectionTimeout(2 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		t.Skipf("跳過測試：無法連接到 MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("跳過測試：無法連接到 MongoDB: %v", err)
	}

	store := NewMessageStore(client.Database("marketplace_messaging_test"))
	t.Cleanup(func() {
		_ = store.collection.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return store
}

func createTestMessage(t *testing.T, store *MessageStore) *Message {
	t.Helper()

	msg := NewMessage()
	msg.SenderID = testSenderID
	msg.RecipientID = testRecipientID
	msg.Subject = "詢問車況"
	msg.Content = "這台車還在嗎？"
	if err := store.Create(context.Background(), &msg); err != nil {
		t.Fatalf("創建訊息失敗: %v", err)
	}
	return &msg
}

// TestToggleStarTwice 連按兩次星號應回到原始狀態
func TestToggleStarTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	msg := createTestMessage(t, store)

	starred, err := store.ToggleStar(ctx, msg.ID, testSenderID)
	if err != nil {
		t.Fatalf("第一次切換失敗: %v", err)
	}
	if !starred {
		t.Error("第一次切換後應為已加星")
	}

	starred, err = store.ToggleStar(ctx, msg.ID, testSenderID)
	if err != nil {
		t.Fatalf("第二次切換失敗: %v", err)
	}
	if starred {
		t.Error("第二次切換後應回到未加星")
	}

	loaded, err := store.GetByID(ctx, msg.ID, testSenderID)
	if err != nil {
		t.Fatalf("讀取訊息失敗: %v", err)
	}
	if loaded.Starred {
		t.Error("兩次切換後存儲的星號狀態應與初始相同")
	}
}

// TestDoubleSoftDeleteEscalates 同一用戶第二次刪除應升級為永久刪除
func TestDoubleSoftDeleteEscalates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	msg := createTestMessage(t, store)

	hardDeleted, err := store.SoftDelete(ctx, msg.ID, testRecipientID)
	if err != nil {
		t.Fatalf("第一次刪除失敗: %v", err)
	}
	if hardDeleted {
		t.Error("第一次刪除應為軟刪除")
	}

	// 另一方仍看得到
	if _, err := store.GetByID(ctx, msg.ID, testSenderID); err != nil {
		t.Errorf("軟刪除後發信人應仍可讀取: %v", err)
	}

	hardDeleted, err = store.SoftDelete(ctx, msg.ID, testRecipientID)
	if err != nil {
		t.Fatalf("第二次刪除失敗: %v", err)
	}
	if !hardDeleted {
		t.Error("第二次刪除應升級為永久刪除")
	}

	if _, err := store.GetByID(ctx, msg.ID, testSenderID); !errors.Is(err, ErrNotFound) {
		t.Errorf("永久刪除後應回傳 ErrNotFound，得到 %v", err)
	}
}

// TestSweepTrashKeepsFreshMark 另一方的墓碑仍在保留期內時不得清除
func TestSweepTrashKeepsFreshMark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	msg := createTestMessage(t, store)

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -TrashRetentionDays)

	// 發信人的墓碑已過期，收件人昨天才刪除
	marks := []DeletionMark{
		{UserID: testSenderID, DeletedAt: now.AddDate(0, 0, -(TrashRetentionDays + 1))},
		{UserID: testRecipientID, DeletedAt: now.AddDate(0, 0, -1)},
	}
	_, err := store.collection.UpdateOne(ctx,
		bson.M{"_id": msg.ID},
		bson.M{"$set": bson.M{"deleted_by": marks}})
	if err != nil {
		t.Fatalf("寫入刪除墓碑失敗: %v", err)
	}

	if err := store.SweepTrash(ctx, testSenderID, cutoff); err != nil {
		t.Fatalf("清理垃圾桶失敗: %v", err)
	}

	// 文檔必須還在收件人的垃圾桶裡
	count, err := store.collection.CountDocuments(ctx, bson.M{"_id": msg.ID})
	if err != nil {
		t.Fatalf("查詢文檔失敗: %v", err)
	}
	if count != 1 {
		t.Fatal("收件人保留期未過，文檔不應被清除")
	}

	// 雙方墓碑都過期後才允許清除
	marks[1].DeletedAt = now.AddDate(0, 0, -(TrashRetentionDays + 2))
	_, err = store.collection.UpdateOne(ctx,
		bson.M{"_id": msg.ID},
		bson.M{"$set": bson.M{"deleted_by": marks}})
	if err != nil {
		t.Fatalf("更新刪除墓碑失敗: %v", err)
	}

	if err := store.SweepTrash(ctx, testSenderID, cutoff); err != nil {
		t.Fatalf("清理垃圾桶失敗: %v", err)
	}

	count, err = store.collection.CountDocuments(ctx, bson.M{"_id": msg.ID})
	if err != nil {
		t.Fatalf("查詢文檔失敗: %v", err)
	}
	if count != 0 {
		t.Error("雙方保留期都已過，文檔應被清除")
	}
}

// TestDraftHiddenFromRecipient 草稿在投遞前不得對收件人可見
func TestDraftHiddenFromRecipient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := NewMessage()
	draft.SenderID = testSenderID
	draft.RecipientID = testRecipientID
	draft.Subject = "還沒寫完"
	draft.Content = "想再確認一下里程數"
	draft.Draft = true
	if err := store.Create(ctx, &draft); err != nil {
		t.Fatalf("創建草稿失敗: %v", err)
	}

	if _, err := store.GetByID(ctx, draft.ID, testRecipientID); !errors.Is(err, ErrNotFound) {
		t.Errorf("收件人讀取草稿應回傳 ErrNotFound，得到 %v", err)
	}
	if err := store.MarkAsRead(ctx, draft.ID, testRecipientID); !errors.Is(err, ErrNotFound) {
		t.Errorf("收件人標記草稿已讀應回傳 ErrNotFound，得到 %v", err)
	}

	loaded, err := store.GetByID(ctx, draft.ID, testSenderID)
	if err != nil {
		t.Fatalf("發信人讀取草稿失敗: %v", err)
	}
	if !loaded.Draft {
		t.Error("發信人讀取草稿不應改變草稿狀態")
	}
}
