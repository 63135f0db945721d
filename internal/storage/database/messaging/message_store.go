package messaging

import (
	"context"
	"errors"
	"regexp"
	"time"

	"marketplace-messaging/internal/platform/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 存儲層錯誤.
var (
	ErrNotFound  = errors.New("message not found")
	ErrForbidden = errors.New("requesting user is not a party to this message")
)

// MessageStore 站內信存儲實作.
type MessageStore struct {
	collection *mongo.Collection
}

// NewMessageStore 創建新的站內信存儲.
func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		collection: db.Collection("messages"),
	}
}

// Create 創建訊息.
func (s *MessageStore) Create(ctx context.Context, message *Message) error {
	if message.ID == "" {
		message.ID = bson.NewObjectID().Hex()
	}
	message.CreatedAt = time.Now().UTC()
	message.UpdatedAt = message.CreatedAt

	if message.Attachments == nil {
		message.Attachments = []Attachment{}
	}

	_, err := s.collection.InsertOne(ctx, message)
	return err
}

// GetByID 根據 ID 獲取訊息並執行可見性檢查.
// 請求者非當事人時回傳 ErrForbidden；請求者為收件人且訊息未讀時，
// 順帶以單文檔原子更新標記為已讀.
func (s *MessageStore) GetByID(ctx context.Context, id, requestingUser string) (*Message, error) {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return nil, ErrNotFound
	}

	var message Message
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !message.IsParty(requestingUser) {
		return nil, ErrForbidden
	}

	// 草稿在投遞前只對發信人存在
	if message.Draft && message.SenderID != requestingUser {
		return nil, ErrNotFound
	}

	// 收件人首次讀取時隱式標記已讀（草稿除外）.
	if requestingUser == message.RecipientID && !message.Read && !message.Draft {
		now := time.Now().UTC()
		_, err = s.collection.UpdateOne(ctx,
			bson.M{"_id": id, "recipient_id": requestingUser, "read": false},
			bson.M{"$set": bson.M{"read": true, "updated_at": now}})
		if err != nil {
			return nil, err
		}
		message.Read = true
		message.UpdatedAt = now
	}

	return &message, nil
}

// Update 更新訊息欄位.
func (s *MessageStore) Update(ctx context.Context, id string, update map[string]interface{}) error {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return ErrNotFound
	}

	update["updated_at"] = time.Now().UTC()
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFolder 依資料夾過濾條件列出訊息，按創建時間倒序分頁.
func (s *MessageStore) ListFolder(
	ctx context.Context, userID string, filter bson.M, limit int, cursor string,
) (
	messages []*Message, nextCursor string, hasMore bool, err error,
) {
	cfg := config.Get()
	defaultLimit := 20
	maxLimit := 100
	if cfg != nil {
		if cfg.Limits.Pagination.DefaultPageSize > 0 {
			defaultLimit = cfg.Limits.Pagination.DefaultPageSize
		}
		if cfg.Limits.Pagination.MaxPageSize > 0 {
			maxLimit = cfg.Limits.Pagination.MaxPageSize
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// 如果有游標，查找比游標時間更早的訊息.
	if cursor != "" {
		cursorTime, parseErr := time.Parse(time.RFC3339, cursor)
		if parseErr == nil {
			filter["created_at"] = bson.M{"$lt": cursorTime}
		}
	}

	opts := options.Find()
	opts.SetLimit(int64(limit + 1)) // 多取一個用於判斷是否有更多.
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursorResult, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", false, err
	}
	defer cursorResult.Close(ctx)

	for cursorResult.Next(ctx) {
		var message Message
		if decodeErr := cursorResult.Decode(&message); decodeErr != nil {
			return nil, "", false, decodeErr
		}
		messages = append(messages, &message)
	}

	hasMore = len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	if hasMore && len(messages) > 0 {
		nextCursor = messages[len(messages)-1].CreatedAt.Format(time.RFC3339)
	}

	return messages, nextCursor, hasMore, nil
}

// FetchUserMessages 獲取用戶可見的全部非草稿訊息，供對話聚合使用.
func (s *MessageStore) FetchUserMessages(ctx context.Context, userID string) ([]*Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userID},
			{"recipient_id": userID},
		},
		"deleted_by.user_id": bson.M{"$ne": userID},
		"draft":              false,
	}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursorResult, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	var messages []*Message
	for cursorResult.Next(ctx) {
		var message Message
		if decodeErr := cursorResult.Decode(&message); decodeErr != nil {
			return nil, decodeErr
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

// MarkAsRead 標記訊息為已讀，只有收件人可執行；重複呼叫為 no-op.
func (s *MessageStore) MarkAsRead(ctx context.Context, id, userID string) error {
	message, err := s.loadForParty(ctx, id, userID)
	if err != nil {
		return err
	}

	if message.RecipientID != userID {
		return ErrForbidden
	}
	if message.Read {
		return nil
	}

	return s.Update(ctx, id, map[string]interface{}{"read": true})
}

// ToggleStar 切換星號標記，雙方皆可執行；回傳切換後的狀態.
func (s *MessageStore) ToggleStar(ctx context.Context, id, userID string) (bool, error) {
	message, err := s.loadForParty(ctx, id, userID)
	if err != nil {
		return false, err
	}

	starred := !message.Starred
	if err := s.Update(ctx, id, map[string]interface{}{"starred": starred}); err != nil {
		return false, err
	}
	return starred, nil
}

// SetArchived 設定封存狀態，每位當事人獨立記錄，不影響另一方.
func (s *MessageStore) SetArchived(ctx context.Context, id, userID string, archived bool) error {
	message, err := s.loadForParty(ctx, id, userID)
	if err != nil {
		return err
	}

	var update bson.M
	if archived {
		update = bson.M{
			"$addToSet": bson.M{"archived_by": userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		}
	} else {
		update = bson.M{
			"$pull": bson.M{"archived_by": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		}
	}

	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": message.ID}, update)
	return err
}

// SoftDelete 將用戶加入軟刪除名單.
// 同一用戶對已刪除的訊息再次執行時，改為系統級硬刪除並回傳 true.
func (s *MessageStore) SoftDelete(ctx context.Context, id, userID string) (bool, error) {
	message, err := s.loadForParty(ctx, id, userID)
	if err != nil {
		return false, err
	}

	if message.DeletedByUser(userID) {
		if err := s.HardDelete(ctx, message.ID); err != nil {
			return false, err
		}
		return true, nil
	}

	mark := DeletionMark{UserID: userID, DeletedAt: time.Now().UTC()}
	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": message.ID}, bson.M{
		"$push": bson.M{"deleted_by": mark},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return false, err
}

// HardDelete 永久刪除訊息，雙方視圖一併移除.
func (s *MessageStore) HardDelete(ctx context.Context, id string) error {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return ErrNotFound
	}

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SweepTrash 清理用戶垃圾桶中保留期已過的項目.
// 只有雙方的墓碑都超過保留期（或訊息沒有另一方）時才硬刪除；
// 另一方尚未刪除或墓碑仍在保留期內時保留文檔，
// 由垃圾桶查詢的時間過濾條件將其對本用戶排除.
func (s *MessageStore) SweepTrash(ctx context.Context, userID string, cutoff time.Time) error {
	filter := bson.M{
		"deleted_by": bson.M{
			"$elemMatch": bson.M{
				"user_id":    userID,
				"deleted_at": bson.M{"$lt": cutoff},
			},
		},
	}

	cursorResult, err := s.collection.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursorResult.Close(ctx)

	var expired []*Message
	for cursorResult.Next(ctx) {
		var message Message
		if decodeErr := cursorResult.Decode(&message); decodeErr != nil {
			return decodeErr
		}
		expired = append(expired, &message)
	}

	for _, message := range expired {
		if other := message.Counterpart(userID); other != "" {
			mark, ok := message.DeletionMarkFor(other)
			if !ok || !mark.DeletedAt.Before(cutoff) {
				continue
			}
		}
		if err := s.HardDelete(ctx, message.ID); err != nil {
			return err
		}
	}

	return nil
}

// Search 在用戶可見訊息的主旨與內容中做子字串搜索.
func (s *MessageStore) Search(ctx context.Context, userID, query string, folderFilter bson.M, limit int) ([]*Message, error) {
	cfg := config.Get()
	maxLimit := 100
	if cfg != nil && cfg.Limits.Pagination.MaxPageSize > 0 {
		maxLimit = cfg.Limits.Pagination.MaxPageSize
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}

	filter := bson.M{
		"$and": []bson.M{
			folderFilter,
			{"$or": []bson.M{
				{"subject": pattern},
				{"content": pattern},
			}},
		},
	}

	opts := options.Find()
	opts.SetLimit(int64(limit))
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursorResult, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	var messages []*Message
	for cursorResult.Next(ctx) {
		var message Message
		if decodeErr := cursorResult.Decode(&message); decodeErr != nil {
			return nil, decodeErr
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

// CountUnreadBySender 統計含未讀訊息的不重複寄件人數量，排除垃圾桶.
func (s *MessageStore) CountUnreadBySender(ctx context.Context, userID string) (int, error) {
	filter := bson.M{
		"recipient_id":       userID,
		"read":               false,
		"draft":              false,
		"deleted_by.user_id": bson.M{"$ne": userID},
	}

	result := s.collection.Distinct(ctx, "sender_id", filter)
	if result.Err() != nil {
		return 0, result.Err()
	}

	var senders []string
	if err := result.Decode(&senders); err != nil {
		return 0, err
	}

	return len(senders), nil
}

// loadForParty 載入訊息並驗證請求者為當事人.
func (s *MessageStore) loadForParty(ctx context.Context, id, userID string) (*Message, error) {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return nil, ErrNotFound
	}

	var message Message
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !message.IsParty(userID) {
		return nil, ErrForbidden
	}

	// 草稿在投遞前只對發信人存在
	if message.Draft && message.SenderID != userID {
		return nil, ErrNotFound
	}

	return &message, nil
}
