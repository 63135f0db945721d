package notification

import (
	"context"
	"time"

	"marketplace-messaging/internal/platform/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store 站內通知存儲實作.
type Store struct {
	collection *mongo.Collection
}

// NewStore 創建新的通知存儲.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		collection: db.Collection("notifications"),
	}
}

// Create 創建通知.
func (s *Store) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = bson.NewObjectID().Hex()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.collection.InsertOne(ctx, n)
	return err
}

// ListForUser 列出用戶通知，按創建時間倒序.
func (s *Store) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	cfg := config.Get()
	maxLimit := 100
	if cfg != nil && cfg.Limits.Pagination.MaxPageSize > 0 {
		maxLimit = cfg.Limits.Pagination.MaxPageSize
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}

	opts := options.Find()
	opts.SetLimit(int64(limit))
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*Notification
	for cursor.Next(ctx) {
		var n Notification
		if decodeErr := cursor.Decode(&n); decodeErr != nil {
			return nil, decodeErr
		}
		notifications = append(notifications, &n)
	}

	return notifications, nil
}

// MarkAllRead 標記用戶全部通知為已讀，回傳更新數量.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
