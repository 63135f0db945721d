package messaging

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateIndexes 創建數據庫索引以優化查詢性能.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	messagesCollection := db.Collection("messages")

	// 1. 收件人 + 創建時間複合索引（收件匣查詢）.
	recipientTimeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipient_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("recipient_time_idx"),
	}

	// 2. 發信人 + 創建時間複合索引（寄件備份與草稿查詢）.
	senderTimeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("sender_time_idx"),
	}

	// 3. 軟刪除墓碑索引（垃圾桶查詢與可見性過濾）.
	deletedByIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "deleted_by.user_id", Value: 1},
			{Key: "deleted_by.deleted_at", Value: -1},
		},
		Options: options.Index().SetName("deleted_by_idx"),
	}

	// 4. 未讀計數索引.
	unreadIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipient_id", Value: 1},
			{Key: "read", Value: 1},
		},
		Options: options.Index().SetName("unread_idx"),
	}

	messageIndexes := []mongo.IndexModel{
		recipientTimeIndex,
		senderTimeIndex,
		deletedByIndex,
		unreadIndex,
	}

	if _, err := messagesCollection.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	// 站內通知集合索引.
	notificationsCollection := db.Collection("notifications")

	notificationUserIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("notification_user_idx"),
	}

	if _, err := notificationsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{notificationUserIndex}); err != nil {
		return err
	}

	return nil
}
