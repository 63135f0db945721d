package database

import (
	"context"

	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/logger"
	"marketplace-messaging/internal/storage/database/account"
	"marketplace-messaging/internal/storage/database/listing"
	"marketplace-messaging/internal/storage/database/messaging"
	"marketplace-messaging/internal/storage/database/notification"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合.
type Repositories struct {
	Message      *messaging.MessageStore
	User         *account.UserStore
	Listing      *listing.ListingStore
	Notification *notification.Store
}

// NewRepositories 創建倉儲集合.
func NewRepositories(cfg *config.Config) *Repositories {
	// 從 driver 包獲取 MongoDB 連接
	db := mongoDB
	if db == nil {
		return nil
	}

	// 創建索引以優化查詢性能
	ctx := context.Background()
	if err := messaging.CreateIndexes(ctx, db); err != nil {
		// 記錄錯誤但不中斷服務啟動
		logger.LogWarnf("創建索引失敗: %v", err)
	}

	return &Repositories{
		Message:      messaging.NewMessageStore(db),
		User:         account.NewUserStore(db),
		Listing:      listing.NewListingStore(db),
		Notification: notification.NewStore(db),
	}
}

// 全局變數，用於存儲 MongoDB 連接
var mongoDB *mongo.Database

// SetMongoDB 設置 MongoDB 連接.
func SetMongoDB(db *mongo.Database) {
	mongoDB = db
}
