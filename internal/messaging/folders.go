package messaging

import (
	"errors"
	"fmt"
	"time"

	"marketplace-messaging/internal/storage/database/messaging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrInvalidFolder 無法識別的資料夾名稱.
// 舊系統對未知名稱會靜默退回「全部訊息」視圖，這裡改為明確拒絕.
var ErrInvalidFolder = errors.New("invalid folder")

// Folder 資料夾的封閉枚舉.
type Folder string

const (
	FolderInbox    Folder = "inbox"
	FolderSent     Folder = "sent"
	FolderDrafts   Folder = "drafts"
	FolderStarred  Folder = "starred"
	FolderArchived Folder = "archived"
	FolderTrash    Folder = "trash"
)

// ParseFolder 解析資料夾名稱.
func ParseFolder(name string) (Folder, error) {
	switch Folder(name) {
	case FolderInbox, FolderSent, FolderDrafts, FolderStarred, FolderArchived, FolderTrash:
		return Folder(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, name)
	}
}

// FolderFilter 將資料夾轉換為存儲層查詢條件.
// 除垃圾桶外，所有條件都與「未被請求者軟刪除」取交集.
func FolderFilter(folder Folder, userID string, now time.Time) (bson.M, error) {
	notDeleted := bson.M{"$ne": userID}
	eitherParty := []bson.M{
		{"sender_id": userID},
		{"recipient_id": userID},
	}

	switch folder {
	case FolderInbox:
		return bson.M{
			"recipient_id":       userID,
			"draft":              false,
			"deleted_by.user_id": notDeleted,
		}, nil
	case FolderSent:
		return bson.M{
			"sender_id":          userID,
			"draft":              false,
			"deleted_by.user_id": notDeleted,
		}, nil
	case FolderDrafts:
		return bson.M{
			"sender_id":          userID,
			"draft":              true,
			"deleted_by.user_id": notDeleted,
		}, nil
	case FolderStarred:
		return bson.M{
			"$or":                eitherParty,
			"starred":            true,
			"draft":              false,
			"deleted_by.user_id": notDeleted,
		}, nil
	case FolderArchived:
		return bson.M{
			"$or":                eitherParty,
			"archived_by":        userID,
			"draft":              false,
			"deleted_by.user_id": notDeleted,
		}, nil
	case FolderTrash:
		// 只顯示保留期內的墓碑；更舊的項目已由清理程序處理或被此條件排除.
		cutoff := now.AddDate(0, 0, -messaging.TrashRetentionDays)
		return bson.M{
			"deleted_by": bson.M{
				"$elemMatch": bson.M{
					"user_id":    userID,
					"deleted_at": bson.M{"$gte": cutoff},
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
}

// VisibleFilter 用戶可見訊息的基礎條件（搜索用，不分資料夾）.
func VisibleFilter(userID string) bson.M {
	return bson.M{
		"$or": []bson.M{
			{"sender_id": userID},
			{"recipient_id": userID},
		},
		"deleted_by.user_id": bson.M{"$ne": userID},
	}
}
