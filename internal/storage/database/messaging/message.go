package messaging

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// 垃圾桶保留天數，超過後在查詢垃圾桶時清除.
const TrashRetentionDays = 30

// MessageRepository 站內信倉儲接口.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id, requestingUser string) (*Message, error)
	Update(ctx context.Context, id string, update map[string]interface{}) error
	ListFolder(ctx context.Context, userID string, filter bson.M, limit int, cursor string) ([]*Message, string, bool, error)
	FetchUserMessages(ctx context.Context, userID string) ([]*Message, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	ToggleStar(ctx context.Context, id, userID string) (bool, error)
	SetArchived(ctx context.Context, id, userID string, archived bool) error
	SoftDelete(ctx context.Context, id, userID string) (hardDeleted bool, err error)
	HardDelete(ctx context.Context, id string) error
	SweepTrash(ctx context.Context, userID string, cutoff time.Time) error
	Search(ctx context.Context, userID, query string, folderFilter bson.M, limit int) ([]*Message, error)
	CountUnreadBySender(ctx context.Context, userID string) (int, error)
}

// Message 站內信數據模型.
// 同一份文檔同時承載雙方的視圖狀態：read 屬於收件人，
// starred 為雙方共享，archived_by 與 deleted_by 為每人獨立記錄.
type Message struct {
	ID               string         `bson:"_id" json:"id"`
	SenderID         string         `bson:"sender_id" json:"sender_id"`
	RecipientID      string         `bson:"recipient_id" json:"recipient_id"`
	Subject          string         `bson:"subject" json:"subject"`
	Content          string         `bson:"content" json:"content"`
	Attachments      []Attachment   `bson:"attachments" json:"attachments"`
	Read             bool           `bson:"read" json:"read"`
	Starred          bool           `bson:"starred" json:"starred"`
	Draft            bool           `bson:"draft" json:"draft"`
	ArchivedBy       []string       `bson:"archived_by,omitempty" json:"archived_by,omitempty"`
	DeletedBy        []DeletionMark `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	RelatedListingID string         `bson:"related_listing_id,omitempty" json:"related_listing_id,omitempty"`
	CreatedAt        time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updated_at"`
}

// NewMessage 創建新的 Message 實例.
func NewMessage() Message {
	now := time.Now().UTC()
	return Message{ID: bson.NewObjectID().Hex(), Attachments: []Attachment{}, CreatedAt: now, UpdatedAt: now}
}

// Attachment 附件元數據，實體檔案存放於對象存儲.
type Attachment struct {
	Name          string `bson:"name" json:"name"`
	Path          string `bson:"path" json:"path"`
	ThumbnailPath string `bson:"thumbnail_path,omitempty" json:"thumbnail_path,omitempty"`
	Size          int64  `bson:"size" json:"size"`
	MimeType      string `bson:"mime_type" json:"mime_type"`
	Width         int    `bson:"width,omitempty" json:"width,omitempty"`
	Height        int    `bson:"height,omitempty" json:"height,omitempty"`
}

// DeletionMark 軟刪除墓碑：記錄哪位用戶於何時刪除了自己的視圖.
type DeletionMark struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	DeletedAt time.Time `bson:"deleted_at" json:"deleted_at"`
}

// IsParty 檢查用戶是否為此訊息的發信人或收信人.
func (m *Message) IsParty(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.RecipientID == userID)
}

// DeletedByUser 檢查用戶是否已軟刪除此訊息.
func (m *Message) DeletedByUser(userID string) bool {
	for _, mark := range m.DeletedBy {
		if mark.UserID == userID {
			return true
		}
	}
	return false
}

// VisibleTo 可見性規則：必須是當事人且未軟刪除.
func (m *Message) VisibleTo(userID string) bool {
	return m.IsParty(userID) && !m.DeletedByUser(userID)
}

// ArchivedByUser 檢查用戶是否已封存此訊息.
func (m *Message) ArchivedByUser(userID string) bool {
	for _, id := range m.ArchivedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart 回傳對話中的另一方；用戶不是當事人時回傳空字串.
func (m *Message) Counterpart(userID string) string {
	switch userID {
	case m.SenderID:
		return m.RecipientID
	case m.RecipientID:
		return m.SenderID
	default:
		return ""
	}
}

// DeletionMarkFor 回傳用戶的軟刪除墓碑.
func (m *Message) DeletionMarkFor(userID string) (DeletionMark, bool) {
	for _, mark := range m.DeletedBy {
		if mark.UserID == userID {
			return mark, true
		}
	}
	return DeletionMark{}, false
}
