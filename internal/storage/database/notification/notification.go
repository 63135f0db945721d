package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// 通知類型常數.
const (
	TypeNewMessage = "new_message"
	TypeReply      = "reply"
)

// Notification 站內通知.
type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Type      string    `bson:"type" json:"type"`
	Title     string    `bson:"title" json:"title"`
	Body      string    `bson:"body" json:"body"`
	MessageID string    `bson:"message_id,omitempty" json:"message_id,omitempty"`
	SenderID  string    `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	ListingID string    `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewNotification 創建通知實例.
func NewNotification(userID, notifType, title, body string) *Notification {
	return &Notification{
		ID:        bson.NewObjectID().Hex(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Read:      false,
		CreatedAt: time.Now(),
	}
}
