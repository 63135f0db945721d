package messaging

import (
	storage "marketplace-messaging/internal/storage/database/messaging"
)

// AttachmentPayload 附件上傳內容（base64 編碼）.
type AttachmentPayload struct {
	Name          string `json:"name"`
	ContentBase64 string `json:"content_base64"`
}

// SendMessageRequest 發送訊息請求.
// 帶 draft_id 時表示把既有草稿投遞出去.
type SendMessageRequest struct {
	Recipient        string              `json:"recipient"` // 用戶 ID 或電郵
	Subject          string              `json:"subject"`
	Content          string              `json:"content"`
	RelatedListingID string              `json:"related_listing_id,omitempty"`
	DraftID          string              `json:"draft_id,omitempty"`
	Attachments      []AttachmentPayload `json:"attachments,omitempty"`
}

// ReplyRequest 回覆訊息請求.
type ReplyRequest struct {
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

// SaveDraftRequest 保存草稿請求，帶 id 時更新既有草稿.
type SaveDraftRequest struct {
	ID               string              `json:"id,omitempty"`
	Recipient        string              `json:"recipient,omitempty"`
	Subject          string              `json:"subject,omitempty"`
	Content          string              `json:"content,omitempty"`
	RelatedListingID string              `json:"related_listing_id,omitempty"`
	Attachments      []AttachmentPayload `json:"attachments,omitempty"`
}

// MessageListResponse 資料夾列表回應.
type MessageListResponse struct {
	Messages   []*storage.Message `json:"messages"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// UnreadCountResponse 未讀計數回應.
// stale 表示數值來自快取或後端暫時不可用時的退化值.
type UnreadCountResponse struct {
	Count int  `json:"count"`
	Stale bool `json:"stale"`
}
