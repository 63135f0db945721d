package messaging

import (
	"errors"
	"fmt"
	"strings"

	"marketplace-messaging/internal/constants"
	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/middleware"
)

// 驗證錯誤.
var (
	ErrContentRequired   = errors.New("message content is required")
	ErrRecipientRequired = errors.New("recipient is required")
	ErrSelfSend          = errors.New("cannot send a message to yourself")
	ErrInvalidAttachment = errors.New("invalid attachment")
)

// 允許的附件類型（以實際內容嗅探結果為準，僅限圖片）.
var allowedAttachmentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// ValidateSendRequest 驗證發送請求.
// 內容與附件至少要有其一：純附件訊息允許空內容.
func ValidateSendRequest(req *SendMessageRequest) error {
	if strings.TrimSpace(req.Recipient) == "" {
		return ErrRecipientRequired
	}

	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return ErrContentRequired
	}

	if req.Content != "" {
		if err := middleware.ValidateMessageContent(req.Content); err != nil {
			return err
		}
	}

	if err := middleware.ValidateSubject(req.Subject); err != nil {
		return err
	}

	return ValidateAttachmentPayloads(req.Attachments)
}

// ValidateReplyRequest 驗證回覆請求.
func ValidateReplyRequest(req *ReplyRequest) error {
	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return ErrContentRequired
	}

	if req.Content != "" {
		if err := middleware.ValidateMessageContent(req.Content); err != nil {
			return err
		}
	}

	return ValidateAttachmentPayloads(req.Attachments)
}

// ValidateDraftRequest 驗證草稿請求；草稿允許欄位不完整，但不能全空.
func ValidateDraftRequest(req *SaveDraftRequest) error {
	if strings.TrimSpace(req.Recipient) == "" &&
		strings.TrimSpace(req.Subject) == "" &&
		strings.TrimSpace(req.Content) == "" &&
		len(req.Attachments) == 0 {
		return fmt.Errorf("草稿至少需要收件人、主旨、內容或附件其中之一")
	}

	if req.Content != "" {
		if err := middleware.ValidateMessageContent(req.Content); err != nil {
			return err
		}
	}

	if err := middleware.ValidateSubject(req.Subject); err != nil {
		return err
	}

	return ValidateAttachmentPayloads(req.Attachments)
}

// ValidateAttachmentPayloads 驗證附件數量與大小上限.
// base64 長度換算為近似原始大小，不做完整解碼.
func ValidateAttachmentPayloads(payloads []AttachmentPayload) error {
	maxCount := constants.DefaultMaxAttachmentCount
	maxSize := int64(constants.DefaultMaxAttachmentSize)
	if cfg := config.Get(); cfg != nil {
		if cfg.Limits.Attachment.MaxCount > 0 {
			maxCount = cfg.Limits.Attachment.MaxCount
		}
		if cfg.Limits.Attachment.MaxSizeBytes > 0 {
			maxSize = cfg.Limits.Attachment.MaxSizeBytes
		}
	}

	if len(payloads) > maxCount {
		return fmt.Errorf("%w: 附件數量超過上限 (%d)", ErrInvalidAttachment, maxCount)
	}

	for _, p := range payloads {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: 附件名稱不能為空", ErrInvalidAttachment)
		}
		if p.ContentBase64 == "" {
			return fmt.Errorf("%w: 附件內容不能為空", ErrInvalidAttachment)
		}
		if approxSize := int64(len(p.ContentBase64)) * 3 / 4; approxSize > maxSize {
			return fmt.Errorf("%w: 附件大小超過上限 (%d 字節)", ErrInvalidAttachment, maxSize)
		}
	}

	return nil
}

// IsAllowedAttachmentType 檢查嗅探出的 MIME 類型是否允許.
func IsAllowedAttachmentType(mimeType string) bool {
	// DetectContentType 可能帶上 charset 參數
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	for _, allowed := range allowedAttachmentTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}
