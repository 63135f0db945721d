package messaging

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestValidateSendRequest(t *testing.T) {
	testCases := []struct {
		name    string
		req     SendMessageRequest
		wantErr error
	}{
		{
			name: "Valid",
			req:  SendMessageRequest{Recipient: "user_b", Subject: "哈囉", Content: "車還在嗎？"},
		},
		{
			name:    "Missing recipient",
			req:     SendMessageRequest{Content: "車還在嗎？"},
			wantErr: ErrRecipientRequired,
		},
		{
			name:    "Missing content",
			req:     SendMessageRequest{Recipient: "user_b"},
			wantErr: ErrContentRequired,
		},
		{
			name:    "Whitespace content",
			req:     SendMessageRequest{Recipient: "user_b", Content: "   \n\t "},
			wantErr: ErrContentRequired,
		},
		{
			name: "Attachment only",
			req: SendMessageRequest{
				Recipient:   "user_b",
				Attachments: []AttachmentPayload{{Name: "photo.jpg", ContentBase64: "aGkh"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSendRequest(&tc.req)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("不應失敗: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("期望 %v，得到 %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateSendRequest_ContentTooLong(t *testing.T) {
	req := SendMessageRequest{
		Recipient: "user_b",
		Content:   strings.Repeat("長", 10001),
	}
	if err := ValidateSendRequest(&req); err == nil {
		t.Error("超長內容應被拒絕")
	}
}

func TestValidateReplyRequest(t *testing.T) {
	if err := ValidateReplyRequest(&ReplyRequest{Content: "可以約週末看車"}); err != nil {
		t.Errorf("不應失敗: %v", err)
	}
	if err := ValidateReplyRequest(&ReplyRequest{}); !errors.Is(err, ErrContentRequired) {
		t.Errorf("空回覆應回傳 ErrContentRequired，得到 %v", err)
	}

	// 純附件回覆允許空內容
	attachmentOnly := ReplyRequest{
		Attachments: []AttachmentPayload{{Name: "photo.jpg", ContentBase64: "aGkh"}},
	}
	if err := ValidateReplyRequest(&attachmentOnly); err != nil {
		t.Errorf("純附件回覆不應失敗: %v", err)
	}
}

func TestValidateDraftRequest(t *testing.T) {
	// 草稿允許欄位不完整
	partial := []SaveDraftRequest{
		{Recipient: "user_b"},
		{Subject: "未完成的詢問"},
		{Content: "想問一下"},
	}
	for _, req := range partial {
		if err := ValidateDraftRequest(&req); err != nil {
			t.Errorf("部分欄位的草稿不應失敗: %+v, %v", req, err)
		}
	}

	// 純附件草稿允許其餘欄位全空
	attachmentOnly := SaveDraftRequest{
		Attachments: []AttachmentPayload{{Name: "photo.jpg", ContentBase64: "aGkh"}},
	}
	if err := ValidateDraftRequest(&attachmentOnly); err != nil {
		t.Errorf("純附件草稿不應失敗: %v", err)
	}

	// 附件與其餘欄位一樣要過驗證
	badAttachment := SaveDraftRequest{
		Recipient:   "user_b",
		Attachments: []AttachmentPayload{{Name: "", ContentBase64: "aGkh"}},
	}
	if err := ValidateDraftRequest(&badAttachment); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("無名附件的草稿應回傳 ErrInvalidAttachment，得到 %v", err)
	}

	// 全空草稿拒絕
	if err := ValidateDraftRequest(&SaveDraftRequest{}); err == nil {
		t.Error("全空草稿應被拒絕")
	}
}

func TestValidateAttachmentPayloads(t *testing.T) {
	small := base64.StdEncoding.EncodeToString([]byte("file content"))

	// 數量上限
	tooMany := make([]AttachmentPayload, 6)
	for i := range tooMany {
		tooMany[i] = AttachmentPayload{Name: "a.txt", ContentBase64: small}
	}
	if err := ValidateAttachmentPayloads(tooMany); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("超量附件應回傳 ErrInvalidAttachment，得到 %v", err)
	}

	// 名稱必填
	unnamed := []AttachmentPayload{{ContentBase64: small}}
	if err := ValidateAttachmentPayloads(unnamed); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("無名附件應被拒絕，得到 %v", err)
	}

	// 大小上限（base64 長度換算）
	huge := []AttachmentPayload{{
		Name:          "big.bin",
		ContentBase64: strings.Repeat("A", 15<<20),
	}}
	if err := ValidateAttachmentPayloads(huge); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("超大附件應被拒絕，得到 %v", err)
	}

	// 合法附件
	valid := []AttachmentPayload{{Name: "photo.jpg", ContentBase64: small}}
	if err := ValidateAttachmentPayloads(valid); err != nil {
		t.Errorf("合法附件不應失敗: %v", err)
	}

	// 無附件
	if err := ValidateAttachmentPayloads(nil); err != nil {
		t.Errorf("無附件不應失敗: %v", err)
	}
}

func TestIsAllowedAttachmentType(t *testing.T) {
	testCases := []struct {
		mimeType string
		want     bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/gif", true},
		{"image/webp", true},
		{"application/pdf", false},
		{"text/plain; charset=utf-8", false},
		{"application/x-msdownload", false},
		{"text/html", false},
		{"application/octet-stream", false},
	}

	for _, tc := range testCases {
		t.Run(tc.mimeType, func(t *testing.T) {
			if got := IsAllowedAttachmentType(tc.mimeType); got != tc.want {
				t.Errorf("IsAllowedAttachmentType(%q) = %v, want %v", tc.mimeType, got, tc.want)
			}
		})
	}
}
