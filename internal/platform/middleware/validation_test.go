package middleware

import (
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	testCases := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"Valid", "user_123", false},
		{"Email style", "buyer@example.com", false},
		{"Empty", "", true},
		{"Whitespace only", "   ", true},
		{"Too long", strings.Repeat("a", 101), true},
		{"NULL injection", "user\x00admin", true},
		{"Mongo operator", "user${gt}", true},
		{"Bracket injection", "user[0]", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUserID(tc.userID)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateUserID(%q) error = %v, wantErr %v", tc.userID, err, tc.wantErr)
			}
		})
	}
}

func TestValidateMessageID(t *testing.T) {
	testCases := []struct {
		name      string
		messageID string
		wantErr   bool
	}{
		{"Valid ObjectID", "507f1f77bcf86cd799439011", false},
		{"Uppercase hex", "507F1F77BCF86CD799439011", false},
		{"Empty", "", true},
		{"Too short", "507f1f77", true},
		{"Too long", "507f1f77bcf86cd79943901100", true},
		{"Non hex", "507f1f77bcf86cd79943901z", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessageID(tc.messageID)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMessageID(%q) error = %v, wantErr %v", tc.messageID, err, tc.wantErr)
			}
		})
	}
}

func TestValidateMessageContent(t *testing.T) {
	if err := ValidateMessageContent("請問里程數多少？"); err != nil {
		t.Errorf("正常內容不應失敗: %v", err)
	}
	if err := ValidateMessageContent(""); err == nil {
		t.Error("空內容應被拒絕")
	}
	if err := ValidateMessageContent("hello\x00world"); err == nil {
		t.Error("NULL 字符應被拒絕")
	}
	if err := ValidateMessageContent(strings.Repeat("a", 10001)); err == nil {
		t.Error("超長內容應被拒絕")
	}
}

func TestSanitizeInput(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "hello", "hello"},
		{"NULL removed", "a\x00b", "ab"},
		{"Control chars removed", "a\x01\x02b", "ab"},
		{"Newline and tab kept", "line1\n\tline2", "line1\n\tline2"},
		{"Unicode kept", "你好 🚗", "你好 🚗"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeInput(tc.input); got != tc.want {
				t.Errorf("SanitizeInput(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
