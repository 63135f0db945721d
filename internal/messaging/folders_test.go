package messaging

import (
	"errors"
	"testing"
	"time"

	storage "marketplace-messaging/internal/storage/database/messaging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestParseFolder(t *testing.T) {
	valid := []string{"inbox", "sent", "drafts", "starred", "archived", "trash"}
	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			folder, err := ParseFolder(name)
			if err != nil {
				t.Fatalf("ParseFolder(%q) 不應失敗: %v", name, err)
			}
			if string(folder) != name {
				t.Errorf("ParseFolder(%q) = %q", name, folder)
			}
		})
	}

	invalid := []string{"", "spam", "INBOX", "all", "deleted"}
	for _, name := range invalid {
		t.Run("invalid_"+name, func(t *testing.T) {
			_, err := ParseFolder(name)
			if !errors.Is(err, ErrInvalidFolder) {
				t.Errorf("ParseFolder(%q) 應回傳 ErrInvalidFolder，得到 %v", name, err)
			}
		})
	}
}

func TestFolderFilter_Inbox(t *testing.T) {
	filter, err := FolderFilter(FolderInbox, "user_a", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if filter["recipient_id"] != "user_a" {
		t.Errorf("收件匣應以 recipient_id 過濾: %v", filter)
	}
	if filter["draft"] != false {
		t.Errorf("收件匣應排除草稿: %v", filter)
	}
	if _, ok := filter["deleted_by.user_id"]; !ok {
		t.Errorf("收件匣應排除已軟刪除的訊息: %v", filter)
	}
}

func TestFolderFilter_Sent(t *testing.T) {
	filter, err := FolderFilter(FolderSent, "user_a", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if filter["sender_id"] != "user_a" {
		t.Errorf("寄件備份應以 sender_id 過濾: %v", filter)
	}
	if filter["draft"] != false {
		t.Errorf("寄件備份應排除草稿: %v", filter)
	}
}

func TestFolderFilter_Drafts(t *testing.T) {
	filter, err := FolderFilter(FolderDrafts, "user_a", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if filter["sender_id"] != "user_a" || filter["draft"] != true {
		t.Errorf("草稿匣條件錯誤: %v", filter)
	}
}

func TestFolderFilter_StarredAndArchived(t *testing.T) {
	starred, err := FolderFilter(FolderStarred, "user_a", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if starred["starred"] != true {
		t.Errorf("星號匣應過濾 starred: %v", starred)
	}
	if _, ok := starred["$or"]; !ok {
		t.Errorf("星號匣應限定當事人: %v", starred)
	}

	archived, err := FolderFilter(FolderArchived, "user_a", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if archived["archived_by"] != "user_a" {
		t.Errorf("封存匣應以 archived_by 過濾操作者: %v", archived)
	}
}

func TestFolderFilter_TrashCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	filter, err := FolderFilter(FolderTrash, "user_a", now)
	if err != nil {
		t.Fatal(err)
	}

	deletedBy, ok := filter["deleted_by"].(bson.M)
	if !ok {
		t.Fatalf("垃圾桶應使用 deleted_by 條件: %v", filter)
	}
	elemMatch, ok := deletedBy["$elemMatch"].(bson.M)
	if !ok {
		t.Fatalf("垃圾桶應使用 $elemMatch: %v", deletedBy)
	}
	if elemMatch["user_id"] != "user_a" {
		t.Errorf("垃圾桶應限定操作者的墓碑: %v", elemMatch)
	}

	deletedAt, ok := elemMatch["deleted_at"].(bson.M)
	if !ok {
		t.Fatalf("垃圾桶應帶時間條件: %v", elemMatch)
	}
	wantCutoff := now.AddDate(0, 0, -storage.TrashRetentionDays)
	gotCutoff, ok := deletedAt["$gte"].(time.Time)
	if !ok || !gotCutoff.Equal(wantCutoff) {
		t.Errorf("保留期截止時間錯誤: got %v, want %v", deletedAt["$gte"], wantCutoff)
	}
}

func TestFolderFilter_RejectsUnknown(t *testing.T) {
	_, err := FolderFilter(Folder("junk"), "user_a", time.Now())
	if !errors.Is(err, ErrInvalidFolder) {
		t.Errorf("未知資料夾應回傳 ErrInvalidFolder，得到 %v", err)
	}
}

func TestVisibleFilter(t *testing.T) {
	filter := VisibleFilter("user_a")

	parties, ok := filter["$or"].([]bson.M)
	if !ok || len(parties) != 2 {
		t.Fatalf("可見性條件應覆蓋訊息雙方: %v", filter)
	}
	if _, ok := filter["deleted_by.user_id"]; !ok {
		t.Errorf("可見性條件應排除已軟刪除的訊息: %v", filter)
	}
}
