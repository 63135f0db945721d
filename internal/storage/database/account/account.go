package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrUserNotFound 用戶不存在.
var ErrUserNotFound = errors.New("user not found")

// UserSummary 站內信所需的用戶摘要；完整的用戶文檔由用戶子系統維護，
// 這裡只做讀取端的引用解析.
type UserSummary struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	LastName    string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Email       string    `bson:"email" json:"email"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `bson:"last_seen_at,omitempty" json:"last_seen_at,omitempty"`
	Deactivated bool      `bson:"deactivated,omitempty" json:"-"`
}

// DisplayName 組合顯示名稱.
func (u *UserSummary) DisplayName() string {
	name := strings.TrimSpace(u.Name + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserStore 用戶摘要存儲.
type UserStore struct {
	collection *mongo.Collection
}

// NewUserStore 創建新的用戶摘要存儲.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		collection: db.Collection("users"),
	}
}

// GetByID 根據 ID 獲取用戶摘要.
func (s *UserStore) GetByID(ctx context.Context, id string) (*UserSummary, error) {
	var user UserSummary
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根據電郵獲取用戶摘要（發信時以電郵指定收件人）.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*UserSummary, error) {
	var user UserSummary
	err := s.collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Resolve 解析收件人：先視為用戶 ID，含 @ 時改以電郵查找.
func (s *UserStore) Resolve(ctx context.Context, idOrEmail string) (*UserSummary, error) {
	idOrEmail = strings.TrimSpace(idOrEmail)
	if idOrEmail == "" {
		return nil, ErrUserNotFound
	}
	if strings.Contains(idOrEmail, "@") {
		return s.GetByEmail(ctx, idOrEmail)
	}
	return s.GetByID(ctx, idOrEmail)
}
