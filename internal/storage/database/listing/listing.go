package listing

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrListingNotFound 刊登不存在.
var ErrListingNotFound = errors.New("listing not found")

// ListingSummary 對話聚合所需的刊登摘要；刊登 CRUD 屬於廣告子系統，
// 這裡只做讀取端的引用解析.
type ListingSummary struct {
	ID       string   `bson:"_id" json:"id"`
	Title    string   `bson:"title" json:"title"`
	Brand    string   `bson:"brand,omitempty" json:"brand,omitempty"`
	Model    string   `bson:"model,omitempty" json:"model,omitempty"`
	Price    float64  `bson:"price,omitempty" json:"price,omitempty"`
	Images   []string `bson:"images,omitempty" json:"images,omitempty"`
	OwnerID  string   `bson:"owner_id" json:"owner_id"`
	Archived bool     `bson:"archived,omitempty" json:"-"`
}

// MainImage 回傳首張圖片，沒有時為空字串.
func (l *ListingSummary) MainImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// ListingStore 刊登摘要存儲.
type ListingStore struct {
	collection *mongo.Collection
}

// NewListingStore 創建新的刊登摘要存儲.
func NewListingStore(db *mongo.Database) *ListingStore {
	return &ListingStore{
		collection: db.Collection("listings"),
	}
}

// GetByID 根據 ID 獲取刊登摘要.
func (s *ListingStore) GetByID(ctx context.Context, id string) (*ListingSummary, error) {
	var summary ListingSummary
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&summary)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
