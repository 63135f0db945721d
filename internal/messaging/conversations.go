package messaging

import (
	"sort"
	"time"

	"marketplace-messaging/internal/storage/database/account"
	"marketplace-messaging/internal/storage/database/listing"
	"marketplace-messaging/internal/storage/database/messaging"
)

// 沒有關聯刊登時使用的對話鍵後綴.
const noListingKey = "no-ad"

// Conversation 對話聚合結果：與某一方就某一刊登的往來摘要.
type Conversation struct {
	Key          string                  `json:"key"`
	OtherPartyID string                  `json:"other_party_id"`
	OtherParty   *account.UserSummary    `json:"other_party,omitempty"`
	LastMessage  *messaging.Message      `json:"last_message"`
	UnreadCount  int                     `json:"unread_count"`
	ListingID    string                  `json:"listing_id,omitempty"`
	Listing      *listing.ListingSummary `json:"listing,omitempty"`

	listingSeenAt time.Time
}

// ConversationKey 對話鍵 = 對方 ID + 關聯刊登 ID（無刊登時用固定哨兵值）.
// 同一對用戶就不同刊登的往來屬於不同對話.
func ConversationKey(otherPartyID, listingID string) string {
	if listingID == "" {
		return otherPartyID + ":" + noListingKey
	}
	return otherPartyID + ":" + listingID
}

// BuildConversations 將用戶可見的扁平訊息日誌折疊為對話列表.
// 純記憶體運算且具確定性：相同輸入必然產生相同分組.
// 無法解析對方（訊息雙方均非請求者，或對方即請求者本人）的訊息
// 直接跳過，不中斷整體聚合；訊息可任意亂序輸入.
func BuildConversations(userID string, msgs []*messaging.Message) []*Conversation {
	byKey := make(map[string]*Conversation)

	for _, msg := range msgs {
		otherParty := msg.Counterpart(userID)
		if otherParty == "" || otherParty == userID {
			continue
		}

		key := ConversationKey(otherParty, msg.RelatedListingID)
		conv, ok := byKey[key]
		if !ok {
			conv = &Conversation{
				Key:          key,
				OtherPartyID: otherParty,
			}
			byKey[key] = conv
		}

		// 以最大時間戳的訊息為最新訊息，容忍亂序抵達.
		if conv.LastMessage == nil || msg.CreatedAt.After(conv.LastMessage.CreatedAt) {
			conv.LastMessage = msg
		}

		// 帶入該對話鍵下最近出現的非空刊登引用.
		if msg.RelatedListingID != "" && (conv.listingSeenAt.IsZero() || msg.CreatedAt.After(conv.listingSeenAt)) {
			conv.ListingID = msg.RelatedListingID
			conv.listingSeenAt = msg.CreatedAt
		}

		// 未讀計數：對方寄給請求者且尚未讀取的訊息.
		if msg.RecipientID == userID && msg.SenderID == otherParty && !msg.Read {
			conv.UnreadCount++
		}
	}

	conversations := make([]*Conversation, 0, len(byKey))
	for _, conv := range byKey {
		conversations = append(conversations, conv)
	}

	// 按最新訊息時間倒序；時間相同時以對話鍵排序，保證輸出穩定.
	sort.Slice(conversations, func(i, j int) bool {
		ti := conversations[i].LastMessage.CreatedAt
		tj := conversations[j].LastMessage.CreatedAt
		if ti.Equal(tj) {
			return conversations[i].Key < conversations[j].Key
		}
		return ti.After(tj)
	})

	return conversations
}
