package messaging

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace-messaging/internal/attachments"
	"marketplace-messaging/internal/httputil"
	"marketplace-messaging/internal/notifications"
	"marketplace-messaging/internal/platform/logger"
	"marketplace-messaging/internal/platform/middleware"
	"marketplace-messaging/internal/presence"
	"marketplace-messaging/internal/storage/database/account"
	"marketplace-messaging/internal/storage/database/listing"
	storage "marketplace-messaging/internal/storage/database/messaging"
	"marketplace-messaging/internal/storage/database/notification"

	"github.com/gin-gonic/gin"
)

// Handler 站內信處理器.
type Handler struct {
	messages      storage.MessageRepository
	users         *account.UserStore
	listings      *listing.ListingStore
	notifications *notification.Store
	unread        *UnreadCounter
	uploader      *attachments.Uploader
	dispatcher    *notifications.Dispatcher
	tracker       *presence.Tracker
}

// NewHandler 創建新的站內信處理器.
func NewHandler(
	messages storage.MessageRepository,
	users *account.UserStore,
	listings *listing.ListingStore,
	notificationStore *notification.Store,
	uploader *attachments.Uploader,
	dispatcher *notifications.Dispatcher,
	tracker *presence.Tracker,
) *Handler {
	return &Handler{
		messages:      messages,
		users:         users,
		listings:      listings,
		notifications: notificationStore,
		unread:        NewUnreadCounter(messages),
		uploader:      uploader,
		dispatcher:    dispatcher,
		tracker:       tracker,
	}
}

// decodedAttachment 已解碼並通過類型檢查的附件.
type decodedAttachment struct {
	name string
	data []byte
}

// SendMessage 發送訊息（帶 draft_id 時投遞既有草稿）.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage("Invalid request format"))
		return
	}

	req.Subject = middleware.SanitizeInput(req.Subject)
	req.Content = middleware.SanitizeInput(req.Content)

	if err := ValidateSendRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	recipient, err := h.users.Resolve(c.Request.Context(), req.Recipient)
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			httputil.NotFoundError(c, "收件人不存在")
			return
		}
		httputil.InternalServerError(c, err)
		return
	}

	if recipient.ID == userID {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(ErrSelfSend.Error()))
		return
	}

	decoded, err := h.decodeAttachments(req.Attachments)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	var msg *storage.Message
	if req.DraftID != "" {
		msg, err = h.deliverDraft(c.Request.Context(), userID, recipient.ID, &req)
	} else {
		msg, err = h.createMessage(c.Request.Context(), userID, recipient.ID, &req)
	}
	if err != nil {
		httputil.StoreError(c, err)
		return
	}

	h.afterDelivery(msg, decoded)

	c.JSON(http.StatusCreated, httputil.NewSuccessResponse(httputil.MessageSent, msg))
}

// createMessage 創建並投遞新訊息.
func (h *Handler) createMessage(ctx context.Context, senderID, recipientID string, req *SendMessageRequest) (*storage.Message, error) {
	msg := storage.NewMessage()
	msg.SenderID = senderID
	msg.RecipientID = recipientID
	msg.Subject = req.Subject
	msg.Content = req.Content
	msg.RelatedListingID = req.RelatedListingID

	if err := h.messages.Create(ctx, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// deliverDraft 把既有草稿投遞出去；投遞時間以當下為準.
func (h *Handler) deliverDraft(ctx context.Context, userID, recipientID string, req *SendMessageRequest) (*storage.Message, error) {
	draft, err := h.messages.GetByID(ctx, req.DraftID, userID)
	if err != nil {
		return nil, err
	}
	if !draft.Draft || draft.SenderID != userID {
		return nil, storage.ErrForbidden
	}

	now := time.Now().UTC()
	update := map[string]interface{}{
		"draft":              false,
		"recipient_id":       recipientID,
		"subject":            req.Subject,
		"content":            req.Content,
		"related_listing_id": req.RelatedListingID,
		"created_at":         now,
	}
	if err := h.messages.Update(ctx, draft.ID, update); err != nil {
		return nil, err
	}

	draft.Draft = false
	draft.RecipientID = recipientID
	draft.Subject = req.Subject
	draft.Content = req.Content
	draft.RelatedListingID = req.RelatedListingID
	draft.CreatedAt = now
	return draft, nil
}

// Reply 回覆訊息，收件人與關聯刊登承襲原訊息.
func (h *Handler) Reply(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage("Invalid request format"))
		return
	}

	req.Content = middleware.SanitizeInput(req.Content)

	if err := ValidateReplyRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	original, err := h.messages.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		httputil.StoreError(c, err)
		return
	}

	recipientID := original.Counterpart(userID)
	if recipientID == "" || recipientID == userID {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(ErrSelfSend.Error()))
		return
	}

	decoded, err := h.decodeAttachments(req.Attachments)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	subject := original.Subject
	if subject != "" && !strings.HasPrefix(subject, "Re: ") {
		subject = "Re: " + subject
	}

	msg := storage.NewMessage()
	msg.SenderID = userID
	msg.RecipientID = recipientID
	msg.Subject = subject
	msg.Content = req.Content
	msg.RelatedListingID = original.RelatedListingID

	if err := h.messages.Create(c.Request.Context(), &msg); err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	h.afterDelivery(&msg, decoded)

	c.JSON(http.StatusCreated, httputil.NewSuccessResponse(httputil.MessageSent, &msg))
}

// SaveDraft 保存草稿（帶 id 時更新既有草稿）.
func (h *Handler) SaveDraft(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage("Invalid request format"))
		return
	}

	req.Subject = middleware.SanitizeInput(req.Subject)
	req.Content = middleware.SanitizeInput(req.Content)

	if err := ValidateDraftRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	decoded, err := h.decodeAttachments(req.Attachments)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	// 草稿的收件人允許暫時無法解析，存原始輸入
	recipientID := strings.TrimSpace(req.Recipient)
	if recipientID != "" {
		if recipient, err := h.users.Resolve(c.Request.Context(), recipientID); err == nil {
			if recipient.ID == userID {
				c.JSON(http.StatusBadRequest, httputil.ErrorMessage(ErrSelfSend.Error()))
				return
			}
			recipientID = recipient.ID
		}
	}

	if req.ID != "" {
		draft, err := h.messages.GetByID(c.Request.Context(), req.ID, userID)
		if err != nil {
			httputil.StoreError(c, err)
			return
		}
		if !draft.Draft || draft.SenderID != userID {
			httputil.Forbidden(c, "")
			return
		}

		update := map[string]interface{}{
			"recipient_id":       recipientID,
			"subject":            req.Subject,
			"content":            req.Content,
			"related_listing_id": req.RelatedListingID,
		}
		if err := h.messages.Update(c.Request.Context(), draft.ID, update); err != nil {
			httputil.StoreError(c, err)
			return
		}

		draft.RecipientID = recipientID
		draft.Subject = req.Subject
		draft.Content = req.Content
		draft.RelatedListingID = req.RelatedListingID

		// 本次帶附件時覆蓋草稿既有附件
		if len(decoded) > 0 {
			go h.uploadAttachments(draft, decoded)
		}

		c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DraftSaved, draft))
		return
	}

	msg := storage.NewMessage()
	msg.SenderID = userID
	msg.RecipientID = recipientID
	msg.Subject = req.Subject
	msg.Content = req.Content
	msg.RelatedListingID = req.RelatedListingID
	msg.Draft = true

	if err := h.messages.Create(c.Request.Context(), &msg); err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	if len(decoded) > 0 {
		go h.uploadAttachments(&msg, decoded)
	}

	c.JSON(http.StatusCreated, httputil.NewSuccessResponse(httputil.DraftSaved, &msg))
}

// ListMessages 按資料夾列出訊息.
func (h *Handler) ListMessages(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	folder, err := ParseFolder(c.DefaultQuery("folder", string(FolderInbox)))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(httputil.InvalidFolder))
		return
	}

	now := time.Now().UTC()
	filter, err := FolderFilter(folder, userID, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(httputil.InvalidFolder))
		return
	}

	// 進入垃圾桶時順帶清理保留期已過的項目
	if folder == FolderTrash {
		cutoff := now.AddDate(0, 0, -storage.TrashRetentionDays)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if sweepErr := h.messages.SweepTrash(ctx, userID, cutoff); sweepErr != nil {
				logger.Error(ctx, fmt.Sprintf("垃圾桶清理失敗: %v", sweepErr), logger.WithUserID(userID))
			}
		}()
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	cursor := c.Query("cursor")

	messages, nextCursor, hasMore, err := h.messages.ListFolder(c.Request.Context(), userID, filter, limit, cursor)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if messages == nil {
		messages = []*storage.Message{}
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, &MessageListResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}))
}

// Search 在可見訊息中搜索.
func (h *Handler) Search(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage("搜索關鍵字不能為空"))
		return
	}

	filter := VisibleFilter(userID)
	if folderName := c.Query("folder"); folderName != "" {
		folder, err := ParseFolder(folderName)
		if err != nil {
			c.JSON(http.StatusBadRequest, httputil.ErrorMessage(httputil.InvalidFolder))
			return
		}
		filter, err = FolderFilter(folder, userID, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusBadRequest, httputil.ErrorMessage(httputil.InvalidFolder))
			return
		}
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.messages.Search(c.Request.Context(), userID, query, filter, limit)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if messages == nil {
		messages = []*storage.Message{}
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, messages))
}

// UnreadCount 未讀訊息計數（按寄件人去重，帶 TTL 快取）.
func (h *Handler) UnreadCount(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	count, stale := h.unread.Get(c.Request.Context(), userID)
	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, &UnreadCountResponse{
		Count: count,
		Stale: stale,
	}))
}

// GetMessage 獲取單一訊息，收件人首次讀取時隱式標記已讀.
func (h *Handler) GetMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		httputil.StoreError(c, err)
		return
	}

	// 收件人讀取後未讀計數失效，並把對話標記為開啟中
	if msg.RecipientID == userID && !msg.Draft {
		h.unread.Invalidate(userID)

		key := ConversationKey(msg.SenderID, msg.RelatedListingID)
		if trackErr := h.tracker.SetActiveConversation(c.Request.Context(), userID, key); trackErr != nil {
			logger.Warning(c.Request.Context(), fmt.Sprintf("標記開啟對話失敗: %v", trackErr),
				logger.WithUserID(userID))
		}
		h.tracker.ClearSuppression(c.Request.Context(), userID, key)
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, msg))
}

// MarkRead 標記訊息為已讀（僅收件人，重複呼叫為 no-op）.
func (h *Handler) MarkRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	if err := h.messages.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		httputil.StoreError(c, err)
		return
	}

	h.unread.Invalidate(userID)
	c.JSON(http.StatusOK, httputil.Success(httputil.DataUpdated))
}

// ToggleStar 切換星號標記（雙方共享）.
func (h *Handler) ToggleStar(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	starred, err := h.messages.ToggleStar(c.Request.Context(), id, userID)
	if err != nil {
		httputil.StoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataUpdated, gin.H{"starred": starred}))
}

// Archive 封存訊息（只影響操作者的視圖）.
func (h *Handler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

// Unarchive 取消封存.
func (h *Handler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *Handler) setArchived(c *gin.Context, archived bool) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	if err := h.messages.SetArchived(c.Request.Context(), id, userID, archived); err != nil {
		httputil.StoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.Success(httputil.DataUpdated))
}

// DeleteMessage 軟刪除訊息；對垃圾桶中的訊息再次執行時永久刪除.
func (h *Handler) DeleteMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := middleware.ValidateMessageID(id); err != nil {
		c.JSON(http.StatusBadRequest, httputil.ErrorMessage(err.Error()))
		return
	}

	hardDeleted, err := h.messages.SoftDelete(c.Request.Context(), id, userID)
	if err != nil {
		httputil.StoreError(c, err)
		return
	}

	h.unread.Invalidate(userID)
	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataDeleted, gin.H{"hard_deleted": hardDeleted}))
}

// ListConversations 按 (對方, 關聯刊登) 聚合的對話列表.
func (h *Handler) ListConversations(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	messages, err := h.messages.FetchUserMessages(c.Request.Context(), userID)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	conversations := BuildConversations(userID, messages)
	h.resolveReferences(c.Request.Context(), conversations)

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, conversations))
}

// resolveReferences 填充對話的用戶與刊登摘要，引用失效時保留 nil.
func (h *Handler) resolveReferences(ctx context.Context, conversations []*Conversation) {
	userCache := make(map[string]*account.UserSummary)
	listingCache := make(map[string]*listing.ListingSummary)

	for _, conv := range conversations {
		if cached, ok := userCache[conv.OtherPartyID]; ok {
			conv.OtherParty = cached
		} else {
			user, err := h.users.GetByID(ctx, conv.OtherPartyID)
			if err != nil {
				user = nil
			}
			userCache[conv.OtherPartyID] = user
			conv.OtherParty = user
		}

		if conv.ListingID == "" {
			continue
		}
		if cached, ok := listingCache[conv.ListingID]; ok {
			conv.Listing = cached
		} else {
			item, err := h.listings.GetByID(ctx, conv.ListingID)
			if err != nil {
				item = nil
			}
			listingCache[conv.ListingID] = item
			conv.Listing = item
		}
	}
}

// ListNotifications 列出站內通知.
func (h *Handler) ListNotifications(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.notifications.ListForUser(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if items == nil {
		items = []*notification.Notification{}
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse(httputil.DataRetrieved, items))
}

// MarkNotificationsRead 標記全部通知為已讀.
func (h *Handler) MarkNotificationsRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	modified, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.SuccessWithCount(httputil.NotificationsRead, int(modified)))
}

// decodeAttachments 解碼 base64 附件並嗅探類型，不允許的類型直接拒絕.
func (h *Handler) decodeAttachments(payloads []AttachmentPayload) ([]decodedAttachment, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	if h.uploader == nil {
		return nil, fmt.Errorf("%w: 附件功能未啟用", ErrInvalidAttachment)
	}

	decoded := make([]decodedAttachment, 0, len(payloads))
	for _, p := range payloads {
		data, err := base64.StdEncoding.DecodeString(p.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: 附件內容不是有效的 base64 編碼", ErrInvalidAttachment)
		}

		mimeType := http.DetectContentType(data)
		if !IsAllowedAttachmentType(mimeType) {
			return nil, fmt.Errorf("%w: 不支持的附件類型 %s", ErrInvalidAttachment, mimeType)
		}

		decoded = append(decoded, decodedAttachment{name: p.Name, data: data})
	}
	return decoded, nil
}

// afterDelivery 投遞後的非同步處理：附件上傳與收件人通知.
// 兩者都不阻塞發送流程，失敗只記錄日誌.
func (h *Handler) afterDelivery(msg *storage.Message, decoded []decodedAttachment) {
	h.unread.Invalidate(msg.RecipientID)

	if len(decoded) > 0 && h.uploader != nil {
		go h.uploadAttachments(msg, decoded)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.dispatcher.Timeout())
		defer cancel()
		conversationKey := ConversationKey(msg.SenderID, msg.RelatedListingID)
		h.dispatcher.DispatchNewMessage(ctx, msg, conversationKey)
	}()
}

// uploadAttachments 上傳附件並回寫訊息的附件元數據.
func (h *Handler) uploadAttachments(msg *storage.Message, decoded []decodedAttachment) {
	ctx, cancel := context.WithTimeout(context.Background(), h.uploader.Timeout())
	defer cancel()

	uploaded := make([]storage.Attachment, 0, len(decoded))
	for _, att := range decoded {
		result, err := h.uploader.Upload(ctx, att.name, att.data)
		if err != nil {
			logger.Error(ctx, fmt.Sprintf("附件上傳失敗: %v", err),
				logger.WithMessageID(msg.ID),
				logger.WithDetails(map[string]interface{}{"attachment": att.name}))
			continue
		}
		uploaded = append(uploaded, *result)
	}

	if len(uploaded) == 0 {
		return
	}

	if err := h.messages.Update(ctx, msg.ID, map[string]interface{}{"attachments": uploaded}); err != nil {
		logger.Error(ctx, fmt.Sprintf("回寫附件元數據失敗: %v", err), logger.WithMessageID(msg.ID))
	}
}
