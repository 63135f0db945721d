package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"marketplace-messaging/internal/constants"
	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/logger"
	"marketplace-messaging/internal/presence"
	"marketplace-messaging/internal/storage/database/account"
	storage "marketplace-messaging/internal/storage/database/messaging"
	"marketplace-messaging/internal/storage/database/notification"
)

// Dispatcher 新訊息通知分發器.
// 站內通知一律落庫；電郵只在收件人離線且抑制窗口外時發送.
// 分發失敗只記錄日誌，不影響訊息發送流程.
type Dispatcher struct {
	store   *notification.Store
	users   *account.UserStore
	tracker *presence.Tracker
}

// NewDispatcher 創建通知分發器.
func NewDispatcher(store *notification.Store, users *account.UserStore, tracker *presence.Tracker) *Dispatcher {
	return &Dispatcher{
		store:   store,
		users:   users,
		tracker: tracker,
	}
}

// Timeout 單次分發的超時時間.
func (d *Dispatcher) Timeout() time.Duration {
	cfg := config.Get()
	if cfg != nil && cfg.Notifications.TimeoutSeconds > 0 {
		return time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	}
	return time.Duration(constants.DefaultNotifyTimeoutSeconds) * time.Second
}

// DispatchNewMessage 為新送達的訊息通知收件人.
func (d *Dispatcher) DispatchNewMessage(ctx context.Context, message *storage.Message, conversationKey string) {
	sender, err := d.users.GetByID(ctx, message.SenderID)
	senderName := message.SenderID
	if err == nil {
		senderName = sender.DisplayName()
	}

	title := fmt.Sprintf("%s 傳來新訊息", senderName)
	body := message.Subject
	if body == "" {
		body = truncate(message.Content, 120)
	}

	notifType := notification.TypeNewMessage
	if strings.HasPrefix(message.Subject, "Re: ") {
		notifType = notification.TypeReply
	}

	n := notification.NewNotification(message.RecipientID, notifType, title, body)
	n.MessageID = message.ID
	n.SenderID = message.SenderID
	n.ListingID = message.RelatedListingID

	if err := d.store.Create(ctx, n); err != nil {
		logger.Error(ctx, fmt.Sprintf("創建站內通知失敗: %v", err),
			logger.WithUserID(message.RecipientID),
			logger.WithMessageID(message.ID))
	}

	// 在線用戶即時看到新訊息，不再發電郵
	if d.tracker.IsUserOnline(ctx, message.RecipientID) {
		return
	}

	// 同一對話在抑制窗口內只發一封
	if d.tracker.ShouldSuppressNotification(ctx, message.RecipientID, conversationKey) {
		return
	}

	if err := d.sendEmail(ctx, message.RecipientID, title, message); err != nil {
		logger.Error(ctx, fmt.Sprintf("發送電郵通知失敗: %v", err),
			logger.WithUserID(message.RecipientID),
			logger.WithMessageID(message.ID))
	}
}

// sendEmail 發送電郵通知.
func (d *Dispatcher) sendEmail(ctx context.Context, recipientID, title string, message *storage.Message) error {
	cfg := config.Get()
	if cfg == nil || !cfg.Notifications.Enabled || cfg.Notifications.SMTPHost == "" {
		return nil
	}

	recipient, err := d.users.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if recipient.Email == "" {
		return nil
	}

	body := fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		recipient.Email, cfg.Notifications.FromAddress, title, truncate(message.Content, 500))

	addr := fmt.Sprintf("%s:%d", cfg.Notifications.SMTPHost, cfg.Notifications.SMTPPort)

	var auth smtp.Auth
	if cfg.Notifications.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.Notifications.SMTPUsername, cfg.Notifications.SMTPPassword, cfg.Notifications.SMTPHost)
	}

	return smtp.SendMail(addr, auth, cfg.Notifications.FromAddress, []string{recipient.Email}, []byte(body))
}

// truncate 截斷過長的通知內文（按 rune 邊界）.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
