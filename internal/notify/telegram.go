// Package notify relays admin actions to an operator chat.
package notify

import (
	"context"
	"fmt"
	"html"

	"alphaboutique/config"
	"alphaboutique/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Notifier receives admin events. Implementations must not block the caller
// for long; a failed relay never fails the admin action.
type Notifier interface {
	NotificationBroadcast(ctx context.Context, n domain.CreateNotificationRequest)
	RequestFulfilled(ctx context.Context, req domain.FulfillRequest)
	ProductCreated(ctx context.Context, p domain.Product)
	ProductDeleted(ctx context.Context, id string)
	StockUpdated(ctx context.Context, id string, stock int)
}

// Nop discards every event
type Nop struct{}

func (Nop) NotificationBroadcast(context.Context, domain.CreateNotificationRequest) {}
func (Nop) RequestFulfilled(context.Context, domain.FulfillRequest)                {}
func (Nop) ProductCreated(context.Context, domain.Product)                         {}
func (Nop) ProductDeleted(context.Context, string)                                 {}
func (Nop) StockUpdated(context.Context, string, int)                              {}

// messageSender is the part of *bot.Bot the relay uses
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram posts admin events to one chat
type Telegram struct {
	sender messageSender
	chatID int64
	logger *zap.Logger
}

// New returns a Telegram relay when a token and chat are configured, and Nop otherwise
func New(cfg *config.Config, logger *zap.Logger) (Notifier, error) {
	if !cfg.TelegramEnabled() {
		logger.Info("Telegram relay disabled")
		return Nop{}, nil
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram relay enabled", zap.Int64("chat_id", cfg.TelegramAdminChatID))
	return NewTelegram(b, cfg.TelegramAdminChatID, logger), nil
}

func NewTelegram(sender messageSender, chatID int64, logger *zap.Logger) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, logger: logger}
}

func (t *Telegram) NotificationBroadcast(ctx context.Context, n domain.CreateNotificationRequest) {
	t.send(ctx, "notification", fmt.Sprintf("📢 <b>Notification sent</b>\n\n<b>%s</b> (%s)\n%s",
		html.EscapeString(n.Title),
		html.EscapeString(n.Type),
		html.EscapeString(n.Message)))
}

func (t *Telegram) RequestFulfilled(ctx context.Context, req domain.FulfillRequest) {
	t.send(ctx, "fulfill", fmt.Sprintf("✅ <b>Request fulfilled</b>\n\n📦 %s\n👤 %s",
		html.EscapeString(req.ItemName),
		html.EscapeString(req.UserEmail)))
}

func (t *Telegram) ProductCreated(ctx context.Context, p domain.Product) {
	t.send(ctx, "product_created", fmt.Sprintf("🆕 <b>Product added</b>\n\n%s\n💰 Ksh %s\n🏷️ %s",
		html.EscapeString(p.Name),
		html.EscapeString(p.Price),
		html.EscapeString(p.Category)))
}

func (t *Telegram) ProductDeleted(ctx context.Context, id string) {
	t.send(ctx, "product_deleted", fmt.Sprintf("🗑️ <b>Product deleted</b>\n\nID: %s", html.EscapeString(id)))
}

func (t *Telegram) StockUpdated(ctx context.Context, id string, stock int) {
	t.send(ctx, "stock_updated", fmt.Sprintf("📊 <b>Stock updated</b>\n\nID: %s\nStock: %d", html.EscapeString(id), stock))
}

func (t *Telegram) send(ctx context.Context, event, text string) {
	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		t.logger.Error("Failed to relay admin event",
			zap.String("event", event),
			zap.Int64("chat_id", t.chatID),
			zap.Error(err))
		return
	}
	t.logger.Debug("Admin event relayed", zap.String("event", event))
}
