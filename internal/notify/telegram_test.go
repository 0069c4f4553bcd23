package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"alphaboutique/config"
	"alphaboutique/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func TestNewWithoutTokenIsNop(t *testing.T) {
	n, err := New(&config.Config{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := n.(Nop); !ok {
		t.Fatalf("New() = %T, want Nop", n)
	}
}

func TestTelegramEscapesHTML(t *testing.T) {
	sender := &fakeSender{}
	relay := NewTelegram(sender, 42, zaptest.NewLogger(t))

	relay.NotificationBroadcast(context.Background(), domain.CreateNotificationRequest{
		Title:   "<Flash> sale",
		Message: "Chairs & tables",
		Type:    domain.NotificationAlert,
	})

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != int64(42) || msg.ParseMode != models.ParseModeHTML {
		t.Fatalf("params = %+v", msg)
	}
	if !strings.Contains(msg.Text, "&lt;Flash&gt; sale") || !strings.Contains(msg.Text, "Chairs &amp; tables") {
		t.Fatalf("text not escaped: %q", msg.Text)
	}
}

func TestTelegramEvents(t *testing.T) {
	tests := []struct {
		name string
		emit func(*Telegram)
		want string
	}{
		{
			name: "fulfilled",
			emit: func(r *Telegram) {
				r.RequestFulfilled(context.Background(), domain.FulfillRequest{RequestID: "1", ItemName: "Lamp", UserEmail: "a@b.com"})
			},
			want: "Lamp",
		},
		{
			name: "product created",
			emit: func(r *Telegram) {
				r.ProductCreated(context.Background(), domain.Product{Name: "Sofa", Price: "45000", Category: "Living"})
			},
			want: "Ksh 45000",
		},
		{
			name: "product deleted",
			emit: func(r *Telegram) { r.ProductDeleted(context.Background(), "p9") },
			want: "p9",
		},
		{
			name: "stock",
			emit: func(r *Telegram) { r.StockUpdated(context.Background(), "p9", 12) },
			want: "Stock: 12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			tt.emit(NewTelegram(sender, 1, zaptest.NewLogger(t)))
			if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, tt.want) {
				t.Fatalf("sent = %+v, want text containing %q", sender.sent, tt.want)
			}
		})
	}
}

func TestTelegramLogsSendFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sender := &fakeSender{err: errors.New("chat not found")}
	relay := NewTelegram(sender, 7, zap.New(core))

	relay.ProductDeleted(context.Background(), "p1")

	entries := logs.FilterMessage("Failed to relay admin event").All()
	if len(entries) != 1 {
		t.Fatalf("error logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["event"]; got != "product_deleted" {
		t.Fatalf("event field = %v", got)
	}
}
