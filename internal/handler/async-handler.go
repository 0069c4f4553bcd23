package handler

import (
	"context"
	"time"

	"alphaboutique/internal/domain"

	"go.uber.org/zap"
)

// PollNotifications checks the backend for new broadcast notifications and
// pushes each unseen one to live clients. The first poll only records what
// already exists.
func (h *Handler) PollNotifications(ctx context.Context) {
	h.logger.Info("Started notification poller", zap.Duration("interval", h.cfg.NotificationPollInterval))
	ticker := time.NewTicker(h.cfg.NotificationPollInterval)
	defer ticker.Stop()

	seen := make(map[string]struct{})
	h.checkNotifications(ctx, seen, true)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Notification poller stopped")
			return
		case <-ticker.C:
			h.checkNotifications(ctx, seen, false)
		}
	}
}

// checkNotifications returns the notifications that were new in this poll
func (h *Handler) checkNotifications(ctx context.Context, seen map[string]struct{}, prime bool) []domain.Notification {
	notifications, err := h.catalog.ListNotifications(ctx)
	if err != nil {
		h.logger.Warn("Notification poll failed", zap.Error(err))
		return nil
	}

	var fresh []domain.Notification
	for _, n := range notifications {
		key := notificationKey(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if !prime {
			fresh = append(fresh, n)
		}
	}

	for _, n := range fresh {
		h.live.Publish(EventNotification, n)
	}
	if len(fresh) > 0 {
		h.logger.Info("New notifications", zap.Int("count", len(fresh)))
	}
	return fresh
}

func notificationKey(n domain.Notification) string {
	if n.ID != "" {
		return n.ID.String()
	}
	return n.CreatedAt + "|" + n.Title
}
