package api

import (
	"context"
	"net/http"
	"net/url"

	"alphaboutique/internal/domain"
)

// ListOrders returns the orders placed with email
func (c *Client) ListOrders(ctx context.Context, email string) ([]domain.Order, error) {
	path := "/orders?" + url.Values{"email": {email}}.Encode()
	orders := []domain.Order{}
	if err := c.do(ctx, http.MethodGet, "orders_list", path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	orders := []domain.Order{}
	if err := c.do(ctx, http.MethodGet, "admin_orders", "/admin/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) ListItemRequests(ctx context.Context) ([]domain.ItemRequest, error) {
	requests := []domain.ItemRequest{}
	if err := c.do(ctx, http.MethodGet, "admin_requests", "/admin/requests", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (c *Client) SubmitItemRequest(ctx context.Context, req domain.ItemRequestPayload) error {
	return c.do(ctx, http.MethodPost, "requests_create", "/requests", req, nil)
}

// FulfillRequest marks an item request as fulfilled
func (c *Client) FulfillRequest(ctx context.Context, req domain.FulfillRequest) error {
	return c.do(ctx, http.MethodPost, "admin_fulfill", "/admin/fulfill", req, nil)
}

func (c *Client) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	feedback := []domain.Feedback{}
	if err := c.do(ctx, http.MethodGet, "admin_feedback", "/admin/feedback", nil, &feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, req domain.FeedbackPayload) error {
	return c.do(ctx, http.MethodPost, "feedback_create", "/feedback", req, nil)
}

func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	notifications := []domain.Notification{}
	if err := c.do(ctx, http.MethodGet, "notifications_list", "/notifications", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CreateNotification broadcasts a notification to every user
func (c *Client) CreateNotification(ctx context.Context, req domain.CreateNotificationRequest) error {
	return c.do(ctx, http.MethodPost, "notifications_create", "/notifications", req, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.AdminUser, error) {
	users := []domain.AdminUser{}
	if err := c.do(ctx, http.MethodGet, "admin_users", "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
