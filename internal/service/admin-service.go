package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/notify"
	"alphaboutique/internal/state"

	"go.uber.org/zap"
)

var (
	ErrInvalidProduct      = errors.New("name, price, category and image are required")
	ErrInvalidStock        = errors.New("stock must not be negative")
	ErrInvalidNotification = errors.New("title and message are required")
)

type AdminBackend interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, stock int) error
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	ListItemRequests(ctx context.Context) ([]domain.ItemRequest, error)
	FulfillRequest(ctx context.Context, req domain.FulfillRequest) error
	ListFeedback(ctx context.Context) ([]domain.Feedback, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	CreateNotification(ctx context.Context, req domain.CreateNotificationRequest) error
	ListUsers(ctx context.Context) ([]domain.AdminUser, error)
}

// Dashboard is the summary shown on the admin home screen
type Dashboard struct {
	Orders          int     `json:"orders"`
	Revenue         float64 `json:"revenue"`
	PendingRequests int     `json:"pending_requests"`
	Feedback        int     `json:"feedback"`
}

// AdminService runs the admin portal screens. Every call requires an
// admin session.
type AdminService struct {
	backend  AdminBackend
	session  *state.SessionStore
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewAdminService(backend AdminBackend, session *state.SessionStore, notifier notify.Notifier, logger *zap.Logger) *AdminService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &AdminService{backend: backend, session: session, notifier: notifier, logger: logger}
}

// Authorize checks that the signed in user is an admin
func (s *AdminService) Authorize() error {
	sess := s.session.Get()
	if !sess.LoggedIn {
		return ErrNotLoggedIn
	}
	if !sess.Profile.IsAdmin() {
		return ErrAccessDenied
	}
	return nil
}

func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	if err := s.Authorize(); err != nil {
		return Dashboard{}, err
	}
	orders, err := s.backend.ListAllOrders(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list orders: %w", err)
	}
	requests, err := s.backend.ListItemRequests(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list requests: %w", err)
	}
	feedback, err := s.backend.ListFeedback(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list feedback: %w", err)
	}

	d := Dashboard{Orders: len(orders), Feedback: len(feedback)}
	for _, o := range orders {
		if o.Status == "paid" {
			d.Revenue += o.Amount
		}
	}
	for _, r := range requests {
		if r.Status != "fulfilled" {
			d.PendingRequests++
		}
	}
	return d, nil
}

func (s *AdminService) Products(ctx context.Context) ([]domain.Product, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListProducts(ctx, "")
}

func (s *AdminService) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Price <= 0 || req.Category == "" || strings.TrimSpace(req.Image) == "" {
		return nil, ErrInvalidProduct
	}

	product, err := s.backend.CreateProduct(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("Product created", zap.String("id", product.ID), zap.String("name", product.Name))
	s.notifier.ProductCreated(ctx, *product)
	return product, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Authorize(); err != nil {
		return err
	}
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	s.logger.Info("Product deleted", zap.String("id", id))
	s.notifier.ProductDeleted(ctx, id)
	return nil
}

func (s *AdminService) UpdateStock(ctx context.Context, id string, stock int) error {
	if err := s.Authorize(); err != nil {
		return err
	}
	if stock < 0 {
		return ErrInvalidStock
	}
	if err := s.backend.UpdateStock(ctx, id, stock); err != nil {
		return fmt.Errorf("update stock %s: %w", id, err)
	}
	s.notifier.StockUpdated(ctx, id, stock)
	return nil
}

func (s *AdminService) Orders(ctx context.Context) ([]domain.Order, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListAllOrders(ctx)
}

func (s *AdminService) Requests(ctx context.Context) ([]domain.ItemRequest, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListItemRequests(ctx)
}

func (s *AdminService) FulfillRequest(ctx context.Context, req domain.FulfillRequest) error {
	if err := s.Authorize(); err != nil {
		return err
	}
	if req.RequestID == "" {
		return fmt.Errorf("%w: request id", ErrMissingFields)
	}
	if err := s.backend.FulfillRequest(ctx, req); err != nil {
		return fmt.Errorf("fulfill request %s: %w", req.RequestID, err)
	}
	s.logger.Info("Request fulfilled", zap.String("request_id", req.RequestID), zap.String("email", req.UserEmail))
	s.notifier.RequestFulfilled(ctx, req)
	return nil
}

func (s *AdminService) Feedback(ctx context.Context) ([]domain.Feedback, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListFeedback(ctx)
}

func (s *AdminService) Users(ctx context.Context) ([]domain.AdminUser, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListUsers(ctx)
}

func (s *AdminService) Notifications(ctx context.Context) ([]domain.Notification, error) {
	if err := s.Authorize(); err != nil {
		return nil, err
	}
	return s.backend.ListNotifications(ctx)
}

// Broadcast sends a notification to every user. The type defaults to info.
func (s *AdminService) Broadcast(ctx context.Context, req domain.CreateNotificationRequest) error {
	if err := s.Authorize(); err != nil {
		return err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return ErrInvalidNotification
	}
	if !domain.IsValidNotificationType(req.Type) {
		req.Type = domain.NotificationInfo
	}

	if err := s.backend.CreateNotification(ctx, req); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.logger.Info("Notification broadcast", zap.String("title", req.Title), zap.String("type", req.Type))
	s.notifier.NotificationBroadcast(ctx, req)
	return nil
}
