package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/state"

	"go.uber.org/zap"
)

var ErrEmptyMessage = errors.New("message must not be empty")

type RequestBackend interface {
	SubmitItemRequest(ctx context.Context, req domain.ItemRequestPayload) error
	SubmitFeedback(ctx context.Context, req domain.FeedbackPayload) error
	ListOrders(ctx context.Context, email string) ([]domain.Order, error)
}

// RequestService sends customer requests and feedback on behalf of the signed in user
type RequestService struct {
	backend RequestBackend
	session *state.SessionStore
	logger  *zap.Logger
}

func NewRequestService(backend RequestBackend, session *state.SessionStore, logger *zap.Logger) *RequestService {
	return &RequestService{backend: backend, session: session, logger: logger}
}

func (s *RequestService) email() (string, error) {
	sess := s.session.Get()
	if !sess.LoggedIn || sess.Profile.Email == "" {
		return "", ErrNotLoggedIn
	}
	return sess.Profile.Email, nil
}

// RequestItem asks the shop to stock an item that is not in the catalog
func (s *RequestService) RequestItem(ctx context.Context, itemName string) error {
	email, err := s.email()
	if err != nil {
		return err
	}
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return fmt.Errorf("%w: item name", ErrEmptyMessage)
	}

	if err := s.backend.SubmitItemRequest(ctx, domain.ItemRequestPayload{ItemName: itemName, UserEmail: email}); err != nil {
		return fmt.Errorf("submit item request: %w", err)
	}
	s.logger.Info("Item requested", zap.String("item", itemName), zap.String("email", email))
	return nil
}

func (s *RequestService) SendFeedback(ctx context.Context, message string) error {
	email, err := s.email()
	if err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	if err := s.backend.SubmitFeedback(ctx, domain.FeedbackPayload{UserEmail: email, Message: message}); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	s.logger.Info("Feedback sent", zap.String("email", email))
	return nil
}

// MyOrders lists the signed in user's orders
func (s *RequestService) MyOrders(ctx context.Context) ([]domain.Order, error) {
	email, err := s.email()
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.ListOrders(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
