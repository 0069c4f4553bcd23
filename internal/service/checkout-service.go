package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/state"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidPhone   = errors.New("please enter a valid M-Pesa phone number")
	ErrUnknownPayment = errors.New("unknown payment method")
)

const minMpesaPhoneLength = 10

type PaymentBackend interface {
	STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.StatusResponse, error)
}

// Receipt describes what the payment screen shows after checkout
type Receipt struct {
	Method     domain.PaymentMethod `json:"method"`
	MethodName string               `json:"method_name"`
	Amount     int                  `json:"amount"`
	Items      int                  `json:"items"`
	Message    string               `json:"message"`
}

type CheckoutService struct {
	backend PaymentBackend
	cart    *state.CartStore
	session *state.SessionStore
	logger  *zap.Logger
}

func NewCheckoutService(backend PaymentBackend, cart *state.CartStore, session *state.SessionStore, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{backend: backend, cart: cart, session: session, logger: logger}
}

// Pay starts payment for the current cart. M-Pesa triggers an STK push to
// phone; card and bank transfer only place the order. The cart is left as is.
func (s *CheckoutService) Pay(ctx context.Context, method, phone string) (Receipt, error) {
	pm, ok := domain.ParsePaymentMethod(method)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownPayment, method)
	}

	cart := s.cart.State()
	if len(cart.Items) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	receipt := Receipt{
		Method:     pm,
		MethodName: pm.DisplayName(),
		Amount:     int(math.Round(cart.TotalAmount)),
		Items:      cart.TotalItems,
	}

	if pm != domain.PaymentMpesa {
		receipt.Message = fmt.Sprintf("Thank you for your order! You selected %s. We will contact you with payment instructions.", receipt.MethodName)
		s.logger.Info("Order placed", zap.String("method", string(pm)), zap.Int("amount", receipt.Amount))
		return receipt, nil
	}

	phone = strings.TrimSpace(phone)
	if len(phone) < minMpesaPhoneLength {
		return Receipt{}, ErrInvalidPhone
	}

	_, err := s.backend.STKPush(ctx, domain.STKPushRequest{
		PhoneNumber: phone,
		Amount:      receipt.Amount,
		UserEmail:   s.session.Get().Profile.Email,
	})
	if err != nil {
		s.logger.Error("STK push failed", zap.String("phone", phone), zap.Error(err))
		return Receipt{}, fmt.Errorf("initiate M-Pesa payment: %w", err)
	}

	receipt.Message = "Please check your phone for the M-Pesa STK push to complete the payment."
	s.logger.Info("STK push initiated", zap.String("phone", phone), zap.Int("amount", receipt.Amount))
	return receipt, nil
}
