package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexID accepts both string and numeric ids from the backend
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// Product is a catalog entry as listed by the backend
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Description string `json:"description,omitempty"`
}

// CartProduct returns the subset the cart keeps
func (p Product) CartProduct() CartProduct {
	return CartProduct{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image}
}

// CreateProductRequest is the body of POST /products
type CreateProductRequest struct {
	Name        string `json:"name"`
	Price       int    `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Description string `json:"description,omitempty"`
}

// UpdateStockRequest is the body of PATCH /products/{id}/stock
type UpdateStockRequest struct {
	Stock int `json:"stock"`
}

// Order is a payment record
type Order struct {
	ID            FlexID  `json:"id"`
	UserEmail     string  `json:"user_email"`
	PhoneNumber   string  `json:"phone_number"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"` // pending, paid, failed, cancelled, refunded
	CreatedAt     string  `json:"created_at"`
}

// Notification types
const (
	NotificationInfo   = "info"
	NotificationAlert  = "alert"
	NotificationSystem = "system"
)

// Notification is a broadcast message shown to every user
type Notification struct {
	ID        FlexID `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// CreateNotificationRequest is the body of POST /notifications
type CreateNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// IsValidNotificationType checks the notification type
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationInfo, NotificationAlert, NotificationSystem:
		return true
	}
	return false
}

// ItemRequest is a customer's request for an item not in the catalog
type ItemRequest struct {
	ID        FlexID `json:"id"`
	ItemName  string `json:"item_name"`
	UserEmail string `json:"user_email"`
	Status    string `json:"status"` // pending, fulfilled
	CreatedAt string `json:"created_at,omitempty"`
}

// ItemRequestPayload is the body of POST /requests
type ItemRequestPayload struct {
	ItemName  string `json:"item_name"`
	UserEmail string `json:"user_email"`
}

// FulfillRequest is the body of POST /admin/fulfill
type FulfillRequest struct {
	RequestID string `json:"request_id"`
	ItemName  string `json:"item_name"`
	UserEmail string `json:"user_email"`
}

// Feedback is a free text message from a customer
type Feedback struct {
	ID        FlexID `json:"id"`
	UserEmail string `json:"user_email"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at,omitempty"`
}

// FeedbackPayload is the body of POST /feedback
type FeedbackPayload struct {
	UserEmail string `json:"user_email"`
	Message   string `json:"message"`
}

// AdminUser is a row of the admin users view
type AdminUser struct {
	ID        FlexID `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// STKPushRequest is the body of POST /auth/stkpush
type STKPushRequest struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int    `json:"amount"`
	UserEmail   string `json:"user_email,omitempty"`
}

// StatusResponse is the generic {status, message} body most mutations return
type StatusResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PaymentMethod identifies a checkout option
type PaymentMethod string

const (
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentCard  PaymentMethod = "card"
	PaymentBank  PaymentMethod = "bank"
)

// ParsePaymentMethod validates a payment method id
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMpesa, PaymentCard, PaymentBank:
		return m, true
	}
	return "", false
}

// DisplayName is the label shown on the payment screen
func (m PaymentMethod) DisplayName() string {
	switch m {
	case PaymentMpesa:
		return "M-Pesa"
	case PaymentCard:
		return "Credit/Debit Card"
	case PaymentBank:
		return "Bank Transfer"
	}
	return string(m)
}
