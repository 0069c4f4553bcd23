package handler

import (
	"net/http"

	"go.uber.org/zap"
)

type checkoutRequest struct {
	Method string `json:"method"`
	Phone  string `json:"phone"`
}

// handleCheckout pays for the current cart
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.logger.Info("Checkout requested",
		zap.String("method", req.Method),
		zap.Int("items", h.cart.TotalItems()))

	receipt, err := h.checkout.Pay(r.Context(), req.Method, req.Phone)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, receipt.Message, receipt)
}

// handleMyOrders lists the signed in user's orders
func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.requests.MyOrders(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", orders)
}
