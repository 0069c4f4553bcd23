// admin-panel-handler.go
package handler

import (
	"net/http"

	"alphaboutique/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ===== ADMIN API =====

func (h *Handler) registerAdminRoutes(r *mux.Router) {
	r.Use(h.requireAdmin)

	r.HandleFunc("/summary", h.handleAdminSummary).Methods("GET")
	r.HandleFunc("/products", h.handleAdminProducts).Methods("GET")
	r.HandleFunc("/products", h.handleAdminCreateProduct).Methods("POST", "OPTIONS")
	r.HandleFunc("/products/{id}", h.handleAdminDeleteProduct).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/products/{id}/stock", h.handleAdminUpdateStock).Methods("PATCH", "OPTIONS")
	r.HandleFunc("/orders", h.handleAdminOrders).Methods("GET")
	r.HandleFunc("/requests", h.handleAdminRequests).Methods("GET")
	r.HandleFunc("/requests/{id}/fulfill", h.handleAdminFulfill).Methods("POST", "OPTIONS")
	r.HandleFunc("/feedback", h.handleAdminFeedback).Methods("GET")
	r.HandleFunc("/users", h.handleAdminUsers).Methods("GET")
	r.HandleFunc("/notifications", h.handleAdminNotifications).Methods("GET")
	r.HandleFunc("/notifications", h.handleAdminBroadcast).Methods("POST", "OPTIONS")
}

// requireAdmin rejects requests unless an admin is signed in
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.admin.Authorize(); err != nil {
			h.logger.Warn("Admin route refused", zap.String("path", r.URL.Path), zap.Error(err))
			h.sendServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin summary stats: orders, revenue, pending requests and feedback
func (h *Handler) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", summary)
}

func (h *Handler) handleAdminProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.admin.Products(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", products)
}

func (h *Handler) handleAdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	product, err := h.admin.CreateProduct(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Product created", product)
}

func (h *Handler) handleAdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Product deleted")
}

func (h *Handler) handleAdminUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStockRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.admin.UpdateStock(r.Context(), id, req.Stock); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Stock updated", req)
}

func (h *Handler) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.Orders(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", orders)
}

func (h *Handler) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.admin.Requests(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", requests)
}

// handleAdminFulfill takes the request id from the path; the body carries
// the item name and customer email
func (h *Handler) handleAdminFulfill(w http.ResponseWriter, r *http.Request) {
	var req domain.FulfillRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	req.RequestID = mux.Vars(r)["id"]

	if err := h.admin.FulfillRequest(r.Context(), req); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Request marked as fulfilled")
}

func (h *Handler) handleAdminFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := h.admin.Feedback(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", feedback)
}

func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", users)
}

func (h *Handler) handleAdminNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.admin.Notifications(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", notifications)
}

func (h *Handler) handleAdminBroadcast(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.admin.Broadcast(r.Context(), req); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Notification sent to all users")
}
