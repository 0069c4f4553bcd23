package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

type itemRequestBody struct {
	ItemName string `json:"item_name"`
}

type feedbackBody struct {
	Message string `json:"message"`
}

func (h *Handler) handleRequestItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequestBody
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.requests.RequestItem(r.Context(), req.ItemName); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Request sent! We will notify you when "+trimmed(req.ItemName)+" is available.")
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackBody
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.requests.SendFeedback(r.Context(), req.Message); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Thank you for your feedback!")
}

// ===== CATALOG =====

// GET /api/catalog/products?category=...
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context(), trimmed(r.URL.Query().Get("category")))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", product)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", categories)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.catalog.ListNotifications(r.Context())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "", notifications)
}
