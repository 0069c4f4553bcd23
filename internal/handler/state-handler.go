package handler

import (
	"errors"
	"net/http"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/repository"
	"alphaboutique/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type themeRequest struct {
	Preference   domain.ThemePreference `json:"preference,omitempty"`
	DeviceScheme *string                `json:"device_scheme,omitempty"`
}

// ===== SESSION =====

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, "", h.session.Get())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	profile, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Welcome back, "+profile.Name, h.session.Get())
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var form service.SignupForm
	if !h.decodeBody(w, r, &form) {
		return
	}

	res, err := h.auth.Signup(r.Context(), form)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	message := "Account created! Please sign in."
	if res.LoggedIn {
		message = "You are registered as a " + string(res.Profile.Role) + "."
	}
	h.sendSuccessResponse(w, message, res)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if !h.decodeBody(w, r, &update) {
		return
	}

	profile, err := h.auth.UpdateProfile(update)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendSuccessResponse(w, "Profile updated", profile)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout()
	h.sendSuccessResponse(w, "Logged out", h.session.Get())
}

// ===== CART =====

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, "", h.cart.State())
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var product domain.CartProduct
	if !h.decodeBody(w, r, &product) {
		return
	}
	product.ID = trimmed(product.ID)
	if product.ID == "" {
		h.sendErrorResponse(w, "product id is required", http.StatusBadRequest)
		return
	}

	h.cart.AddToCart(product)
	h.sendSuccessResponse(w, product.Name+" added to cart", h.cart.State())
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req quantityRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.cart.UpdateQuantity(id, req.Quantity)
	h.sendSuccessResponse(w, "", h.cart.State())
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveFromCart(mux.Vars(r)["id"])
	h.sendSuccessResponse(w, "", h.cart.State())
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart()
	h.sendSuccessResponse(w, "Cart cleared", h.cart.State())
}

// ===== THEME =====

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, "", h.theme.State())
}

// handleSetTheme changes the preference, the device scheme, or both
func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Preference == "" && req.DeviceScheme == nil {
		h.sendErrorResponse(w, "preference or device_scheme is required", http.StatusBadRequest)
		return
	}

	if req.DeviceScheme != nil {
		h.theme.SetDeviceScheme(domain.ParseColorScheme(*req.DeviceScheme))
	}
	if req.Preference != "" {
		err := h.theme.SetThemePreference(r.Context(), req.Preference)
		if errors.Is(err, domain.ErrInvalidPreference) {
			h.sendServiceError(w, err)
			return
		}
		if errors.Is(err, repository.ErrSuperseded) {
			h.sendErrorResponse(w, "Theme preference was replaced by a newer change", http.StatusConflict)
			return
		}
		if err != nil {
			h.logger.Warn("Theme change failed", zap.String("preference", string(req.Preference)), zap.Error(err))
			h.sendErrorResponse(w, "Could not save theme preference", http.StatusServiceUnavailable)
			return
		}
	}
	h.sendSuccessResponse(w, "", h.theme.State())
}
