package handler

// handler.go
import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"alphaboutique/config"
	"alphaboutique/internal/api"
	"alphaboutique/internal/domain"
	"alphaboutique/internal/metrics"
	"alphaboutique/internal/service"
	"alphaboutique/internal/state"
)

// Response represents the API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Catalog is the read side of the backend the storefront browses
type Catalog interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
}

// Stores are the state containers the server exposes
type Stores struct {
	Session *state.SessionStore
	Cart    *state.CartStore
	Theme   *state.ThemeStore
}

// Services are the portal flows behind the API routes
type Services struct {
	Auth     *service.AuthService
	Checkout *service.CheckoutService
	Requests *service.RequestService
	Admin    *service.AdminService
	Catalog  Catalog
}

type Handler struct {
	logger   *zap.Logger
	cfg      *config.Config
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	session *state.SessionStore
	cart    *state.CartStore
	theme   *state.ThemeStore

	auth     *service.AuthService
	checkout *service.CheckoutService
	requests *service.RequestService
	admin    *service.AdminService
	catalog  Catalog

	live *LiveHub
}

func NewHandler(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, stores Stores, services Services) *Handler {
	h := &Handler{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
		session:  stores.Session,
		cart:     stores.Cart,
		theme:    stores.Theme,
		auth:     services.Auth,
		checkout: services.Checkout,
		requests: services.Requests,
		admin:    services.Admin,
		catalog:  services.Catalog,
		live:     NewLiveHub(logger, m),
	}
	h.bindLive()
	return h
}

// bindLive forwards store changes and persistence faults to the live hub
func (h *Handler) bindLive() {
	publishFault := func(f state.Fault) { h.live.Publish(EventFault, f) }

	h.session.Subscribe(func(s domain.SessionState) { h.live.Publish(EventSession, s) })
	h.cart.Subscribe(func(s domain.CartState) { h.live.Publish(EventCart, s) })
	h.theme.Subscribe(func(s domain.ThemeState) { h.live.Publish(EventTheme, s) })
	h.session.SubscribeFaults(publishFault)
	h.cart.SubscribeFaults(publishFault)
	h.theme.SubscribeFaults(publishFault)

	// a change published since subscribing is already queued and wins over these
	h.live.Prime(EventSession, h.session.Get())
	h.live.Prime(EventCart, h.cart.State())
	h.live.Prime(EventTheme, h.theme.State())
}

// Router builds the routes of the local state server
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(h.corsMiddleware)
	r.Use(h.requestLogger)

	// State
	r.HandleFunc("/api/session", h.handleGetSession).Methods("GET")
	r.HandleFunc("/api/session", h.handleLogin).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/session", h.handleUpdateProfile).Methods("PATCH", "OPTIONS")
	r.HandleFunc("/api/session", h.handleLogout).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/signup", h.handleSignup).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/cart", h.handleGetCart).Methods("GET")
	r.HandleFunc("/api/cart", h.handleClearCart).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/cart/items", h.handleAddToCart).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/cart/items/{id}", h.handleUpdateQuantity).Methods("PATCH", "OPTIONS")
	r.HandleFunc("/api/cart/items/{id}", h.handleRemoveFromCart).Methods("DELETE", "OPTIONS")

	r.HandleFunc("/api/theme", h.handleGetTheme).Methods("GET")
	r.HandleFunc("/api/theme", h.handleSetTheme).Methods("PUT", "OPTIONS")

	// Storefront
	r.HandleFunc("/api/checkout", h.handleCheckout).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/orders", h.handleMyOrders).Methods("GET")
	r.HandleFunc("/api/requests", h.handleRequestItem).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/feedback", h.handleFeedback).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/catalog/products", h.handleListProducts).Methods("GET")
	r.HandleFunc("/api/catalog/products/{id}", h.handleGetProduct).Methods("GET")
	r.HandleFunc("/api/catalog/categories", h.handleListCategories).Methods("GET")
	r.HandleFunc("/api/notifications", h.handleListNotifications).Methods("GET")

	if h.cfg.IsAdminPortal() {
		h.registerAdminRoutes(r.PathPrefix("/api/admin").Subrouter())
	}

	r.HandleFunc("/ws/state", h.handleLiveState)

	if h.cfg.MetricsEnabled && h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"portal":    h.cfg.Portal,
			"logged_in": h.session.IsLoggedIn(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return r
}

// StartWebServer serves the state API until ctx is cancelled
func (h *Handler) StartWebServer(ctx context.Context) error {
	go h.live.Run(ctx)
	go h.PollNotifications(ctx)

	server := &http.Server{
		Addr:           h.cfg.GetServerAddress(),
		Handler:        h.Router(),
		ReadTimeout:    h.cfg.ReadTimeout,
		WriteTimeout:   h.cfg.WriteTimeout,
		IdleTimeout:    h.cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	h.logger.Info("Starting state server",
		zap.String("addr", server.Addr),
		zap.String("portal", h.cfg.Portal))
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Error("State server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	h.logger.Info("Shutting down state server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		h.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+h.cfg.BypassHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger tags each request with an id and logs it at debug level
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("Handled request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendErrorResponse sends a failed Response envelope
func (h *Handler) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Message: message,
	})
}

// sendSuccessResponse sends a success response with optional data
func (h *Handler) sendSuccessResponse(w http.ResponseWriter, message string, data ...interface{}) {
	response := Response{
		Success: true,
		Message: message,
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	writeJSON(w, http.StatusOK, response)
}

// decodeBody reads a JSON body into v and answers 400 on failure
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debug("Failed to parse request body", zap.String("path", r.URL.Path), zap.Error(err))
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// sendServiceError maps a service or backend error onto a status code and
// the message the screens show
func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		h.sendErrorResponse(w, api.DetailOf(err, "Something went wrong. Please try again."), status)
	case errors.Is(err, api.ErrNetwork):
		h.sendErrorResponse(w, "Could not connect to the Alpha Smart server.", http.StatusBadGateway)
	case errors.Is(err, service.ErrNotLoggedIn):
		h.sendErrorResponse(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrAccessDenied):
		h.sendErrorResponse(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrUnknownPayment),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidStock),
		errors.Is(err, service.ErrInvalidNotification),
		errors.Is(err, domain.ErrInvalidPreference):
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.sendErrorResponse(w, "Request timed out", http.StatusGatewayTimeout)
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		h.sendErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
