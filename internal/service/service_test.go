package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"alphaboutique/config"
	"alphaboutique/internal/api"
	"alphaboutique/internal/domain"
	"alphaboutique/internal/repository"
	"alphaboutique/internal/state"

	"go.uber.org/zap/zaptest"
)

// fakeBackend implements every backend interface the services use
type fakeBackend struct {
	loginResp  *domain.AuthResponse
	signupResp *domain.AuthResponse
	err        error

	lastSignup   domain.SignupRequest
	lastPush     *domain.STKPushRequest
	itemRequests []domain.ItemRequestPayload
	feedback     []domain.FeedbackPayload
	broadcasts   []domain.CreateNotificationRequest
	fulfilled    []domain.FulfillRequest
	orders       []domain.Order
	requests     []domain.ItemRequest
}

func (f *fakeBackend) Login(_ context.Context, _ domain.LoginRequest) (*domain.AuthResponse, error) {
	return f.loginResp, f.err
}

func (f *fakeBackend) Signup(_ context.Context, req domain.SignupRequest) (*domain.AuthResponse, error) {
	f.lastSignup = req
	return f.signupResp, f.err
}

func (f *fakeBackend) STKPush(_ context.Context, req domain.STKPushRequest) (*domain.StatusResponse, error) {
	f.lastPush = &req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StatusResponse{Status: "success"}, nil
}

func (f *fakeBackend) SubmitItemRequest(_ context.Context, req domain.ItemRequestPayload) error {
	f.itemRequests = append(f.itemRequests, req)
	return f.err
}

func (f *fakeBackend) SubmitFeedback(_ context.Context, req domain.FeedbackPayload) error {
	f.feedback = append(f.feedback, req)
	return f.err
}

func (f *fakeBackend) ListOrders(context.Context, string) ([]domain.Order, error) {
	return f.orders, f.err
}

func (f *fakeBackend) ListProducts(context.Context, string) ([]domain.Product, error) {
	return nil, f.err
}

func (f *fakeBackend) CreateProduct(_ context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Product{ID: "new", Name: req.Name, Category: req.Category}, nil
}

func (f *fakeBackend) DeleteProduct(context.Context, string) error   { return f.err }
func (f *fakeBackend) UpdateStock(context.Context, string, int) error { return f.err }

func (f *fakeBackend) ListAllOrders(context.Context) ([]domain.Order, error) {
	return f.orders, f.err
}

func (f *fakeBackend) ListItemRequests(context.Context) ([]domain.ItemRequest, error) {
	return f.requests, f.err
}

func (f *fakeBackend) FulfillRequest(_ context.Context, req domain.FulfillRequest) error {
	f.fulfilled = append(f.fulfilled, req)
	return f.err
}

func (f *fakeBackend) ListFeedback(context.Context) ([]domain.Feedback, error) {
	return []domain.Feedback{{Message: "great"}}, f.err
}

func (f *fakeBackend) ListNotifications(context.Context) ([]domain.Notification, error) {
	return nil, f.err
}

func (f *fakeBackend) CreateNotification(_ context.Context, req domain.CreateNotificationRequest) error {
	f.broadcasts = append(f.broadcasts, req)
	return f.err
}

func (f *fakeBackend) ListUsers(context.Context) ([]domain.AdminUser, error) {
	return nil, f.err
}

// recordingNotifier counts relayed admin events
type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) NotificationBroadcast(context.Context, domain.CreateNotificationRequest) {
	r.events = append(r.events, "broadcast")
}
func (r *recordingNotifier) RequestFulfilled(context.Context, domain.FulfillRequest) {
	r.events = append(r.events, "fulfilled")
}
func (r *recordingNotifier) ProductCreated(context.Context, domain.Product) {
	r.events = append(r.events, "created")
}
func (r *recordingNotifier) ProductDeleted(context.Context, string) {
	r.events = append(r.events, "deleted")
}
func (r *recordingNotifier) StockUpdated(context.Context, string, int) {
	r.events = append(r.events, "stock")
}

type fixture struct {
	kv      *repository.MemoryKVRepository
	queue   *repository.WriteQueue
	session *state.SessionStore
	cart    *state.CartStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	kv := repository.NewMemoryKVRepository()
	q := repository.NewWriteQueue(kv, logger, nil)
	f := &fixture{
		kv:      kv,
		queue:   q,
		session: state.NewSessionStore("user_session", q, logger, nil),
		cart:    state.NewCartStore("@alpha_smart_cart", q, logger, nil),
	}
	f.session.Initialize(context.Background())
	f.cart.Initialize(context.Background())
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.queue.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func portal(admin bool) *config.Config {
	if admin {
		return &config.Config{Portal: config.PortalAdmin}
	}
	return &config.Config{Portal: config.PortalStorefront}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		admin      bool
		email      string
		password   string
		resp       *domain.AuthResponse
		backendErr error
		wantErr    error
		wantRole   domain.Role
	}{
		{name: "storefront user", email: "ana@example.com", password: "pw", resp: &domain.AuthResponse{Role: "User", Name: "Ana", Email: "ana@example.com"}, wantRole: domain.RoleUser},
		{name: "admin portal admin", admin: true, email: "boss@example.com", password: "pw", resp: &domain.AuthResponse{Role: "Admin", Name: "Boss", Email: "boss@example.com"}, wantRole: domain.RoleAdmin},
		{name: "admin portal rejects user", admin: true, email: "ana@example.com", password: "pw", resp: &domain.AuthResponse{Role: "User", Email: "ana@example.com"}, wantErr: ErrAccessDenied},
		{name: "missing password", email: "ana@example.com", wantErr: ErrMissingCredentials},
		{name: "backend rejects", email: "ana@example.com", password: "bad", backendErr: &api.Error{StatusCode: 401, Detail: "Invalid credentials"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			backend := &fakeBackend{loginResp: tt.resp, err: tt.backendErr}
			auth := NewAuthService(backend, f.session, portal(tt.admin), zaptest.NewLogger(t))

			profile, err := auth.Login(context.Background(), tt.email, tt.password)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				if f.session.IsLoggedIn() {
					t.Fatal("session changed on failed login")
				}
			case tt.backendErr != nil:
				if api.DetailOf(err, "") != "Invalid credentials" {
					t.Fatalf("Login() error = %v, want backend detail", err)
				}
				if f.session.IsLoggedIn() {
					t.Fatal("session changed on failed login")
				}
			default:
				if err != nil {
					t.Fatalf("Login() error = %v", err)
				}
				if profile.Role != tt.wantRole || !f.session.IsLoggedIn() {
					t.Fatalf("profile = %+v, logged in %v", profile, f.session.IsLoggedIn())
				}
			}
		})
	}
}

func TestStorefrontSignupLogsInWithProfileFields(t *testing.T) {
	f := newFixture(t)
	backend := &fakeBackend{signupResp: &domain.AuthResponse{Status: "success", Role: "User"}}
	auth := NewAuthService(backend, f.session, portal(false), zaptest.NewLogger(t))

	res, err := auth.Signup(context.Background(), SignupForm{
		FirstName:       "Ana",
		LastName:        "Kamau",
		Email:           "ana@example.com",
		Password:        "pw",
		ConfirmPassword: "pw",
		Phone:           "0712345678",
		DateOfBirth:     "1995-04-01",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if !res.LoggedIn {
		t.Fatal("storefront signup should log in")
	}
	got := f.session.Get().Profile
	if got.Name != "Ana" || got.Phone != "0712345678" || got.DateOfBirth != "1995-04-01" || got.Role != domain.RoleUser {
		t.Fatalf("profile = %+v", got)
	}
	if backend.lastSignup.FirstName != "Ana" || backend.lastSignup.LastName != "Kamau" {
		t.Fatalf("signup request = %+v", backend.lastSignup)
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name    string
		admin   bool
		form    SignupForm
		wantErr error
	}{
		{name: "missing last name", form: SignupForm{FirstName: "A", Email: "a@b.com", Password: "pw", ConfirmPassword: "pw"}, wantErr: ErrMissingFields},
		{name: "password mismatch", form: SignupForm{FirstName: "A", LastName: "B", Email: "a@b.com", Password: "pw", ConfirmPassword: "px"}, wantErr: ErrPasswordMismatch},
		{name: "admin needs code", admin: true, form: SignupForm{FirstName: "A", LastName: "B", Email: "a@b.com", Password: "pw"}, wantErr: ErrMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			auth := NewAuthService(&fakeBackend{}, f.session, portal(tt.admin), zaptest.NewLogger(t))
			if _, err := auth.Signup(context.Background(), tt.form); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Signup() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdminSignup(t *testing.T) {
	form := SignupForm{FirstName: "B", LastName: "C", Email: "boss@example.com", Password: "pw", AdminCode: "123456"}
	tests := []struct {
		name         string
		resp         *domain.AuthResponse
		wantErr      error
		wantLoggedIn bool
	}{
		{name: "wrong code", resp: &domain.AuthResponse{Role: "User", Email: "boss@example.com"}, wantErr: ErrAccessDenied},
		{name: "no token", resp: &domain.AuthResponse{Role: "Admin", Email: "boss@example.com"}},
		{name: "token", resp: &domain.AuthResponse{Role: "Admin", Email: "boss@example.com", AccessToken: "t"}, wantLoggedIn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			auth := NewAuthService(&fakeBackend{signupResp: tt.resp}, f.session, portal(true), zaptest.NewLogger(t))

			res, err := auth.Signup(context.Background(), form)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Signup() error = %v, want %v", err, tt.wantErr)
			}
			if res.LoggedIn != tt.wantLoggedIn || f.session.IsLoggedIn() != tt.wantLoggedIn {
				t.Fatalf("logged in = %v / %v, want %v", res.LoggedIn, f.session.IsLoggedIn(), tt.wantLoggedIn)
			}
		})
	}
}

func TestUpdateProfileRequiresLogin(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(&fakeBackend{}, f.session, portal(false), zaptest.NewLogger(t))

	if _, err := auth.UpdateProfile(domain.ProfileUpdate{Phone: domain.StringPtr("0700000000")}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("UpdateProfile() error = %v, want ErrNotLoggedIn", err)
	}

	f.session.Login(domain.UserProfile{Email: "ana@example.com", Name: "Ana", Role: domain.RoleUser})
	profile, err := auth.UpdateProfile(domain.ProfileUpdate{Phone: domain.StringPtr("0700000000")})
	if err != nil || profile.Phone != "0700000000" || profile.Email != "ana@example.com" {
		t.Fatalf("UpdateProfile() = %+v, %v", profile, err)
	}
	auth.Logout()
	f.flush(t)
	if f.session.IsLoggedIn() {
		t.Fatal("Logout() left session logged in")
	}
	if _, found, _ := f.kv.Get(context.Background(), "user_session"); found {
		t.Fatal("stored session survived Logout()")
	}
}

func TestCheckout(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		phone    string
		fill     bool
		wantErr  error
		wantPush bool
	}{
		{name: "empty cart", method: "mpesa", phone: "0712345678", wantErr: ErrEmptyCart},
		{name: "short phone", method: "mpesa", phone: "+2547", fill: true, wantErr: ErrInvalidPhone},
		{name: "unknown method", method: "paypal", fill: true, wantErr: ErrUnknownPayment},
		{name: "mpesa", method: "mpesa", phone: "+254712345678", fill: true, wantPush: true},
		{name: "card", method: "card", fill: true},
		{name: "bank", method: "bank", fill: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.session.Login(domain.UserProfile{Email: "ana@example.com", Name: "Ana", Role: domain.RoleUser})
			if tt.fill {
				f.cart.AddToCart(domain.CartProduct{ID: "p1", Name: "Chair", Price: "Ksh 15,000.50"})
				f.cart.AddToCart(domain.CartProduct{ID: "p1", Name: "Chair", Price: "Ksh 15,000.50"})
			}
			backend := &fakeBackend{}
			checkout := NewCheckoutService(backend, f.cart, f.session, zaptest.NewLogger(t))

			receipt, err := checkout.Pay(context.Background(), tt.method, tt.phone)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Pay() error = %v, want %v", err, tt.wantErr)
			}
			if (backend.lastPush != nil) != tt.wantPush {
				t.Fatalf("STK push sent = %v, want %v", backend.lastPush != nil, tt.wantPush)
			}
			if tt.wantErr != nil {
				return
			}
			if receipt.Amount != 30001 || receipt.Items != 2 {
				t.Fatalf("receipt = %+v, want amount 30001 for 2 items", receipt)
			}
			if tt.wantPush && (backend.lastPush.Amount != 30001 || backend.lastPush.UserEmail != "ana@example.com") {
				t.Fatalf("push = %+v", backend.lastPush)
			}
			if f.cart.TotalItems() != 2 {
				t.Fatal("checkout should keep the cart")
			}
		})
	}
}

func TestRequestsNeedLoginAndText(t *testing.T) {
	f := newFixture(t)
	backend := &fakeBackend{}
	svc := NewRequestService(backend, f.session, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := svc.RequestItem(ctx, "Lamp"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("RequestItem() logged out error = %v", err)
	}

	f.session.Login(domain.UserProfile{Email: "ana@example.com", Name: "Ana", Role: domain.RoleUser})
	if err := svc.SendFeedback(ctx, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("SendFeedback(blank) error = %v", err)
	}
	if err := svc.RequestItem(ctx, " Lamp "); err != nil {
		t.Fatalf("RequestItem() error = %v", err)
	}
	if err := svc.SendFeedback(ctx, "Fast delivery"); err != nil {
		t.Fatalf("SendFeedback() error = %v", err)
	}

	if len(backend.itemRequests) != 1 || backend.itemRequests[0] != (domain.ItemRequestPayload{ItemName: "Lamp", UserEmail: "ana@example.com"}) {
		t.Fatalf("item requests = %+v", backend.itemRequests)
	}
	if len(backend.feedback) != 1 || backend.feedback[0].UserEmail != "ana@example.com" {
		t.Fatalf("feedback = %+v", backend.feedback)
	}
}

func TestAdminRequiresAdminSession(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(&fakeBackend{}, f.session, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := svc.Orders(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Orders() logged out error = %v", err)
	}
	f.session.Login(domain.UserProfile{Email: "ana@example.com", Role: domain.RoleUser})
	if err := svc.DeleteProduct(ctx, "p1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("DeleteProduct() as user error = %v", err)
	}
}

func TestAdminActionsRelayToNotifier(t *testing.T) {
	f := newFixture(t)
	f.session.Login(domain.UserProfile{Email: "boss@example.com", Role: domain.RoleAdmin})
	backend := &fakeBackend{
		orders: []domain.Order{
			{Amount: 1000, Status: "paid"},
			{Amount: 500, Status: "pending"},
		},
		requests: []domain.ItemRequest{{Status: "pending"}, {Status: "fulfilled"}},
	}
	notifier := &recordingNotifier{}
	svc := NewAdminService(backend, f.session, notifier, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Sofa", Price: 45000, Category: "Living", Image: "sofa.png"}); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if err := svc.UpdateStock(ctx, "p1", 3); err != nil {
		t.Fatalf("UpdateStock() error = %v", err)
	}
	if err := svc.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if err := svc.FulfillRequest(ctx, domain.FulfillRequest{RequestID: "r1", ItemName: "Lamp"}); err != nil {
		t.Fatalf("FulfillRequest() error = %v", err)
	}
	if err := svc.Broadcast(ctx, domain.CreateNotificationRequest{Title: "Sale", Message: "20% off", Type: "weird"}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	want := []string{"created", "stock", "deleted", "fulfilled", "broadcast"}
	if len(notifier.events) != len(want) {
		t.Fatalf("events = %v, want %v", notifier.events, want)
	}
	for i := range want {
		if notifier.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", notifier.events, want)
		}
	}
	if backend.broadcasts[0].Type != domain.NotificationInfo {
		t.Fatalf("broadcast type = %q, want info", backend.broadcasts[0].Type)
	}

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.Orders != 2 || d.Revenue != 1000 || d.PendingRequests != 1 || d.Feedback != 1 {
		t.Fatalf("Dashboard() = %+v", d)
	}
}

func TestAdminValidation(t *testing.T) {
	f := newFixture(t)
	f.session.Login(domain.UserProfile{Email: "boss@example.com", Role: domain.RoleAdmin})
	svc := NewAdminService(&fakeBackend{}, f.session, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Sofa"}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if err := svc.UpdateStock(ctx, "p1", -1); !errors.Is(err, ErrInvalidStock) {
		t.Fatalf("UpdateStock() error = %v", err)
	}
	if err := svc.Broadcast(ctx, domain.CreateNotificationRequest{Title: "Only title"}); !errors.Is(err, ErrInvalidNotification) {
		t.Fatalf("Broadcast() error = %v", err)
	}
}
