package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
)

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: "jane_doe",
		Email:    "Jane@Example.com",
		Password: "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	reg := decode[SessionResponse](t, w)
	if reg.User.Email != "jane@example.com" || reg.Session == nil || reg.Session.SessionID == "" {
		t.Fatalf("unexpected register response %+v", reg)
	}

	// Registration logs the user in.
	w = api.do(t, http.MethodGet, "/api/auth/me", reg.Session.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if me := decode[UserResponse](t, w); me.User.ID != reg.User.ID {
		t.Errorf("me returned %s, want %s", me.User.ID, reg.User.ID)
	}

	w = api.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "jane@example.com", Password: "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	login := decode[SessionResponse](t, w)
	if login.Session.SessionID == reg.Session.SessionID {
		t.Error("login should open a new session")
	}

	w = api.do(t, http.MethodGet, "/api/auth/validate", login.Session.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = api.do(t, http.MethodPost, "/api/auth/logout", login.Session.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	expectError(t, api.do(t, http.MethodGet, "/api/auth/me", login.Session.SessionID, nil), http.StatusUnauthorized)

	// The registration session is independent.
	if w := api.do(t, http.MethodGet, "/api/auth/me", reg.Session.SessionID, nil); w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestAuthErrors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{
			name:   "duplicate email",
			method: http.MethodPost,
			path:   "/api/auth/register",
			body:   models.RegisterRequest{Username: "other", Email: adminEmail, Password: "secret1"},
			status: http.StatusConflict,
			msg:    "Email is already registered",
		},
		{
			name:   "short password",
			method: http.MethodPost,
			path:   "/api/auth/register",
			body:   models.RegisterRequest{Username: "newbie", Email: "new@example.com", Password: "123"},
			status: http.StatusBadRequest,
			msg:    "password must be at least 6 characters long",
		},
		{
			name:   "bad username",
			method: http.MethodPost,
			path:   "/api/auth/register",
			body:   models.RegisterRequest{Username: "no spaces", Email: "new@example.com", Password: "secret1"},
			status: http.StatusBadRequest,
			msg:    "Username can only contain letters, numbers, and underscores",
		},
		{
			name:   "wrong password",
			method: http.MethodPost,
			path:   "/api/auth/login",
			body:   models.LoginRequest{Email: adminEmail, Password: "nope"},
			status: http.StatusUnauthorized,
			msg:    "Invalid email or password",
		},
		{
			name:   "unknown email",
			method: http.MethodPost,
			path:   "/api/auth/login",
			body:   models.LoginRequest{Email: "ghost@example.com", Password: "whatever"},
			status: http.StatusUnauthorized,
			msg:    "Invalid email or password",
		},
		{
			name:   "me without token",
			method: http.MethodGet,
			path:   "/api/auth/me",
			status: http.StatusUnauthorized,
			msg:    "Authentication required",
		},
		{
			name:   "logout without token",
			method: http.MethodPost,
			path:   "/api/auth/logout",
			status: http.StatusUnauthorized,
			msg:    "Authentication required",
		},
		{
			name:   "reset with unknown token",
			method: http.MethodPost,
			path:   "/api/auth/reset-password",
			body:   models.ResetPasswordRequest{Token: "missing", Password: "newsecret"},
			status: http.StatusBadRequest,
			msg:    "Reset token is invalid or expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := expectError(t, api.do(t, tt.method, tt.path, "", tt.body), tt.status)
			if resp.Error != tt.msg {
				t.Errorf("error = %q, want %q", resp.Error, tt.msg)
			}
		})
	}
}

// tokenNotifier keeps the last reset token per email.
type tokenNotifier map[string]string

func (n tokenNotifier) SendPasswordReset(ctx context.Context, user *models.User, token string) error {
	n[user.Email] = token
	return nil
}

func TestPasswordReset(t *testing.T) {
	log := discardLogger()
	ctx := context.Background()
	notifier := tokenNotifier{}

	products := service.NewProductService(repository.NewInMemoryProductRepository(), log)
	auth, err := service.NewAuthService(ctx, repository.NewInMemoryUserRepository(), repository.NewInMemorySessionRepository(),
		notifier, service.AuthOptions{SessionTTL: time.Hour, ResetTTL: time.Hour, BcryptCost: bcrypt.MinCost}, log)
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}
	api := &testAPI{handler: NewRouter(RouterConfig{AuthRatePerMinute: 600}, products, auth, log)}

	if w := api.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: "forgetful", Email: "forgetful@example.com", Password: "oldsecret",
	}); w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}

	// Unknown and known addresses get the same answer.
	for _, email := range []string{"nobody@example.com", "forgetful@example.com"} {
		w := api.do(t, http.MethodPost, "/api/auth/forgot-password", "", models.ForgotPasswordRequest{Email: email})
		if w.Code != http.StatusOK {
			t.Fatalf("forgot-password(%s): expected 200, got %d", email, w.Code)
		}
	}
	token, ok := notifier["forgetful@example.com"]
	if !ok || len(notifier) != 1 {
		t.Fatalf("expected exactly one reset token, got %v", notifier)
	}

	reset := models.ResetPasswordRequest{Token: token, Password: "newsecret"}
	if w := api.do(t, http.MethodPost, "/api/auth/reset-password", "", reset); w.Code != http.StatusOK {
		t.Fatalf("reset-password: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, api.do(t, http.MethodPost, "/api/auth/reset-password", "", reset), http.StatusBadRequest)

	expectError(t, api.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: "forgetful@example.com", Password: "oldsecret"}), http.StatusUnauthorized)
	if w := api.do(t, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Email: "forgetful@example.com", Password: "newsecret"}); w.Code != http.StatusOK {
		t.Errorf("login with new password: expected 200, got %d", w.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	log := discardLogger()
	api := newTestAPI(t)
	api.handler = NewRouter(RouterConfig{AuthRatePerMinute: 1}, api.products, api.auth, log)

	body := models.LoginRequest{Email: "ghost@example.com", Password: "whatever"}
	for i := 0; i < authBurst; i++ {
		expectError(t, api.do(t, http.MethodPost, "/api/auth/login", "", body), http.StatusUnauthorized)
	}

	w := api.do(t, http.MethodPost, "/api/auth/login", "", body)
	expectError(t, w, http.StatusTooManyRequests)

	// Other routes are not limited.
	if w := api.do(t, http.MethodGet, "/api/products", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestAuthRateLimit_ForwardedFor(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantLast   int
	}{
		{"forwarding headers ignored by default", false, http.StatusTooManyRequests},
		{"forwarding headers honored behind a proxy", true, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			handler := NewRouter(RouterConfig{AuthRatePerMinute: 1, TrustProxy: tt.trustProxy}, api.products, api.auth, discardLogger())

			// Same peer, a fresh X-Forwarded-For on every attempt.
			var last int
			for i := 0; i <= authBurst; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
					strings.NewReader(`{"email":"ghost@example.com","password":"whatever"}`))
				req.Header.Set("Content-Type", "application/json")
				req.RemoteAddr = "203.0.113.7:40000"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)
				last = w.Code
			}

			if last != tt.wantLast {
				t.Errorf("status after %d attempts = %d, want %d", authBurst+1, last, tt.wantLast)
			}
		})
	}
}
