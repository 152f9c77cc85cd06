package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dquiroga/ManufactureGo/internal/auth"
	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/service"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	"github.com/dquiroga/ManufactureGo/pkg/middleware"
)

// setupAuthRouter mirrors the production auth route layout: login and
// refresh are public, register requires an authenticated admin.
func setupAuthRouter(users *mockUserRepository, jwtManager *auth.JWTManager) *chi.Mux {
	logger := testLogger()
	svc := service.NewUserService(users, jwtManager, clock.Real{}, logger)
	handler := NewAuthHandler(svc, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", handler.Login)
		r.Post("/refresh", handler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtManager.MiddlewareValidator()))
			r.Get("/me", handler.Me)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Post("/register", handler.Register)
			})
		})
	})
	return r
}

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour, clock.Real{})
}

func accessTokenFor(t *testing.T, jwtManager *auth.JWTManager, role string) string {
	t.Helper()
	pair, err := jwtManager.GenerateTokenPair(&domain.User{ID: testUserID, Email: "caller@example.com", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func registerBody(role string) string {
	body := `{"email":"new@example.com","password":"s3cret-pass","first_name":"Nora","last_name":"Mamani"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	return body + `}`
}

func TestRegister_AnonymousRejected(t *testing.T) {
	users := new(mockUserRepository)
	router := setupAuthRouter(users, testJWTManager())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(registerBody(domain.RoleAdmin)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_OperatorForbidden(t *testing.T) {
	users := new(mockUserRepository)
	jwtManager := testJWTManager()
	router := setupAuthRouter(users, jwtManager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(registerBody(domain.RoleAdmin)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, jwtManager, domain.RoleOperator))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_AdminCreatesAccount(t *testing.T) {
	users := new(mockUserRepository)
	jwtManager := testJWTManager()
	router := setupAuthRouter(users, jwtManager)

	var created *domain.User
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(registerBody("")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, jwtManager, domain.RoleAdmin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, created)
	assert.Equal(t, domain.RoleOperator, created.Role)
}
