package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

type routerFixture struct {
	*libraryFixture
	handler http.Handler
	tokens  map[entities.UserRole]string
}

func setupRouter(t *testing.T, mode config.AuthMode) *routerFixture {
	t.Helper()
	f := setupLibrary(t)

	authCfg := config.Auth{
		Mode:            mode,
		SessionLifetime: time.Hour,
		TokenExpiry:     time.Hour,
		BcryptCost:      4,
	}
	svc := auth.NewService(users.NewRepository(f.db.DB), authCfg)

	rf := &routerFixture{libraryFixture: f, tokens: map[entities.UserRole]string{}}
	for i, role := range []entities.UserRole{entities.UserRoleClient, entities.UserRoleLibrarian, entities.UserRoleAdministrator} {
		u, err := svc.CreateUser(auth.NewUser{
			FirstName: "Test",
			LastName:  string(role),
			Email:     string(role) + "@example.com",
			Password:  "secret42",
			Role:      role,
		})
		require.NoError(t, err, i)
		token, err := svc.GenerateToken(u.ID)
		require.NoError(t, err)
		rf.tokens[role] = token
	}

	rf.handler = NewRouter(RouterConfig{
		Database:       f.db,
		Version:        "test",
		Books:          f.catalog,
		Categories:     f.catalog,
		Copies:         f.copies,
		Loans:          f.loans,
		Lending:        f.lending,
		Notifications:  f.notifications,
		Recorder:       f.recorder,
		AuthService:    svc,
		AuthMiddleware: auth.NewMiddleware(svc, nil, authCfg),
	})
	return rf
}

func (rf *routerFixture) do(t *testing.T, method, path string, role entities.UserRole) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+rf.tokens[role])
	}
	w := httptest.NewRecorder()
	rf.handler.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_RoleGates(t *testing.T) {
	rf := setupRouter(t, config.AuthModeLocal)

	tests := []struct {
		name   string
		method string
		path   string
		role   entities.UserRole
		want   int
	}{
		{"health is public", "GET", "/health", "", http.StatusOK},
		{"anonymous catalog read", "GET", "/api/books", "", http.StatusUnauthorized},
		{"client reads catalog", "GET", "/api/books", entities.UserRoleClient, http.StatusOK},
		{"client reads copies", "GET", "/api/copies", entities.UserRoleClient, http.StatusOK},
		{"client cannot list loans", "GET", "/api/loans", entities.UserRoleClient, http.StatusForbidden},
		{"client cannot delete copies", "DELETE", "/api/copies/1", entities.UserRoleClient, http.StatusForbidden},
		{"client cannot list notifications", "GET", "/api/notifications", entities.UserRoleClient, http.StatusForbidden},
		{"client reads own loans", "GET", "/api/me/loans", entities.UserRoleClient, http.StatusOK},
		{"client reads own notifications", "GET", "/api/me/notifications", entities.UserRoleClient, http.StatusOK},
		{"librarian lists loans", "GET", "/api/loans", entities.UserRoleLibrarian, http.StatusOK},
		{"librarian checks availability", "GET", "/api/admin/availability", entities.UserRoleLibrarian, http.StatusOK},
		{"librarian cannot manage users", "GET", "/api/users", entities.UserRoleLibrarian, http.StatusForbidden},
		{"administrator manages users", "GET", "/api/users", entities.UserRoleAdministrator, http.StatusOK},
		{"administrator lists loans", "GET", "/api/loans", entities.UserRoleAdministrator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rf.do(t, tt.method, tt.path, tt.role))
		})
	}
}

func TestRouter_NoAuthModeIsOpen(t *testing.T) {
	rf := setupRouter(t, config.AuthModeNone)

	assert.Equal(t, http.StatusOK, rf.do(t, "GET", "/api/loans", ""))
	assert.Equal(t, http.StatusOK, rf.do(t, "GET", "/api/users", ""))
	assert.Equal(t, http.StatusOK, rf.do(t, "GET", "/api/admin/availability", ""))
	// Without an identity there is no "me".
	assert.Equal(t, http.StatusUnauthorized, rf.do(t, "GET", "/api/me/loans", ""))
}

func TestRouter_OptionalRoutesStayUnregistered(t *testing.T) {
	rf := setupRouter(t, config.AuthModeNone)

	assert.Equal(t, http.StatusNotFound, rf.do(t, "GET", "/api/tasks/types", ""))
	assert.Equal(t, http.StatusNotFound, rf.do(t, "GET", "/api/admin/notifier/status", ""))
	assert.Equal(t, http.StatusNotFound, rf.do(t, "GET", "/api/admin/audit", ""))
}

func TestRouter_DemoModeRejectsWrites(t *testing.T) {
	f := setupLibrary(t)
	handler := NewRouter(RouterConfig{
		Database: f.db,
		Books:    f.catalog,
		Copies:   f.copies,
		Loans:    f.loans,
		Lending:  f.lending,
		DemoMode: true,
	})

	w := doJSON(t, handler, "GET", "/api/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, "DELETE", "/api/copies/"+itoa(f.copyA.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.copies.GetByID(f.copyA.ID)
	assert.NoError(t, err, "copy must survive a blocked delete")
}
