package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

const adminID = 1000

func usersRouter(f *libraryFixture) *gin.Engine {
	svc := auth.NewService(users.NewRepository(f.db.DB), config.Auth{BcryptCost: 4})
	uc := NewUsersController(svc, f.recorder)

	router := gin.New()
	router.Use(withActor(adminID, entities.UserRoleAdministrator))
	router.GET("/api/users", uc.ListUsers)
	router.GET("/api/users/:id", uc.GetUser)
	router.POST("/api/users", uc.CreateUser)
	router.PUT("/api/users/:id", uc.UpdateUser)
	router.DELETE("/api/users/:id", uc.DeleteUser)
	return router
}

func TestUsersController_CreateAndUpdate(t *testing.T) {
	f := setupLibrary(t)
	router := usersRouter(f)

	w := doJSON(t, router, "POST", "/api/users", map[string]any{
		"first_name": "Lena",
		"last_name":  "Librarian",
		"email":      "Lena@Library.example",
		"password":   "shelf42",
		"role":       "librarian",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "shelf42")
	created := decode[entities.User](t, w)
	assert.Equal(t, entities.UserRoleLibrarian, created.Role)

	w = doJSON(t, router, "PUT", "/api/users/"+itoa(created.ID), map[string]any{
		"first_name": "Lena",
		"last_name":  "Head-Librarian",
		"email":      "lena@library.example",
		"role":       "administrator",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.UserRoleAdministrator, decode[entities.User](t, w).Role)

	w = doJSON(t, router, "GET", "/api/users?role=administrator", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	assert.Equal(t, []string{"user_create", "user_update"}, f.recorder.actions())
}

func TestUsersController_CreateRejections(t *testing.T) {
	f := setupLibrary(t)
	router := usersRouter(f)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "duplicate email ignoring case",
			body: map[string]any{"first_name": "A", "last_name": "B", "email": strings.ToUpper(f.client.Email), "password": "secret42", "role": "client"},
			want: http.StatusConflict,
		},
		{
			name: "password without digit",
			body: map[string]any{"first_name": "A", "last_name": "B", "email": "nodigit@example.com", "password": "secrets", "role": "client"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			body: map[string]any{"first_name": "A", "last_name": "B", "email": "role@example.com", "password": "secret42", "role": "janitor"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/users", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, f.recorder.actions())
}

func TestUsersController_Delete(t *testing.T) {
	f := setupLibrary(t)
	router := usersRouter(f)

	t.Run("refused while a loan references the user", func(t *testing.T) {
		_, err := f.lending.CreateLoan(context.Background(), lending.Actor{UserID: adminID}, lending.CreateLoanRequest{
			UserID:  f.client.ID,
			CopyID:  f.copyA.ID,
			DueDate: time.Now().UTC().AddDate(0, 0, 14),
		})
		require.NoError(t, err)

		w := doJSON(t, router, "DELETE", "/api/users/"+itoa(f.client.ID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unreferenced user is removed", func(t *testing.T) {
		spare := &entities.User{FirstName: "Spare", LastName: "User", Email: "spare@example.com", Role: entities.UserRoleClient}
		require.NoError(t, users.NewRepository(f.db.DB).Create(spare))

		w := doJSON(t, router, "DELETE", "/api/users/"+itoa(spare.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doJSON(t, router, "GET", "/api/users/"+itoa(spare.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("own account", func(t *testing.T) {
		w := doJSON(t, router, "DELETE", "/api/users/"+itoa(adminID), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
