package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

func notificationsRouter(f *libraryFixture) *gin.Engine {
	nc := NewNotificationsController(f.notifications, f.recorder, nil)
	router := gin.New()
	router.Use(withActor(7, entities.UserRoleLibrarian))
	router.GET("/api/notifications", nc.ListNotifications)
	router.GET("/api/notifications/:id", nc.GetNotification)
	router.POST("/api/notifications", nc.CreateNotification)
	router.PUT("/api/notifications/:id", nc.UpdateNotification)
	router.DELETE("/api/notifications/:id", nc.DeleteNotification)
	return router
}

func TestNotificationsController_Lifecycle(t *testing.T) {
	f := setupLibrary(t)
	router := notificationsRouter(f)

	w := doJSON(t, router, "POST", "/api/notifications", map[string]any{
		"user_id":   f.client.ID,
		"message":   "  Your reading room booking is confirmed  ",
		"sent_date": "2026-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[entities.Notification](t, w)
	assert.Equal(t, "Your reading room booking is confirmed", created.Message)
	assert.True(t, created.SentDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	w = doJSON(t, router, "PUT", "/api/notifications/"+itoa(created.ID), map[string]any{
		"user_id": f.client.ID,
		"message": "Booking moved to Friday",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Booking moved to Friday", decode[entities.Notification](t, w).Message)

	w = doJSON(t, router, "DELETE", "/api/notifications/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/api/notifications/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"notification_create", "notification_update", "notification_delete"}, f.recorder.actions())
	for _, change := range f.recorder.changes {
		assert.Equal(t, uint(7), change.userID)
	}
}

func TestNotificationsController_CreateDefaultsSentDateToNow(t *testing.T) {
	f := setupLibrary(t)
	router := notificationsRouter(f)
	before := time.Now().Add(-time.Second)

	w := doJSON(t, router, "POST", "/api/notifications", map[string]any{
		"user_id": f.client.ID,
		"message": "Welcome to the library",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decode[entities.Notification](t, w).SentDate.After(before))
}

func TestNotificationsController_CreateValidation(t *testing.T) {
	f := setupLibrary(t)
	router := notificationsRouter(f)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"blank message", map[string]any{"user_id": f.client.ID, "message": "   "}, "message"},
		{"unknown user", map[string]any{"user_id": 999, "message": "hello"}, "user_id"},
		{"missing user", map[string]any{"message": "hello"}, "user_id"},
		{"bad sent date", map[string]any{"user_id": f.client.ID, "message": "hello", "sent_date": "yesterday"}, "sent_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/notifications", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.field, decode[ErrorResponse](t, w).Field)
		})
	}
	assert.Empty(t, f.recorder.actions())
}

func TestNotificationsController_ListFiltersByUser(t *testing.T) {
	f := setupLibrary(t)
	router := notificationsRouter(f)

	other := &entities.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Role: entities.UserRoleClient}
	require.NoError(t, users.NewRepository(f.db.DB).Create(other))

	for _, n := range []*entities.Notification{
		{UserID: f.client.ID, Message: "first", SentDate: time.Now().Add(-2 * time.Hour)},
		{UserID: f.client.ID, Message: "second", SentDate: time.Now().Add(-time.Hour)},
		{UserID: other.ID, Message: "someone else's"},
	} {
		require.NoError(t, f.notifications.Create(n))
	}

	w := doJSON(t, router, "GET", "/api/notifications?user_id="+itoa(f.client.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[struct {
		Data  []entities.Notification `json:"data"`
		Total int64                   `json:"total"`
	}](t, w)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "second", page.Data[0].Message, "newest first")

	w = doJSON(t, router, "GET", "/api/notifications?user_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeController(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()
	staff := lending.Actor{UserID: 7, Role: entities.UserRoleLibrarian}

	other := &entities.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Role: entities.UserRoleClient}
	require.NoError(t, users.NewRepository(f.db.DB).Create(other))

	due := time.Now().UTC().AddDate(0, 0, 7)
	mine, err := f.lending.CreateLoan(ctx, staff, lending.CreateLoanRequest{UserID: f.client.ID, CopyID: f.copyA.ID, DueDate: due})
	require.NoError(t, err)
	_, err = f.lending.CreateLoan(ctx, staff, lending.CreateLoanRequest{UserID: other.ID, CopyID: f.copyB.ID, DueDate: due})
	require.NoError(t, err)
	require.NoError(t, f.notifications.Create(&entities.Notification{UserID: f.client.ID, Message: "for Ada"}))
	require.NoError(t, f.notifications.Create(&entities.Notification{UserID: other.ID, Message: "for Grace"}))

	me := NewMeController(f.loans, f.notifications)
	router := gin.New()
	router.Use(withActor(f.client.ID, entities.UserRoleClient))
	router.GET("/api/me/loans", me.MyLoans)
	router.GET("/api/me/notifications", me.MyNotifications)

	w := doJSON(t, router, "GET", "/api/me/loans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	loansBody := decode[struct {
		Loans []entities.Loan `json:"loans"`
		Count int             `json:"count"`
	}](t, w)
	require.Equal(t, 1, loansBody.Count)
	assert.Equal(t, mine.ID, loansBody.Loans[0].ID)

	w = doJSON(t, router, "GET", "/api/me/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notesBody := decode[struct {
		Data []entities.Notification `json:"data"`
	}](t, w)
	require.Len(t, notesBody.Data, 1)
	assert.Equal(t, "for Ada", notesBody.Data[0].Message)
}
