package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedChange struct {
	userID uint
	action string
	id     uint
}

type fakeRecorder struct {
	mu      sync.Mutex
	changes []recordedChange
}

func (f *fakeRecorder) LogChange(userID uint, _ entities.AuditEventType, action, _ string, entityID uint, _ string, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, recordedChange{userID: userID, action: action, id: entityID})
}

func (f *fakeRecorder) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.changes))
	for _, c := range f.changes {
		out = append(out, c.action)
	}
	return out
}

// libraryFixture is a file-backed library with one book, two copies and
// one client.
type libraryFixture struct {
	db            *database.Database
	catalog       *catalog.Repository
	copies        *copies.Repository
	loans         *loans.Repository
	notifications *notifications.Repository
	lending       *lending.Service
	recorder      *fakeRecorder

	client *entities.User
	book   *entities.Book
	copyA  *entities.Copy
	copyB  *entities.Copy
}

func setupLibrary(t *testing.T) *libraryFixture {
	t.Helper()

	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &libraryFixture{
		db:            db,
		catalog:       catalog.NewRepository(db.DB),
		copies:        copies.NewRepository(db.DB),
		loans:         loans.NewRepository(db.DB),
		notifications: notifications.NewRepository(db.DB),
		recorder:      &fakeRecorder{},
	}
	f.lending = lending.NewService(db.DB, lending.WithAuditor(f.recorder))

	f.client = &entities.User{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Role:      entities.UserRoleClient,
	}
	require.NoError(t, users.NewRepository(db.DB).Create(f.client))

	f.book, err = f.catalog.CreateBook(catalog.BookInput{
		Title:         "The Go Programming Language",
		Author:        "Donovan",
		ISBN:          "9780134190440",
		YearPublished: 2015,
	})
	require.NoError(t, err)

	f.copyA, err = f.copies.Create(f.book.ID, "GO-001")
	require.NoError(t, err)
	f.copyB, err = f.copies.Create(f.book.ID, "GO-002")
	require.NoError(t, err)

	return f
}

func (f *libraryFixture) copyAvailable(t *testing.T, id uint) bool {
	t.Helper()
	c, err := f.copies.GetByID(id)
	require.NoError(t, err)
	return c.Available
}

// doJSON sends a request with an optional JSON body and returns the recorder.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// withActor injects an authenticated caller the way auth.Middleware does.
func withActor(id uint, role entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, id)
		c.Set(auth.ContextKeyRole, role)
		c.Next()
	}
}

func bookInput(title, author string, year int) catalog.BookInput {
	return catalog.BookInput{Title: title, Author: author, YearPublished: year}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
