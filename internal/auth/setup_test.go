package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "secret42"

func testConfig(mode config.AuthMode) config.Auth {
	return config.Auth{
		Mode:            mode,
		SessionLifetime: 24 * time.Hour,
		TokenExpiry:     720 * time.Hour,
		BcryptCost:      4, // Low cost for faster tests
		SecureCookies:   false,
	}
}

// setupDB opens a single-connection in-memory database; every pooled
// connection to ":memory:" would otherwise see its own empty database.
func setupDB(t *testing.T) (*gorm.DB, *sql.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Copy{}, &entities.Loan{}, &entities.Notification{}))
	return db, sqlDB
}

func setupService(t *testing.T, mode config.AuthMode) (*Service, *gorm.DB) {
	t.Helper()
	db, _ := setupDB(t)
	return NewService(users.NewRepository(db), testConfig(mode)), db
}

func createUser(t *testing.T, svc *Service, email string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := svc.CreateUser(NewUser{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  testPassword,
		Role:      role,
	})
	require.NoError(t, err)
	return user
}

// sessionCookie pulls the session cookie out of a recorded response.
func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "library_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response, Set-Cookie: %q", rr.Header().Values("Set-Cookie"))
	return nil
}
