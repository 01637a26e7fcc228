package users

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_users_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Copy{}, &entities.Loan{}, &entities.Notification{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func newUser(email string) *entities.User {
	return &entities.User{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Role:      entities.UserRoleClient,
	}
}

func TestRepository_Create(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user := newUser("Ada@Example.com")
	err := repo.Create(user)

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "Ada@Example.com", user.Email)
	assert.Equal(t, "ada@example.com", user.EmailKey)
}

func TestRepository_Create_EmailIsCaseInsensitive(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(newUser("reader@example.com")))

	err := repo.Create(newUser("  READER@example.com "))

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(999)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepository_GetByEmail(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created := newUser("librarian@example.com")
	require.NoError(t, repo.Create(created))

	user, err := repo.GetByEmail("LIBRARIAN@example.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestRepository_Update(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	first := newUser("first@example.com")
	second := newUser("second@example.com")
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	t.Run("changes profile and role", func(t *testing.T) {
		first.LastName = "Byron"
		first.Role = entities.UserRoleLibrarian
		require.NoError(t, repo.Update(first))

		got, err := repo.GetByID(first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Byron", got.LastName)
		assert.Equal(t, entities.UserRoleLibrarian, got.Role)
	})

	t.Run("rejects another user's email", func(t *testing.T) {
		first.Email = "Second@example.com"
		err := repo.Update(first)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("missing user", func(t *testing.T) {
		err := repo.Update(&entities.User{ID: 999, Email: "ghost@example.com"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestRepository_Exists(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user := newUser("exists@example.com")
	require.NoError(t, repo.Create(user))

	ok, err := repo.Exists(user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Exists(user.ID + 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_List(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	staff := newUser("staff@example.com")
	staff.LastName = "Austen"
	staff.Role = entities.UserRoleLibrarian
	require.NoError(t, repo.Create(staff))
	require.NoError(t, repo.Create(newUser("client@example.com")))

	all, err := repo.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Austen", all[0].LastName)

	librarians, err := repo.List(entities.UserRoleLibrarian)
	require.NoError(t, err)
	assert.Len(t, librarians, 1)
}

func TestRepository_Delete(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("unreferenced user is deleted", func(t *testing.T) {
		user := newUser("free@example.com")
		require.NoError(t, repo.Create(user))

		require.NoError(t, repo.Delete(user.ID))

		_, err := repo.GetByID(user.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("user with notifications is kept", func(t *testing.T) {
		user := newUser("notified@example.com")
		require.NoError(t, repo.Create(user))
		require.NoError(t, db.Create(&entities.Notification{UserID: user.ID, Message: "hello", SentDate: time.Now().UTC()}).Error)

		err := repo.Delete(user.ID)

		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.ErrorIs(t, err, ErrUserReferenced)
	})

	t.Run("user with loans is kept", func(t *testing.T) {
		user := newUser("borrower@example.com")
		require.NoError(t, repo.Create(user))
		now := time.Now().UTC()
		require.NoError(t, db.Create(&entities.Loan{UserID: user.ID, CopyID: 1, LoanDate: now, DueDate: now.Add(24 * time.Hour)}).Error)

		err := repo.Delete(user.ID)

		assert.ErrorIs(t, err, ErrUserReferenced)
	})

	t.Run("missing user", func(t *testing.T) {
		err := repo.Delete(12345)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestRepository_UpdateFields(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user := newUser("token@example.com")
	require.NoError(t, repo.Create(user))

	require.NoError(t, repo.UpdateFields(user.ID, map[string]any{"token_hash": "abc123"}))

	got, err := repo.GetByTokenHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByTokenHash("")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
