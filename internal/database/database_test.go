package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := NewSQLiteDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}
	return db, cleanup
}

func TestNewDatabase_MigratesSchema(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Equal(t, config.DriverSQLite, db.Driver)
	for _, model := range Models {
		assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.DB.Migrator().HasTable("book_categories"))
}

func TestNewDatabase_UniqueKeysAreEnforced(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	book := entities.Book{Title: "Solaris", Author: "Stanisław Lem", YearPublished: 1961}
	require.NoError(t, db.DB.Create(&book).Error)

	first := entities.Copy{BookID: book.ID, CatalogNumber: "SF-001", CatalogKey: "sf-001", Available: true}
	require.NoError(t, db.DB.Create(&first).Error)

	dup := entities.Copy{BookID: book.ID, CatalogNumber: "sf-001", CatalogKey: "sf-001", Available: true}
	assert.Error(t, db.DB.Create(&dup).Error)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewDatabase_RequiresDSN(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: config.DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_DSN")

	_, err = NewDatabase(config.Database{Driver: config.DriverMySQL})
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestSQLiteDSN(t *testing.T) {
	path := filepath.Join("data", "library.db")
	assert.Equal(t, path+"?_busy_timeout=5000&_journal=WAL", sqliteDSN(path))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "file.db?mode=ro", sqliteDSN("file.db?mode=ro"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Info, parseLogLevel("INFO"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}
