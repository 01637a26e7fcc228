// Package copies provides database operations for physical book copies.
//
// The Available flag is a cache of "no active loan references this copy".
// Only the lending service flips it, through SetAvailable, which guards the
// write with the copy's Version so concurrent flips cannot both succeed.
package copies

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrCatalogNumberRequired = errors.New("catalog number is required")
	ErrCatalogNumberTooLong  = errors.New("catalog number must be at most 50 characters")
	ErrCatalogNumberTaken    = errors.New("catalog number is already in use")
	ErrNoSuchBook            = errors.New("book does not exist")
)

// Filter narrows List. Zero values are ignored.
type Filter struct {
	BookID        uint
	AvailableOnly bool
}

// Repository handles copy database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new copies repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new, available copy of an existing book.
func (r *Repository) Create(bookID uint, catalogNumber string) (*entities.Copy, error) {
	number, err := validateCatalogNumber(catalogNumber)
	if err != nil {
		return nil, err
	}
	if err := r.ensureBook(bookID); err != nil {
		return nil, err
	}

	c := &entities.Copy{
		BookID:        bookID,
		CatalogNumber: number,
		CatalogKey:    entities.NormalizeKey(number),
		Available:     true,
		Version:       1,
	}
	if err := r.ensureCatalogKeyFree(c.CatalogKey, 0); err != nil {
		return nil, err
	}
	if err := r.db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(ErrCatalogNumberTaken)
		}
		return nil, fmt.Errorf("create copy: %w", err)
	}
	return c, nil
}

// Update changes the book and catalog number of a copy. Availability is left
// untouched.
func (r *Repository) Update(id, bookID uint, catalogNumber string) (*entities.Copy, error) {
	number, err := validateCatalogNumber(catalogNumber)
	if err != nil {
		return nil, err
	}
	c, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.ensureBook(bookID); err != nil {
		return nil, err
	}
	key := entities.NormalizeKey(number)
	if err := r.ensureCatalogKeyFree(key, id); err != nil {
		return nil, err
	}

	result := r.db.Model(&entities.Copy{}).
		Where("id = ? AND version = ?", id, c.Version).
		Updates(map[string]any{
			"book_id":        bookID,
			"catalog_number": number,
			"catalog_key":    key,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(ErrCatalogNumberTaken)
		}
		return nil, fmt.Errorf("update copy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.Conflict(apperr.ErrStaleWrite)
	}
	return r.GetByID(id)
}

// GetByID retrieves a copy by ID.
func (r *Repository) GetByID(id uint) (*entities.Copy, error) {
	var c entities.Copy
	if err := r.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("copy", id)
		}
		return nil, fmt.Errorf("get copy: %w", err)
	}
	return &c, nil
}

// GetWithBook retrieves a copy with its book preloaded.
func (r *Repository) GetWithBook(id uint) (*entities.Copy, error) {
	var c entities.Copy
	if err := r.db.Preload("Book").First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("copy", id)
		}
		return nil, fmt.Errorf("get copy: %w", err)
	}
	return &c, nil
}

// List returns copies with their books, ordered by catalog number.
func (r *Repository) List(f Filter) ([]entities.Copy, error) {
	query := r.db.Preload("Book")
	if f.BookID > 0 {
		query = query.Where("book_id = ?", f.BookID)
	}
	if f.AvailableOnly {
		query = query.Where("available = ?", true)
	}

	var out []entities.Copy
	if err := query.Order("catalog_key ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	return out, nil
}

// SetAvailable flips the availability flag if the copy is still at
// expectedVersion. A stale version yields a Conflict carrying
// apperr.ErrStaleWrite.
func (r *Repository) SetAvailable(id, expectedVersion uint, available bool) error {
	result := r.db.Model(&entities.Copy{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"available": available,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("set copy availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(apperr.ErrStaleWrite)
	}
	return nil
}

// Delete removes a copy if it is still at expectedVersion.
func (r *Repository) Delete(id, expectedVersion uint) error {
	result := r.db.Where("id = ? AND version = ?", id, expectedVersion).Delete(&entities.Copy{})
	if result.Error != nil {
		return fmt.Errorf("delete copy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(apperr.ErrStaleWrite)
	}
	return nil
}

func (r *Repository) ensureBook(bookID uint) error {
	var count int64
	if bookID != 0 {
		if err := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
			return fmt.Errorf("check book: %w", err)
		}
	}
	if count == 0 {
		return apperr.Validation("book_id", ErrNoSuchBook)
	}
	return nil
}

func (r *Repository) ensureCatalogKeyFree(key string, exceptID uint) error {
	var count int64
	query := r.db.Model(&entities.Copy{}).Where("catalog_key = ?", key)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check catalog number: %w", err)
	}
	if count > 0 {
		return apperr.Conflict(ErrCatalogNumberTaken)
	}
	return nil
}

func validateCatalogNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", apperr.Validation("catalog_number", ErrCatalogNumberRequired)
	}
	if utf8.RuneCountInString(number) > 50 {
		return "", apperr.Validation("catalog_number", ErrCatalogNumberTooLong)
	}
	return number, nil
}
