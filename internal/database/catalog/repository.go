// Package catalog provides database operations for books and categories.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, err := repo.SearchBooks(catalog.BookSearch{Author: "lem", YearFrom: 1960})
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

const (
	MinYearPublished = 1000
	MaxYearPublished = 9999
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 200 characters")
	ErrAuthorRequired     = errors.New("author is required")
	ErrAuthorTooLong      = errors.New("author must be at most 100 characters")
	ErrISBNTooLong        = errors.New("isbn must be at most 20 characters")
	ErrYearOutOfRange     = fmt.Errorf("year must be between %d and %d", MinYearPublished, MaxYearPublished)
	ErrUnknownCategory    = errors.New("category does not exist")
	ErrBookHasCopies      = errors.New("book still has copies")
	ErrCategoryNameNeeded = errors.New("category name is required")
	ErrCategoryNameLong   = errors.New("category name must be at most 100 characters")
	ErrCategoryExists     = errors.New("category already exists")
)

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	YearPublished int    `json:"year_published"`
	CategoryIDs   []uint `json:"category_ids"`
}

// Validate trims the input in place and checks field limits.
func (in *BookInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)

	switch {
	case in.Title == "":
		return apperr.Validation("title", ErrTitleRequired)
	case utf8.RuneCountInString(in.Title) > 200:
		return apperr.Validation("title", ErrTitleTooLong)
	case in.Author == "":
		return apperr.Validation("author", ErrAuthorRequired)
	case utf8.RuneCountInString(in.Author) > 100:
		return apperr.Validation("author", ErrAuthorTooLong)
	case len(in.ISBN) > 20:
		return apperr.Validation("isbn", ErrISBNTooLong)
	case in.YearPublished < MinYearPublished || in.YearPublished > MaxYearPublished:
		return apperr.Validation("year_published", ErrYearOutOfRange)
	}
	return nil
}

// BookSearch filters books. Zero values are ignored; string filters are
// case-insensitive substring matches and CategoryIDs matches any.
type BookSearch struct {
	Title       string
	Author      string
	ISBN        string
	YearFrom    int
	YearTo      int
	CategoryIDs []uint
}

// Repository handles book and category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Categories ---

func (r *Repository) CreateCategory(name string) (*entities.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}
	category := &entities.Category{Name: name, NameKey: entities.NormalizeKey(name)}
	if err := r.ensureCategoryNameFree(category.NameKey, 0); err != nil {
		return nil, err
	}
	if err := r.db.Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(ErrCategoryExists)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (r *Repository) GetCategory(id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (r *Repository) ListCategories() ([]entities.Category, error) {
	var categories []entities.Category
	if err := r.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) RenameCategory(id uint, name string) (*entities.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}
	category, err := r.GetCategory(id)
	if err != nil {
		return nil, err
	}
	key := entities.NormalizeKey(name)
	if err := r.ensureCategoryNameFree(key, id); err != nil {
		return nil, err
	}
	category.Name = name
	category.NameKey = key
	if err := r.db.Save(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(ErrCategoryExists)
		}
		return nil, fmt.Errorf("rename category: %w", err)
	}
	return category, nil
}

// DeleteCategory detaches the category from all books and removes it.
func (r *Repository) DeleteCategory(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_categories WHERE category_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach category: %w", err)
		}
		result := tx.Delete(&entities.Category{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete category: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("category", id)
		}
		return nil
	})
}

// --- Books ---

func (r *Repository) CreateBook(in BookInput) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	categories, err := r.loadCategories(in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:         in.Title,
		Author:        in.Author,
		ISBN:          in.ISBN,
		YearPublished: in.YearPublished,
		Categories:    categories,
	}
	if err := r.db.Omit("Categories.*").Create(book).Error; err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

func (r *Repository) UpdateBook(id uint, in BookInput) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	categories, err := r.loadCategories(in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	var book entities.Book
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("book", id)
			}
			return fmt.Errorf("get book: %w", err)
		}
		book.Title = in.Title
		book.Author = in.Author
		book.ISBN = in.ISBN
		book.YearPublished = in.YearPublished
		if err := tx.Omit("Categories", "Copies").Save(&book).Error; err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		if err := tx.Model(&book).Association("Categories").Replace(categories); err != nil {
			return fmt.Errorf("update book categories: %w", err)
		}
		book.Categories = categories
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBook returns a book with its categories and copies.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Preload("Copies", func(db *gorm.DB) *gorm.DB {
		return db.Order("catalog_number ASC")
	}).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("book", id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// BookExists reports whether a book with id exists.
func (r *Repository) BookExists(id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check book: %w", err)
	}
	return count > 0, nil
}

// DeleteBook removes a book that has no copies left.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var copies int64
		if err := tx.Model(&entities.Copy{}).Where("book_id = ?", id).Count(&copies).Error; err != nil {
			return fmt.Errorf("count copies: %w", err)
		}
		if copies > 0 {
			return apperr.Conflict(ErrBookHasCopies)
		}
		if err := tx.Exec("DELETE FROM book_categories WHERE book_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach categories: %w", err)
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("book", id)
		}
		return nil
	})
}

// SearchBooks returns books matching every non-empty filter, ordered by title.
func (r *Repository) SearchBooks(s BookSearch) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{})

	if v := strings.TrimSpace(s.Title); v != "" {
		query = query.Where("LOWER(title) LIKE ?", containsPattern(v))
	}
	if v := strings.TrimSpace(s.Author); v != "" {
		query = query.Where("LOWER(author) LIKE ?", containsPattern(v))
	}
	if v := strings.TrimSpace(s.ISBN); v != "" {
		query = query.Where("LOWER(isbn) LIKE ?", containsPattern(v))
	}
	if s.YearFrom > 0 {
		query = query.Where("year_published >= ?", s.YearFrom)
	}
	if s.YearTo > 0 {
		query = query.Where("year_published <= ?", s.YearTo)
	}
	if len(s.CategoryIDs) > 0 {
		query = query.Where("id IN (?)",
			r.db.Table("book_categories").Select("book_id").Where("category_id IN ?", s.CategoryIDs))
	}

	var books []entities.Book
	err := query.Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Order("title ASC, id ASC").Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

func (r *Repository) loadCategories(ids []uint) ([]entities.Category, error) {
	if len(ids) == 0 {
		return []entities.Category{}, nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var categories []entities.Category
	if err := r.db.Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) != len(unique) {
		return nil, apperr.Validation("category_ids", ErrUnknownCategory)
	}
	return categories, nil
}

func (r *Repository) ensureCategoryNameFree(key string, exceptID uint) error {
	var count int64
	query := r.db.Model(&entities.Category{}).Where("name_key = ?", key)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if count > 0 {
		return apperr.Conflict(ErrCategoryExists)
	}
	return nil
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name", ErrCategoryNameNeeded)
	}
	if utf8.RuneCountInString(name) > 100 {
		return "", apperr.Validation("name", ErrCategoryNameLong)
	}
	return name, nil
}

// containsPattern builds a lower-cased substring LIKE pattern.
func containsPattern(v string) string {
	return "%" + strings.ToLower(v) + "%"
}
