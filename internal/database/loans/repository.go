// Package loans provides database operations for loans.
//
// The repository stores rows only. Keeping copy availability in step with
// loans is the job of the lending service, which runs these methods inside a
// transaction together with the copies repository.
package loans

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

// Filter narrows List. Zero values are ignored.
type Filter struct {
	UserID     uint
	CopyID     uint
	ActiveOnly bool
	ClosedOnly bool
	Overdue    time.Time // active loans due before this instant
}

// Repository handles loan database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a loan at version 1.
func (r *Repository) Create(loan *entities.Loan) error {
	loan.Version = 1
	if err := r.db.Omit("User", "Copy").Create(loan).Error; err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

// GetByID retrieves a loan by ID.
func (r *Repository) GetByID(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := r.db.First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("loan", id)
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &loan, nil
}

// GetWithDetails retrieves a loan with its user and copy (and the copy's
// book) preloaded.
func (r *Repository) GetWithDetails(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := withDetails(r.db).First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("loan", id)
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &loan, nil
}

// List returns loans with details, newest loan first.
func (r *Repository) List(f Filter) ([]entities.Loan, error) {
	query := withDetails(r.db)
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.CopyID > 0 {
		query = query.Where("copy_id = ?", f.CopyID)
	}
	if f.ActiveOnly {
		query = query.Where("return_date IS NULL")
	}
	if f.ClosedOnly {
		query = query.Where("return_date IS NOT NULL")
	}
	if !f.Overdue.IsZero() {
		query = query.Where("return_date IS NULL AND due_date < ?", f.Overdue.UTC())
	}

	var out []entities.Loan
	if err := query.Order("loan_date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return out, nil
}

// Update writes the editable loan fields if the row is still at
// expectedVersion and bumps the version.
func (r *Repository) Update(loan *entities.Loan, expectedVersion uint) error {
	result := r.db.Model(&entities.Loan{}).
		Where("id = ? AND version = ?", loan.ID, expectedVersion).
		Updates(map[string]any{
			"user_id":     loan.UserID,
			"copy_id":     loan.CopyID,
			"due_date":    loan.DueDate.UTC(),
			"return_date": nullableUTC(loan.ReturnDate),
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("update loan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(apperr.ErrStaleWrite)
	}
	loan.Version = expectedVersion + 1
	return nil
}

// Delete removes a loan if it is still at expectedVersion.
func (r *Repository) Delete(id, expectedVersion uint) error {
	result := r.db.Where("id = ? AND version = ?", id, expectedVersion).Delete(&entities.Loan{})
	if result.Error != nil {
		return fmt.Errorf("delete loan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(apperr.ErrStaleWrite)
	}
	return nil
}

// HasActiveForCopy reports whether any unreturned loan references the copy.
func (r *Repository) HasActiveForCopy(copyID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("copy_id = ? AND return_date IS NULL", copyID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check active loans: %w", err)
	}
	return count > 0, nil
}

// DeleteClosedForCopy removes the returned loans of a copy and reports how
// many were removed.
func (r *Repository) DeleteClosedForCopy(copyID uint) (int64, error) {
	result := r.db.Where("copy_id = ? AND return_date IS NOT NULL", copyID).Delete(&entities.Loan{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete closed loans: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListDueBetween returns active loans with from <= due_date <= to, with user
// and copy-with-book preloaded, ordered by due date.
func (r *Repository) ListDueBetween(from, to time.Time) ([]entities.Loan, error) {
	var out []entities.Loan
	err := withDetails(r.db).
		Where("return_date IS NULL AND due_date >= ? AND due_date <= ?", from.UTC(), to.UTC()).
		Order("due_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list loans due: %w", err)
	}
	return out, nil
}

// ActiveCountsByCopy returns the number of active loans per copy ID. Copies
// without an active loan are absent from the map.
func (r *Repository) ActiveCountsByCopy() (map[uint]int64, error) {
	var rows []struct {
		CopyID uint
		Count  int64
	}
	err := r.db.Model(&entities.Loan{}).
		Select("copy_id, COUNT(*) AS count").
		Where("return_date IS NULL").
		Group("copy_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CopyID] = row.Count
	}
	return counts, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Copy.Book")
}

func nullableUTC(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
