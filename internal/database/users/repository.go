// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail("reader@example.com")
package users

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrEmailTaken     = errors.New("email is already registered")
	ErrUserReferenced = errors.New("user has loans or notifications")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user. Email uniqueness is case-insensitive.
func (r *Repository) Create(user *entities.User) error {
	user.EmailKey = entities.NormalizeKey(user.Email)

	taken, err := r.emailTaken(user.EmailKey, 0)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(ErrEmailTaken)
	}

	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(ErrEmailTaken)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update saves profile fields (names, email, role) of an existing user.
func (r *Repository) Update(user *entities.User) error {
	user.EmailKey = entities.NormalizeKey(user.Email)

	taken, err := r.emailTaken(user.EmailKey, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(ErrEmailTaken)
	}

	result := r.db.Model(&entities.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"email_key":  user.EmailKey,
		"role":       user.Role,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(ErrEmailTaken)
		}
		return fmt.Errorf("update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", user.ID)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email_key = ?", entities.NormalizeKey(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", 0)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// GetByTokenHash retrieves a user by their hashed API token.
func (r *Repository) GetByTokenHash(tokenHash string) (*entities.User, error) {
	if tokenHash == "" {
		return nil, apperr.NotFound("user", 0)
	}
	var user entities.User
	err := r.db.Where("token_hash = ?", tokenHash).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", 0)
		}
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	return &user, nil
}

// Exists reports whether a user with id exists.
func (r *Repository) Exists(id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&entities.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return count > 0, nil
}

// List returns users ordered by last and first name, optionally by role.
func (r *Repository) List(role entities.UserRole) ([]entities.User, error) {
	var users []entities.User
	query := r.db.Order("last_name ASC, first_name ASC, id ASC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Count returns the number of users.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// Delete removes a user. Users still referenced by loans or notifications
// cannot be deleted.
func (r *Repository) Delete(id uint) error {
	var loans, notifications int64
	if err := r.db.Model(&entities.Loan{}).Where("user_id = ?", id).Count(&loans).Error; err != nil {
		return fmt.Errorf("count user loans: %w", err)
	}
	if err := r.db.Model(&entities.Notification{}).Where("user_id = ?", id).Count(&notifications).Error; err != nil {
		return fmt.Errorf("count user notifications: %w", err)
	}
	if loans > 0 || notifications > 0 {
		return apperr.Conflict(ErrUserReferenced)
	}

	result := r.db.Delete(&entities.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

// UpdateFields applies a partial column update (login bookkeeping, tokens,
// password hash).
func (r *Repository) UpdateFields(id uint, fields map[string]any) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update user fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

func (r *Repository) emailTaken(key string, exceptID uint) (bool, error) {
	var count int64
	query := r.db.Model(&entities.User{}).Where("email_key = ?", key)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
