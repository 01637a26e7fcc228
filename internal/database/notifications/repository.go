// Package notifications provides database operations for borrower
// notifications, including the lookups the due-soon notifier uses to avoid
// reminding a user twice.
package notifications

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

const (
	MaxMessageLength = 255
	defaultPageSize  = 50
	likeEscape       = "!"
)

var (
	ErrMessageRequired = errors.New("message is required")
	ErrMessageTooLong  = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	ErrNoSuchUser      = errors.New("user does not exist")
)

// Filter narrows List. Zero values are ignored.
type Filter struct {
	UserID uint
	Limit  int
	Offset int
}

// Repository handles notification database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ValidateMessage trims and checks a notification body.
func ValidateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperr.Validation("message", ErrMessageRequired)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", apperr.Validation("message", ErrMessageTooLong)
	}
	return message, nil
}

// Create stores a notification for an existing user. A zero SentDate is
// set to the current time.
func (r *Repository) Create(n *entities.Notification) error {
	message, err := ValidateMessage(n.Message)
	if err != nil {
		return err
	}
	if err := r.ensureUser(n.UserID); err != nil {
		return err
	}
	n.Message = message
	if n.SentDate.IsZero() {
		n.SentDate = time.Now()
	}
	n.SentDate = n.SentDate.UTC()

	if err := r.db.Omit("User").Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateBatch inserts all notifications in one statement batch. Callers
// are expected to have validated the rows; an empty batch is a no-op.
func (r *Repository) CreateBatch(batch []entities.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		batch[i].SentDate = batch[i].SentDate.UTC()
	}
	if err := r.db.Omit("User").CreateInBatches(batch, 100).Error; err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

// Update replaces the recipient and message of a notification.
func (r *Repository) Update(id, userID uint, message string) (*entities.Notification, error) {
	message, err := ValidateMessage(message)
	if err != nil {
		return nil, err
	}
	if err := r.ensureUser(userID); err != nil {
		return nil, err
	}

	result := r.db.Model(&entities.Notification{}).Where("id = ?", id).Updates(map[string]any{
		"user_id": userID,
		"message": message,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("update notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("notification", id)
	}
	return r.GetByID(id)
}

// GetByID retrieves a notification with its user.
func (r *Repository) GetByID(id uint) (*entities.Notification, error) {
	var n entities.Notification
	if err := r.db.Preload("User").First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("notification", id)
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// List returns a page of notifications, newest first, and the total count.
func (r *Repository) List(f Filter) ([]entities.Notification, int64, error) {
	query := r.db.Model(&entities.Notification{})
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var out []entities.Notification
	err := query.Preload("User").Order("sent_date DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

// Delete removes a notification.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Notification{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

// ExistsForUserSince reports whether the user has a notification sent at or
// after since whose message contains fragment verbatim.
func (r *Repository) ExistsForUserSince(userID uint, fragment string, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND sent_date >= ?", userID, since.UTC()).
		Where("message LIKE ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(fragment)+"%").
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) ensureUser(userID uint) error {
	var count int64
	if userID != 0 {
		if err := r.db.Model(&entities.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("check user: %w", err)
		}
	}
	if count == 0 {
		return apperr.Validation("user_id", ErrNoSuchUser)
	}
	return nil
}

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
