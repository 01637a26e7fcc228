package lending

import (
	"errors"
	"time"

	"github.com/mrlokans/library/internal/apperr"
)

// Reasons carried by the apperr kinds returned from this package.
var (
	ErrNoSuchUser        = errors.New("no such user")
	ErrCopyNotFound      = errors.New("copy not found")
	ErrCopyNotAvailable  = errors.New("copy not available")
	ErrDueDateMissing    = errors.New("due date is required")
	ErrDueDateInvalid    = errors.New("due date is out of range")
	ErrReturnDateInvalid = errors.New("return date is out of range")
	ErrCopyLoaned        = errors.New("copy currently loaned")
)

// MinValidDate is the earliest due or return date accepted.
var MinValidDate = time.Date(1753, time.January, 1, 0, 0, 0, 0, time.UTC)

// MaxValidDate is the latest due or return date accepted.
var MaxValidDate = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

func validateDueDate(due time.Time) error {
	if due.IsZero() {
		return apperr.Validation("due_date", ErrDueDateMissing)
	}
	if due.Before(MinValidDate) || due.After(MaxValidDate) {
		return apperr.Validation("due_date", ErrDueDateInvalid)
	}
	return nil
}

func validateReturnDate(returned *time.Time) error {
	if returned == nil {
		return nil
	}
	if returned.IsZero() || returned.Before(MinValidDate) || returned.After(MaxValidDate) {
		return apperr.Validation("return_date", ErrReturnDateInvalid)
	}
	return nil
}
