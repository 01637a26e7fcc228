// Package lending keeps copy availability consistent with the loans table.
//
// A copy is unavailable exactly when an unreturned loan references it. Every
// path that creates, edits, returns or deletes a loan (and the copy delete
// guard) runs here, inside one transaction that writes the loan and the
// affected copy flags together. Copy flag writes are guarded by the copy's
// version, so two operators racing for the same copy cannot both win: the
// loser gets an apperr.ConflictError carrying apperr.ErrStaleWrite.
//
// # Edit transitions
//
//	copy changed, loan stays open   release old copy (if it was held), reserve new copy
//	open -> returned                release the held copy
//	returned -> open                reserve the copy
//	anything else                   no availability change
//
// The service performs no authorization; the Actor is recorded in the audit
// trail only.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// Actor identifies who triggered an operation.
type Actor struct {
	UserID uint
	Role   entities.UserRole
}

// System is the actor used by background jobs.
var System = Actor{}

// Auditor receives a record of every successful mutation.
type Auditor interface {
	LogChange(userID uint, eventType entities.AuditEventType, action, entityType string, entityID uint, description string, metadata map[string]any)
}

type CreateLoanRequest struct {
	UserID  uint      `json:"user_id"`
	CopyID  uint      `json:"copy_id"`
	DueDate time.Time `json:"due_date"`
}

// EditLoanRequest replaces every editable field of a loan. A non-zero
// Version must match the stored loan, which lets a form detect that someone
// else edited the loan since it was rendered.
type EditLoanRequest struct {
	UserID     uint       `json:"user_id"`
	CopyID     uint       `json:"copy_id"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Version    uint       `json:"version"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for loan dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithAuditor records successful mutations.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.audit = a
	}
}

type Service struct {
	db    *gorm.DB
	audit Auditor
	now   func() time.Time
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLoan lends an available copy to a user. The copy is marked
// unavailable in the same transaction that inserts the loan.
func (s *Service) CreateLoan(ctx context.Context, actor Actor, req CreateLoanRequest) (*entities.Loan, error) {
	if err := validateDueDate(req.DueDate); err != nil {
		return nil, err
	}

	var loan *entities.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, req.UserID); err != nil {
			return err
		}
		c, err := loadCopy(tx, req.CopyID)
		if err != nil {
			return err
		}
		if err := reserve(tx, c); err != nil {
			return err
		}

		loan = &entities.Loan{
			UserID:   req.UserID,
			CopyID:   req.CopyID,
			LoanDate: s.now().UTC(),
			DueDate:  req.DueDate.UTC(),
		}
		return loans.NewRepository(tx).Create(loan)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Loan lifecycle: created loan %d (copy %d, user %d, due %s)",
		loan.ID, loan.CopyID, loan.UserID, loan.DueDate.Format(time.DateOnly))
	s.record(actor, "loan_create", "loan", loan.ID,
		fmt.Sprintf("Loaned copy %d to user %d", loan.CopyID, loan.UserID),
		map[string]any{"copy_id": loan.CopyID, "user_id": loan.UserID, "due_date": loan.DueDate})

	return loan, nil
}

// EditLoan replaces the loan's fields and applies the availability
// transition implied by the change of copy and return state. A missing loan
// is reported before any problem with the new field values.
func (s *Service) EditLoan(ctx context.Context, actor Actor, loanID uint, req EditLoanRequest) (*entities.Loan, error) {
	var (
		loan       *entities.Loan
		transition string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := loans.NewRepository(tx)

		var err error
		loan, err = repo.GetByID(loanID)
		if err != nil {
			return err
		}
		if err := validateDueDate(req.DueDate); err != nil {
			return err
		}
		if err := validateReturnDate(req.ReturnDate); err != nil {
			return err
		}
		if req.Version != 0 && req.Version != loan.Version {
			return apperr.Conflict(apperr.ErrStaleWrite)
		}
		if err := requireUser(tx, req.UserID); err != nil {
			return err
		}

		wasActive := loan.IsActive()
		staysActive := req.ReturnDate == nil
		copyChanged := req.CopyID != loan.CopyID

		switch {
		case copyChanged && staysActive:
			transition = "reassign"
			next, err := loadCopy(tx, req.CopyID)
			if err != nil {
				return err
			}
			if wasActive {
				if err := releaseByID(tx, loan.CopyID); err != nil {
					return err
				}
			}
			if err := reserve(tx, next); err != nil {
				return err
			}
		case wasActive && !staysActive:
			transition = "return"
			if copyChanged {
				if _, err := loadCopy(tx, req.CopyID); err != nil {
					return err
				}
			}
			if err := releaseByID(tx, loan.CopyID); err != nil {
				return err
			}
		case !wasActive && staysActive:
			transition = "reopen"
			current, err := loadCopy(tx, loan.CopyID)
			if err != nil {
				return err
			}
			if err := reserve(tx, current); err != nil {
				return err
			}
		default:
			transition = "update"
			if copyChanged {
				if _, err := loadCopy(tx, req.CopyID); err != nil {
					return err
				}
			}
		}

		expected := loan.Version
		loan.UserID = req.UserID
		loan.CopyID = req.CopyID
		loan.DueDate = req.DueDate.UTC()
		loan.ReturnDate = utc(req.ReturnDate)
		return repo.Update(loan, expected)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Loan lifecycle: edited loan %d (%s, copy %d, user %d)", loan.ID, transition, loan.CopyID, loan.UserID)
	s.record(actor, "loan_"+transition, "loan", loan.ID,
		fmt.Sprintf("Edited loan %d (%s)", loan.ID, transition),
		map[string]any{"copy_id": loan.CopyID, "user_id": loan.UserID, "returned": !loan.IsActive()})

	return loan, nil
}

// ReturnLoan closes an active loan at the given instant. Returning a loan
// that is already closed is a no-op.
func (s *Service) ReturnLoan(ctx context.Context, actor Actor, loanID uint, at time.Time) (*entities.Loan, error) {
	loan, err := loans.NewRepository(s.db.WithContext(ctx)).GetByID(loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return loan, nil
	}
	if at.IsZero() {
		at = s.now()
	}

	return s.EditLoan(ctx, actor, loanID, EditLoanRequest{
		UserID:     loan.UserID,
		CopyID:     loan.CopyID,
		DueDate:    loan.DueDate,
		ReturnDate: &at,
		Version:    loan.Version,
	})
}

// DeleteLoan removes a loan, releasing its copy first if the loan is still
// active.
func (s *Service) DeleteLoan(ctx context.Context, actor Actor, loanID uint) error {
	var loan *entities.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := loans.NewRepository(tx)

		var err error
		loan, err = repo.GetByID(loanID)
		if err != nil {
			return err
		}
		if loan.IsActive() {
			if err := releaseByID(tx, loan.CopyID); err != nil {
				return err
			}
		}
		return repo.Delete(loan.ID, loan.Version)
	})
	if err != nil {
		return err
	}

	log.Printf("Loan lifecycle: deleted loan %d (copy %d, active=%t)", loan.ID, loan.CopyID, loan.IsActive())
	s.record(actor, "loan_delete", "loan", loan.ID,
		fmt.Sprintf("Deleted loan %d", loan.ID),
		map[string]any{"copy_id": loan.CopyID, "was_active": loan.IsActive()})
	return nil
}

// DeleteCopy removes a copy that no active loan references. Its returned
// loans are removed with it.
func (s *Service) DeleteCopy(ctx context.Context, actor Actor, copyID uint) error {
	var (
		c       *entities.Copy
		removed int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		copyRepo := copies.NewRepository(tx)
		loanRepo := loans.NewRepository(tx)

		var err error
		c, err = copyRepo.GetByID(copyID)
		if err != nil {
			return err
		}
		active, err := loanRepo.HasActiveForCopy(c.ID)
		if err != nil {
			return err
		}
		if active {
			return apperr.Conflict(ErrCopyLoaned)
		}
		removed, err = loanRepo.DeleteClosedForCopy(c.ID)
		if err != nil {
			return err
		}
		return copyRepo.Delete(c.ID, c.Version)
	})
	if err != nil {
		return err
	}

	log.Printf("Loan lifecycle: deleted copy %d (%s), removed %d returned loans", c.ID, c.CatalogNumber, removed)
	s.recordEvent(actor, entities.AuditEventCopy, "copy_delete", "copy", c.ID,
		"Deleted copy "+c.CatalogNumber,
		map[string]any{"closed_loans_removed": removed})
	return nil
}

func (s *Service) record(actor Actor, action, entityType string, entityID uint, description string, metadata map[string]any) {
	s.recordEvent(actor, entities.AuditEventLoan, action, entityType, entityID, description, metadata)
}

func (s *Service) recordEvent(actor Actor, eventType entities.AuditEventType, action, entityType string, entityID uint, description string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.LogChange(actor.UserID, eventType, action, entityType, entityID, description, metadata)
}

func requireUser(tx *gorm.DB, userID uint) error {
	ok, err := users.NewRepository(tx).Exists(userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("user_id", ErrNoSuchUser)
	}
	return nil
}

// loadCopy fetches a copy named by the caller; a missing copy is bad input.
func loadCopy(tx *gorm.DB, copyID uint) (*entities.Copy, error) {
	if copyID == 0 {
		return nil, apperr.Validation("copy_id", ErrCopyNotFound)
	}
	c, err := copies.NewRepository(tx).GetByID(copyID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("copy_id", ErrCopyNotFound)
		}
		return nil, err
	}
	return c, nil
}

func reserve(tx *gorm.DB, c *entities.Copy) error {
	if !c.Available {
		return apperr.Validation("copy_id", ErrCopyNotAvailable)
	}
	return copies.NewRepository(tx).SetAvailable(c.ID, c.Version, false)
}

func releaseByID(tx *gorm.DB, copyID uint) error {
	repo := copies.NewRepository(tx)
	c, err := repo.GetByID(copyID)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	return repo.SetAvailable(c.ID, c.Version, true)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
