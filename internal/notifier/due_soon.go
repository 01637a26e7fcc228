// Package notifier reminds borrowers about loans that are about to fall due.
//
// A scan looks at every active loan due between now and the end of the day
// HorizonDays from now, and writes one reminder per loan unless the borrower
// already received a reminder mentioning the same book title within the
// dedup window. All reminders of a scan are committed in one transaction.
//
// Duplicate suppression matches on user and title text, not on the loan, so
// two loans of the same title to the same user share a single reminder.
package notifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/entities"
)

const (
	DefaultHorizonDays = 2
	DefaultDedupWindow = 24 * time.Hour

	// DateLayout is the due-date format used in reminder messages.
	DateLayout = "02-01-2006"
)

// Scan triggers, recorded in logs and the audit trail.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
	TriggerTask     = "task"
	TriggerCLI      = "cli"
)

type Config struct {
	HorizonDays int
	DedupWindow time.Duration
	Location    *time.Location // zone of the end-of-day boundary
}

// ConfigFrom maps application settings onto notifier settings, filling in
// defaults for unset values.
func ConfigFrom(c config.Notifier) Config {
	cfg := Config{
		HorizonDays: c.HorizonDays,
		DedupWindow: c.DedupWindow,
		Location:    c.Location(),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = DefaultDedupWindow
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// ScanRecorder receives the outcome of every scan.
type ScanRecorder interface {
	LogNotifierScan(scanID, trigger string, candidates, created, skipped int, err error)
}

// ScanResult summarizes one scan.
type ScanResult struct {
	ScanID      string    `json:"scan_id"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"started_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Candidates  int       `json:"candidates"`
	Created     int       `json:"created"`
	Skipped     int       `json:"skipped"`
}

type Option func(*DueSoon)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *DueSoon) {
		n.now = now
	}
}

// WithRecorder reports scan outcomes to r.
func WithRecorder(r ScanRecorder) Option {
	return func(n *DueSoon) {
		n.recorder = r
	}
}

// DueSoon is the due-soon reminder scan.
type DueSoon struct {
	db       *gorm.DB
	cfg      Config
	now      func() time.Time
	recorder ScanRecorder
}

func NewDueSoon(db *gorm.DB, cfg Config, opts ...Option) *DueSoon {
	n := &DueSoon{db: db, cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Config returns the effective settings.
func (n *DueSoon) Config() Config {
	return n.cfg
}

// RunOnce performs a single scan. Errors are returned to the caller and
// reported to the recorder; nothing is written when the scan fails.
func (n *DueSoon) RunOnce(ctx context.Context, trigger string) (*ScanResult, error) {
	now := n.now()
	result := &ScanResult{
		ScanID:      uuid.NewString(),
		Trigger:     trigger,
		StartedAt:   now.UTC(),
		WindowStart: now.UTC(),
		WindowEnd:   WindowEnd(now, n.cfg.HorizonDays, n.cfg.Location).UTC(),
	}

	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		due, err := loans.NewRepository(tx).ListDueBetween(result.WindowStart, result.WindowEnd)
		if err != nil {
			return err
		}
		result.Candidates = len(due)

		repo := notifications.NewRepository(tx)
		since := now.Add(-n.cfg.DedupWindow)
		var batch []entities.Notification
		for _, loan := range due {
			if loan.Copy == nil || loan.Copy.Book == nil {
				log.Printf("Due-soon notifier: loan %d has no copy or book, skipping", loan.ID)
				result.Skipped++
				continue
			}
			title := loan.Copy.Book.Title

			sent, err := repo.ExistsForUserSince(loan.UserID, Marker(title), since)
			if err != nil {
				return err
			}
			if sent {
				result.Skipped++
				continue
			}

			batch = append(batch, entities.Notification{
				UserID:   loan.UserID,
				Message:  Message(title, loan.DueDate, n.cfg.Location),
				SentDate: now,
			})
		}

		if err := repo.CreateBatch(batch); err != nil {
			return err
		}
		result.Created = len(batch)
		return nil
	})
	if err != nil {
		log.Printf("Due-soon notifier: scan %s (%s) failed: %v", result.ScanID, trigger, err)
		n.record(result, err)
		return nil, fmt.Errorf("due-soon scan: %w", err)
	}

	log.Printf("Due-soon notifier: scan %s (%s) window [%s, %s]: %d due, %d reminders sent, %d skipped",
		result.ScanID, trigger,
		result.WindowStart.Format(time.RFC3339), result.WindowEnd.Format(time.RFC3339),
		result.Candidates, result.Created, result.Skipped)
	n.record(result, nil)
	return result, nil
}

func (n *DueSoon) record(r *ScanResult, err error) {
	if n.recorder == nil {
		return
	}
	if err != nil {
		n.recorder.LogNotifierScan(r.ScanID, r.Trigger, r.Candidates, 0, 0, err)
		return
	}
	n.recorder.LogNotifierScan(r.ScanID, r.Trigger, r.Candidates, r.Created, r.Skipped, nil)
}

// WindowEnd returns the last instant of the day that lies days after now,
// in loc.
func WindowEnd(now time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	d := now.In(loc).AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// Message is the reminder text for a book due at due.
func Message(title string, due time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("Reminder: the book '%s' is due back by %s.", title, due.In(loc).Format(DateLayout))
}

// Marker is the fragment of a reminder that identifies its book. It is the
// duplicate-suppression key.
func Marker(title string) string {
	return fmt.Sprintf("book '%s'", title)
}
