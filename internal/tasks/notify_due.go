package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/notifier"
	"github.com/mrlokans/library/internal/scheduler"
)

// DueSoonRunner runs one due-soon scan. *scheduler.DueSoonScheduler
// implements it and rejects overlapping scans.
type DueSoonRunner interface {
	Run(ctx context.Context, trigger string) (*notifier.ScanResult, error)
}

// NotifyDueSoonTask runs an out-of-schedule due-soon scan.
type NotifyDueSoonTask struct {
	RequestedBy uint `json:"requested_by,omitempty"`
}

// Config returns the queue configuration for due-soon scan tasks.
func (t NotifyDueSoonTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "notify_due_soon",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// NotifyDueSoonProcessor creates a processor function for NotifyDueSoonTask.
// A scan that is already running counts as done.
func NotifyDueSoonProcessor(runner DueSoonRunner) backlite.QueueProcessor[NotifyDueSoonTask] {
	return func(ctx context.Context, task NotifyDueSoonTask) error {
		if runner == nil {
			return errors.New("due-soon runner not configured")
		}

		result, err := runner.Run(ctx, notifier.TriggerTask)
		if errors.Is(err, scheduler.ErrScanInProgress) {
			log.Printf("[TASK] Due-soon scan already running, nothing to do")
			return nil
		}
		if err != nil {
			return fmt.Errorf("notify due soon: %w", err)
		}

		log.Printf("[TASK] Due-soon scan %s: %d due, %d reminders sent, %d skipped",
			result.ScanID, result.Candidates, result.Created, result.Skipped)
		return nil
	}
}

// NewNotifyDueSoonQueue creates a backlite queue for due-soon scan tasks.
func NewNotifyDueSoonQueue(runner DueSoonRunner) backlite.Queue {
	return backlite.NewQueue(NotifyDueSoonProcessor(runner))
}
