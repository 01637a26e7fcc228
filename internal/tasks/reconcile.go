package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/lending"
)

// AvailabilityReconciler rewrites copy availability from the loans table.
type AvailabilityReconciler interface {
	ReconcileAvailability(ctx context.Context, actor lending.Actor) (int, error)
}

// ReconcileAvailabilityTask repairs availability flags that drifted from
// the loans table.
type ReconcileAvailabilityTask struct {
	RequestedBy uint `json:"requested_by,omitempty"`
}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileAvailabilityTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_availability",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileAvailabilityProcessor creates a processor function for ReconcileAvailabilityTask.
func ReconcileAvailabilityProcessor(r AvailabilityReconciler) backlite.QueueProcessor[ReconcileAvailabilityTask] {
	return func(ctx context.Context, task ReconcileAvailabilityTask) error {
		if r == nil {
			return errors.New("availability reconciler not configured")
		}

		actor := lending.System
		actor.UserID = task.RequestedBy
		repaired, err := r.ReconcileAvailability(ctx, actor)
		if err != nil {
			return fmt.Errorf("reconcile availability: %w", err)
		}

		log.Printf("[TASK] Availability reconciled: %d copies repaired", repaired)
		return nil
	}
}

// NewReconcileAvailabilityQueue creates a backlite queue for reconciliation tasks.
func NewReconcileAvailabilityQueue(r AvailabilityReconciler) backlite.Queue {
	return backlite.NewQueue(ReconcileAvailabilityProcessor(r))
}
