package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifier"
	"github.com/mrlokans/library/internal/scheduler"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "library.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "library-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "library-tasks.db"), DatabasePath(filepath.Join("data", "library.db")))
	assert.Equal(t, filepath.Join("data", "library-tasks.db"), DatabasePath(filepath.Join("data", "library")))
}

func TestClientStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "library.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStop_NotStarted(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "library.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Stop(context.Background()))
}

type fakeRunner struct {
	results chan string
	err     error
}

func (f *fakeRunner) Run(_ context.Context, trigger string) (*notifier.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.results <- trigger
	return &notifier.ScanResult{ScanID: "s1", Trigger: trigger}, nil
}

func TestEnqueue_RunsRegisteredTask(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "library.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	runner := &fakeRunner{results: make(chan string, 1)}
	client.Register(NewNotifyDueSoonQueue(runner))
	assert.Equal(t, []string{"notify_due_soon"}, client.Queues())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.Enqueue(context.Background(), NotifyDueSoonTask{RequestedBy: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case trigger := <-runner.results:
		assert.Equal(t, notifier.TriggerTask, trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestEnqueue_UnknownQueue(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "library.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Enqueue(context.Background(), ReconcileAvailabilityTask{})

	assert.ErrorIs(t, err, ErrUnknownTaskType)
}

func TestNotifyDueSoonProcessor(t *testing.T) {
	t.Run("scan in progress is not a failure", func(t *testing.T) {
		process := NotifyDueSoonProcessor(&fakeRunner{err: scheduler.ErrScanInProgress})
		assert.NoError(t, process(context.Background(), NotifyDueSoonTask{}))
	})

	t.Run("scan failure is retried", func(t *testing.T) {
		process := NotifyDueSoonProcessor(&fakeRunner{err: errors.New("database is locked")})
		assert.Error(t, process(context.Background(), NotifyDueSoonTask{}))
	})

	t.Run("missing runner", func(t *testing.T) {
		assert.Error(t, NotifyDueSoonProcessor(nil)(context.Background(), NotifyDueSoonTask{}))
	})
}

type fakeReconciler struct {
	actor    lending.Actor
	repaired int
	err      error
}

func (f *fakeReconciler) ReconcileAvailability(_ context.Context, actor lending.Actor) (int, error) {
	f.actor = actor
	return f.repaired, f.err
}

func TestReconcileAvailabilityProcessor(t *testing.T) {
	r := &fakeReconciler{repaired: 2}

	err := ReconcileAvailabilityProcessor(r)(context.Background(), ReconcileAvailabilityTask{RequestedBy: 7})

	require.NoError(t, err)
	assert.Equal(t, uint(7), r.actor.UserID)

	r.err = errors.New("boom")
	assert.Error(t, ReconcileAvailabilityProcessor(r)(context.Background(), ReconcileAvailabilityTask{}))
}

type fakeCleaner struct {
	retention   time.Duration
	deleted     int64
	err         error
	maintenance []string
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return f.deleted, f.err
}

func (f *fakeCleaner) LogMaintenance(action, _ string, _ int64, _ error) {
	f.maintenance = append(f.maintenance, action)
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	t.Run("default retention", func(t *testing.T) {
		c := &fakeCleaner{deleted: 4}
		require.NoError(t, CleanupAuditEventsProcessor(c, 0)(context.Background(), CleanupAuditEventsTask{}))
		assert.Equal(t, 90*24*time.Hour, c.retention)
		assert.Equal(t, []string{"cleanup_audit_events"}, c.maintenance)
	})

	t.Run("configured retention", func(t *testing.T) {
		c := &fakeCleaner{}
		require.NoError(t, CleanupAuditEventsProcessor(c, 30)(context.Background(), CleanupAuditEventsTask{}))
		assert.Equal(t, 30*24*time.Hour, c.retention)
	})

	t.Run("explicit retention", func(t *testing.T) {
		c := &fakeCleaner{}
		require.NoError(t, CleanupAuditEventsProcessor(c, 30)(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
		assert.Equal(t, 7*24*time.Hour, c.retention)
	})

	t.Run("failure is recorded and returned", func(t *testing.T) {
		c := &fakeCleaner{err: errors.New("disk full")}
		assert.Error(t, CleanupAuditEventsProcessor(c, 0)(context.Background(), CleanupAuditEventsTask{}))
		assert.Len(t, c.maintenance, 1)
	})
}

func TestTaskQueueConfigs(t *testing.T) {
	tests := []struct {
		task        backlite.Task
		name        string
		maxAttempts int
	}{
		{NotifyDueSoonTask{}, "notify_due_soon", 3},
		{ReconcileAvailabilityTask{}, "reconcile_availability", 1},
		{CleanupAuditEventsTask{}, "cleanup_audit_events", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.task.Config()
			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.maxAttempts, cfg.MaxAttempts)
			assert.NotNil(t, cfg.Retention)
		})
	}
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "pending", StatusName(backlite.TaskStatusPending))
	assert.Equal(t, "success", StatusName(backlite.TaskStatusSuccess))
	assert.Equal(t, "not_found", StatusName(backlite.TaskStatusNotFound))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4, TaskTimeout: time.Minute})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}
