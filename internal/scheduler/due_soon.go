// Package scheduler hosts the recurring due-soon reminder scan.
//
// Stopping the scheduler is cooperative: no new scan starts after Stop is
// called, and Stop returns once the scan in flight (if any) has finished.
// A scan is never cut short by shutdown.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/notifier"
)

var ErrScanInProgress = errors.New("a due-soon scan is already running")

// Scanner runs a single due-soon scan.
type Scanner interface {
	RunOnce(ctx context.Context, trigger string) (*notifier.ScanResult, error)
}

// Status is a snapshot of the scheduler for the operations API.
type Status struct {
	Enabled     bool                 `json:"enabled"`
	Running     bool                 `json:"running"`
	Scanning    bool                 `json:"scanning"`
	Schedule    string               `json:"schedule"`
	Description string               `json:"description"`
	NextRun     *time.Time           `json:"next_run,omitempty"`
	LastRunAt   *time.Time           `json:"last_run_at,omitempty"`
	LastResult  *notifier.ScanResult `json:"last_result,omitempty"`
	LastError   string               `json:"last_error,omitempty"`
}

// DueSoonScheduler runs the due-soon scan on a cron schedule.
type DueSoonScheduler struct {
	scanner Scanner
	cfg     config.Notifier

	cron    *cron.Cron
	entryID cron.EntryID
	done    chan struct{}
	starts  sync.WaitGroup // run-on-start goroutine until it reaches scan

	mu         sync.RWMutex
	isRunning  bool
	isScanning bool
	scanDone   chan struct{} // closed when the scan in flight finishes
	lastRunAt  *time.Time
	lastResult *notifier.ScanResult
	lastError  string
}

// NewDueSoonScheduler creates a scheduler instance. Nothing runs until Start.
func NewDueSoonScheduler(scanner Scanner, cfg config.Notifier) *DueSoonScheduler {
	return &DueSoonScheduler{
		scanner: scanner,
		cfg:     cfg,
	}
}

// Start registers the scan with cron and, when configured, runs one scan
// immediately in the background. Cancelling ctx stops the scheduler.
func (s *DueSoonScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Due-soon scheduler: disabled")
		return nil
	}

	if err := ValidateSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid notifier schedule '%s': %w", s.cfg.Schedule, err)
	}

	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))),
	)
	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runScheduled(notifier.TriggerSchedule)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule due-soon scan: %w", err)
	}
	s.entryID = entryID
	s.done = make(chan struct{})

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.cfg.Schedule, time.Now())
	log.Printf("Due-soon scheduler: started with schedule '%s' (%s). Next run: %v",
		s.cfg.Schedule, DescribeSchedule(s.cfg.Schedule), nextRun)

	if s.cfg.RunOnStart {
		s.starts.Add(1)
		go func() {
			defer s.starts.Done()
			s.runScheduled(notifier.TriggerStartup)
		}()
	}

	done := s.done
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	return nil
}

// Stop prevents new scheduled scans and waits for a running scan to
// complete, whichever trigger started it.
func (s *DueSoonScheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.isRunning
	if wasRunning {
		s.isRunning = false
		close(s.done)
		stopped := s.cron.Stop()
		s.mu.Unlock()

		<-stopped.Done()
		s.starts.Wait()
	} else {
		s.mu.Unlock()
	}

	// Manual and task-queue scans run even when the schedule is off.
	s.mu.RLock()
	inFlight := s.scanDone
	s.mu.RUnlock()
	if inFlight != nil {
		<-inFlight
	}

	if wasRunning {
		log.Printf("Due-soon scheduler: stopped")
	}
}

// RunNow performs a scan synchronously. It fails with ErrScanInProgress
// if a scan is already running.
func (s *DueSoonScheduler) RunNow(ctx context.Context) (*notifier.ScanResult, error) {
	return s.scan(ctx, notifier.TriggerManual)
}

// Run is RunNow with an explicit trigger, for callers such as the task
// queue. It works whether or not the scheduler has been started.
func (s *DueSoonScheduler) Run(ctx context.Context, trigger string) (*notifier.ScanResult, error) {
	return s.scan(ctx, trigger)
}

// IsRunning returns whether the scheduler is active
func (s *DueSoonScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsScanning returns whether a scan is currently in progress
func (s *DueSoonScheduler) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isScanning
}

// GetNextRunTime returns when the next scheduled scan will occur
func (s *DueSoonScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// Status returns a snapshot of the scheduler state.
func (s *DueSoonScheduler) Status() Status {
	next := s.GetNextRunTime()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Enabled:     s.cfg.Enabled,
		Running:     s.isRunning,
		Scanning:    s.isScanning,
		Schedule:    s.cfg.Schedule,
		Description: DescribeSchedule(s.cfg.Schedule),
		NextRun:     next,
		LastRunAt:   s.lastRunAt,
		LastResult:  s.lastResult,
		LastError:   s.lastError,
	}
}

// runScheduled is the background entry point. Failures are logged and the
// next scheduled scan runs as usual.
func (s *DueSoonScheduler) runScheduled(trigger string) {
	_, err := s.scan(context.Background(), trigger)
	switch {
	case errors.Is(err, ErrScanInProgress):
		log.Printf("Due-soon scheduler: %s scan skipped (already scanning)", trigger)
	case err != nil:
		log.Printf("Due-soon scheduler: %s scan failed: %v", trigger, err)
	}
}

func (s *DueSoonScheduler) scan(ctx context.Context, trigger string) (result *notifier.ScanResult, err error) {
	s.mu.Lock()
	if s.isScanning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.isScanning = true
	s.scanDone = make(chan struct{})
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("scan panicked: %v", r)
		}
		s.finishScan(result, err)
	}()

	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}

	return s.scanner.RunOnce(ctx, trigger)
}

func (s *DueSoonScheduler) finishScan(result *notifier.ScanResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.isScanning = false
	close(s.scanDone)
	s.scanDone = nil
	s.lastRunAt = &now
	s.lastResult = result
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
}
