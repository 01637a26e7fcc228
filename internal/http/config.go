package http

import (
	"time"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies left nil disable their
// routes.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Version  string
	Location *time.Location // zone of date-only input; nil means UTC

	// Catalog
	Books      BookStore
	Categories CategoryStore
	Copies     CopyStore

	// Loan lifecycle (also deletes copies and checks availability)
	Loans   LoanReader
	Lending interface {
		LoanManager
		CopyRemover
		AvailabilityChecker
	}

	Notifications NotificationStore

	// Audit trail: records catalog/user changes and serves the admin log
	Recorder ChangeRecorder
	Audit    AuditReader

	// Due-soon notifier host
	Notifier interface {
		NotifierRunner
		SchedulerState
	}

	// Task queue client (optional)
	TaskClient TaskQueue

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Read-only demo deployment
	DemoMode bool
}
