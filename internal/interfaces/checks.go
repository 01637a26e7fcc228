package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifier"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*catalog.Repository)(nil)
var _ http.CategoryStore = (*catalog.Repository)(nil)
var _ http.CopyStore = (*copies.Repository)(nil)
var _ http.LoanReader = (*loans.Repository)(nil)
var _ http.NotificationStore = (*notifications.Repository)(nil)
var _ http.UserManager = (*auth.Service)(nil)

// =============================================================================
// Loan Lifecycle
// =============================================================================

var _ http.LoanManager = (*lending.Service)(nil)
var _ http.CopyRemover = (*lending.Service)(nil)
var _ http.AvailabilityChecker = (*lending.Service)(nil)
var _ tasks.AvailabilityReconciler = (*lending.Service)(nil)

// =============================================================================
// Due-Soon Notifier
// =============================================================================

var _ scheduler.Scanner = (*notifier.DueSoon)(nil)
var _ http.NotifierRunner = (*scheduler.DueSoonScheduler)(nil)
var _ http.SchedulerState = (*scheduler.DueSoonScheduler)(nil)
var _ tasks.DueSoonRunner = (*scheduler.DueSoonScheduler)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ lending.Auditor = (*audit.Service)(nil)
var _ notifier.ScanRecorder = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)
var _ http.ChangeRecorder = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Task Queue
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
