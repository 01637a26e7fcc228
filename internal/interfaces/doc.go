// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore, CategoryStore: the catalog (internal/http/books.go, categories.go)
//   - CopyStore: physical copies, never their availability (internal/http/copies.go)
//   - LoanReader: loan listings with user and copy preloaded (internal/http/loans.go)
//   - NotificationStore: reminder messages (internal/http/notifications.go)
//   - UserManager: administrator user management (internal/http/users.go)
//
// ## Loan Lifecycle Interfaces
//
// Every write that can change copy availability goes through lending.Service:
//
//   - LoanManager: create, edit, return and delete loans (internal/http/loans.go)
//   - CopyRemover: delete a copy unless it is on loan (internal/http/copies.go)
//   - AvailabilityChecker / AvailabilityReconciler: drift detection and repair
//
// ## Background Work Interfaces
//
//   - scheduler.Scanner: one due-soon scan (internal/scheduler/due_soon.go)
//   - NotifierRunner / tasks.DueSoonRunner: scans that share the scheduler's
//     overlap guard
//   - TaskQueue: backlite-backed queue client (internal/http/tasks.go)
//
// ## Audit Interfaces
//
// audit.Service implements every recorder: lending.Auditor,
// notifier.ScanRecorder, auth.Auditor, http.ChangeRecorder and
// tasks.AuditEventCleaner.
//
// # Adding a New Background Task
//
//  1. Define the task payload and its queue config in internal/tasks/
//
//     type OverdueDigestTask struct{}
//
//     func (t OverdueDigestTask) Config() backlite.QueueConfig {
//         return backlite.QueueConfig{Name: "overdue_digest", MaxAttempts: 3}
//     }
//
//  2. Write a processor over a narrow interface and a NewXQueue constructor
//
//  3. Register the queue in entrypoint.go and add the type to
//     TasksController.RunTask
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
