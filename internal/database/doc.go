// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite/mysql/postgres), migrations
//	├── users/           # Accounts, case-insensitive email uniqueness
//	├── catalog/         # Books, categories, book search
//	├── copies/          # Physical copies, versioned availability writes
//	├── loans/           # Loan rows and due-window queries
//	├── notifications/   # Borrower notifications and reminder dedup lookups
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over a *gorm.DB. Because the
// handle may be a transaction, repositories compose inside one unit of work:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//		copy, err := copies.NewRepository(tx).GetByID(copyID)
//		...
//		return loans.NewRepository(tx).Create(loan)
//	})
//
// # Errors
//
// Repositories return apperr kinds: a missing row becomes *apperr.NotFoundError,
// a uniqueness or version clash becomes *apperr.ConflictError, and bad input
// becomes *apperr.ValidationError. Everything else is wrapped with context.
//
// # Timestamps
//
// All times are written in UTC (gorm NowFunc plus explicit conversion in
// callers) so that sqlite's text comparison orders them correctly.
package database
