package entities

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleClient        UserRole = "client"
	UserRoleLibrarian     UserRole = "librarian"
	UserRoleAdministrator UserRole = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleClient, UserRoleLibrarian, UserRoleAdministrator:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage loans and the catalog.
func (r UserRole) IsStaff() bool {
	return r == UserRoleLibrarian || r == UserRoleAdministrator
}

// StaffRoles are the roles allowed on mutation paths.
var StaffRoles = []UserRole{UserRoleLibrarian, UserRoleAdministrator}

type User struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	FirstName string   `gorm:"size:50;not null" json:"first_name"`
	LastName  string   `gorm:"size:50;not null" json:"last_name"`
	Email     string   `gorm:"size:100;not null" json:"email"`
	EmailKey  string   `gorm:"uniqueIndex;size:100;not null" json:"-"` // lower-cased email
	Role      UserRole `gorm:"size:20;not null;index" json:"role"`

	PasswordHash     string     `gorm:"size:255" json:"-"`
	TokenHash        string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time `json:"-"`
	FailedLoginCount int        `gorm:"not null;default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "First Last".
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	NameKey   string    `gorm:"uniqueIndex;size:100;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"index;size:200;not null" json:"title"`
	Author        string     `gorm:"index;size:100;not null" json:"author"`
	ISBN          string     `gorm:"index;size:20" json:"isbn,omitempty"`
	YearPublished int        `gorm:"index" json:"year_published"`
	Categories    []Category `gorm:"many2many:book_categories" json:"categories,omitempty"`
	Copies        []Copy     `gorm:"foreignKey:BookID" json:"copies,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Copy is one physical instance of a Book. Available is derived from the
// loans table and is only written by the lending service.
type Copy struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BookID        uint      `gorm:"index;not null" json:"book_id"`
	Book          *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CatalogNumber string    `gorm:"size:50;not null" json:"catalog_number"`
	CatalogKey    string    `gorm:"uniqueIndex;size:50;not null" json:"-"`
	Available     bool      `gorm:"not null;index" json:"available"`
	Version       uint      `gorm:"not null" json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CopyID     uint       `gorm:"index;not null" json:"copy_id"`
	Copy       *Copy      `gorm:"foreignKey:CopyID" json:"copy,omitempty"`
	LoanDate   time.Time  `gorm:"not null" json:"loan_date"`
	DueDate    time.Time  `gorm:"index;not null" json:"due_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`
	Version    uint       `gorm:"not null" json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsActive reports whether the loan is still outstanding.
func (l Loan) IsActive() bool {
	return l.ReturnDate == nil
}

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Message   string    `gorm:"size:255;not null" json:"message"`
	SentDate  time.Time `gorm:"index;not null" json:"sent_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeKey folds a user-entered identifier for case-insensitive
// uniqueness (emails, catalog numbers, category names).
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
