package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

const (
	maxNameLength  = 50
	maxEmailLength = 100

	defaultMaxLoginAttempts = 5
	defaultLockoutDuration  = 30 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name must be at most 50 characters")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
)

// NewUser is the input for account creation.
type NewUser struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Password  string            `json:"password"`
	Role      entities.UserRole `json:"role"`
}

// UserUpdate holds the profile fields an administrator may change.
type UserUpdate struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Role      entities.UserRole `json:"role"`
}

// Service handles authentication and user management.
type Service struct {
	users  *users.Repository
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{
		users:  repo,
		config: cfg,
		now:    time.Now,
	}
}

// CreateUser validates the input, hashes the password and stores the user.
func (s *Service) CreateUser(in NewUser) (*entities.User, error) {
	user := &entities.User{Role: in.Role}
	if err := validateProfile(user, in.FirstName, in.LastName, in.Email); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("role", ErrInvalidRole)
	}
	if in.Password == "" {
		return nil, apperr.Validation("password", ErrPasswordRequired)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation("password", err)
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = passwordHash

	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser changes names, email and role of an existing user.
func (s *Service) UpdateUser(id uint, in UserUpdate) (*entities.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(user, in.FirstName, in.LastName, in.Email); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("role", ErrInvalidRole)
	}
	user.Role = in.Role

	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return s.users.GetByID(id)
}

// ListUsers returns all users, optionally narrowed to one role.
func (s *Service) ListUsers(role entities.UserRole) ([]entities.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("role", ErrInvalidRole)
	}
	return s.users.List(role)
}

// DeleteUser removes a user that no loan or notification references.
func (s *Service) DeleteUser(id uint) error {
	return s.users.Delete(id)
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now().UTC()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	if err := s.users.UpdateFields(user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxLoginAttempts
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration <= 0 {
			lockoutDuration = defaultLockoutDuration
		}
		lockedUntil := now.Add(lockoutDuration)
		updates["locked_until"] = lockedUntil
		updates["failed_login_count"] = 0
		user.LockedUntil = &lockedUntil
		user.FailedLoginCount = 0
	}

	_ = s.users.UpdateFields(user.ID, updates)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.users.GetByID(id)
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByTokenHash(HashToken(token))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return user, nil
}

// GenerateToken creates a new API token for a user, replacing any earlier
// one. Only the hash is stored; the plaintext is returned once.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.users.UpdateFields(userID, map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(userID uint) error {
	err := s.users.UpdateFields(userID, map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ChangePassword updates a user's password after checking the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return apperr.Validation("password", err)
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.users.UpdateFields(userID, map[string]any{"password_hash": newHash})
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.users.Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserCount returns the number of users in the database.
func (s *Service) GetUserCount() (int64, error) {
	return s.users.Count()
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}

// validateProfile trims and checks names and email, then copies them onto
// user.
func validateProfile(user *entities.User, firstName, lastName, email string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)

	names := []struct{ field, value string }{
		{"first_name", firstName},
		{"last_name", lastName},
	}
	for _, n := range names {
		if n.value == "" {
			return apperr.Validation(n.field, ErrNameRequired)
		}
		if len([]rune(n.value)) > maxNameLength {
			return apperr.Validation(n.field, ErrNameTooLong)
		}
	}
	if email == "" {
		return apperr.Validation("email", ErrEmailRequired)
	}
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return apperr.Validation("email", ErrEmailInvalid)
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.Email = email
	return nil
}
