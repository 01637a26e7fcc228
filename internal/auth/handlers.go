package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// Auditor records authentication events.
type Auditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// AuthController serves the JSON login, logout, setup and registration
// endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	rateLimiter    *RateLimiter
	auditor        Auditor

	// serializes first-run setup so two requests cannot both create the
	// first administrator
	setupMu sync.Mutex
}

// NewAuthController creates a new authentication controller. auditor may
// be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, auditor Auditor) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		rateLimiter:    NewRateLimiter(RateLimitConfigFrom(cfg)),
		auditor:        auditor,
	}
}

// RegisterRoutes registers the endpoints on an /api/auth group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.POST("/setup", ac.Setup)
	group.POST("/register", ac.Register)
	group.GET("/csrf", ac.CSRFToken)
	group.GET("/me", ac.Me)
	group.PUT("/me/password", ac.ChangePassword)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Email); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"retry_after": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(req.Email, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, req.Email)
		ac.audit(c, 0, "login", false)

		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, try again later"})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		default:
			respondError(c, "login", err)
		}
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, req.Email)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			respondError(c, "create session", err)
			return
		}
	}
	ac.audit(c, user.ID, "login", true)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout handles POST /api/auth/logout.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if ac.sessionManager != nil {
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			respondError(c, "logout", err)
			return
		}
	}
	if userID != 0 {
		ac.audit(c, userID, "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type signupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r signupRequest) user(role entities.UserRole) NewUser {
	return NewUser{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      role,
	}
}

// Setup handles POST /api/auth/setup: it creates the first administrator
// and is refused once any user exists.
func (ac *AuthController) Setup(c *gin.Context) {
	ac.setupMu.Lock()
	defer ac.setupMu.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		respondError(c, "setup", err)
		return
	}
	if hasUsers {
		c.JSON(http.StatusConflict, gin.H{"error": "setup already completed"})
		return
	}

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := ac.service.CreateUser(req.user(entities.UserRoleAdministrator))
	if err != nil {
		respondError(c, "setup", err)
		return
	}
	ac.startSession(c, user, "setup")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Register handles POST /api/auth/register: self-service client accounts.
func (ac *AuthController) Register(c *gin.Context) {
	if !ac.service.IsAuthEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration is not available"})
		return
	}

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := ac.service.CreateUser(req.user(entities.UserRoleClient))
	if err != nil {
		respondError(c, "register", err)
		return
	}
	ac.startSession(c, user, "register")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// CSRFToken handles GET /api/auth/csrf.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"csrf_token": GetCSRFToken(c),
		"header":     CSRFTokenHeader,
	})
}

// Me handles GET /api/auth/me.
func (ac *AuthController) Me(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		if GetAuthType(c) == AuthTypeNone {
			c.JSON(http.StatusOK, gin.H{"auth_mode": config.AuthModeNone})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := ac.service.GetUserByID(userID)
	if err != nil {
		respondError(c, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"auth_type": GetAuthType(c),
		"auth_mode": ac.service.GetAuthMode(),
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword handles PUT /api/auth/me/password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
		return
	}

	if err := ac.service.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			ac.audit(c, userID, "password_change", false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}
		respondError(c, "change password", err)
		return
	}
	ac.audit(c, userID, "password_change", true)
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (ac *AuthController) startSession(c *gin.Context, user *entities.User, action string) {
	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Auth: failed to create session after %s for user %d: %v", action, user.ID, err)
		}
	}
	ac.audit(c, user.ID, action, true)
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		respondError(c, "generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		respondError(c, "revoke token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

// respondError maps service errors onto status codes. Unclassified errors
// are logged and hidden behind a generic 500.
func respondError(c *gin.Context, op string, err error) {
	var validation *apperr.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validation.Field})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("Internal error (%s): %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
