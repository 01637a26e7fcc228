// Package auth provides authentication and role checks for the library API.
//
// It supports two authentication modes:
//   - "none": no authentication, every request acts as the single operator
//     and all role gates are open
//   - "local": users stored in the library database, session cookies for
//     browsers and Bearer tokens for API clients
//
// # Configuration
//
//	AUTH_MODE=none   # Default, no auth required
//	AUTH_MODE=local  # Requires user creation and login
//
// For local mode, additional configuration:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # failures before lockout
//
// # Roles
//
// Clients borrow books and read their own loans and notifications.
// Librarians and administrators manage the catalog, loans and
// notifications; only administrators manage users and read the audit trail.
//
// # Usage
//
//	authService := auth.NewService(users.NewRepository(db), cfg.Auth)
//	mw := auth.NewMiddleware(authService, sessions, cfg.Auth)
//	router.Use(mw.Handler())
//	staff := api.Group("", mw.RequireRole(entities.StaffRoles...))
package auth
