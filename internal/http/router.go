package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/demo"
	"github.com/mrlokans/library/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(auth.DefaultHSTSMaxAge))
	}
	router.Use(demo.NewMiddleware(cfg.DemoMode).Handler())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - inject default user ID
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	var requireAuth gin.HandlerFunc = passThrough
	requireRole := func(...entities.UserRole) gin.HandlerFunc { return passThrough }
	if cfg.AuthMiddleware != nil {
		requireAuth = cfg.AuthMiddleware.RequireAuth()
		requireRole = cfg.AuthMiddleware.RequireRole
	}

	// Health endpoints
	var schedulerState SchedulerState
	if cfg.Notifier != nil {
		schedulerState = cfg.Notifier
	}
	health := NewHealthController(cfg.Database, schedulerState, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router.Group("/api/auth"))
	}

	api := router.Group("/api", requireAuth)
	staff := api.Group("", requireRole(entities.StaffRoles...))
	admin := api.Group("", requireRole(entities.UserRoleAdministrator))

	// API token management endpoints
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		tokenController := auth.NewAPITokenController(cfg.AuthService)
		api.POST("/auth/token", tokenController.GenerateToken)
		api.DELETE("/auth/token", tokenController.RevokeToken)
	}

	// Catalog: anyone signed in reads, staff writes
	if cfg.Books != nil {
		books := NewBooksController(cfg.Books, cfg.Recorder)
		api.GET("/books", books.SearchBooks)
		api.GET("/books/:id", books.GetBook)
		staff.POST("/books", books.CreateBook)
		staff.PUT("/books/:id", books.UpdateBook)
		staff.DELETE("/books/:id", books.DeleteBook)
	}

	if cfg.Categories != nil {
		categories := NewCategoriesController(cfg.Categories, cfg.Recorder)
		api.GET("/categories", categories.ListCategories)
		api.GET("/categories/:id", categories.GetCategory)
		staff.POST("/categories", categories.CreateCategory)
		staff.PUT("/categories/:id", categories.RenameCategory)
		staff.DELETE("/categories/:id", categories.DeleteCategory)
	}

	if cfg.Copies != nil && cfg.Lending != nil {
		copiesController := NewCopiesController(cfg.Copies, cfg.Lending, cfg.Recorder)
		api.GET("/copies", copiesController.ListCopies)
		api.GET("/copies/:id", copiesController.GetCopy)
		staff.POST("/copies", copiesController.CreateCopy)
		staff.PUT("/copies/:id", copiesController.UpdateCopy)
		staff.DELETE("/copies/:id", copiesController.DeleteCopy)
	}

	// Loans
	if cfg.Loans != nil && cfg.Lending != nil {
		loansController := NewLoansController(cfg.Loans, cfg.Lending, cfg.Location)
		staff.GET("/loans", loansController.ListLoans)
		staff.GET("/loans/:id", loansController.GetLoan)
		staff.POST("/loans", loansController.CreateLoan)
		staff.PUT("/loans/:id", loansController.UpdateLoan)
		staff.POST("/loans/:id/return", loansController.ReturnLoan)
		staff.DELETE("/loans/:id", loansController.DeleteLoan)

		availability := NewAvailabilityController(cfg.Lending)
		staff.GET("/admin/availability", availability.Check)
	}

	// Notifications
	if cfg.Notifications != nil {
		notificationsController := NewNotificationsController(cfg.Notifications, cfg.Recorder, cfg.Location)
		staff.GET("/notifications", notificationsController.ListNotifications)
		staff.GET("/notifications/:id", notificationsController.GetNotification)
		staff.POST("/notifications", notificationsController.CreateNotification)
		staff.PUT("/notifications/:id", notificationsController.UpdateNotification)
		staff.DELETE("/notifications/:id", notificationsController.DeleteNotification)
	}

	// The caller's own records
	if cfg.Loans != nil && cfg.Notifications != nil {
		me := NewMeController(cfg.Loans, cfg.Notifications)
		api.GET("/me/loans", me.MyLoans)
		api.GET("/me/notifications", me.MyNotifications)
	}

	// Due-soon notifier
	if cfg.Notifier != nil {
		notifierController := NewNotifierController(cfg.Notifier)
		staff.POST("/admin/notifier/run", notifierController.RunNow)
		staff.GET("/admin/notifier/status", notifierController.GetStatus)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		staff.GET("/tasks/types", tasksController.ListTaskTypes)
		staff.GET("/tasks/:id", tasksController.GetTaskStatus)
		staff.POST("/tasks/:type/run", tasksController.RunTask)
	}

	// Administrator only
	if cfg.AuthService != nil {
		users := NewUsersController(cfg.AuthService, cfg.Recorder)
		admin.GET("/users", users.ListUsers)
		admin.GET("/users/:id", users.GetUser)
		admin.POST("/users", users.CreateUser)
		admin.PUT("/users/:id", users.UpdateUser)
		admin.DELETE("/users/:id", users.DeleteUser)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		admin.GET("/admin/audit", auditController.GetAuditEvents)
		admin.GET("/admin/audit/:id", auditController.GetAuditEvent)
	}

	return router
}

func passThrough(c *gin.Context) {
	c.Next()
}
