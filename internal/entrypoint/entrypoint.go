package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifier"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT. SIGKILL can't be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background workers stop before the listener so in-flight scans finish
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Services bundles the domain services shared by the server and the CLI
// commands.
type Services struct {
	DB            *database.Database
	Audit         *audit.Service
	Users         *users.Repository
	Catalog       *catalog.Repository
	Copies        *copies.Repository
	Loans         *loans.Repository
	Notifications *notifications.Repository
	Lending       *lending.Service
	DueSoon       *notifier.DueSoon
}

// Open connects to the configured database and builds the services on top
// of it. Close releases them.
func Open(cfg *config.Config) (*Services, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	return &Services{
		DB:            db,
		Audit:         auditService,
		Users:         users.NewRepository(db.DB),
		Catalog:       catalog.NewRepository(db.DB),
		Copies:        copies.NewRepository(db.DB),
		Loans:         loans.NewRepository(db.DB),
		Notifications: notifications.NewRepository(db.DB),
		Lending:       lending.NewService(db.DB, lending.WithAuditor(auditService)),
		DueSoon:       notifier.NewDueSoon(db.DB, notifier.ConfigFrom(cfg.Notifier), notifier.WithRecorder(auditService)),
	}, nil
}

// Close waits for pending audit writes and closes the database.
func (s *Services) Close() {
	s.Audit.Wait()
	if err := s.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library v%s", version)
	if cfg.Global.DemoMode {
		log.Println("Demo mode enabled: write requests will be rejected")
	}

	svc, err := Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer svc.Close()

	// Due-soon notifier on a cron schedule
	dueSoonScheduler := scheduler.NewDueSoonScheduler(svc.DueSoon, cfg.Notifier)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := dueSoonScheduler.Start(schedulerCtx); err != nil {
		log.Fatalf("Failed to start due-soon scheduler: %v", err)
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewNotifyDueSoonQueue(dueSoonScheduler),
			tasks.NewReconcileAvailabilityQueue(svc.Lending),
			tasks.NewCleanupAuditEventsQueue(svc.Audit, cfg.Audit.RetentionDays),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Initialize authentication if enabled
	authService := auth.NewService(svc.Users, cfg.Auth)
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		// Sessions share the main database on sqlite and live in memory
		// for the server databases.
		var sqlDB *sql.DB
		if svc.DB.Driver == config.DriverSQLite {
			sqlDB, err = svc.DB.SQLDB()
			if err != nil {
				log.Fatalf("Failed to get SQL DB for sessions: %v", err)
			}
		} else {
			log.Printf("Sessions are kept in memory for driver %s", svc.DB.Driver)
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		csrfSecret, err = resolveCSRFSecret(cfg.Auth.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}

		hasUsers, _ := authService.HasUsers()
		if !hasUsers {
			log.Printf("No users found. POST /api/auth/setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)
	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth, svc.Audit)

	routerCfg := http_controllers.RouterConfig{
		Database:       svc.DB,
		Version:        version,
		Location:       cfg.Notifier.Location(),
		Books:          svc.Catalog,
		Categories:     svc.Catalog,
		Copies:         svc.Copies,
		Loans:          svc.Loans,
		Lending:        svc.Lending,
		Notifications:  svc.Notifications,
		Recorder:       svc.Audit,
		Audit:          svc.Audit,
		Notifier:       dueSoonScheduler,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		AuthController: authController,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		DemoMode:       cfg.Global.DemoMode,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		dueSoonScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		authController.Stop()
	}

	Serve(router, cfg, onShutdown)
}

// resolveCSRFSecret decodes a hex secret, falls back to the raw bytes, and
// generates a fresh secret when none is configured.
func resolveCSRFSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}
