package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/akschools/fee_ledger_app/internal/adapters/database/pgsql"
	"github.com/akschools/fee_ledger_app/internal/core/services"
	"github.com/akschools/fee_ledger_app/internal/handlers"
	"github.com/akschools/fee_ledger_app/internal/middleware"
	"github.com/akschools/fee_ledger_app/pkg/config"
	"github.com/akschools/fee_ledger_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// @title Fee Ledger API
// @version 1.0
// @description Fee ledger and reconciliation engine for student admissions, invoices and payments.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS, rate limiting)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT format", slog.String("value", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	r.Use(middleware.RateLimit(limiter.New(memory.NewStore(), rate)))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceContainer := buildServices(dbPool)
	handlers.RegisterRoutes(r, cfg, serviceContainer)

	// Background reconciler: retries queued admission links and sweeps the
	// directory for aggregate/ledger drift.
	go runReconciler(context.Background(), logger, cfg.ReconcileInterval, serviceContainer)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildServices wires repositories into the service facades handed to route
// registration.
func buildServices(dbPool *pgxpool.Pool) *portssvc.ServiceContainer {
	studentRepo := pgsql.NewPgxStudentRepository(dbPool)
	invoiceRepo := pgsql.NewPgxInvoiceRepository(dbPool)
	linkQueue := pgsql.NewPgxPendingLinkRepository(dbPool)

	return &portssvc.ServiceContainer{
		Admission:      services.NewAdmissionService(studentRepo, invoiceRepo, linkQueue),
		Invoice:        services.NewInvoiceService(invoiceRepo, studentRepo),
		Correction:     services.NewCorrectionService(studentRepo, invoiceRepo),
		Summary:        services.NewSummaryService(studentRepo, invoiceRepo),
		Reconciliation: services.NewReconciliationService(studentRepo, invoiceRepo),
		Student:        services.NewStudentService(studentRepo),
	}
}

// runReconciler periodically retries pending admission links and runs the
// consistency sweep until the context is cancelled.
func runReconciler(ctx context.Context, logger *slog.Logger, interval time.Duration, services *portssvc.ServiceContainer) {
	reconcilerLogger := logger.With(slog.String("component", "reconciler"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx := middleware.WithLogger(ctx, reconcilerLogger)

			linked, err := services.Admission.RetryPendingLinks(runCtx)
			if err != nil {
				reconcilerLogger.Error("Pending link retry failed", slog.String("error", err.Error()))
			} else if linked > 0 {
				reconcilerLogger.Info("Pending links retried", slog.Int("linked", linked))
			}

			if _, err := services.Reconciliation.ReconcileAll(runCtx); err != nil {
				reconcilerLogger.Error("Reconciliation sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// corsConfig builds the CORS policy from configuration.
func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSAllowOrigins) == 1 && cfg.CORSAllowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	return corsCfg
}

// runMigrations applies all pending "up" migrations before the server starts.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	// Open a temporary standard sql.DB connection for migrations, using the
	// pgx stdlib driver to stay compatible with the main pool.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		return sourceErr
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
