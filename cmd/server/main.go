package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/todolevel/todo-service/internal/app"
	"github.com/todolevel/todo-service/internal/domain"
	"github.com/todolevel/todo-service/internal/httpapi"
	"github.com/todolevel/todo-service/internal/infrastructure/config"
	"github.com/todolevel/todo-service/internal/infrastructure/memory"
	infrapostgres "github.com/todolevel/todo-service/internal/infrastructure/postgres"
	"github.com/todolevel/todo-service/internal/infrastructure/sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
)

const (
	serviceName    = "todo-service"
	serviceVersion = "1.0.0"
)

func main() {
	// Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting todo service",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("storage_driver", cfg.StorageDriver),
	)

	// Initialize OpenTelemetry
	if cfg.EnableTracing {
		shutdown, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// Initialize storage and build the repository once; everything below
	// receives it explicitly.
	repo, closeStore, err := initRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	todoService := app.NewTodoService(repo, logger)
	apiServer := httpapi.NewServer(todoService, logger, serviceVersion)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      apiServer.Handler(logger),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	// Metrics on a separate listener
	var metricsServer *http.Server
	if cfg.EnableMetrics {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler: metricsMux,
		}

		go func() {
			logger.Info("Metrics server starting", zap.Int("port", cfg.MetricsPort))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout exceeded, forcing stop", zap.Error(err))
		server.Close()
	} else {
		logger.Info("Server stopped gracefully")
	}

	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
}

func initLogger(environment string) *zap.Logger {
	var logger *zap.Logger
	var err error

	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func initTracer(otlpEndpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(context.Background(), otlptracegrpc.WithEndpoint(otlpEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// initRepository opens the configured store and returns the repository plus
// a close function for shutdown.
func initRepository(cfg *config.Config) (domain.TodoRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := initDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		return infrapostgres.NewRepository(db), func() { db.Close() }, nil

	case config.DriverSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil

	case config.DriverMemory:
		return memory.NewRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
