package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/cache"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/repository/file"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-geofence-go/internal/service/attendance"
	fileService "github.com/cmlabs-hris/attendance-geofence-go/internal/service/file"
	geofenceService "github.com/cmlabs-hris/attendance-geofence-go/internal/service/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/migrations"
	"github.com/go-chi/httplog/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-geofence"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgresql.Migrate(ctx, db, migrations.FS); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
	}

	policyRepo, err := file.LoadDepartmentPolicies(cfg.Attendance.PolicyFile)
	if err != nil {
		return fmt.Errorf("error loading department policies: %w", err)
	}
	sessionRepo := postgresql.NewSessionRepository(db)
	officeRepo := postgresql.NewOfficeRepository(db)

	clk := clock.New()
	thresholds := cfg.Thresholds()
	appCache := cache.New(cache.NewMemoryStore(), clk)
	hub := sse.NewHub()

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}
	fileSvc := fileService.NewFileService(fileStorage)

	geofenceSvc := geofenceService.NewGeofenceService(
		officeRepo,
		geofenceService.NewEngine(thresholds, clk),
		geofenceService.NewHistoryStore(clk, cfg.Geofence.HistoryMaxSamples, cfg.Geofence.HistoryMaxAge),
		appCache,
	)
	attendanceSvc := attendanceService.NewAttendanceService(
		sessionRepo,
		policyRepo,
		geofenceSvc,
		fileSvc,
		appCache,
		hub,
		clk,
		thresholds,
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Logger:         logger,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
			UploadsDir:     cfg.Storage.BasePath,
		},
		JWTService,
		appHTTP.NewGeofenceHandler(geofenceSvc, clk),
		appHTTP.NewAttendanceHandler(attendanceSvc, JWTService, hub),
	)

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(
		attendanceSvc,
		geofenceSvc,
		cfg.Attendance.AutoCheckoutInterval,
		cfg.Attendance.HistoryPruneInterval,
	).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end on shutdown so open SSE streams return
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
