package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/consult-api/internal/config"
	"github.com/jwalitptl/consult-api/internal/email"
	"github.com/jwalitptl/consult-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/consult-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/consult-api/internal/handler/auth"
	consultationHandler "github.com/jwalitptl/consult-api/internal/handler/consultation"
	healthHandler "github.com/jwalitptl/consult-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/consult-api/internal/handler/notification"
	reportHandler "github.com/jwalitptl/consult-api/internal/handler/report"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/repository/postgres"
	"github.com/jwalitptl/consult-api/internal/router"
	appointmentService "github.com/jwalitptl/consult-api/internal/service/appointment"
	authService "github.com/jwalitptl/consult-api/internal/service/auth"
	consultationService "github.com/jwalitptl/consult-api/internal/service/consultation"
	eventService "github.com/jwalitptl/consult-api/internal/service/event"
	notificationService "github.com/jwalitptl/consult-api/internal/service/notification"
	reportService "github.com/jwalitptl/consult-api/internal/service/report"
	"github.com/jwalitptl/consult-api/pkg/auth"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
	"github.com/jwalitptl/consult-api/pkg/security"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "consult-api",
		Short: "Consultation and appointment scheduling API",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default: search ., ./config, /app/config)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			serve(cfg)
			return nil
		},
	}
}

// hashPasswordCmd prints a bcrypt hash for seeding the users table.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.NewBcryptHasher(0).Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadConfig()
}

func serve(cfg *config.Config) {

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})
	log.Logger = appLogger.ZL
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Log.Level))
	gin.SetMode(gin.ReleaseMode)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("consult_api", prometheus.DefaultRegisterer)

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db, m)
	tx := postgres.NewTransactor(baseRepo)
	consultationRepo := postgres.NewConsultationRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	notificationRepo := postgres.NewNotificationRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	// Initialize services
	loc := cfg.Location()
	notifier := notificationService.NewService(
		tx,
		notificationRepo,
		userRepo,
		patientRepo,
		eventService.NewEventService(outboxRepo),
		email.NewService(cfg.Email),
		appLogger.WithFields(map[string]interface{}{"component": "notification"}),
		m,
	)
	consultationSvc := consultationService.NewService(tx, consultationRepo, appointmentRepo, notifier,
		appLogger.WithFields(map[string]interface{}{"component": "consultation"}), m)
	appointmentSvc := appointmentService.NewService(tx, appointmentRepo, consultationRepo, patientRepo, notifier,
		appLogger.WithFields(map[string]interface{}{"component": "appointment"}), m, loc)
	reportSvc := reportService.NewService(appointmentRepo, userRepo, cfg.Report.CacheTTL, loc)
	authSvc := authService.NewService(userRepo, patientRepo,
		auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry),
		security.NewBcryptHasher(0))

	// Setup router
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Health: healthHandler.NewHandler(db, prometheus.DefaultGatherer),
			Public: []handler.RouteRegistrar{
				authHandler.NewHandler(authSvc),
			},
			Protected: []handler.RouteRegistrar{
				consultationHandler.NewHandler(consultationSvc, loc),
				appointmentHandler.NewHandler(appointmentSvc),
				reportHandler.NewHandler(reportSvc),
				notificationHandler.NewHandler(notifier),
			},
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       corsConfig,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MetricsPrefix:    "consult_api_http",
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
