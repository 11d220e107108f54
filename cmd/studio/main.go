package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/handlers"
	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/middleware"
	"github.com/prompt-studio-go/internal/roles"
	"github.com/prompt-studio-go/internal/services/cache"
	"github.com/prompt-studio-go/internal/services/provider"
	"github.com/prompt-studio-go/internal/services/session"
	"github.com/prompt-studio-go/internal/services/storage"
	"github.com/prompt-studio-go/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Prompt Studio...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	storageManager, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	// Build the role lexicon and inference engine
	lexicon, err := roles.DefaultLexicon(cfg.Roles.DefaultRole)
	if err != nil {
		log.WithError(err).Fatal("Failed to build role lexicon")
	}
	engine := roles.NewEngine(lexicon)
	log.WithField("roles", len(lexicon.Roles())).Info("Role lexicon loaded")

	// Initialize provider client
	providerService := provider.NewClient(&cfg.Providers, log)

	// Initialize cache
	cacheService := cache.NewCache(cfg, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize session manager
	sessionManager := session.NewManager(providerService, storageManager, localizer, log, cfg.Session.MaxMessages)

	// Initialize handlers
	apiHandler := handlers.NewHandler(
		cfg,
		log,
		sessionManager,
		providerService,
		engine,
		cacheService,
		localizer,
		metrics,
		rateLimiter,
		middleware.NewSecurityMiddleware(log),
	)

	router := mux.NewRouter()
	apiHandler.RegisterRoutes(router)

	corsRouter := ghandlers.CORS(
		ghandlers.AllowedOrigins(cfg.Server.CORSOrigins),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     corsRouter,
		ReadTimeout: 30 * time.Second,
		// Streaming responses stay open as long as the upstream talks,
		// so the write timeout must not apply.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Start periodic tasks
	go startPeriodicTasks(ctx, sessionManager, metrics, log)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down HTTP server cleanly")
	}

	// Cancel context to stop all goroutines
	cancel()

	log.Info("Prompt Studio stopped")
}

// startPeriodicTasks starts periodic background tasks
func startPeriodicTasks(ctx context.Context, sessions *session.Manager, metrics *middleware.Metrics, log *logrus.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveSessions(float64(sessions.Count()))
		}
	}
}
