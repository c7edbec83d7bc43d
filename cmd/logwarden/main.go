// ABOUTME: Entry point for the logwarden container log monitoring service.
// ABOUTME: Handles initialization, configuration parsing, and starts the HTTP server.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/logwarden/logwarden/internal/config"
	"github.com/logwarden/logwarden/internal/metrics"
	"github.com/logwarden/logwarden/internal/providers"
	"github.com/logwarden/logwarden/internal/scan"
	"github.com/logwarden/logwarden/internal/server"
	"github.com/logwarden/logwarden/internal/store"
	"github.com/logwarden/logwarden/internal/summary"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := parseConfig()

	// Set up structured logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// Set debug level if requested
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	monitor, err := NewMonitor(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create monitor")
	}

	if err := monitor.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start monitor")
	}
}

func parseConfig() *config.Config {
	cfg := config.Default()

	configPath := flag.String("config", "", "Path to optional YAML config file")
	mode := flag.String("mode", cfg.Mode, "Inventory mode: docker, kubernetes, or static")
	port := flag.Int("port", cfg.Port, "Port to serve the HTTP API on")
	dbPath := flag.String("db-path", cfg.DBPath, "Path to the SQLite database file")
	listFile := flag.String("container-list-file", "", "Path to JSON file with container list (required for static mode)")
	namespace := flag.String("kube-namespace", "", "Kubernetes namespace to watch (empty for all namespaces)")
	initialDelay := flag.Duration("initial-delay", cfg.InitialDelay, "Delay before the first scheduled scan")
	mockMode := flag.Bool("mock", false, "Enable mock providers for local testing (no external calls)")
	flag.Parse()

	// The YAML file overlays defaults, explicit flags overlay the file.
	if *configPath != "" {
		if err := config.ApplyFile(*configPath, cfg); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "port":
			cfg.Port = *port
		case "db-path":
			cfg.DBPath = *dbPath
		case "container-list-file":
			cfg.ContainerListFile = *listFile
		case "kube-namespace":
			cfg.KubeNamespace = *namespace
		case "initial-delay":
			cfg.InitialDelay = *initialDelay
		case "mock":
			cfg.MockMode = *mockMode
		}
	})

	// Override with environment variables if set
	if envMode := os.Getenv("MODE"); envMode != "" {
		cfg.Mode = envMode
	}
	if envPort := os.Getenv("PORT"); envPort != "" {
		if port, err := strconv.Atoi(envPort); err == nil {
			cfg.Port = port
		} else {
			log.Printf("Invalid PORT environment variable: %s", envPort)
		}
	}
	if envDBPath := os.Getenv("DB_PATH"); envDBPath != "" {
		cfg.DBPath = envDBPath
	}
	if envListFile := os.Getenv("CONTAINER_LIST_FILE"); envListFile != "" {
		cfg.ContainerListFile = envListFile
	}
	if envNamespace := os.Getenv("KUBE_NAMESPACE"); envNamespace != "" {
		cfg.KubeNamespace = envNamespace
	}
	if envDelay := os.Getenv("INITIAL_DELAY"); envDelay != "" {
		if delay, err := time.ParseDuration(envDelay); err == nil {
			cfg.InitialDelay = delay
		}
	}
	if envMock := os.Getenv("MOCK_MODE"); envMock == "true" || envMock == "1" {
		cfg.MockMode = true
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

type Monitor struct {
	config       *config.Config
	logger       *logrus.Logger
	store        *store.Store
	orchestrator *scan.Orchestrator
	aggregator   *summary.Aggregator
}

func NewMonitor(cfg *config.Config, logger *logrus.Logger) (*Monitor, error) {
	logger.WithFields(logrus.Fields{
		"mode":          cfg.Mode,
		"port":          cfg.Port,
		"db_path":       cfg.DBPath,
		"initial_delay": cfg.InitialDelay,
		"mock":          cfg.MockMode,
	}).Info("Initializing logwarden")

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Create providers using factory
	providerConfig := &providers.ProviderConfig{
		Mode:              cfg.Mode,
		ContainerListFile: cfg.ContainerListFile,
		KubeNamespace:     cfg.KubeNamespace,
		MockMode:          cfg.MockMode,
	}

	inventory, err := providers.CreateInventoryProvider(providerConfig, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create inventory provider: %w", err)
	}

	classifier, err := providers.CreateLogClassifier(providerConfig, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create log classifier: %w", err)
	}

	orchestrator := scan.NewOrchestrator(inventory, classifier, st, st, logger)
	aggregator := summary.NewAggregator(st, st, st, classifier, logger)

	return &Monitor{
		config:       cfg,
		logger:       logger,
		store:        st,
		orchestrator: orchestrator,
		aggregator:   aggregator,
	}, nil
}

func (m *Monitor) Start(ctx context.Context) error {
	defer m.store.Close()

	// Start the background loops
	go m.orchestrator.Start(ctx, m.config.InitialDelay)
	go m.aggregator.Start(ctx, m.config.InitialDelay)

	mux := m.routes()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", m.config.Port),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		m.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	m.logger.WithFields(logrus.Fields{
		"port": m.config.Port,
		"mode": m.config.Mode,
	}).Info("Starting HTTP server")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (m *Monitor) routes() *http.ServeMux {
	secure := func(next http.HandlerFunc, methods ...string) http.HandlerFunc {
		return server.SecurityMiddleware(m.logger, next, methods...)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return server.RequireAPIKey(m.store, m.logger, next)
	}

	triggers := server.NewTriggerHandler(m.orchestrator, m.aggregator, m.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", secure(authed(server.CreateStatusHandler(m.orchestrator, m.store, m.logger))))
	mux.HandleFunc("/api/containers", secure(authed(server.CreateContainersHandler(m.orchestrator, m.logger))))
	mux.HandleFunc("/api/issues", secure(authed(server.CreateIssuesHandler(m.store, m.logger))))
	mux.HandleFunc("/api/models", secure(authed(server.CreateModelsHandler(m.orchestrator, m.logger))))
	mux.HandleFunc("/api/summary/history", secure(authed(server.CreateHistoryHandler(m.store, m.logger))))
	mux.HandleFunc("/api/settings", secure(authed(server.CreateSettingsHandler(m.store, m.logger)), http.MethodGet, http.MethodPut))
	mux.HandleFunc("/api/abnormalities/{id}/status", secure(authed(server.CreateManageHandler(m.store, m.orchestrator, m.logger)), http.MethodPost))

	mux.HandleFunc("/api/scan/trigger", secure(authed(triggers.ScanTrigger), http.MethodPost))
	mux.HandleFunc("/api/scan/stop", secure(authed(triggers.ScanStop), http.MethodPost))
	mux.HandleFunc("/api/summary/trigger", secure(authed(triggers.SummaryTrigger), http.MethodPost))
	mux.HandleFunc("/api/scheduler/pause", secure(authed(triggers.SchedulerPause), http.MethodPost))
	mux.HandleFunc("/api/scheduler/resume", secure(authed(triggers.SchedulerResume), http.MethodPost))

	// Scrape and liveness endpoints stay unauthenticated
	mux.HandleFunc("/metrics", secure(metrics.CreateMetricsHandler(m.orchestrator, m.store, m.store, m.logger)))
	mux.HandleFunc("/health", secure(m.healthHandler))

	return mux
}

func (m *Monitor) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok"}`)
}
