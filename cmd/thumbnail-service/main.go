package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thumbnail-service/internal/database"
	"thumbnail-service/internal/filesystem"
	"thumbnail-service/internal/handlers"
	"thumbnail-service/internal/library"
	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/memory"
	"thumbnail-service/internal/metrics"
	"thumbnail-service/internal/middleware"
	"thumbnail-service/internal/startup"
	"thumbnail-service/internal/thumbnail"
	"thumbnail-service/internal/thumbnail/vips"
	"thumbnail-service/internal/workers"
)

const (
	shutdownTimeout    = 30 * time.Second
	collectorInterval  = time.Minute
	workerQueuePerSlot = 8
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.ObserveFilesystem)
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    config.MediaDir,
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	renderer, releaseRenderer, err := newRenderer(config.ThumbnailBackend)
	if err != nil {
		startup.LogFatal("Failed to initialize thumbnail backend: %v", err)
	}

	workerCount := workers.ForCPU(0)
	pool := workers.NewPool(workerCount, workerCount*workerQueuePerSlot)
	engine := thumbnail.NewEngine(renderer, pool)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	thumbs, err := thumbnail.New(thumbnail.Config{
		Dir:          config.ThumbnailDir,
		MaxWeight:    config.ThumbnailMaxBytes,
		TTL:          config.ThumbnailTTL,
		MaxEntries:   config.ThumbnailMaxEntries,
		Backpressure: monitor,
	}, engine)
	if err != nil {
		startup.LogFatal("Failed to initialize thumbnail cache: %v", err)
	}
	startup.LogThumbnailInit(config.ThumbnailBackend, workerCount, config.ThumbnailMaxBytes, config.ThumbnailTTL)

	lib := library.New(library.Config{
		MediaDir:       config.MediaDir,
		MaxUploadBytes: config.MaxUploadBytes,
		ActiveWorkers:  engine.ActiveWorkers,
	}, db, thumbs)

	collector := metrics.NewCollector(lib, collectorInterval)
	collector.Start()

	h := handlers.New(lib, db)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogImageResponses = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := newServer(config.Port, middleware.Logger(loggingConfig)(router))

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := waitForSignal()
		shutdown(sig, srv, metricsSrv, func() {
			startup.LogShutdownStep("Stopping metrics collector")
			collector.Stop()
			startup.LogShutdownStepComplete("Metrics collector stopped")

			startup.LogShutdownStep("Waiting for background thumbnails")
			monitor.Stop()
			thumbs.Close()
			startup.LogShutdownStepComplete("Thumbnail cache closed")

			startup.LogShutdownStep("Stopping render workers")
			pool.Close()
			releaseRenderer()
			startup.LogShutdownStepComplete("Render workers stopped")

			startup.LogShutdownStep("Closing database")
			if err := db.Close(); err != nil {
				logging.Warn("Database close error: %v", err)
			} else {
				startup.LogShutdownStepComplete("Database closed")
			}
		})
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newRenderer returns the renderer for backend and a function releasing
// whatever it initialized.
func newRenderer(backend string) (thumbnail.Renderer, func(), error) {
	switch backend {
	case startup.BackendImaging, "":
		return thumbnail.ImagingRenderer{}, func() {}, nil
	case startup.BackendVips:
		if err := vips.Init(); err != nil {
			return nil, nil, err
		}
		return vips.Renderer{}, vips.Shutdown, nil
	default:
		return nil, nil, fmt.Errorf("unknown thumbnail backend %q", backend)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(r)
	return r
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func waitForSignal() os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	return <-sigChan
}

// shutdown stops the servers first so no new work arrives, then runs
// cleanup for the components behind them.
func shutdown(sig os.Signal, srv, metricsSrv *http.Server, cleanup func()) {
	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	cleanup()
	startup.LogShutdownComplete()
}
