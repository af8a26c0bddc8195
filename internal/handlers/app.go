package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ogmp3/internal/config"
	"ogmp3/internal/extractor"
	"ogmp3/internal/jobs"
	"ogmp3/internal/metrics"
	"ogmp3/internal/models"
	"ogmp3/internal/retention"
	"ogmp3/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// App owns the HTTP surface and every background task of the service.
type App struct {
	logger *slog.Logger

	router    *chi.Mux
	extractor *extractor.Service
	store     *storage.Store
	sweeper   *retention.Sweeper
	jobs      *jobs.Table
	metrics   *metrics.Metrics

	allowedHosts []string
	maxBodyBytes int64
	maxAge       time.Duration

	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	// conversions run under ctx as well as their request, so Shutdown can
	// stop them and wait before purging the store
	ctx      context.Context
	stop     context.CancelFunc
	convMu   sync.Mutex
	closing  bool
	inflight sync.WaitGroup

	upgrader websocket.Upgrader
}

func NewApp(logger *slog.Logger, cfg *config.Config) *App {
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		logger: logger,
		router: chi.NewRouter(),
		extractor: extractor.NewService(logger, extractor.Options{
			Binary:       cfg.Tool.Binary,
			AudioFormat:  cfg.Tool.AudioFormat,
			AudioQuality: cfg.Tool.AudioQuality,
			Timeout:      cfg.Tool.ConvertTimeout.Std(),
		}),
		store:        storage.NewStore(cfg.Storage.DownloadsDir, logger),
		jobs:         jobs.NewTable(),
		metrics:      metrics.New("ogmp3"),
		allowedHosts: cfg.Tool.AllowedHosts,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		maxAge:       cfg.Retention.MaxAge.Std(),
		subs:         make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	app.ctx, app.stop = context.WithCancel(context.Background())
	app.sweeper = retention.New(app.store, retention.Options{
		Interval:      cfg.Retention.SweepInterval.Std(),
		MaxAge:        cfg.Retention.MaxAge.Std(),
		DownloadDelay: cfg.Retention.DownloadDelay.Std(),
		OnDelete:      app.artifactDeleted,
	}, logger)

	app.registerRoutes()
	return app
}

func (a *App) Router() http.Handler {
	return a.router
}

// Store exposes the artifact store for lifecycle commands.
func (a *App) Store() *storage.Store {
	return a.store
}

// Start prepares the downloads directory and starts the periodic sweep. The
// sweep stops when ctx is done or Shutdown is called.
func (a *App) Start(ctx context.Context) error {
	if err := a.store.EnsureExists(); err != nil {
		return err
	}
	a.sweeper.Start(ctx)
	return nil
}

// Shutdown kills running conversions and waits for them, stops background
// work, deletes every stored artifact and closes event subscribers. It returns
// once the store is empty. Conversions requested afterwards are refused.
func (a *App) Shutdown() []string {
	a.convMu.Lock()
	a.closing = true
	a.convMu.Unlock()
	a.stop()
	a.inflight.Wait()

	removed := a.sweeper.Shutdown()
	a.closeSubscribers()
	return removed
}

func (a *App) beginConversion() bool {
	a.convMu.Lock()
	defer a.convMu.Unlock()
	if a.closing {
		return false
	}
	a.inflight.Add(1)
	return true
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(a.requestLogger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.corsMiddleware)

	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, http.StatusNotFound, "Not found")
	})
	a.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	a.router.Get("/", a.index)
	a.router.Post("/convert", a.convert)
	a.router.Get("/download/{filename}", a.download)
	a.router.Post("/info", a.info)
	a.router.Get("/files", a.files)
	a.router.Get("/status", a.statusPage)
	a.router.Get("/ws", a.events)
	a.router.Get("/healthz", a.health)
	a.router.Method(http.MethodGet, "/metrics", a.metrics.Handler())
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]any{
		"message": "OGMP3 Server is running!",
		"status":  "active",
		"endpoints": map[string]string{
			"convert":  "POST /convert",
			"download": "GET /download/:filename",
			"info":     "POST /info",
			"files":    "GET /files",
		},
	})
}

// artifactDeleted is the retention hook for every removed artifact.
func (a *App) artifactDeleted(name, reason string) {
	a.metrics.RecordDeletion(reason)
	a.broadcast(models.ProgressEvent{
		Status:   models.StatusDeleted,
		Filename: name,
		Message:  reason,
	})
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode json", "error", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, code int, message string) {
	a.respondJSON(w, code, models.ErrorResponse{Error: message})
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (a *App) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
