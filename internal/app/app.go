// Package app wires the formcoach components together: configuration, storage,
// the form model, metrics, plugins and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/classifier"
	"github.com/ayusman/formcoach/internal/config"
	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/plugin"
	"github.com/ayusman/formcoach/internal/server"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/store"
)

// ShutdownTimeout bounds the graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

// Option customizes an App.
type Option func(*App)

// WithModel uses model instead of loading the configured one.
func WithModel(model classifier.Model) Option {
	return func(a *App) {
		a.model = model
	}
}

// WithStaticDir serves static files from dir.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// App is the running formcoach service.
type App struct {
	config    config.Config
	staticDir string

	store      *store.Store
	registry   *exercise.Registry
	model      classifier.Model
	classifier *classifier.Classifier
	metrics    *metrics.Metrics
	pluginMgr  *plugin.Manager
	notifier   *plugin.Notifier
	server     *server.Server

	enabled bool
	mu      sync.RWMutex

	completedMu sync.Mutex
	completed   []session.Summary
}

// New opens the store, loads thresholds and settings, loads the form model
// and builds the server. A missing model is not an error: the service then
// counts reps without form feedback.
func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		config:    cfg,
		staticDir: cfg.Server.StaticDir,
		registry:  exercise.NewRegistry(),
		metrics:   metrics.New(),
		pluginMgr: plugin.NewManager(cfg.PluginDir),
		enabled:   true,
	}
	for _, opt := range opts {
		opt(a)
	}

	st, err := store.New(cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = st

	if err := a.loadThresholds(); err != nil {
		st.Close()
		return nil, err
	}

	if a.model == nil {
		a.model = loadModel(cfg.Model.ModelConfig)
	}

	classifierOpts := cfg.ClassifierOptions()
	if c, ok := a.settingFloat(store.SettingConfidence); ok {
		classifierOpts = append(classifierOpts, classifier.WithConfidence(c))
	}
	if a.model != nil {
		a.classifier = classifier.New(a.model, classifierOpts...)
	}

	minVisibility := cfg.Session.MinVisibility
	if v, ok := a.settingFloat(store.SettingMinVisibility); ok {
		minVisibility = v
	}

	if err := a.pluginMgr.Discover(); err != nil {
		log.WithError(err).Warn("Plugin discovery failed")
	}
	a.notifier = plugin.NewNotifier(a.pluginMgr, plugin.NewExecutor(plugin.DefaultTimeout))

	a.server = server.New(server.Config{
		StaticDir: a.staticDir,
		Store:     st,
		Registry:  a.registry,
		Metrics:   a.metrics,
		Enabled:   a.IsEnabled,
		Session: session.Config{
			Classifier:    a.classifier,
			WindowSize:    cfg.Session.WindowSize,
			MinVisibility: minVisibility,
			StopGesture:   cfg.StopGesture(),
			OnComplete:    a.sessionCompleted,
		},
	})

	log.WithFields(log.Fields{
		"classifier": a.classifier.Enabled(),
		"plugins":    len(a.pluginMgr.List()),
		"store":      st.Driver(),
	}).Info("Application initialized")

	return a, nil
}

func loadModel(cfg classifier.ModelConfig) classifier.Model {
	model, err := classifier.LoadModel(cfg)
	if err != nil {
		if errors.Is(err, classifier.ErrModelNotFound) {
			log.WithError(err).Warn("Form model not available, running in counting-only mode")
		} else {
			log.WithError(err).Error("Failed to load form model, running in counting-only mode")
		}
		return nil
	}
	return model
}

// loadThresholds applies config overrides first and stored overrides second,
// so values saved through the API win.
func (a *App) loadThresholds() error {
	if err := a.config.ApplyThresholds(a.registry); err != nil {
		return fmt.Errorf("invalid threshold config: %w", err)
	}

	records, err := a.store.Thresholds().List()
	if err != nil {
		return fmt.Errorf("failed to load thresholds: %w", err)
	}

	for _, rec := range records {
		typ, err := exercise.ParseType(rec.Exercise)
		if err != nil {
			log.WithField("exercise", rec.Exercise).Warn("Ignoring thresholds for unknown exercise")
			continue
		}
		th := exercise.Thresholds{Upper: rec.Upper, Lower: rec.Lower}
		if err := a.registry.SetThresholds(typ, th); err != nil {
			log.WithError(err).WithField("exercise", rec.Exercise).Warn("Ignoring invalid stored thresholds")
		}
	}

	log.Debugf("Loaded %d threshold overrides from database", len(records))
	return nil
}

func (a *App) settingFloat(key string) (float64, bool) {
	raw, err := a.store.Settings().Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).WithField("key", key).Warn("Failed to read setting")
		}
		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.WithField("key", key).WithField("value", raw).Warn("Ignoring invalid setting")
		return 0, false
	}
	return v, true
}

func (a *App) sessionCompleted(summary session.Summary) {
	a.completedMu.Lock()
	a.completed = append(a.completed, summary)
	a.completedMu.Unlock()

	a.notifier.SessionCompleted(summary)
}

// Handler returns the HTTP handler serving the API, WebSocket and static files.
func (a *App) Handler() http.Handler {
	return a.server
}

// Run serves HTTP on the configured address until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := a.server.HTTPServer(a.config.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := a.server.CloseSessions(shutdownCtx); err != nil {
		return fmt.Errorf("close sessions: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// Close ends the remaining sessions, waits for running plugins and releases
// the model and the store.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.CloseSessions(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close sessions: %w", err))
	}

	a.notifier.Wait()

	if a.model != nil {
		if err := a.model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// SetEnabled enables or disables frame processing for all sessions.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Connections returns the number of connected clients.
func (a *App) Connections() int {
	return a.server.Connections()
}

// ActiveSessions returns the number of sessions in the active phase.
func (a *App) ActiveSessions() int {
	return int(a.metrics.ActiveSessions.Load())
}

// Completed returns the summaries of sessions completed since startup.
func (a *App) Completed() []session.Summary {
	a.completedMu.Lock()
	defer a.completedMu.Unlock()

	out := make([]session.Summary, len(a.completed))
	copy(out, a.completed)
	return out
}

// Registry returns the exercise registry.
func (a *App) Registry() *exercise.Registry {
	return a.registry
}

// Classifier returns the form classifier, or nil in counting-only mode.
func (a *App) Classifier() *classifier.Classifier {
	return a.classifier
}

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the application store.
func (a *App) Store() *store.Store {
	return a.store
}
