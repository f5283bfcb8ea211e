package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/app"
	"github.com/ayusman/formcoach/internal/config"
	"github.com/ayusman/formcoach/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dsn := flag.String("db", "", "SQLite path or postgres:// URL (overrides config)")
	modelPath := flag.String("model", "", "ONNX form model path (overrides config)")
	webDir := flag.String("web", "", "static web directory")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(&cfg, *addr, *dsn, *modelPath, *webDir, *withTray)
	log.SetLevel(cfg.Level())

	log.Info("FormCoach - exercise form feedback")

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}
	if cfg.Server.StaticDir != "" {
		log.WithField("dir", cfg.Server.StaticDir).Info("Serving static files")
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		if err := application.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	runWithTray(ctx, stop, application, cfg.Server.Addr)
}

func applyFlags(cfg *config.Config, addr, dsn, model, web string, withTray bool) {
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dsn != "" {
		cfg.Store.DSN = dsn
	}
	if model != "" {
		cfg.Model.Path = model
	}
	if web != "" {
		cfg.Server.StaticDir = web
	}
	if withTray {
		cfg.Tray = true
	}
}

// runWithTray runs the server in the background while the tray owns the main thread.
func runWithTray(ctx context.Context, stop context.CancelFunc, application *app.App, addr string) {
	t := tray.New()
	t.OnToggle(func(enabled bool) {
		application.SetEnabled(enabled)
		log.WithField("enabled", enabled).Info("Frame processing toggled")
	})
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(addr)); err != nil {
			log.WithError(err).Warn("Failed to open dashboard")
		}
	})
	t.OnQuit(stop)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := application.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
		}
		stop()
		t.Quit()
	}()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetStatus(application.Connections(), application.ActiveSessions())
			}
		}
	}()

	t.Run()
	stop()
	<-done
}

func dashboardURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return fmt.Sprintf("http://%s/", host)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.formcoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
