// lanshared is the LAN sharing daemon: it stores snippets and files in
// SQLite plus an uploads directory and serves them over HTTP, with a small
// embedded web page for browsers.
package main

import (
	"context"
	"embed"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lanshare/config"
	"github.com/hazyhaar/lanshare/dbopen"
	"github.com/hazyhaar/lanshare/server"
	"github.com/hazyhaar/lanshare/shield"
	"github.com/hazyhaar/lanshare/store"
)

//go:embed static
var staticFS embed.FS

func main() {
	configPath := flag.String("config", env("LANSHARE_CONFIG", ""), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.Server.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "path", cfg.Server.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st, err := store.New(db, cfg.Server.UploadsDir, store.WithLogger(logger))
	if err != nil {
		slog.Error("store", "error", err)
		os.Exit(1)
	}

	svc := server.New(st,
		server.WithLogger(logger),
		server.WithMaxFileBytes(cfg.MaxFileBytes()))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.Stack() {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Web page for browsers on the LAN.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	svc.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute, // large file downloads
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("lanshared starting", "addr", cfg.Server.Listen,
			"db", cfg.Server.DBPath, "uploads", cfg.Server.UploadsDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
