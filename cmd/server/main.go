// Package main is the entry point for the DuoTrak API server.
//
// main stays small: it loads configuration, builds the logger and the
// mailer, and hands them to internal/server. All settings come from
// DUOTRAK_* environment variables or the file named by DUOTRAK_CONFIG.
package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/duotrak/internal/config"
	"github.com/sakif/duotrak/internal/mailer"
	"github.com/sakif/duotrak/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg)

	// In-memory databases have no directory to create.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	var mail mailer.Mailer
	if cfg.ResendAPIKey != "" {
		resendMailer, err := mailer.NewResend(cfg.ResendAPIKey, cfg.EmailFrom)
		if err != nil {
			logger.Error("failed to create mailer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		mail = resendMailer
	} else {
		logger.Warn("DUOTRAK_RESEND_API_KEY not set, invite emails are only logged")
		mail = mailer.NewLog(logger)
	}

	srv, err := server.New(cfg, logger, mail, nil)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
