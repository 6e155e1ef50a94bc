package main

import (
	"log/slog"
	"os"

	"github.com/nfrund/chatline/internal/app"
	"github.com/nfrund/chatline/internal/config"
	"github.com/nfrund/chatline/internal/logging"
	"github.com/nfrund/chatline/internal/server"
)

func main() {
	cfg, err := config.New()
	// The logger reads LOG_* after .env has been loaded by config.New.
	logging.New()
	if err != nil {
		slog.Error("Invalid configuration", "event", "config_invalid", "error", err)
		os.Exit(1)
	}

	s, err := server.New(app.New(cfg))
	if err != nil {
		slog.Error("Failed to initialize server", "event", "server_init_failure", "error", err)
		os.Exit(1)
	}

	if err := s.Start(); err != nil {
		slog.Error("Server stopped with error", "event", "server_failure", "error", err)
		os.Exit(1)
	}
}
