// Package config loads process configuration from ECOPICKUP_* environment
// variables, then lets command-line flags override them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Server configures the API server.
type Server struct {
	DBPath          string        `env:"ECOPICKUP_DB"               envDefault:"ecopickup.sqlite3"`
	Addr            string        `env:"ECOPICKUP_ADDR"             envDefault:":8080"`
	AdminUser       string        `env:"ECOPICKUP_ADMIN_USER"       envDefault:"admin"`
	LogPath         string        `env:"ECOPICKUP_LOG"`
	EventBuffer     int           `env:"ECOPICKUP_EVENT_BUFFER"     envDefault:"64"`
	ShutdownTimeout time.Duration `env:"ECOPICKUP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Watch configures the terminal dashboard.
type Watch struct {
	URL      string        `env:"ECOPICKUP_URL"      envDefault:"http://localhost:8080"`
	Username string        `env:"ECOPICKUP_USERNAME"`
	Password string        `env:"ECOPICKUP_PASSWORD"`
	View     string        `env:"ECOPICKUP_VIEW"`
	Poll     time.Duration `env:"ECOPICKUP_POLL"`
	NoStream bool          `env:"ECOPICKUP_NO_STREAM"`
}

// Agent dashboard views.
const (
	ViewPending = "pending"
	ViewMine    = "mine"
)

func usage(fs *pflag.FlagSet, summary string) func() {
	return func() {
		fmt.Fprintf(os.Stdout, "Usage: %s [flags]\n\n%s\n\nFlags:\n%s", fs.Name(), summary, fs.FlagUsages())
	}
}

// LoadServer reads the server configuration. It returns pflag.ErrHelp
// after printing usage when asked for help.
func LoadServer(args []string) (*Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := pflag.NewFlagSet("ecopickup", pflag.ContinueOnError)
	fs.StringVarP(&cfg.DBPath, "db", "d", cfg.DBPath, "SQLite database path")
	fs.StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "listen address")
	fs.StringVarP(&cfg.AdminUser, "user", "u", cfg.AdminUser, "admin username on first run")
	fs.StringVarP(&cfg.LogPath, "log", "l", cfg.LogPath, "log file path (default: stdout/stderr only)")
	fs.IntVar(&cfg.EventBuffer, "event-buffer", cfg.EventBuffer, "notifications queued per session before it must resync")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for open requests on shutdown")
	fs.Usage = usage(fs, "Serves the pickup API and its notification channel.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if cfg.DBPath == "" || cfg.Addr == "" || cfg.AdminUser == "" {
		return nil, fmt.Errorf("db, addr, and user must not be empty")
	}
	if cfg.EventBuffer <= 0 {
		return nil, fmt.Errorf("event-buffer must be positive")
	}
	return &cfg, nil
}

// LoadWatch reads the dashboard configuration.
func LoadWatch(args []string) (*Watch, error) {
	var cfg Watch
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := pflag.NewFlagSet("ecopickup-watch", pflag.ContinueOnError)
	fs.StringVar(&cfg.URL, "url", cfg.URL, "server address")
	fs.StringVarP(&cfg.Username, "username", "u", cfg.Username, "account to log in as")
	fs.StringVarP(&cfg.Password, "password", "p", cfg.Password, "password (prefer ECOPICKUP_PASSWORD)")
	fs.StringVar(&cfg.View, "view", cfg.View, "agent view: pending or mine (default: both)")
	fs.DurationVar(&cfg.Poll, "poll", cfg.Poll, "also re-fetch on this interval (0 disables)")
	fs.BoolVar(&cfg.NoStream, "no-stream", cfg.NoStream, "do not open the notification channel")
	fs.Usage = usage(fs, "Shows a live pickup dashboard for the given account.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if cfg.URL == "" || cfg.Username == "" {
		return nil, fmt.Errorf("url and username are required")
	}
	switch cfg.View {
	case "", ViewPending, ViewMine:
	default:
		return nil, fmt.Errorf("view must be %s or %s", ViewPending, ViewMine)
	}
	if cfg.Poll < 0 {
		return nil, fmt.Errorf("poll must not be negative")
	}
	return &cfg, nil
}
