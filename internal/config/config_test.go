package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer(nil)
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.DBPath != "ecopickup.sqlite3" || cfg.Addr != ":8080" || cfg.AdminUser != "admin" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.EventBuffer != 64 || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadServerEnvThenFlags(t *testing.T) {
	t.Setenv("ECOPICKUP_ADDR", ":9000")
	t.Setenv("ECOPICKUP_DB", "/tmp/env.sqlite3")
	t.Setenv("ECOPICKUP_EVENT_BUFFER", "8")

	cfg, err := LoadServer([]string{"-d", "/tmp/flag.sqlite3", "--shutdown-timeout", "1s"})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("env addr not applied: %s", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/flag.sqlite3" {
		t.Errorf("flag did not override env: %s", cfg.DBPath)
	}
	if cfg.EventBuffer != 8 || cfg.ShutdownTimeout != time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadServerRejects(t *testing.T) {
	cases := map[string][]string{
		"extra argument": {"serve"},
		"bad buffer":     {"--event-buffer", "0"},
		"unknown flag":   {"--nope"},
		"empty addr":     {"--addr", ""},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadServer(args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadServerBadEnv(t *testing.T) {
	t.Setenv("ECOPICKUP_SHUTDOWN_TIMEOUT", "soon")
	if _, err := LoadServer(nil); err == nil {
		t.Error("expected error for unparsable duration")
	}
}

func TestLoadHelp(t *testing.T) {
	if _, err := LoadServer([]string{"-h"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
	if _, err := LoadWatch([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
}

func TestLoadWatch(t *testing.T) {
	t.Setenv("ECOPICKUP_USERNAME", "ana")
	t.Setenv("ECOPICKUP_PASSWORD", "secret")

	cfg, err := LoadWatch([]string{"--view", "mine", "--poll", "30s"})
	if err != nil {
		t.Fatalf("LoadWatch: %v", err)
	}
	if cfg.Username != "ana" || cfg.Password != "secret" || cfg.View != ViewMine || cfg.Poll != 30*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.URL != "http://localhost:8080" {
		t.Errorf("unexpected url %s", cfg.URL)
	}

	if _, err := LoadWatch([]string{"--view", "everything"}); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestLoadWatchRequiresUsername(t *testing.T) {
	if _, err := LoadWatch(nil); err == nil {
		t.Error("expected error without username")
	}
}
