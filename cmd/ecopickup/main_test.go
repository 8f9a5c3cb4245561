package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/ecopickup/internal/db"
	"github.com/erazemk/ecopickup/internal/model"
	"github.com/erazemk/ecopickup/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 characters, got %d", len(a))
	}
	b, _ := generatePassword(16)
	if a == b {
		t.Error("two generated passwords are identical")
	}
}

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eco.sqlite3")

	password, err := initDatabase(path, "root")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}

	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	u, err := store.GetUserByUsername(context.Background(), database, "root")
	if err != nil || u == nil {
		t.Fatalf("admin not found: %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %s", u.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		t.Error("stored hash does not match printed password")
	}
}

func TestInitDatabaseFailsWithoutDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "eco.sqlite3")
	if _, err := initDatabase(path, "root"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eco.log")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cleanup, err := setupLogger(path)
	if err != nil {
		t.Fatalf("setupLogger: %v", err)
	}
	defer cleanup()

	slog.Info("hello from test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message: %q", data)
	}
}
