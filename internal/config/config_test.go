package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"

library:
  backend: "redis"
  historyLimit: 50
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}

	if cfg.Library.Backend != "redis" {
		t.Errorf("Expected library backend redis, got %s", cfg.Library.Backend)
	}

	if cfg.Library.HistoryLimit != 50 {
		t.Errorf("Expected history limit 50, got %d", cfg.Library.HistoryLimit)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("server:\n  port: 8081\n")); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Library.Backend != "postgres" {
		t.Errorf("Expected default backend postgres, got %s", cfg.Library.Backend)
	}

	if cfg.Library.HistoryLimit != 20 {
		t.Errorf("Expected default history limit 20, got %d", cfg.Library.HistoryLimit)
	}

	if cfg.Catalog.Collection != "animationandcartoons" {
		t.Errorf("Expected default collection animationandcartoons, got %s", cfg.Catalog.Collection)
	}

	if cfg.Catalog.Rows != 100 {
		t.Errorf("Expected default rows 100, got %d", cfg.Catalog.Rows)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("library:\n  backend: \"mongo\"\n")); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(tmpfile.Name()); err == nil {
		t.Fatal("Expected error for unknown backend, got nil")
	}
}
