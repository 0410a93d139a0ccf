package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "GIN_MODE", "LOG_LEVEL", "APP_ENV", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RABBITMQ_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Game.PINAttempts != 50 || cfg.Redis.ChannelPrefix != "game-events:" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9090"
postgres:
  url: postgres://file
redis:
  addr: file:6379
  db: 2
quiz:
  cache_ttl: 30s
`)

	tests := []struct {
		name     string
		env      map[string]string
		port     string
		postgres string
		redisDB  int
	}{
		{name: "file only", port: "9090", postgres: "postgres://file", redisDB: 2},
		{
			name:     "env wins",
			env:      map[string]string{"PORT": "7070", "DATABASE_URL": "postgres://env", "REDIS_DB": "5"},
			port:     "7070",
			postgres: "postgres://env",
			redisDB:  5,
		},
		{name: "bad int ignored", env: map[string]string{"REDIS_DB": "x"}, port: "9090", postgres: "postgres://file", redisDB: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Server.Port != tt.port {
				t.Fatalf("port = %q, want %q", cfg.Server.Port, tt.port)
			}
			if cfg.Postgres.URL != tt.postgres {
				t.Fatalf("postgres url = %q, want %q", cfg.Postgres.URL, tt.postgres)
			}
			if cfg.Redis.DB != tt.redisDB {
				t.Fatalf("redis db = %d, want %d", cfg.Redis.DB, tt.redisDB)
			}
			if cfg.Server.ShutdownTimeout != "5s" {
				t.Fatalf("defaults should survive partial files, got %q", cfg.Server.ShutdownTimeout)
			}
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RABBITMQ_URL=amqp://dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("RABBITMQ_URL", "")
	os.Unsetenv("RABBITMQ_URL")

	LoadDotEnv(envPath, filepath.Join(dir, "missing.env"))
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RabbitMQ.URL != "amqp://dotenv" {
		t.Fatalf("rabbitmq url = %q", cfg.RabbitMQ.URL)
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"garbage", time.Minute},
		{"-5s", time.Minute},
	}
	for _, c := range cases {
		if got := Duration(c.raw, time.Minute); got != c.want {
			t.Fatalf("Duration(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
