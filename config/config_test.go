package config

import "testing"

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "traffic",
		Password: "secret",
		Name:     "traffic",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=traffic password=secret dbname=traffic sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	t.Run("returns value when set", func(t *testing.T) {
		t.Setenv("TEST_GETENV_KEY", "custom")
		if got := getEnv("TEST_GETENV_KEY", "fallback"); got != "custom" {
			t.Errorf("getEnv = %q, want %q", got, "custom")
		}
	})

	t.Run("returns fallback when unset", func(t *testing.T) {
		if got := getEnv("TEST_GETENV_MISSING", "fallback"); got != "fallback" {
			t.Errorf("getEnv = %q, want %q", got, "fallback")
		}
	})
}

func TestGetIntEnv(t *testing.T) {
	t.Run("parses value when set", func(t *testing.T) {
		t.Setenv("TEST_GETINTENV_KEY", "42")
		got, err := getIntEnv("TEST_GETINTENV_KEY", 7)
		if err != nil {
			t.Fatalf("getIntEnv failed: %v", err)
		}
		if got != 42 {
			t.Errorf("getIntEnv = %d, want 42", got)
		}
	})

	t.Run("returns fallback when unset", func(t *testing.T) {
		got, err := getIntEnv("TEST_GETINTENV_MISSING", 7)
		if err != nil {
			t.Fatalf("getIntEnv failed: %v", err)
		}
		if got != 7 {
			t.Errorf("getIntEnv = %d, want 7", got)
		}
	})

	t.Run("errors on garbage", func(t *testing.T) {
		t.Setenv("TEST_GETINTENV_BAD", "not-a-number")
		if _, err := getIntEnv("TEST_GETINTENV_BAD", 7); err == nil {
			t.Error("getIntEnv should fail on a non-numeric value")
		}
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.StaticDir != "./web" {
		t.Errorf("Server.StaticDir = %q, want ./web", cfg.Server.StaticDir)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "./data/traffic.db" {
		t.Errorf("Database.Path = %q, want ./data/traffic.db", cfg.Database.Path)
	}
	if cfg.Redis.Host != "" {
		t.Errorf("Redis.Host = %q, want empty (cache disabled)", cfg.Redis.Host)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want 6379", cfg.Redis.Port)
	}
	if cfg.CORS.AllowedOrigins != "*" {
		t.Errorf("CORS.AllowedOrigins = %q, want *", cfg.CORS.AllowedOrigins)
	}
	if cfg.Session.TokenDigits != 8 {
		t.Errorf("Session.TokenDigits = %d, want 8", cfg.Session.TokenDigits)
	}
	if cfg.Seed.Username != "observer" {
		t.Errorf("Seed.Username = %q, want observer", cfg.Seed.Username)
	}
}

func TestLoadConfigCustomValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("SESSION_TOKEN_DIGITS", "12")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Redis.Host != "cache.internal" {
		t.Errorf("Redis.Host = %q, want cache.internal", cfg.Redis.Host)
	}
	if cfg.Session.TokenDigits != 12 {
		t.Errorf("Session.TokenDigits = %d, want 12", cfg.Session.TokenDigits)
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should fail on a non-numeric SERVER_PORT")
	}
}
