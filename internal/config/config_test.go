package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SHOP_UTC_OFFSET", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ConfigPath != "config.yaml" {
		t.Fatalf("expected default config path, got %s", cfg.ConfigPath)
	}
	if cfg.ShopUTCOffset != "-06:00" {
		t.Fatalf("expected default UTC offset, got %s", cfg.ShopUTCOffset)
	}
	if cfg.QualificationCacheTTL != 5*time.Minute {
		t.Fatalf("expected default cache TTL, got %s", cfg.QualificationCacheTTL)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SHOPMONKEY_API_TOKEN", "tok-123")
	t.Setenv("SHOPMONKEY_LOCATION_ID", "loc-9")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("QUALIFICATION_CACHE_TTL", "90s")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.ShopmonkeyAPIToken != "tok-123" || cfg.ShopmonkeyLocationID != "loc-9" {
		t.Fatalf("expected shopmonkey overrides, got %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.QualificationCacheTTL != 90*time.Second {
		t.Fatalf("expected TTL override, got %s", cfg.QualificationCacheTTL)
	}
}

func TestSplitOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"*", []string{"*"}},
		{"https://a.example", []string{"https://a.example"}},
		{"https://a.example, https://b.example ,", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		if got := splitOrigins(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitOrigins(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
