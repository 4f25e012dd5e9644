package authgate

import (
	"net/http"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigInvariants(t *testing.T) {
	cfg := defaultConfig()

	if cfg.RateLimit.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d", cfg.RateLimit.MaxAttempts)
	}
	if cfg.RateLimit.Window != 15*time.Minute {
		t.Fatalf("Window = %v", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.BlockDuration != 30*time.Minute {
		t.Fatalf("BlockDuration = %v", cfg.RateLimit.BlockDuration)
	}
	if cfg.Recovery.Count != 10 || cfg.Recovery.Length != 6 {
		t.Fatalf("Recovery = %+v", cfg.Recovery)
	}
	if cfg.TOTP.Digits != 6 || cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 1 {
		t.Fatalf("TOTP = %+v", cfg.TOTP)
	}
	if cfg.Cookie.Name != "access_token" || cfg.Cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("Cookie = %+v", cfg.Cookie)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = []byte("short") }},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"excessive leeway", func(c *Config) { c.JWT.Leeway = 5 * time.Minute }},
		{"totp digits low", func(c *Config) { c.TOTP.Digits = 4 }},
		{"totp digits high", func(c *Config) { c.TOTP.Digits = 12 }},
		{"totp period zero", func(c *Config) { c.TOTP.Period = 0 }},
		{"totp skew high", func(c *Config) { c.TOTP.Skew = 3 }},
		{"rate limit attempts", func(c *Config) { c.RateLimit.MaxAttempts = 0 }},
		{"rate limit window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"rate limit block duration", func(c *Config) { c.RateLimit.BlockDuration = 0 }},
		{"recovery count", func(c *Config) { c.Recovery.Count = 0 }},
		{"recovery length", func(c *Config) { c.Recovery.Length = 4 }},
		{"cookie name", func(c *Config) { c.Cookie.Name = "" }},
		{"audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		cfg := validTestConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestCloneConfigCopiesSecret(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)

	clone.JWT.Secret[0] = 'X'
	if cfg.JWT.Secret[0] == 'X' {
		t.Fatal("clone shares the secret slice")
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	_, err := New().WithConfig(validTestConfig()).Build()
	if err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(validTestConfig()).WithStore(newFakeStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestWithSecretCopiesInput(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	b := New().WithSecret(secret).WithStore(newFakeStore())
	secret[0] = 'X'

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if engine.config.JWT.Secret[0] == 'X' {
		t.Fatal("builder shares the caller's secret slice")
	}
}

func TestSessionCookieShape(t *testing.T) {
	engine, _ := newTestEngine(t)

	cookie := engine.SessionCookie("tok-value")
	if cookie.Name != "access_token" || cookie.Value != "tok-value" {
		t.Fatalf("cookie = %+v", cookie)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.MaxAge != int(engine.config.Cookie.MaxAge/time.Second) {
		t.Fatalf("MaxAge = %d", cookie.MaxAge)
	}

	cleared := engine.ClearSessionCookie()
	if cleared.Name != cookie.Name {
		t.Fatal("clear cookie must target the same name")
	}
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Fatalf("cleared = %+v", cleared)
	}
}
