package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:    AppConfig{Env: env, Port: 8080, BaseURL: "https://checkin.example.com"},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "checkin"},
		Auth:   AuthConfig{JWTSecret: "secret", JWTIssuer: "checkin", JWTAudience: "dashboard"},
		Twilio: TwilioConfig{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550000000"},
		OpenAI: OpenAIConfig{APIKey: "sk-test"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "APP_BASE_URL", "DB_HOST", "JWT_SECRET", "TWILIO_AUTH_TOKEN", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig("production")
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected error for production without DB_SSLMODE, got %v", err)
	}
}

func TestValidate_ProductionRequiresHTTPS(t *testing.T) {
	c := validConfig("production")
	c.DB.SSLMode = "require"
	c.App.BaseURL = "http://checkin.example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected https requirement")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.RedisEnabled() {
		t.Fatalf("redis should be off without REDIS_HOST")
	}
	if c.Speech.CacheTTL != 5*time.Minute || c.Speech.CacheMaxEntries != 50 || c.Speech.CacheMaxBytes != 5<<20 {
		t.Fatalf("unexpected speech defaults %+v", c.Speech)
	}
	if c.Speech.SpeechTimeout != 4*time.Second || c.Speech.SummaryTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout defaults %+v", c.Speech)
	}
	if c.OpenAI.TTSModel != "tts-1" || c.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model defaults %+v", c.OpenAI)
	}
}

func TestValidate_RedisDefaultsPort(t *testing.T) {
	c := validConfig("dev")
	c.Redis.Host = "redis"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	env := map[string]string{
		"APP_ENV":             "dev",
		"APP_PORT":            "9000",
		"APP_BASE_URL":        "https://checkin.example.com/",
		"DB_HOST":             "db",
		"DB_PORT":             "5432",
		"DB_USER":             "app",
		"DB_NAME":             "checkin",
		"JWT_SECRET":          "secret",
		"TWILIO_ACCOUNT_SID":  "AC1",
		"TWILIO_AUTH_TOKEN":   "tok",
		"TWILIO_PHONE_NUMBER": "+15550000000",
		"OPENAI_API_KEY":      "sk-test",
		"SPEECH_CACHE_TTL":    "2m",
		"SPEECH_TIMEOUT":      "3s",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.BaseURL != "https://checkin.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.App.BaseURL)
	}
	if c.HTTPAddr() != ":9000" || c.Speech.CacheTTL != 2*time.Minute || c.Speech.SpeechTimeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestLoad_RejectsBadInteger(t *testing.T) {
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("DB_PORT", "5432")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "APP_PORT") {
		t.Fatalf("expected APP_PORT parse error, got %v", err)
	}
}
