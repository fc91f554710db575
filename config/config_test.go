package config

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

// TestLoadConfig_Defaults verifies that defaults are loaded and durations
// are derived from their numeric envs.
func TestLoadConfig_Defaults(t *testing.T) {
	// Clear relevant env vars to ensure defaults are used
	for _, key := range []string{
		"SERVER_PORT", "FEED_INTERVAL_SECONDS", "FEED_URL",
		"RECONNECT_BASE_DELAY_MS", "RECONNECT_MAX_ATTEMPTS",
		"USE_REDIS", "REDIS_ADDR", "REDIS_DB", "CACHE_TTL_SECONDS",
		"QUOTE_BASE_URL", "QUOTE_TIMEOUT_SECONDS",
	} {
		_ = os.Unsetenv(key)
	}

	LoadConfig()

	if AppConfig.Server.Port != "8080" {
		t.Fatalf("expected default SERVER_PORT=8080, got %q", AppConfig.Server.Port)
	}
	if AppConfig.Feed.Interval != 5*time.Second || AppConfig.Feed.URL != "ws://localhost:8080/ws" {
		t.Fatalf("unexpected feed defaults: %+v", AppConfig.Feed)
	}
	if AppConfig.Reconnect.BaseDelay != 2*time.Second || AppConfig.Reconnect.MaxAttempts != 5 {
		t.Fatalf("unexpected reconnect defaults: %+v", AppConfig.Reconnect)
	}
	if AppConfig.Cache.UseRedis || AppConfig.Cache.Addr != "localhost:6379" || AppConfig.Cache.TTL != 300*time.Second {
		t.Fatalf("unexpected cache defaults: %+v", AppConfig.Cache)
	}
	if AppConfig.Quote.BaseURL == "" || AppConfig.Quote.Timeout != 10*time.Second {
		t.Fatalf("unexpected quote defaults: %+v", AppConfig.Quote)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("RECONNECT_BASE_DELAY_MS", "250")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "3")

	LoadConfig()

	if AppConfig.Reconnect.BaseDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms base delay, got %v", AppConfig.Reconnect.BaseDelay)
	}
	if AppConfig.Reconnect.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", AppConfig.Reconnect.MaxAttempts)
	}
}

// TestValidateConfig_Fatal uses a subprocess to assert that validateConfig
// triggers a fatal exit when required fields are missing.
func TestValidateConfig_Fatal(t *testing.T) {
	if os.Getenv("RUN_VALIDATE_FATAL") == "1" {
		// In child process: set empty AppConfig and call validateConfig()
		// to trigger log.Fatalf (os.Exit)
		AppConfig = Config{}
		validateConfig()
		t.Fatalf("validateConfig should have exited the process")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run", "TestValidateConfig_Fatal")
	cmd.Env = append(os.Environ(), "RUN_VALIDATE_FATAL=1")
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected process to exit with error, got nil")
	}
}
