package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App     AppConfig
	Log     LogConfig
	Locator LocatorConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// Kernel choices for LocatorConfig.Kernel.
const (
	KernelDefault = "default"
	KernelGolobby = "golobby"
)

// Release policy choices for LocatorConfig.ReleasePolicy.
const (
	ReleaseNone       = "none"
	ReleaseLifecycled = "lifecycled"
)

type LocatorConfig struct {
	Kernel        string
	ReleasePolicy string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	debug := envBool("APP_DEBUG", true)
	defaultLevel := "info"
	if debug {
		defaultLevel = "debug"
	}

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoLocator"),
			Env:   env("APP_ENV", "local"),
			Debug: debug,
			Port:  env("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(env("LOG_LEVEL", defaultLevel)),
			Format: strings.ToLower(env("LOG_FORMAT", "text")),
		},
		Locator: LocatorConfig{
			Kernel:        strings.ToLower(env("LOCATOR_KERNEL", KernelDefault)),
			ReleasePolicy: strings.ToLower(env("LOCATOR_RELEASE_POLICY", ReleaseNone)),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
