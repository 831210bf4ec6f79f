package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"frame-cache/internal/logging"

	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Config holds all application configuration
type Config struct {
	PictureDir     string
	DBPath         string
	Port           string
	UpdateInterval time.Duration
	PortraitPairs  bool
	GeocodeEnabled bool
	MetricsEnabled bool
	LogHTTPDebug   bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is loaded first, if present, so
// deployments can override settings without exporting variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Info("Loaded configuration overrides from .env")
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("frame-cache %s (%s, built %s, %s)", Version, Commit, BuildTime, GoVersion)
	logging.Info("------------------------------------------------------------")

	pictureDir := getEnv("PICTURE_DIR", "/pictures")
	dbPath := getEnv("DB_PATH", "/data/frame-cache.db")
	port := getEnv("PORT", "9000")
	updateIntervalStr := getEnv("UPDATE_INTERVAL", "2s")
	portraitPairs := getEnvBool("PORTRAIT_PAIRS", false)
	geocodeEnabled := getEnvBool("GEOCODE_ENABLED", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHTTPDebug := getEnvBool("LOG_HTTP_DEBUG", false)

	logging.Info("  PICTURE_DIR:      %s", pictureDir)
	logging.Info("  DB_PATH:          %s", dbPath)
	logging.Info("  PORT:             %s", port)
	logging.Info("  UPDATE_INTERVAL:  %s", updateIntervalStr)
	logging.Info("  PORTRAIT_PAIRS:   %v", portraitPairs)
	logging.Info("  GEOCODE_ENABLED:  %v", geocodeEnabled)
	logging.Info("  METRICS_ENABLED:  %v", metricsEnabled)
	logging.Info("  LOG_LEVEL:        %s", logging.GetLevel())

	updateInterval, err := time.ParseDuration(updateIntervalStr)
	if err != nil || updateInterval <= 0 {
		logging.Warn("  Invalid UPDATE_INTERVAL %q, using default: 2s", updateIntervalStr)
		updateInterval = 2 * time.Second
	}

	pictureDir, err = filepath.Abs(pictureDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve picture directory path: %w", err)
	}

	dbPath, err = filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	if info, err := os.Stat(pictureDir); err != nil {
		logging.Warn("  Picture directory issue: %v", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("picture path %s is not a directory", pictureDir)
	}

	if err := ensureDirectory(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("database directory: %w", err)
	}

	return &Config{
		PictureDir:     pictureDir,
		DBPath:         dbPath,
		Port:           port,
		UpdateInterval: updateInterval,
		PortraitPairs:  portraitPairs,
		GeocodeEnabled: geocodeEnabled,
		MetricsEnabled: metricsEnabled,
		LogHTTPDebug:   logHTTPDebug,
	}, nil
}

// ensureDirectory creates dir if missing and verifies it is writable.
func ensureDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	_ = os.Remove(testFile)

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean for %s: %q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
