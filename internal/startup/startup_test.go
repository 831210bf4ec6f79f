package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("FRAME_CACHE_TEST_KEY", "value")

	if got := getEnv("FRAME_CACHE_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("getEnv() = %q, want value", got)
	}
	if got := getEnv("FRAME_CACHE_MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want fallback", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback bool
		want     bool
	}{
		{name: "true", value: "true", fallback: false, want: true},
		{name: "false", value: "false", fallback: true, want: false},
		{name: "numeric true", value: "1", fallback: false, want: true},
		{name: "unset uses fallback", value: "", fallback: true, want: true},
		{name: "garbage uses fallback", value: "maybe", fallback: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("FRAME_CACHE_TEST_BOOL", tt.value)
			} else {
				os.Unsetenv("FRAME_CACHE_TEST_BOOL")
			}
			if got := getEnvBool("FRAME_CACHE_TEST_BOOL", tt.fallback); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestEnsureDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	if err := ensureDirectory(dir); err != nil {
		t.Fatalf("ensureDirectory() failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}

	// The write probe must not leave its marker behind.
	if _, err := os.Stat(filepath.Join(dir, ".perm-test")); !os.IsNotExist(err) {
		t.Errorf("probe file left behind: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	pictureDir := t.TempDir()

	t.Setenv("PICTURE_DIR", pictureDir)
	t.Setenv("DB_PATH", filepath.Join(dataDir, "frame-cache.db"))
	t.Setenv("PORT", "")
	t.Setenv("UPDATE_INTERVAL", "")
	t.Setenv("PORTRAIT_PAIRS", "")
	t.Setenv("GEOCODE_ENABLED", "")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Port != "9000" {
		t.Errorf("Port = %q, want 9000", config.Port)
	}
	if config.UpdateInterval != 2*time.Second {
		t.Errorf("UpdateInterval = %v, want 2s", config.UpdateInterval)
	}
	if config.PortraitPairs {
		t.Error("PortraitPairs = true, want false by default")
	}
	if !config.GeocodeEnabled {
		t.Error("GeocodeEnabled = false, want true by default")
	}
	if config.PictureDir != pictureDir {
		t.Errorf("PictureDir = %q, want %q", config.PictureDir, pictureDir)
	}
}

func TestLoadConfigInvalidInterval(t *testing.T) {
	dataDir := t.TempDir()

	t.Setenv("PICTURE_DIR", t.TempDir())
	t.Setenv("DB_PATH", filepath.Join(dataDir, "frame-cache.db"))
	t.Setenv("UPDATE_INTERVAL", "sometimes")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.UpdateInterval != 2*time.Second {
		t.Errorf("UpdateInterval = %v, want 2s fallback", config.UpdateInterval)
	}
}
