package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultHotkey        = "Win+Shift+C"
	DefaultTickRateHz    = 30
	DefaultPreviewRadius = 7
	DefaultPreviewScale  = 10
	ConfigPathEnvVar     = "COLORSNAP"
	historyFileName      = "color_history.json"
)

type LoadOptions struct {
	HistoryPathOverride string
}

type Config struct {
	Hotkey            string
	EnableFileLogging bool
	HistoryPath       string
	TickRateHz        int
	PreviewRadius     int
	PreviewScale      int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use COLORSNAP env var as a path to a config file
	envPath := resolveEnvPath()
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		HistoryPath:       resolveHistoryPath(opts),
		TickRateHz:        getEnvInt("TICK_RATE_HZ", DefaultTickRateHz),
		PreviewRadius:     getEnvInt("PREVIEW_RADIUS", DefaultPreviewRadius),
		PreviewScale:      getEnvInt("PREVIEW_SCALE", DefaultPreviewScale),
	}

	// Preview crop must stay odd-sized so a true center pixel exists
	if cfg.PreviewRadius < 1 {
		cfg.PreviewRadius = DefaultPreviewRadius
	}
	if cfg.PreviewScale < 1 {
		cfg.PreviewScale = DefaultPreviewScale
	}
	if cfg.TickRateHz < 1 || cfg.TickRateHz > 60 {
		cfg.TickRateHz = DefaultTickRateHz
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveHistoryPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.HistoryPathOverride); override != "" {
		return override
	}
	if envPath := strings.TrimSpace(os.Getenv("HISTORY_PATH")); envPath != "" {
		return envPath
	}

	base, err := os.UserConfigDir()
	if err != nil {
		// Last resort: current directory keeps the store usable
		return historyFileName
	}
	return filepath.Join(base, "colorsnap", historyFileName)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
