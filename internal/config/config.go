package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting of the clipper.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Storage  StorageConfig
	Observer ObserverConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	apiCfg, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	obs, err := loadObserverConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, API: apiCfg, Storage: storage, Observer: obs}, nil
}

// ServerConfig describes the daemon's HTTP listener and how clients reach it.
type ServerConfig struct {
	Addr      string
	DaemonURL string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8732"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = "127.0.0.1:" + port
	}

	daemonURL := getEnvOrDefault("CLIPPERD_URL", "http://"+addr)
	return ServerConfig{Addr: addr, DaemonURL: daemonURL}, nil
}

// APIConfig describes the remote Kobo API.
type APIConfig struct {
	BaseURL   string
	CompanyID int64
	BrandID   int64
}

func loadAPIConfig() (APIConfig, error) {
	companyID, err := parseOptionalInt64Env("KOBO_COMPANY_ID")
	if err != nil {
		return APIConfig{}, err
	}
	brandID, err := parseOptionalInt64Env("KOBO_BRAND_ID")
	if err != nil {
		return APIConfig{}, err
	}

	cfg := APIConfig{
		BaseURL: getEnvOrDefault("KOBO_API_URL", "https://app.matterplm.com/api"),
	}
	if companyID != nil {
		cfg.CompanyID = *companyID
	}
	if brandID != nil {
		cfg.BrandID = *brandID
	}
	return cfg, nil
}

// StorageConfig locates the durable session file.
type StorageConfig struct {
	SessionFile string
}

func loadStorageConfig() (StorageConfig, error) {
	if path := strings.TrimSpace(os.Getenv("CLIPPER_SESSION_FILE")); path != "" {
		return StorageConfig{SessionFile: path}, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return StorageConfig{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return StorageConfig{SessionFile: filepath.Join(base, "kobo-clipper", "session.json")}, nil
}

// ObserverConfig tunes the page observer.
type ObserverConfig struct {
	MinImageSize int
	SettleDelay  time.Duration
	RevertDelay  time.Duration
	Headless     bool
}

func loadObserverConfig() (ObserverConfig, error) {
	minSize, err := parseOptionalIntEnv("OBSERVER_MIN_IMAGE_SIZE")
	if err != nil {
		return ObserverConfig{}, err
	}
	settleMs, err := parseOptionalIntEnv("OBSERVER_SETTLE_DELAY_MS")
	if err != nil {
		return ObserverConfig{}, err
	}
	revertMs, err := parseOptionalIntEnv("OBSERVER_REVERT_DELAY_MS")
	if err != nil {
		return ObserverConfig{}, err
	}
	headless, err := parseBoolEnv("CLIPPER_HEADLESS", false)
	if err != nil {
		return ObserverConfig{}, err
	}

	cfg := ObserverConfig{Headless: headless}
	if minSize != nil {
		cfg.MinImageSize = *minSize
	}
	if settleMs != nil {
		cfg.SettleDelay = time.Duration(*settleMs) * time.Millisecond
	}
	if revertMs != nil {
		cfg.RevertDelay = time.Duration(*revertMs) * time.Millisecond
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalInt64Env(key string) (*int64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
