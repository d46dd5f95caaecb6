package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/yath/sstcs/internal/common"
	"github.com/yath/sstcs/internal/upnp"
)

type logConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	DeviceType       string        `yaml:"deviceType"`
	ServiceID        string        `yaml:"serviceId"`
	DeviceURL        string        `yaml:"deviceUrl"`
	DiscoveryTimeout time.Duration `yaml:"discoveryTimeout"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	ActionTimeout    time.Duration `yaml:"actionTimeout"`
	LogLevels        string        `yaml:"logLevels"`
	CacheFile        string        `yaml:"cacheFile"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
	HistoryFile      string        `yaml:"historyFile"`
	Logs             logConfig     `yaml:"logs"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "sstcs", "config.yaml")
}

// loadConfig reads path, then .env and SSTCS_* environment variables, and
// fills in defaults. A missing file is only an error when required is set.
func loadConfig(path string, required bool) (config, error) {
	var cfg config
	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			dec := yaml.NewDecoder(f)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return cfg, err
		}
	}
	// Relative paths in the file are relative to the file; paths from the
	// environment are taken as given.
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) || path == "" {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.CacheFile = resolvePath(cfg.CacheFile)
	cfg.HistoryFile = resolvePath(cfg.HistoryFile)
	cfg.Logs.File = resolvePath(cfg.Logs.File)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf(".env: %w", err)
	}
	applyEnv(&cfg)

	if cfg.DeviceType == "" {
		cfg.DeviceType = upnp.DefaultDeviceType
	}
	if cfg.ServiceID == "" {
		cfg.ServiceID = upnp.DefaultServiceID
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = 5 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	if cfg.LogLevels == "" {
		cfg.LogLevels = "info"
	}
	if cfg.CacheFile == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.CacheFile = filepath.Join(dir, "sstcs", "devices.gob")
		}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 5
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 30
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 3
	}
	return cfg, nil
}

func applyEnv(cfg *config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.DeviceType, "SSTCS_DEVICE_TYPE")
	set(&cfg.DeviceURL, "SSTCS_DEVICE_URL")
	set(&cfg.LogLevels, "SSTCS_LOGLEVELS")
	set(&cfg.CacheFile, "SSTCS_CACHE_FILE")
	set(&cfg.HistoryFile, "SSTCS_HISTORY_FILE")
}

// setupLogging applies the level string and, when a log file is
// configured, tees log output into a rotating file.
func setupLogging(cfg config, extraLevels []string) error {
	levels := strings.Join(append([]string{cfg.LogLevels}, extraLevels...), ",")
	if err := common.SetLevels(levels); err != nil {
		return err
	}
	defer func() {
		if o := common.Overrides(); len(o) > 0 {
			log.Debugf("logger overrides: %s", strings.Join(o, " "))
		}
	}()
	if cfg.Logs.File == "" {
		common.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logs.File), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logs.File,
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	common.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}
