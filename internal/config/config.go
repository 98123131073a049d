package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultAPIBase   = "https://api.live.bilibili.com"
	DefaultQuality   = 10000 // 原画
	DefaultWebAddr   = ":8899"
)

type Config struct {
	Bilibili BilibiliConfig `yaml:"bilibili"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
}

type BilibiliConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Quality   int           `yaml:"quality"` // qn, 10000=original
	Timeout   time.Duration `yaml:"timeout"` // 0 = no client timeout
	APIBase   string        `yaml:"api_base"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Bilibili: BilibiliConfig{
			UserAgent: DefaultUserAgent,
			Quality:   DefaultQuality,
			APIBase:   DefaultAPIBase,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Web: WebConfig{
			Addr: DefaultWebAddr,
		},
	}
}

// Load reads the YAML config at path on top of the defaults, then applies
// BILILIVE_* environment overrides (a .env file in the working directory is
// loaded first if present). A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// Fill defaults the file may have blanked
	if cfg.Bilibili.UserAgent == "" {
		cfg.Bilibili.UserAgent = DefaultUserAgent
	}
	if cfg.Bilibili.Quality <= 0 {
		cfg.Bilibili.Quality = DefaultQuality
	}
	if cfg.Bilibili.APIBase == "" {
		cfg.Bilibili.APIBase = DefaultAPIBase
	}
	if cfg.Web.Addr == "" {
		cfg.Web.Addr = DefaultWebAddr
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BILILIVE_USER_AGENT"); v != "" {
		cfg.Bilibili.UserAgent = v
	}
	if v := os.Getenv("BILILIVE_API_BASE"); v != "" {
		cfg.Bilibili.APIBase = v
	}
	if v := os.Getenv("BILILIVE_QUALITY"); v != "" {
		qn, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BILILIVE_QUALITY: %w", err)
		}
		cfg.Bilibili.Quality = qn
	}
	if v := os.Getenv("BILILIVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BILILIVE_TIMEOUT: %w", err)
		}
		cfg.Bilibili.Timeout = d
	}
	if v := os.Getenv("BILILIVE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BILILIVE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BILILIVE_WEB_ADDR"); v != "" {
		cfg.Web.Addr = v
	}
	return nil
}
