// Package config loads service settings from YAML, .env files and SCOUT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the CLI and the HTTP service.
type Config struct {
	DataPath string        `yaml:"data_path"`
	DBPath   string        `yaml:"db_path"`
	HTTP     HTTPConfig    `yaml:"http"`
	Log      LogConfig     `yaml:"log"`
	Analyze  AnalyzeConfig `yaml:"analyze"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	UploadRate     float64  `yaml:"upload_rate"` // requests per second per client IP
	UploadBurst    int      `yaml:"upload_burst"`
}

// LogConfig selects the zap encoder ("dev" or "prod") and the minimum level.
type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// AnalyzeConfig holds settings of the `analyze` command. The API key is read by the SDK from
// ANTHROPIC_API_KEY.
type AnalyzeConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// DefaultEnvPaths are the .env locations tried by LoadDotEnv, first hit wins.
var DefaultEnvPaths = []string{".env", "../.env", filepath.Join("~", ".scoutmetrics", ".env")}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataPath: filepath.Join("data", "scouting.csv"),
		DBPath:   filepath.Join("~", ".scoutmetrics", "mirror.db"),
		HTTP: HTTPConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 8 << 20,
			UploadRate:     5,
			UploadBurst:    10,
		},
		Log:     LogConfig{Mode: "dev", Level: "info"},
		Analyze: AnalyzeConfig{Model: "claude-sonnet-4-5", MaxTokens: 2048},
	}
}

// LoadDotEnv loads the first readable .env file among paths and returns it, or "" when none
// was found. Variables already set in the environment are not overridden.
func LoadDotEnv(paths ...string) string {
	for _, p := range paths {
		p = ExpandHome(p)
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfig reads filename over the defaults, then applies SCOUT_* overrides. An empty
// filename or a missing file leaves the defaults in place.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(ExpandHome(filename))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.DataPath = ExpandHome(cfg.DataPath)
	cfg.DBPath = ExpandHome(cfg.DBPath)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SCOUT_DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("SCOUT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SCOUT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SCOUT_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SCOUT_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SCOUT_ANALYZE_MODEL"); v != "" {
		cfg.Analyze.Model = v
	}
	if v := os.Getenv("SCOUT_UPLOAD_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SCOUT_UPLOAD_RATE value: %w", err)
		}
		cfg.HTTP.UploadRate = f
	}
	if v := os.Getenv("SCOUT_UPLOAD_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SCOUT_UPLOAD_BURST value: %w", err)
		}
		cfg.HTTP.UploadBurst = n
	}
	if v := os.Getenv("SCOUT_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SCOUT_MAX_UPLOAD_BYTES value: %w", err)
		}
		cfg.HTTP.MaxUploadBytes = n
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DataPath) == "":
		return errors.New("data_path must not be empty")
	case c.HTTP.MaxUploadBytes <= 0:
		return fmt.Errorf("http.max_upload_bytes must be positive, got %d", c.HTTP.MaxUploadBytes)
	case c.HTTP.UploadRate <= 0:
		return fmt.Errorf("http.upload_rate must be positive, got %g", c.HTTP.UploadRate)
	case c.HTTP.UploadBurst < 1:
		return fmt.Errorf("http.upload_burst must be at least 1, got %d", c.HTTP.UploadBurst)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
