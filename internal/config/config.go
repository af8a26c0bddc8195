package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server contains listener configuration.
type Server struct {
	Port            int      `toml:"port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
}

// Storage contains the artifact directory configuration.
type Storage struct {
	DownloadsDir string `toml:"downloads_dir"`
}

// Tool contains the external extraction tool configuration.
type Tool struct {
	Binary         string   `toml:"binary"`
	AudioFormat    string   `toml:"audio_format"`
	AudioQuality   string   `toml:"audio_quality"`
	ConvertTimeout Duration `toml:"convert_timeout"`
	AllowedHosts   []string `toml:"allowed_hosts"`
}

// Retention contains artifact cleanup timings.
type Retention struct {
	SweepInterval Duration `toml:"sweep_interval"`
	MaxAge        Duration `toml:"max_age"`
	DownloadDelay Duration `toml:"download_delay"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Storage   Storage   `toml:"storage"`
	Tool      Tool      `toml:"tool"`
	Retention Retention `toml:"retention"`
	Logging   Logging   `toml:"logging"`
}

// Load builds the configuration from defaults, the optional TOML file at path,
// .env files in the working directory, and environment overrides, in that
// order. An empty path skips the file; a named file that does not exist is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads the optional .env and .env.local files. Only .env.local
// overrides variables already present in the environment.
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: invalid number %q", v)
		}
		c.Server.Port = port
	}
	if v, ok := get("OGMP3_DOWNLOADS_DIR"); ok {
		c.Storage.DownloadsDir = v
	}
	if v, ok := get("OGMP3_YTDLP_BIN"); ok {
		c.Tool.Binary = v
	}
	if v, ok := get("OGMP3_AUDIO_FORMAT"); ok {
		c.Tool.AudioFormat = v
	}
	if v, ok := get("OGMP3_AUDIO_QUALITY"); ok {
		c.Tool.AudioQuality = v
	}
	if v, ok := get("OGMP3_ALLOWED_HOSTS"); ok {
		c.Tool.AllowedHosts = strings.Split(v, ",")
	}
	if v, ok := get("OGMP3_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("OGMP3_LOG_FORMAT"); ok {
		c.Logging.Format = v
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"OGMP3_CONVERT_TIMEOUT", &c.Tool.ConvertTimeout},
		{"OGMP3_SWEEP_INTERVAL", &c.Retention.SweepInterval},
		{"OGMP3_MAX_AGE", &c.Retention.MaxAge},
		{"OGMP3_DOWNLOAD_DELAY", &c.Retention.DownloadDelay},
		{"OGMP3_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = Duration(parsed)
	}
	return nil
}

// Addr is the listen address derived from the port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Duration is a time.Duration that reads TOML strings like "5m".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
