package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() {
	c.Storage.DownloadsDir = filepath.Clean(strings.TrimSpace(c.Storage.DownloadsDir))
	c.Tool.Binary = strings.TrimSpace(c.Tool.Binary)
	c.Tool.AudioFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Tool.AudioFormat), "."))
	c.Tool.AudioQuality = strings.TrimSpace(c.Tool.AudioQuality)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	hosts := make([]string, 0, len(c.Tool.AllowedHosts))
	for _, h := range c.Tool.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	c.Tool.AllowedHosts = hosts
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Storage.DownloadsDir == "" || c.Storage.DownloadsDir == "." || c.Storage.DownloadsDir == "/" {
		return fmt.Errorf("storage.downloads_dir must name a dedicated directory, got %q", c.Storage.DownloadsDir)
	}
	if c.Tool.Binary == "" {
		return fmt.Errorf("tool.binary is required")
	}
	switch c.Tool.AudioFormat {
	case "mp3", "m4a", "aac", "opus", "vorbis", "flac", "wav", "alac":
	default:
		return fmt.Errorf("tool.audio_format %q is not supported", c.Tool.AudioFormat)
	}
	if c.Tool.ConvertTimeout <= 0 {
		return fmt.Errorf("tool.convert_timeout must be positive")
	}
	if len(c.Tool.AllowedHosts) == 0 {
		return fmt.Errorf("tool.allowed_hosts must not be empty")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be positive")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention.sweep_interval must be positive")
	}
	if c.Retention.DownloadDelay < 0 {
		return fmt.Errorf("retention.download_delay must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not one of auto, json, text", c.Logging.Format)
	}
	return nil
}
