package config

import "time"

// Default values mirror the behaviour of the service before any of them were
// configurable.
const (
	DefaultPort            = 3000
	DefaultDownloadsDir    = "downloads"
	DefaultBinary          = "yt-dlp"
	DefaultAudioFormat     = "mp3"
	DefaultAudioQuality    = "0"
	DefaultConvertTimeout  = 10 * time.Minute
	DefaultSweepInterval   = 5 * time.Minute
	DefaultMaxAge          = 10 * time.Minute
	DefaultDownloadDelay   = 5 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodyBytes    = 1 << 20
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Server: Server{
			Port:            DefaultPort,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Storage: Storage{
			DownloadsDir: DefaultDownloadsDir,
		},
		Tool: Tool{
			Binary:         DefaultBinary,
			AudioFormat:    DefaultAudioFormat,
			AudioQuality:   DefaultAudioQuality,
			ConvertTimeout: Duration(DefaultConvertTimeout),
			AllowedHosts:   []string{"youtube.com", "youtu.be"},
		},
		Retention: Retention{
			SweepInterval: Duration(DefaultSweepInterval),
			MaxAge:        Duration(DefaultMaxAge),
			DownloadDelay: Duration(DefaultDownloadDelay),
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}
