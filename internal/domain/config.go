package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Resolver     ResolverConfig     `mapstructure:"resolver"`
	Transfer     TransferConfig     `mapstructure:"transfer"`
	Transcode    TranscodeConfig    `mapstructure:"transcode"`
	History      HistoryConfig      `mapstructure:"history"`
	Throttle     ThrottleConfig     `mapstructure:"throttle"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig contains filesystem layout configuration
type StorageConfig struct {
	BaseDir      string `mapstructure:"base_dir"`
	DownloadsDir string `mapstructure:"downloads_dir"` // resolved download destinations
	ConvertedDir string `mapstructure:"converted_dir"` // default conversion output dir
	LogsDir      string `mapstructure:"logs_dir"`
}

// SchedulerConfig contains admission and lifecycle configuration
type SchedulerConfig struct {
	// ConcurrentLimit bounds the number of active tasks across both kinds
	ConcurrentLimit int `mapstructure:"concurrent_limit"`
	// CancelGracePeriod is how long the scheduler waits for a worker to
	// acknowledge an abort before force-cancelling and detaching it
	CancelGracePeriod time.Duration `mapstructure:"cancel_grace_period"`
}

// ResolverConfig contains media resolver configuration
type ResolverConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// TransferConfig contains download transfer configuration
type TransferConfig struct {
	ChunkSize int           `mapstructure:"chunk_size"` // bytes per copy step, pause boundary
	Timeout   time.Duration `mapstructure:"timeout"`    // per-request timeout, 0 for none
}

// TranscodeConfig contains conversion configuration
type TranscodeConfig struct {
	FFmpegBinary  string `mapstructure:"ffmpeg_binary"`
	FFprobeBinary string `mapstructure:"ffprobe_binary"`
	// ExtraArgs is appended to every ffmpeg invocation, shell-style quoting
	ExtraArgs string `mapstructure:"extra_args"`
}

// HistoryConfig contains persistence bridge configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// ThrottleConfig guards new submissions against system pressure
type ThrottleConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MaxCPUPercent float64 `mapstructure:"max_cpu_percent"`
	MinFreeMemory int64   `mapstructure:"min_free_memory"` // bytes
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Storage: StorageConfig{
			BaseDir:      "$HOME/Music/sonic-extract",
			DownloadsDir: "$HOME/Music/sonic-extract/downloads",
			ConvertedDir: "$HOME/Music/sonic-extract/converted",
			LogsDir:      "$HOME/Music/sonic-extract/logs",
		},
		Scheduler: SchedulerConfig{
			ConcurrentLimit:   3,
			CancelGracePeriod: 5 * time.Second,
		},
		Resolver: ResolverConfig{
			Timeout:   15 * time.Second,
			UserAgent: "sonic-extract/1.0",
		},
		Transfer: TransferConfig{
			ChunkSize: 256 * 1024,
			Timeout:   0,
		},
		Transcode: TranscodeConfig{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			ExtraArgs:     "",
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/Music/sonic-extract/history.db",
		},
		Throttle: ThrottleConfig{
			Enabled:       false,
			MaxCPUPercent: 90.0,
			MinFreeMemory: 200 * 1024 * 1024,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
