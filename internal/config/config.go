package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete invscan configuration
type Config struct {
	Submit   SubmitConfig   `mapstructure:"submit" yaml:"submit"`
	Scanner  ScannerConfig  `mapstructure:"scanner" yaml:"scanner"`
	Feedback FeedbackConfig `mapstructure:"feedback" yaml:"feedback"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Receiver ReceiverConfig `mapstructure:"receiver" yaml:"receiver"`
}

// SubmitConfig controls where captured records are sent
type SubmitConfig struct {
	// Endpoint is the absolute http(s) URL records are POSTed to
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// TimeoutSeconds bounds a single submission request (default: 10)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ScannerConfig controls the code decoder
type ScannerConfig struct {
	// Driver selects the decoder: "zbarcam" (camera) or "wedge" (handheld scanner device)
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Device is the video device (zbarcam) or the serial/HID/FIFO path (wedge).
	// For zbarcam it overrides the Cameras lookup.
	Device string `mapstructure:"device" yaml:"device"`
	// Command is the camera decoding program (default: "zbarcam")
	Command string `mapstructure:"command" yaml:"command"`
	// Args are extra arguments passed to Command
	Args []string `mapstructure:"args" yaml:"args"`
	// PreferredCamera is the facing to prefer: "environment" or "user"
	PreferredCamera string `mapstructure:"preferred_camera" yaml:"preferred_camera"`
	// Cameras maps a facing ("environment", "user") to a video device
	Cameras map[string]string `mapstructure:"cameras" yaml:"cameras"`
	// HighlightRegion asks the decoder to mark the scan region on the preview
	HighlightRegion bool `mapstructure:"highlight_region" yaml:"highlight_region"`
	// HighlightOutline asks the decoder to outline detected codes on the preview
	HighlightOutline bool `mapstructure:"highlight_outline" yaml:"highlight_outline"`
	// Preview shows the decoder's preview window when the driver supports one
	Preview bool `mapstructure:"preview" yaml:"preview"`
	// StartupGraceMs is how long a freshly started decoder must stay up to count as started
	StartupGraceMs int `mapstructure:"startup_grace_ms" yaml:"startup_grace_ms"`
	// AcceptPatterns are glob patterns a payload must match; empty accepts everything
	AcceptPatterns []string `mapstructure:"accept_patterns" yaml:"accept_patterns"`
}

// FeedbackConfig controls the feedback banner
type FeedbackConfig struct {
	// SuccessDisplaySeconds is how long the success banner stays visible (default: 3)
	SuccessDisplaySeconds int `mapstructure:"success_display_seconds" yaml:"success_display_seconds"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty means the state directory for the TUI and stderr for serve.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 5)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ReceiverConfig controls the development submission receiver
type ReceiverConfig struct {
	// ListenAddr is the address `invscan serve` listens on (default: ":8080")
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	// Path is the submission route (default: "/submit-form")
	Path string `mapstructure:"path" yaml:"path"`
	// StoreFile appends accepted records as JSON lines when set
	StoreFile string `mapstructure:"store_file" yaml:"store_file"`
}

// Scanner driver names
const (
	DriverZbarcam = "zbarcam"
	DriverWedge   = "wedge"
)

// Camera facings
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Submit: SubmitConfig{
			Endpoint:       "http://127.0.0.1:8080/submit-form",
			TimeoutSeconds: 10,
		},
		Scanner: ScannerConfig{
			Driver:          DriverZbarcam,
			Device:          "",
			Command:         "zbarcam",
			Args:            []string{},
			PreferredCamera: FacingEnvironment,
			Cameras: map[string]string{
				FacingEnvironment: "/dev/video0",
			},
			HighlightRegion:  true,
			HighlightOutline: true,
			Preview:          true,
			StartupGraceMs:   1500,
			AcceptPatterns:   []string{},
		},
		Feedback: FeedbackConfig{
			SuccessDisplaySeconds: 3,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  5,
			MaxBackups: 3,
			Compress:   false,
		},
		Receiver: ReceiverConfig{
			ListenAddr: ":8080",
			Path:       "/submit-form",
			StoreFile:  "",
		},
	}
}

// Timeout returns the submission timeout as a time.Duration
func (c *SubmitConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StartupGrace returns the decoder startup grace window as a time.Duration
func (c *ScannerConfig) StartupGrace() time.Duration {
	return time.Duration(c.StartupGraceMs) * time.Millisecond
}

// ResolveDevice picks the device for the decoder. An explicit Device wins,
// then the camera for PreferredCamera, then any configured camera (sorted by
// facing name so the choice is stable).
func (c *ScannerConfig) ResolveDevice() string {
	if c.Device != "" {
		return c.Device
	}
	if dev := c.Cameras[c.PreferredCamera]; dev != "" {
		return dev
	}
	for _, facing := range []string{FacingEnvironment, FacingUser} {
		if dev := c.Cameras[facing]; dev != "" {
			return dev
		}
	}
	var fallback, fallbackKey string
	for facing, dev := range c.Cameras {
		if dev != "" && (fallbackKey == "" || facing < fallbackKey) {
			fallback, fallbackKey = dev, facing
		}
	}
	return fallback
}

// SuccessDisplay returns how long the success banner stays visible
func (c *FeedbackConfig) SuccessDisplay() time.Duration {
	return time.Duration(c.SuccessDisplaySeconds) * time.Second
}

// ResolveDir returns the log directory, falling back to StateDir when unset.
// A leading ~ expands to the user's home directory.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return StateDir()
	}
	return expandHome(c.Dir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Submit defaults
	viper.SetDefault("submit.endpoint", defaults.Submit.Endpoint)
	viper.SetDefault("submit.timeout_seconds", defaults.Submit.TimeoutSeconds)

	// Scanner defaults
	viper.SetDefault("scanner.driver", defaults.Scanner.Driver)
	viper.SetDefault("scanner.device", defaults.Scanner.Device)
	viper.SetDefault("scanner.command", defaults.Scanner.Command)
	viper.SetDefault("scanner.args", defaults.Scanner.Args)
	viper.SetDefault("scanner.preferred_camera", defaults.Scanner.PreferredCamera)
	viper.SetDefault("scanner.cameras", defaults.Scanner.Cameras)
	viper.SetDefault("scanner.highlight_region", defaults.Scanner.HighlightRegion)
	viper.SetDefault("scanner.highlight_outline", defaults.Scanner.HighlightOutline)
	viper.SetDefault("scanner.preview", defaults.Scanner.Preview)
	viper.SetDefault("scanner.startup_grace_ms", defaults.Scanner.StartupGraceMs)
	viper.SetDefault("scanner.accept_patterns", defaults.Scanner.AcceptPatterns)

	// Feedback defaults
	viper.SetDefault("feedback.success_display_seconds", defaults.Feedback.SuccessDisplaySeconds)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Receiver defaults
	viper.SetDefault("receiver.listen_addr", defaults.Receiver.ListenAddr)
	viper.SetDefault("receiver.path", defaults.Receiver.Path)
	viper.SetDefault("receiver.store_file", defaults.Receiver.StoreFile)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "invscan")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".invscan"
	}
	return filepath.Join(home, ".config", "invscan")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory used for logs when logging.dir is unset
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "invscan")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".invscan"
	}
	return filepath.Join(home, ".local", "state", "invscan")
}
