package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default submit config
	if cfg.Submit.Endpoint != "http://127.0.0.1:8080/submit-form" {
		t.Errorf("Submit.Endpoint = %q, want local receiver", cfg.Submit.Endpoint)
	}
	if cfg.Submit.TimeoutSeconds != 10 {
		t.Errorf("Submit.TimeoutSeconds = %d, want 10", cfg.Submit.TimeoutSeconds)
	}

	// Verify default scanner config
	if cfg.Scanner.Driver != DriverZbarcam {
		t.Errorf("Scanner.Driver = %q, want %q", cfg.Scanner.Driver, DriverZbarcam)
	}
	if cfg.Scanner.PreferredCamera != FacingEnvironment {
		t.Errorf("Scanner.PreferredCamera = %q, want %q", cfg.Scanner.PreferredCamera, FacingEnvironment)
	}
	if !cfg.Scanner.HighlightRegion || !cfg.Scanner.HighlightOutline {
		t.Error("highlight region and outline should be enabled by default")
	}
	if !cfg.Scanner.Preview {
		t.Error("Scanner.Preview should be true by default")
	}
	if cfg.Scanner.StartupGraceMs != 1500 {
		t.Errorf("Scanner.StartupGraceMs = %d, want 1500", cfg.Scanner.StartupGraceMs)
	}
	if len(cfg.Scanner.AcceptPatterns) != 0 {
		t.Errorf("Scanner.AcceptPatterns should be empty, got %v", cfg.Scanner.AcceptPatterns)
	}

	// Verify default feedback config
	if cfg.Feedback.SuccessDisplaySeconds != 3 {
		t.Errorf("Feedback.SuccessDisplaySeconds = %d, want 3", cfg.Feedback.SuccessDisplaySeconds)
	}

	// Verify default receiver config
	if cfg.Receiver.ListenAddr != ":8080" {
		t.Errorf("Receiver.ListenAddr = %q, want %q", cfg.Receiver.ListenAddr, ":8080")
	}
	if cfg.Receiver.Path != "/submit-form" {
		t.Errorf("Receiver.Path = %q, want %q", cfg.Receiver.Path, "/submit-form")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	if got := cfg.Submit.Timeout(); got != 10*time.Second {
		t.Errorf("Submit.Timeout() = %v, want 10s", got)
	}
	if got := cfg.Scanner.StartupGrace(); got != 1500*time.Millisecond {
		t.Errorf("Scanner.StartupGrace() = %v, want 1.5s", got)
	}
	if got := cfg.Feedback.SuccessDisplay(); got != 3*time.Second {
		t.Errorf("Feedback.SuccessDisplay() = %v, want 3s", got)
	}
}

func TestScannerConfig_ResolveDevice(t *testing.T) {
	tests := []struct {
		name string
		cfg  ScannerConfig
		want string
	}{
		{
			name: "explicit device wins",
			cfg: ScannerConfig{
				Device:          "/dev/video9",
				PreferredCamera: FacingEnvironment,
				Cameras:         map[string]string{FacingEnvironment: "/dev/video0"},
			},
			want: "/dev/video9",
		},
		{
			name: "preferred facing",
			cfg: ScannerConfig{
				PreferredCamera: FacingUser,
				Cameras:         map[string]string{FacingEnvironment: "/dev/video0", FacingUser: "/dev/video1"},
			},
			want: "/dev/video1",
		},
		{
			name: "falls back to environment camera",
			cfg: ScannerConfig{
				PreferredCamera: FacingUser,
				Cameras:         map[string]string{FacingEnvironment: "/dev/video0"},
			},
			want: "/dev/video0",
		},
		{
			name: "falls back to any camera",
			cfg: ScannerConfig{
				PreferredCamera: FacingEnvironment,
				Cameras:         map[string]string{"usb-b": "/dev/video5", "usb-a": "/dev/video4"},
			},
			want: "/dev/video4",
		},
		{
			name: "nothing configured",
			cfg:  ScannerConfig{PreferredCamera: FacingEnvironment},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolveDevice(); got != tt.want {
				t.Errorf("ResolveDevice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggingConfig_ResolveDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	t.Run("empty uses state dir", func(t *testing.T) {
		c := LoggingConfig{}
		if got := c.ResolveDir(); got != "/custom/state/invscan" {
			t.Errorf("ResolveDir() = %q, want %q", got, "/custom/state/invscan")
		}
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		c := LoggingConfig{Dir: "~/logs"}
		if got := c.ResolveDir(); got != filepath.Join(home, "logs") {
			t.Errorf("ResolveDir() = %q, want %q", got, filepath.Join(home, "logs"))
		}
	})

	t.Run("absolute path unchanged", func(t *testing.T) {
		c := LoggingConfig{Dir: "/var/log/invscan"}
		if got := c.ResolveDir(); got != "/var/log/invscan" {
			t.Errorf("ResolveDir() = %q", got)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/invscan"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "invscan")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/invscan/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults load cleanly", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Scanner.Cameras[FacingEnvironment] != "/dev/video0" {
			t.Errorf("Scanner.Cameras = %v", cfg.Scanner.Cameras)
		}
	})

	t.Run("overrides are applied", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("submit.endpoint", "https://inventory.example.com/submit-form")
		viper.Set("scanner.accept_patterns", []string{"SKU-*"})

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Submit.Endpoint != "https://inventory.example.com/submit-form" {
			t.Errorf("Submit.Endpoint = %q", cfg.Submit.Endpoint)
		}
		if len(cfg.Scanner.AcceptPatterns) != 1 || cfg.Scanner.AcceptPatterns[0] != "SKU-*" {
			t.Errorf("Scanner.AcceptPatterns = %v", cfg.Scanner.AcceptPatterns)
		}
	})

	t.Run("invalid values return ValidationErrors", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("submit.timeout_seconds", 0)

		_, err := Load()
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("Load() error = %v, want ValidationErrors", err)
		}
		if verrs[0].Field != "submit.timeout_seconds" {
			t.Errorf("Field = %q, want submit.timeout_seconds", verrs[0].Field)
		}
	})
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Scanner.Driver != DriverZbarcam {
		t.Errorf("Get().Scanner.Driver = %q, want %q", cfg.Scanner.Driver, DriverZbarcam)
	}

	viper.Set("scanner.driver", "telepathy")
	if got := Get(); got.Scanner.Driver != DriverZbarcam {
		t.Errorf("Get() with invalid config should fall back to defaults, got driver %q", got.Scanner.Driver)
	}
}
