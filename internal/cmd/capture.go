package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/invscan/internal/capture"
	"github.com/Iron-Ham/invscan/internal/config"
	"github.com/Iron-Ham/invscan/internal/decoder"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/submit"
	"github.com/Iron-Ham/invscan/internal/tui"
)

var captureCmd = &cobra.Command{
	Use:     "capture",
	Aliases: []string{"start"},
	Short:   "Start the capture terminal",
	Long: `Start the capture terminal.

The terminal walks through three steps: enter the employment ID, scan the
code, enter the quantity. Press Enter to continue, Esc to start over and
Ctrl+C to quit. The camera is released whenever the terminal leaves the
scanning step.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("endpoint", "", "submission endpoint URL (overrides submit.endpoint)")
	captureCmd.Flags().String("driver", "", "scanner driver: zbarcam or wedge (overrides scanner.driver)")
	captureCmd.Flags().String("device", "", "video or scanner device (overrides scanner.device)")
	_ = viper.BindPFlag("submit.endpoint", captureCmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("scanner.driver", captureCmd.Flags().Lookup("driver"))
	_ = viper.BindPFlag("scanner.device", captureCmd.Flags().Lookup("device"))
}

func runCapture(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("capture needs an interactive terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newCaptureLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	session, err := newSession(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("capture terminal starting",
		"version", Version,
		"endpoint", cfg.Submit.Endpoint,
		"driver", cfg.Scanner.Driver,
	)

	app := tui.New(session, logger)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// newCaptureLogger opens the log file. The TUI owns the terminal, so logs
// never go to stderr here.
func newCaptureLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	dir := cfg.Logging.ResolveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logger, err := logging.NewLogger(dir, cfg.Logging.Level, rotationConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, nil
}

func rotationConfig(cfg *config.Config) logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
}

// newSession wires the decoder, the submission client and the session.
func newSession(cfg *config.Config, logger *logging.Logger) (*capture.Session, error) {
	capability, err := newCapability(cfg, logger)
	if err != nil {
		return nil, err
	}

	filter, err := decoder.NewFilter(cfg.Scanner.AcceptPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid scanner.accept_patterns: %w", err)
	}

	client, err := submit.NewHTTPClient(cfg.Submit.Endpoint,
		submit.WithTimeout(cfg.Submit.Timeout()),
		submit.WithUserAgent("invscan/"+Version),
	)
	if err != nil {
		return nil, err
	}

	var overlay *decoder.Surface
	if cfg.Scanner.Preview {
		overlay = &decoder.Surface{Name: "preview"}
	}

	return capture.New(capture.Options{
		Capability: capability,
		Client:     client,
		Video:      decoder.Surface{Name: cfg.Scanner.Device},
		Overlay:    overlay,
		Scanner: capture.ScannerOptions{
			PreferredCamera:  cfg.Scanner.PreferredCamera,
			HighlightRegion:  cfg.Scanner.HighlightRegion,
			HighlightOutline: cfg.Scanner.HighlightOutline,
			Filter:           filter,
		},
		SubmitTimeout:  cfg.Submit.Timeout(),
		SuccessDisplay: cfg.Feedback.SuccessDisplay(),
		Logger:         logger,
	}), nil
}

func newCapability(cfg *config.Config, logger *logging.Logger) (decoder.Capability, error) {
	switch cfg.Scanner.Driver {
	case config.DriverZbarcam:
		return decoder.NewProcess(decoder.ProcessConfig{
			Command:      cfg.Scanner.Command,
			Args:         cfg.Scanner.Args,
			Cameras:      cfg.Scanner.Cameras,
			StartupGrace: cfg.Scanner.StartupGrace(),
			Preview:      cfg.Scanner.Preview,
		}, logger), nil
	case config.DriverWedge:
		return decoder.NewDevice(cfg.Scanner.Device, logger), nil
	default:
		return nil, fmt.Errorf("unknown scanner driver %q", cfg.Scanner.Driver)
	}
}
