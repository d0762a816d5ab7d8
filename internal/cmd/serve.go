package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/invscan/internal/config"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/receiver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local submission receiver",
	Long: `Run a local stand-in for the inventory backend.

The receiver accepts the records the capture terminal submits, answers with
"Inventory tracked", and keeps them in memory. Set --store-file to append
each record to a JSON lines journal that is replayed on restart. Requests
carrying an Idempotency-Key that was already accepted get the original
response back.

Routes:
  POST <path>        submit a record (default path /submit-form)
  GET  /submissions  list accepted records
  GET  /health       liveness check`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (overrides receiver.listen_addr)")
	serveCmd.Flags().String("path", "", "submission route (overrides receiver.path)")
	serveCmd.Flags().String("store-file", "", "JSON lines journal (overrides receiver.store_file)")
	_ = viper.BindPFlag("receiver.listen_addr", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("receiver.path", serveCmd.Flags().Lookup("path"))
	_ = viper.BindPFlag("receiver.store_file", serveCmd.Flags().Lookup("store-file"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newServeLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	store, err := receiver.NewStore(cfg.Receiver.StoreFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cfg.Receiver.StoreFile != "" {
		logger.Info("journal loaded", "path", cfg.Receiver.StoreFile, "records", store.Len())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := receiver.NewServer(store, cfg.Receiver.Path, logger)
	return srv.ListenAndServe(ctx, cfg.Receiver.ListenAddr)
}

// newServeLogger logs to stderr unless logging.dir names a directory.
func newServeLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir == "" {
		return logging.NewLogger("", cfg.Logging.Level, rotationConfig(cfg))
	}
	return newCaptureLogger(cfg)
}
