// Package logging provides structured logging for the capture terminal.
//
// This package wraps Go's log/slog to write JSON logs to a file next to the
// operator's terminal session, since the TUI owns stdout. Child loggers carry
// persistent attributes such as the capture session ID and workflow stage so a
// single submission can be followed end to end after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/invscan", logging.LevelInfo, logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	sessionLogger := logger.WithSession("6f1c...")
//	sessionLogger.WithStage("scanning").Info("camera attached", "device", "/dev/video0")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"camera attached","session_id":"6f1c...","stage":"scanning","device":"/dev/video0"}
//
// # Log Rotation
//
// Logs rotate by size through [RotatingWriter]. Rotated files are named
// invscan.log.1 (newest) through invscan.log.N; with compression enabled they
// become invscan.log.1.gz and so on.
//
// # Testing
//
// Use [NopLogger] to discard output in tests.
//
// # Thread Safety
//
// All types are safe for concurrent use. Decoder goroutines log through the
// same Logger as the event loop.
package logging
