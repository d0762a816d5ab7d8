package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "submit.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidDrivers returns the list of valid scanner drivers
func ValidDrivers() []string {
	return []string{DriverZbarcam, DriverWedge}
}

// ValidFacings returns the list of valid camera facings
func ValidFacings() []string {
	return []string{FacingEnvironment, FacingUser}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSubmit()...)
	errors = append(errors, c.validateScanner()...)
	errors = append(errors, c.validateFeedback()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateReceiver()...)

	return errors
}

// validateSubmit validates the SubmitConfig
func (c *Config) validateSubmit() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Submit.Endpoint)
	switch {
	case c.Submit.Endpoint == "":
		errors = append(errors, ValidationError{
			Field:   "submit.endpoint",
			Value:   c.Submit.Endpoint,
			Message: "is required",
		})
	case err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errors = append(errors, ValidationError{
			Field:   "submit.endpoint",
			Value:   c.Submit.Endpoint,
			Message: "must be an absolute http or https URL",
		})
	}

	const maxTimeoutSeconds = 300
	if c.Submit.TimeoutSeconds < 1 || c.Submit.TimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "submit.timeout_seconds",
			Value:   c.Submit.TimeoutSeconds,
			Message: fmt.Sprintf("must be between 1 and %d", maxTimeoutSeconds),
		})
	}

	return errors
}

// validateScanner validates the ScannerConfig
func (c *Config) validateScanner() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidDrivers(), c.Scanner.Driver) {
		errors = append(errors, ValidationError{
			Field:   "scanner.driver",
			Value:   c.Scanner.Driver,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDrivers(), ", ")),
		})
	}

	if !slices.Contains(ValidFacings(), c.Scanner.PreferredCamera) {
		errors = append(errors, ValidationError{
			Field:   "scanner.preferred_camera",
			Value:   c.Scanner.PreferredCamera,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFacings(), ", ")),
		})
	}

	switch c.Scanner.Driver {
	case DriverZbarcam:
		if strings.TrimSpace(c.Scanner.Command) == "" {
			errors = append(errors, ValidationError{
				Field:   "scanner.command",
				Value:   c.Scanner.Command,
				Message: "is required for the zbarcam driver",
			})
		}
		if c.Scanner.ResolveDevice() == "" {
			errors = append(errors, ValidationError{
				Field:   "scanner.cameras",
				Value:   c.Scanner.Cameras,
				Message: "no camera device configured (set scanner.device or scanner.cameras)",
			})
		}
	case DriverWedge:
		if c.Scanner.Device == "" {
			errors = append(errors, ValidationError{
				Field:   "scanner.device",
				Value:   c.Scanner.Device,
				Message: "is required for the wedge driver",
			})
		}
	}

	if c.Scanner.StartupGraceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "scanner.startup_grace_ms",
			Value:   c.Scanner.StartupGraceMs,
			Message: "must be non-negative",
		})
	}

	for _, pattern := range c.Scanner.AcceptPatterns {
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "scanner.accept_patterns",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateFeedback validates the FeedbackConfig
func (c *Config) validateFeedback() []ValidationError {
	var errors []ValidationError

	if c.Feedback.SuccessDisplaySeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "feedback.success_display_seconds",
			Value:   c.Feedback.SuccessDisplaySeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateReceiver validates the ReceiverConfig
func (c *Config) validateReceiver() []ValidationError {
	var errors []ValidationError

	if c.Receiver.ListenAddr == "" {
		errors = append(errors, ValidationError{
			Field:   "receiver.listen_addr",
			Value:   c.Receiver.ListenAddr,
			Message: "is required",
		})
	}

	if !strings.HasPrefix(c.Receiver.Path, "/") {
		errors = append(errors, ValidationError{
			Field:   "receiver.path",
			Value:   c.Receiver.Path,
			Message: "must start with /",
		})
	}

	if strings.ContainsRune(c.Receiver.StoreFile, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "receiver.store_file",
			Value:   c.Receiver.StoreFile,
			Message: "path contains invalid null character",
		})
	}

	return errors
}
