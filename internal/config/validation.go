package config

import (
	"fmt"

	"mvtfilter/internal"
)

// Validate checks field-level invariants on a resolved Config. It does not
// touch the filesystem: the caller (cmd/run.go) reports a failure to open
// the Input, Output or Filter path when it opens them.
func Validate(cfg *Config) error {
	if cfg.Input == "" {
		return internal.NewError(internal.ErrorCodeValidation, "input archive path is required", nil)
	}
	if cfg.Output == "" {
		return internal.NewError(internal.ErrorCodeValidation, "output archive path is required", nil)
	}
	if cfg.Concurrency < 0 {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("concurrency must be >= 0, got %d", cfg.Concurrency), nil)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format), nil)
	}
	return nil
}
