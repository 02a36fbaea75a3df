package config

import (
	"errors"
	"fmt"

	"github.com/parley-chat/parley/internal/core"
)

// Validate checks the structural validity of a Config: the version
// field, the presence of at least one module, that every referenced
// module ID exists in the registry, and the log and telemetry settings.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateLog(cfg.Log)...)

	return errors.Join(errs...)
}

func validateLog(lc LogConfig) []error {
	var errs []error

	switch lc.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", lc.Level))
	}

	switch lc.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of text, json", lc.Format))
	}

	return errs
}
