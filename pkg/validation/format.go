// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
)

// OutputFormats lists the supported output formats in display order.
var OutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatYAML,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, supported := range OutputFormats {
		if format == supported {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s", strings.Join(OutputFormats, ", "), format)
}

// ValidateLogLevel checks a zap level name accepted by the logging config.
func ValidateLogLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}

// ValidateLogFormat checks a logging encoder name.
func ValidateLogFormat(format string) error {
	switch format {
	case "", "json", "console":
		return nil
	}
	return fmt.Errorf("invalid log format: %s", format)
}
