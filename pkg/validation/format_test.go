package validation

import (
	"strings"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Valid pretty format",
			format:    "pretty",
			expectErr: false,
		},
		{
			name:      "Valid csv format",
			format:    "csv",
			expectErr: false,
		},
		{
			name:      "Valid json format",
			format:    "json",
			expectErr: false,
		},
		{
			name:      "Valid yaml format",
			format:    "yaml",
			expectErr: false,
		},
		{
			name:      "Empty format",
			format:    "",
			expectErr: true,
		},
		{
			name:      "Case sensitive - uppercase",
			format:    "PRETTY",
			expectErr: true,
		},
		{
			name:      "Case sensitive - JSON uppercase",
			format:    "JSON",
			expectErr: true,
		},
		{
			name:      "Leading/trailing spaces",
			format:    " pretty ",
			expectErr: true,
		},
		{
			name:      "Short yaml extension",
			format:    "yml",
			expectErr: true,
		},
		{
			name:      "XML format not supported",
			format:    "xml",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)

			if tt.expectErr {
				if err == nil {
					t.Errorf("ValidateOutputFormat(%s) expected error but got none", tt.format)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateOutputFormat(%s) unexpected error = %v", tt.format, err)
				}
			}
		})
	}
}

func TestValidateOutputFormatErrorMessage(t *testing.T) {
	err := ValidateOutputFormat("xml")
	if err == nil {
		t.Fatal("expected error for xml")
	}

	msg := err.Error()
	for _, want := range append([]string{"xml"}, OutputFormats...) {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q does not mention %q", msg, want)
		}
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "warning", "error"} {
		if err := ValidateLogLevel(level); err != nil {
			t.Errorf("ValidateLogLevel(%q) unexpected error = %v", level, err)
		}
	}
	for _, level := range []string{"trace", "INFO", "fatal"} {
		if err := ValidateLogLevel(level); err == nil {
			t.Errorf("ValidateLogLevel(%q) expected error but got none", level)
		}
	}
}

func TestValidateLogFormat(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		if err := ValidateLogFormat(format); err != nil {
			t.Errorf("ValidateLogFormat(%q) unexpected error = %v", format, err)
		}
	}
	if err := ValidateLogFormat("logfmt"); err == nil {
		t.Error("ValidateLogFormat(logfmt) expected error but got none")
	}
}
