// Package constants provides shared constants for the mortgage-calendar application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// MaxPeriodMonths bounds the loan term (100 years)
	MaxPeriodMonths = 1200

	// MillionMultiplier scales price and initial payment inputs, which are
	// expressed in millions, into currency units.
	MillionMultiplier = 1000000

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides of the
	// configuration file (e.g. MORTGAGE_LOGGING_LEVEL).
	EnvPrefix = "MORTGAGE"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":5005"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultServiceName identifies the server in traces and metrics
	DefaultServiceName = "mortgage-calendar"

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server
	DefaultShutdownTimeout = "30s"
)

// Chart defaults
const (
	// DefaultChartWidth is the default chart width in pixels
	DefaultChartWidth = 1280

	// DefaultChartHeight is the default chart height in pixels
	DefaultChartHeight = 720

	// ChartCurrencyLabel is the unit printed on the y axis and in the title
	ChartCurrencyLabel = "RUB"
)
