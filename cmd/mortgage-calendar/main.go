package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/mortgage-calendar/internal/chart"
	"github.com/iwvelando/mortgage-calendar/internal/config"
	"github.com/iwvelando/mortgage-calendar/internal/logging"
	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"github.com/iwvelando/mortgage-calendar/pkg/output"
	"github.com/iwvelando/mortgage-calendar/pkg/validation"
	"go.uber.org/zap"
)

// loanFlags maps the loan override flags to their parameter keys.
var loanFlags = []struct {
	name  string
	key   string
	usage string
}{
	{"price", loans.ParamPrice, "property price in millions"},
	{"initial-payment", loans.ParamInitialPayment, "initial payment in millions"},
	{"period", loans.ParamPeriod, "loan term in years"},
	{"loan-rate", loans.ParamLoanRate, "annual interest rate in percent"},
	{"first-month", loans.ParamFirstMonth, "first month eligible for an early payment"},
	{"frequency", loans.ParamFrequencyMonths, "early payment interval in months"},
	{"early-payment", loans.ParamEarlyPayAmount, "early payment amount"},
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json, yaml")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	overrides := make(map[string]*string, len(loanFlags))
	for _, f := range loanFlags {
		overrides[f.key] = flag.String(f.name, "", f.usage)
	}
	flag.Parse()

	conf, err := loadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Flags take precedence over the loan section of the config.
	params := conf.Loan.Params()
	for key, value := range overrides {
		if *value != "" {
			params[key] = *value
		}
	}

	calendar, err := loans.NewBuilder(logger).BuildFromParams(params)
	if err != nil {
		logger.Fatal("failed to build amortization calendar",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := output.Write(os.Stdout, outputFormat, calendar); err != nil {
		logger.Fatal("failed to write calendar",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if conf.Chart.OutputFile != "" {
		png, err := chart.Render(calendar, chart.Options{Width: conf.Chart.Width, Height: conf.Chart.Height})
		if err != nil {
			logger.Fatal("failed to render chart",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		if err := os.WriteFile(conf.Chart.OutputFile, png, 0644); err != nil {
			logger.Fatal("failed to write chart",
				zap.String("op", "main"),
				zap.String("path", conf.Chart.OutputFile),
				zap.Error(err),
			)
		}
		logger.Info("wrote chart",
			zap.String("op", "main"),
			zap.String("path", conf.Chart.OutputFile),
		)
	}
}

// loadConfiguration reads the config file. A missing file at the default
// location is not an error; the loan parameters may come from flags alone.
func loadConfiguration(path string) (*config.Configuration, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == constants.DefaultConfigFile {
		return &config.Configuration{}, nil
	}

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
