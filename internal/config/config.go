// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"github.com/iwvelando/mortgage-calendar/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for mortgage-calendar.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Loan    LoanConfig    `yaml:"loan,omitempty"`
	Chart   ChartConfig   `yaml:"chart,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json, yaml
}

// ChartConfig controls the optional PNG chart of the calendar.
type ChartConfig struct {
	OutputFile string `yaml:"outputFile,omitempty"`
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
}

// LoanConfig holds the loan parameters. Unset fields stay nil so that a
// missing key reaches loans.ParseParams as missing.
type LoanConfig struct {
	Price          *float64 `mapstructure:"price" yaml:"price,omitempty"`
	InitialPayment *float64 `mapstructure:"initial_payment" yaml:"initial_payment,omitempty"`
	Period         *float64 `mapstructure:"period" yaml:"period,omitempty"`
	LoanRate       *float64 `mapstructure:"loan_rate" yaml:"loan_rate,omitempty"`
	FirstMonth     *float64 `mapstructure:"first_month" yaml:"first_month,omitempty"`
	Frequency      *float64 `mapstructure:"frequency_months" yaml:"frequency_months,omitempty"`
	EarlyPayAmount *float64 `mapstructure:"early_pay_amount" yaml:"early_pay_amount,omitempty"`

	// Aliases accepted by loans.ParseParams; the keys above win when both are set.
	FrequencyAlias     *float64 `mapstructure:"frequency" yaml:"frequency,omitempty"`
	EarlyPaymentAmount *float64 `mapstructure:"early_payment_amount" yaml:"early_payment_amount,omitempty"`
}

// loanKeys are bound individually so that MORTGAGE_LOAN_* variables apply
// even when the config file omits the key.
var loanKeys = []string{
	loans.ParamPrice,
	loans.ParamInitialPayment,
	loans.ParamPeriod,
	loans.ParamLoanRate,
	loans.ParamFirstMonth,
	loans.ParamFrequencyMonths,
	loans.ParamEarlyPayAmount,
	loans.ParamFrequency,
	loans.ParamEarlyPaymentAmount,
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A .env file in the working directory is loaded into
// the environment first when present.
func LoadConfiguration(configPath string) (*Configuration, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r, applying the
// same environment overrides as LoadConfiguration.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range loanKeys {
		_ = v.BindEnv("loan." + key)
	}
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// Validate checks the logging and output settings.
func (c *Configuration) Validate() error {
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return fmt.Errorf("chart dimensions must not be negative, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	return nil
}

// Params converts the loan section into the parameter set accepted by
// loans.ParseParams, leaving out unset keys.
func (l LoanConfig) Params() map[string]interface{} {
	params := make(map[string]interface{})
	fields := []struct {
		key   string
		value *float64
	}{
		{loans.ParamPrice, l.Price},
		{loans.ParamInitialPayment, l.InitialPayment},
		{loans.ParamPeriod, l.Period},
		{loans.ParamLoanRate, l.LoanRate},
		{loans.ParamFirstMonth, l.FirstMonth},
		{loans.ParamFrequencyMonths, l.Frequency},
		{loans.ParamEarlyPayAmount, l.EarlyPayAmount},
		{loans.ParamFrequency, l.FrequencyAlias},
		{loans.ParamEarlyPaymentAmount, l.EarlyPaymentAmount},
	}
	for _, f := range fields {
		if f.value != nil {
			params[f.key] = *f.value
		}
	}
	return params
}
