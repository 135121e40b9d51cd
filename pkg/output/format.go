// Package output provides utilities for formatting and displaying amortization calendars.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/format"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"gopkg.in/yaml.v3"
)

// FormattedRow is a calendar row with every amount truncated to whole
// currency units and grouped for display.
type FormattedRow struct {
	MonthlyPayment     string `json:"monthly_payment" yaml:"monthly_payment"`
	InterestComponent  string `json:"interest_component" yaml:"interest_component"`
	PrincipalComponent string `json:"principal_component" yaml:"principal_component"`
	CumulativeInterest string `json:"cumulative_interest" yaml:"cumulative_interest"`
	ResidualPrincipal  string `json:"residual_principal" yaml:"residual_principal"`
}

// FormattedSummary is the display form of loans.Summary.
type FormattedSummary struct {
	AverageInterestComponent string `json:"average_interest_component" yaml:"average_interest_component"`
	AverageMonthlyPayment    string `json:"average_monthly_payment" yaml:"average_monthly_payment"`
	TotalPayment             string `json:"total_payment" yaml:"total_payment"`
	Overpayment              string `json:"overpayment" yaml:"overpayment"`
	AdditionalPayments       string `json:"additional_payments" yaml:"additional_payments"`
	PayoffMonth              int    `json:"payoff_month" yaml:"payoff_month"`
}

// Report is the presentation view of a calendar, keyed by month number.
type Report struct {
	Variant  string                  `json:"variant" yaml:"variant"`
	Calendar map[string]FormattedRow `json:"calendar" yaml:"calendar"`
	Summary  FormattedSummary        `json:"summary" yaml:"summary"`
}

// NewReport formats every row and the summary of a calendar.
func NewReport(calendar *loans.Calendar) Report {
	rows := make(map[string]FormattedRow, len(calendar.Rows))
	for _, row := range calendar.Rows {
		rows[strconv.Itoa(row.Month)] = FormattedRow{
			MonthlyPayment:     format.Integer(row.MonthlyPayment),
			InterestComponent:  format.Integer(row.InterestComponent),
			PrincipalComponent: format.Integer(row.PrincipalComponent),
			CumulativeInterest: format.Integer(row.CumulativeInterest),
			ResidualPrincipal:  format.Integer(row.ResidualPrincipal),
		}
	}

	s := calendar.Summary
	return Report{
		Variant:  calendar.Variant.String(),
		Calendar: rows,
		Summary: FormattedSummary{
			AverageInterestComponent: format.Integer(s.AverageInterestComponent),
			AverageMonthlyPayment:    format.Integer(s.AverageMonthlyPayment),
			TotalPayment:             format.Integer(s.TotalPayment),
			Overpayment:              format.Integer(s.Overpayment),
			AdditionalPayments:       format.Integer(s.AdditionalPayments),
			PayoffMonth:              s.PayoffMonth,
		},
	}
}

// Write renders the calendar to w in the named output format.
func Write(w io.Writer, outputFormat string, calendar *loans.Calendar) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, calendar)
	case constants.OutputFormatCSV:
		return CsvFormat(w, calendar)
	case constants.OutputFormatJSON:
		return JSONFormat(w, calendar)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, calendar)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, calendar *loans.Calendar) error {
	t := calendar.Terms
	ew := &errWriter{w: w}

	ew.printf("--- Calendar (%s) ---\n", calendar.Variant)
	ew.printf("Principal %s at %s over %d months\n",
		format.Currency(t.Principal), format.Percent(t.AnnualRatePercent), t.PeriodMonths)
	if ep := t.EarlyPayment; ep != nil {
		ew.printf("Early payment %s every %d months from month %d\n",
			format.Currency(ep.Amount), ep.IntervalMonths, ep.FirstMonth)
	}
	ew.printf("\n")
	ew.printf("%5s | %12s | %12s | %12s | %14s | %14s\n",
		"Month", "Payment", "Interest", "Principal", "Cum. interest", "Residual")
	ew.printf("%5s | %12s | %12s | %12s | %14s | %14s\n",
		"_____", "_______", "________", "_________", "_____________", "________")
	for _, row := range calendar.Rows {
		ew.printf("%5d | %12s | %12s | %12s | %14s | %14s\n",
			row.Month,
			format.Integer(row.MonthlyPayment),
			format.Integer(row.InterestComponent),
			format.Integer(row.PrincipalComponent),
			format.Integer(row.CumulativeInterest),
			format.Integer(row.ResidualPrincipal),
		)
	}

	s := calendar.Summary
	ew.printf("\n")
	ew.printf("Average interest:        %s\n", format.Currency(s.AverageInterestComponent))
	ew.printf("Average monthly payment: %s\n", format.Currency(s.AverageMonthlyPayment))
	if s.AdditionalPayments > 0 {
		ew.printf("Early payments:          %s\n", format.Currency(s.AdditionalPayments))
	}
	ew.printf("Total payment:           %s\n", format.Currency(s.TotalPayment))
	ew.printf("Overpayment:             %s\n", format.Currency(s.Overpayment))
	ew.printf("Paid off in month:       %d\n", s.PayoffMonth)
	return ew.err
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, calendar *loans.Calendar) error {
	ew := &errWriter{w: w}
	ew.printf(`"month","monthly_payment","interest_component","principal_component","cumulative_interest","residual_principal"`)
	ew.printf("\n")
	for _, row := range calendar.Rows {
		ew.printf(`"%d","%.2f","%.2f","%.2f","%.2f","%.2f"`,
			row.Month,
			row.MonthlyPayment,
			row.InterestComponent,
			row.PrincipalComponent,
			row.CumulativeInterest,
			row.ResidualPrincipal,
		)
		ew.printf("\n")
	}
	return ew.err
}

// CsvString returns the CSV rendering of a calendar.
func CsvString(calendar *loans.Calendar) string {
	var sb strings.Builder
	_ = CsvFormat(&sb, calendar)
	return sb.String()
}

// JSONFormat outputs the numeric calendar as indented JSON.
func JSONFormat(w io.Writer, calendar *loans.Calendar) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(calendar); err != nil {
		return fmt.Errorf("failed to encode calendar as JSON: %w", err)
	}
	return nil
}

// YAMLFormat outputs the numeric calendar as YAML.
func YAMLFormat(w io.Writer, calendar *loans.Calendar) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(calendar); err != nil {
		return fmt.Errorf("failed to encode calendar as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode calendar as YAML: %w", err)
	}
	return nil
}

// errWriter keeps the first write error so table output can be written
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(layout string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, layout, args...)
}
