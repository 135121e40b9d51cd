package loans

import (
	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
)

// Summary aggregates a finished calendar.
type Summary struct {
	AverageInterestComponent float64 `json:"average_interest_component" yaml:"average_interest_component"`
	AverageMonthlyPayment    float64 `json:"average_monthly_payment" yaml:"average_monthly_payment"`
	TotalPayment             float64 `json:"total_payment" yaml:"total_payment"`
	Overpayment              float64 `json:"overpayment" yaml:"overpayment"`
	AdditionalPayments       float64 `json:"additional_payments" yaml:"additional_payments"`
	PayoffMonth              int     `json:"payoff_month" yaml:"payoff_month"`
}

// TruncatedSummary is a Summary in whole currency units, for presentation.
type TruncatedSummary struct {
	AverageInterestComponent int64 `json:"average_interest_component" yaml:"average_interest_component"`
	AverageMonthlyPayment    int64 `json:"average_monthly_payment" yaml:"average_monthly_payment"`
	TotalPayment             int64 `json:"total_payment" yaml:"total_payment"`
	Overpayment              int64 `json:"overpayment" yaml:"overpayment"`
	AdditionalPayments       int64 `json:"additional_payments" yaml:"additional_payments"`
	PayoffMonth              int   `json:"payoff_month" yaml:"payoff_month"`
}

// Summarize computes averages and totals over rows. Averages skip zero
// values; the total includes any early payments recorded on t.
func Summarize(rows []Row, t Terms) Summary {
	interest := make([]float64, 0, len(rows))
	payments := make([]float64, 0, len(rows))
	total := 0.0
	for _, row := range rows {
		interest = append(interest, row.InterestComponent)
		payments = append(payments, row.MonthlyPayment)
		total += row.MonthlyPayment
	}
	total += t.AdditionalPayments

	payoff := 0
	if len(rows) > 0 {
		payoff = rows[len(rows)-1].Month
	}

	return Summary{
		AverageInterestComponent: mathutil.MeanNonZero(interest),
		AverageMonthlyPayment:    mathutil.MeanNonZero(payments),
		TotalPayment:             total,
		Overpayment:              total - t.Principal,
		AdditionalPayments:       t.AdditionalPayments,
		PayoffMonth:              payoff,
	}
}

// Truncated drops the fractional part of every amount.
func (s Summary) Truncated() TruncatedSummary {
	return TruncatedSummary{
		AverageInterestComponent: mathutil.Truncate(s.AverageInterestComponent),
		AverageMonthlyPayment:    mathutil.Truncate(s.AverageMonthlyPayment),
		TotalPayment:             mathutil.Truncate(s.TotalPayment),
		Overpayment:              mathutil.Truncate(s.Overpayment),
		AdditionalPayments:       mathutil.Truncate(s.AdditionalPayments),
		PayoffMonth:              s.PayoffMonth,
	}
}
