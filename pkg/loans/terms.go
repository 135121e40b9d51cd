// Package loans computes month-by-month amortization calendars for fixed-rate
// annuity loans, optionally with periodic early principal payments.
package loans

// Terms holds one loan's input parameters together with the values derived
// from them while a calendar is built. Price and InitialPayment are given in
// millions and are scaled to currency units during normalization.
type Terms struct {
	Price             float64       `json:"price" yaml:"price" validate:"gt=0"`
	InitialPayment    float64       `json:"initial_payment" yaml:"initial_payment" validate:"gte=0"`
	PeriodYears       float64       `json:"period" yaml:"period" validate:"gt=0"`
	AnnualRatePercent float64       `json:"loan_rate" yaml:"loan_rate" validate:"gte=0"`
	EarlyPayment      *EarlyPayment `json:"early_payment,omitempty" yaml:"early_payment,omitempty" validate:"omitempty"`

	PeriodMonths        int     `json:"period_months" yaml:"period_months"`
	MonthlyRate         float64 `json:"monthly_rate" yaml:"monthly_rate"`
	Principal           float64 `json:"principal" yaml:"principal"`
	AnnuityFactor       float64 `json:"annuity_factor" yaml:"annuity_factor"`
	FactorMonths        int     `json:"factor_months" yaml:"factor_months"`
	MonthlyPayment      float64 `json:"monthly_payment" yaml:"monthly_payment"`
	StartMonthlyPayment float64 `json:"start_monthly_payment" yaml:"start_monthly_payment"`
	ResidualPrincipal   float64 `json:"residual_principal" yaml:"residual_principal"`
	InterestComponent   float64 `json:"interest_component" yaml:"interest_component"`
	PrincipalComponent  float64 `json:"principal_component" yaml:"principal_component"`
	AdditionalPayments  float64 `json:"additional_payments" yaml:"additional_payments"`
}

// EarlyPayment describes a fixed extra principal payment applied every
// IntervalMonths months, starting no earlier than FirstMonth (1-indexed).
type EarlyPayment struct {
	FirstMonth     int     `json:"first_month" yaml:"first_month" validate:"gte=1"`
	IntervalMonths int     `json:"frequency_months" yaml:"frequency_months" validate:"gte=1"`
	Amount         float64 `json:"early_pay_amount" yaml:"early_pay_amount" validate:"gt=0"`
}

// Due reports whether an early payment falls on the given month.
func (e EarlyPayment) Due(month int) bool {
	return month >= e.FirstMonth && month%e.IntervalMonths == 0
}

// Variant selects the recurrence used to build a calendar.
type Variant int

const (
	// Standard keeps the annuity payment constant for the whole term.
	Standard Variant = iota
	// WithEarlyPayments recomputes the payment monthly and re-derives the
	// annuity factor whenever an early payment is applied.
	WithEarlyPayments
)

func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case WithEarlyPayments:
		return "early_payments"
	default:
		return "unknown"
	}
}

// MarshalText lets the variant appear by name in JSON and YAML output.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Variant reports which recurrence applies to these terms.
func (t Terms) Variant() Variant {
	if t.EarlyPayment != nil {
		return WithEarlyPayments
	}
	return Standard
}
