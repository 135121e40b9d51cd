package loans

import (
	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
	"go.uber.org/zap"
)

// Row holds the values for one month of a calendar.
type Row struct {
	Month              int     `json:"month" yaml:"month"`
	MonthlyPayment     float64 `json:"monthly_payment" yaml:"monthly_payment"`
	InterestComponent  float64 `json:"interest_component" yaml:"interest_component"`
	PrincipalComponent float64 `json:"principal_component" yaml:"principal_component"`
	CumulativeInterest float64 `json:"cumulative_interest" yaml:"cumulative_interest"`
	ResidualPrincipal  float64 `json:"residual_principal" yaml:"residual_principal"`
}

// paymentFunc yields the monthly payment due for the month being stepped.
type paymentFunc func(t Terms) (float64, error)

// eventHook runs once per month after the regular split has been applied and
// may reduce the residual principal further.
type eventHook func(logger *zap.Logger, t Terms, month int) (Terms, error)

// engine drives the monthly recurrence shared by every Variant. The variant
// only decides how the payment is obtained and what happens after the split.
type engine struct {
	logger  *zap.Logger
	payment paymentFunc
	event   eventHook
}

func newEngine(logger *zap.Logger, variant Variant) engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch variant {
	case WithEarlyPayments:
		return engine{logger: logger, payment: recomputedPayment, event: applyEarlyPayment}
	default:
		return engine{logger: logger, payment: constantPayment}
	}
}

// constantPayment keeps the payment derived once for the whole term.
func constantPayment(t Terms) (float64, error) {
	return t.MonthlyPayment, nil
}

// split applies one month of interest and principal to t and returns the
// updated terms.
func split(t Terms) Terms {
	t.InterestComponent = InterestComponent(t.ResidualPrincipal, t.MonthlyRate)
	t.PrincipalComponent = PrincipalComponent(t.MonthlyPayment, t.InterestComponent)
	t.ResidualPrincipal = clampResidual(t.ResidualPrincipal - t.PrincipalComponent)
	return t
}

// step advances the loan by one month.
func (e engine) step(t Terms, month int, cumulativeInterest float64) (Terms, Row, error) {
	payment, err := e.payment(t)
	if err != nil {
		return t, Row{}, err
	}
	t.MonthlyPayment = payment
	t = split(t)

	if e.event != nil {
		t, err = e.event(e.logger, t, month)
		if err != nil {
			return t, Row{}, err
		}
	}

	return t, newRow(t, month, cumulativeInterest+t.InterestComponent), nil
}

// run continues the calendar from the month after the last row up to the end
// of the term. Variants with an event hook stop once the loan is retired.
func (e engine) run(t Terms, rows []Row) (Terms, []Row, error) {
	cumulativeInterest := 0.0
	if len(rows) > 0 {
		cumulativeInterest = rows[len(rows)-1].CumulativeInterest
	}

	for month := len(rows) + 1; month <= t.PeriodMonths; month++ {
		if e.event != nil && t.ResidualPrincipal <= 0 {
			e.logger.Debug("loan retired before the end of the term",
				zap.String("op", "loans.run"),
				zap.Int("month", month-1),
				zap.Int("periodMonths", t.PeriodMonths),
			)
			break
		}

		var row Row
		var err error
		t, row, err = e.step(t, month, cumulativeInterest)
		if err != nil {
			return t, rows, err
		}
		cumulativeInterest = row.CumulativeInterest
		rows = append(rows, row)
	}

	return t, rows, nil
}

func newRow(t Terms, month int, cumulativeInterest float64) Row {
	return Row{
		Month:              month,
		MonthlyPayment:     t.MonthlyPayment,
		InterestComponent:  t.InterestComponent,
		PrincipalComponent: t.PrincipalComponent,
		CumulativeInterest: cumulativeInterest,
		ResidualPrincipal:  t.ResidualPrincipal,
	}
}

// clampResidual never lets the balance go negative and snaps sub-cent
// leftovers to zero; we will get machine error in the final month otherwise.
func clampResidual(residual float64) float64 {
	if mathutil.Round(residual) <= 0 {
		return 0
	}
	return residual
}
