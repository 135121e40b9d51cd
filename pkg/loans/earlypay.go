package loans

import (
	"go.uber.org/zap"
)

// recomputedPayment derives the payment from the current residual principal
// and the current annuity factor. Once an early payment has perturbed the
// balance the original level payment no longer applies.
func recomputedPayment(t Terms) (float64, error) {
	return LevelPayment(t.ResidualPrincipal, t.MonthlyRate, t.AnnuityFactor, t.FactorMonths)
}

// applyEarlyPayment applies the periodic extra payment when one is due in
// month. The extra amount is topped up by however much the monthly payment
// has shrunk since month 1, keeping the borrower's outflow level. When the
// extra amount would clear the balance, the loan is retired instead.
func applyEarlyPayment(logger *zap.Logger, t Terms, month int) (Terms, error) {
	if t.EarlyPayment == nil || !t.EarlyPayment.Due(month) {
		return t, nil
	}

	extra := t.EarlyPayment.Amount + (t.StartMonthlyPayment - t.MonthlyPayment)
	if t.ResidualPrincipal-extra <= 0 {
		logger.Debug("early payment retires the loan",
			zap.String("op", "loans.applyEarlyPayment"),
			zap.Int("month", month),
			zap.Float64("payoff", t.ResidualPrincipal),
		)
		t.AdditionalPayments += t.ResidualPrincipal
		t.ResidualPrincipal = 0
		return t, nil
	}

	t.AdditionalPayments += extra
	t.ResidualPrincipal = clampResidual(t.ResidualPrincipal - extra)

	// Future payments amortize the reduced balance over what is left of the term.
	if remaining := t.PeriodMonths - month; remaining > 0 {
		factor, err := AnnuityFactor(t.MonthlyRate, remaining)
		if err != nil {
			return t, err
		}
		t.AnnuityFactor = factor
		t.FactorMonths = remaining
	}

	logger.Debug("applied early payment",
		zap.String("op", "loans.applyEarlyPayment"),
		zap.Int("month", month),
		zap.Float64("extra", extra),
		zap.Float64("residualPrincipal", t.ResidualPrincipal),
	)
	return t, nil
}
