package loans

import (
	"math"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
)

// MonthlyRate converts a nominal annual rate in percent into the monthly rate
// as a fraction (7.5 -> 0.00625).
func MonthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / constants.MonthsPerYear / constants.PercentageMultiplier
}

// AnnuityFactor returns the compounding multiplier (1 + monthlyRate)^periodMonths.
// A factor that overflows float64 is a DomainError.
func AnnuityFactor(monthlyRate float64, periodMonths int) (float64, error) {
	if periodMonths < 1 {
		return 0, domainErrorf("loans.AnnuityFactor", "period must be at least one month, got %d", periodMonths)
	}
	factor := math.Pow(1+monthlyRate, float64(periodMonths))
	if !mathutil.IsFinite(factor) {
		return 0, domainErrorf("loans.AnnuityFactor", "annuity factor overflows at monthly rate %g over %d months", monthlyRate, periodMonths)
	}
	return factor, nil
}

// AnnuityPayment calculates the level monthly payment that amortizes principal
// at monthlyRate: principal * r * f / (f - 1). A factor of exactly 1 (the
// zero-rate case) is rejected; callers handle it through LevelPayment.
func AnnuityPayment(principal, monthlyRate, annuityFactor float64) (float64, error) {
	if annuityFactor == 1 {
		return 0, domainErrorf("loans.AnnuityPayment", "annuity factor collapses to 1 at monthly rate %g", monthlyRate)
	}
	payment := principal * monthlyRate * annuityFactor / (annuityFactor - 1)
	if !mathutil.IsFinite(payment) {
		return 0, domainErrorf("loans.AnnuityPayment", "payment overflows at monthly rate %g", monthlyRate)
	}
	return payment, nil
}

// LevelPayment is AnnuityPayment with the zero-rate case resolved as an even
// split of principal over factorMonths, the term annuityFactor was derived for.
func LevelPayment(principal, monthlyRate, annuityFactor float64, factorMonths int) (float64, error) {
	if monthlyRate == 0 {
		if factorMonths < 1 {
			return 0, domainErrorf("loans.LevelPayment", "period must be at least one month, got %d", factorMonths)
		}
		return principal / float64(factorMonths), nil
	}
	return AnnuityPayment(principal, monthlyRate, annuityFactor)
}

// InterestComponent is the interest accrued on residualPrincipal in one month.
func InterestComponent(residualPrincipal, monthlyRate float64) float64 {
	return residualPrincipal * monthlyRate
}

// PrincipalComponent is the part of a monthly payment that reduces principal.
func PrincipalComponent(monthlyPayment, interestComponent float64) float64 {
	return monthlyPayment - interestComponent
}
