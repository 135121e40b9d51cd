// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
)

// ScenarioA returns price=18, initial_payment=2.5, period=30, loan_rate=7.6.
func ScenarioA() map[string]interface{} {
	return map[string]interface{}{
		"price":           18,
		"initial_payment": 2.5,
		"period":          30,
		"loan_rate":       7.6,
	}
}

// ScenarioB returns price=20, initial_payment=2, period=30, loan_rate=7.5
// without early payments.
func ScenarioB() map[string]interface{} {
	return map[string]interface{}{
		"price":           20,
		"initial_payment": 2,
		"period":          30,
		"loan_rate":       7.5,
	}
}

// ScenarioC returns ScenarioB with a monthly early payment of 50000 starting
// in month 24.
func ScenarioC() map[string]interface{} {
	params := ScenarioB()
	params["first_month"] = 24
	params["frequency_months"] = 1
	params["early_pay_amount"] = 50000
	return params
}

// FindRow finds the row for a month.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(rows []loans.Row, month int) *loans.Row {
	for i := range rows {
		if rows[i].Month == month {
			return &rows[i]
		}
	}
	return nil
}

// SumPrincipal adds up the principal components of all rows.
func SumPrincipal(rows []loans.Row) float64 {
	total := 0.0
	for _, row := range rows {
		total += row.PrincipalComponent
	}
	return total
}

// ResidualViolation returns the first month whose residual principal is
// negative or larger than the month before it, or 0 when there is none.
func ResidualViolation(rows []loans.Row) int {
	for i, row := range rows {
		if row.ResidualPrincipal < 0 {
			return row.Month
		}
		if i > 0 && row.ResidualPrincipal > rows[i-1].ResidualPrincipal {
			return row.Month
		}
	}
	return 0
}

// ContiguousMonths reports whether rows are numbered 1..len(rows) in order.
func ContiguousMonths(rows []loans.Row) bool {
	for i, row := range rows {
		if row.Month != i+1 {
			return false
		}
	}
	return true
}
