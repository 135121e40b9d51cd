// Package format renders currency amounts for presentation.
package format

import (
	"fmt"
	"strings"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Integer truncates an amount to whole currency units and separates
// thousands with spaces (e.g., "-1 234 567").
func Integer(amount float64) string {
	if !mathutil.IsFinite(amount) {
		return fmt.Sprint(amount)
	}
	units := decimal.NewFromFloat(amount).Truncate(0).IntPart()
	p := message.NewPrinter(language.English)
	return strings.ReplaceAll(p.Sprintf("%d", units), ",", " ")
}

// Currency returns Integer followed by the currency label (e.g., "98 166 RUB").
func Currency(amount float64) string {
	return Integer(amount) + " " + constants.ChartCurrencyLabel
}

// Percent renders a rate with up to two decimals and a percent sign (e.g., "7.5%").
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).Round(2).String() + "%"
}
