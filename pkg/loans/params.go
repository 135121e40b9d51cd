package loans

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
	"github.com/spf13/cast"
)

// Input keys accepted by ParseParams.
const (
	ParamPrice              = "price"
	ParamInitialPayment     = "initial_payment"
	ParamPeriod             = "period"
	ParamLoanRate           = "loan_rate"
	ParamFirstMonth         = "first_month"
	ParamFrequencyMonths    = "frequency_months"
	ParamFrequency          = "frequency"
	ParamEarlyPayAmount     = "early_pay_amount"
	ParamEarlyPaymentAmount = "early_payment_amount"
)

// RequiredParams lists the keys every parameter set must carry.
var RequiredParams = []string{ParamPrice, ParamInitialPayment, ParamPeriod, ParamLoanRate}

// earlyPaymentParams lists the early payment keys with their accepted aliases;
// the first alias present wins.
var earlyPaymentParams = [][]string{
	{ParamFirstMonth},
	{ParamFrequencyMonths, ParamFrequency},
	{ParamEarlyPayAmount, ParamEarlyPaymentAmount},
}

// ParseParams converts a loosely typed parameter set, as decoded from JSON,
// YAML, a query string or a form, into Terms. Values may be numbers or
// numeric strings. Early payment keys are optional, but when any of them is
// present all three must be.
func ParseParams(params map[string]interface{}) (Terms, error) {
	var terms Terms
	targets := []*float64{&terms.Price, &terms.InitialPayment, &terms.PeriodYears, &terms.AnnualRatePercent}
	for i, key := range RequiredParams {
		raw, ok := params[key]
		if !ok {
			return Terms{}, &MissingFieldError{Field: key}
		}
		value, err := toFloat(key, raw)
		if err != nil {
			return Terms{}, err
		}
		*targets[i] = value
	}

	early, err := parseEarlyPayment(params)
	if err != nil {
		return Terms{}, err
	}
	terms.EarlyPayment = early
	return terms, nil
}

func parseEarlyPayment(params map[string]interface{}) (*EarlyPayment, error) {
	values := make([]float64, len(earlyPaymentParams))
	present := 0
	missing := ""
	for i, aliases := range earlyPaymentParams {
		key, raw, ok := lookup(params, aliases...)
		if !ok {
			if missing == "" {
				missing = aliases[0]
			}
			continue
		}
		value, err := toFloat(key, raw)
		if err != nil {
			return nil, err
		}
		values[i] = value
		present++
	}

	if present == 0 {
		return nil, nil
	}
	if missing != "" {
		return nil, &MissingFieldError{Field: missing}
	}
	return &EarlyPayment{
		FirstMonth:     int(values[0]),
		IntervalMonths: int(values[1]),
		Amount:         values[2],
	}, nil
}

func lookup(params map[string]interface{}, keys ...string) (string, interface{}, bool) {
	for _, key := range keys {
		if raw, ok := params[key]; ok {
			return key, raw, true
		}
	}
	return "", nil, false
}

func toFloat(field string, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case nil, bool:
		return 0, &InvalidTypeError{Field: field, Value: raw}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, &InvalidTypeError{Field: field, Value: raw, Err: errors.New("empty value")}
		}
		raw = trimmed
	case json.Number:
		raw = v.String()
	}

	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, &InvalidTypeError{Field: field, Value: raw, Err: err}
	}
	if !mathutil.IsFinite(value) {
		return 0, &InvalidTypeError{Field: field, Value: raw, Err: errors.New("value is not finite")}
	}
	return value, nil
}

// ParamsFromValues flattens query or form values into a parameter set,
// keeping the first value of every key.
func ParamsFromValues(values url.Values) map[string]interface{} {
	params := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		params[key] = vals[0]
	}
	return params
}
