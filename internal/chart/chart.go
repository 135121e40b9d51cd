// Package chart renders a calendar as a PNG line chart of the interest and
// principal components of every payment.
package chart

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/format"
	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DataURIPrefix starts every value returned by DataURI.
const DataURIPrefix = "data:image/png;base64,"

// ErrEmptyCalendar is returned for a calendar without rows.
var ErrEmptyCalendar = errors.New("calendar has no rows to plot")

// Options sizes the rendered image. Zero values fall back to the defaults.
type Options struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = constants.DefaultChartWidth
	}
	if o.Height <= 0 {
		o.Height = constants.DefaultChartHeight
	}
	return o
}

// Title summarizes the loan and its totals on one line.
func Title(calendar *loans.Calendar) string {
	t := calendar.Terms
	s := calendar.Summary
	return fmt.Sprintf("%d months | price %s | initial %s | principal %s | rate %s | total %s | average %s | overpayment %s",
		t.PeriodMonths,
		format.Integer(t.Price),
		format.Integer(t.InitialPayment),
		format.Integer(t.Principal),
		format.Percent(t.AnnualRatePercent),
		format.Integer(s.TotalPayment),
		format.Integer(s.AverageMonthlyPayment),
		format.Integer(s.Overpayment),
	)
}

// Render draws the calendar and returns the PNG bytes.
func Render(calendar *loans.Calendar, opts Options) ([]byte, error) {
	if calendar == nil || len(calendar.Rows) == 0 {
		return nil, ErrEmptyCalendar
	}
	opts = opts.withDefaults()

	n := len(calendar.Rows)
	months := make([]float64, n)
	interest := make([]float64, n)
	principal := make([]float64, n)
	for i, row := range calendar.Rows {
		months[i] = float64(row.Month)
		interest[i] = row.InterestComponent
		principal[i] = row.PrincipalComponent
	}

	first, last := months[0], math.Max(months[n-1], months[0]+1)
	span := []float64{first, last}
	avgInterest := calendar.Summary.AverageInterestComponent
	avgPayment := calendar.Summary.AverageMonthlyPayment

	dashed := []float64{5.0, 5.0}
	graph := gochart.Chart{
		Title:  Title(calendar),
		Width:  opts.Width,
		Height: opts.Height,
		TitleStyle: gochart.Style{
			FontSize: 9,
		},
		XAxis: gochart.XAxis{
			Name:  "Month",
			Range: &gochart.ContinuousRange{Min: first, Max: last},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: gochart.YAxis{
			Name: constants.ChartCurrencyLabel,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return format.Integer(f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Interest",
				XValues: months,
				YValues: interest,
				Style:   gochart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 2},
			},
			gochart.ContinuousSeries{
				Name:    "Principal",
				XValues: months,
				YValues: principal,
				Style:   gochart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2},
			},
			gochart.ContinuousSeries{
				Name:    "Average interest " + format.Integer(avgInterest),
				XValues: span,
				YValues: []float64{avgInterest, avgInterest},
				Style:   gochart.Style{StrokeColor: drawing.ColorRed, StrokeDashArray: dashed},
			},
			gochart.ContinuousSeries{
				Name:    "Average payment " + format.Integer(avgPayment),
				XValues: span,
				YValues: []float64{avgPayment, avgPayment},
				Style:   gochart.Style{StrokeColor: drawing.ColorBlack, StrokeDashArray: dashed},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps PNG bytes in a base64 data URI for embedding in HTML.
func DataURI(png []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// RenderDataURI renders the calendar and returns it as a data URI.
func RenderDataURI(calendar *loans.Calendar, opts Options) (string, error) {
	png, err := Render(calendar, opts)
	if err != nil {
		return "", err
	}
	return DataURI(png), nil
}
