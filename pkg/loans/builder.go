package loans

import (
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"github.com/iwvelando/mortgage-calendar/pkg/mathutil"
	"go.uber.org/zap"
)

// Calendar is a finished amortization schedule. It is read-only once built.
type Calendar struct {
	Variant Variant `json:"variant" yaml:"variant"`
	Terms   Terms   `json:"terms" yaml:"terms"`
	Rows    []Row   `json:"rows" yaml:"rows"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// ByMonth indexes the rows by month number.
func (c *Calendar) ByMonth() map[int]Row {
	byMonth := make(map[int]Row, len(c.Rows))
	for _, row := range c.Rows {
		byMonth[row.Month] = row
	}
	return byMonth
}

// state is the accumulator threaded through the build stages.
type state struct {
	terms   Terms
	engine  engine
	rows    []Row
	summary Summary
}

type stage struct {
	name string
	run  func(state) (state, error)
}

// stages is the fixed build order; the first failing stage aborts the build
// before any rows are returned.
var stages = []stage{
	{"normalize", normalize},
	{"common-rate", commonRate},
	{"monthly-payment", monthlyPayment},
	{"seed-residual", seedResidual},
	{"first-month", firstMonth},
	{"recurrence", recurrence},
	{"summarize", summarize},
}

// Stages returns the names of the build stages in execution order.
func Stages() []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.name
	}
	return names
}

// Builder turns loan terms into a Calendar.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a builder. A nil logger disables logging.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build is shorthand for NewBuilder(nil).Build(terms).
func Build(terms Terms) (*Calendar, error) {
	return NewBuilder(nil).Build(terms)
}

// BuildFromParams parses a raw parameter set and builds its calendar.
func (b *Builder) BuildFromParams(params map[string]interface{}) (*Calendar, error) {
	terms, err := ParseParams(params)
	if err != nil {
		return nil, err
	}
	return b.Build(terms)
}

// Build runs every stage over terms. The variant follows from whether terms
// carries an early payment. terms is taken by value and left untouched.
func (b *Builder) Build(terms Terms) (*Calendar, error) {
	variant := terms.Variant()
	s := state{
		terms:  terms,
		engine: newEngine(b.logger, variant),
	}

	for _, st := range stages {
		var err error
		s, err = st.run(s)
		if err != nil {
			b.logger.Debug("calendar build failed",
				zap.String("op", "loans.Build"),
				zap.String("stage", st.name),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}

	b.logger.Debug("calendar built",
		zap.String("op", "loans.Build"),
		zap.Stringer("variant", variant),
		zap.Int("rows", len(s.rows)),
		zap.Float64("principal", s.terms.Principal),
		zap.Float64("monthlyPayment", s.terms.StartMonthlyPayment),
	)

	return &Calendar{
		Variant: variant,
		Terms:   s.terms,
		Rows:    s.rows,
		Summary: s.summary,
	}, nil
}

// normalize validates the inputs and derives the term, rate and principal.
func normalize(s state) (state, error) {
	if err := s.terms.Validate(); err != nil {
		return s, err
	}

	t := s.terms
	months := math.Trunc(t.PeriodYears * constants.MonthsPerYear)
	if months > constants.MaxPeriodMonths {
		return s, domainErrorf("loans.normalize", "period of %g years exceeds %d months", t.PeriodYears, constants.MaxPeriodMonths)
	}

	t.Price *= constants.MillionMultiplier
	t.InitialPayment *= constants.MillionMultiplier
	t.PeriodMonths = int(months)
	t.MonthlyRate = MonthlyRate(t.AnnualRatePercent)
	t.Principal = math.Trunc(t.Price - t.InitialPayment)

	if t.PeriodMonths < 1 {
		return s, domainErrorf("loans.normalize", "period of %g years is shorter than one month", t.PeriodYears)
	}
	if !mathutil.IsFinite(t.Principal) {
		return s, domainErrorf("loans.normalize", "principal of price %g less initial payment %g is out of range", s.terms.Price, s.terms.InitialPayment)
	}
	if t.Principal <= 0 {
		return s, domainErrorf("loans.normalize", "initial payment %.0f covers the price %.0f", t.InitialPayment, t.Price)
	}

	s.terms = t
	return s, nil
}

func commonRate(s state) (state, error) {
	factor, err := AnnuityFactor(s.terms.MonthlyRate, s.terms.PeriodMonths)
	if err != nil {
		return s, err
	}
	s.terms.AnnuityFactor = factor
	s.terms.FactorMonths = s.terms.PeriodMonths
	return s, nil
}

func monthlyPayment(s state) (state, error) {
	t := s.terms
	payment, err := LevelPayment(t.Principal, t.MonthlyRate, t.AnnuityFactor, t.FactorMonths)
	if err != nil {
		return s, err
	}
	s.terms.MonthlyPayment = payment
	s.terms.StartMonthlyPayment = payment
	return s, nil
}

func seedResidual(s state) (state, error) {
	s.terms.ResidualPrincipal = s.terms.Principal
	s.rows = make([]Row, 0, s.terms.PeriodMonths)
	return s, nil
}

// firstMonth splits the first payment against the seed balance. Early
// payments are never applied in month 1.
func firstMonth(s state) (state, error) {
	s.terms = split(s.terms)
	s.rows = append(s.rows, newRow(s.terms, 1, s.terms.InterestComponent))
	return s, nil
}

func recurrence(s state) (state, error) {
	t, rows, err := s.engine.run(s.terms, s.rows)
	if err != nil {
		return s, err
	}
	s.terms = t
	s.rows = rows
	return s, nil
}

func summarize(s state) (state, error) {
	s.summary = Summarize(s.rows, s.terms)
	return s, nil
}
