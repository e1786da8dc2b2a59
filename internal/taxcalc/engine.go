package taxcalc

import (
	"log/slog"
	"math"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

// Engine computes progressive federal income tax from a bracket table.
type Engine struct {
	table  *Table
	logger *slog.Logger
}

func NewEngine(table *Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: table, logger: logger}
}

// NewDefaultEngine builds an engine over the embedded DefaultYear table.
func NewDefaultEngine(logger *slog.Logger) (*Engine, error) {
	t, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	return NewEngine(t, logger), nil
}

// BracketSlice is the part of taxable income taxed inside one bracket.
type BracketSlice struct {
	Bracket Bracket `json:"bracket"`
	Amount  float64 `json:"amount"`
	Tax     float64 `json:"tax"`
}

// Result is the outcome of one bracket calculation.
type Result struct {
	Income          float64                `json:"income"`
	RequestedStatus constants.FilingStatus `json:"requestedStatus"`
	// Status is the status whose table was used. FellBack is set when the
	// requested status had no table and the fallback status was applied.
	Status            constants.FilingStatus `json:"status"`
	FellBack          bool                   `json:"fellBack"`
	StandardDeduction float64                `json:"standardDeduction"`
	TaxableIncome     float64                `json:"taxableIncome"`
	TaxAmount         float64                `json:"taxAmount"`
	EffectiveRate     float64                `json:"effectiveRate"`
	Bracket           Bracket                `json:"bracket"`
	Slices            []BracketSlice         `json:"slices"`
}

func (e *Engine) Year() int {
	return e.table.Year
}

// Resolve returns the status whose table applies to s. The bool is true
// when s is unknown and the table's fallback status was substituted.
func (e *Engine) Resolve(s constants.FilingStatus) (constants.FilingStatus, StatusTable, bool) {
	if st, ok := e.table.Statuses[s]; ok {
		return s, st, false
	}
	e.logger.Warn("taxcalc.status.fallback",
		"requested", string(s),
		"applied", string(e.table.Fallback),
		"year", e.table.Year,
	)
	return e.table.Fallback, e.table.Statuses[e.table.Fallback], true
}

// StandardDeduction returns the standard deduction for s after fallback.
func (e *Engine) StandardDeduction(s constants.FilingStatus) float64 {
	_, st, _ := e.Resolve(s)
	return st.StandardDeduction
}

// Calculate subtracts the standard deduction from gross income and taxes the
// remainder. Negative income is treated as zero taxable income.
func (e *Engine) Calculate(income float64, s constants.FilingStatus) Result {
	status, st, fellBack := e.Resolve(s)
	taxable := clampZero(income - st.StandardDeduction)
	r := walk(taxable, st.Brackets)
	r.Income = income
	r.RequestedStatus = s
	r.Status = status
	r.FellBack = fellBack
	r.StandardDeduction = st.StandardDeduction
	return r
}

// TaxOnTaxable runs the bracket walk on an amount that has already had its
// deduction applied.
func (e *Engine) TaxOnTaxable(taxable float64, s constants.FilingStatus) Result {
	status, st, fellBack := e.Resolve(s)
	r := walk(clampZero(taxable), st.Brackets)
	r.Income = taxable
	r.RequestedStatus = s
	r.Status = status
	r.FellBack = fellBack
	r.StandardDeduction = st.StandardDeduction
	return r
}

// StatusInfo is the reference data shown for one filing status.
type StatusInfo struct {
	Status            constants.FilingStatus `json:"status"`
	Description       string                 `json:"description"`
	StandardDeduction float64                `json:"standardDeduction"`
	Brackets          []Bracket              `json:"brackets"`
}

// Statuses lists reference data for every known filing status that has a table.
func (e *Engine) Statuses() []StatusInfo {
	out := make([]StatusInfo, 0, len(e.table.Statuses))
	for _, s := range constants.FilingStatuses() {
		st, ok := e.table.Statuses[s]
		if !ok {
			continue
		}
		out = append(out, StatusInfo{
			Status:            s,
			Description:       st.Description,
			StandardDeduction: st.StandardDeduction,
			Brackets:          st.Brackets,
		})
	}
	return out
}

func walk(taxable float64, brackets []Bracket) Result {
	r := Result{TaxableIncome: taxable, Bracket: brackets[0]}
	for _, b := range brackets {
		if taxable <= b.MinIncome {
			break
		}
		upper := taxable
		if b.MaxIncome != nil && *b.MaxIncome < upper {
			upper = *b.MaxIncome
		}
		amount := upper - b.MinIncome
		tax := amount * b.Rate
		r.TaxAmount += tax
		r.Slices = append(r.Slices, BracketSlice{Bracket: b, Amount: amount, Tax: tax})
		r.Bracket = b
	}
	if taxable > 0 {
		r.EffectiveRate = r.TaxAmount / taxable * 100
	}
	return r
}

func clampZero(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
