package taxcalc

import (
	"embed"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

// DefaultYear is the tax year the embedded tables cover by default.
const DefaultYear = 2024

//go:embed tables/*.yaml
var tableFS embed.FS

// ErrInvalidTable is returned when a bracket table breaks the partition rules.
var ErrInvalidTable = errors.New("invalid tax table")

// Bracket is one marginal-rate band. MaxIncome is nil for the top bracket.
type Bracket struct {
	MinIncome float64  `yaml:"min" json:"minIncome"`
	MaxIncome *float64 `yaml:"max" json:"maxIncome"`
	Rate      float64  `yaml:"rate" json:"rate"`
	Label     string   `yaml:"label" json:"label"`
}

// Contains reports whether amount falls in [MinIncome, MaxIncome).
func (b Bracket) Contains(amount float64) bool {
	if amount < b.MinIncome {
		return false
	}
	return b.MaxIncome == nil || amount < *b.MaxIncome
}

// StatusTable is the reference data for one filing status.
type StatusTable struct {
	Description       string    `yaml:"description" json:"description"`
	StandardDeduction float64   `yaml:"standard_deduction" json:"standardDeduction"`
	Brackets          []Bracket `yaml:"brackets" json:"brackets"`
}

// Table is a full year of brackets and deductions.
type Table struct {
	Year     int
	Fallback constants.FilingStatus
	Statuses map[constants.FilingStatus]StatusTable
}

type tableFile struct {
	Year     int                    `yaml:"year"`
	Fallback string                 `yaml:"fallback"`
	Statuses map[string]StatusTable `yaml:"statuses"`
}

// ParseTable decodes and validates a YAML bracket table.
func ParseTable(data []byte) (*Table, error) {
	var raw tableFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tax table: %w", err)
	}
	if raw.Year <= 0 {
		return nil, fmt.Errorf("%w: year is required", ErrInvalidTable)
	}

	t := &Table{
		Year:     raw.Year,
		Fallback: constants.FilingStatus(raw.Fallback),
		Statuses: make(map[constants.FilingStatus]StatusTable, len(raw.Statuses)),
	}
	for name, st := range raw.Statuses {
		status := constants.FilingStatus(name)
		if err := validateStatusTable(status, &st); err != nil {
			return nil, err
		}
		t.Statuses[status] = st
	}
	if _, ok := t.Statuses[t.Fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback status %q has no table", ErrInvalidTable, t.Fallback)
	}
	return t, nil
}

// validateStatusTable enforces that brackets partition [0, inf) in ascending
// order and fills in missing labels.
func validateStatusTable(status constants.FilingStatus, st *StatusTable) error {
	if st.StandardDeduction < 0 {
		return fmt.Errorf("%w: %s: negative standard deduction", ErrInvalidTable, status)
	}
	n := len(st.Brackets)
	if n == 0 {
		return fmt.Errorf("%w: %s: no brackets", ErrInvalidTable, status)
	}
	if st.Brackets[0].MinIncome != 0 {
		return fmt.Errorf("%w: %s: first bracket must start at 0", ErrInvalidTable, status)
	}
	for i := range st.Brackets {
		b := &st.Brackets[i]
		if b.Rate < 0 || b.Rate > 1 || math.IsNaN(b.Rate) {
			return fmt.Errorf("%w: %s: bracket %d rate %v out of range", ErrInvalidTable, status, i, b.Rate)
		}
		if i == n-1 {
			if b.MaxIncome != nil {
				return fmt.Errorf("%w: %s: top bracket must be unbounded", ErrInvalidTable, status)
			}
		} else {
			if b.MaxIncome == nil {
				return fmt.Errorf("%w: %s: only the top bracket may be unbounded", ErrInvalidTable, status)
			}
			if *b.MaxIncome <= b.MinIncome {
				return fmt.Errorf("%w: %s: bracket %d is empty", ErrInvalidTable, status, i)
			}
			if next := st.Brackets[i+1].MinIncome; next != *b.MaxIncome {
				return fmt.Errorf("%w: %s: gap or overlap between bracket %d and %d", ErrInvalidTable, status, i, i+1)
			}
		}
		if b.Label == "" {
			b.Label = rateLabel(b.Rate)
		}
	}
	return nil
}

func rateLabel(rate float64) string {
	pct := decimal.NewFromFloat(rate).Mul(decimal.NewFromInt(100))
	return pct.String() + "% bracket"
}

// LoadTable reads the embedded table for a tax year.
func LoadTable(year int) (*Table, error) {
	data, err := tableFS.ReadFile(fmt.Sprintf("tables/%d.yaml", year))
	if err != nil {
		return nil, fmt.Errorf("no tax table for %d: %w", year, err)
	}
	return ParseTable(data)
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return LoadTable(DefaultYear)
})

// DefaultTable returns the shared DefaultYear table. Callers must not modify it.
func DefaultTable() (*Table, error) {
	return loadDefault()
}
