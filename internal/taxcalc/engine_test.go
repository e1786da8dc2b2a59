package taxcalc

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewDefaultEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewDefaultEngine: %v", err)
	}
	return e
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCalculateKnownScenarios(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name        string
		income      float64
		status      constants.FilingStatus
		wantTaxable float64
		wantTax     float64
		wantRate    float64
	}{
		{"single 50k", 50000, constants.Single, 35400, 4016, 0.12},
		{"single zero", 0, constants.Single, 0, 0, 0.10},
		{"married 150k", 150000, constants.Married, 120800, 16682, 0.22},
		{"single 500k", 500000, constants.Single, 485400, 140264.75, 0.35},
		{"head of household 60k", 60000, constants.HeadOfHousehold, 38100, 4241, 0.12},
		{"qualifying widow uses joint schedule", 150000, constants.QualifyingWidow, 120800, 16682, 0.22},
		{"below deduction", 14000, constants.Single, 0, 0, 0.10},
		{"negative income clamps", -5000, constants.Married, 0, 0, 0.10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Calculate(tc.income, tc.status)
			if !approx(got.TaxableIncome, tc.wantTaxable, 1e-9) {
				t.Errorf("taxable = %v, want %v", got.TaxableIncome, tc.wantTaxable)
			}
			if !approx(got.TaxAmount, tc.wantTax, 0.01) {
				t.Errorf("tax = %v, want %v", got.TaxAmount, tc.wantTax)
			}
			if got.Bracket.Rate != tc.wantRate {
				t.Errorf("marginal rate = %v, want %v", got.Bracket.Rate, tc.wantRate)
			}
			if got.FellBack {
				t.Errorf("unexpected fallback for %s", tc.status)
			}
		})
	}
}

func TestCalculateRanges(t *testing.T) {
	e := newTestEngine(t)

	single := e.Calculate(50000, constants.Single)
	if single.TaxAmount < 4006 || single.TaxAmount > 4026 {
		t.Errorf("single 50k tax %v outside 4016±10", single.TaxAmount)
	}
	if single.EffectiveRate <= 10 || single.EffectiveRate >= 15 {
		t.Errorf("single 50k effective rate %v not in (10, 15)", single.EffectiveRate)
	}

	married := e.Calculate(150000, constants.Married)
	if married.TaxAmount <= 15000 || married.TaxAmount >= 20000 {
		t.Errorf("married 150k tax %v not in (15000, 20000)", married.TaxAmount)
	}

	high := e.Calculate(500000, constants.Single)
	if high.EffectiveRate <= 25 || high.EffectiveRate >= 35 {
		t.Errorf("single 500k effective rate %v not in (25, 35)", high.EffectiveRate)
	}
}

func TestCalculateZeroIncomeReportsSentinelBracket(t *testing.T) {
	e := newTestEngine(t)
	got := e.Calculate(0, constants.Single)
	if got.EffectiveRate != 0 {
		t.Errorf("effective rate = %v, want 0", got.EffectiveRate)
	}
	if len(got.Slices) != 0 {
		t.Errorf("expected no touched brackets, got %d", len(got.Slices))
	}
	if got.Bracket.MinIncome != 0 {
		t.Errorf("sentinel bracket should be the lowest, got min %v", got.Bracket.MinIncome)
	}
}

func TestUnknownStatusFallsBackToSingle(t *testing.T) {
	e := newTestEngine(t)

	got := e.Calculate(50000, constants.FilingStatus("married_separately"))
	if !got.FellBack {
		t.Fatal("expected FellBack for unknown status")
	}
	if got.Status != constants.Single {
		t.Errorf("applied status = %s, want single", got.Status)
	}
	if got.RequestedStatus != "married_separately" {
		t.Errorf("requested status = %s", got.RequestedStatus)
	}

	want := e.Calculate(50000, constants.Single)
	if got.TaxableIncome != want.TaxableIncome || got.TaxAmount != want.TaxAmount {
		t.Errorf("fallback result %v/%v differs from single %v/%v",
			got.TaxableIncome, got.TaxAmount, want.TaxableIncome, want.TaxAmount)
	}
	if d := e.StandardDeduction("nope"); d != 14600 {
		t.Errorf("fallback standard deduction = %v, want 14600", d)
	}
}

func TestTaxableIncomeIdentity(t *testing.T) {
	e := newTestEngine(t)
	for _, s := range constants.FilingStatuses() {
		ded := e.StandardDeduction(s)
		for income := 0.0; income <= 1_000_000; income += 7_919 {
			got := e.Calculate(income, s)
			want := math.Max(0, income-ded)
			if !approx(got.TaxableIncome, want, 1e-9) {
				t.Fatalf("%s income %v: taxable %v, want %v", s, income, got.TaxableIncome, want)
			}
		}
	}
}

func TestBracketSlicesReproduceTax(t *testing.T) {
	e := newTestEngine(t)
	for _, s := range constants.FilingStatuses() {
		for income := 0.0; income <= 2_000_000; income += 12_345 {
			got := e.Calculate(income, s)

			var covered, tax float64
			for i, sl := range got.Slices {
				upper := got.TaxableIncome
				if sl.Bracket.MaxIncome != nil && *sl.Bracket.MaxIncome < upper {
					upper = *sl.Bracket.MaxIncome
				}
				if !approx(sl.Amount, upper-sl.Bracket.MinIncome, 1e-9) {
					t.Fatalf("%s %v: slice %d amount %v, want %v", s, income, i, sl.Amount, upper-sl.Bracket.MinIncome)
				}
				covered += sl.Amount
				tax += sl.Amount * sl.Bracket.Rate
			}
			if !approx(covered, got.TaxableIncome, 1e-6) {
				t.Fatalf("%s %v: slices cover %v of %v", s, income, covered, got.TaxableIncome)
			}
			if !approx(tax, got.TaxAmount, 1e-6) {
				t.Fatalf("%s %v: slice tax %v, engine tax %v", s, income, tax, got.TaxAmount)
			}
		}
	}
}

func TestEffectiveRateIsMonotonic(t *testing.T) {
	e := newTestEngine(t)
	for _, s := range constants.FilingStatuses() {
		prev := -1.0
		for income := 0.0; income <= 3_000_000; income += 2_500 {
			rate := e.Calculate(income, s).EffectiveRate
			if rate+1e-9 < prev {
				t.Fatalf("%s: effective rate fell from %v to %v at income %v", s, prev, rate, income)
			}
			prev = rate
		}
	}
}

func TestTaxOnTaxableSkipsDeduction(t *testing.T) {
	e := newTestEngine(t)
	direct := e.TaxOnTaxable(35400, constants.Single)
	viaGross := e.Calculate(50000, constants.Single)
	if !approx(direct.TaxAmount, viaGross.TaxAmount, 1e-9) {
		t.Errorf("TaxOnTaxable(35400) = %v, Calculate(50000) = %v", direct.TaxAmount, viaGross.TaxAmount)
	}
	if direct.TaxableIncome != 35400 {
		t.Errorf("taxable = %v, want 35400", direct.TaxableIncome)
	}
}

func TestStatusesListsReferenceData(t *testing.T) {
	e := newTestEngine(t)
	got := map[constants.FilingStatus]float64{}
	for _, info := range e.Statuses() {
		got[info.Status] = info.StandardDeduction
		if info.Brackets[0].Label != "10% bracket" {
			t.Errorf("%s first label = %q", info.Status, info.Brackets[0].Label)
		}
	}
	want := map[constants.FilingStatus]float64{
		constants.Single:          14600,
		constants.Married:         29200,
		constants.HeadOfHousehold: 21900,
		constants.QualifyingWidow: 29200,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("standard deductions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTableRejectsBrokenPartitions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"gap", `
year: 2024
fallback: single
statuses:
  single:
    standard_deduction: 100
    brackets:
      - {min: 0, max: 100, rate: 0.1}
      - {min: 150, rate: 0.2}
`},
		{"overlap", `
year: 2024
fallback: single
statuses:
  single:
    brackets:
      - {min: 0, max: 100, rate: 0.1}
      - {min: 90, rate: 0.2}
`},
		{"bounded top", `
year: 2024
fallback: single
statuses:
  single:
    brackets:
      - {min: 0, max: 100, rate: 0.1}
`},
		{"unbounded middle", `
year: 2024
fallback: single
statuses:
  single:
    brackets:
      - {min: 0, rate: 0.1}
      - {min: 100, rate: 0.2}
`},
		{"not starting at zero", `
year: 2024
fallback: single
statuses:
  single:
    brackets:
      - {min: 10, rate: 0.1}
`},
		{"rate above one", `
year: 2024
fallback: single
statuses:
  single:
    brackets:
      - {min: 0, rate: 1.5}
`},
		{"missing fallback table", `
year: 2024
fallback: married
statuses:
  single:
    brackets:
      - {min: 0, rate: 0.1}
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tc.yaml))
			if !errors.Is(err, ErrInvalidTable) {
				t.Fatalf("err = %v, want ErrInvalidTable", err)
			}
		})
	}
}

func TestParseTableAcceptsMinimalTable(t *testing.T) {
	tbl, err := ParseTable([]byte(`
year: 2030
fallback: single
statuses:
  single:
    description: Flat
    standard_deduction: 1000
    brackets:
      - {min: 0, max: 1000, rate: 0.05, label: low}
      - {min: 1000, rate: 0.2}
`))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	e := NewEngine(tbl, nil)
	got := e.Calculate(3000, constants.Single)
	if !approx(got.TaxAmount, 1000*0.05+1000*0.2, 1e-9) {
		t.Errorf("tax = %v", got.TaxAmount)
	}
	if got.Bracket.Label != "20% bracket" {
		t.Errorf("label = %q", got.Bracket.Label)
	}
	if e.Year() != 2030 {
		t.Errorf("year = %d", e.Year())
	}
	if applied, _, fellBack := e.Resolve(constants.Married); applied != constants.Single || !fellBack {
		t.Errorf("Resolve(married) = %s, fellBack=%v; want single fallback", applied, fellBack)
	}
}

func TestDefaultTableCoversEveryStatus(t *testing.T) {
	tbl, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable: %v", err)
	}
	for _, s := range constants.FilingStatuses() {
		if _, ok := tbl.Statuses[s]; !ok {
			t.Errorf("default table has no %s entry", s)
		}
	}
}

func TestLoadTableUnknownYear(t *testing.T) {
	if _, err := LoadTable(1999); err == nil {
		t.Fatal("expected error for missing year")
	}
}
