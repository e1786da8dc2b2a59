package filing

import (
	"log/slog"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
	"github.com/shopspring/decimal"
)

// Calculator turns extracted filing data into a CalculatedTax. Money figures
// are rounded to cents; rates keep full precision.
type Calculator struct {
	engine *taxcalc.Engine
	logger *slog.Logger
}

func NewCalculator(engine *taxcalc.Engine, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{engine: engine, logger: logger}
}

// Compute applies exactly one deduction: the larger of the standard
// deduction for status and the itemized total. The bracket walk then runs on
// the already-reduced taxable income, and credits are subtracted once.
func (c *Calculator) Compute(data entity.ExtractedFilingData, status constants.FilingStatus) entity.CalculatedTax {
	applied, table, _ := c.engine.Resolve(status)

	gross := dec(data.Income.TotalIncome)
	agi := gross.
		Sub(dec(data.Deductions.RetirementContributions)).
		Sub(dec(data.Deductions.HealthSavingsAccount))

	standard := dec(table.StandardDeduction)
	used, method := standard, entity.DeductionStandard
	if itemized := dec(data.Deductions.ItemizedDeductions); itemized.GreaterThan(standard) {
		used, method = itemized, entity.DeductionItemized
	}

	taxable := decimal.Max(decimal.Zero, agi.Sub(used)).Round(2)
	r := c.engine.TaxOnTaxable(taxable.InexactFloat64(), applied)
	federal := dec(r.TaxAmount).Round(2)

	credits := dec(data.Credits.TotalCredits)
	creditsApplied := decimal.Min(credits, federal)
	final := federal.Sub(creditsApplied)

	effective := 0.0
	if taxable.IsPositive() {
		effective = final.InexactFloat64() / taxable.InexactFloat64() * 100
	}

	out := entity.CalculatedTax{
		FilingStatus:        applied,
		GrossIncome:         gross.Round(2).InexactFloat64(),
		AdjustedGrossIncome: agi.Round(2).InexactFloat64(),
		StandardDeduction:   standard.InexactFloat64(),
		DeductionUsed:       used.Round(2).InexactFloat64(),
		DeductionMethod:     method,
		TaxableIncome:       taxable.InexactFloat64(),
		FederalTax:          federal.InexactFloat64(),
		TotalCredits:        credits.Round(2).InexactFloat64(),
		CreditsApplied:      creditsApplied.Round(2).InexactFloat64(),
		FinalTax:            final.Round(2).InexactFloat64(),
		EffectiveRate:       effective,
		MarginalRate:        dec(r.Bracket.Rate).Mul(decimal.NewFromInt(100)).InexactFloat64(),
		MarginalBracket:     r.Bracket.Label,
	}

	c.logger.Debug("filing.compute",
		"status", string(applied),
		"taxable", out.TaxableIncome,
		"federal_tax", out.FederalTax,
		"final_tax", out.FinalTax,
		"deduction", method,
	)
	return out
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
