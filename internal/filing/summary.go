package filing

import (
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
)

const ProcessingTime = "3-6 weeks for refunds, 4-6 weeks for payments"

// Summarize reports owed tax or refund, never both. Credits were already
// subtracted by the calculator; only credits in excess of the bracket tax
// become a refund.
func Summarize(data entity.ExtractedFilingData, tax entity.CalculatedTax) entity.FilingSummary {
	refund := dec(tax.TotalCredits).Sub(dec(tax.CreditsApplied)).Round(2).InexactFloat64()
	return entity.FilingSummary{
		TotalIncome:             data.Income.TotalIncome,
		TotalDeductions:         data.Deductions.TotalDeductions,
		TotalCredits:            data.Credits.TotalCredits,
		TaxOwed:                 tax.FinalTax,
		RefundAmount:            refund,
		FilingDeadline:          taxcalc.DeadlineString(data.TaxYear + 1),
		EstimatedProcessingTime: ProcessingTime,
	}
}
