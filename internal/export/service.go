package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

const (
	SheetSummary    = "Summary"
	SheetIncome     = "Income"
	SheetDeductions = "Deductions & Credits"
	SheetForms      = "Forms"

	// maxCellChars is the Excel limit for a single cell.
	maxCellChars = 32767
)

// Service produces XLSX workbooks for generated filings.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	money int
	err   error
}

// write fills one row starting at column A. float64 values get the money style.
func (w *sheetWriter) write(values ...any) {
	if w.err != nil {
		return
	}
	w.row++
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			w.err = err
			return
		}
		if _, ok := v.(float64); ok {
			if err := w.f.SetCellStyle(w.sheet, cell, cell, w.money); err != nil {
				w.err = err
				return
			}
		}
	}
}

// FilingXLSX returns the workbook (as bytes) for one generated filing. Every
// figure is taken from the same result the forms were rendered from.
func (s *Service) FilingXLSX(ctx context.Context, res entity.FilingResult) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetIncome, SheetDeductions, SheetForms} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	data, tax, sum := res.Filing, res.Tax, res.Summary
	sheets := []struct {
		name    string
		headers []string
		fill    func(w *sheetWriter)
	}{
		{SheetSummary, []string{"Field", "Value"}, func(w *sheetWriter) {
			w.write("Name", data.PersonalInfo.FullName())
			w.write("SSN", data.PersonalInfo.SSN)
			w.write("Filing Status", string(tax.FilingStatus))
			w.write("Tax Year", data.TaxYear)
			w.write("Total Income", sum.TotalIncome)
			w.write("Adjusted Gross Income", tax.AdjustedGrossIncome)
			w.write("Taxable Income", tax.TaxableIncome)
			w.write("Federal Tax", tax.FederalTax)
			w.write("Credits Applied", tax.CreditsApplied)
			w.write("Final Tax", tax.FinalTax)
			w.write("Tax Owed", sum.TaxOwed)
			w.write("Refund", sum.RefundAmount)
			w.write("Effective Rate (%)", strconv.FormatFloat(tax.EffectiveRate, 'f', 2, 64))
			w.write("Marginal Bracket", tax.MarginalBracket)
			w.write("Filing Deadline", sum.FilingDeadline)
			w.write("Estimated Processing Time", sum.EstimatedProcessingTime)
		}},
		{SheetIncome, []string{"Source", "Amount"}, func(w *sheetWriter) {
			w.write("Wages", data.Income.Wages)
			w.write("Self-Employment", data.Income.SelfEmployment)
			w.write("Interest", data.Income.Interest)
			w.write("Dividends", data.Income.Dividends)
			w.write("Capital Gains", data.Income.CapitalGains)
			w.write("Rental Income", data.Income.RentalIncome)
			w.write("Other Income", data.Income.OtherIncome)
			w.write("Total Income", data.Income.TotalIncome)
		}},
		{SheetDeductions, []string{"Section", "Item", "Amount"}, func(w *sheetWriter) {
			w.write("Deductions", "Itemized Deductions", data.Deductions.ItemizedDeductions)
			w.write("Deductions", "Business Expenses", data.Deductions.BusinessExpenses)
			w.write("Deductions", "Retirement Contributions", data.Deductions.RetirementContributions)
			w.write("Deductions", "Health Savings Account", data.Deductions.HealthSavingsAccount)
			w.write("Deductions", "Total Deductions", data.Deductions.TotalDeductions)
			w.write("Deductions", "Standard Deduction", tax.StandardDeduction)
			w.write("Deductions", "Deduction Used ("+tax.DeductionMethod+")", tax.DeductionUsed)
			w.write("Credits", "Child Tax Credit", data.Credits.ChildTaxCredit)
			w.write("Credits", "Earned Income Credit", data.Credits.EarnedIncomeCredit)
			w.write("Credits", "Education Credits", data.Credits.EducationCredits)
			w.write("Credits", "Other Credits", data.Credits.OtherCredits)
			w.write("Credits", "Total Credits", data.Credits.TotalCredits)
			w.write("Credits", "Credits Applied", tax.CreditsApplied)
		}},
		{SheetForms, []string{"Form Number", "Form Type", "Format", "Instructions", "Content"}, func(w *sheetWriter) {
			for _, form := range res.Forms {
				w.write(form.FormNumber, form.FormType, string(form.Format), form.Instructions, truncate(form.Content, maxCellChars))
			}
		}},
	}

	for _, sh := range sheets {
		w := &sheetWriter{f: f, sheet: sh.name, money: money}
		headerVals := make([]any, len(sh.headers))
		for i, h := range sh.headers {
			headerVals[i] = h
		}
		w.write(headerVals...)
		last, _ := excelize.CoordinatesToCellName(len(sh.headers), 1)
		if err := f.SetCellStyle(sh.name, "A1", last, header); err != nil {
			return nil, err
		}
		sh.fill(w)
		if w.err != nil {
			return nil, fmt.Errorf("xlsx %s: %w", sh.name, w.err)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetSummary, "A", "A", 28)
	_ = f.SetColWidth(SheetSummary, "B", "B", 30)
	_ = f.SetColWidth(SheetIncome, "A", "B", 18)
	_ = f.SetColWidth(SheetDeductions, "A", "A", 14)
	_ = f.SetColWidth(SheetDeductions, "B", "B", 32)
	_ = f.SetColWidth(SheetDeductions, "C", "C", 14)
	_ = f.SetColWidth(SheetForms, "A", "C", 12)
	_ = f.SetColWidth(SheetForms, "D", "D", 48)
	_ = f.SetColWidth(SheetForms, "E", "E", 80)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tax_year", data.TaxYear,
		"forms", len(res.Forms),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
