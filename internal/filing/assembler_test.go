package filing

import (
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"
	"testing"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

func TestSummarize(t *testing.T) {
	calc := newCalculator(t)
	tests := []struct {
		name       string
		data       entity.ExtractedFilingData
		wantOwed   float64
		wantRefund float64
	}{
		{
			name:     "owes tax",
			data:     filingOf(entity.Income{Wages: 50000}, entity.Deductions{}, entity.Credits{ChildTaxCredit: 2000}, constants.Single),
			wantOwed: 2016,
		},
		{
			name:       "excess credits",
			data:       filingOf(entity.Income{Wages: 20000}, entity.Deductions{}, entity.Credits{ChildTaxCredit: 2000}, constants.Single),
			wantRefund: 1460,
		},
		{
			name: "nothing due",
			data: filingOf(entity.Income{}, entity.Deductions{}, entity.Credits{}, constants.Single),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.data, calc.Compute(tt.data, constants.Single))
			if s.TaxOwed != tt.wantOwed || s.RefundAmount != tt.wantRefund {
				t.Errorf("owed/refund = %v/%v, want %v/%v", s.TaxOwed, s.RefundAmount, tt.wantOwed, tt.wantRefund)
			}
			if s.FilingDeadline != "Tuesday, April 15, 2025" {
				t.Errorf("FilingDeadline = %q", s.FilingDeadline)
			}
			if s.EstimatedProcessingTime != ProcessingTime {
				t.Errorf("EstimatedProcessingTime = %q", s.EstimatedProcessingTime)
			}
			if s.TotalIncome != tt.data.Income.TotalIncome || s.TotalCredits != tt.data.Credits.TotalCredits {
				t.Errorf("totals not carried over: %+v", s)
			}
		})
	}
}

func TestSummaryOwedAndRefundExclusive(t *testing.T) {
	calc := newCalculator(t)
	for _, credits := range []float64{0, 100, 1000, 5000, 20000} {
		for income := 0.0; income <= 200000; income += 7500 {
			data := filingOf(entity.Income{Wages: income}, entity.Deductions{}, entity.Credits{OtherCredits: credits}, constants.Single)
			s := Summarize(data, calc.Compute(data, constants.Single))
			if s.TaxOwed > 0 && s.RefundAmount > 0 {
				t.Fatalf("income %v credits %v: owed %v and refund %v", income, credits, s.TaxOwed, s.RefundAmount)
			}
		}
	}
}

func TestAssembleFormSelection(t *testing.T) {
	calc := newCalculator(t)
	asm := NewAssembler(nil)
	tests := []struct {
		name   string
		income entity.Income
		want   []string
	}{
		{name: "wages only", income: entity.Income{Wages: 50000}, want: []string{"1040"}},
		{name: "self employment", income: entity.Income{SelfEmployment: 30000}, want: []string{"1040", "Schedule C"}},
		{name: "capital gains", income: entity.Income{CapitalGains: 1000}, want: []string{"1040", "Schedule D"}},
		{name: "both", income: entity.Income{SelfEmployment: 1, CapitalGains: 1}, want: []string{"1040", "Schedule C", "Schedule D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := filingOf(tt.income, entity.Deductions{}, entity.Credits{}, constants.Single)
			forms, _, err := asm.Assemble(data, calc.Compute(data, constants.Single), constants.FormatText)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			var got []string
			for _, f := range forms {
				got = append(got, f.FormNumber)
				if f.Instructions == "" || f.FormType == "" {
					t.Errorf("form %s missing type or instructions", f.FormNumber)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("forms = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleUnknownFormatIsText(t *testing.T) {
	calc := newCalculator(t)
	data := filingOf(entity.Income{Wages: 50000}, entity.Deductions{}, entity.Credits{}, constants.Single)
	forms, _, err := NewAssembler(nil).Assemble(data, calc.Compute(data, constants.Single), constants.OutputFormat("pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if forms[0].Format != constants.FormatText || !strings.HasPrefix(forms[0].Content, "Form 1040 Summary:") {
		t.Errorf("unexpected fallback form: %+v", forms[0])
	}
}

func TestXMLAndJSONAgreeOnTotalIncome(t *testing.T) {
	calc := newCalculator(t)
	asm := NewAssembler(nil)
	data := filingOf(entity.Income{Wages: 75000, Interest: 500.25, Dividends: 200}, entity.Deductions{RetirementContributions: 6000}, entity.Credits{}, constants.Single)
	tax := calc.Compute(data, constants.Single)

	jsonForms, _, err := asm.Assemble(data, tax, constants.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var j struct {
		Income struct {
			TotalIncome float64 `json:"totalIncome"`
		} `json:"income"`
	}
	if err := json.Unmarshal([]byte(jsonForms[0].Content), &j); err != nil {
		t.Fatalf("decode json form: %v", err)
	}

	xmlForms, _, err := asm.Assemble(data, tax, constants.FormatXML)
	if err != nil {
		t.Fatal(err)
	}
	var x struct {
		TotalIncome string `xml:"Income>TotalIncome"`
	}
	if err := xml.Unmarshal([]byte(xmlForms[0].Content), &x); err != nil {
		t.Fatalf("decode xml form: %v", err)
	}
	xv, err := strconv.ParseFloat(x.TotalIncome, 64)
	if err != nil {
		t.Fatalf("parse xml TotalIncome %q: %v", x.TotalIncome, err)
	}
	if xv != j.Income.TotalIncome || xv != 75700.25 {
		t.Errorf("TotalIncome xml %v json %v, want 75700.25", xv, j.Income.TotalIncome)
	}
}
