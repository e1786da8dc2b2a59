package entity

import (
	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type PersonalInfo struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	SSN         string  `json:"ssn"`
	Address     Address `json:"address"`
	DateOfBirth string  `json:"dateOfBirth"`
}

// FullName joins first and last name.
func (p PersonalInfo) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Income struct {
	Wages          float64 `json:"wages"`
	SelfEmployment float64 `json:"selfEmployment"`
	Interest       float64 `json:"interest"`
	Dividends      float64 `json:"dividends"`
	CapitalGains   float64 `json:"capitalGains"`
	RentalIncome   float64 `json:"rentalIncome"`
	OtherIncome    float64 `json:"otherIncome"`
	TotalIncome    float64 `json:"totalIncome"`
}

func (i Income) Sum() float64 {
	return i.Wages + i.SelfEmployment + i.Interest + i.Dividends + i.CapitalGains + i.RentalIncome + i.OtherIncome
}

type Deductions struct {
	ItemizedDeductions      float64 `json:"itemizedDeductions"`
	BusinessExpenses        float64 `json:"businessExpenses"`
	RetirementContributions float64 `json:"retirementContributions"`
	HealthSavingsAccount    float64 `json:"healthSavingsAccount"`
	TotalDeductions         float64 `json:"totalDeductions"`
}

func (d Deductions) Sum() float64 {
	return d.ItemizedDeductions + d.BusinessExpenses + d.RetirementContributions + d.HealthSavingsAccount
}

type Credits struct {
	ChildTaxCredit     float64 `json:"childTaxCredit"`
	EarnedIncomeCredit float64 `json:"earnedIncomeCredit"`
	EducationCredits   float64 `json:"educationCredits"`
	OtherCredits       float64 `json:"otherCredits"`
	TotalCredits       float64 `json:"totalCredits"`
}

func (c Credits) Sum() float64 {
	return c.ChildTaxCredit + c.EarnedIncomeCredit + c.EducationCredits + c.OtherCredits
}

// ExtractedFilingData is the structured result of extraction for one filing.
// Build it with NewExtractedFilingData so the totals are always derived.
type ExtractedFilingData struct {
	PersonalInfo PersonalInfo           `json:"personalInfo"`
	Income       Income                 `json:"income"`
	Deductions   Deductions             `json:"deductions"`
	Credits      Credits                `json:"credits"`
	FilingStatus constants.FilingStatus `json:"filingStatus"`
	TaxYear      int                    `json:"taxYear"`
}

// NewExtractedFilingData recomputes every total* field; totals on the inputs
// are ignored.
func NewExtractedFilingData(info PersonalInfo, income Income, deductions Deductions, credits Credits, status constants.FilingStatus, taxYear int) ExtractedFilingData {
	income.TotalIncome = income.Sum()
	deductions.TotalDeductions = deductions.Sum()
	credits.TotalCredits = credits.Sum()
	return ExtractedFilingData{
		PersonalInfo: info,
		Income:       income,
		Deductions:   deductions,
		Credits:      credits,
		FilingStatus: status,
		TaxYear:      taxYear,
	}
}

const (
	DeductionStandard = "standard"
	DeductionItemized = "itemized"
)

// CalculatedTax is the derived tax snapshot for one filing.
type CalculatedTax struct {
	// FilingStatus is the status whose tables were applied; it differs from
	// the requested status when the engine fell back to single.
	FilingStatus        constants.FilingStatus `json:"filingStatus"`
	GrossIncome         float64                `json:"grossIncome"`
	AdjustedGrossIncome float64                `json:"adjustedGrossIncome"`
	StandardDeduction   float64                `json:"standardDeduction"`
	DeductionUsed       float64                `json:"deductionUsed"`
	DeductionMethod     string                 `json:"deductionMethod"`
	TaxableIncome       float64                `json:"taxableIncome"`
	FederalTax          float64                `json:"federalTax"`
	TotalCredits        float64                `json:"totalCredits"`
	CreditsApplied      float64                `json:"creditsApplied"`
	FinalTax            float64                `json:"finalTax"`
	EffectiveRate       float64                `json:"effectiveRate"`
	MarginalRate        float64                `json:"marginalRate"`
	MarginalBracket     string                 `json:"marginalBracket"`
}

type FilingSummary struct {
	TotalIncome             float64 `json:"totalIncome"`
	TotalDeductions         float64 `json:"totalDeductions"`
	TotalCredits            float64 `json:"totalCredits"`
	TaxOwed                 float64 `json:"taxOwed"`
	RefundAmount            float64 `json:"refundAmount"`
	FilingDeadline          string  `json:"filingDeadline"`
	EstimatedProcessingTime string  `json:"estimatedProcessingTime"`
}

type GeneratedForm struct {
	FormType     string                 `json:"formType"`
	FormNumber   string                 `json:"formNumber"`
	Format       constants.OutputFormat `json:"format"`
	Content      string                 `json:"content"`
	Instructions string                 `json:"instructions"`
}

// FilingResult is everything produced for one generateTaxFiling request.
type FilingResult struct {
	Filing  ExtractedFilingData `json:"filing"`
	Tax     CalculatedTax       `json:"calculatedTax"`
	Forms   []GeneratedForm     `json:"forms"`
	Summary FilingSummary       `json:"summary"`
}
