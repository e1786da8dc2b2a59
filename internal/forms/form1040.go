package forms

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

var Form1040 = Form{
	Number:       "1040",
	Type:         "Individual Income Tax Return",
	Instructions: "File this form with the IRS by April 15th of the following year.",
	renderers: map[constants.OutputFormat]renderFunc{
		constants.FormatJSON:      json1040,
		constants.FormatXML:       xml1040,
		constants.FormatIRSEfile:  efile1040,
		constants.FormatMailReady: mail1040,
		constants.FormatText:      text1040,
	},
}

func json1040(fig Figures) (string, error) {
	doc := struct {
		Form          string                 `json:"form"`
		PersonalInfo  entity.PersonalInfo    `json:"personalInfo"`
		Income        entity.Income          `json:"income"`
		Deductions    entity.Deductions      `json:"deductions"`
		Credits       entity.Credits         `json:"credits"`
		CalculatedTax entity.CalculatedTax   `json:"calculatedTax"`
		FilingStatus  constants.FilingStatus `json:"filingStatus"`
		TaxYear       int                    `json:"taxYear"`
	}{
		Form:          "1040",
		PersonalInfo:  fig.Filing.PersonalInfo,
		Income:        fig.Filing.Income,
		Deductions:    fig.Filing.Deductions,
		Credits:       fig.Filing.Credits,
		CalculatedTax: fig.Tax,
		FilingStatus:  fig.Filing.FilingStatus,
		TaxYear:       fig.Filing.TaxYear,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type xmlForm1040 struct {
	XMLName      xml.Name `xml:"Form1040"`
	PersonalInfo struct {
		FirstName string `xml:"FirstName"`
		LastName  string `xml:"LastName"`
		SSN       string `xml:"SSN"`
	} `xml:"PersonalInfo"`
	Income struct {
		Wages       string `xml:"Wages"`
		TotalIncome string `xml:"TotalIncome"`
	} `xml:"Income"`
	TaxCalculation struct {
		TaxableIncome string `xml:"TaxableIncome"`
		FederalTax    string `xml:"FederalTax"`
		FinalTax      string `xml:"FinalTax"`
	} `xml:"TaxCalculation"`
}

func xml1040(fig Figures) (string, error) {
	var doc xmlForm1040
	doc.PersonalInfo.FirstName = fig.Filing.PersonalInfo.FirstName
	doc.PersonalInfo.LastName = fig.Filing.PersonalInfo.LastName
	doc.PersonalInfo.SSN = fig.Filing.PersonalInfo.SSN
	doc.Income.Wages = plain(fig.Filing.Income.Wages)
	doc.Income.TotalIncome = plain(fig.Filing.Income.TotalIncome)
	doc.TaxCalculation.TaxableIncome = plain(fig.Tax.TaxableIncome)
	doc.TaxCalculation.FederalTax = plain(fig.Tax.FederalTax)
	doc.TaxCalculation.FinalTax = plain(fig.Tax.FinalTax)

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func efile1040(fig Figures) (string, error) {
	p := fig.Filing.PersonalInfo
	lines := []string{
		"IRS_EFILE_FORMAT",
		"1040",
		p.FirstName,
		p.LastName,
		p.SSN,
		plain(fig.Filing.Income.TotalIncome),
		plain(fig.Tax.FinalTax),
		string(fig.Filing.FilingStatus),
		strconv.Itoa(fig.Filing.TaxYear),
	}
	return strings.Join(lines, "\n"), nil
}

func deductionLine(tax entity.CalculatedTax) string {
	if tax.DeductionMethod == entity.DeductionItemized {
		return "Itemized Deductions: " + Dollars(tax.DeductionUsed)
	}
	return "Standard Deduction: " + Dollars(tax.DeductionUsed)
}

func mail1040(fig Figures) (string, error) {
	f, t := fig.Filing, fig.Tax
	a := f.PersonalInfo.Address
	var b strings.Builder
	fmt.Fprintf(&b, "FORM 1040 - U.S. INDIVIDUAL INCOME TAX RETURN\n")
	fmt.Fprintf(&b, "Tax Year: %d\n\n", f.TaxYear)
	fmt.Fprintf(&b, "Name: %s\n", f.PersonalInfo.FullName())
	fmt.Fprintf(&b, "SSN: %s\n", f.PersonalInfo.SSN)
	fmt.Fprintf(&b, "Address: %s, %s, %s %s\n\n", a.Street, a.City, a.State, a.ZipCode)
	fmt.Fprintf(&b, "Filing Status: %s\n\n", f.FilingStatus)
	fmt.Fprintf(&b, "INCOME:\n")
	fmt.Fprintf(&b, "Wages: %s\n", Dollars(f.Income.Wages))
	fmt.Fprintf(&b, "Total Income: %s\n\n", Dollars(f.Income.TotalIncome))
	fmt.Fprintf(&b, "DEDUCTIONS:\n")
	fmt.Fprintf(&b, "%s\n\n", deductionLine(t))
	fmt.Fprintf(&b, "TAX CALCULATION:\n")
	fmt.Fprintf(&b, "Taxable Income: %s\n", Dollars(t.TaxableIncome))
	fmt.Fprintf(&b, "Federal Tax: %s\n\n", Dollars(t.FinalTax))
	fmt.Fprintf(&b, "SIGNATURE: _____________________________\n")
	fmt.Fprintf(&b, "DATE: _____________________________")
	return b.String(), nil
}

func text1040(fig Figures) (string, error) {
	f, t := fig.Filing, fig.Tax
	lines := []string{
		"Form 1040 Summary:",
		"- Name: " + f.PersonalInfo.FullName(),
		"- Filing Status: " + string(f.FilingStatus),
		"- Total Income: " + Dollars(f.Income.TotalIncome),
		"- Taxable Income: " + Dollars(t.TaxableIncome),
		"- Federal Tax: " + Dollars(t.FinalTax),
		"- Effective Tax Rate: " + Percent(t.EffectiveRate),
	}
	return strings.Join(lines, "\n"), nil
}
