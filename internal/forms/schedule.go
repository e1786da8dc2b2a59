package forms

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

// scheduleLine is one labelled amount on a schedule.
type scheduleLine struct {
	Label string
	Key   string // JSON key and XML element name
	Value float64
}

type schedule struct {
	Code  string // machine code, e.g. SCHEDULE_C
	Tag   string // XML root element
	Title string
	lines func(fig Figures) []scheduleLine
}

var ScheduleC = newScheduleForm(
	"Schedule C",
	"Profit or Loss From Business",
	"Attach to Form 1040 if you have business income.",
	schedule{
		Code:  "SCHEDULE_C",
		Tag:   "ScheduleC",
		Title: "SCHEDULE C - PROFIT OR LOSS FROM BUSINESS",
		lines: func(fig Figures) []scheduleLine {
			gross := fig.Filing.Income.SelfEmployment
			expenses := fig.Filing.Deductions.BusinessExpenses
			return []scheduleLine{
				{Label: "Gross Receipts", Key: "GrossReceipts", Value: gross},
				{Label: "Total Expenses", Key: "TotalExpenses", Value: expenses},
				{Label: "Net Profit", Key: "NetProfit", Value: round2(gross - expenses)},
			}
		},
	},
)

var ScheduleD = newScheduleForm(
	"Schedule D",
	"Capital Gains and Losses",
	"Attach to Form 1040 if you have capital gains or losses.",
	schedule{
		Code:  "SCHEDULE_D",
		Tag:   "ScheduleD",
		Title: "SCHEDULE D - CAPITAL GAINS AND LOSSES",
		lines: func(fig Figures) []scheduleLine {
			return []scheduleLine{
				{Label: "Net Capital Gain", Key: "NetCapitalGain", Value: fig.Filing.Income.CapitalGains},
			}
		},
	},
)

func newScheduleForm(number, formType, instructions string, s schedule) Form {
	return Form{
		Number:       number,
		Type:         formType,
		Instructions: instructions,
		renderers: map[constants.OutputFormat]renderFunc{
			constants.FormatJSON:      s.json(number),
			constants.FormatXML:       s.xml,
			constants.FormatIRSEfile:  s.efile,
			constants.FormatMailReady: s.mail,
			constants.FormatText:      s.text(number),
		},
	}
}

func (s schedule) json(number string) renderFunc {
	return func(fig Figures) (string, error) {
		amounts := make(map[string]float64)
		for _, l := range s.lines(fig) {
			amounts[l.Key] = l.Value
		}
		doc := map[string]any{
			"form":    number,
			"name":    fig.Filing.PersonalInfo.FullName(),
			"ssn":     fig.Filing.PersonalInfo.SSN,
			"taxYear": fig.Filing.TaxYear,
			"amounts": amounts,
		}
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func (s schedule) xml(fig Figures) (string, error) {
	type element struct {
		XMLName xml.Name
		Value   string `xml:",chardata"`
	}
	doc := struct {
		XMLName xml.Name
		Name    string    `xml:"Name"`
		SSN     string    `xml:"SSN"`
		TaxYear int       `xml:"TaxYear"`
		Lines   []element `xml:"Amounts>Amount"`
	}{
		XMLName: xml.Name{Local: s.Tag},
		Name:    fig.Filing.PersonalInfo.FullName(),
		SSN:     fig.Filing.PersonalInfo.SSN,
		TaxYear: fig.Filing.TaxYear,
	}
	for _, l := range s.lines(fig) {
		doc.Lines = append(doc.Lines, element{XMLName: xml.Name{Local: l.Key}, Value: plain(l.Value)})
	}
	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s schedule) efile(fig Figures) (string, error) {
	p := fig.Filing.PersonalInfo
	out := []string{"IRS_EFILE_FORMAT", s.Code, p.FirstName, p.LastName, p.SSN}
	for _, l := range s.lines(fig) {
		out = append(out, plain(l.Value))
	}
	out = append(out, strconv.Itoa(fig.Filing.TaxYear))
	return strings.Join(out, "\n"), nil
}

func (s schedule) mail(fig Figures) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Title)
	fmt.Fprintf(&b, "Tax Year: %d\n\n", fig.Filing.TaxYear)
	fmt.Fprintf(&b, "Name: %s\n", fig.Filing.PersonalInfo.FullName())
	fmt.Fprintf(&b, "SSN: %s\n\n", fig.Filing.PersonalInfo.SSN)
	for _, l := range s.lines(fig) {
		fmt.Fprintf(&b, "%s: %s\n", l.Label, Dollars(l.Value))
	}
	b.WriteString("\nAttach to Form 1040.")
	return b.String(), nil
}

func (s schedule) text(number string) renderFunc {
	return func(fig Figures) (string, error) {
		out := []string{number + " Summary:", "- Name: " + fig.Filing.PersonalInfo.FullName()}
		for _, l := range s.lines(fig) {
			out = append(out, "- "+l.Label+": "+Dollars(l.Value))
		}
		return strings.Join(out, "\n"), nil
	}
}
