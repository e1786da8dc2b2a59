package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/shopspring/decimal"
)

// amountLabels maps a document label to the response path it feeds.
// Amounts under the same path are summed across documents.
var amountLabels = map[string]string{
	"wages":                           "income.wages",
	"wages, tips, other compensation": "income.wages",
	"wages tips other compensation":   "income.wages",
	"nonemployee compensation":        "income.selfEmployment",
	"self-employment income":          "income.selfEmployment",
	"gross receipts":                  "income.selfEmployment",
	"business income":                 "income.selfEmployment",
	"interest":                        "income.interest",
	"interest income":                 "income.interest",
	"dividends":                       "income.dividends",
	"ordinary dividends":              "income.dividends",
	"total ordinary dividends":        "income.dividends",
	"capital gain":                    "income.capitalGains",
	"capital gains":                   "income.capitalGains",
	"net capital gain":                "income.capitalGains",
	"net long-term capital gain":      "income.capitalGains",
	"rental income":                   "income.rentalIncome",
	"rents received":                  "income.rentalIncome",
	"royalties":                       "income.rentalIncome",
	"other income":                    "income.otherIncome",
	"itemized deductions":             "deductions.itemizedDeductions",
	"business expenses":               "deductions.businessExpenses",
	"total expenses":                  "deductions.businessExpenses",
	"retirement contributions":        "deductions.retirementContributions",
	"401(k) contributions":            "deductions.retirementContributions",
	"ira contributions":               "deductions.retirementContributions",
	"hsa contributions":               "deductions.healthSavingsAccount",
	"health savings account":          "deductions.healthSavingsAccount",
	"child tax credit":                "credits.childTaxCredit",
	"earned income credit":            "credits.earnedIncomeCredit",
	"education credit":                "credits.educationCredits",
	"education credits":               "credits.educationCredits",
	"other credits":                   "credits.otherCredits",
}

const (
	textName    = "name"
	textSSN     = "ssn"
	textAddress = "address"
	textDOB     = "dob"
	textIgnored = ""
)

// textLabels feed personal info. The first value found wins. Ignored labels
// are listed so they terminate the value in front of them.
var textLabels = map[string]string{
	"employee":                    textName,
	"recipient":                   textName,
	"taxpayer":                    textName,
	"name":                        textName,
	"ssn":                         textSSN,
	"employee ssn":                textSSN,
	"recipient tin":               textSSN,
	"social security number":      textSSN,
	"address":                     textAddress,
	"date of birth":               textDOB,
	"dob":                         textDOB,
	"employer":                    textIgnored,
	"employer ein":                textIgnored,
	"employer name":               textIgnored,
	"payer name":                  textIgnored,
	"payer":                       textIgnored,
	"payer tin":                   textIgnored,
	"ein":                         textIgnored,
	"federal income tax withheld": textIgnored,
	"social security wages":       textIgnored,
	"medicare wages":              textIgnored,
	"state wages":                 textIgnored,
	"state income tax":            textIgnored,
	"tax year":                    textIgnored,
	"account number":              textIgnored,
}

var (
	reLabel  = buildLabelRegexp()
	reAmount = regexp.MustCompile(`\$?\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`)
	reSSN    = regexp.MustCompile(`[\d*Xx]{3}-[\d*Xx]{2}-\d{4}|\b\d{9}\b`)
	reDOB    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`)
)

func buildLabelRegexp() *regexp.Regexp {
	labels := make([]string, 0, len(amountLabels)+len(textLabels))
	for l := range amountLabels {
		labels = append(labels, l)
	}
	for l := range textLabels {
		labels = append(labels, l)
	}
	// Longest first so "social security wages" beats "wages".
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) > len(labels[j])
		}
		return labels[i] < labels[j]
	})
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)\b(?:box\s+\d+[a-z]?\s+)?(` + strings.Join(quoted, "|") + `)\s*:`)
}

// RulesExtractor reads "Label: value" pairs from plain-text documents. It
// understands common W-2, 1099 and schedule labels and is deterministic,
// which makes it the default for offline runs.
type RulesExtractor struct {
	logger *slog.Logger
}

func NewRulesExtractor(logger *slog.Logger) *RulesExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RulesExtractor{logger: logger}
}

type labelledValue struct {
	label string
	value string
}

// scanLabels returns every known label in text with the value that follows
// it, up to the next label or line end.
func scanLabels(text string) []labelledValue {
	var out []labelledValue
	for _, line := range strings.Split(text, "\n") {
		locs := reLabel.FindAllStringSubmatchIndex(line, -1)
		for i, loc := range locs {
			end := len(line)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			label := strings.ToLower(strings.Join(strings.Fields(line[loc[2]:loc[3]]), " "))
			value := strings.Trim(strings.TrimSpace(line[loc[1]:end]), ",;")
			out = append(out, labelledValue{label: label, value: value})
		}
	}
	return out
}

func (r *RulesExtractor) Extract(ctx context.Context, req ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return entity.ExtractedFilingData{}, nil, err
	}

	sums := map[string]decimal.Decimal{}
	text := map[string]string{}
	matched := 0

	for _, doc := range req.Documents {
		for _, lv := range scanLabels(doc.Content) {
			if path, ok := amountLabels[lv.label]; ok {
				m := reAmount.FindString(lv.value)
				if m == "" {
					continue
				}
				d, err := parseAmount(m)
				if err != nil {
					continue
				}
				sums[path] = sums[path].Add(d)
				matched++
				continue
			}
			kind := textLabels[lv.label]
			if kind == textIgnored || lv.value == "" {
				continue
			}
			if _, seen := text[kind]; seen {
				continue
			}
			text[kind] = lv.value
			matched++
		}
	}

	payload := r.buildPayload(sums, text)
	raw, err := json.Marshal(payload)
	if err != nil {
		return entity.ExtractedFilingData{}, nil, err
	}

	r.logger.Info("llm.rules.extract",
		"documents", len(req.Documents),
		"matched", matched,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ParseFilingResponse(raw, req.FilingStatus, req.TaxYear, r.logger)
}

func (r *RulesExtractor) buildPayload(sums map[string]decimal.Decimal, text map[string]string) map[string]any {
	first, last := splitName(text[textName])
	street, city, state, zip := splitAddress(text[textAddress])

	out := map[string]any{
		"personalInfo": map[string]any{
			"firstName": first,
			"lastName":  last,
			"ssn":       MaskSSN(reSSN.FindString(text[textSSN])),
			"address": map[string]any{
				"street":  street,
				"city":    city,
				"state":   state,
				"zipCode": zip,
			},
			"dateOfBirth": reDOB.FindString(text[textDOB]),
		},
	}
	for section, fields := range moneySections {
		sm := make(map[string]any, len(fields))
		for _, f := range fields {
			sm[f] = sums[section+"."+f].Round(2).InexactFloat64()
		}
		out[section] = sm
	}
	return out
}

// MaskSSN keeps only the last four digits. Already-masked input is
// normalized to the ***-**-NNNN shape.
func MaskSSN(s string) string {
	digits := make([]byte, 0, 9)
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return "***-**-" + string(digits[len(digits)-4:])
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// splitAddress reads "street, city, ST 12345". Anything it cannot split
// stays in street.
func splitAddress(addr string) (street, city, state, zip string) {
	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return strings.TrimSpace(addr), "", "", ""
	}
	street = strings.Join(parts[:len(parts)-2], ", ")
	city = parts[len(parts)-2]
	tail := strings.Fields(parts[len(parts)-1])
	if len(tail) > 0 {
		state = tail[0]
	}
	if len(tail) > 1 {
		zip = tail[1]
	}
	return street, city, state, zip
}
