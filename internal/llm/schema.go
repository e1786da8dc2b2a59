package llm

var (
	personalFields = []string{"firstName", "lastName", "ssn", "dateOfBirth"}
	addressFields  = []string{"street", "city", "state", "zipCode"}
	incomeFields   = []string{"wages", "selfEmployment", "interest", "dividends", "capitalGains", "rentalIncome", "otherIncome"}
	deductFields   = []string{"itemizedDeductions", "businessExpenses", "retirementContributions", "healthSavingsAccount"}
	creditFields   = []string{"childTaxCredit", "earnedIncomeCredit", "educationCredits", "otherCredits"}
)

// moneySections maps each numeric section to its leaf names.
var moneySections = map[string][]string{
	"income":     incomeFields,
	"deductions": deductFields,
	"credits":    creditFields,
}

// RequiredPaths lists every leaf an extraction response must carry, in the
// order missing fields are reported.
func RequiredPaths() []string {
	paths := make([]string, 0, 24)
	for _, f := range personalFields[:3] {
		paths = append(paths, "personalInfo."+f)
	}
	for _, f := range addressFields {
		paths = append(paths, "personalInfo.address."+f)
	}
	paths = append(paths, "personalInfo.dateOfBirth")
	for _, section := range []string{"income", "deductions", "credits"} {
		for _, f := range moneySections[section] {
			paths = append(paths, section+"."+f)
		}
	}
	return paths
}

// BuildFilingJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every leaf is required and amounts lie in [0, MaxAmount].
func BuildFilingJSONSchema() map[string]any {
	address := objectSchema(stringProps(addressFields), addressFields)

	personalProps := stringProps(personalFields)
	personalProps["address"] = address
	personalReq := append([]string{"address"}, personalFields...)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"personalInfo": objectSchema(personalProps, personalReq),
			"income":       objectSchema(moneyProps(incomeFields), incomeFields),
			"deductions":   objectSchema(moneyProps(deductFields), deductFields),
			"credits":      objectSchema(moneyProps(creditFields), creditFields),
		},
		"required": []string{"personalInfo", "income", "deductions", "credits"},
	}
}

func objectSchema(props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func stringProps(names []string) map[string]any {
	props := make(map[string]any, len(names)+1)
	for _, n := range names {
		props[n] = map[string]any{"type": "string"}
	}
	return props
}

// MaxAmount bounds every extracted amount; larger figures are treated as
// misreads rather than income.
const MaxAmount = 999_999_999

func moneyProps(names []string) map[string]any {
	props := make(map[string]any, len(names))
	for _, n := range names {
		props[n] = map[string]any{"type": "number", "minimum": 0, "maximum": MaxAmount}
	}
	return props
}
