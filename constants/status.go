package constants

import "strings"

// FilingStatus is the IRS filing status a return is computed under.
type FilingStatus string

const (
	Single          FilingStatus = "single"
	Married         FilingStatus = "married"
	HeadOfHousehold FilingStatus = "head_of_household"
	QualifyingWidow FilingStatus = "qualifying_widow"
)

var allFilingStatuses = []FilingStatus{
	Single,
	Married,
	HeadOfHousehold,
	QualifyingWidow,
}

// FilingStatuses returns every known status in display order.
func FilingStatuses() []FilingStatus {
	out := make([]FilingStatus, len(allFilingStatuses))
	copy(out, allFilingStatuses)
	return out
}

func FilingStatusStrings() []string {
	result := make([]string, len(allFilingStatuses))
	for i, s := range allFilingStatuses {
		result[i] = string(s)
	}
	return result
}

// Valid reports whether s is one of the known statuses.
func (s FilingStatus) Valid() bool {
	for _, known := range allFilingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanonicalizeFilingStatus maps user input to a known status. The bool is
// false when the input did not match anything; callers decide the fallback.
func CanonicalizeFilingStatus(input string) (FilingStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	synonyms := map[string]FilingStatus{
		"married_filing_jointly":      Married,
		"mfj":                         Married,
		"joint":                       Married,
		"hoh":                         HeadOfHousehold,
		"qualifying_widower":          QualifyingWidow,
		"qualifying_widow(er)":        QualifyingWidow,
		"qualifying_surviving_spouse": QualifyingWidow,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}
	for _, s := range allFilingStatuses {
		if normalized == string(s) {
			return s, true
		}
	}
	return FilingStatus(normalized), false
}
