package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

// MaxPlausibleAmount is the largest currency amount accepted without being
// flagged as suspicious.
var MaxPlausibleAmount = decimal.NewFromInt(999_999_999)

// $ followed by either comma-grouped digits or a plain run of digits, with
// optional cents.
var currencyPattern = regexp.MustCompile(`\$\s*(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?`)

// ParseCurrency converts a matched "$1,234.56" string to a decimal.
func ParseCurrency(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)
	return decimal.NewFromString(strings.Join(strings.Fields(cleaned), ""))
}

func checkCurrency(doc entity.TaxDocument) []string {
	var errs []string
	for _, m := range currencyPattern.FindAllString(doc.Content, -1) {
		amount, err := ParseCurrency(m)
		if err != nil || amount.IsNegative() {
			errs = append(errs, "Invalid currency amount: "+m)
			continue
		}
		if amount.GreaterThan(MaxPlausibleAmount) {
			errs = append(errs, "Suspiciously large amount: "+m)
		}
	}
	return errs
}
