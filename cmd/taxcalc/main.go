package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/forms"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
)

func main() {
	var (
		income  = pflag.Float64P("income", "i", 0, "annual gross income in USD")
		status  = pflag.StringP("status", "s", string(constants.Single), "filing status: single, married, head_of_household, qualifying_widow")
		asJSON  = pflag.Bool("json", false, "print the full result as JSON")
		showAll = pflag.Bool("brackets", false, "print the per-bracket breakdown")
	)
	pflag.Parse()

	// negative income is clamped to zero taxable income by the engine
	if err := common.NewValidator().Field("income", *income, common.Finite).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	engine, err := taxcalc.NewDefaultEngine(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, known := constants.CanonicalizeFilingStatus(*status)
	r := engine.Calculate(*income, s)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !known {
		fmt.Printf("Note: %q is not a recognized filing status; %s rates were applied.\n\n", *status, r.Status)
	}
	fmt.Printf("Filing Status:      %s\n", r.Status)
	fmt.Printf("Gross Income:       %s\n", forms.Dollars(r.Income))
	fmt.Printf("Standard Deduction: %s\n", forms.Dollars(r.StandardDeduction))
	fmt.Printf("Taxable Income:     %s\n", forms.Dollars(r.TaxableIncome))
	fmt.Printf("Tax Amount:         %s\n", forms.Dollars(r.TaxAmount))
	fmt.Printf("Effective Rate:     %s\n", forms.Percent(r.EffectiveRate))
	fmt.Printf("Marginal Bracket:   %s\n", r.Bracket.Label)
	if *showAll {
		fmt.Println()
		for _, sl := range r.Slices {
			fmt.Printf("  %-12s %14s -> %s\n", sl.Bracket.Label, forms.Dollars(sl.Amount), forms.Dollars(sl.Tax))
		}
	}
}
