package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildSystemPrompt states the output contract shared by every live model.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a tax document analyst. Extract the filer's personal information, income, deductions and credits from the documents.",
		"Return ONLY JSON that matches the provided JSON Schema, with no prose or code fences.",
		"Every field is required. Use 0 for amounts that do not appear in any document and an empty string for unknown text.",
		"Amounts are plain numbers in US dollars without currency symbols or thousands separators.",
		"Sum the same kind of income across documents (for example wages from two W-2 forms).",
		"Never output an unmasked social security number; keep only the last four digits as ***-**-1234.",
		"Dates use ISO-8601 (YYYY-MM-DD).",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt lists the documents in request order.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filing status: %s\nTax year: %d\n\n", req.FilingStatus, req.TaxYear)
	for i, d := range req.Documents {
		fmt.Fprintf(&b, "Document %d: %s (%s)\n", i+1, d.Filename, d.Type)
		b.WriteString(strings.TrimSpace(d.Content))
		b.WriteString("\n\n")
	}
	b.WriteString("JSON Schema:\n")
	b.WriteString(mustJSON(BuildFilingJSONSchema()))
	return b.String()
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
