package llm

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

// mutatePayload decodes the stub payload, applies fn and re-encodes it.
func mutatePayload(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(stubPayload), &m); err != nil {
		t.Fatalf("decode stub payload: %v", err)
	}
	fn(m)
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return b
}

func section(m map[string]any, name string) map[string]any {
	return m[name].(map[string]any)
}

func TestParseStubPayload(t *testing.T) {
	got, raw, err := ParseFilingResponse([]byte(stubPayload), constants.Married, 2024, nil)
	if err != nil {
		t.Fatalf("ParseFilingResponse() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected normalized JSON to be returned")
	}
	want := entity.ExtractedFilingData{
		PersonalInfo: entity.PersonalInfo{
			FirstName:   "John",
			LastName:    "Doe",
			SSN:         "***-**-1234",
			Address:     entity.Address{Street: "123 Main St", City: "Anytown", State: "CA", ZipCode: "12345"},
			DateOfBirth: "1985-06-15",
		},
		Income:       entity.Income{Wages: 75000, Interest: 500, Dividends: 200, TotalIncome: 75700},
		Deductions:   entity.Deductions{RetirementContributions: 6000, TotalDeductions: 6000},
		Credits:      entity.Credits{},
		FilingStatus: constants.Married,
		TaxYear:      2024,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFilingResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIgnoresSurroundingProse(t *testing.T) {
	text := "Here is the extracted data:\n```json\n" + stubPayload + "\n```\nLet me know if you need more."
	got, _, err := ParseFilingResponse([]byte(text), constants.Single, 2024, nil)
	if err != nil {
		t.Fatalf("ParseFilingResponse() error = %v", err)
	}
	if got.Income.Wages != 75000 {
		t.Errorf("wages = %v, want 75000", got.Income.Wages)
	}
}

func TestParseNoJSON(t *testing.T) {
	_, _, err := ParseFilingResponse([]byte("I could not read these documents."), constants.Single, 2024, nil)
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("error = %v, want ErrNoJSON", err)
	}
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		want    []string
		message string
	}{
		{
			name: "absent leaves",
			mutate: func(m map[string]any) {
				delete(section(m, "income"), "wages")
				delete(section(m, "credits"), "otherCredits")
			},
			want:    []string{"income.wages", "credits.otherCredits"},
			message: "Missing required field: income.wages, credits.otherCredits",
		},
		{
			name: "null counts as missing",
			mutate: func(m map[string]any) {
				section(m, "deductions")["businessExpenses"] = nil
			},
			want:    []string{"deductions.businessExpenses"},
			message: "Missing required field: deductions.businessExpenses",
		},
		{
			name: "nested address field",
			mutate: func(m map[string]any) {
				delete(section(section(m, "personalInfo"), "address"), "zipCode")
			},
			want:    []string{"personalInfo.address.zipCode"},
			message: "Missing required field: personalInfo.address.zipCode",
		},
		{
			name: "whole section",
			mutate: func(m map[string]any) {
				delete(m, "credits")
			},
			want: []string{"credits.childTaxCredit", "credits.earnedIncomeCredit", "credits.educationCredits", "credits.otherCredits"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFilingResponse(mutatePayload(t, tt.mutate), constants.Single, 2024, nil)
			var mf *MissingFieldsError
			if !errors.As(err, &mf) {
				t.Fatalf("error = %v, want *MissingFieldsError", err)
			}
			if diff := cmp.Diff(tt.want, mf.Paths); diff != "" {
				t.Errorf("paths mismatch (-want +got):\n%s", diff)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestParseSchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{
			name:   "negative amount",
			mutate: func(m map[string]any) { section(m, "income")["wages"] = -5 },
		},
		{
			name:   "amount above maximum",
			mutate: func(m map[string]any) { section(m, "credits")["otherCredits"] = 1_000_000_000 },
		},
		{
			name:   "unparsable amount",
			mutate: func(m map[string]any) { section(m, "income")["interest"] = "a lot" },
		},
		{
			name:   "object where string expected",
			mutate: func(m map[string]any) { section(m, "personalInfo")["firstName"] = map[string]any{"x": 1} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFilingResponse(mutatePayload(t, tt.mutate), constants.Single, 2024, nil)
			if err == nil {
				t.Fatal("expected schema error")
			}
			var mf *MissingFieldsError
			if errors.As(err, &mf) {
				t.Fatalf("got missing-field error %v, want schema error", err)
			}
			if !strings.Contains(err.Error(), "schema validation failed") {
				t.Errorf("error = %v, want schema validation failure", err)
			}
		})
	}
}

func TestParseRejectsOverflowingAmounts(t *testing.T) {
	payload := mutatePayload(t, func(m map[string]any) {
		section(m, "income")["wages"] = 1.7e308
		section(m, "income")["interest"] = 1.7e308
	})
	got, _, err := ParseFilingResponse(payload, constants.Single, 2024, nil)
	if err == nil {
		t.Fatalf("ParseFilingResponse() = %+v, want error", got.Income)
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Errorf("error = %v, want schema validation failure", err)
	}
}

func TestParseAcceptsMaxAmount(t *testing.T) {
	payload := mutatePayload(t, func(m map[string]any) { section(m, "income")["wages"] = MaxAmount })
	got, _, err := ParseFilingResponse(payload, constants.Single, 2024, nil)
	if err != nil {
		t.Fatalf("ParseFilingResponse() error = %v", err)
	}
	if got.Income.Wages != MaxAmount {
		t.Errorf("wages = %v, want %v", got.Income.Wages, MaxAmount)
	}
}

func TestCheckFinite(t *testing.T) {
	ok := entity.NewExtractedFilingData(entity.PersonalInfo{}, entity.Income{Wages: 1}, entity.Deductions{}, entity.Credits{}, constants.Single, 2024)
	if err := checkFinite(ok); err != nil {
		t.Errorf("checkFinite(finite) = %v", err)
	}

	inf := entity.NewExtractedFilingData(entity.PersonalInfo{},
		entity.Income{Wages: math.MaxFloat64, Interest: math.MaxFloat64},
		entity.Deductions{}, entity.Credits{}, constants.Single, 2024)
	err := checkFinite(inf)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("checkFinite(overflow) = %v, want ErrNonFinite", err)
	}
	if !strings.Contains(err.Error(), "income.totalIncome") {
		t.Errorf("error = %v, want the offending total named", err)
	}

	nan := entity.ExtractedFilingData{Credits: entity.Credits{TotalCredits: math.NaN()}}
	if err := checkFinite(nan); !errors.Is(err, ErrNonFinite) {
		t.Errorf("checkFinite(NaN) = %v, want ErrNonFinite", err)
	}
}

func TestParseLenientCoercion(t *testing.T) {
	payload := mutatePayload(t, func(m map[string]any) {
		section(m, "income")["wages"] = "75,000"
		section(m, "income")["interest"] = "$1,200.50"
		section(m, "income")["totalIncome"] = 1
		section(section(m, "personalInfo"), "address")["zipCode"] = 12345
		m["notes"] = "model commentary"
	})
	got, raw, err := ParseFilingResponse(payload, constants.Single, 2024, nil)
	if err != nil {
		t.Fatalf("ParseFilingResponse() error = %v", err)
	}
	if got.Income.Wages != 75000 || got.Income.Interest != 1200.5 {
		t.Errorf("income = %+v, want wages 75000 and interest 1200.5", got.Income)
	}
	if got.Income.TotalIncome != 75000+1200.5+200 {
		t.Errorf("totalIncome = %v, want recomputed sum", got.Income.TotalIncome)
	}
	if got.PersonalInfo.Address.ZipCode != "12345" {
		t.Errorf("zipCode = %q, want %q", got.PersonalInfo.Address.ZipCode, "12345")
	}
	if strings.Contains(string(raw), "notes") {
		t.Errorf("unknown key survived normalization: %s", raw)
	}
}

func TestNormalizeSnakeCase(t *testing.T) {
	in := `{"personal_info":{"first_name":"Ann","last_name":"Lee","ssn":"***-**-0001","date_of_birth":"1990-01-01",
"address":{"street":"1 Elm","city":"Springfield","state":"IL","zip_code":"62701"}},
"income":{"wages":1,"self_employment":2,"interest":0,"dividends":0,"capital_gains":0,"rental_income":0,"other_income":0},
"deductions":{"itemized_deductions":0,"business_expenses":0,"retirement_contributions":0,"health_savings_account":0},
"credits":{"child_tax_credit":0,"earned_income_credit":0,"education_credits":0,"other_credits":0}}`
	got, _, err := ParseFilingResponse([]byte(in), constants.Single, 2024, nil)
	if err != nil {
		t.Fatalf("ParseFilingResponse() error = %v", err)
	}
	if got.PersonalInfo.FirstName != "Ann" || got.PersonalInfo.Address.ZipCode != "62701" || got.Income.SelfEmployment != 2 {
		t.Errorf("snake_case keys not mapped: %+v", got)
	}
}

func TestRequiredPathsCoverSchema(t *testing.T) {
	paths := RequiredPaths()
	if len(paths) != 8+7+4+4 {
		t.Fatalf("len(RequiredPaths()) = %d, want 23", len(paths))
	}
	schema := BuildFilingJSONSchema()
	props := schema["properties"].(map[string]any)
	for _, p := range paths {
		parts := strings.Split(p, ".")
		cur := props
		for i, part := range parts {
			node, ok := cur[part].(map[string]any)
			if !ok {
				t.Fatalf("path %q not in schema at %q", p, part)
			}
			if i < len(parts)-1 {
				cur = node["properties"].(map[string]any)
			}
		}
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []string{"n"},
		"properties": map[string]any{
			"n": map[string]any{"type": "number", "minimum": 0},
		},
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"n": 3}`)); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"n": -1}`)); err == nil {
		t.Error("negative value accepted")
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`not json`)); err == nil {
		t.Error("invalid JSON accepted")
	}
}

func TestBuildUserPromptKeepsOrder(t *testing.T) {
	req := ExtractRequest{
		Documents: []SourceDocument{
			{Filename: "b.txt", Type: constants.Form1099, Content: "second"},
			{Filename: "a.txt", Type: constants.W2, Content: "first"},
		},
		FilingStatus: constants.Single,
		TaxYear:      2024,
	}
	p := BuildUserPrompt(req)
	i, j := strings.Index(p, "Document 1: b.txt (1099)"), strings.Index(p, "Document 2: a.txt (w2)")
	if i < 0 || j < 0 || i > j {
		t.Errorf("documents out of order in prompt:\n%s", p)
	}
	if !strings.Contains(p, "Tax year: 2024") {
		t.Error("prompt is missing the tax year")
	}
}
