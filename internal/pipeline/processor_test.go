package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/filing"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/repository"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/validation"
)

const sampleW2 = `FORM W-2 Wage and Tax Statement
Employee: John Doe
SSN: ***-**-1234
Employer: Acme Corp
Wages: $50,000
Federal Income Tax Withheld: $5,000`

// countingExtractor records calls and delegates to fn.
type countingExtractor struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error)
}

func (c *countingExtractor) Extract(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
	c.calls.Add(1)
	return c.fn(ctx, req)
}

func newTestProcessor(t *testing.T, ex llm.Extractor, opts Options) *Processor {
	t.Helper()
	engine, err := taxcalc.NewDefaultEngine(nil)
	if err != nil {
		t.Fatalf("NewDefaultEngine() error = %v", err)
	}
	docs := repository.NewMemoryDocumentRepository(nil)
	t.Cleanup(func() { _ = docs.Close() })
	return NewProcessor(nil, docs, validation.New(nil), ex, filing.NewCalculator(engine, nil), filing.NewAssembler(nil), opts)
}

func upload(t *testing.T, p *Processor, filename, content string, docType constants.DocumentType) string {
	t.Helper()
	res, err := p.Upload(context.Background(), filename, content, docType)
	if err != nil {
		t.Fatalf("Upload(%s) error = %v", filename, err)
	}
	return res.Document.ID
}

func TestUpload(t *testing.T) {
	p := newTestProcessor(t, llm.NewStubExtractor(nil), Options{})
	res, err := p.Upload(context.Background(), "w2_2024.txt", sampleW2, constants.W2)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(res.Document.ID, "doc_") {
		t.Errorf("ID = %q, want doc_ prefix", res.Document.ID)
	}
	if !res.Validation.IsValid {
		t.Errorf("expected valid document, errors = %v", res.Validation.Errors)
	}

	res, err = p.Upload(context.Background(), "w2.txt", "SSN 123-45-6789 on a W-2 wage form", constants.W2)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Validation.IsValid {
		t.Error("unmasked SSN document reported valid")
	}
}

func TestUploadRejectsBadArguments(t *testing.T) {
	p := newTestProcessor(t, llm.NewStubExtractor(nil), Options{})
	tests := []struct {
		name, filename, content string
		docType                 constants.DocumentType
	}{
		{"unknown type", "a.txt", sampleW2, "w9"},
		{"empty filename", " ", sampleW2, constants.W2},
		{"empty content", "a.txt", "", constants.W2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Upload(context.Background(), tt.filename, tt.content, tt.docType)
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestGenerateFilingXMLMatchesJSON(t *testing.T) {
	p := newTestProcessor(t, llm.NewRulesExtractor(nil), Options{StrictValidation: true})
	id := upload(t, p, "w2_2024.txt", sampleW2, constants.W2)

	xmlRes, err := p.GenerateFiling(context.Background(), []string{id}, constants.Single, 2024, constants.FormatXML)
	if err != nil {
		t.Fatalf("GenerateFiling(xml) error = %v", err)
	}
	content := xmlRes.Forms[0].Content
	if !strings.Contains(content, "<Form1040>") || !strings.Contains(content, "</Form1040>") {
		t.Fatalf("xml form missing Form1040 element:\n%s", content)
	}
	if !strings.Contains(content, "<TotalIncome>50000</TotalIncome>") {
		t.Errorf("xml TotalIncome mismatch:\n%s", content)
	}

	jsonRes, err := p.GenerateFiling(context.Background(), []string{id}, constants.Single, 2024, constants.FormatJSON)
	if err != nil {
		t.Fatalf("GenerateFiling(json) error = %v", err)
	}
	var j struct {
		Income struct {
			TotalIncome float64 `json:"totalIncome"`
		} `json:"income"`
	}
	if err := json.Unmarshal([]byte(jsonRes.Forms[0].Content), &j); err != nil {
		t.Fatal(err)
	}
	if j.Income.TotalIncome != 50000 {
		t.Errorf("json TotalIncome = %v, want 50000", j.Income.TotalIncome)
	}

	if jsonRes.Tax.TaxableIncome != 35400 || jsonRes.Tax.FinalTax != 4016 {
		t.Errorf("tax = %v/%v, want 35400/4016", jsonRes.Tax.TaxableIncome, jsonRes.Tax.FinalTax)
	}
	if jsonRes.Summary.FilingDeadline != "Tuesday, April 15, 2025" || jsonRes.Summary.TaxOwed != 4016 {
		t.Errorf("unexpected summary: %+v", jsonRes.Summary)
	}
}

func TestProcessDocumentsNoDocuments(t *testing.T) {
	ex := &countingExtractor{fn: func(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
		return entity.ExtractedFilingData{}, nil, nil
	}}
	p := newTestProcessor(t, ex, Options{})
	known := upload(t, p, "w2.txt", sampleW2, constants.W2)

	for name, ids := range map[string][]string{
		"empty":          nil,
		"unknown":        {"doc_0_missing"},
		"partly unknown": {known, "doc_0_missing"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.ProcessDocuments(context.Background(), ids, constants.Single, 2024)
			if err == nil || !strings.Contains(err.Error(), "No documents found for processing") {
				t.Errorf("error = %v, want No documents found for processing", err)
			}
		})
	}
	if n := ex.calls.Load(); n != 0 {
		t.Errorf("extractor called %d times, want 0", n)
	}
}

func TestProcessDocumentsExtractionFailure(t *testing.T) {
	cause := errors.New("model unavailable")
	ex := &countingExtractor{fn: func(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
		return entity.ExtractedFilingData{}, nil, cause
	}}
	p := newTestProcessor(t, ex, Options{})
	id := upload(t, p, "w2.txt", sampleW2, constants.W2)

	_, err := p.GenerateFiling(context.Background(), []string{id}, constants.Single, 2024, constants.FormatText)
	if err == nil || err.Error() != "processing failed: model unavailable" {
		t.Fatalf("error = %v, want processing failed: model unavailable", err)
	}
	if !errors.Is(err, common.ErrExtraction) || !errors.Is(err, cause) {
		t.Errorf("error %v does not match ErrExtraction and its cause", err)
	}
	if n := ex.calls.Load(); n != 1 {
		t.Errorf("extractor called %d times, want exactly 1", n)
	}
}

func TestProcessDocumentsTimeout(t *testing.T) {
	ex := &countingExtractor{fn: func(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
		<-ctx.Done()
		return entity.ExtractedFilingData{}, nil, ctx.Err()
	}}
	p := newTestProcessor(t, ex, Options{ExtractTimeout: 20 * time.Millisecond})
	id := upload(t, p, "w2.txt", sampleW2, constants.W2)

	_, err := p.ProcessDocuments(context.Background(), []string{id}, constants.Single, 2024)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if n := ex.calls.Load(); n != 1 {
		t.Errorf("extractor called %d times, want 1", n)
	}
}

func TestStrictValidationGate(t *testing.T) {
	bad := "FORM W-2 Wage and Tax Statement Employee SSN 123-45-6789 Employer Acme"

	ex := &countingExtractor{fn: llm.NewStubExtractor(nil).Extract}
	strict := newTestProcessor(t, ex, Options{StrictValidation: true})
	id := upload(t, strict, "w2.txt", bad, constants.W2)
	_, err := strict.ProcessDocuments(context.Background(), []string{id}, constants.Single, 2024)
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "w2.txt: ") {
		t.Errorf("error %v does not name the document", err)
	}
	if ex.calls.Load() != 0 {
		t.Error("extractor ran despite validation errors")
	}

	lenient := newTestProcessor(t, llm.NewStubExtractor(nil), Options{StrictValidation: false})
	id = upload(t, lenient, "w2.txt", bad, constants.W2)
	if _, err := lenient.ProcessDocuments(context.Background(), []string{id}, constants.Single, 2024); err != nil {
		t.Errorf("lenient ProcessDocuments() error = %v", err)
	}
}

func TestStrictGateAllowsDuplicateTypes(t *testing.T) {
	p := newTestProcessor(t, llm.NewRulesExtractor(nil), Options{StrictValidation: true})
	a := upload(t, p, "w2_a.txt", sampleW2, constants.W2)
	b := upload(t, p, "w2_b.txt", sampleW2, constants.W2)
	data, err := p.ProcessDocuments(context.Background(), []string{a, b}, constants.Married, 2024)
	if err != nil {
		t.Fatalf("ProcessDocuments() error = %v", err)
	}
	if data.Income.Wages != 100000 {
		t.Errorf("wages = %v, want 100000", data.Income.Wages)
	}
}

func TestProcessDocumentsRejectsBadRequest(t *testing.T) {
	p := newTestProcessor(t, llm.NewStubExtractor(nil), Options{})
	id := upload(t, p, "w2.txt", sampleW2, constants.W2)
	if _, err := p.ProcessDocuments(context.Background(), []string{id}, "alien", 2024); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("unknown status: error = %v, want ErrInvalidInput", err)
	}
	if _, err := p.ProcessDocuments(context.Background(), []string{id}, constants.Single, 1850); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("bad year: error = %v, want ErrInvalidInput", err)
	}
}

const overflowingPayload = `{
  "personalInfo": {
    "firstName": "John", "lastName": "Doe", "ssn": "***-**-1234",
    "address": {"street": "123 Main St", "city": "Anytown", "state": "CA", "zipCode": "12345"},
    "dateOfBirth": "1985-06-15"
  },
  "income": {"wages": 1.7e308, "selfEmployment": 0, "interest": 1.7e308, "dividends": 0,
    "capitalGains": 0, "rentalIncome": 0, "otherIncome": 0},
  "deductions": {"itemizedDeductions": 0, "businessExpenses": 0, "retirementContributions": 0, "healthSavingsAccount": 0},
  "credits": {"childTaxCredit": 0, "earnedIncomeCredit": 0, "educationCredits": 0, "otherCredits": 0}
}`

func TestGenerateFilingRejectsOverflowingExtraction(t *testing.T) {
	p := newTestProcessor(t, llm.NewStubExtractorWithPayload([]byte(overflowingPayload), nil), Options{})
	id := upload(t, p, "w2.txt", sampleW2, constants.W2)

	_, err := p.GenerateFiling(context.Background(), []string{id}, constants.Single, 2024, constants.FormatJSON)
	if !errors.Is(err, common.ErrExtraction) {
		t.Fatalf("error = %v, want extraction failure", err)
	}
}
