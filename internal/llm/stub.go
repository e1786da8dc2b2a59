package llm

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

const stubPayload = `{
  "personalInfo": {
    "firstName": "John",
    "lastName": "Doe",
    "ssn": "***-**-1234",
    "address": {"street": "123 Main St", "city": "Anytown", "state": "CA", "zipCode": "12345"},
    "dateOfBirth": "1985-06-15"
  },
  "income": {
    "wages": 75000, "selfEmployment": 0, "interest": 500, "dividends": 200,
    "capitalGains": 0, "rentalIncome": 0, "otherIncome": 0
  },
  "deductions": {
    "itemizedDeductions": 0, "businessExpenses": 0,
    "retirementContributions": 6000, "healthSavingsAccount": 0
  },
  "credits": {
    "childTaxCredit": 0, "earnedIncomeCredit": 0, "educationCredits": 0, "otherCredits": 0
  }
}`

// StubExtractor ignores document content and answers with a fixed payload.
// The payload still goes through the same parsing and schema checks as a
// live model response.
type StubExtractor struct {
	payload []byte
	logger  *slog.Logger
}

func NewStubExtractor(logger *slog.Logger) *StubExtractor {
	return NewStubExtractorWithPayload([]byte(stubPayload), logger)
}

func NewStubExtractorWithPayload(payload []byte, logger *slog.Logger) *StubExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubExtractor{payload: payload, logger: logger}
}

func (s *StubExtractor) Extract(ctx context.Context, req ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
	if err := ctx.Err(); err != nil {
		return entity.ExtractedFilingData{}, nil, err
	}
	s.logger.Info("llm.stub.extract", "documents", len(req.Documents), "tax_year", req.TaxYear)
	return ParseFilingResponse(s.payload, req.FilingStatus, req.TaxYear, s.logger)
}
