package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

var (
	ErrNoJSON = errors.New("no JSON object in extraction response")
	// ErrNonFinite is returned when a derived total overflows float64.
	ErrNonFinite = errors.New("extracted totals are not finite")
)

// MissingFieldsError lists every required leaf absent from a response.
type MissingFieldsError struct {
	Paths []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required field: " + strings.Join(e.Paths, ", ")
}

type filingPayload struct {
	PersonalInfo entity.PersonalInfo `json:"personalInfo"`
	Income       entity.Income       `json:"income"`
	Deductions   entity.Deductions   `json:"deductions"`
	Credits      entity.Credits      `json:"credits"`
}

// ExtractJSONObject returns the span from the first '{' to the last '}' so
// prose or code fences around the object are ignored.
func ExtractJSONObject(text []byte) ([]byte, error) {
	start := bytes.IndexByte(text, '{')
	end := bytes.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return text[start : end+1], nil
}

// MissingPaths reports required leaves absent from a decoded response.
func MissingPaths(m map[string]any) []string {
	var missing []string
	for _, p := range RequiredPaths() {
		if _, ok := lookup(m, strings.Split(p, ".")); !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

func lookup(m map[string]any, keys []string) (any, bool) {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[k]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// ParseFilingResponse turns extractor output into filing data. The returned
// bytes are the normalized JSON that passed validation.
func ParseFilingResponse(text []byte, status constants.FilingStatus, taxYear int, logger *slog.Logger) (entity.ExtractedFilingData, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	obj, err := ExtractJSONObject(text)
	if err != nil {
		return entity.ExtractedFilingData{}, nil, err
	}

	cleaned, _, err := NormalizeFilingJSON(obj, logger)
	if err != nil {
		return entity.ExtractedFilingData{}, obj, err
	}

	var m map[string]any
	if err := json.Unmarshal(cleaned, &m); err != nil {
		return entity.ExtractedFilingData{}, cleaned, fmt.Errorf("decode response: %w", err)
	}
	if missing := MissingPaths(m); len(missing) > 0 {
		logger.Warn("llm.parse.missing_fields", "paths", missing)
		return entity.ExtractedFilingData{}, cleaned, &MissingFieldsError{Paths: missing}
	}
	if err := ValidateFilingJSON(cleaned); err != nil {
		logger.Error("llm.parse.schema_validation_failed", "error", err)
		return entity.ExtractedFilingData{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var p filingPayload
	if err := json.Unmarshal(cleaned, &p); err != nil {
		return entity.ExtractedFilingData{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}
	data := entity.NewExtractedFilingData(p.PersonalInfo, p.Income, p.Deductions, p.Credits, status, taxYear)
	if err := checkFinite(data); err != nil {
		logger.Error("llm.parse.non_finite", "error", err)
		return entity.ExtractedFilingData{}, cleaned, err
	}
	return data, cleaned, nil
}

func checkFinite(data entity.ExtractedFilingData) error {
	totals := []struct {
		name string
		v    float64
	}{
		{"income.totalIncome", data.Income.TotalIncome},
		{"deductions.totalDeductions", data.Deductions.TotalDeductions},
		{"credits.totalCredits", data.Credits.TotalCredits},
	}
	for _, t := range totals {
		if math.IsInf(t.v, 0) || math.IsNaN(t.v) {
			return fmt.Errorf("%w: %s", ErrNonFinite, t.name)
		}
	}
	return nil
}
