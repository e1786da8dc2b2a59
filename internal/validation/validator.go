package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

const (
	MinContentLength = 10
	MaxContentLength = 50000
	shortContentHint = 100
)

// Result lists blocking errors and advisory warnings for one document or batch.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() Result {
	return Result{Errors: []string{}, Warnings: []string{}}
}

func (r *Result) finish() Result {
	r.IsValid = len(r.Errors) == 0
	return *r
}

// Rule is one named check producing error messages for a document.
type Rule struct {
	Name  string
	Check func(doc entity.TaxDocument) []string
}

// Validator applies the document rules in a fixed order. It never returns an
// error; every problem is reported in the Result.
type Validator struct {
	rules  []Rule
	logger *slog.Logger
}

func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		rules: []Rule{
			{Name: "required_fields", Check: checkRequiredFields},
			{Name: "content_length", Check: checkContentLength},
			{Name: "type_keywords", Check: checkTypeKeywords},
			{Name: "ssn_masking", Check: checkSSNMasking},
			{Name: "date_formats", Check: checkDates},
			{Name: "currency_values", Check: checkCurrency},
		},
		logger: logger,
	}
}

// RuleNames returns the rule names in evaluation order.
func (v *Validator) RuleNames() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name
	}
	return names
}

// Validate runs every rule against doc and collects warnings.
func (v *Validator) Validate(doc entity.TaxDocument) Result {
	res := newResult()
	for _, rule := range v.rules {
		res.Errors = append(res.Errors, rule.Check(doc)...)
	}
	res.Warnings = append(res.Warnings, warnings(doc)...)
	out := res.finish()

	v.logger.Debug("validate.document",
		"id", doc.ID,
		"filename", doc.Filename,
		"type", string(doc.Type),
		"errors", len(out.Errors),
		"warnings", len(out.Warnings),
	)
	return out
}

// ValidateBatch validates each document, prefixing its messages with the
// filename, then adds cross-document consistency errors.
func (v *Validator) ValidateBatch(docs []entity.TaxDocument) Result {
	res := newResult()
	for _, doc := range docs {
		r := v.Validate(doc)
		for _, e := range r.Errors {
			res.Errors = append(res.Errors, doc.Filename+": "+e)
		}
		for _, w := range r.Warnings {
			res.Warnings = append(res.Warnings, doc.Filename+": "+w)
		}
	}
	res.Errors = append(res.Errors, crossDocumentErrors(docs)...)
	out := res.finish()

	v.logger.Info("validate.batch",
		"documents", len(docs),
		"valid", out.IsValid,
		"errors", len(out.Errors),
		"warnings", len(out.Warnings),
	)
	return out
}

func checkRequiredFields(doc entity.TaxDocument) []string {
	var errs []string
	if strings.TrimSpace(doc.Filename) == "" {
		errs = append(errs, "Document filename is required")
	}
	if strings.TrimSpace(doc.Content) == "" {
		errs = append(errs, "Document content is required")
	}
	switch {
	case doc.Type == "":
		errs = append(errs, "Document type is required")
	case !doc.Type.Valid():
		errs = append(errs, fmt.Sprintf("Unsupported document type: %s", doc.Type))
	}
	return errs
}

func checkContentLength(doc entity.TaxDocument) []string {
	n := utf8.RuneCountInString(doc.Content)
	switch {
	case n < MinContentLength:
		return []string{fmt.Sprintf("Document content is too short (minimum %d characters)", MinContentLength)}
	case n > MaxContentLength:
		return []string{"Document content is too long (maximum 50,000 characters)"}
	}
	return nil
}

type keywordRule struct {
	label string
	// all keywords must appear; one error per missing keyword
	all []string
	// at least one keyword must appear; a single error otherwise
	any        []string
	anyMessage string
}

var keywordRules = map[constants.DocumentType]keywordRule{
	constants.W2:       {label: "W-2 document", all: []string{"w-2", "wage", "employer", "employee"}},
	constants.Form1099: {label: "1099 document", all: []string{"1099", "payer", "recipient"}},
	constants.Form1095: {label: "1095 document", all: []string{"1095", "health", "coverage", "employer"}},
	constants.Form1040: {label: "Form 1040", all: []string{"1040"}},
	constants.ScheduleC: {
		any:        []string{"business", "self-employment"},
		anyMessage: "Schedule C should contain business or self-employment information",
	},
	constants.ScheduleD: {
		any:        []string{"capital", "gain", "loss"},
		anyMessage: "Schedule D should contain capital gains/losses information",
	},
	constants.ScheduleE: {
		any:        []string{"rental", "royalty"},
		anyMessage: "Schedule E should contain rental or royalty income information",
	},
}

// RequiredKeywords returns the keywords a document of type t must contain.
func RequiredKeywords(t constants.DocumentType) []string {
	return slices.Clone(keywordRules[t].all)
}

func checkTypeKeywords(doc entity.TaxDocument) []string {
	rule, ok := keywordRules[doc.Type]
	if !ok {
		return nil
	}
	content := strings.ToLower(doc.Content)

	var errs []string
	for _, kw := range rule.all {
		if !strings.Contains(content, kw) {
			errs = append(errs, fmt.Sprintf("%s should contain '%s' information", rule.label, kw))
		}
	}
	if len(rule.any) > 0 && !slices.ContainsFunc(rule.any, func(kw string) bool {
		return strings.Contains(content, kw)
	}) {
		errs = append(errs, rule.anyMessage)
	}
	return errs
}

var ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9}\b`)

func checkSSNMasking(doc entity.TaxDocument) []string {
	var errs []string
	for _, m := range ssnPattern.FindAllString(doc.Content, -1) {
		if strings.Contains(m, "***") || strings.Contains(m, "XXX") {
			continue
		}
		errs = append(errs, "SSN should be masked (e.g., ***-**-1234) for security")
	}
	return errs
}

type datePattern struct {
	re *regexp.Regexp
	// indexes of year, month, day submatches
	y, m, d int
}

var datePatterns = []datePattern{
	{re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`), y: 3, m: 1, d: 2},
	{re: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`), y: 1, m: 2, d: 3},
	{re: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`), y: 3, m: 1, d: 2},
}

func checkDates(doc entity.TaxDocument) []string {
	var errs []string
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(doc.Content, -1) {
			year, _ := strconv.Atoi(m[p.y])
			month, _ := strconv.Atoi(m[p.m])
			day, _ := strconv.Atoi(m[p.d])
			if !validDate(year, month, day) {
				errs = append(errs, "Invalid date format: "+m[0])
			}
		}
	}
	return errs
}

// validDate reports whether the date exists and falls in 1901-2099.
// time.Date normalizes overflow (Feb 30 -> Mar 1), so a round trip that
// changes the month or day means the date does not exist.
func validDate(year, month, day int) bool {
	if year <= 1900 || year >= 2100 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

var warningWords = []struct {
	words   []string
	message string
}{
	{[]string{"test", "sample"}, "Document appears to contain test/sample data"},
	{[]string{"placeholder", "example"}, "Document contains placeholder or example data"},
}

func warnings(doc entity.TaxDocument) []string {
	content := strings.ToLower(doc.Content)
	var out []string
	for _, w := range warningWords {
		for _, word := range w.words {
			if strings.Contains(content, word) {
				out = append(out, w.message)
				break
			}
		}
	}
	if utf8.RuneCountInString(doc.Content) < shortContentHint {
		out = append(out, "Document content seems unusually short")
	}
	return out
}

var taxYearPattern = regexp.MustCompile(`\b20\d{2}\b`)

func crossDocumentErrors(docs []entity.TaxDocument) []string {
	var errs []string

	seen := map[constants.DocumentType]bool{}
	var dups []string
	for _, d := range docs {
		if seen[d.Type] && !slices.Contains(dups, string(d.Type)) {
			dups = append(dups, string(d.Type))
		}
		seen[d.Type] = true
	}
	if len(dups) > 0 {
		errs = append(errs, "Duplicate document types detected: "+strings.Join(dups, ", "))
	}

	years := map[string]bool{}
	for _, d := range docs {
		for _, y := range taxYearPattern.FindAllString(d.Content, -1) {
			years[y] = true
		}
	}
	if len(years) > 1 {
		list := make([]string, 0, len(years))
		for y := range years {
			list = append(list, y)
		}
		slices.Sort(list)
		errs = append(errs, "Multiple tax years detected across documents: "+strings.Join(list, ", "))
	}
	return errs
}
