package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/forms"
	processor "github.com/joseph-ayodele/tax-filing-buddy/internal/pipeline"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
)

const (
	ToolCalculateTax        = "calculateTax"
	ToolFilingStatusInfo    = "getFilingStatusInfo"
	ToolFilingDeadline      = "getFilingDeadline"
	ToolUploadTaxDocument   = "uploadTaxDocument"
	ToolProcessTaxDocuments = "processTaxDocuments"
	ToolGenerateTaxFiling   = "generateTaxFiling"
	ToolWhoAreYou           = "whoAreYou"
	ToolTaxAssistance       = "getTaxAssistance"
)

// ToolResult is the text a tool produces. IsError marks a failed call; the
// text then explains the failure.
type ToolResult struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}

type toolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolService exposes calculator and filing operations as named tools with
// loosely typed arguments, shared by the gRPC and HTTP surfaces.
type ToolService struct {
	engine *taxcalc.Engine
	proc   *processor.Processor
	logger *slog.Logger
	now    func() time.Time
	tools  map[string]toolFunc
}

func NewToolService(engine *taxcalc.Engine, proc *processor.Processor, logger *slog.Logger) *ToolService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ToolService{engine: engine, proc: proc, logger: logger, now: time.Now}
	s.tools = map[string]toolFunc{
		ToolCalculateTax:        s.calculateTax,
		ToolFilingStatusInfo:    s.filingStatusInfo,
		ToolFilingDeadline:      s.filingDeadline,
		ToolUploadTaxDocument:   s.uploadTaxDocument,
		ToolProcessTaxDocuments: s.processTaxDocuments,
		ToolGenerateTaxFiling:   s.generateTaxFiling,
		ToolWhoAreYou:           s.whoAreYou,
		ToolTaxAssistance:       s.taxAssistance,
	}
	return s
}

// Names lists the registered tools in sorted order.
func (s *ToolService) Names() []string {
	names := make([]string, 0, len(s.tools))
	for n := range s.tools {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the named tool. Only an unknown tool name is returned as an
// error; failures inside a tool come back as a ToolResult with IsError set.
func (s *ToolService) Dispatch(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	fn, ok := s.tools[name]
	if !ok {
		return ToolResult{}, common.NewAppError("UNKNOWN_TOOL", fmt.Sprintf("unknown tool %q", name), common.ErrNotFound)
	}
	if args == nil {
		args = map[string]any{}
	}
	ctx, rid := common.EnsureRequestID(ctx)

	start := time.Now()
	text, err := fn(ctx, args)
	if err != nil {
		s.logger.Warn("tools.call.failed",
			"req_id", rid, "tool", name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ToolResult{Text: "Error: " + userMessage(err), IsError: true}, nil
	}
	s.logger.Info("tools.call.ok",
		"req_id", rid, "tool", name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ToolResult{Text: text}, nil
}

func userMessage(err error) string {
	var perr *processor.ProcessingError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	var app *common.AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return err.Error()
}

func (s *ToolService) calculateTax(_ context.Context, args map[string]any) (string, error) {
	income, err := argNumber(args, "income", true)
	if err != nil {
		return "", err
	}
	rawStatus, _ := argString(args, "filingStatus")
	if err := common.NewValidator().
		Field("income", income, common.Finite).
		Field("filingStatus", rawStatus, common.Required).
		Err(); err != nil {
		return "", err
	}

	status, _ := constants.CanonicalizeFilingStatus(rawStatus)
	r := s.engine.Calculate(income, status)
	_, table, _ := s.engine.Resolve(r.Status)

	var b strings.Builder
	b.WriteString("Tax Calculation Results:\n\n")
	fmt.Fprintf(&b, "Filing Status: %s\n", table.Description)
	fmt.Fprintf(&b, "Gross Income: %s\n", forms.Dollars(income))
	fmt.Fprintf(&b, "Standard Deduction: %s\n", forms.Dollars(r.StandardDeduction))
	fmt.Fprintf(&b, "Taxable Income: %s\n", forms.Dollars(r.TaxableIncome))
	fmt.Fprintf(&b, "Tax Amount: %s\n", forms.Dollars(r.TaxAmount))
	fmt.Fprintf(&b, "Effective Tax Rate: %s%%\n", strconv.FormatFloat(r.EffectiveRate, 'f', 2, 64))
	fmt.Fprintf(&b, "Tax Bracket: %s", r.Bracket.Label)
	if r.FellBack {
		fmt.Fprintf(&b, "\n\nNote: %q is not a recognized filing status; %s rates were applied.", rawStatus, r.Status)
	}
	return b.String(), nil
}

func (s *ToolService) filingStatusInfo(_ context.Context, args map[string]any) (string, error) {
	year := s.engine.Year()
	raw, ok := argString(args, "status")
	if !ok || strings.TrimSpace(raw) == "" {
		var b strings.Builder
		fmt.Fprintf(&b, "Available Filing Statuses and Standard Deductions (%d):\n\n", year)
		for _, info := range s.engine.Statuses() {
			fmt.Fprintf(&b, "• %s: %s\n", info.Description, forms.Dollars(info.StandardDeduction))
		}
		b.WriteString("\nUse the 'status' parameter to get detailed information about a specific filing status.")
		return b.String(), nil
	}

	status, known := constants.CanonicalizeFilingStatus(raw)
	if !known {
		return "", common.NewAppError("INVALID_ARGUMENT",
			fmt.Sprintf("unknown filing status %q; expected one of %s", raw, strings.Join(constants.FilingStatusStrings(), ", ")),
			common.ErrInvalidInput)
	}
	for _, info := range s.engine.Statuses() {
		if info.Status != status {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Filing Status: %s\n", info.Description)
		fmt.Fprintf(&b, "Standard Deduction (%d): %s\n\n", year, forms.Dollars(info.StandardDeduction))
		b.WriteString("Tax Brackets:")
		for _, br := range info.Brackets {
			upper := "unlimited"
			if br.MaxIncome != nil {
				upper = forms.Dollars(*br.MaxIncome)
			}
			fmt.Fprintf(&b, "\n• %s - %s: %s", forms.Dollars(br.MinIncome), upper, ratePercent(br.Rate))
		}
		return b.String(), nil
	}
	return "", common.NewAppError("NOT_FOUND", fmt.Sprintf("no %d table for filing status %q", year, status), common.ErrNotFound)
}

func (s *ToolService) filingDeadline(_ context.Context, args map[string]any) (string, error) {
	now := s.now()
	year := now.Year()
	if v, err := argNumber(args, "year", false); err != nil {
		return "", err
	} else if v != 0 {
		if v != math.Trunc(v) {
			return "", common.NewAppError("INVALID_ARGUMENT", "year must be a whole number", common.ErrInvalidInput)
		}
		year = int(v)
	}

	deadline := taxcalc.FilingDeadline(year)
	text := fmt.Sprintf("Tax Filing Deadline for %d:\n%s", year, taxcalc.FormatDeadline(deadline))
	if year == now.Year() {
		switch days := taxcalc.DaysUntil(deadline, now); {
		case days > 0:
			text += fmt.Sprintf("\n\nYou have %d days until the deadline.", days)
		case days == 0:
			text += "\n\nToday is the deadline!"
		default:
			text += "\n\nThe deadline has passed. Consider filing for an extension if needed."
		}
	}
	return text, nil
}

func (s *ToolService) uploadTaxDocument(ctx context.Context, args map[string]any) (string, error) {
	filename, _ := argString(args, "filename")
	content, _ := argString(args, "content")
	rawType, _ := argString(args, "documentType")
	docType, ok := constants.CanonicalizeDocumentType(rawType)
	if !ok {
		// pass the raw value through so the processor reports it
		docType = constants.DocumentType(rawType)
	}

	res, err := s.proc.Upload(ctx, filename, content, docType)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Document uploaded successfully.\n\n")
	fmt.Fprintf(&b, "Document ID: %s\n", res.Document.ID)
	fmt.Fprintf(&b, "Filename: %s\n", res.Document.Filename)
	fmt.Fprintf(&b, "Type: %s\n", res.Document.Type)
	if res.Validation.IsValid {
		b.WriteString("Validation: passed")
	} else {
		b.WriteString("Validation: failed")
	}
	writeList(&b, "Errors", res.Validation.Errors)
	writeList(&b, "Warnings", res.Validation.Warnings)
	return b.String(), nil
}

// filingArgs reads the arguments shared by the process and generate tools.
func filingArgs(args map[string]any) ([]string, constants.FilingStatus, int, error) {
	ids, err := argStrings(args, "documentIds")
	if err != nil {
		return nil, "", 0, err
	}
	rawStatus, _ := argString(args, "filingStatus")
	status, _ := constants.CanonicalizeFilingStatus(rawStatus)
	year, err := argNumber(args, "taxYear", true)
	if err != nil {
		return nil, "", 0, err
	}
	if year != math.Trunc(year) {
		return nil, "", 0, common.NewAppError("INVALID_ARGUMENT", "taxYear must be a whole number", common.ErrInvalidInput)
	}
	return ids, status, int(year), nil
}

func (s *ToolService) processTaxDocuments(ctx context.Context, args map[string]any) (string, error) {
	ids, status, year, err := filingArgs(args)
	if err != nil {
		return "", err
	}
	data, err := s.proc.ProcessDocuments(ctx, ids, status, year)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Processed %d document(s) for tax year %d.\n\nExtracted Data:\n%s", len(ids), year, out), nil
}

func (s *ToolService) generateTaxFiling(ctx context.Context, args map[string]any) (string, error) {
	ids, status, year, err := filingArgs(args)
	if err != nil {
		return "", err
	}
	rawFormat, _ := argString(args, "outputFormat")
	format, _ := constants.CanonicalizeOutputFormat(rawFormat)

	res, err := s.proc.GenerateFiling(ctx, ids, status, year, format)
	if err != nil {
		return "", err
	}
	return FormatFiling(res), nil
}

// FormatFiling renders a generated filing as the summary followed by every
// form's content.
func FormatFiling(res entity.FilingResult) string {
	sum := res.Summary
	var b strings.Builder
	b.WriteString("Tax Filing Generated Successfully\n\n")
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "Total Income: %s\n", forms.Dollars(sum.TotalIncome))
	fmt.Fprintf(&b, "Total Deductions: %s\n", forms.Dollars(sum.TotalDeductions))
	fmt.Fprintf(&b, "Total Credits: %s\n", forms.Dollars(sum.TotalCredits))
	fmt.Fprintf(&b, "Tax Owed: %s\n", forms.Dollars(sum.TaxOwed))
	fmt.Fprintf(&b, "Refund Amount: %s\n", forms.Dollars(sum.RefundAmount))
	fmt.Fprintf(&b, "Filing Deadline: %s\n", sum.FilingDeadline)
	fmt.Fprintf(&b, "Estimated Processing Time: %s\n", sum.EstimatedProcessingTime)
	fmt.Fprintf(&b, "\nGenerated Forms (%d):\n", len(res.Forms))
	for _, f := range res.Forms {
		fmt.Fprintf(&b, "\n=== Form %s: %s ===\n", f.FormNumber, f.FormType)
		fmt.Fprintf(&b, "Instructions: %s\n\n", f.Instructions)
		b.WriteString(f.Content)
		b.WriteString("\n")
	}
	return b.String()
}

var capabilities = []string{
	"Tax calculation",
	"Filing status information",
	"Tax bracket lookup",
	"Filing deadline information",
	"Tax document upload and validation",
	"Filing generation (JSON, XML, IRS e-file, mail-ready, text)",
	"General tax guidance",
}

func (s *ToolService) whoAreYou(context.Context, map[string]any) (string, error) {
	var b strings.Builder
	b.WriteString("I am Tax Filing Buddy, your assistant for federal income tax filing.\n\n")
	b.WriteString("My capabilities include:")
	for _, c := range capabilities {
		b.WriteString("\n• " + c)
	}
	return b.String(), nil
}

var assistanceTopics = []string{
	"deductions",
	"credits",
	"extensions",
	"refunds",
	"payment plans",
	"business expenses",
	"home office",
	"charitable donations",
	"retirement accounts",
}

// assistanceGuides are checked in order; the first with a matching keyword wins.
var assistanceGuides = []struct {
	keywords []string
	text     string
}{
	{[]string{"deduction", "deduct"}, "Common deductions include:\n" +
		"• Standard deduction (varies by filing status)\n" +
		"• State and local taxes (SALT)\n" +
		"• Mortgage interest\n" +
		"• Charitable contributions\n" +
		"• Medical expenses (if over 7.5% of AGI)\n" +
		"• Business expenses (if self-employed)"},
	{[]string{"credit", "refund"}, "Common tax credits include:\n" +
		"• Child Tax Credit\n" +
		"• Earned Income Tax Credit (EITC)\n" +
		"• American Opportunity Credit (education)\n" +
		"• Lifetime Learning Credit\n" +
		"• Child and Dependent Care Credit"},
	{[]string{"extension", "deadline"}, "If you need more time to file:\n" +
		"• File Form 4868 for an automatic 6-month extension\n" +
		"• Extension must be filed by the original deadline\n" +
		"• Extension gives you time to file, not to pay\n" +
		"• You may still owe penalties and interest on unpaid taxes"},
	{[]string{"payment", "owe"}, "Payment options if you owe taxes:\n" +
		"• Installment Agreement (Form 9465)\n" +
		"• Offer in Compromise\n" +
		"• Currently Not Collectible status\n" +
		"• Pay with credit card (fees apply)\n" +
		"• Set up automatic payments"},
}

func (s *ToolService) taxAssistance(_ context.Context, args map[string]any) (string, error) {
	question, ok := argString(args, "question")
	if !ok {
		question, _ = argString(args, "topic")
	}
	if err := common.NewValidator().Field("question", question, common.Required).Err(); err != nil {
		return "", err
	}

	lower := strings.ToLower(question)
	text := fmt.Sprintf("As your Tax Filing Buddy, I'm here to help with: %q\n\n", question)
	for _, g := range assistanceGuides {
		for _, k := range g.keywords {
			if strings.Contains(lower, k) {
				return text + g.text, nil
			}
		}
	}
	return text + "Please provide more specific details about your tax situation so I can give you the best guidance possible. " +
		"Common topics I can help with include: " + strings.Join(assistanceTopics, ", "), nil
}

func ratePercent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 0, 64) + "%"
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n\n%s:", title)
	for _, it := range items {
		b.WriteString("\n• " + it)
	}
}
