package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/filing"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/repository"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/validation"
)

const (
	MinTaxYear = 1901
	MaxTaxYear = 2099

	DefaultExtractTimeout = 60 * time.Second
)

const noDocumentsMessage = "No documents found for processing"

// ProcessingError reports a failed extraction. It matches both the
// underlying cause and common.ErrExtraction.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return "processing failed: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() []error {
	return []error{e.Err, common.ErrExtraction}
}

type Options struct {
	// StrictValidation refuses extraction when any document has validation errors.
	StrictValidation bool
	ExtractTimeout   time.Duration
}

// Processor coordinates upload, validation, extraction, calculation and
// form assembly.
type Processor struct {
	Logger     *slog.Logger
	Docs       repository.DocumentRepository
	Validator  *validation.Validator
	Extractor  llm.Extractor
	Calculator *filing.Calculator
	Assembler  *filing.Assembler
	Opts       Options
}

func NewProcessor(
	logger *slog.Logger,
	docs repository.DocumentRepository,
	validator *validation.Validator,
	extractor llm.Extractor,
	calc *filing.Calculator,
	asm *filing.Assembler,
	opts Options,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = DefaultExtractTimeout
	}
	return &Processor{
		Logger:     logger,
		Docs:       docs,
		Validator:  validator,
		Extractor:  extractor,
		Calculator: calc,
		Assembler:  asm,
		Opts:       opts,
	}
}

// UploadResult is the stored document plus its validation findings.
type UploadResult struct {
	Document   entity.TaxDocument
	Validation validation.Result
}

// Upload stores a document and validates it. Validation findings are
// returned as data; only bad arguments or store failures are errors.
func (p *Processor) Upload(ctx context.Context, filename, content string, docType constants.DocumentType) (UploadResult, error) {
	v := common.NewValidator().
		Field("filename", filename, common.Required).
		Field("content", content, common.Required).
		Field("documentType", string(docType), common.OneOf(constants.DocumentTypeStrings()...))
	if err := v.Err(); err != nil {
		return UploadResult{}, err
	}

	doc, err := p.Docs.Put(ctx, filename, content, docType)
	if err != nil {
		p.Logger.Error("pipeline.upload.store_error", "filename", filename, "error", err)
		return UploadResult{}, err
	}
	res := p.Validator.Validate(doc)
	p.Logger.Info("pipeline.upload.ok",
		"document_id", doc.ID,
		"type", string(doc.Type),
		"valid", res.IsValid,
		"errors", len(res.Errors),
	)
	return UploadResult{Document: doc, Validation: res}, nil
}

func (p *Processor) checkRequest(status constants.FilingStatus, taxYear int) error {
	return common.NewValidator().
		Field("filingStatus", string(status), common.OneOf(constants.FilingStatusStrings()...)).
		Field("taxYear", taxYear, common.YearBetween(MinTaxYear, MaxTaxYear)).
		Err()
}

// loadDocuments resolves ids in order. An empty list or any unknown id is
// reported as "No documents found for processing".
func (p *Processor) loadDocuments(ctx context.Context, ids []string) ([]entity.TaxDocument, error) {
	if len(ids) == 0 {
		return nil, common.NewAppError("NO_DOCUMENTS", noDocumentsMessage, common.ErrInvalidInput)
	}
	docs, err := p.Docs.GetMany(ctx, ids)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAppError("NO_DOCUMENTS", noDocumentsMessage, err)
		}
		return nil, err
	}
	return docs, nil
}

// gate applies the per-document validation rules. Cross-document findings
// (duplicate types, mixed years) are logged but do not block.
func (p *Processor) gate(docs []entity.TaxDocument) error {
	var errs []string
	for _, d := range docs {
		r := p.Validator.Validate(d)
		for _, e := range r.Errors {
			errs = append(errs, d.Filename+": "+e)
		}
	}
	if batch := p.Validator.ValidateBatch(docs); len(batch.Errors) > len(errs) {
		p.Logger.Warn("pipeline.validate.cross_document", "errors", batch.Errors[len(errs):])
	}
	if len(errs) == 0 {
		return nil
	}
	p.Logger.Warn("pipeline.validate.rejected", "errors", errs)
	return common.NewAppError("VALIDATION_FAILED", strings.Join(errs, "; "), common.ErrValidation)
}

// ProcessDocuments extracts filing data from the given documents. Nothing
// is stored; a failed extraction is terminal and not retried.
func (p *Processor) ProcessDocuments(ctx context.Context, ids []string, status constants.FilingStatus, taxYear int) (entity.ExtractedFilingData, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	if err := p.checkRequest(status, taxYear); err != nil {
		return entity.ExtractedFilingData{}, err
	}
	docs, err := p.loadDocuments(ctx, ids)
	if err != nil {
		p.Logger.Warn("pipeline.process.no_documents", "req_id", rid, "ids", ids, "error", err)
		return entity.ExtractedFilingData{}, err
	}
	if p.Opts.StrictValidation {
		if err := p.gate(docs); err != nil {
			return entity.ExtractedFilingData{}, err
		}
	}

	start := time.Now()
	p.Logger.Info("pipeline.extract.start",
		"req_id", rid,
		"documents", len(docs),
		"status", string(status),
		"tax_year", taxYear,
		"timeout_ms", p.Opts.ExtractTimeout.Milliseconds(),
	)

	ectx, cancel := context.WithTimeout(ctx, p.Opts.ExtractTimeout)
	defer cancel()

	data, _, err := p.Extractor.Extract(ectx, llm.ExtractRequest{
		Documents:    llm.SourcesFrom(docs),
		FilingStatus: status,
		TaxYear:      taxYear,
	})
	if err != nil {
		p.Logger.Error("pipeline.extract.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFilingData{}, &ProcessingError{Err: err}
	}

	p.Logger.Info("pipeline.extract.ok",
		"req_id", rid,
		"total_income", data.Income.TotalIncome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// GenerateFiling runs extraction, calculation and assembly. It returns the
// whole result or an error, never a partial filing.
func (p *Processor) GenerateFiling(ctx context.Context, ids []string, status constants.FilingStatus, taxYear int, format constants.OutputFormat) (entity.FilingResult, error) {
	data, err := p.ProcessDocuments(ctx, ids, status, taxYear)
	if err != nil {
		return entity.FilingResult{}, err
	}

	tax := p.Calculator.Compute(data, status)
	forms, summary, err := p.Assembler.Assemble(data, tax, format)
	if err != nil {
		return entity.FilingResult{}, fmt.Errorf("assemble filing: %w", err)
	}
	return entity.FilingResult{Filing: data, Tax: tax, Forms: forms, Summary: summary}, nil
}
